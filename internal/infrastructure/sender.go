package infrastructure

import (
	"io"

	"websocket-core/internal/domain"
)

// Sender serializes data frames and messages onto a stream. It is
// stateless beyond the Masked flag: by RFC 6455 convention, Masked is
// true for a client sending to a server and false for a server sending to
// a client. A Sender holds no reassembly state and is safe to share
// across goroutines as long as the underlying writer is only driven by
// one at a time.
type Sender struct {
	Masked bool
}

// NewSender creates a Sender that masks outgoing frames according to
// masked (true for client-role senders, false for server-role senders).
func NewSender(masked bool) *Sender {
	return &Sender{Masked: masked}
}

// SendDataFrame writes frame to writer, masking it first if the sender is
// configured to mask. The caller's frame is mutated to reflect the mask
// state and, when masking, is assigned a fresh random key.
func (s *Sender) SendDataFrame(writer io.Writer, frame *domain.DataFrame) error {
	frame.Masked = s.Masked
	if s.Masked {
		frame.MaskingKey = GenerateMaskKey()
	}
	return WriteDataFrame(writer, frame)
}

// SendMessage converts msg into its single, final data frame and sends
// it, applying this sender's masking convention. The core never
// fragments an outbound message; see the Message component design for
// why.
func (s *Sender) SendMessage(writer io.Writer, msg *domain.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return s.SendDataFrame(writer, msg.ToDataFrame())
}
