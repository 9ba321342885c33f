package domain

import (
	"encoding/binary"
	"unicode/utf8"
)

// Message is a complete, reassembled WebSocket message: either a Text or
// Binary application message, or one of the three control messages (Close,
// Ping, Pong). A Message is what a Receiver hands back to an application
// and what a Sender writes out as a single final DataFrame.
type Message struct {
	Opcode Opcode // Text, Binary, Close, Ping or Pong
	// CloseStatusCode is only meaningful when Opcode is OpcodeClose. A nil
	// value means the close carried no status code at all (a payload
	// shorter than two bytes). A received code is stored as it is; no
	// range check is applied, so values such as 1005/1006/1015 are not
	// rejected.
	CloseStatusCode *uint16
	Payload         []byte // application payload; for Close, the reason text (if any)
}

// NewTextMessage creates a new Text message from the given UTF-8 payload.
func NewTextMessage(payload []byte) *Message {
	return &Message{Opcode: OpcodeText, Payload: payload}
}

// NewBinaryMessage creates a new Binary message from the given payload.
func NewBinaryMessage(payload []byte) *Message {
	return &Message{Opcode: OpcodeBinary, Payload: payload}
}

// NewPingMessage creates a new Ping message carrying the given payload.
func NewPingMessage(payload []byte) *Message {
	return &Message{Opcode: OpcodePing, Payload: payload}
}

// NewPongMessage creates a new Pong message carrying the given payload.
func NewPongMessage(payload []byte) *Message {
	return &Message{Opcode: OpcodePong, Payload: payload}
}

// NewCloseMessage creates a Close message with no status code and no
// reason, i.e. an empty close payload.
func NewCloseMessage() *Message {
	return &Message{Opcode: OpcodeClose, Payload: []byte{}}
}

// NewCloseMessageWithCode creates a Close message carrying the given status
// code and an optional UTF-8 reason.
func NewCloseMessageWithCode(code uint16, reason string) *Message {
	c := code
	return &Message{Opcode: OpcodeClose, CloseStatusCode: &c, Payload: []byte(reason)}
}

// ToPong builds the Pong reply to this message. Only meaningful when
// called on a Ping message; the reply carries the same payload as the ping.
func (m *Message) ToPong() *Message {
	return NewPongMessage(m.Payload)
}

// IsText returns true if this is a Text message.
func (m *Message) IsText() bool {
	return m.Opcode == OpcodeText
}

// IsBinary returns true if this is a Binary message.
func (m *Message) IsBinary() bool {
	return m.Opcode == OpcodeBinary
}

// IsPing returns true if this is a Ping message.
func (m *Message) IsPing() bool {
	return m.Opcode == OpcodePing
}

// IsPong returns true if this is a Pong message.
func (m *Message) IsPong() bool {
	return m.Opcode == OpcodePong
}

// IsClose returns true if this is a Close message.
func (m *Message) IsClose() bool {
	return m.Opcode == OpcodeClose
}

// ToOpcode returns the opcode that should tag the first (or only) data
// frame carrying this message on the wire.
func (m *Message) ToOpcode() Opcode {
	return m.Opcode
}

// Validate checks that the message is well-formed: the opcode must be one
// of the five message-carrying opcodes, a Text payload must be valid
// UTF-8, and a Close reason must be valid UTF-8. The Close status code
// itself is not range-checked.
func (m *Message) Validate() error {
	switch m.Opcode {
	case OpcodeText:
		if !utf8.Valid(m.Payload) {
			return NewUtf8Error(errInvalidUTF8)
		}
		return nil
	case OpcodeBinary, OpcodePing, OpcodePong:
		return nil
	case OpcodeClose:
		return m.validateClosePayload()
	default:
		return ErrInvalidMessageType
	}
}

func (m *Message) validateClosePayload() error {
	if len(m.Payload) == 0 && m.CloseStatusCode == nil {
		return nil
	}
	if !utf8.Valid(m.Payload) {
		return NewUtf8Error(errInvalidUTF8)
	}
	return nil
}

// Size returns the number of bytes this message contributes to a data
// frame's payload: the application payload plus 2 bytes for the close
// status code, when present.
func (m *Message) Size() uint64 {
	size := uint64(len(m.Payload))
	if m.CloseStatusCode != nil {
		size += 2
	}
	return size
}

// wirePayload returns the bytes that should be written as a single data
// frame's payload: the status code (big-endian) followed by the reason
// text for Close messages carrying a code, or the raw payload otherwise.
func (m *Message) wirePayload() []byte {
	if m.Opcode != OpcodeClose || m.CloseStatusCode == nil {
		return m.Payload
	}
	out := make([]byte, 2+len(m.Payload))
	binary.BigEndian.PutUint16(out, *m.CloseStatusCode)
	copy(out[2:], m.Payload)
	return out
}

// ToDataFrame converts this message into the single, final (FIN) data
// frame that carries its entire payload, unmasked. Masking is the Sender's
// responsibility; the Sender writes this frame as it is, without
// fragmenting it.
func (m *Message) ToDataFrame() *DataFrame {
	return NewDataFrame(m.Opcode, m.wirePayload())
}

// FromDataFrames reassembles a Message from the data frames that carried
// it: the first frame's opcode determines the message type, and any
// subsequent frames must be Continuation frames. The payloads are
// concatenated in order.
func FromDataFrames(frames []*DataFrame) (*Message, error) {
	if len(frames) == 0 {
		return nil, NewProtocolError("No dataframes provided")
	}

	first := frames[0]
	if first.Opcode == OpcodeContinuation {
		return nil, NewProtocolError("Unsupported opcode received")
	}
	if !first.Opcode.IsValid() {
		return nil, NewProtocolError("Unsupported opcode received")
	}

	var total uint64
	for _, f := range frames {
		if f.RSV1 || f.RSV2 || f.RSV3 {
			return nil, NewProtocolError("Unsupported reserved bits received")
		}
		total += f.PayloadLen
	}

	payload := make([]byte, 0, total)
	for i, f := range frames {
		if i > 0 && f.Opcode != OpcodeContinuation {
			return nil, NewProtocolError("Unexpected non-continuation data frame")
		}
		payload = append(payload, f.Payload...)
	}

	msg := &Message{Opcode: first.Opcode, Payload: payload}

	if first.Opcode == OpcodeClose && len(payload) >= 2 {
		code := binary.BigEndian.Uint16(payload[:2])
		msg.CloseStatusCode = &code
		msg.Payload = payload[2:]
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	return msg, nil
}

var errInvalidUTF8 = simpleError("payload is not valid utf-8")

type simpleError string

func (e simpleError) Error() string { return string(e) }
