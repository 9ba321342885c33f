package infrastructure

import (
	"io"

	"websocket-core/internal/domain"
)

const (
	// defaultMaxDataFrameSize bounds a single data frame's payload.
	defaultMaxDataFrameSize = 100 * 1024 * 1024
	// defaultMaxMessageSize bounds a fully reassembled message.
	defaultMaxMessageSize = 200 * 1024 * 1024
	// maxDataFramesInOneMessage bounds fragment count, independent of byte
	// size, so an attacker cannot exhaust memory with many zero-length
	// fragments.
	maxDataFramesInOneMessage = 1_048_576
	// perDataFrameOverhead is counted against the message size limit for
	// every buffered fragment, approximating the bookkeeping cost of each
	// one (its domain.DataFrame struct plus the DataFrameCodec's parsing
	// of its header) independent of payload size.
	perDataFrameOverhead = 64
)

// Receiver reads data frames from a stream and reassembles them into
// complete messages. It is stateful (it buffers in-progress fragments
// across calls) and is not safe for concurrent use: a single Receiver
// must only ever be driven by one goroutine at a time, though a Receiver
// and a Sender may run on separate goroutines over the same connection.
type Receiver struct {
	codec            *DataFrameCodec
	assembly         *domain.Assembly
	maxDataFrameSize uint64
	maxMessageSize   uint64
	expectMasked     bool
}

// NewReceiver creates a Receiver with the default per-frame and
// per-message size limits. expectMasked sets the mask-expectation flag:
// true for a server receiving from a client, false for a client receiving
// from a server.
func NewReceiver(expectMasked bool) *Receiver {
	return NewReceiverWithLimits(defaultMaxDataFrameSize, defaultMaxMessageSize, expectMasked)
}

// NewReceiverWithLimits creates a Receiver enforcing the given per-frame
// and per-message byte limits, and the given mask-expectation flag.
func NewReceiverWithLimits(maxDataFrameSize, maxMessageSize uint64, expectMasked bool) *Receiver {
	return &Receiver{
		codec:            NewDataFrameCodec(maxDataFrameSize),
		assembly:         domain.NewAssembly(),
		maxDataFrameSize: maxDataFrameSize,
		maxMessageSize:   maxMessageSize,
		expectMasked:     expectMasked,
	}
}

// RecvDataFrame reads a single data frame from reader, subject to the
// per-frame size limit and this Receiver's mask-expectation. It does not
// touch the reassembly state; callers that want full message assembly
// should use RecvMessageDataFrames or RecvMessage instead.
func (r *Receiver) RecvDataFrame(reader io.Reader) (*domain.DataFrame, error) {
	return r.codec.ReadDataFrame(reader, r.expectMasked)
}

// RecvMessageDataFrames reads data frames from reader until a complete
// message has been assembled, per the state table in the Receiver
// component design: control frames are always returned immediately as a
// one-element sequence without disturbing any in-progress data-message
// assembly, and a FIN frame completes and returns the buffered sequence.
func (r *Receiver) RecvMessageDataFrames(reader io.Reader) ([]*domain.DataFrame, error) {
	for {
		frame, err := r.codec.ReadDataFrame(reader, r.expectMasked)
		if err != nil {
			return nil, err
		}

		if frame.IsControlFrame() {
			return []*domain.DataFrame{frame}, nil
		}

		if !r.assembly.CanAccept(frame.Opcode) {
			if r.assembly.IsIdle() {
				return nil, domain.ErrUnexpectedContinuation
			}
			return nil, domain.ErrUnexpectedDataFrame
		}

		if frame.FIN {
			return r.assembly.Finish(frame), nil
		}

		if err := r.assembly.Append(frame); err != nil {
			return nil, err
		}

		if r.assembly.FrameCount() > maxDataFramesInOneMessage {
			r.assembly.Reset()
			return nil, domain.ErrTooManyDataFrames
		}

		bufferedSize := r.assembly.BufferedBytes + uint64(r.assembly.FrameCount())*perDataFrameOverhead
		if bufferedSize > r.maxMessageSize {
			r.assembly.Reset()
			return nil, domain.ErrPayloadTooLarge
		}
	}
}

// RecvMessage reads and reassembles one complete Message from reader.
func (r *Receiver) RecvMessage(reader io.Reader) (*domain.Message, error) {
	frames, err := r.RecvMessageDataFrames(reader)
	if err != nil {
		return nil, err
	}
	return domain.FromDataFrames(frames)
}
