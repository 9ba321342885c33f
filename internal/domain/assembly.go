package domain

import "fmt"

// AssemblyState tracks whether a Receiver is between messages or midway
// through reassembling a fragmented one.
type AssemblyState int

const (
	// StateIdle means no partial message is buffered; the next data frame
	// read must start a new message (or be a stand-alone control frame).
	StateIdle AssemblyState = iota
	// StateAssembling means one or more non-final fragments have been
	// buffered and the next data frame must be a Continuation (or a
	// control frame interleaved between fragments).
	StateAssembling
)

// String returns the string representation of the assembly state.
func (s AssemblyState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAssembling:
		return "Assembling"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Assembly holds the bookkeeping a Receiver needs to reassemble a
// fragmented message: the buffered non-final data frames, a running
// byte count used to enforce message-size limits without re-summing the
// buffer on every frame, and the current state.
type Assembly struct {
	State         AssemblyState
	Buffer        []*DataFrame
	BufferedBytes uint64
}

// NewAssembly creates an assembly tracker in the idle state.
func NewAssembly() *Assembly {
	return &Assembly{State: StateIdle}
}

// CanAccept reports whether a data frame with the given opcode may be
// appended given the current state: a new message must start with a
// non-continuation data opcode, while a message already in progress must
// continue with a Continuation frame. Control frames are accepted in
// either state since they may be interleaved between fragments.
func (a *Assembly) CanAccept(opcode Opcode) bool {
	if opcode.IsControl() {
		return true
	}
	switch a.State {
	case StateIdle:
		return opcode != OpcodeContinuation
	case StateAssembling:
		return opcode == OpcodeContinuation
	default:
		return false
	}
}

// Append buffers a non-final data frame and transitions to Assembling.
func (a *Assembly) Append(frame *DataFrame) error {
	if !a.CanAccept(frame.Opcode) {
		if a.State == StateIdle {
			return ErrUnexpectedContinuation
		}
		return ErrUnexpectedDataFrame
	}
	a.Buffer = append(a.Buffer, frame)
	a.BufferedBytes += frame.PayloadLen
	a.State = StateAssembling
	return nil
}

// Finish appends the final frame, returns the complete buffered sequence,
// and resets the tracker to Idle.
func (a *Assembly) Finish(frame *DataFrame) []*DataFrame {
	frames := append(a.Buffer, frame)
	a.Reset()
	return frames
}

// Reset discards any buffered fragments and returns to Idle. Used by
// Finish, and when a fragment-count or message-size limit aborts an
// in-progress reassembly.
func (a *Assembly) Reset() {
	a.State = StateIdle
	a.Buffer = nil
	a.BufferedBytes = 0
}

// IsIdle returns true if no partial message is buffered.
func (a *Assembly) IsIdle() bool {
	return a.State == StateIdle
}

// IsAssembling returns true if a partial message is buffered.
func (a *Assembly) IsAssembling() bool {
	return a.State == StateAssembling
}

// FrameCount returns the number of fragments buffered so far.
func (a *Assembly) FrameCount() int {
	return len(a.Buffer)
}
