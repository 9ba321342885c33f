package domain

// DataFrame represents a single WebSocket data frame as defined in
// RFC 6455 Section 5.2. A Message may be carried by one or more
// DataFrames chained through the Continuation opcode.
type DataFrame struct {
	FIN        bool    // Final fragment flag
	RSV1       bool    // Reserved bit 1
	RSV2       bool    // Reserved bit 2
	RSV3       bool    // Reserved bit 3
	Opcode     Opcode  // Frame opcode
	Masked     bool    // Payload is masked
	PayloadLen uint64  // Payload length
	MaskingKey [4]byte // Masking key (if masked)
	Payload    []byte  // Payload data
}

// NewDataFrame creates a new, unmasked, final data frame with the given
// opcode and payload.
func NewDataFrame(opcode Opcode, payload []byte) *DataFrame {
	return &DataFrame{
		FIN:        true,
		Opcode:     opcode,
		PayloadLen: uint64(len(payload)),
		Payload:    payload,
	}
}

// Validate checks if the frame is structurally valid according to RFC 6455.
// It does not check length-minimality of the wire encoding; that is the
// wire decoder's responsibility since a DataFrame built in memory has no
// notion of which length form produced it.
func (f *DataFrame) Validate() error {
	if !f.Opcode.IsValid() {
		return ErrInvalidOpcode
	}

	if f.RSV1 || f.RSV2 || f.RSV3 {
		return ErrReservedBitsSet
	}

	if f.Opcode.IsControl() && f.PayloadLen > 125 {
		return ErrInvalidFrameStructure
	}

	if f.Opcode.IsControl() && !f.FIN {
		return ErrInvalidFrameStructure
	}

	if uint64(len(f.Payload)) != f.PayloadLen {
		return ErrInvalidFrameStructure
	}

	return nil
}

// IsControlFrame returns true if this is a control frame.
func (f *DataFrame) IsControlFrame() bool {
	return f.Opcode.IsControl()
}

// IsDataFrame returns true if this is a (non-control) data frame.
func (f *DataFrame) IsDataFrame() bool {
	return f.Opcode.IsData()
}

// Size returns the number of payload bytes this frame carries on the wire.
func (f *DataFrame) Size() uint64 {
	return uint64(len(f.Payload))
}

// FrameSize returns the total number of bytes this frame occupies on the
// wire once encoded, given whether it will be masked: 1 byte for
// FIN/RSV/opcode, the length-prefix bytes (1, 3 or 9 depending on payload
// size), 4 bytes for the masking key when masked, and the payload itself.
func (f *DataFrame) FrameSize(masked bool) uint64 {
	var lenBytes uint64
	switch {
	case f.PayloadLen <= 125:
		lenBytes = 1
	case f.PayloadLen <= 65535:
		lenBytes = 3
	default:
		lenBytes = 9
	}
	size := 1 + lenBytes + f.PayloadLen
	if masked {
		size += 4
	}
	return size
}
