package infrastructure

import (
	"io"

	"websocket-core/internal/domain"
	"websocket-core/pkg/protocol"
)

// DataFrameCodec reads and writes individual WebSocket data frames over a
// byte stream, enforcing a default per-frame payload size limit.
type DataFrameCodec struct {
	MaxPayloadSize uint64
}

// NewDataFrameCodec creates a codec enforcing the given maximum payload
// size per frame. A zero size falls back to protocol.MaxPayloadSize.
func NewDataFrameCodec(maxPayloadSize uint64) *DataFrameCodec {
	if maxPayloadSize == 0 {
		maxPayloadSize = protocol.MaxPayloadSize
	}
	return &DataFrameCodec{MaxPayloadSize: maxPayloadSize}
}

// ReadDataFrame reads one complete data frame from reader, rejecting a
// frame whose declared payload length exceeds the codec's configured
// limit. expectMasked enforces the RFC 6455 masking direction: true for a
// server reading client frames, false for a client reading server frames.
func (c *DataFrameCodec) ReadDataFrame(reader io.Reader, expectMasked bool) (*domain.DataFrame, error) {
	return ReadDataFrameWithLimit(reader, expectMasked, c.MaxPayloadSize)
}

// ReadDataFrameWithLimit reads one complete data frame from reader,
// rejecting any frame whose declared payload length exceeds limit before
// attempting to read the payload body, so an attacker-controlled length
// cannot force an unbounded allocation or read. A masked header when
// expectMasked is false, or an unmasked header when expectMasked is true,
// fails with a DataFrameError describing the mismatch.
func ReadDataFrameWithLimit(reader io.Reader, expectMasked bool, limit uint64) (*domain.DataFrame, error) {
	frame, err := readFrameHeader(reader)
	if err != nil {
		return nil, err
	}

	if frame.Masked && !expectMasked {
		return nil, domain.NewDataFrameError("Expected unmasked data frame")
	}
	if !frame.Masked && expectMasked {
		return nil, domain.NewDataFrameError("Expected masked data frame")
	}

	if frame.PayloadLen > limit {
		return nil, domain.ErrPayloadTooLarge
	}

	if frame.PayloadLen > 0 {
		frame.Payload = make([]byte, frame.PayloadLen)
		if _, err := io.ReadFull(reader, frame.Payload); err != nil {
			return nil, err
		}
		if frame.Masked {
			MaskBytes(frame.Payload, frame.MaskingKey)
		}
	} else {
		frame.Payload = []byte{}
	}

	return frame, nil
}

// WriteDataFrame validates frame and writes it to writer as a single
// header-plus-payload buffer, so a short write from the underlying
// transport cannot interleave another frame's bytes mid-frame. When
// frame.Masked is set, the payload is masked in a private copy so the
// caller's frame.Payload is left unmodified.
func WriteDataFrame(writer io.Writer, frame *domain.DataFrame) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	buf := make([]byte, 0, frame.FrameSize(frame.Masked))
	buf = writeFrameHeader(buf, frame)

	if len(frame.Payload) > 0 {
		if frame.Masked {
			payload := make([]byte, len(frame.Payload))
			copy(payload, frame.Payload)
			MaskBytes(payload, frame.MaskingKey)
			buf = append(buf, payload...)
		} else {
			buf = append(buf, frame.Payload...)
		}
	}

	_, err := writer.Write(buf)
	return err
}
