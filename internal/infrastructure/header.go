package infrastructure

import (
	"io"

	"websocket-core/internal/domain"
	"websocket-core/pkg/protocol"
)

// readFrameHeader reads and decodes the first part of a data frame - the
// FIN/RSV/opcode byte, the mask bit and length form, any extended length
// field, and the masking key if present - leaving only the payload to be
// read by the caller. It enforces the structural checks that do not
// depend on the payload itself, including RFC 6455's length-minimality
// rule: a 16-bit extended length must encode a value that would not have
// fit in the 7-bit form, and likewise for the 64-bit form.
func readFrameHeader(reader io.Reader) (*domain.DataFrame, error) {
	frame := &domain.DataFrame{}

	first2 := make([]byte, 2)
	if _, err := io.ReadFull(reader, first2); err != nil {
		return nil, err
	}

	frame.FIN = (first2[0] & 0x80) != 0
	frame.RSV1 = (first2[0] & 0x40) != 0
	frame.RSV2 = (first2[0] & 0x20) != 0
	frame.RSV3 = (first2[0] & 0x10) != 0
	frame.Opcode = domain.Opcode(first2[0] & 0x0F)

	if !frame.Opcode.IsValid() {
		return nil, domain.ErrInvalidOpcode
	}
	if frame.RSV1 || frame.RSV2 || frame.RSV3 {
		return nil, domain.ErrReservedBitsSet
	}

	frame.Masked = (first2[1] & 0x80) != 0
	lengthForm := uint64(first2[1] & 0x7F)

	payloadLen, err := readPayloadLength(reader, lengthForm)
	if err != nil {
		return nil, err
	}
	frame.PayloadLen = payloadLen

	if frame.Opcode.IsControl() && payloadLen > protocol.MaxControlFramePayloadSize {
		return nil, domain.ErrInvalidFrameStructure
	}
	if frame.Opcode.IsControl() && !frame.FIN {
		return nil, domain.ErrInvalidFrameStructure
	}

	if frame.Masked {
		if _, err := io.ReadFull(reader, frame.MaskingKey[:]); err != nil {
			return nil, err
		}
	}

	return frame, nil
}

// readPayloadLength decodes the length field that follows the first two
// header bytes, given the 7-bit form read from the second byte.
// RFC 6455 Section 5.2 requires the minimal encoding: a value that fits
// in 125 bytes must use the 7-bit form directly, and a value that fits in
// 16 bits must use the 16-bit form rather than the 64-bit one. Violating
// this is rejected with a DataFrameError, grounded on the original
// protocol source's equivalent check.
func readPayloadLength(reader io.Reader, lengthForm uint64) (uint64, error) {
	switch lengthForm {
	case protocol.PayloadLen16Bit:
		length, err := readUint16(reader)
		if err != nil {
			return 0, err
		}
		if length <= 125 {
			return 0, domain.NewDataFrameError("Invalid data frame length")
		}
		return uint64(length), nil

	case protocol.PayloadLen64Bit:
		length, err := readUint64(reader)
		if err != nil {
			return 0, err
		}
		if length>>63 != 0 {
			return 0, domain.NewDataFrameError("payload length must not set the most significant bit")
		}
		if length <= 65535 {
			return 0, domain.NewDataFrameError("Invalid data frame length")
		}
		return length, nil

	default:
		return lengthForm, nil
	}
}

// writeFrameHeader appends the encoded FIN/RSV/opcode byte, mask bit and
// length form (plus any extended length and masking key) for frame to
// dst, returning the extended slice.
func writeFrameHeader(dst []byte, frame *domain.DataFrame) []byte {
	first := byte(frame.Opcode)
	if frame.FIN {
		first |= 0x80
	}
	if frame.RSV1 {
		first |= 0x40
	}
	if frame.RSV2 {
		first |= 0x20
	}
	if frame.RSV3 {
		first |= 0x10
	}
	dst = append(dst, first)

	second := byte(0)
	if frame.Masked {
		second |= 0x80
	}

	switch {
	case frame.PayloadLen <= 125:
		dst = append(dst, second|byte(frame.PayloadLen))
	case frame.PayloadLen <= 65535:
		dst = append(dst, second|protocol.PayloadLen16Bit)
		dst = writeUint16(dst, uint16(frame.PayloadLen))
	default:
		dst = append(dst, second|protocol.PayloadLen64Bit)
		dst = writeUint64(dst, frame.PayloadLen)
	}

	if frame.Masked {
		dst = append(dst, frame.MaskingKey[:]...)
	}

	return dst
}
