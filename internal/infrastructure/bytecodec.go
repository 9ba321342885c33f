package infrastructure

import (
	"encoding/binary"
	"io"
)

// readUint16 reads a big-endian uint16 from reader, surfacing io.ReadFull's
// error (including io.ErrUnexpectedEOF on a short read) unchanged.
func readUint16(reader io.Reader) (uint16, error) {
	buf := make([]byte, 2)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// readUint64 reads a big-endian uint64 from reader.
func readUint64(reader io.Reader) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// writeUint16 appends the big-endian encoding of v to dst.
func writeUint16(dst []byte, v uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return append(dst, buf...)
}

// writeUint64 appends the big-endian encoding of v to dst.
func writeUint64(dst []byte, v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return append(dst, buf...)
}
