package codec

import (
	"bytes"
	"fmt"

	"zynx/internal/errkind"
)

// putUvarint appends v to buf using the same base-128 varint encoding as
// protobuf (low 7 bits per byte, continuation bit set on all but the
// last byte). §4.2 specifies "tag-length-value with varints" without
// pinning a particular varint scheme, so the de facto standard one is
// used — it is what every length-prefixed wire format in the surrounding
// ecosystem (gRPC, protobuf, etc.) already means by "varint".
func putUvarint(buf *bytes.Buffer, v uint64) {
	for v >= 0x80 {
		buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	buf.WriteByte(byte(v))
}

// getUvarint reads a varint from the front of data, returning the value
// and the number of bytes consumed.
func getUvarint(data []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i, b := range data {
		if i >= 10 {
			return 0, 0, fmt.Errorf("varint too long")
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("truncated varint")
}

// field is one decoded tag-length-value triple.
type field struct {
	num   uint32
	value []byte
}

// writeField appends a tag, a varint length, and the raw value bytes to
// buf — the fixed wire shape every message in §6 is built from.
func writeField(buf *bytes.Buffer, num uint32, value []byte) {
	putUvarint(buf, uint64(num))
	putUvarint(buf, uint64(len(value)))
	buf.Write(value)
}

// iterFields walks data yielding one field at a time. Any structural
// failure (truncated tag, truncated length, length running past the end
// of data) is a DecodeError per §4.2 — such a frame "fails structural
// decode".
func iterFields(data []byte, fn func(field) error) error {
	for len(data) > 0 {
		num, n, err := getUvarint(data)
		if err != nil {
			return errkind.New(errkind.Decode, fmt.Errorf("field tag: %w", err))
		}
		data = data[n:]

		length, n, err := getUvarint(data)
		if err != nil {
			return errkind.New(errkind.Decode, fmt.Errorf("field length: %w", err))
		}
		data = data[n:]

		if uint64(len(data)) < length {
			return errkind.New(errkind.Decode, fmt.Errorf("field %d truncated: want %d bytes, have %d", num, length, len(data)))
		}

		if err := fn(field{num: uint32(num), value: data[:length]}); err != nil {
			return err
		}
		data = data[length:]
	}
	return nil
}

func encodeVarintValue(v uint64) []byte {
	var buf bytes.Buffer
	putUvarint(&buf, v)
	return buf.Bytes()
}

func decodeVarintValue(data []byte) (uint64, error) {
	v, n, err := getUvarint(data)
	if err != nil {
		return 0, errkind.New(errkind.Decode, err)
	}
	if n != len(data) {
		return 0, errkind.New(errkind.Decode, fmt.Errorf("trailing bytes after varint value"))
	}
	return v, nil
}

func encodeBoolValue(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

func decodeBoolValue(data []byte) (bool, error) {
	if len(data) != 1 {
		return false, errkind.New(errkind.Decode, fmt.Errorf("bool field has length %d, want 1", len(data)))
	}
	return data[0] != 0, nil
}
