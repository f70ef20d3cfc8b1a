// Package codec implements the length-prefixed framing of §4.1 and the
// tag-length-value message encoding of §4.2/§6. Field extraction here
// follows the same manual, offset-explicit approach the teacher uses to
// parse a fixed kernel event struct out of a ring buffer record
// (internal/ebpf/events.go's parseRawEvent) — no reflection, no generated
// code, every byte accounted for.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"zynx/internal/errkind"
)

// MaxFrameSize is the largest payload §4.1 permits in a single frame.
const MaxFrameSize = 1 << 20 // 1 MiB

// MessageDeadline is the wall-clock budget §4.1 grants each read_msg or
// write_msg call.
const MessageDeadline = 1000 * time.Millisecond

// Deadline is the subset of net.Conn / *os.File that frame I/O needs to
// enforce the per-message deadline. Both Unix-socket connections and the
// pipe halves of a spawned filter's stdio satisfy it.
type Deadline interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Stream is a connection usable by the framing codec: a byte stream with
// deadline support.
type Stream interface {
	io.Reader
	io.Writer
	Deadline
}

// WriteMsg writes the 4-byte little-endian length header followed by
// payload, retrying partial writes until the frame is fully written, the
// deadline expires, or the stream fails.
func WriteMsg(w Stream, payload []byte) error {
	if err := w.SetWriteDeadline(time.Now().Add(MessageDeadline)); err != nil {
		return errkind.New(errkind.Transport, fmt.Errorf("set write deadline: %w", err))
	}

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))

	if err := writeFull(w, hdr[:]); err != nil {
		return err
	}
	if err := writeFull(w, payload); err != nil {
		return err
	}
	return nil
}

// ReadMsg reads exactly one frame: a 4-byte length header followed by that
// many payload bytes. A header exceeding MaxFrameSize is rejected without
// reading the payload.
func ReadMsg(r Stream) ([]byte, error) {
	if err := r.SetReadDeadline(time.Now().Add(MessageDeadline)); err != nil {
		return nil, errkind.New(errkind.Transport, fmt.Errorf("set read deadline: %w", err))
	}

	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, classifyReadErr(err)
	}

	n := binary.LittleEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return nil, errkind.New(errkind.OversizedFrame, fmt.Errorf("frame length %d exceeds %d", n, MaxFrameSize))
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, classifyReadErr(err)
	}
	return payload, nil
}

func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return classifyWriteErr(err)
		}
		buf = buf[n:]
	}
	return nil
}

func classifyWriteErr(err error) error {
	if isTimeout(err) {
		return errkind.New(errkind.Timeout, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		return errkind.New(errkind.ConnectionClosed, err)
	}
	return errkind.New(errkind.Transport, err)
}

func classifyReadErr(err error) error {
	if isTimeout(err) {
		return errkind.New(errkind.Timeout, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errkind.New(errkind.ConnectionClosed, err)
	}
	return errkind.New(errkind.Transport, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
