// Package gate queries the game's gate server for the current resource
// version strings.
package gate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	headerLen = 7
	// lenOffset is the part of the header counted by the length field
	lenOffset = headerLen - 2

	maxPayload = 1 << 20
)

// Frame is one command exchanged with the gate server
type Frame struct {
	Command uint16
	Index   uint16
	Payload []byte
}

// ErrFrameTooLarge is returned for frames exceeding the payload limit
var ErrFrameTooLarge = errors.New("frame too large")

// Marshal encodes f with its 7-byte header: payload length plus 5
// (big-endian), a zero byte, the command id and the index. An empty
// payload is announced with length 1.
func (f Frame) Marshal() []byte {
	n := len(f.Payload)
	if n == 0 {
		n = 1
	}
	buf := make([]byte, headerLen, headerLen+len(f.Payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(n+lenOffset))
	binary.BigEndian.PutUint16(buf[3:5], f.Command)
	binary.BigEndian.PutUint16(buf[5:7], f.Index)
	return append(buf, f.Payload...)
}

// WriteFrame writes f to w
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Payload)+lenOffset > 0xffff {
		return ErrFrameTooLarge
	}
	if _, err := w.Write(f.Marshal()); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r
func ReadFrame(r io.Reader) (Frame, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Frame{}, fmt.Errorf("failed to read frame header: %w", err)
	}
	n := int(binary.BigEndian.Uint16(lenBuf[:]))
	if n < lenOffset {
		return Frame{}, fmt.Errorf("invalid frame length %d", n)
	}
	if n-lenOffset > maxPayload {
		return Frame{}, ErrFrameTooLarge
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, fmt.Errorf("failed to read frame body: %w", err)
	}
	return Frame{
		Command: binary.BigEndian.Uint16(body[1:3]),
		Index:   binary.BigEndian.Uint16(body[3:5]),
		Payload: body[lenOffset:],
	}, nil
}
