// Package wire implements the length-prefixed frame codec and the
// type-tagged payload envelope every connection speaks: operations,
// document snapshots, and heartbeat pings/pongs.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxPayloadBytes is the default largest payload a frame may carry,
// spec.md §6's compile-time default. Callers that have a configured
// limit should use ReadFrameLimit/WriteFrameLimit instead.
const MaxPayloadBytes = 1 << 20 // 1 MiB

// ErrPayloadTooLarge is returned when a frame's declared length exceeds
// the limit in effect.
var ErrPayloadTooLarge = errors.New("wire: payload exceeds maximum frame size")

// ReadFrame reads one frame using the default MaxPayloadBytes limit.
func ReadFrame(r io.Reader) ([]byte, error) {
	return ReadFrameLimit(r, MaxPayloadBytes)
}

// ReadFrameLimit reads one `[length:u32 big-endian][payload:length bytes]`
// frame from r, rejecting any declared length over maxPayload without
// reading the body. A declared length of zero is a valid empty frame and
// returns a nil payload with no error.
func ReadFrameLimit(r io.Reader, maxPayload int) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("reading frame length: %w", err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 {
		return nil, nil
	}
	if length > uint32(maxPayload) {
		return nil, fmt.Errorf("declared length %d: %w", length, ErrPayloadTooLarge)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("reading frame payload: %w", err)
	}
	return payload, nil
}

// WriteFrame writes one frame using the default MaxPayloadBytes limit.
func WriteFrame(w io.Writer, payload []byte) error {
	return WriteFrameLimit(w, payload, MaxPayloadBytes)
}

// WriteFrameLimit writes payload as a single length-prefixed frame to w,
// rejecting payloads over maxPayload. A nil or empty payload writes a
// zero-length frame.
func WriteFrameLimit(w io.Writer, payload []byte, maxPayload int) error {
	if len(payload) > maxPayload {
		return fmt.Errorf("payload length %d: %w", len(payload), ErrPayloadTooLarge)
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("writing frame length: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing frame payload: %w", err)
	}
	return nil
}
