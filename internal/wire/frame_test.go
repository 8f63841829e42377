package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestZeroLengthFrameIsEmptyNoop(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, nil))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 16)))
	// Corrupt the length prefix to claim an over-limit payload.
	data := buf.Bytes()
	oversized := append([]byte{0xFF, 0xFF, 0xFF, 0xFF}, data[4:]...)

	_, err := ReadFrame(bytes.NewReader(oversized))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, MaxPayloadBytes+1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestReadFrameShortReadIsError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))
	truncated := buf.Bytes()[:6]

	_, err := ReadFrame(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestFrameLimitRoundTripUnderCustomLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrameLimit(&buf, []byte("small"), 8))

	got, err := ReadFrameLimit(&buf, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("small"), got)
}

func TestFrameLimitRejectsPayloadOverCustomLimit(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrameLimit(&buf, make([]byte, 9), 8)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestReadFrameLimitRejectsLengthOverCustomLimitBelowDefault(t *testing.T) {
	// A payload that fits the package default but exceeds a caller's
	// tighter configured limit must still be rejected.
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 64)))

	_, err := ReadFrameLimit(&buf, 8)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}
