package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otcollab/otsync/internal/transform"
)

func TestOperationRoundTrip(t *testing.T) {
	op := transform.Replace(2, 5, "xyz", "alice", 3)
	msg := OpToMessage(op)

	payload, err := EncodeOperation(msg)
	require.NoError(t, err)

	decoded, err := Decode(payload)
	require.NoError(t, err)
	require.Equal(t, TypeOperation, decoded.Type)

	back, err := MessageToOp(decoded.Operation)
	require.NoError(t, err)
	assert.Equal(t, op, back)
}

func TestSyncDocumentRoundTrip(t *testing.T) {
	msg := SyncDocumentMessage{DocID: "doc-1", Content: "hello world", Version: 7}
	payload, err := EncodeSyncDocument(msg)
	require.NoError(t, err)

	decoded, err := Decode(payload)
	require.NoError(t, err)
	require.Equal(t, TypeSyncDocument, decoded.Type)
	assert.Equal(t, msg, decoded.SyncDocument)
}

func TestPingPongRoundTrip(t *testing.T) {
	payload := EncodePing(42)
	decoded, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, TypePing, decoded.Type)
	assert.Equal(t, uint64(42), decoded.Seq)

	payload = EncodePong(43)
	decoded, err = Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, TypePong, decoded.Type)
	assert.Equal(t, uint64(43), decoded.Seq)
}

func TestDecodeUnknownTypeIsMalformed(t *testing.T) {
	_, err := Decode([]byte{0x9})
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDecodeEmptyPayloadIsMalformed(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDecodeTruncatedSeqIsMalformed(t *testing.T) {
	_, err := Decode([]byte{byte(TypePing), 0x1, 0x2})
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestNoopRoundTrip(t *testing.T) {
	op := transform.Noop("alice", 4)
	msg := OpToMessage(op)
	back, err := MessageToOp(msg)
	require.NoError(t, err)
	assert.Equal(t, op, back)
}
