package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/otcollab/otsync/internal/transform"
)

// Type identifies the variant carried by an envelope's first byte.
type Type uint8

const (
	TypeOperation    Type = 1
	TypeSyncDocument Type = 2
	TypePing         Type = 3
	TypePong         Type = 4
)

// ErrMalformedEnvelope is returned when a payload's type tag is unknown or
// its body cannot be decoded against the shape the tag implies.
var ErrMalformedEnvelope = errors.New("wire: malformed envelope")

// OperationMessage is the JSON wire shape of an Operation envelope body.
// Kind selects which of Index, Start/End, Text are meaningful, mirroring
// the tagged union transform.Op represents in memory. DocID is the
// document the client believes it is editing; the pipeline checks it
// against the server's document as its first step. ServerVersion and
// OpID are part of the wire shape but the server never sets them: it
// broadcasts SyncDocument snapshots, never operations, and no op_id is
// minted or recorded for an applied operation.
type OperationMessage struct {
	DocID         string `json:"doc_id"`
	Kind          string `json:"kind"`
	Index         uint64 `json:"index,omitempty"`
	Start         uint64 `json:"start,omitempty"`
	End           uint64 `json:"end,omitempty"`
	Text          string `json:"text,omitempty"`
	ClientID      string `json:"client_id"`
	ClientVersion uint64 `json:"client_version"`
	ServerVersion uint64 `json:"server_version,omitempty"`
	OpID          string `json:"op_id,omitempty"`
}

// SyncDocumentMessage is the JSON wire shape of a SyncDocument envelope
// body, the authoritative snapshot sent on connect and after every
// applied operation.
type SyncDocumentMessage struct {
	DocID   string `json:"doc_id"`
	Content string `json:"content"`
	Version uint64 `json:"version"`
}

// OpToMessage converts an internal Op into its wire representation.
func OpToMessage(op transform.Op) OperationMessage {
	msg := OperationMessage{
		Kind:          op.Kind.String(),
		ClientID:      op.ClientID,
		ClientVersion: op.ClientVersion,
	}
	switch op.Kind {
	case transform.KindInsert:
		msg.Index = op.Index
		msg.Text = op.Text
	case transform.KindDelete:
		msg.Start = op.Start
		msg.End = op.End
	case transform.KindReplace:
		msg.Start = op.Start
		msg.End = op.End
		msg.Text = op.Text
	}
	return msg
}

// MessageToOp converts a wire OperationMessage back into an internal Op.
func MessageToOp(msg OperationMessage) (transform.Op, error) {
	switch msg.Kind {
	case transform.KindInsert.String():
		return transform.Insert(msg.Index, msg.Text, msg.ClientID, msg.ClientVersion), nil
	case transform.KindDelete.String():
		return transform.Delete(msg.Start, msg.End, msg.ClientID, msg.ClientVersion), nil
	case transform.KindReplace.String():
		return transform.Replace(msg.Start, msg.End, msg.Text, msg.ClientID, msg.ClientVersion), nil
	case transform.KindNoop.String():
		return transform.Noop(msg.ClientID, msg.ClientVersion), nil
	default:
		return transform.Op{}, fmt.Errorf("operation kind %q: %w", msg.Kind, ErrMalformedEnvelope)
	}
}

// EncodeOperation builds the envelope payload for an Operation message.
func EncodeOperation(msg OperationMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding operation body: %w", err)
	}
	return append([]byte{byte(TypeOperation)}, body...), nil
}

// EncodeSyncDocument builds the envelope payload for a SyncDocument message.
func EncodeSyncDocument(msg SyncDocumentMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding sync-document body: %w", err)
	}
	return append([]byte{byte(TypeSyncDocument)}, body...), nil
}

// EncodePing builds the envelope payload for a Ping(seq) message.
func EncodePing(seq uint64) []byte {
	return encodeSeq(TypePing, seq)
}

// EncodePong builds the envelope payload for a Pong(seq) message.
func EncodePong(seq uint64) []byte {
	return encodeSeq(TypePong, seq)
}

func encodeSeq(t Type, seq uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(t)
	binary.BigEndian.PutUint64(buf[1:], seq)
	return buf
}

// Decoded is the result of decoding an envelope: exactly one of the
// typed fields is populated, selected by Type.
type Decoded struct {
	Type         Type
	Operation    OperationMessage
	SyncDocument SyncDocumentMessage
	Seq          uint64
}

// Decode parses a raw frame payload into its typed envelope contents.
func Decode(payload []byte) (Decoded, error) {
	if len(payload) == 0 {
		return Decoded{}, fmt.Errorf("empty payload: %w", ErrMalformedEnvelope)
	}
	t := Type(payload[0])
	body := payload[1:]

	switch t {
	case TypeOperation:
		var msg OperationMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return Decoded{}, fmt.Errorf("decoding operation body: %w: %v", ErrMalformedEnvelope, err)
		}
		return Decoded{Type: t, Operation: msg}, nil
	case TypeSyncDocument:
		var msg SyncDocumentMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return Decoded{}, fmt.Errorf("decoding sync-document body: %w: %v", ErrMalformedEnvelope, err)
		}
		return Decoded{Type: t, SyncDocument: msg}, nil
	case TypePing, TypePong:
		if len(body) != 8 {
			return Decoded{}, fmt.Errorf("seq body length %d: %w", len(body), ErrMalformedEnvelope)
		}
		return Decoded{Type: t, Seq: binary.BigEndian.Uint64(body)}, nil
	default:
		return Decoded{}, fmt.Errorf("type id %d: %w", t, ErrMalformedEnvelope)
	}
}
