package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/otcollab/otsync/internal/metrics"
	"github.com/otcollab/otsync/internal/pipeline"
	"github.com/otcollab/otsync/internal/transform"
	"github.com/otcollab/otsync/internal/wire"
	"github.com/otcollab/otsync/pkg/otlog"
)

func testServer(t *testing.T, cfg Config) (*Server, net.Listener) {
	t.Helper()
	s := NewServer(pipeline.New("doc-1"), otlog.Nop(), metrics.Get(), cfg)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Serve(ctx, ln)
	t.Cleanup(func() {
		cancel()
		_ = ln.Close()
	})
	return s, ln
}

func dial(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readDecoded(t *testing.T, conn net.Conn) wire.Decoded {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	payload, err := wire.ReadFrame(conn)
	require.NoError(t, err)
	decoded, err := wire.Decode(payload)
	require.NoError(t, err)
	return decoded
}

func defaultConfig() Config {
	return Config{
		MaxClients:          100,
		ClientTimeoutMS:      30000,
		HeartbeatIntervalMS: 10000,
		OutboundQueue:       32,
		MaxPayloadBytes:     1 << 20,
	}
}

func TestNewConnectionReceivesInitialSnapshot(t *testing.T) {
	_, ln := testServer(t, defaultConfig())
	conn := dial(t, ln)

	decoded := readDecoded(t, conn)
	require.Equal(t, wire.TypeSyncDocument, decoded.Type)
	require.Equal(t, "doc-1", decoded.SyncDocument.DocID)
	require.Equal(t, uint64(0), decoded.SyncDocument.Version)
}

func TestOperationBroadcastsToOtherClientsOnly(t *testing.T) {
	_, ln := testServer(t, defaultConfig())
	alice := dial(t, ln)
	bob := dial(t, ln)

	_ = readDecoded(t, alice) // alice's own initial snapshot
	_ = readDecoded(t, bob)   // bob's own initial snapshot

	msg := wire.OpToMessage(insertOp(0, "hello"))
	msg.DocID = "doc-1"
	payload, err := wire.EncodeOperation(msg)
	require.NoError(t, err)
	require.NoError(t, wire.WriteFrame(alice, payload))

	// bob should observe the resulting document snapshot.
	decoded := readDecoded(t, bob)
	require.Equal(t, wire.TypeSyncDocument, decoded.Type)
	require.Equal(t, "hello", decoded.SyncDocument.Content)
	require.Equal(t, uint64(1), decoded.SyncDocument.Version)

	// alice (the origin) should not receive her own broadcast; confirm by
	// checking nothing arrives within a short window.
	_ = alice.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err = wire.ReadFrame(alice)
	require.Error(t, err)
}

func TestQueueOverflowEvictsSlowConsumer(t *testing.T) {
	cfg := defaultConfig()
	cfg.OutboundQueue = 2
	s, ln := testServer(t, cfg)

	slow := dial(t, ln)
	_ = readDecoded(t, slow) // drain initial snapshot

	sender := dial(t, ln)
	_ = readDecoded(t, sender)

	for i := 0; i < 10; i++ {
		msg := wire.OpToMessage(insertOp(0, "x"))
		msg.DocID = "doc-1"
		payload, err := wire.EncodeOperation(msg)
		require.NoError(t, err)
		require.NoError(t, wire.WriteFrame(sender, payload))
	}

	require.Eventually(t, func() bool {
		return s.registry.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func insertOp(index uint64, text string) transform.Op {
	return transform.Insert(index, text, "placeholder-client-id", 0)
}
