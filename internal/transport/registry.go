// Package transport drives the concurrent fan-out around a pipeline.Pipeline:
// a client registry, per-connection reader/writer workers, non-blocking
// broadcast with slow-consumer eviction, and a heartbeat monitor.
package transport

import (
	"net"
	"sync"
	"time"
)

// Entry is one connected client's registry record: its outbound queue,
// the raw connection (closed on eviction to unblock both workers), and
// its last-activity timestamp for heartbeat bookkeeping.
type Entry struct {
	ClientID string
	Conn     net.Conn
	Outbound chan []byte

	// done is closed exactly once, by Close, to wake a writer blocked on
	// an empty Outbound without requiring Outbound itself to be closed
	// (which would race against a concurrent broadcaster's send).
	done      chan struct{}
	closeOnce sync.Once

	mu           sync.Mutex
	lastActivity time.Time
}

func newEntry(clientID string, conn net.Conn, queueCapacity int) *Entry {
	return &Entry{
		ClientID:     clientID,
		Conn:         conn,
		Outbound:     make(chan []byte, queueCapacity),
		done:         make(chan struct{}),
		lastActivity: time.Now(),
	}
}

// Close closes the underlying connection and wakes any writer blocked
// waiting on this entry's outbound queue. Safe to call more than once
// and from more than one goroutine.
func (e *Entry) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
		_ = e.Conn.Close()
	})
}

// Touch records activity from this client, resetting its idle clock.
func (e *Entry) Touch() {
	e.mu.Lock()
	e.lastActivity = time.Now()
	e.mu.Unlock()
}

// IdleFor reports how long it has been since the last recorded activity.
func (e *Entry) IdleFor() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Since(e.lastActivity)
}

// TryEnqueue attempts a non-blocking send onto the entry's outbound queue.
// It reports false if the queue is full, the caller's cue to evict.
func (e *Entry) TryEnqueue(payload []byte) bool {
	select {
	case e.Outbound <- payload:
		return true
	default:
		return false
	}
}

// Registry is the mutex-guarded collection of connected clients, keyed by
// client_id. It is the innermost lock in the Document → OpLog → Registry
// ordering: nothing that holds the Document or OpLog lock may call into
// the registry, and the registry never calls back into the pipeline.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Entry
}

// NewRegistry returns an empty client registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Entry)}
}

// Len returns the number of currently registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Register adds a new entry for clientID, replacing any existing entry
// under the same id.
func (r *Registry) Register(clientID string, conn net.Conn, queueCapacity int) *Entry {
	entry := newEntry(clientID, conn, queueCapacity)
	r.mu.Lock()
	r.clients[clientID] = entry
	r.mu.Unlock()
	return entry
}

// Remove drops clientID from the registry. It is idempotent.
func (r *Registry) Remove(clientID string) {
	r.mu.Lock()
	delete(r.clients, clientID)
	r.mu.Unlock()
}

// Snapshot returns a copy of the currently registered entries, safe to
// range over without holding the registry lock — the pattern broadcast
// relies on to avoid holding any lock across connection I/O.
func (r *Registry) Snapshot() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.clients))
	for _, e := range r.clients {
		out = append(out, e)
	}
	return out
}
