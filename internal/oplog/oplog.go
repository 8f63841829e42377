// Package oplog keeps the append-only history of operations applied to a
// document, indexed by the server version each entry was applied to. It exists
// so a client's operation, authored against some version v, can be
// rebased against every operation applied since v before it is itself
// applied.
package oplog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/otcollab/otsync/internal/transform"
)

// ErrRangeNotAvailable is returned when GetRange is asked for versions the
// log never held, either because they predate the log (already compacted,
// though this implementation never compacts) or because they are beyond
// the last entry appended.
var ErrRangeNotAvailable = errors.New("oplog: requested range not available")

// Entry is one logged, already-applied operation stamped with the server
// version the document held immediately before it was applied.
type Entry struct {
	ServerVersion uint64
	Op            transform.Op
}

// Log is a mutex-guarded append-only slice of Entry, ordered by
// ServerVersion ascending starting at 0.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// Append records op as having been applied when the document was at
// serverVersion. Callers must append in strictly increasing
// serverVersion order; this mirrors the pipeline's single-writer
// invariant (internal/pipeline holds the relevant locks) rather than
// re-deriving it here.
func (l *Log) Append(serverVersion uint64, op transform.Op) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{ServerVersion: serverVersion, Op: op})
}

// Len returns the number of entries currently held.
func (l *Log) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.entries))
}

// GetRange returns every entry with ServerVersion in [from, to), the set
// of operations an op authored at version `from` must be rebased against
// to catch up to the current version `to`. An empty range (from == to)
// returns no entries and no error.
func (l *Log) GetRange(from, to uint64) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if from == to {
		return nil, nil
	}
	if from > to {
		return nil, fmt.Errorf("range [%d, %d): %w", from, to, ErrRangeNotAvailable)
	}
	if to > uint64(len(l.entries)) {
		return nil, fmt.Errorf("range [%d, %d) exceeds log length %d: %w", from, to, len(l.entries), ErrRangeNotAvailable)
	}

	out := make([]Entry, to-from)
	copy(out, l.entries[from:to])
	return out, nil
}
