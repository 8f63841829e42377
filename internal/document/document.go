// Package document holds the authoritative text buffer for a single
// collaborative session and the version counter every operation is
// sequenced against.
package document

import (
	"errors"
	"fmt"
	"sync"

	"github.com/otcollab/otsync/internal/transform"
)

var (
	// ErrOutOfBounds is returned when an Insert index or a Delete/Replace
	// range endpoint falls outside the current content length.
	ErrOutOfBounds = errors.New("document: index out of bounds")
	// ErrInvalidRange is returned when a Delete/Replace range has start > end.
	ErrInvalidRange = errors.New("document: invalid range")
)

// Document is the mutable text buffer plus its version number. Version
// starts at 0 (no operations applied yet) and increments by exactly one
// per successfully applied operation.
type Document struct {
	mu sync.Mutex

	ID      string
	Content string
	Version uint64
}

// New returns an empty document seeded with the given identifier.
func New(id string) *Document {
	return &Document{ID: id}
}

// Snapshot returns the current content and version under the document's
// lock, suitable for sending as a SyncDocument message to a newly
// connected or resynced client.
func (d *Document) Snapshot() (content string, version uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Content, d.Version
}

// Apply validates op against the current content length and mutates the
// buffer in place, incrementing Version. A Noop is accepted without
// changing content or Version. Callers must have already
// rebased op against any operations it missed; Apply only performs
// structural validation, never OT rebasing.
//
// Apply takes the document's own lock; callers holding other locks must
// respect the Document → OpLog → Registry ordering documented in
// internal/pipeline.
func (d *Document) Apply(op transform.Op) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch op.Kind {
	case transform.KindNoop:
		return nil
	case transform.KindInsert:
		if op.Index > uint64(len(d.Content)) {
			return fmt.Errorf("insert at %d in document of length %d: %w", op.Index, len(d.Content), ErrOutOfBounds)
		}
		d.Content = d.Content[:op.Index] + op.Text + d.Content[op.Index:]
	case transform.KindDelete:
		if err := d.validateRange(op.Start, op.End); err != nil {
			return err
		}
		d.Content = d.Content[:op.Start] + d.Content[op.End:]
	case transform.KindReplace:
		if err := d.validateRange(op.Start, op.End); err != nil {
			return err
		}
		d.Content = d.Content[:op.Start] + op.Text + d.Content[op.End:]
	default:
		return fmt.Errorf("document: unknown operation kind %v", op.Kind)
	}

	d.Version++
	return nil
}

func (d *Document) validateRange(start, end uint64) error {
	if start > end {
		return fmt.Errorf("range [%d, %d): %w", start, end, ErrInvalidRange)
	}
	if end > uint64(len(d.Content)) {
		return fmt.Errorf("range [%d, %d) in document of length %d: %w", start, end, len(d.Content), ErrOutOfBounds)
	}
	return nil
}
