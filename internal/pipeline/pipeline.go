// Package pipeline sequences an incoming client operation through version
// checking, OT rebasing against the operation log, application to the
// document, and logging — the single path every operation must take
// before it is eligible for broadcast.
package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/otcollab/otsync/internal/document"
	"github.com/otcollab/otsync/internal/oplog"
	"github.com/otcollab/otsync/internal/transform"
)

var (
	// ErrFutureVersion is returned when an operation claims a client
	// version ahead of the document's current version — the client saw a
	// state the server never produced.
	ErrFutureVersion = errors.New("pipeline: operation references a future version")
	// ErrInvalidData is returned when the operation fails structural
	// validation: an empty or mismatched doc_id, or, during application,
	// an out-of-bounds index or invalid range.
	ErrInvalidData = errors.New("pipeline: operation rejected")
)

// Result describes what happened to an applied operation, the information
// the caller needs to log and broadcast.
type Result struct {
	// Applied is false when the rebase collapsed the operation to a Noop;
	// in that case no version bump, log entry, or broadcast should occur.
	Applied bool
	// Op is the rebased operation actually applied (or the collapsed
	// Noop, when Applied is false).
	Op transform.Op
	// ServerVersion is the document version immediately before apply —
	// the version this entry is logged under.
	ServerVersion uint64
	// Content and Version are the post-apply snapshot, ready to broadcast.
	Content string
	Version uint64
}

// Pipeline ties a Document and its OpLog together and implements the
// apply sequence: version check, rebase, apply, log.
type Pipeline struct {
	// mu serializes Apply end to end so the version-check, rebase,
	// document mutation, and log append are observed by every other
	// Apply call as a single atomic step — no invocation may see, or
	// race past, a version the document held only momentarily.
	mu sync.Mutex

	Doc *document.Document
	Log *oplog.Log
}

// New returns a pipeline over a freshly created document and its log.
func New(docID string) *Pipeline {
	return &Pipeline{
		Doc: document.New(docID),
		Log: oplog.New(),
	}
}

// Apply runs op through the full pipeline. op.ClientVersion is the
// document version the client authored op against. docID is the
// client-declared document the operation targets; it must be non-empty
// and match Doc.ID, mirroring the doc_id structural check the wire
// layer otherwise has no home for.
//
// Lock ordering: Apply holds its own lock for the entire version-check →
// rebase → apply → log sequence, so the sequence is atomic with respect
// to every other Apply call — no invocation observes a version another
// invocation has only partially committed. Within that section it takes
// the Document lock, then the OpLog lock, matching the documented
// Document → OpLog → Registry ordering; it never touches any
// transport-level registry lock.
//
// A panic inside the sequence is recovered and returned as an error, and
// the pipeline lock is released; the caller logs it like any other
// rejection.
func (p *Pipeline) Apply(docID string, op transform.Op) (res Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("pipeline: recovered from panic during apply: %v", r)
		}
	}()

	if docID == "" {
		return Result{}, fmt.Errorf("doc_id is empty: %w", ErrInvalidData)
	}
	if docID != p.Doc.ID {
		return Result{}, fmt.Errorf("doc_id %q does not match document %q: %w", docID, p.Doc.ID, ErrInvalidData)
	}

	content, currentVersion := p.Doc.Snapshot()

	if op.ClientVersion > currentVersion {
		return Result{}, fmt.Errorf("client version %d > document version %d: %w", op.ClientVersion, currentVersion, ErrFutureVersion)
	}

	rebased := op
	if op.ClientVersion < currentVersion {
		entries, err := p.Log.GetRange(op.ClientVersion, currentVersion)
		if err != nil {
			return Result{}, fmt.Errorf("rebasing operation: %w", err)
		}
		for _, entry := range entries {
			rebased = transform.Transform(rebased, entry.Op)
		}
	}

	if rebased.Kind == transform.KindNoop {
		return Result{
			Applied:       false,
			Op:            rebased,
			ServerVersion: currentVersion,
			Content:       content,
			Version:       currentVersion,
		}, nil
	}

	serverVersion := currentVersion
	if err := p.Doc.Apply(rebased); err != nil {
		return Result{}, fmt.Errorf("applying operation: %w: %w", ErrInvalidData, err)
	}

	p.Log.Append(serverVersion, rebased)

	newContent, newVersion := p.Doc.Snapshot()
	return Result{
		Applied:       true,
		Op:            rebased,
		ServerVersion: serverVersion,
		Content:       newContent,
		Version:       newVersion,
	}, nil
}
