package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otcollab/otsync/internal/transform"
)

func TestApplyInsert(t *testing.T) {
	d := New("doc-1")
	require.NoError(t, d.Apply(transform.Insert(0, "hello", "alice", 1)))
	content, version := d.Snapshot()
	assert.Equal(t, "hello", content)
	assert.Equal(t, uint64(1), version)

	require.NoError(t, d.Apply(transform.Insert(5, " world", "alice", 2)))
	content, version = d.Snapshot()
	assert.Equal(t, "hello world", content)
	assert.Equal(t, uint64(2), version)
}

func TestApplyInsertOutOfBounds(t *testing.T) {
	d := New("doc-1")
	err := d.Apply(transform.Insert(1, "x", "alice", 1))
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestApplyDelete(t *testing.T) {
	d := New("doc-1")
	require.NoError(t, d.Apply(transform.Insert(0, "hello world", "alice", 1)))
	require.NoError(t, d.Apply(transform.Delete(5, 11, "alice", 2)))
	content, _ := d.Snapshot()
	assert.Equal(t, "hello", content)
}

func TestApplyDeleteInvalidRange(t *testing.T) {
	d := New("doc-1")
	require.NoError(t, d.Apply(transform.Insert(0, "hello", "alice", 1)))
	err := d.Apply(transform.Delete(3, 1, "alice", 2))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestApplyDeleteOutOfBounds(t *testing.T) {
	d := New("doc-1")
	require.NoError(t, d.Apply(transform.Insert(0, "hi", "alice", 1)))
	err := d.Apply(transform.Delete(0, 10, "alice", 2))
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestApplyReplace(t *testing.T) {
	d := New("doc-1")
	require.NoError(t, d.Apply(transform.Insert(0, "hello world", "alice", 1)))
	require.NoError(t, d.Apply(transform.Replace(6, 11, "there", "alice", 2)))
	content, _ := d.Snapshot()
	assert.Equal(t, "hello there", content)
}

func TestApplyNoopDoesNotBumpVersion(t *testing.T) {
	d := New("doc-1")
	require.NoError(t, d.Apply(transform.Insert(0, "hi", "alice", 1)))
	_, versionBefore := d.Snapshot()
	require.NoError(t, d.Apply(transform.Noop("alice", 2)))
	_, versionAfter := d.Snapshot()
	assert.Equal(t, versionBefore, versionAfter)
}
