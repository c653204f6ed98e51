package documents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDocs(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("%PDF-1.4"), 0o600))
	}
	return dir
}

func TestNewFSStore(t *testing.T) {
	_, err := NewFSStore("  ", "")
	assert.Error(t, err)

	s, err := NewFSStore("docs", "pdf")
	require.NoError(t, err)
	assert.Equal(t, ".pdf", s.ext)
	assert.Equal(t, "docs", s.Root())
}

func TestLookup(t *testing.T) {
	dir := writeDocs(t, "arcanum_5.pdf")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "default.pdf"), 0o700))
	s, err := NewFSStore(dir, "")
	require.NoError(t, err)
	ctx := context.Background()

	doc, err := s.Lookup(ctx, "arcanum_5")
	require.NoError(t, err)
	assert.Equal(t, "arcanum_5", doc.ID)
	assert.Equal(t, "arcanum_5.pdf", doc.FileName)
	assert.Equal(t, filepath.Join(dir, "arcanum_5.pdf"), doc.Path)
	assert.EqualValues(t, 8, doc.Size)

	_, err = s.Lookup(ctx, "arcanum_6")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Lookup(ctx, "default")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, bad := range []string{"", "../secret", "a/b", `a\b`} {
		_, err = s.Lookup(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidID, bad)
	}
}

func TestResolveFallbackOrder(t *testing.T) {
	ctx := context.Background()
	candidates := []string{"m_arcanum_5", "arcanum_5", "default"}

	s, _ := NewFSStore(writeDocs(t, "m_arcanum_5.pdf", "arcanum_5.pdf", "default.pdf"), "")
	doc, err := Resolve(ctx, s, candidates)
	require.NoError(t, err)
	assert.Equal(t, "m_arcanum_5", doc.ID)

	s, _ = NewFSStore(writeDocs(t, "f_arcanum_5.pdf", "arcanum_5.pdf", "default.pdf"), "")
	doc, err = Resolve(ctx, s, candidates)
	require.NoError(t, err)
	assert.Equal(t, "arcanum_5", doc.ID)

	s, _ = NewFSStore(writeDocs(t, "default.pdf"), "")
	doc, err = Resolve(ctx, s, candidates)
	require.NoError(t, err)
	assert.Equal(t, "default", doc.ID)

	s, _ = NewFSStore(writeDocs(t), "")
	_, err = Resolve(ctx, s, candidates)
	assert.ErrorIs(t, err, ErrNotFound)
}

type brokenStore struct{}

var errDisk = errors.New("disk on fire")

func (brokenStore) Lookup(context.Context, string) (Document, error) { return Document{}, errDisk }

func TestResolveStopsOnHardError(t *testing.T) {
	_, err := Resolve(context.Background(), brokenStore{}, []string{"a", "b"})
	assert.ErrorIs(t, err, errDisk)
}

func TestFileIDs(t *testing.T) {
	var c FileIDs
	_, ok := c.Get("/x.pdf")
	assert.False(t, ok)

	c.Set("/x.pdf", "")
	_, ok = c.Get("/x.pdf")
	assert.False(t, ok)

	c.Set("/x.pdf", "FILE123")
	id, ok := c.Get("/x.pdf")
	require.True(t, ok)
	assert.Equal(t, "FILE123", id)

	c.Forget("/x.pdf")
	_, ok = c.Get("/x.pdf")
	assert.False(t, ok)
}
