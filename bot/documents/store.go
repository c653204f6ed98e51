// Package documents resolves arcanum document identifiers to files on disk.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m3rciful/arcanumbot/core/logger"
)

// DefaultExtension is appended to identifiers when none is configured.
const DefaultExtension = ".pdf"

var (
	// ErrNotFound is returned when no document exists for an identifier.
	ErrNotFound = errors.New("documents: not found")
	// ErrInvalidID rejects identifiers that could escape the store root.
	ErrInvalidID = errors.New("documents: invalid identifier")
)

// Document is a resolved, existing file.
type Document struct {
	ID       string
	Path     string
	FileName string
	Size     int64
}

// Store looks documents up by identifier.
type Store interface {
	Lookup(ctx context.Context, id string) (Document, error)
}

// FSStore serves documents from a directory: identifier "x" maps to <root>/x<ext>.
type FSStore struct {
	root string
	ext  string
}

// NewFSStore returns a store rooted at root. An empty ext selects DefaultExtension.
func NewFSStore(root, ext string) (*FSStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("documents: empty root")
	}
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &FSStore{root: root, ext: ext}, nil
}

// Root returns the configured directory.
func (s *FSStore) Root() string {
	return s.root
}

// Lookup reports whether the document file exists and is a regular file.
func (s *FSStore) Lookup(_ context.Context, id string) (Document, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return Document{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	name := id + s.ext
	path := filepath.Join(s.root, name)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("documents: stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return Document{}, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, id)
	}
	return Document{ID: id, Path: path, FileName: name, Size: info.Size()}, nil
}

// Resolve returns the first candidate present in store.
// Lookup failures other than ErrNotFound abort the chain.
func Resolve(ctx context.Context, store Store, candidates []string) (Document, error) {
	for i, id := range candidates {
		doc, err := store.Lookup(ctx, id)
		if err == nil {
			logger.Debug(ctx, "docs", "docs.resolve",
				slog.String("status", "ok"),
				slog.String("doc", id),
				slog.Bool("fallback", i > 0),
			)
			return doc, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Document{}, err
		}
	}
	logger.Warn(ctx, "docs", "docs.resolve",
		slog.String("status", "fail"),
		slog.String("candidates", strings.Join(candidates, ",")),
	)
	return Document{}, ErrNotFound
}

// FileIDs remembers Telegram file identifiers of uploaded documents so repeated
// sends reuse the stored file instead of uploading it again.
type FileIDs struct {
	mu  sync.RWMutex
	ids map[string]string
}

// Get returns the cached file id for a document path.
func (c *FileIDs) Get(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[path]
	return id, ok
}

// Set caches id for path; empty ids are ignored.
func (c *FileIDs) Set(path, id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ids == nil {
		c.ids = make(map[string]string)
	}
	c.ids[path] = id
}

// Forget drops a cached id, e.g. after Telegram rejected it.
func (c *FileIDs) Forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, path)
}
