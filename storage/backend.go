package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Backend persists encoded records. Keys passed to a backend are already
// sanitized.
type Backend interface {
	// Init prepares the namespace for a table. It must be safe to call twice.
	Init(ctx context.Context, table string) error

	// Load returns the stored document or ErrNotFound.
	Load(ctx context.Context, table, key string) ([]byte, error)

	// Save creates or replaces a document.
	Save(ctx context.Context, table, key string, data []byte) error

	// Remove deletes a document. Removing a missing document is not an error.
	Remove(ctx context.Context, table, key string) error

	// Keys lists every stored key in a table.
	Keys(ctx context.Context, table string) ([]string, error)
}

const recordExt = ".json"

// FileBackend stores one directory per table and one JSON file per record.
type FileBackend struct {
	root string
}

// NewFileBackend creates a backend rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{root: dir}
}

// Root returns the directory holding all tables.
func (b *FileBackend) Root() string {
	return b.root
}

func (b *FileBackend) tableDir(table string) string {
	return filepath.Join(b.root, SanitizeKey(table))
}

func (b *FileBackend) recordPath(table, key string) string {
	return filepath.Join(b.tableDir(table), key+recordExt)
}

// Init creates the table directory.
func (b *FileBackend) Init(ctx context.Context, table string) error {
	if err := os.MkdirAll(b.tableDir(table), 0o755); err != nil {
		return fmt.Errorf("failed to create table directory for %s: %w", table, err)
	}
	return nil
}

// Load reads a record file.
func (b *FileBackend) Load(ctx context.Context, table, key string) ([]byte, error) {
	data, err := os.ReadFile(b.recordPath(table, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s/%s: %w", table, key, err)
	}
	return data, nil
}

// Save writes a record file via a temporary file and rename so readers
// never observe a partial document.
func (b *FileBackend) Save(ctx context.Context, table, key string, data []byte) error {
	dir := b.tableDir(table)
	tmp, err := os.CreateTemp(dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s/%s: %w", table, key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s/%s: %w", table, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s/%s: %w", table, key, err)
	}
	if err := os.Rename(tmpName, b.recordPath(table, key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s/%s into place: %w", table, key, err)
	}
	return nil
}

// Remove deletes a record file.
func (b *FileBackend) Remove(ctx context.Context, table, key string) error {
	err := os.Remove(b.recordPath(table, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s/%s: %w", table, key, err)
	}
	return nil
}

// Keys lists record files in the table directory.
func (b *FileBackend) Keys(ctx context.Context, table string) ([]string, error) {
	entries, err := os.ReadDir(b.tableDir(table))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list table %s: %w", table, err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, recordExt))
	}
	return keys, nil
}
