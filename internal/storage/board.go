package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileBoard keeps the board document as a single text file.
type FileBoard struct {
	path string
}

// NewFileBoard returns a store for the document at path.
func NewFileBoard(path string) *FileBoard {
	return &FileBoard{path: path}
}

// Path returns the document location.
func (b *FileBoard) Path() string {
	return b.path
}

// Read returns the whole document.
func (b *FileBoard) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(b.path)
	if err != nil {
		return "", fmt.Errorf("read board: %w", err)
	}
	return string(data), nil
}

// Write replaces the document. The content lands in a temp file in the same
// directory first and is renamed over the old document, so readers see either
// the old or the new text. Concurrent writers race; the last rename wins.
func (b *FileBoard) Write(ctx context.Context, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create board dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp board: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp board: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp board: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp board: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace board: %w", err)
	}
	return nil
}
