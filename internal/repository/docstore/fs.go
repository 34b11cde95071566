// Package docstore holds uploaded source documents by filename on the local
// filesystem. A document is uniquely identified by its filename; the store is
// the authority on which filenames the knowledge base already knows.
package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FS is a directory-backed document store.
type FS struct {
	dir string
}

// NewFS creates the store, making the directory if needed.
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create document dir %s: %w", dir, err)
	}
	return &FS{dir: dir}, nil
}

// List returns the stored document filenames in sorted order.
func (s *FS) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether a document with this filename is already stored.
func (s *FS) Exists(name string) (bool, error) {
	path, err := s.safePath(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
	return true, nil
}

// Store writes a document's bytes under its filename.
func (s *FS) Store(name string, data []byte) error {
	path, err := s.safePath(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}

// Remove deletes a single stored document. Used to roll back a file whose
// processing failed, so a half-ingested name is not reported as known.
func (s *FS) Remove(name string) error {
	path, err := s.safePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// RemoveAll wipes every stored document. Part of the destructive clear
// operation.
func (s *FS) RemoveAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

// safePath rejects names that would escape the store directory.
func (s *FS) safePath(name string) (string, error) {
	base := filepath.Base(name)
	if base != name || name == "" || name == "." || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	return filepath.Join(s.dir, base), nil
}
