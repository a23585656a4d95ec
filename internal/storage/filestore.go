// Package storage persists uploaded bytes and extraction results on the
// local filesystem and records uploads in a SQLite registry.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned when a file or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPath is returned when a relative path resolves outside
	// the store root.
	ErrInvalidPath = errors.New("invalid path")
)

// FileStore reads and writes files below a root directory. Paths passed to
// its methods are relative to that root.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FileStore{root: abs}, nil
}

func (s *FileStore) Root() string { return s.root }

// fullPath resolves rel under the root and rejects escapes.
func (s *FileStore) fullPath(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	full := filepath.Join(s.root, rel)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return full, nil
}

// Save writes data to rel, creating parent directories. The file is
// written to a temporary name first and renamed into place.
func (s *FileStore) Save(rel string, data []byte) error {
	full, err := s.fullPath(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", rel, err)
	}
	return nil
}

// Open returns a reader for rel. The caller closes it.
func (s *FileStore) Open(rel string) (io.ReadCloser, error) {
	full, err := s.fullPath(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", rel, err)
	}
	return f, nil
}

// Read returns the whole content of rel.
func (s *FileStore) Read(rel string) ([]byte, error) {
	rc, err := s.Open(rel)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

// Delete removes rel. A missing file is not an error.
func (s *FileStore) Delete(rel string) error {
	full, err := s.fullPath(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", rel, err)
	}
	return nil
}

// Exists reports whether rel is a regular file.
func (s *FileStore) Exists(rel string) bool {
	full, err := s.fullPath(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// UploadPath is where an upload's bytes are stored.
func UploadPath(fileID, fileName string) string {
	return filepath.Join("uploads", fileID+strings.ToLower(filepath.Ext(fileName)))
}

// ExtractionPath is where an upload's extraction result is stored.
func ExtractionPath(fileID string) string {
	return filepath.Join("extractions", fileID+".json")
}
