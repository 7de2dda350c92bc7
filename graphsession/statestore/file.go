package statestore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-graph-session/internal/errors"
)

// FileRepo stores the session-state record as a single JSON file on disk.
type FileRepo struct {
	path string
}

var _ Repo = (*FileRepo)(nil)

// NewFileRepo creates a file-backed state repo at the given path
// (e.g. "state.json").
func NewFileRepo(path string) *FileRepo {
	return &FileRepo{path: path}
}

func (f *FileRepo) Exists() (bool, error) {
	_, err := os.Stat(f.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %q: %w", f.path, err)
}

func (f *FileRepo) Read() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, errors.ErrStateRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", f.path, err)
	}
	return data, nil
}

// Write replaces the record atomically: the data is written to a temporary
// file in the same directory and renamed over the target, so a reader sees
// either the old record or the new one, never a partial write.
func (f *FileRepo) Write(data []byte) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %q: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %q: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %q to %q: %w", tmpName, f.path, err)
	}
	return nil
}

func (f *FileRepo) Delete() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %q: %w", f.path, err)
	}
	return nil
}
