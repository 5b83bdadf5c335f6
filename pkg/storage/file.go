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

// FileStorage keeps one text file per key inside a directory. Writes go
// through a temporary file followed by an atomic rename so readers never
// observe a torn payload.
type FileStorage struct {
	dir string
}

// NewFileStorage ensures dir exists and returns a backend rooted there.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create directory %q: %w", dir, err)
	}
	return &FileStorage{dir: dir}, nil
}

// GetItem reads the payload filed under key. A missing file reports ok=false
// without error.
func (s *FileStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return "", false, wrapRead(key, err)
	}
	if err := ctx.Err(); err != nil {
		return "", false, wrapRead(key, err)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, wrapRead(key, err)
	}
	return string(payload), true, nil
}

// SetItem writes payload under key atomically.
func (s *FileStorage) SetItem(ctx context.Context, key, payload string) error {
	path, err := s.path(key)
	if err != nil {
		return wrapWrite(key, err)
	}
	if err := ctx.Err(); err != nil {
		return wrapWrite(key, err)
	}
	tmp, err := os.CreateTemp(s.dir, ".appstate-*")
	if err != nil {
		return wrapWrite(key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return wrapWrite(key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return wrapWrite(key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return wrapWrite(key, err)
	}
	return nil
}

func (s *FileStorage) path(key string) (string, error) {
	if key == "" {
		return "", ErrKeyRequired
	}
	name := sanitizeKey(key)
	return filepath.Join(s.dir, name+".json"), nil
}

// sanitizeKey flattens path separators so keys cannot escape the directory.
func sanitizeKey(key string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", string(filepath.Separator), "_", "..", "_")
	return replacer.Replace(key)
}
