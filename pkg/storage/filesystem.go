package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrTooLarge is returned by SaveStream when the payload exceeds the limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// ErrInvalidPath is returned for names escaping the base directory.
var ErrInvalidPath = errors.New("invalid storage path")

// LocalStorage persists document uploads and exports on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: abs}, nil
}

// Save writes the given bytes to the provided relative path under the base dir.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare storage directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return filename, nil
}

// SaveStream copies at most limit bytes from r into filename and returns the
// number of bytes written. A non-positive limit disables the check. Partial
// files are removed on failure.
func (s *LocalStorage) SaveStream(filename string, r io.Reader, limit int64) (int64, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("prepare storage directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	written, err := io.Copy(file, src)
	closeErr := file.Close()
	switch {
	case err != nil:
		_ = os.Remove(path)
		return 0, fmt.Errorf("write stream: %w", err)
	case limit > 0 && written > limit:
		_ = os.Remove(path)
		return 0, ErrTooLarge
	case closeErr != nil:
		_ = os.Remove(path)
		return 0, fmt.Errorf("close file: %w", closeErr)
	}
	return written, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes files under dir older than ttl and returns the
// deleted names relative to the base directory.
func (s *LocalStorage) CleanupOlderThan(dir string, ttl time.Duration) ([]string, error) {
	root, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup %s: %w", dir, err)
	}
	return deleted, nil
}

// Path exposes the underlying absolute path.
func (s *LocalStorage) Path(filename string) string {
	path, err := s.resolve(filename)
	if err != nil {
		return ""
	}
	return path
}

func (s *LocalStorage) resolve(filename string) (string, error) {
	if filename == "" || filepath.IsAbs(filename) {
		return "", ErrInvalidPath
	}
	path := filepath.Join(s.baseDir, filepath.Clean(filename))
	if path != s.baseDir && !strings.HasPrefix(path, s.baseDir+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return path, nil
}
