package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// FileStore keeps one file per key underneath a root directory. Writes go to
// a temporary file first and are renamed into place, so a record is either
// the previous or the new version after a crash, never half-written.
type FileStore struct {
	mu   sync.Mutex
	fs   afero.Fs
	root string
}

func NewFileStore(fs afero.Fs, root string) (*FileStore, error) {
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("unable to prepare storage root: %v", err)
	}
	return &FileStore{fs: fs, root: root}, nil
}

func (s *FileStore) path(key string) (string, error) {
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || strings.HasPrefix(cleaned, "/") {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return filepath.Join(s.root, cleaned), nil
}

func (s *FileStore) Put(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("unable to prepare record directory: %v", err)
	}

	staging := target + ".tmp"
	if err := afero.WriteFile(s.fs, staging, data, 0o644); err != nil {
		return fmt.Errorf("unable to stage record %s: %v", key, err)
	}
	if err := s.fs.Rename(staging, target); err != nil {
		return fmt.Errorf("unable to commit record %s: %v", key, err)
	}
	return nil
}

func (s *FileStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("unable to read record %s: %v", key, err)
	}
	return data, nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unable to delete record %s: %v", key, err)
	}
	return nil
}

func (s *FileStore) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	err := afero.Walk(s.fs, s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasSuffix(key, ".tmp") {
			return nil
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list records: %v", err)
	}
	sort.Strings(keys)
	return keys, nil
}
