package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileStore persists state as a YAML map in a single file. Every Save
// rewrites the file through a temporary sibling and a rename.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]float64
	logger *zap.Logger
}

// OpenFileStore loads path if it exists. A missing file is an empty store.
func OpenFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &FileStore{
		path:   path,
		values: make(map[string]float64),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("state file not found, starting empty", zap.String("path", path))

			return s, nil
		}

		return nil, fmt.Errorf("error reading state file: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("error parsing state file %s: %w", path, err)
	}

	if s.values == nil {
		s.values = make(map[string]float64)
	}

	logger.Debug("loaded state file", zap.String("path", path), zap.Int("keys", len(s.values)))

	return s, nil
}

// Path returns the state file.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements table.StateStore.
func (s *FileStore) Load(key string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]

	return v, ok, nil
}

// Save stores v and rewrites the file. On a failed write the previous
// value is restored.
func (s *FileStore) Save(key string, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.values[key]
	s.values[key] = v

	if err := s.flush(); err != nil {
		if existed {
			s.values[key] = old
		} else {
			delete(s.values, key)
		}

		return err
	}

	return nil
}

// Keys returns the stored keys, sorted.
func (s *FileStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys, nil
}

// Close is a no-op; every Save has already reached the file.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) flush() error {
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("error encoding state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("error writing state file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("error writing state file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("error writing state file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("error writing state file: %w", err)
	}

	return nil
}
