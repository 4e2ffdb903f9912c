package seen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore keeps fingerprints in a JSON array on disk. Every Add rewrites
// the file through a temp-file rename so a crash mid-write cannot corrupt
// previously recorded fingerprints.
type FileStore struct {
	path string
	mu   sync.Mutex
	data map[string]struct{}
}

// NewFileStore loads the seen-set file if it exists. A missing file yields
// an empty store; a malformed file yields an empty store and an error so
// the caller can log the data loss.
func NewFileStore(path string) (*FileStore, error) {
	store := &FileStore{
		path: path,
		data: make(map[string]struct{}),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return store, fmt.Errorf("failed to read seen file: %w", err)
	}

	var fingerprints []string
	if unmarshalErr := json.Unmarshal(raw, &fingerprints); unmarshalErr != nil {
		return store, fmt.Errorf("failed to parse seen file: %w", unmarshalErr)
	}
	for _, fp := range fingerprints {
		store.data[fp] = struct{}{}
	}
	return store, nil
}

// Contains reports whether the fingerprint was already recorded.
func (s *FileStore) Contains(_ context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[fingerprint]
	return ok, nil
}

// Add records the fingerprint and persists the set.
func (s *FileStore) Add(_ context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[fingerprint]; ok {
		return nil
	}
	s.data[fingerprint] = struct{}{}
	return s.flushLocked()
}

// Name identifies the backing tier.
func (s *FileStore) Name() string { return "file" }

// Len returns the number of recorded fingerprints.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// flushLocked writes the set atomically. Callers must hold the mutex.
func (s *FileStore) flushLocked() error {
	fingerprints := make([]string, 0, len(s.data))
	for fp := range s.data {
		fingerprints = append(fingerprints, fp)
	}
	sort.Strings(fingerprints)

	raw, err := json.Marshal(fingerprints)
	if err != nil {
		return fmt.Errorf("failed to encode seen set: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".seen-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp seen file: %w", err)
	}
	tmpName := tmp.Name()

	if _, writeErr := tmp.Write(raw); writeErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write seen file: %w", writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close seen file: %w", closeErr)
	}
	if renameErr := os.Rename(tmpName, s.path); renameErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace seen file: %w", renameErr)
	}
	return nil
}
