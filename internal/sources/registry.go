// Package sources manages the mutable list of source URLs scanned by the
// legacy (non-plugin) scanner. The list is persisted to a YAML file and
// every mutation is written through atomically so concurrent command
// invocations cannot corrupt it.
package sources

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/milesbot/milesbot/internal/logger"
)

// maxURLLength rejects obviously bogus registry entries.
const maxURLLength = 200

// ErrRegistryUnavailable indicates the backing file could not be written.
var ErrRegistryUnavailable = errors.New("source registry unavailable")

// Registry is the ordered, persistent collection of source URLs.
type Registry struct {
	path   string
	logger logger.Interface
	mu     sync.Mutex
	urls   []string
}

// NewRegistry loads the registry from the YAML file at path. A missing
// file yields an empty registry; malformed entries are skipped with a log.
func NewRegistry(path string, log logger.Interface) (*Registry, error) {
	r := &Registry{
		path:   path,
		logger: log,
	}

	urls, err := loadFile(path, log)
	if err != nil {
		return nil, err
	}
	r.urls = urls
	return r, nil
}

// List returns the registered URLs in persisted order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	urls := make([]string, len(r.urls))
	copy(urls, r.urls)
	return urls
}

// Len returns the number of registered URLs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.urls)
}

// Add registers a URL and persists the registry. It returns false when the
// URL is malformed or already present.
func (r *Registry) Add(rawURL string) bool {
	trimmed := strings.TrimSpace(rawURL)
	if !validURL(trimmed) {
		r.logger.Warn("Rejected invalid source URL", "url", rawURL)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.urls {
		if existing == trimmed {
			return false
		}
	}

	r.urls = append(r.urls, trimmed)
	if err := r.flushLocked(); err != nil {
		// Roll back so memory and disk stay consistent.
		r.urls = r.urls[:len(r.urls)-1]
		r.logger.Error("Failed to persist source registry", "error", err)
		return false
	}
	return true
}

// Remove deletes a source identified either by 1-based position or by the
// exact URL. It returns the removed URL, or false if nothing matched.
func (r *Registry) Remove(identifier string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := -1
	if n, err := strconv.Atoi(strings.TrimSpace(identifier)); err == nil {
		if n < 1 || n > len(r.urls) {
			return "", false
		}
		index = n - 1
	} else {
		for i, existing := range r.urls {
			if existing == strings.TrimSpace(identifier) {
				index = i
				break
			}
		}
		if index == -1 {
			return "", false
		}
	}

	removed := r.urls[index]
	urls := make([]string, 0, len(r.urls)-1)
	urls = append(urls, r.urls[:index]...)
	urls = append(urls, r.urls[index+1:]...)

	previous := r.urls
	r.urls = urls
	if err := r.flushLocked(); err != nil {
		r.urls = previous
		r.logger.Error("Failed to persist source registry", "error", err)
		return "", false
	}
	return removed, true
}

// flushLocked writes the registry atomically. Callers must hold the mutex.
func (r *Registry) flushLocked() error {
	raw, err := yaml.Marshal(r.urls)
	if err != nil {
		return fmt.Errorf("%w: failed to encode sources: %w", ErrRegistryUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".sources-*.yaml")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}
	tmpName := tmp.Name()

	if _, writeErr := tmp.Write(raw); writeErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrRegistryUnavailable, writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrRegistryUnavailable, closeErr)
	}
	if renameErr := os.Rename(tmpName, r.path); renameErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrRegistryUnavailable, renameErr)
	}
	return nil
}

// validURL accepts absolute http(s) URLs of sane length.
func validURL(raw string) bool {
	if raw == "" || len(raw) > maxURLLength {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
