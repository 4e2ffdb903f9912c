// Package seen provides the persistent set of promotion fingerprints that
// were already alerted on. A shared Redis store is preferred; a local JSON
// file is the fallback tier when Redis is not configured or unreachable.
package seen

import (
	"context"
	"time"

	"github.com/milesbot/milesbot/internal/config"
	"github.com/milesbot/milesbot/internal/logger"
)

// probeTimeout bounds the startup connectivity probe against Redis.
const probeTimeout = 3 * time.Second

// Store is the deduplication set contract.
type Store interface {
	// Contains reports whether the fingerprint was already recorded.
	Contains(ctx context.Context, fingerprint string) (bool, error)
	// Add records a fingerprint. Adding an existing fingerprint is a no-op.
	Add(ctx context.Context, fingerprint string) error
	// Name identifies the backing tier for logs and health reporting.
	Name() string
}

// Open selects the backing tier. The decision is made once per process:
// if a Redis URL is configured and answers a ping within probeTimeout the
// shared store wins, otherwise the file store is used. An unreachable Redis
// degrades with a warning; it never aborts startup.
func Open(ctx context.Context, cfg config.Storage, log logger.Interface) Store {
	if cfg.RedisURL != "" {
		store, err := NewRedisStore(ctx, cfg.RedisURL)
		if err == nil {
			log.Info("Seen-set store ready", "tier", store.Name())
			return store
		}
		log.Warn("Redis unreachable, falling back to file seen-set",
			"redis_url", cfg.RedisURL,
			"seen_file", cfg.SeenFile,
			"error", err)
	}

	store, err := NewFileStore(cfg.SeenFile)
	if err != nil {
		// A corrupt or unreadable file still yields a working store that
		// starts empty; duplicates are preferable to a crash.
		log.Warn("Failed to load seen-set file, starting empty",
			"seen_file", cfg.SeenFile,
			"error", err)
	}
	log.Info("Seen-set store ready", "tier", store.Name())
	return store
}
