// Package plugin defines the scraper plugin contract and the process-wide
// registry through which built-in plugins announce themselves. Discovery
// follows the database/sql driver pattern: a plugin package registers an
// instance from an init function and is pulled in with a blank import.
package plugin

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/milesbot/milesbot/internal/logger"
	"github.com/milesbot/milesbot/internal/promo"
)

// Plugin is the contract every scraper module satisfies.
type Plugin interface {
	// Name is the unique, stable plugin identifier (kebab-case).
	Name() string
	// Schedule is a five-field cron expression or a named alias
	// ("hourly", "daily", optionally @-prefixed).
	Schedule() string
	// Categories are arbitrary labels, e.g. ["bonus", "livelo"].
	Categories() []string
	// Scrape returns all promotions discovered since the given time.
	// It must be idempotent: re-running with the same since value has no
	// side effects beyond network I/O.
	Scrape(ctx context.Context, since time.Time) ([]promo.Promo, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Plugin)
)

// Register makes a plugin available for discovery. It panics if the name
// is empty or already taken, mirroring database/sql.Register: a duplicate
// registration is a programming error, not a runtime condition.
func Register(p Plugin) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if p == nil {
		panic("plugin: Register plugin is nil")
	}
	name := p.Name()
	if name == "" {
		panic("plugin: Register plugin has empty name")
	}
	if _, dup := registry[name]; dup {
		panic("plugin: Register called twice for plugin " + name)
	}
	registry[name] = p
}

// unregisterAll clears the registry. Only used by tests.
func unregisterAll() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Plugin)
}

// AllowList represents the PLUGINS_ENABLED setting: unset enables every
// plugin, set-but-empty enables none, otherwise only named plugins run.
type AllowList struct {
	set   bool
	names map[string]struct{}
}

// NewAllowList parses the raw comma-separated allow-list.
func NewAllowList(raw string, isSet bool) AllowList {
	al := AllowList{set: isSet}
	if !isSet {
		return al
	}
	al.names = make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			al.names[name] = struct{}{}
		}
	}
	return al
}

// Allows reports whether the named plugin is enabled.
func (al AllowList) Allows(name string) bool {
	if !al.set {
		return true
	}
	_, ok := al.names[name]
	return ok
}

// Load returns the enabled plugins, sorted by name for deterministic
// scheduling order. Plugins with invalid schedules are rejected here with
// a log so malformed cron expressions fail at load time, not at first
// missed fire; one bad plugin never blocks the rest.
func Load(allow AllowList, log logger.Interface) []Plugin {
	registryMu.RLock()
	defer registryMu.RUnlock()

	plugins := make([]Plugin, 0, len(registry))
	for name, p := range registry {
		if !allow.Allows(name) {
			log.Debug("Plugin disabled by allow-list", "plugin", name)
			continue
		}
		if err := ValidateSchedule(p.Schedule()); err != nil {
			log.Error("Rejecting plugin with invalid schedule",
				"plugin", name,
				"schedule", p.Schedule(),
				"error", err)
			continue
		}
		plugins = append(plugins, p)
		log.Info("Loaded plugin",
			"plugin", name,
			"schedule", p.Schedule(),
			"categories", p.Categories())
	}

	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Name() < plugins[j].Name()
	})
	return plugins
}

// SafeScrape invokes a plugin's Scrape and converts panics into errors so
// a misbehaving plugin cannot take down the scheduler.
func SafeScrape(ctx context.Context, p Plugin, since time.Time) (promos []promo.Promo, err error) {
	defer func() {
		if r := recover(); r != nil {
			promos = nil
			err = fmt.Errorf("plugin %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Scrape(ctx, since)
}
