// Package scheduler runs scraper plugins on their cron schedules and
// exposes a manual full-scan trigger. A run mutex serializes scheduled
// and manual runs so a manual scan queues behind an in-flight cycle
// instead of interleaving with it.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/milesbot/milesbot/internal/logger"
	"github.com/milesbot/milesbot/internal/metrics"
	"github.com/milesbot/milesbot/internal/pipeline"
	"github.com/milesbot/milesbot/internal/plugin"
	"github.com/milesbot/milesbot/internal/scanner"
	"github.com/milesbot/milesbot/internal/sources"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Plugin run outcomes recorded on the runs counter.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Scheduler owns the cron runner, the per-plugin watermarks, and the
// legacy registry scan.
type Scheduler struct {
	cron     *cron.Cron
	plugins  []plugin.Plugin
	pipe     *pipeline.Pipeline
	scanner  *scanner.Scanner
	registry *sources.Registry
	metrics  *metrics.Metrics
	logger   logger.Interface
	timeout  time.Duration

	// runMu serializes full pipeline runs: a manual scan queues behind a
	// scheduled plugin run and vice versa.
	runMu sync.Mutex

	mu         sync.Mutex
	watermarks map[string]time.Time
	entries    map[string]cron.EntryID
	started    bool
	startedAt  time.Time
	baseCtx    context.Context
	cancel     context.CancelFunc
}

// New creates a scheduler over the loaded plugins.
func New(
	plugins []plugin.Plugin,
	pipe *pipeline.Pipeline,
	scan *scanner.Scanner,
	registry *sources.Registry,
	m *metrics.Metrics,
	log logger.Interface,
	scrapeTimeout time.Duration,
) *Scheduler {
	return &Scheduler{
		plugins:    plugins,
		pipe:       pipe,
		scanner:    scan,
		registry:   registry,
		metrics:    m,
		logger:     log.WithComponent("scheduler"),
		timeout:    scrapeTimeout,
		watermarks: make(map[string]time.Time),
		entries:    make(map[string]cron.EntryID),
	}
}

// Start registers every plugin with the cron runner and begins firing.
// Schedules were validated at plugin load, so a parse failure here is
// logged and the plugin skipped rather than aborting the daemon.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(
		cron.WithParser(cron.NewParser(
			cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow,
		)),
		cron.WithChain(cron.Recover(&cronLogger{log: s.logger})),
	)

	for _, p := range s.plugins {
		p := p
		schedule := plugin.ExpandSchedule(p.Schedule())
		entryID, err := s.cron.AddFunc(schedule, func() { s.runScheduled(p) })
		if err != nil {
			s.logger.Error("Failed to schedule plugin",
				"plugin", p.Name(),
				"schedule", schedule,
				"error", err)
			continue
		}
		s.entries[p.Name()] = entryID
		s.logger.Info("Scheduled plugin",
			"plugin", p.Name(),
			"schedule", schedule)
	}

	s.cron.Start()
	s.started = true
	s.startedAt = time.Now().UTC()
	s.logger.Info("Scheduler started", "plugins", len(s.entries))
	return nil
}

// Stop halts the cron runner and waits for in-flight jobs, bounded by
// the given context.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	stopCtx := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-stopCtx.Done():
		s.logger.Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with jobs in flight")
	}
	cancel()
}

// RunAll triggers a full cycle: every loaded plugin plus the legacy
// registry scan. It queues behind any scheduled run already in flight
// and returns the aggregated pipeline result.
func (s *Scheduler) RunAll(ctx context.Context) pipeline.Result {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var total pipeline.Result
	for _, p := range s.plugins {
		if ctx.Err() != nil {
			s.logger.Warn("Full scan cancelled", "error", ctx.Err())
			return total
		}
		accumulate(&total, s.execute(ctx, p))
	}

	accumulate(&total, s.runLegacyScan(ctx))
	s.metrics.ScanCycles.Inc()
	s.logger.Info("Full scan complete",
		"candidates", total.Candidates,
		"notified", total.Notified,
		"duplicates", total.Duplicates,
		"below_threshold", total.BelowThreshold,
		"delivery_failed", total.DeliveryFailed)
	return total
}

// Watermarks returns a copy of the per-plugin last-success timestamps.
func (s *Scheduler) Watermarks() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.watermarks))
	for name, ts := range s.watermarks {
		out[name] = ts
	}
	return out
}

// PluginCount returns how many plugins are loaded.
func (s *Scheduler) PluginCount() int {
	return len(s.plugins)
}

// runScheduled is the cron job body for one plugin.
func (s *Scheduler) runScheduled(p plugin.Plugin) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.execute(ctx, p)
}

// execute runs one plugin scrape through the pipeline. The watermark
// advances to the run's start time only when the scrape succeeded, so a
// failed window is re-scraped on the next fire. Partial results from a
// failed scrape are still processed.
func (s *Scheduler) execute(ctx context.Context, p plugin.Plugin) pipeline.Result {
	name := p.Name()
	start := time.Now().UTC()
	since := s.watermark(name)

	scrapeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	promos, err := plugin.SafeScrape(scrapeCtx, p, since)
	cancel()
	s.metrics.ScrapeDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	var result pipeline.Result
	if len(promos) > 0 {
		result = s.pipe.Process(ctx, promos)
	}

	if err != nil {
		s.metrics.PluginRuns.WithLabelValues(name, outcomeFailure).Inc()
		s.metrics.PluginFailures.WithLabelValues(name).Inc()
		s.logger.Error("Plugin scrape failed",
			"plugin", name,
			"since", since,
			"partial_candidates", len(promos),
			"error", err)
		return result
	}

	s.metrics.PluginRuns.WithLabelValues(name, outcomeSuccess).Inc()
	s.setWatermark(name, start)
	s.logger.Info("Plugin run complete",
		"plugin", name,
		"candidates", result.Candidates,
		"notified", result.Notified)
	return result
}

// runLegacyScan feeds every registry URL through the static scanner.
func (s *Scheduler) runLegacyScan(ctx context.Context) pipeline.Result {
	urls := s.registry.List()
	if len(urls) == 0 {
		return pipeline.Result{}
	}

	promos := s.scanner.Scan(ctx, urls)
	s.logger.Info("Registry scan complete",
		"sources", len(urls),
		"candidates", len(promos))
	if len(promos) == 0 {
		return pipeline.Result{}
	}
	return s.pipe.Process(ctx, promos)
}

func (s *Scheduler) watermark(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermarks[name]
}

func (s *Scheduler) setWatermark(name string, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermarks[name] = ts
}

func accumulate(total *pipeline.Result, r pipeline.Result) {
	total.Candidates += r.Candidates
	total.Invalid += r.Invalid
	total.Duplicates += r.Duplicates
	total.BelowThreshold += r.BelowThreshold
	total.Notified += r.Notified
	total.DeliveryFailed += r.DeliveryFailed
}

// cronLogger adapts logger.Interface to cron.Logger for the recover
// chain.
type cronLogger struct {
	log logger.Interface
}

func (c *cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug(msg, keysAndValues...)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := append([]any{"error", err}, keysAndValues...)
	c.log.Error(msg, fields...)
}

var _ cron.Logger = (*cronLogger)(nil)
