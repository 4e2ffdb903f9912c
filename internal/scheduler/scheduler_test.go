package scheduler_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milesbot/milesbot/internal/history"
	"github.com/milesbot/milesbot/internal/logger"
	"github.com/milesbot/milesbot/internal/metrics"
	"github.com/milesbot/milesbot/internal/pipeline"
	"github.com/milesbot/milesbot/internal/plugin"
	"github.com/milesbot/milesbot/internal/promo"
	"github.com/milesbot/milesbot/internal/scanner"
	"github.com/milesbot/milesbot/internal/scheduler"
	"github.com/milesbot/milesbot/internal/seen"
	"github.com/milesbot/milesbot/internal/sources"
)

type fakePlugin struct {
	name     string
	schedule string
	promos   []promo.Promo
	err      error

	mu    sync.Mutex
	calls []time.Time
}

func (p *fakePlugin) Name() string         { return p.name }
func (p *fakePlugin) Schedule() string     { return p.schedule }
func (p *fakePlugin) Categories() []string { return []string{"bonus"} }

func (p *fakePlugin) Scrape(_ context.Context, since time.Time) ([]promo.Promo, error) {
	p.mu.Lock()
	p.calls = append(p.calls, since)
	p.mu.Unlock()
	return p.promos, p.err
}

func (p *fakePlugin) sinceValues() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Time(nil), p.calls...)
}

type fakeNotifier struct {
	mu        sync.Mutex
	delivered []promo.Promo
}

func (n *fakeNotifier) Notify(_ context.Context, p promo.Promo) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, p)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.delivered)
}

func newScheduler(t *testing.T, notifier *fakeNotifier, plugins ...plugin.Plugin) *scheduler.Scheduler {
	t.Helper()

	log := logger.NewNoOp()
	pipe := pipeline.New(
		seen.NewMemoryStore(),
		notifier,
		history.NoopStore{},
		metrics.NewUnregistered(),
		log,
		80,
	)
	registry, err := sources.NewRegistry(filepath.Join(t.TempDir(), "sources.yaml"), log)
	require.NoError(t, err)

	return scheduler.New(
		plugins,
		pipe,
		scanner.New(log, time.Second),
		registry,
		metrics.NewUnregistered(),
		log,
		5*time.Second,
	)
}

func TestRunAllProcessesPluginPromos(t *testing.T) {
	t.Parallel()

	p := &fakePlugin{
		name:     "test-plugin",
		schedule: "hourly",
		promos: []promo.Promo{
			{Program: "livelo", BonusPct: 100, URL: "https://example.com/p", SourceName: "test-plugin"},
			{Program: "livelo", BonusPct: 40, URL: "https://example.com/q", SourceName: "test-plugin"},
		},
	}
	notifier := &fakeNotifier{}
	s := newScheduler(t, notifier, p)

	result := s.RunAll(context.Background())

	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, 1, result.BelowThreshold)
	assert.Equal(t, 1, notifier.count())
}

func TestWatermarkAdvancesOnlyOnSuccess(t *testing.T) {
	t.Parallel()

	failing := &fakePlugin{
		name:     "flaky",
		schedule: "hourly",
		err:      errors.New("upstream down"),
	}
	s := newScheduler(t, &fakeNotifier{}, failing)

	s.RunAll(context.Background())
	assert.Empty(t, s.Watermarks(), "failed run must not advance the watermark")

	failing.err = nil
	before := time.Now().UTC()
	s.RunAll(context.Background())

	marks := s.Watermarks()
	require.Contains(t, marks, "flaky")
	assert.False(t, marks["flaky"].Before(before))

	// The failed window is re-scraped: both runs saw the zero watermark.
	sinces := failing.sinceValues()
	require.Len(t, sinces, 2)
	assert.True(t, sinces[0].IsZero())
	assert.True(t, sinces[1].IsZero())
}

func TestFailingPluginDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	broken := &fakePlugin{
		name:     "broken",
		schedule: "hourly",
		err:      errors.New("scrape blew up"),
	}
	healthy := &fakePlugin{
		name:     "healthy",
		schedule: "hourly",
		promos: []promo.Promo{
			{Program: "livelo", BonusPct: 100, URL: "https://example.com/ok", SourceName: "healthy"},
		},
	}
	notifier := &fakeNotifier{}
	s := newScheduler(t, notifier, broken, healthy)

	result := s.RunAll(context.Background())

	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, 1, notifier.count())

	marks := s.Watermarks()
	assert.Contains(t, marks, "healthy")
	assert.NotContains(t, marks, "broken")
}

func TestPartialResultsProcessedOnFailure(t *testing.T) {
	t.Parallel()

	p := &fakePlugin{
		name:     "partial",
		schedule: "hourly",
		promos: []promo.Promo{
			{Program: "smiles", BonusPct: 90, URL: "https://example.com/s", SourceName: "partial"},
		},
		err: errors.New("second page unreachable"),
	}
	notifier := &fakeNotifier{}
	s := newScheduler(t, notifier, p)

	result := s.RunAll(context.Background())

	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, 1, notifier.count())
	assert.Empty(t, s.Watermarks())
}

func TestStartStopLifecycle(t *testing.T) {
	t.Parallel()

	p := &fakePlugin{name: "idle", schedule: "0 0 * * *"}
	s := newScheduler(t, &fakeNotifier{}, p)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), scheduler.ErrAlreadyStarted)
	assert.Equal(t, 1, s.PluginCount())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestRunAllStopsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	p := &fakePlugin{
		name:     "never-runs",
		schedule: "hourly",
		promos: []promo.Promo{
			{Program: "livelo", BonusPct: 100, URL: "https://example.com/p", SourceName: "never-runs"},
		},
	}
	notifier := &fakeNotifier{}
	s := newScheduler(t, notifier, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := s.RunAll(ctx)

	assert.Zero(t, result.Notified)
	assert.Zero(t, notifier.count())
}
