package common

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/milesbot/milesbot/internal/history"
	"github.com/milesbot/milesbot/internal/metrics"
	"github.com/milesbot/milesbot/internal/notify"
	"github.com/milesbot/milesbot/internal/pipeline"
	"github.com/milesbot/milesbot/internal/plugin"
	"github.com/milesbot/milesbot/internal/scanner"
	"github.com/milesbot/milesbot/internal/scheduler"
	"github.com/milesbot/milesbot/internal/seen"
)

// Runtime bundles the fully wired scan machinery shared by the scan and
// serve commands.
type Runtime struct {
	Seen      seen.Store
	History   history.Store
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
	Pipeline  *pipeline.Pipeline
	Scheduler *scheduler.Scheduler
}

// NewRuntime wires stores, notifier, pipeline, and scheduler from the
// command dependencies. Callers must have validated credentials first.
func NewRuntime(ctx context.Context, deps CommandDeps) *Runtime {
	cfg := deps.Config
	log := deps.Logger

	seenStore := seen.Open(ctx, cfg.Storage, log)
	historyStore := history.OpenOrNoop(cfg.Storage.HistoryDB, log)

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	notifier := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)
	pipe := pipeline.New(seenStore, notifier, historyStore, m, log, cfg.Scan.MinBonus)

	allow := plugin.NewAllowList(cfg.Scan.PluginsEnabled, cfg.Scan.PluginsEnabledSet)
	plugins := plugin.Load(allow, log)

	sched := scheduler.New(
		plugins,
		pipe,
		scanner.New(log, cfg.Scan.ScrapeTimeout),
		deps.Registry,
		m,
		log,
		cfg.Scan.ScrapeTimeout,
	)

	return &Runtime{
		Seen:      seenStore,
		History:   historyStore,
		Metrics:   m,
		Registry:  promRegistry,
		Pipeline:  pipe,
		Scheduler: sched,
	}
}

// Close releases runtime resources.
func (r *Runtime) Close() {
	_ = r.History.Close()
	if closer, ok := r.Seen.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
