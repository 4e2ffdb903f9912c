// Package pipeline implements the promotion pipeline: normalize incoming
// candidates, fingerprint them, filter against the seen-set and the bonus
// threshold, and hand survivors to the notifier.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/milesbot/milesbot/internal/history"
	"github.com/milesbot/milesbot/internal/logger"
	"github.com/milesbot/milesbot/internal/metrics"
	"github.com/milesbot/milesbot/internal/notify"
	"github.com/milesbot/milesbot/internal/promo"
	"github.com/milesbot/milesbot/internal/seen"
)

// Pipeline filters promotion candidates and delivers alerts at most once
// per fingerprint. The seen-set read-then-write is serialized by a mutex
// shared across all callers, so concurrent plugin batches cannot
// double-notify the same offer.
type Pipeline struct {
	seen     seen.Store
	notifier notify.Notifier
	history  history.Store
	metrics  *metrics.Metrics
	logger   logger.Interface
	minBonus int
	gate     chan struct{}
}

// Result summarizes one processed batch.
type Result struct {
	Candidates     int
	Invalid        int
	Duplicates     int
	BelowThreshold int
	Notified       int
	DeliveryFailed int
}

// New creates a pipeline over the given collaborators.
func New(
	seenStore seen.Store,
	notifier notify.Notifier,
	historyStore history.Store,
	m *metrics.Metrics,
	log logger.Interface,
	minBonus int,
) *Pipeline {
	gate := make(chan struct{}, 1)
	gate <- struct{}{}
	return &Pipeline{
		seen:     seenStore,
		notifier: notifier,
		history:  historyStore,
		metrics:  m,
		logger:   log,
		minBonus: minBonus,
		gate:     gate,
	}
}

// staged is a normalized candidate with its dedup key.
type staged struct {
	promo       promo.Promo
	fingerprint string
}

// Process runs one batch through the pipeline. Individual malformed
// candidates are skipped and logged; the batch always runs to completion.
func (p *Pipeline) Process(ctx context.Context, candidates []promo.Promo) Result {
	now := time.Now().UTC()
	result := Result{Candidates: len(candidates)}

	stagedList := make([]staged, 0, len(candidates))
	for i := range candidates {
		p.metrics.CandidatesTotal.Inc()
		normalized, err := candidates[i].Normalize(now)
		if err != nil {
			result.Invalid++
			p.metrics.CandidatesDropped.WithLabelValues(metrics.DropReasonInvalid).Inc()
			p.logger.Debug("Skipping malformed candidate",
				"source", candidates[i].SourceName,
				"error", err)
			continue
		}
		stagedList = append(stagedList, staged{
			promo:       normalized,
			fingerprint: normalized.Fingerprint(),
		})
	}

	// Serialize the contains/notify/add sequence. Waiting respects the
	// caller's context so a cancelled manual scan does not hang here.
	select {
	case <-p.gate:
	case <-ctx.Done():
		p.logger.Warn("Pipeline run cancelled while waiting", "error", ctx.Err())
		return result
	}
	defer func() { p.gate <- struct{}{} }()

	fresh := p.filter(ctx, stagedList, &result)

	// Highest bonus first; ties keep discovery order.
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].promo.BonusPct > fresh[j].promo.BonusPct
	})

	for _, s := range fresh {
		p.deliver(ctx, s, &result)
	}
	return result
}

// filter applies the dedup and threshold filters in that order, recording
// every survivor-or-not to the history store.
func (p *Pipeline) filter(ctx context.Context, stagedList []staged, result *Result) []staged {
	fresh := make([]staged, 0, len(stagedList))
	inBatch := make(map[string]struct{}, len(stagedList))

	for _, s := range stagedList {
		if _, dup := inBatch[s.fingerprint]; dup {
			result.Duplicates++
			p.metrics.CandidatesDropped.WithLabelValues(metrics.DropReasonDuplicate).Inc()
			continue
		}
		inBatch[s.fingerprint] = struct{}{}

		alreadySeen, err := p.seen.Contains(ctx, s.fingerprint)
		if err != nil {
			// Treat the candidate as unseen; a duplicate alert beats a
			// silently dropped one.
			p.logger.Warn("Seen-set lookup failed",
				"fingerprint", s.fingerprint,
				"error", err)
		}
		if alreadySeen {
			result.Duplicates++
			p.metrics.CandidatesDropped.WithLabelValues(metrics.DropReasonDuplicate).Inc()
			p.record(ctx, s, false)
			continue
		}

		if s.promo.BonusPct < p.minBonus {
			result.BelowThreshold++
			p.metrics.CandidatesDropped.WithLabelValues(metrics.DropReasonThreshold).Inc()
			p.record(ctx, s, false)
			continue
		}

		fresh = append(fresh, s)
	}
	return fresh
}

// deliver notifies one promotion and, only on success, marks it seen.
// A delivery failure leaves the fingerprint unrecorded so the next cycle
// retries it; the documented tradeoff is a possible duplicate alert if the
// transport accepted a message while reporting an error.
func (p *Pipeline) deliver(ctx context.Context, s staged, result *Result) {
	if err := p.notifier.Notify(ctx, s.promo); err != nil {
		result.DeliveryFailed++
		p.metrics.NotifyFailures.Inc()
		p.logger.Error("Failed to deliver alert",
			"program", s.promo.Program,
			"bonus_pct", s.promo.BonusPct,
			"url", s.promo.URL,
			"error", err)
		p.record(ctx, s, false)
		return
	}

	result.Notified++
	p.metrics.NotificationsSent.Inc()
	p.logger.Info("Alert delivered",
		"program", s.promo.Program,
		"bonus_pct", s.promo.BonusPct,
		"source", s.promo.SourceName,
		"url", s.promo.URL)

	if err := p.seen.Add(ctx, s.fingerprint); err != nil {
		p.logger.Warn("Failed to record fingerprint, duplicate alert possible",
			"fingerprint", s.fingerprint,
			"error", err)
	}
	p.record(ctx, s, true)
}

// record writes the candidate to the history store; history failures are
// logged and never affect the pipeline outcome.
func (p *Pipeline) record(ctx context.Context, s staged, notified bool) {
	if err := p.history.Record(ctx, s.promo, s.fingerprint, notified); err != nil {
		p.logger.Warn("Failed to record promotion history",
			"fingerprint", s.fingerprint,
			"error", err)
	}
}
