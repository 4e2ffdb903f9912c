package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milesbot/milesbot/internal/history"
	"github.com/milesbot/milesbot/internal/logger"
	"github.com/milesbot/milesbot/internal/metrics"
	"github.com/milesbot/milesbot/internal/pipeline"
	"github.com/milesbot/milesbot/internal/promo"
	"github.com/milesbot/milesbot/internal/seen"
)

// fakeNotifier records delivered promos and can be told to fail.
type fakeNotifier struct {
	mu        sync.Mutex
	delivered []promo.Promo
	fail      bool
}

func (n *fakeNotifier) Notify(_ context.Context, p promo.Promo) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("transport down")
	}
	n.delivered = append(n.delivered, p)
	return nil
}

func (n *fakeNotifier) deliveredCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.delivered)
}

func newPipeline(t *testing.T, store seen.Store, notifier *fakeNotifier, minBonus int) *pipeline.Pipeline {
	t.Helper()
	return pipeline.New(
		store, notifier, history.NoopStore{},
		metrics.NewUnregistered(), logger.NewNoOp(), minBonus)
}

func TestProcessNotifiesOnceAndRecordsSeen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seen.NewMemoryStore()
	notifier := &fakeNotifier{}
	p := newPipeline(t, store, notifier, 80)

	candidate := promo.Promo{Program: "LIVELO", BonusPct: 100, URL: "https://x/a"}

	result := p.Process(ctx, []promo.Promo{candidate})
	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, 1, notifier.deliveredCount())
	assert.Equal(t, 1, store.Len())

	// Re-submitting the identical candidate produces zero notifications.
	result = p.Process(ctx, []promo.Promo{candidate})
	assert.Equal(t, 0, result.Notified)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 1, notifier.deliveredCount())
}

func TestProcessEnforcesThresholdBoundary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	notifier := &fakeNotifier{}
	p := newPipeline(t, seen.NewMemoryStore(), notifier, 80)

	result := p.Process(ctx, []promo.Promo{
		{Program: "a", BonusPct: 79, URL: "https://x/below"},
		{Program: "b", BonusPct: 80, URL: "https://x/at"},
	})

	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, 1, result.BelowThreshold)
	require.Len(t, notifier.delivered, 1)
	assert.Equal(t, "https://x/at", notifier.delivered[0].URL)
}

func TestProcessSkipsMalformedCandidates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	notifier := &fakeNotifier{}
	p := newPipeline(t, seen.NewMemoryStore(), notifier, 80)

	result := p.Process(ctx, []promo.Promo{
		{Program: "", BonusPct: 100, URL: "https://x/a"},
		{Program: "b", BonusPct: 0, URL: "https://x/b"},
		{Program: "c", BonusPct: 100, URL: ""},
		{Program: "ok", BonusPct: 100, URL: "https://x/ok"},
	})

	assert.Equal(t, 3, result.Invalid)
	assert.Equal(t, 1, result.Notified)
}

func TestProcessDeliversHighestBonusFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	notifier := &fakeNotifier{}
	p := newPipeline(t, seen.NewMemoryStore(), notifier, 80)

	p.Process(ctx, []promo.Promo{
		{Program: "a", BonusPct: 90, URL: "https://x/90"},
		{Program: "b", BonusPct: 120, URL: "https://x/120"},
		{Program: "c", BonusPct: 100, URL: "https://x/100"},
	})

	require.Len(t, notifier.delivered, 3)
	assert.Equal(t, 120, notifier.delivered[0].BonusPct)
	assert.Equal(t, 100, notifier.delivered[1].BonusPct)
	assert.Equal(t, 90, notifier.delivered[2].BonusPct)
}

func TestProcessDeduplicatesWithinBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	notifier := &fakeNotifier{}
	p := newPipeline(t, seen.NewMemoryStore(), notifier, 80)

	// Same offer reported by two sources, plus tracking noise on the URL.
	result := p.Process(ctx, []promo.Promo{
		{Program: "livelo", BonusPct: 100, URL: "https://x/a", SourceName: "plugin-a"},
		{Program: "LIVELO", BonusPct: 100, URL: "https://x/a?utm_source=b", SourceName: "plugin-b"},
	})

	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, 1, result.Duplicates)
}

func TestDeliveryFailureLeavesPromoUnseen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seen.NewMemoryStore()
	notifier := &fakeNotifier{fail: true}
	p := newPipeline(t, store, notifier, 80)

	candidate := promo.Promo{Program: "livelo", BonusPct: 100, URL: "https://x/a"}

	result := p.Process(ctx, []promo.Promo{candidate})
	assert.Equal(t, 0, result.Notified)
	assert.Equal(t, 1, result.DeliveryFailed)
	assert.Equal(t, 0, store.Len(), "failed delivery must not mark the promo seen")

	// Once the transport recovers the same candidate goes through.
	notifier.fail = false
	result = p.Process(ctx, []promo.Promo{candidate})
	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, 1, store.Len())
}

func TestProcessSurvivesSeenStorePersistence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seen.NewMemoryStore()
	notifier := &fakeNotifier{}

	first := newPipeline(t, store, notifier, 80)
	first.Process(ctx, []promo.Promo{{Program: "livelo", BonusPct: 100, URL: "https://x/a"}})

	// A fresh pipeline over the same store still deduplicates.
	second := newPipeline(t, store, notifier, 80)
	result := second.Process(ctx, []promo.Promo{{Program: "livelo", BonusPct: 100, URL: "https://x/a"}})
	assert.Equal(t, 0, result.Notified)
	assert.Equal(t, 1, result.Duplicates)
}
