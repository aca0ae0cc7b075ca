package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/metrics"
)

type subscriptionExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// SubscriptionWorker expires subscriptions whose period ended.
type SubscriptionWorker struct {
	subs     subscriptionExpirer
	interval time.Duration
}

// NewSubscriptionWorker constructs a SubscriptionWorker.
func NewSubscriptionWorker(subs subscriptionExpirer, interval time.Duration) *SubscriptionWorker {
	return &SubscriptionWorker{subs: subs, interval: interval}
}

// Start sweeps once immediately, then on every tick until ctx is cancelled.
func (w *SubscriptionWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting subscription expiry worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.run(ctx)
	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Subscription expiry worker stopped")
			return
		}
	}
}

func (w *SubscriptionWorker) run(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.ObserveWorker("subscription_expiry", time.Since(start)) }()

	n, err := w.subs.ExpireDue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to expire subscriptions")
		return
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("Subscriptions expired")
	}
}
