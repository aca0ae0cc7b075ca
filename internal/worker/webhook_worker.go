package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/metrics"
)

type webhookDeliverer interface {
	DeliverPending(ctx context.Context) (int, error)
}

// WebhookWorker retries due webhook deliveries on a fixed interval.
type WebhookWorker struct {
	webhooks webhookDeliverer
	interval time.Duration
}

// NewWebhookWorker constructs a WebhookWorker.
func NewWebhookWorker(webhooks webhookDeliverer, interval time.Duration) *WebhookWorker {
	return &WebhookWorker{
		webhooks: webhooks,
		interval: interval,
	}
}

// Start begins the retry loop and listens for context cancellation.
func (w *WebhookWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting webhook worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Webhook worker stopped")
			return
		}
	}
}

func (w *WebhookWorker) run(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.ObserveWorker("webhook", time.Since(start)) }()

	delivered, err := w.webhooks.DeliverPending(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to process pending webhooks")
		return
	}
	if delivered > 0 {
		log.Info().Int("delivered", delivered).Msg("Webhook deliveries sent")
	}
}
