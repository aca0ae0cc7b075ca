package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/metrics"
)

type overdueMarker interface {
	MarkOverdue(ctx context.Context) (int, error)
}

// InvoiceWorker moves sent invoices past their due date to overdue.
type InvoiceWorker struct {
	invoices overdueMarker
	interval time.Duration
}

// NewInvoiceWorker constructs an InvoiceWorker.
func NewInvoiceWorker(invoices overdueMarker, interval time.Duration) *InvoiceWorker {
	return &InvoiceWorker{invoices: invoices, interval: interval}
}

// Start sweeps once immediately, then on every tick until ctx is cancelled.
func (w *InvoiceWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting invoice overdue worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.run(ctx)
	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Invoice overdue worker stopped")
			return
		}
	}
}

func (w *InvoiceWorker) run(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.ObserveWorker("invoice_overdue", time.Since(start)) }()

	n, err := w.invoices.MarkOverdue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to mark overdue invoices")
		return
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("Invoices marked overdue")
	}
}
