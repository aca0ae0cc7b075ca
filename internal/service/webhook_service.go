package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/metrics"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

// Retry intervals after a failed attempt: 30s, 1m, 5m, 30m, 2h.
var webhookRetryIntervals = []time.Duration{
	30 * time.Second,
	1 * time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
}

// MaxWebhookAttempts is the first attempt plus every scheduled retry.
var MaxWebhookAttempts = len(webhookRetryIntervals) + 1

const webhookBatchSize = 100

type webhookStore interface {
	Create(ctx context.Context, d *models.WebhookDelivery) error
	Update(ctx context.Context, d *models.WebhookDelivery) error
	GetPending(ctx context.Context, maxAttempts, limit int) ([]models.WebhookDelivery, error)
	ListRecent(ctx context.Context, businessID, limit int) ([]models.WebhookDelivery, error)
}

type businessLookup interface {
	GetByID(ctx context.Context, id int) (*models.Business, error)
}

// Dispatcher queues webhook events for a business.
type Dispatcher interface {
	Dispatch(ctx context.Context, businessID int, event string, data interface{}) error
}

// WebhookService queues business webhooks and delivers them with retries.
type WebhookService struct {
	businesses businessLookup
	deliveries webhookStore
	httpClient *http.Client
	now        func() time.Time
}

// NewWebhookService constructs a WebhookService with a default HTTP client.
func NewWebhookService(businesses businessLookup, deliveries webhookStore) *WebhookService {
	return &WebhookService{
		businesses: businesses,
		deliveries: deliveries,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		now: time.Now,
	}
}

type webhookPayload struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// Dispatch stores a delivery due immediately. Businesses without a callback
// URL are skipped.
func (s *WebhookService) Dispatch(ctx context.Context, businessID int, event string, data interface{}) error {
	b, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		return err
	}
	if b.CallbackURL == "" {
		return nil
	}
	payload, err := json.Marshal(webhookPayload{
		Event:     event,
		Data:      data,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	due := s.now()
	return s.deliveries.Create(ctx, &models.WebhookDelivery{
		BusinessID:  businessID,
		Event:       event,
		Payload:     payload,
		NextRetryAt: &due,
	})
}

// Recent returns the latest deliveries of a business.
func (s *WebhookService) Recent(ctx context.Context, businessID int) ([]models.WebhookDelivery, error) {
	return s.deliveries.ListRecent(ctx, businessID, 50)
}

// DeliverPending attempts every delivery whose retry time has passed and
// returns how many were delivered.
func (s *WebhookService) DeliverPending(ctx context.Context) (int, error) {
	pending, err := s.deliveries.GetPending(ctx, MaxWebhookAttempts, webhookBatchSize)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		d := &pending[i]
		b, err := s.businesses.GetByID(ctx, d.BusinessID)
		if err != nil {
			log.Error().Err(err).Int("delivery_id", d.ID).Msg("failed to load webhook business")
			continue
		}
		if s.attempt(ctx, b, d) {
			delivered++
		}
		if err := s.deliveries.Update(ctx, d); err != nil {
			log.Error().Err(err).Int("delivery_id", d.ID).Msg("failed to update webhook delivery")
		}
	}
	return delivered, nil
}

// attempt posts the delivery once and records the outcome on d.
func (s *WebhookService) attempt(ctx context.Context, b *models.Business, d *models.WebhookDelivery) bool {
	d.Attempt++
	d.HTTPStatus, d.ResponseBody = nil, nil

	delivered := false
	if b.CallbackURL != "" {
		status, body, err := s.post(ctx, b, d)
		if err != nil {
			log.Warn().Err(err).Int("delivery_id", d.ID).Str("event", d.Event).Msg("webhook attempt failed")
			body = err.Error()
		}
		if status != 0 {
			d.HTTPStatus = &status
		}
		if body != "" {
			d.ResponseBody = &body
		}
		delivered = err == nil && status >= 200 && status < 300
	}

	d.IsDelivered = delivered
	d.NextRetryAt = nil
	if !delivered {
		if next := s.nextRetryTime(d.Attempt); !next.IsZero() {
			d.NextRetryAt = &next
		}
	}
	metrics.WebhookAttempt(d.Event, delivered)
	return delivered
}

func (s *WebhookService) post(ctx context.Context, b *models.Business, d *models.WebhookDelivery) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.CallbackURL, bytes.NewReader(d.Payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(utils.SignatureHeader, utils.SignWebhook(d.Payload, b.WebhookSecret, s.now()))
	req.Header.Set("X-Webhook-Event", d.Event)
	req.Header.Set("X-Webhook-Delivery", strconv.Itoa(d.ID))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(body), nil
}

// nextRetryTime returns when to retry after the given failed attempt, or
// the zero time once the schedule is exhausted.
func (s *WebhookService) nextRetryTime(attempt int) time.Time {
	if attempt < 1 || attempt > len(webhookRetryIntervals) {
		return time.Time{}
	}
	return s.now().Add(webhookRetryIntervals[attempt-1])
}
