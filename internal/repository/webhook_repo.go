package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_dashboard/internal/models"
)

const webhookColumns = `id, business_id, event, payload, attempt, http_status, response_body, is_delivered,
    created_at, next_retry_at`

// WebhookRepository stores outgoing webhook deliveries.
type WebhookRepository struct {
	db *sqlx.DB
}

// NewWebhookRepository creates a new WebhookRepository.
func NewWebhookRepository(db *sqlx.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// Create inserts a delivery row.
func (r *WebhookRepository) Create(ctx context.Context, d *models.WebhookDelivery) error {
	const q = `
        INSERT INTO webhook_deliveries (
            business_id, event, payload, attempt, http_status, response_body, is_delivered, next_retry_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8
        ) RETURNING id, created_at`
	return r.db.QueryRowxContext(ctx, q,
		d.BusinessID,
		d.Event,
		d.Payload,
		d.Attempt,
		d.HTTPStatus,
		d.ResponseBody,
		d.IsDelivered,
		d.NextRetryAt,
	).Scan(&d.ID, &d.CreatedAt)
}

// Update stores the outcome of a delivery attempt.
func (r *WebhookRepository) Update(ctx context.Context, d *models.WebhookDelivery) error {
	const q = `
        UPDATE webhook_deliveries SET
            attempt = $2,
            http_status = $3,
            response_body = $4,
            is_delivered = $5,
            next_retry_at = $6
        WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q,
		d.ID,
		d.Attempt,
		d.HTTPStatus,
		d.ResponseBody,
		d.IsDelivered,
		d.NextRetryAt,
	)
	return affected(res, err, "webhook delivery")
}

// GetPending returns undelivered webhooks whose retry time has passed.
// SKIP LOCKED keeps concurrent workers off the same rows.
func (r *WebhookRepository) GetPending(ctx context.Context, maxAttempts, limit int) ([]models.WebhookDelivery, error) {
	const q = `
        SELECT ` + webhookColumns + ` FROM webhook_deliveries
        WHERE is_delivered = false
          AND next_retry_at <= NOW()
          AND attempt < $1
        ORDER BY next_retry_at ASC
        LIMIT $2
        FOR UPDATE SKIP LOCKED`
	list := []models.WebhookDelivery{}
	if err := r.db.SelectContext(ctx, &list, q, maxAttempts, limit); err != nil {
		return nil, err
	}
	return list, nil
}

// ListRecent returns the latest deliveries of a business.
func (r *WebhookRepository) ListRecent(ctx context.Context, businessID, limit int) ([]models.WebhookDelivery, error) {
	list := []models.WebhookDelivery{}
	err := r.db.SelectContext(ctx, &list, `SELECT `+webhookColumns+` FROM webhook_deliveries
        WHERE business_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, businessID, limit)
	return list, err
}
