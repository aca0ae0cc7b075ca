package models

import (
	"encoding/json"
	"time"
)

// Webhook events emitted to business callback URLs.
const (
	EventPaymentSuccessful = "payment.successful"
	EventInvoicePaid       = "invoice.paid"
	EventInvoiceOverdue    = "invoice.overdue"
	EventSubscriptionEnded = "subscription.expired"
)

// WebhookDelivery stores outgoing webhook attempts to business systems.
type WebhookDelivery struct {
	ID           int             `db:"id" json:"id"`
	BusinessID   int             `db:"business_id" json:"-"`
	Event        string          `db:"event" json:"event"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Attempt      int             `db:"attempt" json:"attempt"`
	HTTPStatus   *int            `db:"http_status" json:"httpStatus,omitempty"`
	ResponseBody *string         `db:"response_body" json:"responseBody,omitempty"`
	IsDelivered  bool            `db:"is_delivered" json:"isDelivered"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	NextRetryAt  *time.Time      `db:"next_retry_at" json:"nextRetryAt,omitempty"`
}
