package models

import "time"

// PaymentStatus enumerates payment states.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentSuccessful PaymentStatus = "successful"
	PaymentFailed     PaymentStatus = "failed"
)

// Payment is a recorded money movement from a customer.
type Payment struct {
	ID         int           `db:"id" json:"id"`
	BusinessID int           `db:"business_id" json:"-"`
	CustomerID int           `db:"customer_id" json:"customerId"`
	InvoiceID  *int          `db:"invoice_id" json:"invoiceId,omitempty"`
	Reference  string        `db:"reference" json:"reference"`
	Amount     int64         `db:"amount" json:"amount"`
	Currency   string        `db:"currency" json:"currency"`
	Method     string        `db:"method" json:"method"`
	Status     PaymentStatus `db:"status" json:"status"`
	PaidAt     *time.Time    `db:"paid_at" json:"paidAt,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updatedAt"`
}
