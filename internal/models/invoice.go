package models

import "time"

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// IsOpen reports whether the invoice still expects a payment.
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceSent || s == InvoiceOverdue
}

// Invoice is a bill issued to a customer.
type Invoice struct {
	ID         int           `db:"id" json:"id"`
	BusinessID int           `db:"business_id" json:"-"`
	CustomerID int           `db:"customer_id" json:"customerId"`
	Number     string        `db:"number" json:"number"`
	Currency   string        `db:"currency" json:"currency"`
	Status     InvoiceStatus `db:"status" json:"status"`
	IssueDate  time.Time     `db:"issue_date" json:"issueDate"`
	DueDate    time.Time     `db:"due_date" json:"dueDate"`
	TaxRate    float64       `db:"tax_rate" json:"taxRate"`
	Subtotal   int64         `db:"subtotal" json:"subtotal"`
	Tax        int64         `db:"tax" json:"tax"`
	Total      int64         `db:"total" json:"total"`
	Notes      string        `db:"notes" json:"notes"`
	SentAt     *time.Time    `db:"sent_at" json:"sentAt,omitempty"`
	PaidAt     *time.Time    `db:"paid_at" json:"paidAt,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updatedAt"`

	Items []InvoiceItem `db:"-" json:"items"`
}

// InvoiceItem is one billed line.
type InvoiceItem struct {
	ID          int    `db:"id" json:"id"`
	InvoiceID   int    `db:"invoice_id" json:"invoiceId"`
	Description string `db:"description" json:"description"`
	Quantity    int    `db:"quantity" json:"quantity"`
	UnitPrice   int64  `db:"unit_price" json:"unitPrice"`
	Amount      int64  `db:"amount" json:"amount"`
}
