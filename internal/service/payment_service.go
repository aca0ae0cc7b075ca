package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/pricing"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/sse"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type paymentStore interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Payment, int, error)
	Get(ctx context.Context, businessID, id int) (*models.Payment, error)
	Create(ctx context.Context, p *models.Payment) error
	UpdateStatus(ctx context.Context, p *models.Payment) error
}

// PaymentService records payments received from customers. Payments are
// recorded, never captured.
type PaymentService struct {
	payments   paymentStore
	invoices   invoiceStore
	customers  customerStore
	businesses businessLookup
	webhooks   Dispatcher
	notifier   sse.PaymentNotifier
	now        func() time.Time
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(
	payments paymentStore,
	invoices invoiceStore,
	customers customerStore,
	businesses businessLookup,
	webhooks Dispatcher,
	notifier sse.PaymentNotifier,
) *PaymentService {
	return &PaymentService{
		payments:   payments,
		invoices:   invoices,
		customers:  customers,
		businesses: businesses,
		webhooks:   webhooks,
		notifier:   notifier,
		now:        time.Now,
	}
}

// PaymentRequest records a payment.
type PaymentRequest struct {
	CustomerID int                  `json:"customerId" binding:"required"`
	InvoiceID  *int                 `json:"invoiceId"`
	Reference  string               `json:"reference" binding:"required,max=100"`
	Amount     int64                `json:"amount" binding:"required,gte=1"`
	Currency   string               `json:"currency" binding:"required,len=3"`
	Method     string               `json:"method" binding:"required,max=50"`
	Status     models.PaymentStatus `json:"status" binding:"omitempty,oneof=pending successful failed"`
}

// PaymentStatusRequest settles a pending payment.
type PaymentStatusRequest struct {
	Status models.PaymentStatus `json:"status" binding:"required,oneof=successful failed"`
}

// List returns a page of payments.
func (s *PaymentService) List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Payment, int, error) {
	return s.payments.List(ctx, businessID, f)
}

// Get returns one payment.
func (s *PaymentService) Get(ctx context.Context, businessID, id int) (*models.Payment, error) {
	return s.payments.Get(ctx, businessID, id)
}

// Record stores a payment. A successful payment against an open invoice for
// its full total also marks the invoice paid.
func (s *PaymentService) Record(ctx context.Context, businessID int, req *PaymentRequest) (*models.Payment, error) {
	if _, err := s.customers.GetByID(ctx, businessID, req.CustomerID); err != nil {
		return nil, err
	}
	code, err := pricing.ParseCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	policy, err := pricePolicy(ctx, s.businesses, businessID)
	if err != nil {
		return nil, err
	}
	if !policy.Allows(code) {
		return nil, fmt.Errorf("currency %s is not enabled: %w", code, utils.ErrInvalidInput)
	}

	p := &models.Payment{
		BusinessID: businessID,
		CustomerID: req.CustomerID,
		InvoiceID:  req.InvoiceID,
		Reference:  strings.TrimSpace(req.Reference),
		Amount:     req.Amount,
		Currency:   code,
		Method:     req.Method,
		Status:     req.Status,
	}
	if p.Status == "" {
		p.Status = models.PaymentSuccessful
	}
	if p.Status == models.PaymentSuccessful {
		now := s.now()
		p.PaidAt = &now
	}

	var inv *models.Invoice
	if req.InvoiceID != nil {
		if inv, err = s.openInvoice(ctx, businessID, *req.InvoiceID, p); err != nil {
			return nil, err
		}
	}
	if inv != nil && p.Status == models.PaymentSuccessful {
		err = s.invoices.MarkPaid(ctx, inv, p)
	} else {
		err = s.payments.Create(ctx, p)
	}
	if err != nil {
		return nil, err
	}

	if p.Status == models.PaymentSuccessful {
		s.succeeded(ctx, p, inv)
	}
	return p, nil
}

// openInvoice checks that p can settle the invoice.
func (s *PaymentService) openInvoice(ctx context.Context, businessID, invoiceID int, p *models.Payment) (*models.Invoice, error) {
	inv, err := s.invoices.Get(ctx, businessID, invoiceID)
	if err != nil {
		return nil, err
	}
	switch {
	case !inv.Status.IsOpen():
		return nil, fmt.Errorf("invoice %s is %s: %w", inv.Number, inv.Status, utils.ErrInvalidState)
	case inv.CustomerID != p.CustomerID:
		return nil, fmt.Errorf("invoice %s belongs to another customer: %w", inv.Number, utils.ErrInvalidInput)
	case inv.Currency != p.Currency || inv.Total != p.Amount:
		return nil, fmt.Errorf("payment must be %s for invoice %s: %w",
			pricing.Format(inv.Total, inv.Currency), inv.Number, utils.ErrInvalidInput)
	}
	return inv, nil
}

// UpdateStatus settles a pending payment.
func (s *PaymentService) UpdateStatus(ctx context.Context, businessID, id int, req *PaymentStatusRequest) (*models.Payment, error) {
	p, err := s.payments.Get(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentPending {
		return nil, fmt.Errorf("payment %s is %s: %w", p.Reference, p.Status, utils.ErrInvalidState)
	}
	var inv *models.Invoice
	if req.Status == models.PaymentSuccessful && p.InvoiceID != nil {
		if inv, err = s.openInvoice(ctx, businessID, *p.InvoiceID, p); err != nil {
			return nil, err
		}
	}

	p.Status = req.Status
	if p.Status == models.PaymentSuccessful {
		now := s.now()
		p.PaidAt = &now
	}
	if err := s.payments.UpdateStatus(ctx, p); err != nil {
		return nil, err
	}
	if inv != nil {
		if err := s.invoices.SetStatus(ctx, businessID, inv.ID, models.InvoicePaid,
			models.InvoiceSent, models.InvoiceOverdue); err != nil {
			return nil, err
		}
		inv.Status = models.InvoicePaid
	}
	if p.Status == models.PaymentSuccessful {
		s.succeeded(ctx, p, inv)
	}
	return p, nil
}

func (s *PaymentService) succeeded(ctx context.Context, p *models.Payment, inv *models.Invoice) {
	if err := s.webhooks.Dispatch(ctx, p.BusinessID, models.EventPaymentSuccessful, p); err != nil {
		log.Error().Err(err).Int("payment_id", p.ID).Msg("failed to queue payment webhook")
	}
	if inv != nil {
		if err := s.webhooks.Dispatch(ctx, p.BusinessID, models.EventInvoicePaid, inv); err != nil {
			log.Error().Err(err).Int("invoice_id", inv.ID).Msg("failed to queue invoice webhook")
		}
	}
	s.notifier.NotifyPaymentSuccessful(p.BusinessID, p)
}
