package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/mailer"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/pricing"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/sse"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

const (
	dateLayout     = "2006-01-02"
	defaultDueDays = 14
)

type invoiceStore interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Invoice, int, error)
	Get(ctx context.Context, businessID, id int) (*models.Invoice, error)
	Create(ctx context.Context, inv *models.Invoice) error
	UpdateDraft(ctx context.Context, inv *models.Invoice) error
	Delete(ctx context.Context, businessID, id int) error
	SetStatus(ctx context.Context, businessID, id int, status models.InvoiceStatus, from ...models.InvoiceStatus) error
	MarkPaid(ctx context.Context, inv *models.Invoice, p *models.Payment) error
	MarkOverdue(ctx context.Context, now time.Time) ([]models.Invoice, error)
}

type invoiceMailer interface {
	SendInvoice(b *models.Business, c *models.Customer, inv *models.Invoice) error
}

// InvoiceService issues invoices and records their payment.
type InvoiceService struct {
	invoices   invoiceStore
	customers  customerStore
	businesses businessLookup
	mail       invoiceMailer
	webhooks   Dispatcher
	notifier   sse.PaymentNotifier
	now        func() time.Time
}

// NewInvoiceService constructs an InvoiceService. mail may be nil when SMTP
// is not configured.
func NewInvoiceService(
	invoices invoiceStore,
	customers customerStore,
	businesses businessLookup,
	mail invoiceMailer,
	webhooks Dispatcher,
	notifier sse.PaymentNotifier,
) *InvoiceService {
	return &InvoiceService{
		invoices:   invoices,
		customers:  customers,
		businesses: businesses,
		mail:       mail,
		webhooks:   webhooks,
		notifier:   notifier,
		now:        time.Now,
	}
}

// InvoiceItemRequest is one billed line.
type InvoiceItemRequest struct {
	Description string `json:"description" binding:"required,max=500"`
	Quantity    int    `json:"quantity" binding:"required,gte=1"`
	UnitPrice   int64  `json:"unitPrice" binding:"gte=0"`
}

// InvoiceRequest represents an invoice create or draft update. Dates use
// YYYY-MM-DD.
type InvoiceRequest struct {
	CustomerID int                  `json:"customerId" binding:"required"`
	Currency   string               `json:"currency" binding:"omitempty,len=3"`
	IssueDate  string               `json:"issueDate" binding:"omitempty,datetime=2006-01-02"`
	DueDate    string               `json:"dueDate" binding:"omitempty,datetime=2006-01-02"`
	TaxRate    float64              `json:"taxRate" binding:"gte=0,lte=100"`
	Notes      string               `json:"notes"`
	Items      []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
}

// MarkPaidRequest records how an invoice was paid.
type MarkPaidRequest struct {
	Method    string     `json:"method" binding:"required,max=50"`
	Reference string     `json:"reference" binding:"max=100"`
	PaidAt    *time.Time `json:"paidAt"`
}

// ComputeTotals returns subtotal = sum(qty*unit), tax = round(subtotal*rate/100)
// and total = subtotal + tax. Line amounts are set on items.
func ComputeTotals(items []models.InvoiceItem, taxRate float64) (subtotal, tax, total int64) {
	for i := range items {
		items[i].Amount = int64(items[i].Quantity) * items[i].UnitPrice
		subtotal += items[i].Amount
	}
	tax = int64(math.Round(float64(subtotal) * taxRate / 100))
	return subtotal, tax, subtotal + tax
}

func (s *InvoiceService) apply(ctx context.Context, inv *models.Invoice, req *InvoiceRequest) error {
	if _, err := s.customers.GetByID(ctx, inv.BusinessID, req.CustomerID); err != nil {
		return err
	}
	policy, err := pricePolicy(ctx, s.businesses, inv.BusinessID)
	if err != nil {
		return err
	}
	code := policy.DefaultCurrency
	if req.Currency != "" {
		if code, err = pricing.ParseCurrency(req.Currency); err != nil {
			return err
		}
	}
	if !policy.Allows(code) {
		return fmt.Errorf("currency %s is not enabled: %w", code, utils.ErrInvalidInput)
	}

	issue := s.now().UTC().Truncate(24 * time.Hour)
	if req.IssueDate != "" {
		if issue, err = time.Parse(dateLayout, req.IssueDate); err != nil {
			return fmt.Errorf("issueDate: %w", utils.ErrInvalidInput)
		}
	}
	due := issue.AddDate(0, 0, defaultDueDays)
	if req.DueDate != "" {
		if due, err = time.Parse(dateLayout, req.DueDate); err != nil {
			return fmt.Errorf("dueDate: %w", utils.ErrInvalidInput)
		}
	}
	if due.Before(issue) {
		return fmt.Errorf("dueDate is before issueDate: %w", utils.ErrInvalidInput)
	}

	inv.CustomerID = req.CustomerID
	inv.Currency = code
	inv.IssueDate = issue
	inv.DueDate = due
	inv.TaxRate = req.TaxRate
	inv.Notes = req.Notes
	inv.Items = make([]models.InvoiceItem, len(req.Items))
	for i, it := range req.Items {
		inv.Items[i] = models.InvoiceItem{
			InvoiceID:   inv.ID,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	inv.Subtotal, inv.Tax, inv.Total = ComputeTotals(inv.Items, inv.TaxRate)
	return nil
}

// List returns a page of invoices.
func (s *InvoiceService) List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Invoice, int, error) {
	return s.invoices.List(ctx, businessID, f)
}

// Get returns an invoice with its items.
func (s *InvoiceService) Get(ctx context.Context, businessID, id int) (*models.Invoice, error) {
	return s.invoices.Get(ctx, businessID, id)
}

// Create issues a draft invoice with the next number of the business.
func (s *InvoiceService) Create(ctx context.Context, businessID int, req *InvoiceRequest) (*models.Invoice, error) {
	inv := &models.Invoice{BusinessID: businessID, Status: models.InvoiceDraft}
	if err := s.apply(ctx, inv, req); err != nil {
		return nil, err
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Update replaces a draft invoice and its items.
func (s *InvoiceService) Update(ctx context.Context, businessID, id int, req *InvoiceRequest) (*models.Invoice, error) {
	inv, err := s.invoices.Get(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceDraft {
		return nil, fmt.Errorf("invoice %s is %s: %w", inv.Number, inv.Status, utils.ErrInvalidState)
	}
	if err := s.apply(ctx, inv, req); err != nil {
		return nil, err
	}
	if err := s.invoices.UpdateDraft(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Delete removes a draft or cancelled invoice.
func (s *InvoiceService) Delete(ctx context.Context, businessID, id int) error {
	inv, err := s.invoices.Get(ctx, businessID, id)
	if err != nil {
		return err
	}
	if inv.Status != models.InvoiceDraft && inv.Status != models.InvoiceCancelled {
		return fmt.Errorf("invoice %s is %s: %w", inv.Number, inv.Status, utils.ErrInvalidState)
	}
	return s.invoices.Delete(ctx, businessID, id)
}

// Send emails the invoice to its customer. Drafts become sent.
func (s *InvoiceService) Send(ctx context.Context, businessID, id int) (*models.Invoice, error) {
	if s.mail == nil {
		return nil, fmt.Errorf("email is not configured: %w", utils.ErrUnavailable)
	}
	inv, err := s.invoices.Get(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceDraft && !inv.Status.IsOpen() {
		return nil, fmt.Errorf("invoice %s is %s: %w", inv.Number, inv.Status, utils.ErrInvalidState)
	}
	b, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	c, err := s.customers.GetByID(ctx, businessID, inv.CustomerID)
	if err != nil {
		return nil, err
	}
	if err := s.mail.SendInvoice(b, c, inv); err != nil {
		if errors.Is(err, mailer.ErrDisabled) {
			return nil, fmt.Errorf("%s: %w", err.Error(), utils.ErrUnavailable)
		}
		return nil, fmt.Errorf("send invoice %s: %w", inv.Number, err)
	}
	if inv.Status == models.InvoiceDraft {
		if err := s.invoices.SetStatus(ctx, businessID, id, models.InvoiceSent, models.InvoiceDraft); err != nil {
			return nil, err
		}
	}
	return s.invoices.Get(ctx, businessID, id)
}

// Cancel voids an unpaid invoice.
func (s *InvoiceService) Cancel(ctx context.Context, businessID, id int) (*models.Invoice, error) {
	inv, err := s.invoices.Get(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoicePaid || inv.Status == models.InvoiceCancelled {
		return nil, fmt.Errorf("invoice %s is %s: %w", inv.Number, inv.Status, utils.ErrInvalidState)
	}
	if err := s.invoices.SetStatus(ctx, businessID, id, models.InvoiceCancelled,
		models.InvoiceDraft, models.InvoiceSent, models.InvoiceOverdue); err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceCancelled
	return inv, nil
}

// MarkPaid records a successful payment for the invoice total and marks the
// invoice paid.
func (s *InvoiceService) MarkPaid(ctx context.Context, businessID, id int, req *MarkPaidRequest) (*models.Invoice, *models.Payment, error) {
	inv, err := s.invoices.Get(ctx, businessID, id)
	if err != nil {
		return nil, nil, err
	}
	if !inv.Status.IsOpen() {
		return nil, nil, fmt.Errorf("invoice %s is %s: %w", inv.Number, inv.Status, utils.ErrInvalidState)
	}
	paidAt := s.now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	ref := strings.TrimSpace(req.Reference)
	if ref == "" {
		ref = inv.Number
	}
	invoiceID := inv.ID
	p := &models.Payment{
		BusinessID: businessID,
		CustomerID: inv.CustomerID,
		InvoiceID:  &invoiceID,
		Reference:  ref,
		Amount:     inv.Total,
		Currency:   inv.Currency,
		Method:     req.Method,
		Status:     models.PaymentSuccessful,
		PaidAt:     &paidAt,
	}
	if err := s.invoices.MarkPaid(ctx, inv, p); err != nil {
		return nil, nil, err
	}

	s.dispatch(ctx, businessID, models.EventInvoicePaid, inv)
	s.dispatch(ctx, businessID, models.EventPaymentSuccessful, p)
	s.notifier.NotifyPaymentSuccessful(businessID, p)
	return inv, p, nil
}

// MarkOverdue moves sent invoices past their due date to overdue and returns
// how many changed.
func (s *InvoiceService) MarkOverdue(ctx context.Context) (int, error) {
	list, err := s.invoices.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for i := range list {
		s.dispatch(ctx, list[i].BusinessID, models.EventInvoiceOverdue, &list[i])
	}
	return len(list), nil
}

func (s *InvoiceService) dispatch(ctx context.Context, businessID int, event string, data interface{}) {
	if err := s.webhooks.Dispatch(ctx, businessID, event, data); err != nil {
		log.Error().Err(err).Int("business_id", businessID).Str("event", event).Msg("failed to queue webhook")
	}
}
