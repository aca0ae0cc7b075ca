package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type fakePayments struct {
	items map[int]*models.Payment
}

func (f *fakePayments) List(_ context.Context, businessID int, _ repository.ListFilter) ([]models.Payment, int, error) {
	out := []models.Payment{}
	for _, p := range f.items {
		if p.BusinessID == businessID {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (f *fakePayments) Get(_ context.Context, businessID, id int) (*models.Payment, error) {
	p, ok := f.items[id]
	if !ok || p.BusinessID != businessID {
		return nil, notFound("payment")
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) Create(_ context.Context, p *models.Payment) error {
	p.ID = len(f.items) + 1
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakePayments) UpdateStatus(_ context.Context, p *models.Payment) error {
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

type paymentFixture struct {
	svc      *PaymentService
	payments *fakePayments
	invoices *fakeInvoices
	hooks    *fakeDispatcher
	notifier *fakeNotifier
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		payments: &fakePayments{items: map[int]*models.Payment{}},
		invoices: newFakeInvoices(),
		hooks:    &fakeDispatcher{},
		notifier: &fakeNotifier{},
	}
	businesses := newFakeBusinesses(&models.Business{ID: 1, DefaultCurrency: "USD"})
	customers := newFakeCustomers(
		&models.Customer{ID: 5, BusinessID: 1, Email: "ada@example.com"},
		&models.Customer{ID: 6, BusinessID: 1, Email: "alan@example.com"},
	)
	f.invoices.items[9] = &models.Invoice{ID: 9, BusinessID: 1, CustomerID: 5, Number: "INV-000009", Currency: "USD", Total: 4400, Status: models.InvoiceSent}
	f.svc = NewPaymentService(f.payments, f.invoices, customers, businesses, f.hooks, f.notifier)
	f.svc.now = func() time.Time { return time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC) }
	return f
}

func TestPaymentService_RecordStandalone(t *testing.T) {
	f := newPaymentFixture()

	p, err := f.svc.Record(context.Background(), 1, &PaymentRequest{
		CustomerID: 5, Reference: " TRX-1 ", Amount: 2500, Currency: "usd", Method: "cash",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccessful, p.Status)
	assert.Equal(t, "TRX-1", p.Reference)
	assert.Equal(t, "USD", p.Currency)
	require.NotNil(t, p.PaidAt)
	assert.Equal(t, []string{models.EventPaymentSuccessful}, f.hooks.names())
	assert.Len(t, f.notifier.payments, 1)
}

func TestPaymentService_RecordSettlesInvoice(t *testing.T) {
	f := newPaymentFixture()
	invoiceID := 9

	p, err := f.svc.Record(context.Background(), 1, &PaymentRequest{
		CustomerID: 5, InvoiceID: &invoiceID, Reference: "TRX-2", Amount: 4400, Currency: "USD", Method: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, f.invoices.items[9].Status)
	assert.Len(t, f.invoices.payments, 1)
	assert.Empty(t, f.payments.items, "invoice payments are stored with the invoice update")
	assert.Equal(t, []string{models.EventPaymentSuccessful, models.EventInvoicePaid}, f.hooks.names())
	assert.Equal(t, "TRX-2", p.Reference)
}

func TestPaymentService_RecordRejectsMismatchedInvoice(t *testing.T) {
	f := newPaymentFixture()
	invoiceID := 9
	ctx := context.Background()

	_, err := f.svc.Record(ctx, 1, &PaymentRequest{CustomerID: 5, InvoiceID: &invoiceID, Reference: "a", Amount: 100, Currency: "USD", Method: "card"})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	_, err = f.svc.Record(ctx, 1, &PaymentRequest{CustomerID: 6, InvoiceID: &invoiceID, Reference: "b", Amount: 4400, Currency: "USD", Method: "card"})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	_, err = f.svc.Record(ctx, 1, &PaymentRequest{CustomerID: 5, Reference: "c", Amount: 100, Currency: "EUR", Method: "card"})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	f.invoices.items[9].Status = models.InvoicePaid
	_, err = f.svc.Record(ctx, 1, &PaymentRequest{CustomerID: 5, InvoiceID: &invoiceID, Reference: "d", Amount: 4400, Currency: "USD", Method: "card"})
	assert.ErrorIs(t, err, utils.ErrInvalidState)
}

func TestPaymentService_PendingThenSettled(t *testing.T) {
	f := newPaymentFixture()
	invoiceID := 9
	ctx := context.Background()

	p, err := f.svc.Record(ctx, 1, &PaymentRequest{
		CustomerID: 5, InvoiceID: &invoiceID, Reference: "VA-1", Amount: 4400, Currency: "USD", Method: "virtual_account",
		Status: models.PaymentPending,
	})
	require.NoError(t, err)
	assert.Nil(t, p.PaidAt)
	assert.Empty(t, f.hooks.names())
	assert.Equal(t, models.InvoiceSent, f.invoices.items[9].Status)

	settled, err := f.svc.UpdateStatus(ctx, 1, p.ID, &PaymentStatusRequest{Status: models.PaymentSuccessful})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccessful, settled.Status)
	assert.Equal(t, models.InvoicePaid, f.invoices.items[9].Status)
	assert.Equal(t, []string{models.EventPaymentSuccessful, models.EventInvoicePaid}, f.hooks.names())

	_, err = f.svc.UpdateStatus(ctx, 1, p.ID, &PaymentStatusRequest{Status: models.PaymentFailed})
	assert.ErrorIs(t, err, utils.ErrInvalidState)
}
