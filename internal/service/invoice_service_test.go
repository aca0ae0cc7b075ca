package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_dashboard/internal/mailer"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) SendInvoice(_ *models.Business, c *models.Customer, inv *models.Invoice) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, c.Email+":"+inv.Number)
	return nil
}

type invoiceFixture struct {
	svc      *InvoiceService
	invoices *fakeInvoices
	hooks    *fakeDispatcher
	notifier *fakeNotifier
	mail     *fakeMailer
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()
	f := &invoiceFixture{
		invoices: newFakeInvoices(),
		hooks:    &fakeDispatcher{},
		notifier: &fakeNotifier{},
		mail:     &fakeMailer{},
	}
	businesses := newFakeBusinesses(&models.Business{ID: 1, DefaultCurrency: "USD", Currencies: []string{"EUR"}})
	customers := newFakeCustomers(&models.Customer{ID: 5, BusinessID: 1, Email: "ada@example.com"})
	f.svc = NewInvoiceService(f.invoices, customers, businesses, f.mail, f.hooks, f.notifier)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }
	return f
}

func invoiceRequest() *InvoiceRequest {
	return &InvoiceRequest{
		CustomerID: 5,
		TaxRate:    10,
		Items: []InvoiceItemRequest{
			{Description: " Workshop ", Quantity: 2, UnitPrice: 1500},
			{Description: "Handbook", Quantity: 1, UnitPrice: 999},
		},
	}
}

func TestComputeTotals(t *testing.T) {
	items := []models.InvoiceItem{{Quantity: 3, UnitPrice: 333}, {Quantity: 1, UnitPrice: 1}}
	sub, tax, total := ComputeTotals(items, 7.5)

	assert.Equal(t, int64(1000), sub)
	assert.Equal(t, int64(75), tax)
	assert.Equal(t, int64(1075), total)
	assert.Equal(t, int64(999), items[0].Amount)
}

func TestComputeTotals_RoundsTax(t *testing.T) {
	_, tax, total := ComputeTotals([]models.InvoiceItem{{Quantity: 1, UnitPrice: 105}}, 10)
	assert.Equal(t, int64(11), tax)
	assert.Equal(t, int64(116), total)
}

func TestInvoiceService_CreateDefaults(t *testing.T) {
	f := newInvoiceFixture(t)

	inv, err := f.svc.Create(context.Background(), 1, invoiceRequest())
	require.NoError(t, err)

	assert.Equal(t, "INV-000001", inv.Number)
	assert.Equal(t, models.InvoiceDraft, inv.Status)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, "2026-03-10", inv.IssueDate.Format(dateLayout))
	assert.Equal(t, "2026-03-24", inv.DueDate.Format(dateLayout))
	assert.Equal(t, int64(3999), inv.Subtotal)
	assert.Equal(t, int64(400), inv.Tax)
	assert.Equal(t, int64(4399), inv.Total)
	assert.Equal(t, "Workshop", inv.Items[0].Description)
}

func TestInvoiceService_CreateValidation(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()

	req := invoiceRequest()
	req.Currency = "JPY"
	_, err := f.svc.Create(ctx, 1, req)
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	req = invoiceRequest()
	req.IssueDate, req.DueDate = "2026-03-10", "2026-03-01"
	_, err = f.svc.Create(ctx, 1, req)
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	req = invoiceRequest()
	req.CustomerID = 404
	_, err = f.svc.Create(ctx, 1, req)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	req = invoiceRequest()
	req.Currency = "eur"
	inv, err := f.svc.Create(ctx, 1, req)
	require.NoError(t, err)
	assert.Equal(t, "EUR", inv.Currency)
}

func TestInvoiceService_UpdateOnlyDrafts(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, 1, invoiceRequest())
	require.NoError(t, err)
	f.invoices.items[inv.ID].Status = models.InvoiceSent

	_, err = f.svc.Update(ctx, 1, inv.ID, invoiceRequest())
	assert.ErrorIs(t, err, utils.ErrInvalidState)
}

func TestInvoiceService_SendMovesDraftToSent(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, 1, invoiceRequest())
	require.NoError(t, err)

	sent, err := f.svc.Send(ctx, 1, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceSent, sent.Status)
	assert.Equal(t, []string{"ada@example.com:INV-000001"}, f.mail.sent)
}

func TestInvoiceService_SendWithoutMailer(t *testing.T) {
	f := newInvoiceFixture(t)
	f.svc.mail = nil
	_, err := f.svc.Send(context.Background(), 1, 1)
	assert.ErrorIs(t, err, utils.ErrUnavailable)

	f = newInvoiceFixture(t)
	f.mail.err = mailer.ErrDisabled
	inv, err := f.svc.Create(context.Background(), 1, invoiceRequest())
	require.NoError(t, err)
	_, err = f.svc.Send(context.Background(), 1, inv.ID)
	assert.ErrorIs(t, err, utils.ErrUnavailable)
}

func TestInvoiceService_MarkPaid(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, 1, invoiceRequest())
	require.NoError(t, err)

	_, _, err = f.svc.MarkPaid(ctx, 1, inv.ID, &MarkPaidRequest{Method: "bank_transfer"})
	assert.ErrorIs(t, err, utils.ErrInvalidState, "drafts are not payable")

	f.invoices.items[inv.ID].Status = models.InvoiceSent
	paid, p, err := f.svc.MarkPaid(ctx, 1, inv.ID, &MarkPaidRequest{Method: "bank_transfer"})
	require.NoError(t, err)

	assert.Equal(t, models.InvoicePaid, paid.Status)
	assert.Equal(t, inv.Total, p.Amount)
	assert.Equal(t, "INV-000001", p.Reference)
	assert.Equal(t, models.PaymentSuccessful, p.Status)
	require.NotNil(t, p.InvoiceID)
	assert.Equal(t, inv.ID, *p.InvoiceID)
	assert.Equal(t, []string{models.EventInvoicePaid, models.EventPaymentSuccessful}, f.hooks.names())
	assert.Len(t, f.notifier.payments, 1)
}

func TestInvoiceService_CancelPaidFails(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, 1, invoiceRequest())
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, 1, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceCancelled, cancelled.Status)

	_, err = f.svc.Cancel(ctx, 1, inv.ID)
	assert.ErrorIs(t, err, utils.ErrInvalidState)
}

func TestInvoiceService_MarkOverdueDispatches(t *testing.T) {
	f := newInvoiceFixture(t)
	f.invoices.overdue = []models.Invoice{{ID: 3, BusinessID: 1}, {ID: 4, BusinessID: 2}}

	n, err := f.svc.MarkOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{models.EventInvoiceOverdue, models.EventInvoiceOverdue}, f.hooks.names())
}
