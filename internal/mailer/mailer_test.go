package mailer

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/GTDGit/gtd_dashboard/internal/config"
	"github.com/GTDGit/gtd_dashboard/internal/models"
)

func TestSendInvoice(t *testing.T) {
	var (
		gotFrom string
		gotTo   []string
		raw     bytes.Buffer
	)
	sender := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		gotFrom = from
		gotTo = to
		_, err := msg.WriteTo(&raw)
		return err
	})
	m := NewWithSender("billing@dash.example", sender)

	inv := &models.Invoice{
		Number:   "INV-000007",
		Currency: "USD",
		DueDate:  time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		Subtotal: 10000,
		Tax:      1100,
		Total:    11100,
		Items: []models.InvoiceItem{
			{Description: "Workshop seat", Quantity: 2, UnitPrice: 5000, Amount: 10000},
		},
	}
	b := &models.Business{Name: "Acme Academy", Email: "hello@acme.example"}
	c := &models.Customer{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}

	require.NoError(t, m.SendInvoice(b, c, inv))

	assert.Equal(t, "billing@dash.example", gotFrom)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	body := raw.String()
	assert.Contains(t, body, "Subject: Invoice INV-000007 from Acme Academy")
	assert.Contains(t, body, "Reply-To: hello@acme.example")
	assert.Contains(t, body, "USD 111.00")
	assert.Contains(t, body, "30 April 2025")
}

func TestSendInvoice_Disabled(t *testing.T) {
	m := New(config.SMTPConfig{})
	err := m.SendInvoice(&models.Business{Name: "B"}, &models.Customer{Email: "a@b.co"}, &models.Invoice{Currency: "USD"})
	assert.ErrorIs(t, err, ErrDisabled)
}
