// Package mailer sends transactional email over SMTP.
package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"gopkg.in/gomail.v2"

	"github.com/GTDGit/gtd_dashboard/internal/config"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/pricing"
)

// ErrDisabled is returned when no SMTP relay is configured.
var ErrDisabled = errors.New("smtp is not configured")

// Mailer delivers dashboard email.
type Mailer struct {
	from   string
	sender gomail.Sender
	dialer *gomail.Dialer
}

// New creates a Mailer dialing the configured relay for every send.
func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// NewWithSender creates a Mailer that hands messages to sender.
func NewWithSender(from string, sender gomail.Sender) *Mailer {
	return &Mailer{from: from, sender: sender}
}

func (m *Mailer) send(msg *gomail.Message) error {
	if m.sender != nil {
		return gomail.Send(m.sender, msg)
	}
	if m.dialer == nil || m.dialer.Host == "" {
		return ErrDisabled
	}
	return m.dialer.DialAndSend(msg)
}

// InvoiceLine is an invoice item prepared for display.
type InvoiceLine struct {
	Description string
	Quantity    int
	UnitPrice   string
	Amount      string
}

type invoiceView struct {
	Business string
	Customer string
	Number   string
	DueDate  string
	Lines    []InvoiceLine
	Subtotal string
	Tax      string
	Total    string
	Notes    string
}

var invoiceHTML = template.Must(template.New("invoice").Parse(`<html>
<body>
<h2>Invoice {{.Number}} from {{.Business}}</h2>
<p>Hi {{.Customer}},</p>
<p>Please find your invoice below. Payment is due on {{.DueDate}}.</p>
<table cellpadding="6">
<tr><th align="left">Item</th><th>Qty</th><th align="right">Unit</th><th align="right">Amount</th></tr>
{{range .Lines}}<tr><td>{{.Description}}</td><td align="center">{{.Quantity}}</td><td align="right">{{.UnitPrice}}</td><td align="right">{{.Amount}}</td></tr>
{{end}}</table>
<p>Subtotal: {{.Subtotal}}<br>Tax: {{.Tax}}<br><strong>Total: {{.Total}}</strong></p>
{{if .Notes}}<p>{{.Notes}}</p>{{end}}
</body>
</html>`))

var invoiceText = texttemplate.Must(texttemplate.New("invoice").Parse(`Invoice {{.Number}} from {{.Business}}

Hi {{.Customer}},

Payment is due on {{.DueDate}}.
{{range .Lines}}
- {{.Description}} x{{.Quantity}} @ {{.UnitPrice}} = {{.Amount}}{{end}}

Subtotal: {{.Subtotal}}
Tax: {{.Tax}}
Total: {{.Total}}
{{if .Notes}}
{{.Notes}}{{end}}
`))

// SendInvoice emails an invoice to the customer, with the business as reply-to.
func (m *Mailer) SendInvoice(b *models.Business, c *models.Customer, inv *models.Invoice) error {
	view := invoiceView{
		Business: b.Name,
		Customer: c.FullName(),
		Number:   inv.Number,
		DueDate:  inv.DueDate.Format("2 January 2006"),
		Subtotal: pricing.Format(inv.Subtotal, inv.Currency),
		Tax:      pricing.Format(inv.Tax, inv.Currency),
		Total:    pricing.Format(inv.Total, inv.Currency),
		Notes:    inv.Notes,
	}
	for _, it := range inv.Items {
		view.Lines = append(view.Lines, InvoiceLine{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   pricing.Format(it.UnitPrice, inv.Currency),
			Amount:      pricing.Format(it.Amount, inv.Currency),
		})
	}

	var htmlBody, plainBody bytes.Buffer
	if err := invoiceHTML.Execute(&htmlBody, view); err != nil {
		return fmt.Errorf("render invoice email: %w", err)
	}
	if err := invoiceText.Execute(&plainBody, view); err != nil {
		return fmt.Errorf("render invoice email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, b.Name)
	msg.SetHeader("To", c.Email)
	if b.Email != "" {
		msg.SetHeader("Reply-To", b.Email)
	}
	msg.SetHeader("Subject", fmt.Sprintf("Invoice %s from %s", inv.Number, b.Name))
	msg.SetBody("text/plain", plainBody.String())
	msg.AddAlternative("text/html", htmlBody.String())

	if err := m.send(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
