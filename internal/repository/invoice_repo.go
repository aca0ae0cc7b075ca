package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_dashboard/internal/models"
)

const (
	invoiceColumns = `id, business_id, customer_id, number, currency, status, issue_date, due_date, tax_rate,
    subtotal, tax, total, notes, sent_at, paid_at, created_at, updated_at`
	invoiceItemColumns = `id, invoice_id, description, quantity, unit_price, amount`
)

// InvoiceNumber formats the per-business sequence number of an invoice.
func InvoiceNumber(seq int) string {
	return fmt.Sprintf("INV-%06d", seq)
}

// InvoiceRepository provides data access for invoices and their items.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository creates a new InvoiceRepository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// List returns a page of invoices without items.
func (r *InvoiceRepository) List(ctx context.Context, businessID int, f ListFilter) ([]models.Invoice, int, error) {
	cond := scoped("business_id", businessID)
	cond.search(f.Search, "number", "notes")
	if f.Status != "" {
		cond.add("status = $%d", f.Status)
	}
	if f.CustomerID > 0 {
		cond.add("customer_id = $%d", f.CustomerID)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM invoices`+cond.where(), cond.args...); err != nil {
		return nil, 0, err
	}
	limit, args := cond.page(f.Page)
	list := []models.Invoice{}
	q := `SELECT ` + invoiceColumns + ` FROM invoices` + cond.where() + ` ORDER BY issue_date DESC, id DESC` + limit
	if err := r.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Get returns an invoice with its items.
func (r *InvoiceRepository) Get(ctx context.Context, businessID, id int) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.GetContext(ctx, &inv,
		`SELECT `+invoiceColumns+` FROM invoices WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return nil, mapErr(err, "invoice")
	}
	inv.Items = []models.InvoiceItem{}
	if err := r.db.SelectContext(ctx, &inv.Items,
		`SELECT `+invoiceItemColumns+` FROM invoice_items WHERE invoice_id = $1 ORDER BY id ASC`, id); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create numbers and inserts an invoice with its items. Numbering is
// serialized per business with a transaction-scoped advisory lock.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, inv.BusinessID); err != nil {
		return err
	}
	var seq int
	if err := tx.GetContext(ctx, &seq,
		`SELECT COALESCE(MAX(CAST(SUBSTRING(number FROM 5) AS INT)), 0) + 1 FROM invoices WHERE business_id = $1`,
		inv.BusinessID); err != nil {
		return err
	}
	inv.Number = InvoiceNumber(seq)

	const q = `INSERT INTO invoices (business_id, customer_id, number, currency, status, issue_date, due_date,
            tax_rate, subtotal, tax, total, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRowxContext(ctx, q,
		inv.BusinessID, inv.CustomerID, inv.Number, inv.Currency, inv.Status, inv.IssueDate, inv.DueDate,
		inv.TaxRate, inv.Subtotal, inv.Tax, inv.Total, inv.Notes,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return mapErr(err, "invoice")
	}
	if err := insertItems(ctx, tx, inv); err != nil {
		return err
	}
	return tx.Commit()
}

func insertItems(ctx context.Context, tx *sqlx.Tx, inv *models.Invoice) error {
	for i := range inv.Items {
		it := &inv.Items[i]
		it.InvoiceID = inv.ID
		if err := tx.QueryRowxContext(ctx,
			`INSERT INTO invoice_items (invoice_id, description, quantity, unit_price, amount)
            VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			it.InvoiceID, it.Description, it.Quantity, it.UnitPrice, it.Amount,
		).Scan(&it.ID); err != nil {
			return mapErr(err, "invoice item")
		}
	}
	return nil
}

// UpdateDraft saves a draft invoice and replaces its items.
func (r *InvoiceRepository) UpdateDraft(ctx context.Context, inv *models.Invoice) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `UPDATE invoices
        SET customer_id = $1, currency = $2, issue_date = $3, due_date = $4, tax_rate = $5,
            subtotal = $6, tax = $7, total = $8, notes = $9, updated_at = NOW()
        WHERE business_id = $10 AND id = $11 AND status = 'draft'
        RETURNING updated_at`
	if err := tx.QueryRowxContext(ctx, q,
		inv.CustomerID, inv.Currency, inv.IssueDate, inv.DueDate, inv.TaxRate,
		inv.Subtotal, inv.Tax, inv.Total, inv.Notes, inv.BusinessID, inv.ID,
	).Scan(&inv.UpdatedAt); err != nil {
		return mapErr(err, "draft invoice")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, inv); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a draft or cancelled invoice.
func (r *InvoiceRepository) Delete(ctx context.Context, businessID, id int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM invoices WHERE business_id = $1 AND id = $2 AND status IN ('draft', 'cancelled')`, businessID, id)
	return affected(res, err, "deletable invoice")
}

// SetStatus moves an invoice from one of the allowed states to status.
func (r *InvoiceRepository) SetStatus(ctx context.Context, businessID, id int, status models.InvoiceStatus, from ...models.InvoiceStatus) error {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	q := `UPDATE invoices SET status = $1, updated_at = NOW()`
	switch status {
	case models.InvoiceSent:
		q += `, sent_at = NOW()`
	case models.InvoicePaid:
		q += `, paid_at = NOW()`
	}
	q += ` WHERE business_id = $2 AND id = $3 AND status = ANY($4)`
	res, err := r.db.ExecContext(ctx, q, status, businessID, id, pq.Array(allowed))
	return affected(res, err, "invoice in state "+fmt.Sprint(from))
}

// MarkPaid records a payment against an open invoice and marks it paid.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, inv *models.Invoice, p *models.Payment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.QueryRowxContext(ctx, `UPDATE invoices SET status = 'paid', paid_at = $1, updated_at = NOW()
        WHERE business_id = $2 AND id = $3 AND status IN ('sent', 'overdue')
        RETURNING status, paid_at, updated_at`, p.PaidAt, inv.BusinessID, inv.ID,
	).Scan(&inv.Status, &inv.PaidAt, &inv.UpdatedAt); err != nil {
		return mapErr(err, "open invoice")
	}
	if err := insertPayment(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkOverdue moves sent invoices due before today to overdue and returns them.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	list := []models.Invoice{}
	err := r.db.SelectContext(ctx, &list, `UPDATE invoices SET status = 'overdue', updated_at = NOW()
        WHERE status = 'sent' AND due_date < $1::date
        RETURNING `+invoiceColumns, now)
	return list, err
}
