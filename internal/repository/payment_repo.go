package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_dashboard/internal/models"
)

const paymentColumns = `id, business_id, customer_id, invoice_id, reference, amount, currency, method, status,
    paid_at, created_at, updated_at`

// PaymentRepository provides data access methods for the payments table.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// List returns a page of payments filtered by status, customer and reference search.
func (r *PaymentRepository) List(ctx context.Context, businessID int, f ListFilter) ([]models.Payment, int, error) {
	cond := scoped("business_id", businessID)
	cond.search(f.Search, "reference", "method")
	if f.Status != "" {
		cond.add("status = $%d", f.Status)
	}
	if f.CustomerID > 0 {
		cond.add("customer_id = $%d", f.CustomerID)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM payments`+cond.where(), cond.args...); err != nil {
		return nil, 0, err
	}
	limit, args := cond.page(f.Page)
	list := []models.Payment{}
	q := `SELECT ` + paymentColumns + ` FROM payments` + cond.where() + ` ORDER BY created_at DESC, id DESC` + limit
	if err := r.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Get returns a payment of the business.
func (r *PaymentRepository) Get(ctx context.Context, businessID, id int) (*models.Payment, error) {
	var p models.Payment
	err := r.db.GetContext(ctx, &p,
		`SELECT `+paymentColumns+` FROM payments WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return nil, mapErr(err, "payment")
	}
	return &p, nil
}

// Create inserts a payment. A reused reference yields ErrDuplicate.
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return insertPayment(ctx, r.db, p)
}

func insertPayment(ctx context.Context, q sqlx.QueryerContext, p *models.Payment) error {
	err := q.QueryRowxContext(ctx, `INSERT INTO payments (business_id, customer_id, invoice_id, reference,
            amount, currency, method, status, paid_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`,
		p.BusinessID, p.CustomerID, p.InvoiceID, p.Reference, p.Amount, p.Currency, p.Method, p.Status, p.PaidAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapErr(err, "payment "+p.Reference)
}

// UpdateStatus moves a pending payment to a final status.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, p *models.Payment) error {
	err := r.db.QueryRowxContext(ctx, `UPDATE payments SET status = $1, paid_at = $2, updated_at = NOW()
        WHERE business_id = $3 AND id = $4 AND status = 'pending'
        RETURNING updated_at`, p.Status, p.PaidAt, p.BusinessID, p.ID).Scan(&p.UpdatedAt)
	return mapErr(err, "pending payment")
}
