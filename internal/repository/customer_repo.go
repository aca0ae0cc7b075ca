package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_dashboard/internal/models"
)

const customerColumns = `id, business_id, first_name, last_name, email, phone, tags, notes, created_at, updated_at`

// CustomerRepository provides data access methods for the customers table.
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// List returns a page of customers matching the filter and the total count.
// Search matches names, email and phone; Kind filters by tag.
func (r *CustomerRepository) List(ctx context.Context, businessID int, f ListFilter) ([]models.Customer, int, error) {
	cond := scoped("business_id", businessID)
	cond.search(f.Search, "first_name", "last_name", "email", "phone")
	if f.Kind != "" {
		cond.add("$%d = ANY(tags)", f.Kind)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM customers`+cond.where(), cond.args...); err != nil {
		return nil, 0, err
	}

	limit, args := cond.page(f.Page)
	list := []models.Customer{}
	q := `SELECT ` + customerColumns + ` FROM customers` + cond.where() + ` ORDER BY created_at DESC, id DESC` + limit
	if err := r.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// All returns every customer of a business, oldest first.
func (r *CustomerRepository) All(ctx context.Context, businessID int) ([]models.Customer, error) {
	list := []models.Customer{}
	err := r.db.SelectContext(ctx, &list,
		`SELECT `+customerColumns+` FROM customers WHERE business_id = $1 ORDER BY id ASC`, businessID)
	return list, err
}

// GetByID returns a customer of the business.
func (r *CustomerRepository) GetByID(ctx context.Context, businessID, id int) (*models.Customer, error) {
	var c models.Customer
	err := r.db.GetContext(ctx, &c,
		`SELECT `+customerColumns+` FROM customers WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return nil, mapErr(err, "customer")
	}
	return &c, nil
}

// Create inserts a customer. A duplicate email in the business yields ErrDuplicate.
func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	const q = `INSERT INTO customers (business_id, first_name, last_name, email, phone, tags, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q,
		c.BusinessID, c.FirstName, c.LastName, c.Email, c.Phone, c.Tags, c.Notes,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapErr(err, "customer")
}

// InsertIfAbsent inserts a customer unless the email is already taken in the
// business. It reports whether a row was inserted.
func (r *CustomerRepository) InsertIfAbsent(ctx context.Context, c *models.Customer) (bool, error) {
	const q = `INSERT INTO customers (business_id, first_name, last_name, email, phone, tags, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (business_id, LOWER(email)) DO NOTHING
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q,
		c.BusinessID, c.FirstName, c.LastName, c.Email, c.Phone, c.Tags, c.Notes,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapErr(err, "customer")
	}
	return true, nil
}

// Update saves a customer.
func (r *CustomerRepository) Update(ctx context.Context, c *models.Customer) error {
	const q = `UPDATE customers
        SET first_name = $1, last_name = $2, email = $3, phone = $4, tags = $5, notes = $6, updated_at = NOW()
        WHERE business_id = $7 AND id = $8
        RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, q,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Tags, c.Notes, c.BusinessID, c.ID,
	).Scan(&c.UpdatedAt)
	return mapErr(err, "customer")
}

// Delete removes a customer.
func (r *CustomerRepository) Delete(ctx context.Context, businessID, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE business_id = $1 AND id = $2`, businessID, id)
	return affected(res, err, "customer")
}
