package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

const productColumns = `id, business_id, kind, name, description, sku, stock, file_url, prices, is_active, created_at, updated_at`

// ProductRepository provides data access methods for physical and digital products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns a page of products. Kind filters physical/digital; Status
// "active" or "inactive" filters availability.
func (r *ProductRepository) List(ctx context.Context, businessID int, f ListFilter) ([]models.Product, int, error) {
	cond := scoped("business_id", businessID)
	cond.search(f.Search, "name", "sku")
	if f.Kind != "" {
		cond.add("kind = $%d", f.Kind)
	}
	switch f.Status {
	case "active":
		cond.raw("is_active")
	case "inactive":
		cond.raw("NOT is_active")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM products`+cond.where(), cond.args...); err != nil {
		return nil, 0, err
	}
	limit, args := cond.page(f.Page)
	list := []models.Product{}
	q := `SELECT ` + productColumns + ` FROM products` + cond.where() + ` ORDER BY created_at DESC, id DESC` + limit
	if err := r.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// GetByID returns a product of the business.
func (r *ProductRepository) GetByID(ctx context.Context, businessID, id int) (*models.Product, error) {
	var p models.Product
	err := r.db.GetContext(ctx, &p,
		`SELECT `+productColumns+` FROM products WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return nil, mapErr(err, "product")
	}
	return &p, nil
}

// Create inserts a product.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	const q = `INSERT INTO products (business_id, kind, name, description, sku, stock, file_url, prices, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q,
		p.BusinessID, p.Kind, p.Name, p.Description, p.SKU, p.Stock, p.FileURL, p.Prices, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapErr(err, "product")
}

// Update saves a product. Kind is immutable.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	const q = `UPDATE products
        SET name = $1, description = $2, sku = $3, stock = $4, file_url = $5, prices = $6, is_active = $7, updated_at = NOW()
        WHERE business_id = $8 AND id = $9
        RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, q,
		p.Name, p.Description, p.SKU, p.Stock, p.FileURL, p.Prices, p.IsActive, p.BusinessID, p.ID,
	).Scan(&p.UpdatedAt)
	return mapErr(err, "product")
}

// Delete removes a product.
func (r *ProductRepository) Delete(ctx context.Context, businessID, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE business_id = $1 AND id = $2`, businessID, id)
	return affected(res, err, "product")
}

// AdjustStock adds delta to a physical product's stock. Stock never goes negative.
func (r *ProductRepository) AdjustStock(ctx context.Context, businessID, id, delta int) (int, error) {
	var stock int
	err := r.db.QueryRowxContext(ctx, `UPDATE products SET stock = stock + $1, updated_at = NOW()
        WHERE business_id = $2 AND id = $3 AND kind = 'physical' AND stock + $1 >= 0
        RETURNING stock`, delta, businessID, id).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("stock of product %d cannot change by %d: %w", id, delta, utils.ErrInvalidState)
	}
	return stock, err
}
