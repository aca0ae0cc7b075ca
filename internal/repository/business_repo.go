package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_dashboard/internal/models"
)

const businessColumns = `id, name, slug, email, phone, country, default_currency, currencies,
    logo_url, callback_url, webhook_secret, is_active, created_at, updated_at`

// BusinessWithRole is a business as seen by one member.
type BusinessWithRole struct {
	models.Business
	Role models.MemberRole `db:"role" json:"role"`
}

// BusinessRepository provides data access for businesses and memberships.
type BusinessRepository struct {
	db *sqlx.DB
}

// NewBusinessRepository creates a new BusinessRepository.
func NewBusinessRepository(db *sqlx.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// Create inserts a business and makes ownerID its owner in one transaction.
func (r *BusinessRepository) Create(ctx context.Context, b *models.Business, ownerID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT INTO businesses (name, slug, email, phone, country, default_currency, currencies,
            logo_url, callback_url, webhook_secret, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRowxContext(ctx, q,
		b.Name, b.Slug, b.Email, b.Phone, b.Country, b.DefaultCurrency, b.Currencies,
		b.LogoURL, b.CallbackURL, b.WebhookSecret, b.IsActive,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return mapErr(err, "business")
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO business_members (business_id, user_id, role) VALUES ($1, $2, $3)`,
		b.ID, ownerID, models.RoleOwner,
	); err != nil {
		return mapErr(err, "membership")
	}
	return tx.Commit()
}

// GetByID returns a business.
func (r *BusinessRepository) GetByID(ctx context.Context, id int) (*models.Business, error) {
	var b models.Business
	if err := r.db.GetContext(ctx, &b, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id); err != nil {
		return nil, mapErr(err, "business")
	}
	return &b, nil
}

// ListForUser returns every business the user belongs to.
func (r *BusinessRepository) ListForUser(ctx context.Context, userID int) ([]BusinessWithRole, error) {
	const q = `SELECT b.id, b.name, b.slug, b.email, b.phone, b.country, b.default_currency, b.currencies,
            b.logo_url, b.callback_url, b.webhook_secret, b.is_active, b.created_at, b.updated_at, m.role
        FROM businesses b
        JOIN business_members m ON m.business_id = b.id
        WHERE m.user_id = $1
        ORDER BY b.name ASC`
	list := []BusinessWithRole{}
	if err := r.db.SelectContext(ctx, &list, q, userID); err != nil {
		return nil, err
	}
	return list, nil
}

// Update saves the editable business fields.
func (r *BusinessRepository) Update(ctx context.Context, b *models.Business) error {
	const q = `UPDATE businesses
        SET name = $1, email = $2, phone = $3, country = $4, default_currency = $5,
            currencies = $6, logo_url = $7, callback_url = $8, updated_at = NOW()
        WHERE id = $9
        RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, q,
		b.Name, b.Email, b.Phone, b.Country, b.DefaultCurrency,
		b.Currencies, b.LogoURL, b.CallbackURL, b.ID,
	).Scan(&b.UpdatedAt)
	return mapErr(err, "business")
}

// RotateWebhookSecret replaces the webhook signing secret.
func (r *BusinessRepository) RotateWebhookSecret(ctx context.Context, id int, secret string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE businesses SET webhook_secret = $1, updated_at = NOW() WHERE id = $2`, secret, id)
	return affected(res, err, "business")
}

// GetMembership returns the user's membership in a business.
func (r *BusinessRepository) GetMembership(ctx context.Context, businessID, userID int) (*models.Membership, error) {
	var m models.Membership
	err := r.db.GetContext(ctx, &m,
		`SELECT business_id, user_id, role, created_at FROM business_members WHERE business_id = $1 AND user_id = $2`,
		businessID, userID)
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("membership of user %d", userID))
	}
	return &m, nil
}

// AddMember adds or re-roles a member.
func (r *BusinessRepository) AddMember(ctx context.Context, m *models.Membership) error {
	const q = `INSERT INTO business_members (business_id, user_id, role) VALUES ($1, $2, $3)
        ON CONFLICT (business_id, user_id) DO UPDATE SET role = EXCLUDED.role
        RETURNING created_at`
	err := r.db.QueryRowxContext(ctx, q, m.BusinessID, m.UserID, m.Role).Scan(&m.CreatedAt)
	return mapErr(err, "membership")
}

// ListMembers returns the members of a business.
func (r *BusinessRepository) ListMembers(ctx context.Context, businessID int) ([]models.Membership, error) {
	list := []models.Membership{}
	err := r.db.SelectContext(ctx, &list,
		`SELECT business_id, user_id, role, created_at FROM business_members WHERE business_id = $1 ORDER BY created_at ASC`,
		businessID)
	return list, err
}
