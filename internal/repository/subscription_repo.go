package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_dashboard/internal/models"
)

const (
	planColumns         = `id, business_id, name, description, interval, is_active, created_at, updated_at`
	planPriceColumns    = `id, plan_id, tier, currency, amount`
	subscriptionColumns = `id, business_id, customer_id, plan_id, tier, currency, amount, status,
    current_period_end, cancelled_at, created_at, updated_at`
)

// SubscriptionRepository provides data access for plans, plan prices and subscriptions.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// ListPlans returns a page of plans with their prices.
func (r *SubscriptionRepository) ListPlans(ctx context.Context, businessID int, f ListFilter) ([]models.SubscriptionPlan, int, error) {
	cond := scoped("business_id", businessID)
	cond.search(f.Search, "name")
	if f.Kind != "" {
		cond.add("interval = $%d", f.Kind)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM subscription_plans`+cond.where(), cond.args...); err != nil {
		return nil, 0, err
	}
	limit, args := cond.page(f.Page)
	list := []models.SubscriptionPlan{}
	q := `SELECT ` + planColumns + ` FROM subscription_plans` + cond.where() + ` ORDER BY created_at DESC, id DESC` + limit
	if err := r.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, 0, err
	}
	if err := r.attachPrices(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *SubscriptionRepository) attachPrices(ctx context.Context, plans []models.SubscriptionPlan) error {
	if len(plans) == 0 {
		return nil
	}
	ids := make([]int64, len(plans))
	byID := make(map[int]int, len(plans))
	for i, p := range plans {
		ids[i] = int64(p.ID)
		byID[p.ID] = i
		plans[i].Prices = []models.SubscriptionPlanPrice{}
	}
	var prices []models.SubscriptionPlanPrice
	if err := r.db.SelectContext(ctx, &prices,
		`SELECT `+planPriceColumns+` FROM subscription_plan_prices WHERE plan_id = ANY($1) ORDER BY tier ASC, currency ASC`,
		pq.Array(ids)); err != nil {
		return err
	}
	for _, p := range prices {
		i := byID[p.PlanID]
		plans[i].Prices = append(plans[i].Prices, p)
	}
	return nil
}

// GetPlan returns a plan with its prices.
func (r *SubscriptionRepository) GetPlan(ctx context.Context, businessID, id int) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	err := r.db.GetContext(ctx, &p,
		`SELECT `+planColumns+` FROM subscription_plans WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return nil, mapErr(err, "plan")
	}
	list := []models.SubscriptionPlan{p}
	if err := r.attachPrices(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// CreatePlan inserts a plan and its prices.
func (r *SubscriptionRepository) CreatePlan(ctx context.Context, p *models.SubscriptionPlan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT INTO subscription_plans (business_id, name, description, interval, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRowxContext(ctx, q, p.BusinessID, p.Name, p.Description, p.Interval, p.IsActive).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return mapErr(err, "plan")
	}
	if err := insertPlanPrices(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdatePlan saves plan fields and replaces its price table.
func (r *SubscriptionRepository) UpdatePlan(ctx context.Context, p *models.SubscriptionPlan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `UPDATE subscription_plans
        SET name = $1, description = $2, interval = $3, is_active = $4, updated_at = NOW()
        WHERE business_id = $5 AND id = $6
        RETURNING updated_at`
	if err := tx.QueryRowxContext(ctx, q, p.Name, p.Description, p.Interval, p.IsActive, p.BusinessID, p.ID).
		Scan(&p.UpdatedAt); err != nil {
		return mapErr(err, "plan")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM subscription_plan_prices WHERE plan_id = $1`, p.ID); err != nil {
		return err
	}
	if err := insertPlanPrices(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func insertPlanPrices(ctx context.Context, tx *sqlx.Tx, p *models.SubscriptionPlan) error {
	for i := range p.Prices {
		pr := &p.Prices[i]
		pr.PlanID = p.ID
		if err := tx.QueryRowxContext(ctx,
			`INSERT INTO subscription_plan_prices (plan_id, tier, currency, amount) VALUES ($1, $2, $3, $4) RETURNING id`,
			pr.PlanID, pr.Tier, pr.Currency, pr.Amount,
		).Scan(&pr.ID); err != nil {
			return mapErr(err, "plan price")
		}
	}
	return nil
}

// DeletePlan removes a plan that has no subscriptions.
func (r *SubscriptionRepository) DeletePlan(ctx context.Context, businessID, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscription_plans WHERE business_id = $1 AND id = $2`, businessID, id)
	return affected(res, err, "plan")
}

// List returns a page of subscriptions filtered by status and customer.
func (r *SubscriptionRepository) List(ctx context.Context, businessID int, f ListFilter) ([]models.Subscription, int, error) {
	cond := scoped("business_id", businessID)
	if f.Status != "" {
		cond.add("status = $%d", f.Status)
	}
	if f.CustomerID > 0 {
		cond.add("customer_id = $%d", f.CustomerID)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM subscriptions`+cond.where(), cond.args...); err != nil {
		return nil, 0, err
	}
	limit, args := cond.page(f.Page)
	list := []models.Subscription{}
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions` + cond.where() + ` ORDER BY created_at DESC, id DESC` + limit
	if err := r.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Get returns a subscription of the business.
func (r *SubscriptionRepository) Get(ctx context.Context, businessID, id int) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.GetContext(ctx, &s,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return nil, mapErr(err, "subscription")
	}
	return &s, nil
}

// Create inserts a subscription.
func (r *SubscriptionRepository) Create(ctx context.Context, s *models.Subscription) error {
	const q = `INSERT INTO subscriptions (business_id, customer_id, plan_id, tier, currency, amount, status, current_period_end)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q,
		s.BusinessID, s.CustomerID, s.PlanID, s.Tier, s.Currency, s.Amount, s.Status, s.CurrentPeriodEnd,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapErr(err, "subscription")
}

// Cancel marks an active subscription as cancelled.
func (r *SubscriptionRepository) Cancel(ctx context.Context, businessID, id int) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.GetContext(ctx, &s, `UPDATE subscriptions
        SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
        WHERE business_id = $1 AND id = $2 AND status = 'active'
        RETURNING `+subscriptionColumns, businessID, id)
	if err != nil {
		return nil, mapErr(err, "active subscription")
	}
	return &s, nil
}

// ExpireDue marks active subscriptions whose period ended before now as expired.
func (r *SubscriptionRepository) ExpireDue(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	list := []models.Subscription{}
	err := r.db.SelectContext(ctx, &list, `UPDATE subscriptions
        SET status = 'expired', updated_at = NOW()
        WHERE status = 'active' AND current_period_end < $1
        RETURNING `+subscriptionColumns, now)
	return list, err
}

// HasActive reports whether the customer already has an active subscription to the plan.
func (r *SubscriptionRepository) HasActive(ctx context.Context, businessID, customerID, planID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(
        SELECT 1 FROM subscriptions
        WHERE business_id = $1 AND customer_id = $2 AND plan_id = $3 AND status = 'active')`,
		businessID, customerID, planID)
	return exists, err
}
