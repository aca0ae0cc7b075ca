package models

import "time"

// PlanInterval enumerates billing intervals.
type PlanInterval string

const (
	IntervalMonthly   PlanInterval = "monthly"
	IntervalQuarterly PlanInterval = "quarterly"
	IntervalYearly    PlanInterval = "yearly"
)

// Next returns the end of a period that starts at from.
func (i PlanInterval) Next(from time.Time) time.Time {
	switch i {
	case IntervalQuarterly:
		return from.AddDate(0, 3, 0)
	case IntervalYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// SubscriptionPlan is a recurring offer with per-tier, per-currency prices.
type SubscriptionPlan struct {
	ID          int          `db:"id" json:"id"`
	BusinessID  int          `db:"business_id" json:"-"`
	Name        string       `db:"name" json:"name"`
	Description string       `db:"description" json:"description"`
	Interval    PlanInterval `db:"interval" json:"interval"`
	IsActive    bool         `db:"is_active" json:"isActive"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updatedAt"`

	Prices []SubscriptionPlanPrice `db:"-" json:"prices"`
}

// SubscriptionPlanPrice is one row of a plan's price table.
type SubscriptionPlanPrice struct {
	ID       int    `db:"id" json:"id"`
	PlanID   int    `db:"plan_id" json:"planId"`
	Tier     string `db:"tier" json:"tier"`
	Currency string `db:"currency" json:"currency"`
	Amount   int64  `db:"amount" json:"amount"`
}

// SubscriptionStatus enumerates subscription states.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription binds a customer to a plan price.
type Subscription struct {
	ID               int                `db:"id" json:"id"`
	BusinessID       int                `db:"business_id" json:"-"`
	CustomerID       int                `db:"customer_id" json:"customerId"`
	PlanID           int                `db:"plan_id" json:"planId"`
	Tier             string             `db:"tier" json:"tier"`
	Currency         string             `db:"currency" json:"currency"`
	Amount           int64              `db:"amount" json:"amount"`
	Status           SubscriptionStatus `db:"status" json:"status"`
	CurrentPeriodEnd time.Time          `db:"current_period_end" json:"currentPeriodEnd"`
	CancelledAt      *time.Time         `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CreatedAt        time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updatedAt"`
}
