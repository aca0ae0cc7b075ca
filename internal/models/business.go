package models

import (
	"time"

	"github.com/lib/pq"
)

// MemberRole enumerates the roles a user can hold in a business.
type MemberRole string

const (
	RoleOwner MemberRole = "owner"
	RoleAdmin MemberRole = "admin"
	RoleStaff MemberRole = "staff"
)

// Business is the tenant that scopes every dashboard query.
// The webhook secret is never serialized.
type Business struct {
	ID              int            `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Slug            string         `db:"slug" json:"slug"`
	Email           string         `db:"email" json:"email"`
	Phone           string         `db:"phone" json:"phone"`
	Country         string         `db:"country" json:"country"`
	DefaultCurrency string         `db:"default_currency" json:"defaultCurrency"`
	Currencies      pq.StringArray `db:"currencies" json:"currencies"`
	LogoURL         string         `db:"logo_url" json:"logoUrl"`
	CallbackURL     string         `db:"callback_url" json:"callbackUrl"`
	WebhookSecret   string         `db:"webhook_secret" json:"-"`
	IsActive        bool           `db:"is_active" json:"isActive"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// Membership links a user to a business with a role.
type Membership struct {
	BusinessID int        `db:"business_id" json:"businessId"`
	UserID     int        `db:"user_id" json:"userId"`
	Role       MemberRole `db:"role" json:"role"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

// CanManage reports whether the role may change business settings.
func (r MemberRole) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}
