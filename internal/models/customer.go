package models

import (
	"time"

	"github.com/lib/pq"
)

// Customer is a buyer or learner belonging to one business.
type Customer struct {
	ID         int            `db:"id" json:"id"`
	BusinessID int            `db:"business_id" json:"-"`
	FirstName  string         `db:"first_name" json:"firstName"`
	LastName   string         `db:"last_name" json:"lastName"`
	Email      string         `db:"email" json:"email"`
	Phone      string         `db:"phone" json:"phone"`
	Tags       pq.StringArray `db:"tags" json:"tags"`
	Notes      string         `db:"notes" json:"notes"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updatedAt"`
}

// FullName joins first and last name.
func (c *Customer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}
