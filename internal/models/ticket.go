package models

import "time"

// Ticket is a ticketed event sold in tiers.
type Ticket struct {
	ID          int       `db:"id" json:"id"`
	BusinessID  int       `db:"business_id" json:"-"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Venue       string    `db:"venue" json:"venue"`
	StartsAt    time.Time `db:"starts_at" json:"startsAt"`
	EndsAt      time.Time `db:"ends_at" json:"endsAt"`
	IsPublished bool      `db:"is_published" json:"isPublished"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	Tiers []TicketTier `db:"-" json:"tiers"`
}

// TicketTier is one priced admission level of a ticket.
type TicketTier struct {
	ID        int       `db:"id" json:"id"`
	TicketID  int       `db:"ticket_id" json:"ticketId"`
	Name      string    `db:"name" json:"name"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Sold      int       `db:"sold" json:"sold"`
	Prices    Prices    `db:"prices" json:"prices"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Available returns the number of unsold seats.
func (t TicketTier) Available() int {
	if n := t.Quantity - t.Sold; n > 0 {
		return n
	}
	return 0
}
