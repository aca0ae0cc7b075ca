package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

const (
	ticketColumns = `id, business_id, title, description, venue, starts_at, ends_at, is_published, created_at, updated_at`
	tierColumns   = `id, ticket_id, name, quantity, sold, prices, created_at, updated_at`
)

// TicketRepository provides data access for tickets and their tiers.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new TicketRepository.
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// List returns a page of tickets with their tiers. Status "upcoming" or
// "past" filters by end time.
func (r *TicketRepository) List(ctx context.Context, businessID int, f ListFilter) ([]models.Ticket, int, error) {
	cond := scoped("business_id", businessID)
	cond.search(f.Search, "title", "venue")
	switch f.Status {
	case "upcoming":
		cond.raw("ends_at >= NOW()")
	case "past":
		cond.raw("ends_at < NOW()")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM tickets`+cond.where(), cond.args...); err != nil {
		return nil, 0, err
	}
	limit, args := cond.page(f.Page)
	list := []models.Ticket{}
	q := `SELECT ` + ticketColumns + ` FROM tickets` + cond.where() + ` ORDER BY starts_at ASC, id ASC` + limit
	if err := r.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, 0, err
	}
	if err := r.attachTiers(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *TicketRepository) attachTiers(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]int64, len(tickets))
	byID := make(map[int]int, len(tickets))
	for i, t := range tickets {
		ids[i] = int64(t.ID)
		byID[t.ID] = i
		tickets[i].Tiers = []models.TicketTier{}
	}
	var tiers []models.TicketTier
	if err := r.db.SelectContext(ctx, &tiers,
		`SELECT `+tierColumns+` FROM ticket_tiers WHERE ticket_id = ANY($1) ORDER BY id ASC`, pq.Array(ids)); err != nil {
		return err
	}
	for _, tr := range tiers {
		i := byID[tr.TicketID]
		tickets[i].Tiers = append(tickets[i].Tiers, tr)
	}
	return nil
}

// GetByID returns a ticket with its tiers.
func (r *TicketRepository) GetByID(ctx context.Context, businessID, id int) (*models.Ticket, error) {
	var t models.Ticket
	err := r.db.GetContext(ctx, &t,
		`SELECT `+ticketColumns+` FROM tickets WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return nil, mapErr(err, "ticket")
	}
	list := []models.Ticket{t}
	if err := r.attachTiers(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Create inserts a ticket and its tiers in one transaction.
func (r *TicketRepository) Create(ctx context.Context, t *models.Ticket) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT INTO tickets (business_id, title, description, venue, starts_at, ends_at, is_published)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRowxContext(ctx, q,
		t.BusinessID, t.Title, t.Description, t.Venue, t.StartsAt, t.EndsAt, t.IsPublished,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return mapErr(err, "ticket")
	}
	for i := range t.Tiers {
		t.Tiers[i].TicketID = t.ID
		if err := insertTier(ctx, tx, &t.Tiers[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertTier(ctx context.Context, q sqlx.QueryerContext, tr *models.TicketTier) error {
	err := q.QueryRowxContext(ctx, `INSERT INTO ticket_tiers (ticket_id, name, quantity, sold, prices)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`,
		tr.TicketID, tr.Name, tr.Quantity, tr.Sold, tr.Prices,
	).Scan(&tr.ID, &tr.CreatedAt, &tr.UpdatedAt)
	return mapErr(err, "ticket tier")
}

// Update saves ticket fields; tiers are managed separately.
func (r *TicketRepository) Update(ctx context.Context, t *models.Ticket) error {
	const q = `UPDATE tickets
        SET title = $1, description = $2, venue = $3, starts_at = $4, ends_at = $5, is_published = $6, updated_at = NOW()
        WHERE business_id = $7 AND id = $8
        RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, q,
		t.Title, t.Description, t.Venue, t.StartsAt, t.EndsAt, t.IsPublished, t.BusinessID, t.ID,
	).Scan(&t.UpdatedAt)
	return mapErr(err, "ticket")
}

// Delete removes a ticket and its tiers.
func (r *TicketRepository) Delete(ctx context.Context, businessID, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE business_id = $1 AND id = $2`, businessID, id)
	return affected(res, err, "ticket")
}

// CreateTier adds a tier to an existing ticket.
func (r *TicketRepository) CreateTier(ctx context.Context, tr *models.TicketTier) error {
	return insertTier(ctx, r.db, tr)
}

// UpdateTier saves a tier. Quantity may not drop below the sold count.
func (r *TicketRepository) UpdateTier(ctx context.Context, tr *models.TicketTier) error {
	const q = `UPDATE ticket_tiers SET name = $1, quantity = $2, prices = $3, updated_at = NOW()
        WHERE ticket_id = $4 AND id = $5
        RETURNING sold, updated_at`
	err := r.db.QueryRowxContext(ctx, q, tr.Name, tr.Quantity, tr.Prices, tr.TicketID, tr.ID).
		Scan(&tr.Sold, &tr.UpdatedAt)
	return mapErr(err, "ticket tier")
}

// DeleteTier removes a tier.
func (r *TicketRepository) DeleteTier(ctx context.Context, ticketID, tierID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ticket_tiers WHERE ticket_id = $1 AND id = $2`, ticketID, tierID)
	return affected(res, err, "ticket tier")
}

// Sell increments the sold count when enough seats remain.
func (r *TicketRepository) Sell(ctx context.Context, ticketID, tierID, qty int) (*models.TicketTier, error) {
	var tr models.TicketTier
	err := r.db.GetContext(ctx, &tr, `UPDATE ticket_tiers SET sold = sold + $1, updated_at = NOW()
        WHERE ticket_id = $2 AND id = $3 AND quantity - sold >= $1
        RETURNING `+tierColumns, qty, ticketID, tierID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("not enough seats left in tier %d: %w", tierID, utils.ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}
