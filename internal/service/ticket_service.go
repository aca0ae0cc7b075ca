package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/pricing"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type ticketStore interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Ticket, int, error)
	GetByID(ctx context.Context, businessID, id int) (*models.Ticket, error)
	Create(ctx context.Context, t *models.Ticket) error
	Update(ctx context.Context, t *models.Ticket) error
	Delete(ctx context.Context, businessID, id int) error
	CreateTier(ctx context.Context, tr *models.TicketTier) error
	UpdateTier(ctx context.Context, tr *models.TicketTier) error
	DeleteTier(ctx context.Context, ticketID, tierID int) error
	Sell(ctx context.Context, ticketID, tierID, qty int) (*models.TicketTier, error)
}

// TicketService manages ticketed events and their tiers.
type TicketService struct {
	tickets    ticketStore
	businesses businessLookup
}

// NewTicketService constructs a TicketService.
func NewTicketService(tickets ticketStore, businesses businessLookup) *TicketService {
	return &TicketService{tickets: tickets, businesses: businesses}
}

// TicketRequest represents a ticket create or update. Tiers are only read on create.
type TicketRequest struct {
	Title       string        `json:"title" binding:"required,max=255"`
	Description string        `json:"description"`
	Venue       string        `json:"venue" binding:"max=255"`
	StartsAt    time.Time     `json:"startsAt" binding:"required"`
	EndsAt      time.Time     `json:"endsAt" binding:"required"`
	IsPublished bool          `json:"isPublished"`
	Tiers       []TierRequest `json:"tiers" binding:"dive"`
}

// TierRequest represents a tier create or update.
type TierRequest struct {
	Name     string        `json:"name" binding:"required,max=100"`
	Quantity int           `json:"quantity" binding:"gte=1"`
	Prices   models.Prices `json:"prices" binding:"required,min=1"`
}

// SellRequest reserves seats in a tier.
type SellRequest struct {
	Quantity int `json:"quantity" binding:"required,gte=1"`
}

func (s *TicketService) tier(policy pricing.Policy, ticketID int, req *TierRequest) (*models.TicketTier, error) {
	prices, err := pricing.Validate(req.Prices, policy)
	if err != nil {
		return nil, fmt.Errorf("tier %q: %w", req.Name, err)
	}
	return &models.TicketTier{
		TicketID: ticketID,
		Name:     strings.TrimSpace(req.Name),
		Quantity: req.Quantity,
		Prices:   prices,
	}, nil
}

func checkSchedule(startsAt, endsAt time.Time) error {
	if !endsAt.After(startsAt) {
		return fmt.Errorf("endsAt must be after startsAt: %w", utils.ErrInvalidInput)
	}
	return nil
}

// List returns a page of tickets with tiers.
func (s *TicketService) List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Ticket, int, error) {
	return s.tickets.List(ctx, businessID, f)
}

// Get returns a ticket with tiers.
func (s *TicketService) Get(ctx context.Context, businessID, id int) (*models.Ticket, error) {
	return s.tickets.GetByID(ctx, businessID, id)
}

// Create adds a ticket with its tiers.
func (s *TicketService) Create(ctx context.Context, businessID int, req *TicketRequest) (*models.Ticket, error) {
	if err := checkSchedule(req.StartsAt, req.EndsAt); err != nil {
		return nil, err
	}
	policy, err := pricePolicy(ctx, s.businesses, businessID)
	if err != nil {
		return nil, err
	}
	t := &models.Ticket{
		BusinessID:  businessID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		IsPublished: req.IsPublished,
		Tiers:       make([]models.TicketTier, 0, len(req.Tiers)),
	}
	for i := range req.Tiers {
		tr, err := s.tier(policy, 0, &req.Tiers[i])
		if err != nil {
			return nil, err
		}
		t.Tiers = append(t.Tiers, *tr)
	}
	if err := s.tickets.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update saves the ticket's own fields.
func (s *TicketService) Update(ctx context.Context, businessID, id int, req *TicketRequest) (*models.Ticket, error) {
	if err := checkSchedule(req.StartsAt, req.EndsAt); err != nil {
		return nil, err
	}
	t, err := s.tickets.GetByID(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	t.Title = strings.TrimSpace(req.Title)
	t.Description = req.Description
	t.Venue = req.Venue
	t.StartsAt = req.StartsAt
	t.EndsAt = req.EndsAt
	t.IsPublished = req.IsPublished
	if err := s.tickets.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a ticket.
func (s *TicketService) Delete(ctx context.Context, businessID, id int) error {
	return s.tickets.Delete(ctx, businessID, id)
}

// AddTier adds a tier to a ticket.
func (s *TicketService) AddTier(ctx context.Context, businessID, ticketID int, req *TierRequest) (*models.TicketTier, error) {
	if _, err := s.tickets.GetByID(ctx, businessID, ticketID); err != nil {
		return nil, err
	}
	policy, err := pricePolicy(ctx, s.businesses, businessID)
	if err != nil {
		return nil, err
	}
	tr, err := s.tier(policy, ticketID, req)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.CreateTier(ctx, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// UpdateTier edits a tier. Quantity cannot drop below the seats already sold.
func (s *TicketService) UpdateTier(ctx context.Context, businessID, ticketID, tierID int, req *TierRequest) (*models.TicketTier, error) {
	t, err := s.tickets.GetByID(ctx, businessID, ticketID)
	if err != nil {
		return nil, err
	}
	var current *models.TicketTier
	for i := range t.Tiers {
		if t.Tiers[i].ID == tierID {
			current = &t.Tiers[i]
		}
	}
	if current == nil {
		return nil, fmt.Errorf("ticket tier: %w", utils.ErrNotFound)
	}
	if req.Quantity < current.Sold {
		return nil, fmt.Errorf("quantity %d is below %d sold: %w", req.Quantity, current.Sold, utils.ErrInvalidState)
	}
	policy, err := pricePolicy(ctx, s.businesses, businessID)
	if err != nil {
		return nil, err
	}
	tr, err := s.tier(policy, ticketID, req)
	if err != nil {
		return nil, err
	}
	tr.ID = tierID
	tr.CreatedAt = current.CreatedAt
	if err := s.tickets.UpdateTier(ctx, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// DeleteTier removes a tier with no sold seats.
func (s *TicketService) DeleteTier(ctx context.Context, businessID, ticketID, tierID int) error {
	t, err := s.tickets.GetByID(ctx, businessID, ticketID)
	if err != nil {
		return err
	}
	for _, tr := range t.Tiers {
		if tr.ID == tierID && tr.Sold > 0 {
			return fmt.Errorf("tier has sold seats: %w", utils.ErrInvalidState)
		}
	}
	return s.tickets.DeleteTier(ctx, ticketID, tierID)
}

// Sell reserves seats in a tier of a published ticket.
func (s *TicketService) Sell(ctx context.Context, businessID, ticketID, tierID int, req *SellRequest) (*models.TicketTier, error) {
	t, err := s.tickets.GetByID(ctx, businessID, ticketID)
	if err != nil {
		return nil, err
	}
	if !t.IsPublished {
		return nil, fmt.Errorf("ticket is not published: %w", utils.ErrInvalidState)
	}
	return s.tickets.Sell(ctx, ticketID, tierID, req.Quantity)
}
