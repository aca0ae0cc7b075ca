package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/pricing"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type subscriptionStore interface {
	ListPlans(ctx context.Context, businessID int, f repository.ListFilter) ([]models.SubscriptionPlan, int, error)
	GetPlan(ctx context.Context, businessID, id int) (*models.SubscriptionPlan, error)
	CreatePlan(ctx context.Context, p *models.SubscriptionPlan) error
	UpdatePlan(ctx context.Context, p *models.SubscriptionPlan) error
	DeletePlan(ctx context.Context, businessID, id int) error
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Subscription, int, error)
	Get(ctx context.Context, businessID, id int) (*models.Subscription, error)
	Create(ctx context.Context, s *models.Subscription) error
	Cancel(ctx context.Context, businessID, id int) (*models.Subscription, error)
	ExpireDue(ctx context.Context, now time.Time) ([]models.Subscription, error)
	HasActive(ctx context.Context, businessID, customerID, planID int) (bool, error)
}

// SubscriptionService manages plans and customer subscriptions.
type SubscriptionService struct {
	subs       subscriptionStore
	customers  customerStore
	businesses businessLookup
	webhooks   Dispatcher
	now        func() time.Time
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(subs subscriptionStore, customers customerStore, businesses businessLookup, webhooks Dispatcher) *SubscriptionService {
	return &SubscriptionService{subs: subs, customers: customers, businesses: businesses, webhooks: webhooks, now: time.Now}
}

// PlanRequest represents a plan create or update.
type PlanRequest struct {
	Name        string              `json:"name" binding:"required,max=255"`
	Description string              `json:"description"`
	Interval    models.PlanInterval `json:"interval" binding:"required,oneof=monthly quarterly yearly"`
	Prices      models.Prices       `json:"prices" binding:"required,min=1"`
	IsActive    *bool               `json:"isActive"`
}

// SubscribeRequest subscribes a customer to a plan.
type SubscribeRequest struct {
	CustomerID int    `json:"customerId" binding:"required"`
	PlanID     int    `json:"planId" binding:"required"`
	Tier       string `json:"tier"`
	Currency   string `json:"currency"`
}

func planPrices(p *models.SubscriptionPlan) models.Prices {
	out := make(models.Prices, len(p.Prices))
	for i, pr := range p.Prices {
		out[i] = models.Price{Tier: pr.Tier, Currency: pr.Currency, Amount: pr.Amount}
	}
	return out
}

func (s *SubscriptionService) apply(ctx context.Context, p *models.SubscriptionPlan, req *PlanRequest) error {
	policy, err := pricePolicy(ctx, s.businesses, p.BusinessID)
	if err != nil {
		return err
	}
	prices, err := pricing.Validate(req.Prices, policy)
	if err != nil {
		return err
	}
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.Interval = req.Interval
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.Prices = make([]models.SubscriptionPlanPrice, len(prices))
	for i, pr := range prices {
		p.Prices[i] = models.SubscriptionPlanPrice{PlanID: p.ID, Tier: pr.Tier, Currency: pr.Currency, Amount: pr.Amount}
	}
	return nil
}

// ListPlans returns a page of plans.
func (s *SubscriptionService) ListPlans(ctx context.Context, businessID int, f repository.ListFilter) ([]models.SubscriptionPlan, int, error) {
	return s.subs.ListPlans(ctx, businessID, f)
}

// GetPlan returns a plan with its price table.
func (s *SubscriptionService) GetPlan(ctx context.Context, businessID, id int) (*models.SubscriptionPlan, error) {
	return s.subs.GetPlan(ctx, businessID, id)
}

// CreatePlan adds a plan.
func (s *SubscriptionService) CreatePlan(ctx context.Context, businessID int, req *PlanRequest) (*models.SubscriptionPlan, error) {
	p := &models.SubscriptionPlan{BusinessID: businessID, IsActive: true}
	if err := s.apply(ctx, p, req); err != nil {
		return nil, err
	}
	if err := s.subs.CreatePlan(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePlan replaces a plan and its price table. Existing subscriptions keep
// the amount they subscribed at.
func (s *SubscriptionService) UpdatePlan(ctx context.Context, businessID, id int, req *PlanRequest) (*models.SubscriptionPlan, error) {
	p, err := s.subs.GetPlan(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, p, req); err != nil {
		return nil, err
	}
	if err := s.subs.UpdatePlan(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePlan removes a plan. Plans with subscriptions are rejected by the
// foreign key.
func (s *SubscriptionService) DeletePlan(ctx context.Context, businessID, id int) error {
	return s.subs.DeletePlan(ctx, businessID, id)
}

// List returns a page of subscriptions.
func (s *SubscriptionService) List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Subscription, int, error) {
	return s.subs.List(ctx, businessID, f)
}

// Get returns one subscription.
func (s *SubscriptionService) Get(ctx context.Context, businessID, id int) (*models.Subscription, error) {
	return s.subs.Get(ctx, businessID, id)
}

// Subscribe starts a subscription at the plan's price for the tier and
// currency. Currency defaults to the business default.
func (s *SubscriptionService) Subscribe(ctx context.Context, businessID int, req *SubscribeRequest) (*models.Subscription, error) {
	if _, err := s.customers.GetByID(ctx, businessID, req.CustomerID); err != nil {
		return nil, err
	}
	plan, err := s.subs.GetPlan(ctx, businessID, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("plan %d is inactive: %w", plan.ID, utils.ErrInvalidState)
	}
	active, err := s.subs.HasActive(ctx, businessID, req.CustomerID, req.PlanID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, fmt.Errorf("customer already subscribed to plan %d: %w", plan.ID, utils.ErrDuplicate)
	}

	code := req.Currency
	if code == "" {
		policy, err := pricePolicy(ctx, s.businesses, businessID)
		if err != nil {
			return nil, err
		}
		code = policy.DefaultCurrency
	}
	tier := strings.ToLower(strings.TrimSpace(req.Tier))
	if tier == "" {
		tier = models.DefaultTier
	}
	amount, err := pricing.Quote(planPrices(plan), tier, code)
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		BusinessID:       businessID,
		CustomerID:       req.CustomerID,
		PlanID:           plan.ID,
		Tier:             tier,
		Currency:         strings.ToUpper(code),
		Amount:           amount,
		Status:           models.SubscriptionActive,
		CurrentPeriodEnd: plan.Interval.Next(s.now()),
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Cancel stops an active subscription.
func (s *SubscriptionService) Cancel(ctx context.Context, businessID, id int) (*models.Subscription, error) {
	sub, err := s.subs.Cancel(ctx, businessID, id)
	if err != nil {
		if _, getErr := s.subs.Get(ctx, businessID, id); getErr == nil {
			return nil, fmt.Errorf("subscription %d is not active: %w", id, utils.ErrInvalidState)
		}
		return nil, err
	}
	return sub, nil
}

// ExpireDue expires every active subscription whose period has ended and
// emits a webhook for each. It returns the number expired.
func (s *SubscriptionService) ExpireDue(ctx context.Context) (int, error) {
	expired, err := s.subs.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for i := range expired {
		sub := &expired[i]
		if err := s.webhooks.Dispatch(ctx, sub.BusinessID, models.EventSubscriptionEnded, sub); err != nil {
			log.Error().Err(err).Int("subscription_id", sub.ID).Msg("failed to queue subscription webhook")
		}
	}
	return len(expired), nil
}
