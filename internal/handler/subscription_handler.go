package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_dashboard/internal/middleware"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/service"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type subscriptionService interface {
	ListPlans(ctx context.Context, businessID int, f repository.ListFilter) ([]models.SubscriptionPlan, int, error)
	GetPlan(ctx context.Context, businessID, id int) (*models.SubscriptionPlan, error)
	CreatePlan(ctx context.Context, businessID int, req *service.PlanRequest) (*models.SubscriptionPlan, error)
	UpdatePlan(ctx context.Context, businessID, id int, req *service.PlanRequest) (*models.SubscriptionPlan, error)
	DeletePlan(ctx context.Context, businessID, id int) error
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Subscription, int, error)
	Get(ctx context.Context, businessID, id int) (*models.Subscription, error)
	Subscribe(ctx context.Context, businessID int, req *service.SubscribeRequest) (*models.Subscription, error)
	Cancel(ctx context.Context, businessID, id int) (*models.Subscription, error)
}

// SubscriptionHandler handles subscription plans and customer subscriptions.
type SubscriptionHandler struct {
	subs subscriptionService
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(subs subscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs}
}

// ListPlans handles GET /v1/plans
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	list, total, err := h.subs.ListPlans(c.Request.Context(), middleware.BusinessID(c), f)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve plans")
		return
	}
	paginated(c, "Plans retrieved", list, f, total)
}

// GetPlan handles GET /v1/plans/:id
func (h *SubscriptionHandler) GetPlan(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.subs.GetPlan(c.Request.Context(), middleware.BusinessID(c), id)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve plan")
		return
	}
	utils.Success(c, 200, "Plan retrieved", p)
}

// CreatePlan handles POST /v1/plans
func (h *SubscriptionHandler) CreatePlan(c *gin.Context) {
	var req service.PlanRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.subs.CreatePlan(c.Request.Context(), middleware.BusinessID(c), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to create plan")
		return
	}
	utils.Success(c, 201, "Plan created successfully", p)
}

// UpdatePlan handles PUT /v1/plans/:id
func (h *SubscriptionHandler) UpdatePlan(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.PlanRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.subs.UpdatePlan(c.Request.Context(), middleware.BusinessID(c), id, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to update plan")
		return
	}
	utils.Success(c, 200, "Plan updated successfully", p)
}

// DeletePlan handles DELETE /v1/plans/:id
func (h *SubscriptionHandler) DeletePlan(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.subs.DeletePlan(c.Request.Context(), middleware.BusinessID(c), id); err != nil {
		utils.RespondError(c, err, "Failed to delete plan")
		return
	}
	utils.Success(c, 200, "Plan deleted successfully", nil)
}

// ListSubscriptions handles GET /v1/subscriptions
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	list, total, err := h.subs.List(c.Request.Context(), middleware.BusinessID(c), f)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve subscriptions")
		return
	}
	paginated(c, "Subscriptions retrieved", list, f, total)
}

// GetSubscription handles GET /v1/subscriptions/:id
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, err := h.subs.Get(c.Request.Context(), middleware.BusinessID(c), id)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve subscription")
		return
	}
	utils.Success(c, 200, "Subscription retrieved", sub)
}

// Subscribe handles POST /v1/subscriptions
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req service.SubscribeRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.subs.Subscribe(c.Request.Context(), middleware.BusinessID(c), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to subscribe")
		return
	}
	utils.Success(c, 201, "Subscription created successfully", sub)
}

// CancelSubscription handles POST /v1/subscriptions/:id/cancel
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, err := h.subs.Cancel(c.Request.Context(), middleware.BusinessID(c), id)
	if err != nil {
		utils.RespondError(c, err, "Failed to cancel subscription")
		return
	}
	utils.Success(c, 200, "Subscription cancelled", sub)
}
