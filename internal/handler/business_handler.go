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

type businessService interface {
	Create(ctx context.Context, userID int, req *service.CreateBusinessRequest) (*models.Business, error)
	List(ctx context.Context, userID int) ([]repository.BusinessWithRole, error)
	Get(ctx context.Context, id int) (*models.Business, error)
	Update(ctx context.Context, businessID int, role models.MemberRole, req *service.UpdateBusinessRequest) (*models.Business, error)
	RotateWebhookSecret(ctx context.Context, businessID int, role models.MemberRole) (string, error)
	AddMember(ctx context.Context, businessID int, role models.MemberRole, req *service.AddMemberRequest) (*models.Membership, error)
	Members(ctx context.Context, businessID int) ([]models.Membership, error)
}

// BusinessHandler handles business settings and membership endpoints.
type BusinessHandler struct {
	businesses businessService
}

// NewBusinessHandler constructs a BusinessHandler.
func NewBusinessHandler(businesses businessService) *BusinessHandler {
	return &BusinessHandler{businesses: businesses}
}

// ListBusinesses handles GET /v1/businesses
func (h *BusinessHandler) ListBusinesses(c *gin.Context) {
	list, err := h.businesses.List(c.Request.Context(), c.GetInt("user_id"))
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve businesses")
		return
	}
	utils.Success(c, 200, "Businesses retrieved", list)
}

// CreateBusiness handles POST /v1/businesses
func (h *BusinessHandler) CreateBusiness(c *gin.Context) {
	var req service.CreateBusinessRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.businesses.Create(c.Request.Context(), c.GetInt("user_id"), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to create business")
		return
	}
	utils.Success(c, 201, "Business created successfully", b)
}

// GetBusiness handles GET /v1/business
func (h *BusinessHandler) GetBusiness(c *gin.Context) {
	b, err := h.businesses.Get(c.Request.Context(), middleware.BusinessID(c))
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve business")
		return
	}
	utils.Success(c, 200, "Business retrieved", gin.H{"business": b, "role": middleware.Role(c)})
}

// UpdateBusiness handles PATCH /v1/business
func (h *BusinessHandler) UpdateBusiness(c *gin.Context) {
	var req service.UpdateBusinessRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.businesses.Update(c.Request.Context(), middleware.BusinessID(c), middleware.Role(c), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to update business")
		return
	}
	utils.Success(c, 200, "Business updated successfully", b)
}

// RotateWebhookSecret handles POST /v1/business/webhook-secret
func (h *BusinessHandler) RotateWebhookSecret(c *gin.Context) {
	secret, err := h.businesses.RotateWebhookSecret(c.Request.Context(), middleware.BusinessID(c), middleware.Role(c))
	if err != nil {
		utils.RespondError(c, err, "Failed to rotate webhook secret")
		return
	}
	utils.Success(c, 200, "Webhook secret rotated. Store it now, it will not be shown again", gin.H{
		"webhookSecret": secret,
	})
}

// ListMembers handles GET /v1/business/members
func (h *BusinessHandler) ListMembers(c *gin.Context) {
	members, err := h.businesses.Members(c.Request.Context(), middleware.BusinessID(c))
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve members")
		return
	}
	utils.Success(c, 200, "Members retrieved", members)
}

// AddMember handles POST /v1/business/members
func (h *BusinessHandler) AddMember(c *gin.Context) {
	var req service.AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.businesses.AddMember(c.Request.Context(), middleware.BusinessID(c), middleware.Role(c), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to add member")
		return
	}
	utils.Success(c, 201, "Member added successfully", m)
}
