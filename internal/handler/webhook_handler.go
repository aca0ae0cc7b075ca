package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_dashboard/internal/middleware"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

// WebhookHandler exposes the outgoing webhook log of a business.
type WebhookHandler struct {
	webhooks interface {
		Recent(ctx context.Context, businessID int) ([]models.WebhookDelivery, error)
	}
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(webhooks interface {
	Recent(ctx context.Context, businessID int) ([]models.WebhookDelivery, error)
}) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// ListDeliveries handles GET /v1/business/webhooks
func (h *WebhookHandler) ListDeliveries(c *gin.Context) {
	deliveries, err := h.webhooks.Recent(c.Request.Context(), middleware.BusinessID(c))
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve webhook deliveries")
		return
	}
	utils.Success(c, 200, "Webhook deliveries retrieved", deliveries)
}
