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

type paymentService interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Payment, int, error)
	Get(ctx context.Context, businessID, id int) (*models.Payment, error)
	Record(ctx context.Context, businessID int, req *service.PaymentRequest) (*models.Payment, error)
	UpdateStatus(ctx context.Context, businessID, id int, req *service.PaymentStatusRequest) (*models.Payment, error)
}

// PaymentHandler handles recorded payments.
type PaymentHandler struct {
	payments paymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// ListPayments handles GET /v1/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	list, total, err := h.payments.List(c.Request.Context(), middleware.BusinessID(c), f)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve payments")
		return
	}
	paginated(c, "Payments retrieved", list, f, total)
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.payments.Get(c.Request.Context(), middleware.BusinessID(c), id)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve payment")
		return
	}
	utils.Success(c, 200, "Payment retrieved", p)
}

// RecordPayment handles POST /v1/payments
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req service.PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.payments.Record(c.Request.Context(), middleware.BusinessID(c), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to record payment")
		return
	}
	utils.Success(c, 201, "Payment recorded", p)
}

// UpdateStatus handles PATCH /v1/payments/:id/status
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.PaymentStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.payments.UpdateStatus(c.Request.Context(), middleware.BusinessID(c), id, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to update payment")
		return
	}
	utils.Success(c, 200, "Payment updated", p)
}
