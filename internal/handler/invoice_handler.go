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

type invoiceService interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Invoice, int, error)
	Get(ctx context.Context, businessID, id int) (*models.Invoice, error)
	Create(ctx context.Context, businessID int, req *service.InvoiceRequest) (*models.Invoice, error)
	Update(ctx context.Context, businessID, id int, req *service.InvoiceRequest) (*models.Invoice, error)
	Delete(ctx context.Context, businessID, id int) error
	Send(ctx context.Context, businessID, id int) (*models.Invoice, error)
	Cancel(ctx context.Context, businessID, id int) (*models.Invoice, error)
	MarkPaid(ctx context.Context, businessID, id int, req *service.MarkPaidRequest) (*models.Invoice, *models.Payment, error)
}

// InvoiceHandler handles invoices and their lifecycle transitions.
type InvoiceHandler struct {
	invoices invoiceService
}

// NewInvoiceHandler constructs an InvoiceHandler.
func NewInvoiceHandler(invoices invoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// ListInvoices handles GET /v1/invoices?status=&customer_id=
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	list, total, err := h.invoices.List(c.Request.Context(), middleware.BusinessID(c), f)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve invoices")
		return
	}
	paginated(c, "Invoices retrieved", list, f, total)
}

// GetInvoice handles GET /v1/invoices/:id
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	inv, err := h.invoices.Get(c.Request.Context(), middleware.BusinessID(c), id)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve invoice")
		return
	}
	utils.Success(c, 200, "Invoice retrieved", inv)
}

// CreateInvoice handles POST /v1/invoices
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.InvoiceRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.invoices.Create(c.Request.Context(), middleware.BusinessID(c), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to create invoice")
		return
	}
	utils.Success(c, 201, "Invoice created successfully", inv)
}

// UpdateInvoice handles PUT /v1/invoices/:id
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.InvoiceRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.invoices.Update(c.Request.Context(), middleware.BusinessID(c), id, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to update invoice")
		return
	}
	utils.Success(c, 200, "Invoice updated successfully", inv)
}

// DeleteInvoice handles DELETE /v1/invoices/:id
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.invoices.Delete(c.Request.Context(), middleware.BusinessID(c), id); err != nil {
		utils.RespondError(c, err, "Failed to delete invoice")
		return
	}
	utils.Success(c, 200, "Invoice deleted successfully", nil)
}

// SendInvoice handles POST /v1/invoices/:id/send
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	inv, err := h.invoices.Send(c.Request.Context(), middleware.BusinessID(c), id)
	if err != nil {
		utils.RespondError(c, err, "Failed to send invoice")
		return
	}
	utils.Success(c, 200, "Invoice sent", inv)
}

// CancelInvoice handles POST /v1/invoices/:id/cancel
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	inv, err := h.invoices.Cancel(c.Request.Context(), middleware.BusinessID(c), id)
	if err != nil {
		utils.RespondError(c, err, "Failed to cancel invoice")
		return
	}
	utils.Success(c, 200, "Invoice cancelled", inv)
}

// MarkPaid handles POST /v1/invoices/:id/mark-paid
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.MarkPaidRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, payment, err := h.invoices.MarkPaid(c.Request.Context(), middleware.BusinessID(c), id, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to mark invoice paid")
		return
	}
	utils.Success(c, 200, "Invoice marked as paid", gin.H{"invoice": inv, "payment": payment})
}
