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

type ticketService interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Ticket, int, error)
	Get(ctx context.Context, businessID, id int) (*models.Ticket, error)
	Create(ctx context.Context, businessID int, req *service.TicketRequest) (*models.Ticket, error)
	Update(ctx context.Context, businessID, id int, req *service.TicketRequest) (*models.Ticket, error)
	Delete(ctx context.Context, businessID, id int) error
	AddTier(ctx context.Context, businessID, ticketID int, req *service.TierRequest) (*models.TicketTier, error)
	UpdateTier(ctx context.Context, businessID, ticketID, tierID int, req *service.TierRequest) (*models.TicketTier, error)
	DeleteTier(ctx context.Context, businessID, ticketID, tierID int) error
	Sell(ctx context.Context, businessID, ticketID, tierID int, req *service.SellRequest) (*models.TicketTier, error)
}

// TicketHandler handles events and their ticket tiers.
type TicketHandler struct {
	tickets ticketService
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(tickets ticketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// ListTickets handles GET /v1/tickets
func (h *TicketHandler) ListTickets(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	list, total, err := h.tickets.List(c.Request.Context(), middleware.BusinessID(c), f)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve tickets")
		return
	}
	paginated(c, "Tickets retrieved", list, f, total)
}

// GetTicket handles GET /v1/tickets/:id
func (h *TicketHandler) GetTicket(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.tickets.Get(c.Request.Context(), middleware.BusinessID(c), id)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve ticket")
		return
	}
	utils.Success(c, 200, "Ticket retrieved", t)
}

// CreateTicket handles POST /v1/tickets
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	var req service.TicketRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.tickets.Create(c.Request.Context(), middleware.BusinessID(c), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to create ticket")
		return
	}
	utils.Success(c, 201, "Ticket created successfully", t)
}

// UpdateTicket handles PUT /v1/tickets/:id
func (h *TicketHandler) UpdateTicket(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.TicketRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.tickets.Update(c.Request.Context(), middleware.BusinessID(c), id, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to update ticket")
		return
	}
	utils.Success(c, 200, "Ticket updated successfully", t)
}

// DeleteTicket handles DELETE /v1/tickets/:id
func (h *TicketHandler) DeleteTicket(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.tickets.Delete(c.Request.Context(), middleware.BusinessID(c), id); err != nil {
		utils.RespondError(c, err, "Failed to delete ticket")
		return
	}
	utils.Success(c, 200, "Ticket deleted successfully", nil)
}

// AddTier handles POST /v1/tickets/:id/tiers
func (h *TicketHandler) AddTier(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.TierRequest
	if !bindJSON(c, &req) {
		return
	}
	tier, err := h.tickets.AddTier(c.Request.Context(), middleware.BusinessID(c), ticketID, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to add tier")
		return
	}
	utils.Success(c, 201, "Tier created successfully", tier)
}

// UpdateTier handles PUT /v1/tickets/:id/tiers/:tierId
func (h *TicketHandler) UpdateTier(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	tierID, ok := pathID(c, "tierId")
	if !ok {
		return
	}
	var req service.TierRequest
	if !bindJSON(c, &req) {
		return
	}
	tier, err := h.tickets.UpdateTier(c.Request.Context(), middleware.BusinessID(c), ticketID, tierID, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to update tier")
		return
	}
	utils.Success(c, 200, "Tier updated successfully", tier)
}

// DeleteTier handles DELETE /v1/tickets/:id/tiers/:tierId
func (h *TicketHandler) DeleteTier(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	tierID, ok := pathID(c, "tierId")
	if !ok {
		return
	}
	if err := h.tickets.DeleteTier(c.Request.Context(), middleware.BusinessID(c), ticketID, tierID); err != nil {
		utils.RespondError(c, err, "Failed to delete tier")
		return
	}
	utils.Success(c, 200, "Tier deleted successfully", nil)
}

// Sell handles POST /v1/tickets/:id/tiers/:tierId/sell
func (h *TicketHandler) Sell(c *gin.Context) {
	ticketID, ok := pathID(c, "id")
	if !ok {
		return
	}
	tierID, ok := pathID(c, "tierId")
	if !ok {
		return
	}
	var req service.SellRequest
	if !bindJSON(c, &req) {
		return
	}
	tier, err := h.tickets.Sell(c.Request.Context(), middleware.BusinessID(c), ticketID, tierID, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to sell tickets")
		return
	}
	utils.Success(c, 200, "Tickets sold", tier)
}
