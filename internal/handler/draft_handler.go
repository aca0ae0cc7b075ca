package handler

import (
	"context"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_dashboard/internal/cache"
	"github.com/GTDGit/gtd_dashboard/internal/middleware"
	"github.com/GTDGit/gtd_dashboard/internal/service"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type draftService interface {
	Save(ctx context.Context, businessID, userID int, kind string, data json.RawMessage) (*cache.Draft, error)
	Load(ctx context.Context, businessID, userID int, kind string) (*cache.Draft, error)
	Clear(ctx context.Context, businessID, userID int, kind string) error
}

// DraftHandler persists in-progress dashboard forms per user.
type DraftHandler struct {
	drafts draftService
}

// NewDraftHandler constructs a DraftHandler.
func NewDraftHandler(drafts draftService) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

// GetDraft handles GET /v1/drafts/:kind
func (h *DraftHandler) GetDraft(c *gin.Context) {
	d, err := h.drafts.Load(c.Request.Context(), middleware.BusinessID(c), c.GetInt("user_id"), c.Param("kind"))
	if err != nil {
		utils.RespondError(c, err, "Failed to load draft")
		return
	}
	utils.Success(c, 200, "Draft retrieved", d)
}

// SaveDraft handles PUT /v1/drafts/:kind. The body is stored as-is.
func (h *DraftHandler) SaveDraft(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, service.MaxDraftBytes+1))
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if !json.Valid(body) {
		utils.Error(c, 400, utils.ErrInvalidInput.Error(), "Draft must be valid JSON")
		return
	}

	d, err := h.drafts.Save(c.Request.Context(), middleware.BusinessID(c), c.GetInt("user_id"), c.Param("kind"), body)
	if err != nil {
		utils.RespondError(c, err, "Failed to save draft")
		return
	}
	utils.Success(c, 200, "Draft saved", d)
}

// DeleteDraft handles DELETE /v1/drafts/:kind
func (h *DraftHandler) DeleteDraft(c *gin.Context) {
	if err := h.drafts.Clear(c.Request.Context(), middleware.BusinessID(c), c.GetInt("user_id"), c.Param("kind")); err != nil {
		utils.RespondError(c, err, "Failed to clear draft")
		return
	}
	utils.Success(c, 200, "Draft cleared", nil)
}
