package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

// BusinessHeader selects the business a request acts on.
const BusinessHeader = "X-Business-Id"

type membershipResolver interface {
	Membership(ctx context.Context, businessID, userID int) (*models.Membership, error)
}

// TenantMiddleware scopes requests to one business the user belongs to.
// It must run after AuthMiddleware.
type TenantMiddleware struct {
	members membershipResolver
}

// NewTenantMiddleware constructs a new TenantMiddleware.
func NewTenantMiddleware(members membershipResolver) *TenantMiddleware {
	return &TenantMiddleware{members: members}
}

// Handle reads the business from the X-Business-Id header, or the
// business_id query parameter for streaming endpoints, and checks membership.
func (m *TenantMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(BusinessHeader)
		if raw == "" {
			raw = c.Query("business_id")
		}
		businessID, err := strconv.Atoi(raw)
		if err != nil || businessID <= 0 {
			utils.Error(c, http.StatusBadRequest, "BUSINESS_REQUIRED", "X-Business-Id header is required")
			c.Abort()
			return
		}

		membership, err := m.members.Membership(c.Request.Context(), businessID, c.GetInt("user_id"))
		if err != nil {
			utils.RespondError(c, err, "Failed to resolve business")
			c.Abort()
			return
		}

		c.Set("business_id", businessID)
		c.Set("role", membership.Role)
		c.Next()
	}
}

// RequireManager rejects members who may not change business settings.
func RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Role(c).CanManage() {
			utils.RespondError(c, utils.ErrForbidden, "Forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

// BusinessID returns the business the request is scoped to.
func BusinessID(c *gin.Context) int {
	return c.GetInt("business_id")
}

// Role returns the caller's role in the scoped business.
func Role(c *gin.Context) models.MemberRole {
	role, _ := c.Get("role")
	if role == nil {
		return ""
	}
	return role.(models.MemberRole)
}
