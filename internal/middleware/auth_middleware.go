package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

// TokenCookie is the cookie the dashboard stores its session token in.
const TokenCookie = "token"

type authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware resolves the dashboard user from a bearer token.
type AuthMiddleware struct {
	auth authenticator
}

// NewAuthMiddleware constructs a new AuthMiddleware.
func NewAuthMiddleware(auth authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Handle returns a Gin middleware function that enforces authentication.
// The token is read from the Authorization header, then the session cookie.
// GET requests may also pass it as ?token= since EventSource and browser
// WebSockets cannot set headers.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.auth.Authenticate(c.Request.Context(), requestToken(c))
		if err != nil {
			utils.RespondError(c, err, "Failed to authenticate")
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

func requestToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie
	}
	if c.Request.Method == http.MethodGet {
		return c.Query("token")
	}
	return ""
}

// GetUser returns the authenticated user from context.
func GetUser(c *gin.Context) *models.User {
	user, _ := c.Get("user")
	if user == nil {
		return nil
	}
	return user.(*models.User)
}
