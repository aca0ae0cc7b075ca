package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_dashboard/internal/middleware"
	"github.com/GTDGit/gtd_dashboard/internal/service"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type authService interface {
	Register(ctx context.Context, req *service.RegisterRequest) (*service.AuthResult, error)
	Login(ctx context.Context, req *service.LoginRequest) (*service.AuthResult, error)
}

// AuthHandler handles sign-up, sign-in and the session cookie.
type AuthHandler struct {
	auth         authService
	secureCookie bool
}

// NewAuthHandler constructs an AuthHandler. secureCookie marks the session
// cookie HTTPS-only.
func NewAuthHandler(auth authService, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookie: secureCookie}
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to register")
		return
	}
	h.setCookie(c, result)
	utils.Success(c, 201, "Registration successful", result)
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to login")
		return
	}
	h.setCookie(c, result)
	utils.Success(c, 200, "Login successful", result)
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.secureCookie, true)
	utils.Success(c, 200, "Logged out", nil)
}

// Me handles GET /v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	utils.Success(c, 200, "User retrieved", middleware.GetUser(c))
}

func (h *AuthHandler) setCookie(c *gin.Context, result *service.AuthResult) {
	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, result.Token, maxAge, "/", "", h.secureCookie, true)
}
