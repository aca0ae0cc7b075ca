package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

const (
	loginWindow      = 15 * time.Minute
	loginMaxAttempts = 10
)

type userStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
}

// attemptCounter counts events inside a fixed window.
type attemptCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// AuthService registers dashboard users and issues their tokens.
type AuthService struct {
	users    userStore
	tokens   *utils.TokenIssuer
	attempts attemptCounter
}

// NewAuthService constructs a new AuthService. attempts may be nil to
// disable login throttling.
func NewAuthService(users userStore, tokens *utils.TokenIssuer, attempts attemptCounter) *AuthService {
	return &AuthService{users: users, tokens: tokens, attempts: attempts}
}

// RegisterRequest represents a sign-up.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginRequest represents a sign-in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Register creates an active user and signs them in.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.issue(u)
}

// Login checks the credentials. Repeated failures for the same email are
// throttled within loginWindow.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if s.attempts != nil {
		n, err := s.attempts.IncrWindow(ctx, "login:"+email, loginWindow)
		if err != nil {
			return nil, err
		}
		if n > loginMaxAttempts {
			return nil, utils.ErrRateLimited
		}
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.ErrInvalidCredential
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, utils.ErrInvalidCredential
	}
	if !u.IsActive {
		return nil, utils.ErrInactiveAccount
	}
	return s.issue(u)
}

func (s *AuthService) issue(u *models.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Token: token, ExpiresAt: time.Now().Add(s.tokens.TTL())}, nil
}

// Authenticate validates a token and loads its active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, utils.ErrInvalidToken
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, utils.ErrInactiveAccount
	}
	return u, nil
}
