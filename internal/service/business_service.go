package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/pricing"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type businessStore interface {
	Create(ctx context.Context, b *models.Business, ownerID int) error
	GetByID(ctx context.Context, id int) (*models.Business, error)
	ListForUser(ctx context.Context, userID int) ([]repository.BusinessWithRole, error)
	Update(ctx context.Context, b *models.Business) error
	RotateWebhookSecret(ctx context.Context, id int, secret string) error
	GetMembership(ctx context.Context, businessID, userID int) (*models.Membership, error)
	AddMember(ctx context.Context, m *models.Membership) error
	ListMembers(ctx context.Context, businessID int) ([]models.Membership, error)
}

// BusinessService manages tenants and their memberships.
type BusinessService struct {
	businesses businessStore
	users      userStore
}

// NewBusinessService constructs a BusinessService.
func NewBusinessService(businesses businessStore, users userStore) *BusinessService {
	return &BusinessService{businesses: businesses, users: users}
}

// CreateBusinessRequest represents the request to create a business.
type CreateBusinessRequest struct {
	Name            string   `json:"name" binding:"required,min=2,max=255"`
	Slug            string   `json:"slug" binding:"omitempty,max=100"`
	Email           string   `json:"email" binding:"omitempty,email"`
	Phone           string   `json:"phone" binding:"omitempty,max=50"`
	Country         string   `json:"country" binding:"omitempty,len=2"`
	DefaultCurrency string   `json:"defaultCurrency" binding:"required,len=3"`
	Currencies      []string `json:"currencies"`
	LogoURL         string   `json:"logoUrl" binding:"omitempty,url"`
	CallbackURL     string   `json:"callbackUrl" binding:"omitempty,url"`
}

// UpdateBusinessRequest represents a partial business update.
type UpdateBusinessRequest struct {
	Name            *string   `json:"name" binding:"omitempty,min=2,max=255"`
	Email           *string   `json:"email" binding:"omitempty,email"`
	Phone           *string   `json:"phone"`
	Country         *string   `json:"country" binding:"omitempty,len=2"`
	DefaultCurrency *string   `json:"defaultCurrency" binding:"omitempty,len=3"`
	Currencies      *[]string `json:"currencies"`
	LogoURL         *string   `json:"logoUrl" binding:"omitempty,url"`
	CallbackURL     *string   `json:"callbackUrl" binding:"omitempty,url"`
	IsActive        *bool     `json:"isActive"`
}

// AddMemberRequest invites an existing user into a business.
type AddMemberRequest struct {
	Email string            `json:"email" binding:"required,email"`
	Role  models.MemberRole `json:"role" binding:"required,oneof=admin staff"`
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	return strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// currencySet validates the enabled currencies and makes sure the default
// currency is among them.
func currencySet(def string, list []string) (string, []string, error) {
	def, err := pricing.ParseCurrency(def)
	if err != nil {
		return "", nil, err
	}
	codes, err := pricing.NormalizeCurrencies(append([]string{def}, list...))
	if err != nil {
		return "", nil, err
	}
	return def, codes, nil
}

// Create creates a business owned by userID.
func (s *BusinessService) Create(ctx context.Context, userID int, req *CreateBusinessRequest) (*models.Business, error) {
	def, codes, err := currencySet(req.DefaultCurrency, req.Currencies)
	if err != nil {
		return nil, err
	}
	slug := Slugify(req.Slug)
	if slug == "" {
		slug = Slugify(req.Name)
	}
	if slug == "" {
		return nil, fmt.Errorf("slug is empty: %w", utils.ErrInvalidInput)
	}
	secret, err := utils.GenerateWebhookSecret()
	if err != nil {
		return nil, err
	}

	b := &models.Business{
		Name:            strings.TrimSpace(req.Name),
		Slug:            slug,
		Email:           req.Email,
		Phone:           req.Phone,
		Country:         strings.ToUpper(req.Country),
		DefaultCurrency: def,
		Currencies:      codes,
		LogoURL:         req.LogoURL,
		CallbackURL:     req.CallbackURL,
		WebhookSecret:   secret,
		IsActive:        true,
	}
	if err := s.businesses.Create(ctx, b, userID); err != nil {
		return nil, err
	}
	return b, nil
}

// List returns the businesses the user belongs to.
func (s *BusinessService) List(ctx context.Context, userID int) ([]repository.BusinessWithRole, error) {
	return s.businesses.ListForUser(ctx, userID)
}

// Get returns a business.
func (s *BusinessService) Get(ctx context.Context, id int) (*models.Business, error) {
	return s.businesses.GetByID(ctx, id)
}

// Membership resolves the user's role in the business. Non-members get
// ErrForbidden rather than ErrNotFound.
func (s *BusinessService) Membership(ctx context.Context, businessID, userID int) (*models.Membership, error) {
	m, err := s.businesses.GetMembership(ctx, businessID, userID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.ErrForbidden
	}
	return m, err
}

// Update applies a partial update. Only owners and admins may change settings.
func (s *BusinessService) Update(ctx context.Context, businessID int, role models.MemberRole, req *UpdateBusinessRequest) (*models.Business, error) {
	if !role.CanManage() {
		return nil, utils.ErrForbidden
	}
	b, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		b.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		b.Email = *req.Email
	}
	if req.Phone != nil {
		b.Phone = *req.Phone
	}
	if req.Country != nil {
		b.Country = strings.ToUpper(*req.Country)
	}
	if req.LogoURL != nil {
		b.LogoURL = *req.LogoURL
	}
	if req.CallbackURL != nil {
		b.CallbackURL = *req.CallbackURL
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}
	if req.DefaultCurrency != nil || req.Currencies != nil {
		def, list := b.DefaultCurrency, []string(b.Currencies)
		if req.DefaultCurrency != nil {
			def = *req.DefaultCurrency
		}
		if req.Currencies != nil {
			list = *req.Currencies
		}
		if b.DefaultCurrency, b.Currencies, err = currencySet(def, list); err != nil {
			return nil, err
		}
	}
	if err := s.businesses.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// RotateWebhookSecret issues a new signing secret and returns it once.
func (s *BusinessService) RotateWebhookSecret(ctx context.Context, businessID int, role models.MemberRole) (string, error) {
	if !role.CanManage() {
		return "", utils.ErrForbidden
	}
	secret, err := utils.GenerateWebhookSecret()
	if err != nil {
		return "", err
	}
	if err := s.businesses.RotateWebhookSecret(ctx, businessID, secret); err != nil {
		return "", err
	}
	return secret, nil
}

// AddMember grants an existing user access to the business.
func (s *BusinessService) AddMember(ctx context.Context, businessID int, role models.MemberRole, req *AddMemberRequest) (*models.Membership, error) {
	if !role.CanManage() {
		return nil, utils.ErrForbidden
	}
	u, err := s.users.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		return nil, err
	}
	if cur, err := s.businesses.GetMembership(ctx, businessID, u.ID); err == nil && cur.Role == models.RoleOwner {
		return nil, fmt.Errorf("owner role cannot be changed: %w", utils.ErrInvalidState)
	}
	m := &models.Membership{BusinessID: businessID, UserID: u.ID, Role: req.Role}
	if err := s.businesses.AddMember(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Members lists the memberships of a business.
func (s *BusinessService) Members(ctx context.Context, businessID int) ([]models.Membership, error) {
	return s.businesses.ListMembers(ctx, businessID)
}
