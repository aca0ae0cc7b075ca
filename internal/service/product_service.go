package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/pricing"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type productStore interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Product, int, error)
	GetByID(ctx context.Context, businessID, id int) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, businessID, id int) error
	AdjustStock(ctx context.Context, businessID, id, delta int) (int, error)
}

// ProductService manages physical and digital products.
type ProductService struct {
	products   productStore
	businesses businessLookup
}

// NewProductService constructs a ProductService.
func NewProductService(products productStore, businesses businessLookup) *ProductService {
	return &ProductService{products: products, businesses: businesses}
}

// ProductRequest represents a product create or update.
type ProductRequest struct {
	Kind        models.ProductKind `json:"kind" binding:"required,oneof=physical digital"`
	Name        string             `json:"name" binding:"required,max=255"`
	Description string             `json:"description"`
	SKU         string             `json:"sku" binding:"max=100"`
	Stock       int                `json:"stock" binding:"gte=0"`
	FileURL     string             `json:"fileUrl" binding:"omitempty,url"`
	Prices      models.Prices      `json:"prices" binding:"required,min=1"`
	IsActive    *bool              `json:"isActive"`
}

// StockRequest adjusts the stock of a physical product.
type StockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func (s *ProductService) apply(ctx context.Context, p *models.Product, req *ProductRequest) error {
	policy, err := pricePolicy(ctx, s.businesses, p.BusinessID)
	if err != nil {
		return err
	}
	prices, err := pricing.Validate(req.Prices, policy)
	if err != nil {
		return err
	}
	p.Kind = req.Kind
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	p.Prices = prices
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	switch p.Kind {
	case models.ProductPhysical:
		p.Stock = req.Stock
		p.FileURL = ""
	case models.ProductDigital:
		if req.FileURL == "" {
			return fmt.Errorf("fileUrl is required for digital products: %w", utils.ErrInvalidInput)
		}
		p.Stock = 0
		p.FileURL = req.FileURL
	}
	return nil
}

// List returns a page of products.
func (s *ProductService) List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Product, int, error) {
	return s.products.List(ctx, businessID, f)
}

// Get returns one product.
func (s *ProductService) Get(ctx context.Context, businessID, id int) (*models.Product, error) {
	return s.products.GetByID(ctx, businessID, id)
}

// Create adds a product. Products are active unless stated otherwise.
func (s *ProductService) Create(ctx context.Context, businessID int, req *ProductRequest) (*models.Product, error) {
	p := &models.Product{BusinessID: businessID, IsActive: true}
	if err := s.apply(ctx, p, req); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces a product's fields.
func (s *ProductService) Update(ctx context.Context, businessID, id int, req *ProductRequest) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, p, req); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a product.
func (s *ProductService) Delete(ctx context.Context, businessID, id int) error {
	return s.products.Delete(ctx, businessID, id)
}

// AdjustStock changes the stock of a physical product and returns the new level.
func (s *ProductService) AdjustStock(ctx context.Context, businessID, id int, req *StockRequest) (int, error) {
	return s.products.AdjustStock(ctx, businessID, id, req.Delta)
}
