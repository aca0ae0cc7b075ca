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

type productService interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Product, int, error)
	Get(ctx context.Context, businessID, id int) (*models.Product, error)
	Create(ctx context.Context, businessID int, req *service.ProductRequest) (*models.Product, error)
	Update(ctx context.Context, businessID, id int, req *service.ProductRequest) (*models.Product, error)
	Delete(ctx context.Context, businessID, id int) error
	AdjustStock(ctx context.Context, businessID, id int, req *service.StockRequest) (int, error)
}

// ProductHandler handles product-related HTTP endpoints.
type ProductHandler struct {
	products productService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(products productService) *ProductHandler {
	return &ProductHandler{products: products}
}

// ListProducts handles GET /v1/products?kind=physical|digital
func (h *ProductHandler) ListProducts(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	list, total, err := h.products.List(c.Request.Context(), middleware.BusinessID(c), f)
	if err != nil {
		utils.RespondError(c, err, "Failed to get products")
		return
	}
	paginated(c, "Products retrieved successfully", list, f, total)
}

// GetProduct handles GET /v1/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.products.Get(c.Request.Context(), middleware.BusinessID(c), id)
	if err != nil {
		utils.RespondError(c, err, "Failed to get product")
		return
	}
	utils.Success(c, 200, "Product retrieved", p)
}

// CreateProduct handles POST /v1/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.ProductRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.products.Create(c.Request.Context(), middleware.BusinessID(c), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to create product")
		return
	}
	utils.Success(c, 201, "Product created successfully", p)
}

// UpdateProduct handles PUT /v1/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ProductRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.products.Update(c.Request.Context(), middleware.BusinessID(c), id, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to update product")
		return
	}
	utils.Success(c, 200, "Product updated successfully", p)
}

// DeleteProduct handles DELETE /v1/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), middleware.BusinessID(c), id); err != nil {
		utils.RespondError(c, err, "Failed to delete product")
		return
	}
	utils.Success(c, 200, "Product deleted successfully", nil)
}

// AdjustStock handles POST /v1/products/:id/stock
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.StockRequest
	if !bindJSON(c, &req) {
		return
	}
	stock, err := h.products.AdjustStock(c.Request.Context(), middleware.BusinessID(c), id, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to adjust stock")
		return
	}
	utils.Success(c, 200, "Stock adjusted", gin.H{"id": id, "stock": stock})
}
