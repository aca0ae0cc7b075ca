package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_dashboard/internal/importer"
	"github.com/GTDGit/gtd_dashboard/internal/middleware"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/service"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

// maxImportBytes limits uploaded import files.
const maxImportBytes = 10 << 20

type customerService interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Customer, int, error)
	Get(ctx context.Context, businessID, id int) (*models.Customer, error)
	Create(ctx context.Context, businessID int, req *service.CustomerRequest) (*models.Customer, error)
	Update(ctx context.Context, businessID, id int, req *service.UpdateCustomerRequest) (*models.Customer, error)
	Delete(ctx context.Context, businessID, id int) error
	Import(ctx context.Context, businessID int, filename string, r io.Reader) (*importer.Result, error)
	Export(ctx context.Context, businessID int) (*service.ExportLink, error)
}

// CustomerHandler handles customer management endpoints.
type CustomerHandler struct {
	customers customerService
}

// NewCustomerHandler constructs a CustomerHandler.
func NewCustomerHandler(customers customerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// ListCustomers handles GET /v1/customers
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	list, total, err := h.customers.List(c.Request.Context(), middleware.BusinessID(c), f)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve customers")
		return
	}
	paginated(c, "Customers retrieved", list, f, total)
}

// GetCustomer handles GET /v1/customers/:id
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	customer, err := h.customers.Get(c.Request.Context(), middleware.BusinessID(c), id)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve customer")
		return
	}
	utils.Success(c, 200, "Customer retrieved", customer)
}

// CreateCustomer handles POST /v1/customers
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.customers.Create(c.Request.Context(), middleware.BusinessID(c), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to create customer")
		return
	}
	utils.Success(c, 201, "Customer created successfully", customer)
}

// UpdateCustomer handles PATCH /v1/customers/:id
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateCustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.customers.Update(c.Request.Context(), middleware.BusinessID(c), id, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to update customer")
		return
	}
	utils.Success(c, 200, "Customer updated successfully", customer)
}

// DeleteCustomer handles DELETE /v1/customers/:id
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.customers.Delete(c.Request.Context(), middleware.BusinessID(c), id); err != nil {
		utils.RespondError(c, err, "Failed to delete customer")
		return
	}
	utils.Success(c, 200, "Customer deleted successfully", nil)
}

// ImportCustomers handles POST /v1/customers/import (multipart field "file").
func (h *CustomerHandler) ImportCustomers(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		utils.Error(c, 400, "FILE_REQUIRED", "Multipart field 'file' is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.RespondError(c, err, "Failed to read upload")
		return
	}
	defer f.Close()

	result, err := h.customers.Import(c.Request.Context(), middleware.BusinessID(c), fh.Filename, f)
	if err != nil {
		utils.RespondError(c, err, "Failed to import customers")
		return
	}
	utils.Success(c, 200, "Customers imported", result)
}

// ExportCustomers handles POST /v1/customers/export
func (h *CustomerHandler) ExportCustomers(c *gin.Context) {
	link, err := h.customers.Export(c.Request.Context(), middleware.BusinessID(c))
	if errors.Is(err, utils.ErrUnavailable) {
		utils.Error(c, 503, "EXPORT_UNAVAILABLE", "Export storage is not configured")
		return
	}
	if err != nil {
		utils.RespondError(c, err, "Failed to export customers")
		return
	}
	utils.Success(c, 200, "Customers exported", link)
}
