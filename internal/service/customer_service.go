package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/importer"
	"github.com/GTDGit/gtd_dashboard/internal/metrics"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

type customerStore interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Customer, int, error)
	All(ctx context.Context, businessID int) ([]models.Customer, error)
	GetByID(ctx context.Context, businessID, id int) (*models.Customer, error)
	Create(ctx context.Context, c *models.Customer) error
	InsertIfAbsent(ctx context.Context, c *models.Customer) (bool, error)
	Update(ctx context.Context, c *models.Customer) error
	Delete(ctx context.Context, businessID, id int) error
}

// ObjectStore stores export files and hands out temporary links to them.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PresignGet(ctx context.Context, key string) (string, time.Time, error)
}

// CustomerService handles customer records, imports and exports.
type CustomerService struct {
	customers     customerStore
	objects       ObjectStore
	importMaxRows int
}

// NewCustomerService constructs a CustomerService. objects may be nil when
// object storage is not configured; exports then fail with ErrUnavailable.
func NewCustomerService(customers customerStore, objects ObjectStore, importMaxRows int) *CustomerService {
	return &CustomerService{customers: customers, objects: objects, importMaxRows: importMaxRows}
}

// CustomerRequest represents the create payload.
type CustomerRequest struct {
	FirstName string   `json:"firstName" binding:"max=100"`
	LastName  string   `json:"lastName" binding:"max=100"`
	Email     string   `json:"email" binding:"required,email,max=255"`
	Phone     string   `json:"phone" binding:"max=50"`
	Tags      []string `json:"tags"`
	Notes     string   `json:"notes"`
}

// UpdateCustomerRequest represents a partial customer update.
type UpdateCustomerRequest struct {
	FirstName *string   `json:"firstName" binding:"omitempty,max=100"`
	LastName  *string   `json:"lastName" binding:"omitempty,max=100"`
	Email     *string   `json:"email" binding:"omitempty,email,max=255"`
	Phone     *string   `json:"phone" binding:"omitempty,max=50"`
	Tags      *[]string `json:"tags"`
	Notes     *string   `json:"notes"`
}

// ExportLink is a temporary download link for an export file.
type ExportLink struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func cleanTags(tags []string) []string {
	return importer.SplitTags(strings.Join(tags, ";"))
}

// List returns a page of customers.
func (s *CustomerService) List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Customer, int, error) {
	return s.customers.List(ctx, businessID, f)
}

// Get returns one customer.
func (s *CustomerService) Get(ctx context.Context, businessID, id int) (*models.Customer, error) {
	return s.customers.GetByID(ctx, businessID, id)
}

// Create adds a customer.
func (s *CustomerService) Create(ctx context.Context, businessID int, req *CustomerRequest) (*models.Customer, error) {
	c := &models.Customer{
		BusinessID: businessID,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:      strings.TrimSpace(req.Phone),
		Tags:       cleanTags(req.Tags),
		Notes:      req.Notes,
	}
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update applies a partial update.
func (s *CustomerService) Update(ctx context.Context, businessID, id int, req *UpdateCustomerRequest) (*models.Customer, error) {
	c, err := s.customers.GetByID(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		c.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		c.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		c.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		c.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Tags != nil {
		c.Tags = cleanTags(*req.Tags)
	}
	if req.Notes != nil {
		c.Notes = *req.Notes
	}
	if err := s.customers.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a customer.
func (s *CustomerService) Delete(ctx context.Context, businessID, id int) error {
	return s.customers.Delete(ctx, businessID, id)
}

// Import parses an uploaded file and inserts every valid row whose email is
// not yet taken. Invalid and duplicate rows are reported, not fatal.
func (s *CustomerService) Import(ctx context.Context, businessID int, filename string, r io.Reader) (*importer.Result, error) {
	rows, err := importer.Parse(filename, r, s.importMaxRows)
	if err != nil {
		return nil, err
	}

	res := &importer.Result{Errors: []importer.RowError{}}
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		row.Email = strings.ToLower(strings.TrimSpace(row.Email))
		if err := row.Validate(); err != nil {
			res.Skip(row.Line, strings.TrimPrefix(err.Error(), utils.ErrInvalidInput.Error()+": "))
			continue
		}
		if seen[row.Email] {
			res.Skip(row.Line, "duplicate email in file")
			continue
		}
		seen[row.Email] = true

		inserted, err := s.customers.InsertIfAbsent(ctx, &models.Customer{
			BusinessID: businessID,
			FirstName:  row.FirstName,
			LastName:   row.LastName,
			Email:      row.Email,
			Phone:      row.Phone,
			Tags:       cleanTags(row.Tags),
			Notes:      row.Notes,
		})
		if err != nil {
			return nil, fmt.Errorf("import row %d: %w", row.Line, err)
		}
		if !inserted {
			res.Skip(row.Line, "email already exists")
			continue
		}
		res.Imported++
	}

	metrics.ImportRows(res.Imported, res.Skipped)
	log.Info().
		Int("business_id", businessID).
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Msg("customer import finished")
	return res, nil
}

// Export writes every customer to a CSV object and returns a temporary link.
func (s *CustomerService) Export(ctx context.Context, businessID int) (*ExportLink, error) {
	if s.objects == nil {
		return nil, fmt.Errorf("export storage is not configured: %w", utils.ErrUnavailable)
	}
	list, err := s.customers.All(ctx, businessID)
	if err != nil {
		return nil, err
	}
	rows := make([]importer.Row, len(list))
	for i, c := range list {
		rows[i] = importer.Row{
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Email:     c.Email,
			Phone:     c.Phone,
			Tags:      c.Tags,
			Notes:     c.Notes,
		}
	}
	var buf bytes.Buffer
	if err := importer.WriteCSV(&buf, rows); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/%d/customers-%s.csv", businessID, time.Now().UTC().Format("20060102T150405Z"))
	if err := s.objects.Put(ctx, key, "text/csv", buf.Bytes()); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	url, expires, err := s.objects.PresignGet(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}
	return &ExportLink{URL: url, Key: key, Rows: len(rows), ExpiresAt: expires}, nil
}
