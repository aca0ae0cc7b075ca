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

type courseStore interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Course, int, error)
	GetByID(ctx context.Context, businessID, id int) (*models.Course, error)
	Create(ctx context.Context, c *models.Course) error
	Update(ctx context.Context, c *models.Course) error
	Delete(ctx context.Context, businessID, id int) error
	Modules(ctx context.Context, courseID int) ([]models.CourseModule, error)
	GetModule(ctx context.Context, businessID, moduleID int) (*models.CourseModule, error)
	CreateModule(ctx context.Context, m *models.CourseModule) error
	UpdateModule(ctx context.Context, m *models.CourseModule) error
	DeleteModule(ctx context.Context, moduleID int) error
	GetContent(ctx context.Context, businessID, contentID int) (*models.CourseContent, int, error)
	CreateContent(ctx context.Context, ct *models.CourseContent) error
	UpdateContent(ctx context.Context, ct *models.CourseContent) error
	DeleteContent(ctx context.Context, contentID int) error
	CompletedContentIDs(ctx context.Context, courseID, customerID int) (map[int]bool, error)
	ToggleCompletion(ctx context.Context, customerID, contentID int) (bool, error)
}

type markdownRenderer interface {
	Render(markdown string) (string, error)
}

// pricePolicy loads the currency policy of a business.
func pricePolicy(ctx context.Context, businesses businessLookup, businessID int) (pricing.Policy, error) {
	b, err := businesses.GetByID(ctx, businessID)
	if err != nil {
		return pricing.Policy{}, err
	}
	return pricing.NewPolicy(b), nil
}

// CourseService manages courses, their modules and lessons, and learner progress.
type CourseService struct {
	courses    courseStore
	customers  customerStore
	businesses businessLookup
	markdown   markdownRenderer
}

// NewCourseService constructs a CourseService.
func NewCourseService(courses courseStore, customers customerStore, businesses businessLookup, markdown markdownRenderer) *CourseService {
	return &CourseService{courses: courses, customers: customers, businesses: businesses, markdown: markdown}
}

// CourseRequest represents a course create or full update.
type CourseRequest struct {
	Title       string        `json:"title" binding:"required,max=255"`
	Slug        string        `json:"slug" binding:"omitempty,max=255"`
	Description string        `json:"description"`
	CoverURL    string        `json:"coverUrl" binding:"omitempty,url"`
	Prices      models.Prices `json:"prices"`
	IsPublished bool          `json:"isPublished"`
}

// ModuleRequest represents a module create or update.
type ModuleRequest struct {
	Title    string `json:"title" binding:"required,max=255"`
	Position int    `json:"position" binding:"gte=0"`
}

// ContentRequest represents a lesson create or update.
type ContentRequest struct {
	Title    string             `json:"title" binding:"required,max=255"`
	Kind     models.ContentKind `json:"kind" binding:"required,oneof=video text file quiz"`
	Body     string             `json:"body"`
	MediaURL string             `json:"mediaUrl" binding:"omitempty,url"`
	Position int                `json:"position" binding:"gte=0"`
}

// CourseDetail is a course with its outline and publishing readiness.
type CourseDetail struct {
	*models.Course
	Readiness Readiness `json:"readiness"`
}

// CompletionResult reports a toggled lesson and the recomputed progress.
type CompletionResult struct {
	ContentID int                    `json:"contentId"`
	Completed bool                   `json:"completed"`
	Progress  *models.CourseProgress `json:"progress"`
}

// List returns a page of courses.
func (s *CourseService) List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Course, int, error) {
	return s.courses.List(ctx, businessID, f)
}

// Get returns a course with its modules and lessons.
func (s *CourseService) Get(ctx context.Context, businessID, id int) (*CourseDetail, error) {
	c, err := s.courses.GetByID(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if c.Modules, err = s.courses.Modules(ctx, c.ID); err != nil {
		return nil, err
	}
	return &CourseDetail{Course: c, Readiness: CourseReadiness(c)}, nil
}

func (s *CourseService) apply(ctx context.Context, c *models.Course, req *CourseRequest) error {
	c.Title = strings.TrimSpace(req.Title)
	c.Slug = Slugify(req.Slug)
	if c.Slug == "" {
		c.Slug = Slugify(req.Title)
	}
	c.Description = req.Description
	c.CoverURL = req.CoverURL
	c.IsPublished = req.IsPublished

	html, err := s.markdown.Render(req.Description)
	if err != nil {
		return err
	}
	c.DescriptionHTML = html

	c.Prices = models.Prices{}
	if len(req.Prices) > 0 {
		policy, err := pricePolicy(ctx, s.businesses, c.BusinessID)
		if err != nil {
			return err
		}
		if c.Prices, err = pricing.Validate(req.Prices, policy); err != nil {
			return err
		}
	}
	return nil
}

// Create adds a course. New courses cannot be published before they have lessons.
func (s *CourseService) Create(ctx context.Context, businessID int, req *CourseRequest) (*models.Course, error) {
	if req.IsPublished {
		return nil, fmt.Errorf("a course without lessons cannot be published: %w", utils.ErrInvalidState)
	}
	c := &models.Course{BusinessID: businessID}
	if err := s.apply(ctx, c, req); err != nil {
		return nil, err
	}
	if err := s.courses.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update replaces a course's fields.
func (s *CourseService) Update(ctx context.Context, businessID, id int, req *CourseRequest) (*models.Course, error) {
	c, err := s.courses.GetByID(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if req.IsPublished && !c.IsPublished {
		modules, err := s.courses.Modules(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		lessons := 0
		for _, m := range modules {
			lessons += len(m.Contents)
		}
		if lessons == 0 {
			return nil, fmt.Errorf("a course without lessons cannot be published: %w", utils.ErrInvalidState)
		}
	}
	if err := s.apply(ctx, c, req); err != nil {
		return nil, err
	}
	if err := s.courses.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a course with its outline.
func (s *CourseService) Delete(ctx context.Context, businessID, id int) error {
	return s.courses.Delete(ctx, businessID, id)
}

// CreateModule adds a module to a course.
func (s *CourseService) CreateModule(ctx context.Context, businessID, courseID int, req *ModuleRequest) (*models.CourseModule, error) {
	if _, err := s.courses.GetByID(ctx, businessID, courseID); err != nil {
		return nil, err
	}
	m := &models.CourseModule{CourseID: courseID, Title: strings.TrimSpace(req.Title), Position: req.Position}
	if err := s.courses.CreateModule(ctx, m); err != nil {
		return nil, err
	}
	m.Contents = []models.CourseContent{}
	return m, nil
}

// UpdateModule renames or moves a module.
func (s *CourseService) UpdateModule(ctx context.Context, businessID, moduleID int, req *ModuleRequest) (*models.CourseModule, error) {
	m, err := s.courses.GetModule(ctx, businessID, moduleID)
	if err != nil {
		return nil, err
	}
	m.Title = strings.TrimSpace(req.Title)
	if req.Position > 0 {
		m.Position = req.Position
	}
	if err := s.courses.UpdateModule(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteModule removes a module and its lessons.
func (s *CourseService) DeleteModule(ctx context.Context, businessID, moduleID int) error {
	if _, err := s.courses.GetModule(ctx, businessID, moduleID); err != nil {
		return err
	}
	return s.courses.DeleteModule(ctx, moduleID)
}

func (s *CourseService) applyContent(ct *models.CourseContent, req *ContentRequest) error {
	html, err := s.markdown.Render(req.Body)
	if err != nil {
		return err
	}
	ct.Title = strings.TrimSpace(req.Title)
	ct.Kind = req.Kind
	ct.Body = req.Body
	ct.BodyHTML = html
	ct.MediaURL = req.MediaURL
	if req.Position > 0 {
		ct.Position = req.Position
	}
	return nil
}

// CreateContent adds a lesson to a module.
func (s *CourseService) CreateContent(ctx context.Context, businessID, moduleID int, req *ContentRequest) (*models.CourseContent, error) {
	if _, err := s.courses.GetModule(ctx, businessID, moduleID); err != nil {
		return nil, err
	}
	ct := &models.CourseContent{ModuleID: moduleID}
	if err := s.applyContent(ct, req); err != nil {
		return nil, err
	}
	if err := s.courses.CreateContent(ctx, ct); err != nil {
		return nil, err
	}
	return ct, nil
}

// UpdateContent edits a lesson.
func (s *CourseService) UpdateContent(ctx context.Context, businessID, contentID int, req *ContentRequest) (*models.CourseContent, error) {
	ct, _, err := s.courses.GetContent(ctx, businessID, contentID)
	if err != nil {
		return nil, err
	}
	if err := s.applyContent(ct, req); err != nil {
		return nil, err
	}
	if err := s.courses.UpdateContent(ctx, ct); err != nil {
		return nil, err
	}
	return ct, nil
}

// DeleteContent removes a lesson.
func (s *CourseService) DeleteContent(ctx context.Context, businessID, contentID int) error {
	if _, _, err := s.courses.GetContent(ctx, businessID, contentID); err != nil {
		return err
	}
	return s.courses.DeleteContent(ctx, contentID)
}

// Progress returns the customer's completion of a course.
func (s *CourseService) Progress(ctx context.Context, businessID, courseID, customerID int) (*models.CourseProgress, error) {
	if _, err := s.customers.GetByID(ctx, businessID, customerID); err != nil {
		return nil, err
	}
	if _, err := s.courses.GetByID(ctx, businessID, courseID); err != nil {
		return nil, err
	}
	return s.progress(ctx, courseID, customerID)
}

func (s *CourseService) progress(ctx context.Context, courseID, customerID int) (*models.CourseProgress, error) {
	modules, err := s.courses.Modules(ctx, courseID)
	if err != nil {
		return nil, err
	}
	done, err := s.courses.CompletedContentIDs(ctx, courseID, customerID)
	if err != nil {
		return nil, err
	}
	return ComputeProgress(courseID, customerID, modules, done), nil
}

// ToggleCompletion flips a lesson's completion for a customer and returns the
// recomputed course progress.
func (s *CourseService) ToggleCompletion(ctx context.Context, businessID, customerID, contentID int) (*CompletionResult, error) {
	if _, err := s.customers.GetByID(ctx, businessID, customerID); err != nil {
		return nil, err
	}
	_, courseID, err := s.courses.GetContent(ctx, businessID, contentID)
	if err != nil {
		return nil, err
	}
	completed, err := s.courses.ToggleCompletion(ctx, customerID, contentID)
	if err != nil {
		return nil, err
	}
	p, err := s.progress(ctx, courseID, customerID)
	if err != nil {
		return nil, err
	}
	return &CompletionResult{ContentID: contentID, Completed: completed, Progress: p}, nil
}
