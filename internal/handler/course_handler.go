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

type courseService interface {
	List(ctx context.Context, businessID int, f repository.ListFilter) ([]models.Course, int, error)
	Get(ctx context.Context, businessID, id int) (*service.CourseDetail, error)
	Create(ctx context.Context, businessID int, req *service.CourseRequest) (*models.Course, error)
	Update(ctx context.Context, businessID, id int, req *service.CourseRequest) (*models.Course, error)
	Delete(ctx context.Context, businessID, id int) error
	CreateModule(ctx context.Context, businessID, courseID int, req *service.ModuleRequest) (*models.CourseModule, error)
	UpdateModule(ctx context.Context, businessID, moduleID int, req *service.ModuleRequest) (*models.CourseModule, error)
	DeleteModule(ctx context.Context, businessID, moduleID int) error
	CreateContent(ctx context.Context, businessID, moduleID int, req *service.ContentRequest) (*models.CourseContent, error)
	UpdateContent(ctx context.Context, businessID, contentID int, req *service.ContentRequest) (*models.CourseContent, error)
	DeleteContent(ctx context.Context, businessID, contentID int) error
	Progress(ctx context.Context, businessID, courseID, customerID int) (*models.CourseProgress, error)
	ToggleCompletion(ctx context.Context, businessID, customerID, contentID int) (*service.CompletionResult, error)
}

// CourseHandler handles courses, their modules and lessons.
type CourseHandler struct {
	courses courseService
}

// NewCourseHandler constructs a CourseHandler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// ListCourses handles GET /v1/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	list, total, err := h.courses.List(c.Request.Context(), middleware.BusinessID(c), f)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve courses")
		return
	}
	paginated(c, "Courses retrieved", list, f, total)
}

// GetCourse handles GET /v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	course, err := h.courses.Get(c.Request.Context(), middleware.BusinessID(c), id)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve course")
		return
	}
	utils.Success(c, 200, "Course retrieved", course)
}

// CreateCourse handles POST /v1/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req service.CourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Create(c.Request.Context(), middleware.BusinessID(c), &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to create course")
		return
	}
	utils.Success(c, 201, "Course created successfully", course)
}

// UpdateCourse handles PUT /v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.CourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Update(c.Request.Context(), middleware.BusinessID(c), id, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to update course")
		return
	}
	utils.Success(c, 200, "Course updated successfully", course)
}

// DeleteCourse handles DELETE /v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.courses.Delete(c.Request.Context(), middleware.BusinessID(c), id); err != nil {
		utils.RespondError(c, err, "Failed to delete course")
		return
	}
	utils.Success(c, 200, "Course deleted successfully", nil)
}

// CreateModule handles POST /v1/courses/:id/modules
func (h *CourseHandler) CreateModule(c *gin.Context) {
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ModuleRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.courses.CreateModule(c.Request.Context(), middleware.BusinessID(c), courseID, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to create module")
		return
	}
	utils.Success(c, 201, "Module created successfully", m)
}

// UpdateModule handles PUT /v1/modules/:id
func (h *CourseHandler) UpdateModule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ModuleRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.courses.UpdateModule(c.Request.Context(), middleware.BusinessID(c), id, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to update module")
		return
	}
	utils.Success(c, 200, "Module updated successfully", m)
}

// DeleteModule handles DELETE /v1/modules/:id
func (h *CourseHandler) DeleteModule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.courses.DeleteModule(c.Request.Context(), middleware.BusinessID(c), id); err != nil {
		utils.RespondError(c, err, "Failed to delete module")
		return
	}
	utils.Success(c, 200, "Module deleted successfully", nil)
}

// CreateContent handles POST /v1/modules/:id/contents
func (h *CourseHandler) CreateContent(c *gin.Context) {
	moduleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ContentRequest
	if !bindJSON(c, &req) {
		return
	}
	ct, err := h.courses.CreateContent(c.Request.Context(), middleware.BusinessID(c), moduleID, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to create lesson")
		return
	}
	utils.Success(c, 201, "Lesson created successfully", ct)
}

// UpdateContent handles PUT /v1/contents/:id
func (h *CourseHandler) UpdateContent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ContentRequest
	if !bindJSON(c, &req) {
		return
	}
	ct, err := h.courses.UpdateContent(c.Request.Context(), middleware.BusinessID(c), id, &req)
	if err != nil {
		utils.RespondError(c, err, "Failed to update lesson")
		return
	}
	utils.Success(c, 200, "Lesson updated successfully", ct)
}

// DeleteContent handles DELETE /v1/contents/:id
func (h *CourseHandler) DeleteContent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.courses.DeleteContent(c.Request.Context(), middleware.BusinessID(c), id); err != nil {
		utils.RespondError(c, err, "Failed to delete lesson")
		return
	}
	utils.Success(c, 200, "Lesson deleted successfully", nil)
}

// GetProgress handles GET /v1/courses/:id/progress?customer_id=
func (h *CourseHandler) GetProgress(c *gin.Context) {
	courseID, ok := pathID(c, "id")
	if !ok {
		return
	}
	customerID, ok := queryID(c, "customer_id")
	if !ok {
		return
	}
	if customerID == 0 {
		utils.Error(c, 400, "INVALID_ID", "customer_id is required")
		return
	}
	p, err := h.courses.Progress(c.Request.Context(), middleware.BusinessID(c), courseID, customerID)
	if err != nil {
		utils.RespondError(c, err, "Failed to retrieve progress")
		return
	}
	utils.Success(c, 200, "Progress retrieved", p)
}

type completionRequest struct {
	CustomerID int `json:"customerId" binding:"required,gte=1"`
}

// ToggleCompletion handles POST /v1/contents/:id/complete
func (h *CourseHandler) ToggleCompletion(c *gin.Context) {
	contentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req completionRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.courses.ToggleCompletion(c.Request.Context(), middleware.BusinessID(c), req.CustomerID, contentID)
	if err != nil {
		utils.RespondError(c, err, "Failed to update completion")
		return
	}
	utils.Success(c, 200, "Completion updated", result)
}
