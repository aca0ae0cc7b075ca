package models

import "time"

// ContentKind enumerates lesson content types.
type ContentKind string

const (
	ContentVideo ContentKind = "video"
	ContentText  ContentKind = "text"
	ContentFile  ContentKind = "file"
	ContentQuiz  ContentKind = "quiz"
)

// Course is a publishable learning product.
type Course struct {
	ID              int       `db:"id" json:"id"`
	BusinessID      int       `db:"business_id" json:"-"`
	Title           string    `db:"title" json:"title"`
	Slug            string    `db:"slug" json:"slug"`
	Description     string    `db:"description" json:"description"`
	DescriptionHTML string    `db:"description_html" json:"descriptionHtml"`
	CoverURL        string    `db:"cover_url" json:"coverUrl"`
	Prices          Prices    `db:"prices" json:"prices"`
	IsPublished     bool      `db:"is_published" json:"isPublished"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`

	Modules []CourseModule `db:"-" json:"modules,omitempty"`
}

// CourseModule groups lessons inside a course.
type CourseModule struct {
	ID        int       `db:"id" json:"id"`
	CourseID  int       `db:"course_id" json:"courseId"`
	Title     string    `db:"title" json:"title"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	Contents []CourseContent `db:"-" json:"contents"`
}

// CourseContent is a single lesson inside a module.
type CourseContent struct {
	ID        int         `db:"id" json:"id"`
	ModuleID  int         `db:"module_id" json:"moduleId"`
	Title     string      `db:"title" json:"title"`
	Kind      ContentKind `db:"kind" json:"kind"`
	Body      string      `db:"body" json:"body"`
	BodyHTML  string      `db:"body_html" json:"bodyHtml"`
	MediaURL  string      `db:"media_url" json:"mediaUrl"`
	Position  int         `db:"position" json:"position"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`

	Completed bool `db:"-" json:"completed"`
}

// ModuleProgress is the completion summary of one module.
type ModuleProgress struct {
	ModuleID  int `json:"moduleId"`
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Percent   int `json:"percent"`
}

// CourseProgress is the completion summary of a course for one customer.
type CourseProgress struct {
	CourseID   int              `json:"courseId"`
	CustomerID int              `json:"customerId"`
	Total      int              `json:"total"`
	Completed  int              `json:"completed"`
	Percent    int              `json:"percent"`
	Modules    []ModuleProgress `json:"modules"`
}
