package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_dashboard/internal/models"
)

const (
	courseColumns  = `id, business_id, title, slug, description, description_html, cover_url, prices, is_published, created_at, updated_at`
	moduleColumns  = `id, course_id, title, position, created_at, updated_at`
	contentColumns = `id, module_id, title, kind, body, body_html, media_url, position, created_at, updated_at`
)

// CourseRepository provides data access for courses, modules, lessons and completions.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns a page of courses. Status "published" or "draft" filters by state.
func (r *CourseRepository) List(ctx context.Context, businessID int, f ListFilter) ([]models.Course, int, error) {
	cond := scoped("business_id", businessID)
	cond.search(f.Search, "title", "slug")
	switch f.Status {
	case "published":
		cond.add("is_published = $%d", true)
	case "draft":
		cond.add("is_published = $%d", false)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses`+cond.where(), cond.args...); err != nil {
		return nil, 0, err
	}
	limit, args := cond.page(f.Page)
	list := []models.Course{}
	q := `SELECT ` + courseColumns + ` FROM courses` + cond.where() + ` ORDER BY created_at DESC, id DESC` + limit
	if err := r.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// GetByID returns a course without its modules.
func (r *CourseRepository) GetByID(ctx context.Context, businessID, id int) (*models.Course, error) {
	var c models.Course
	err := r.db.GetContext(ctx, &c,
		`SELECT `+courseColumns+` FROM courses WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return nil, mapErr(err, "course")
	}
	return &c, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	const q = `INSERT INTO courses (business_id, title, slug, description, description_html, cover_url, prices, is_published)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q,
		c.BusinessID, c.Title, c.Slug, c.Description, c.DescriptionHTML, c.CoverURL, c.Prices, c.IsPublished,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapErr(err, "course")
}

// Update saves a course.
func (r *CourseRepository) Update(ctx context.Context, c *models.Course) error {
	const q = `UPDATE courses
        SET title = $1, slug = $2, description = $3, description_html = $4, cover_url = $5,
            prices = $6, is_published = $7, updated_at = NOW()
        WHERE business_id = $8 AND id = $9
        RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, q,
		c.Title, c.Slug, c.Description, c.DescriptionHTML, c.CoverURL, c.Prices, c.IsPublished, c.BusinessID, c.ID,
	).Scan(&c.UpdatedAt)
	return mapErr(err, "course")
}

// Delete removes a course with its modules and lessons.
func (r *CourseRepository) Delete(ctx context.Context, businessID, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE business_id = $1 AND id = $2`, businessID, id)
	return affected(res, err, "course")
}

// Modules returns the course's modules with their lessons, both in position order.
func (r *CourseRepository) Modules(ctx context.Context, courseID int) ([]models.CourseModule, error) {
	modules := []models.CourseModule{}
	if err := r.db.SelectContext(ctx, &modules,
		`SELECT `+moduleColumns+` FROM course_modules WHERE course_id = $1 ORDER BY position ASC, id ASC`, courseID); err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return modules, nil
	}

	ids := make([]int64, len(modules))
	byID := make(map[int]int, len(modules))
	for i, m := range modules {
		ids[i] = int64(m.ID)
		byID[m.ID] = i
		modules[i].Contents = []models.CourseContent{}
	}

	var contents []models.CourseContent
	if err := r.db.SelectContext(ctx, &contents,
		`SELECT `+contentColumns+` FROM course_contents WHERE module_id = ANY($1) ORDER BY position ASC, id ASC`,
		pq.Array(ids)); err != nil {
		return nil, err
	}
	for _, ct := range contents {
		i := byID[ct.ModuleID]
		modules[i].Contents = append(modules[i].Contents, ct)
	}
	return modules, nil
}

// GetModule returns a module after checking it belongs to the business.
func (r *CourseRepository) GetModule(ctx context.Context, businessID, moduleID int) (*models.CourseModule, error) {
	var m models.CourseModule
	err := r.db.GetContext(ctx, &m, `SELECT m.id, m.course_id, m.title, m.position, m.created_at, m.updated_at
        FROM course_modules m JOIN courses c ON c.id = m.course_id
        WHERE c.business_id = $1 AND m.id = $2`, businessID, moduleID)
	if err != nil {
		return nil, mapErr(err, "module")
	}
	return &m, nil
}

// CreateModule appends a module at the end of the course when Position is 0.
func (r *CourseRepository) CreateModule(ctx context.Context, m *models.CourseModule) error {
	const q = `INSERT INTO course_modules (course_id, title, position)
        VALUES ($1, $2, CASE WHEN $3 > 0 THEN $3 ELSE
            (SELECT COALESCE(MAX(position), 0) + 1 FROM course_modules WHERE course_id = $1) END)
        RETURNING id, position, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q, m.CourseID, m.Title, m.Position).
		Scan(&m.ID, &m.Position, &m.CreatedAt, &m.UpdatedAt)
	return mapErr(err, "module")
}

// UpdateModule saves a module's title and position.
func (r *CourseRepository) UpdateModule(ctx context.Context, m *models.CourseModule) error {
	err := r.db.QueryRowxContext(ctx,
		`UPDATE course_modules SET title = $1, position = $2, updated_at = NOW() WHERE id = $3 RETURNING updated_at`,
		m.Title, m.Position, m.ID).Scan(&m.UpdatedAt)
	return mapErr(err, "module")
}

// DeleteModule removes a module and its lessons.
func (r *CourseRepository) DeleteModule(ctx context.Context, moduleID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_modules WHERE id = $1`, moduleID)
	return affected(res, err, "module")
}

// GetContent returns a lesson and its course ID after checking the business.
func (r *CourseRepository) GetContent(ctx context.Context, businessID, contentID int) (*models.CourseContent, int, error) {
	var row struct {
		models.CourseContent
		CourseID int `db:"course_id"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT ct.id, ct.module_id, ct.title, ct.kind, ct.body, ct.body_html, ct.media_url,
            ct.position, ct.created_at, ct.updated_at, m.course_id
        FROM course_contents ct
        JOIN course_modules m ON m.id = ct.module_id
        JOIN courses c ON c.id = m.course_id
        WHERE c.business_id = $1 AND ct.id = $2`, businessID, contentID)
	if err != nil {
		return nil, 0, mapErr(err, "content")
	}
	return &row.CourseContent, row.CourseID, nil
}

// CreateContent appends a lesson to a module when Position is 0.
func (r *CourseRepository) CreateContent(ctx context.Context, ct *models.CourseContent) error {
	const q = `INSERT INTO course_contents (module_id, title, kind, body, body_html, media_url, position)
        VALUES ($1, $2, $3, $4, $5, $6, CASE WHEN $7 > 0 THEN $7 ELSE
            (SELECT COALESCE(MAX(position), 0) + 1 FROM course_contents WHERE module_id = $1) END)
        RETURNING id, position, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q,
		ct.ModuleID, ct.Title, ct.Kind, ct.Body, ct.BodyHTML, ct.MediaURL, ct.Position,
	).Scan(&ct.ID, &ct.Position, &ct.CreatedAt, &ct.UpdatedAt)
	return mapErr(err, "content")
}

// UpdateContent saves a lesson.
func (r *CourseRepository) UpdateContent(ctx context.Context, ct *models.CourseContent) error {
	const q = `UPDATE course_contents
        SET title = $1, kind = $2, body = $3, body_html = $4, media_url = $5, position = $6, updated_at = NOW()
        WHERE id = $7
        RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, q,
		ct.Title, ct.Kind, ct.Body, ct.BodyHTML, ct.MediaURL, ct.Position, ct.ID,
	).Scan(&ct.UpdatedAt)
	return mapErr(err, "content")
}

// DeleteContent removes a lesson.
func (r *CourseRepository) DeleteContent(ctx context.Context, contentID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_contents WHERE id = $1`, contentID)
	return affected(res, err, "content")
}

// CompletedContentIDs returns the lessons of a course the customer completed.
func (r *CourseRepository) CompletedContentIDs(ctx context.Context, courseID, customerID int) (map[int]bool, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT cc.content_id
        FROM content_completions cc
        JOIN course_contents ct ON ct.id = cc.content_id
        JOIN course_modules m ON m.id = ct.module_id
        WHERE m.course_id = $1 AND cc.customer_id = $2`, courseID, customerID)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}

// ToggleCompletion flips the completion of a lesson for a customer and
// reports whether it is now completed.
func (r *CourseRepository) ToggleCompletion(ctx context.Context, customerID, contentID int) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var deleted int
	err = tx.QueryRowxContext(ctx,
		`DELETE FROM content_completions WHERE customer_id = $1 AND content_id = $2 RETURNING content_id`,
		customerID, contentID).Scan(&deleted)
	switch {
	case err == nil:
		return false, tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return false, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO content_completions (customer_id, content_id) VALUES ($1, $2)`,
		customerID, contentID); err != nil {
		return false, mapErr(err, "completion")
	}
	return true, tx.Commit()
}
