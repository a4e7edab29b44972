package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/pkg/database"
)

// CourseRepository manages courses and their prerequisite links.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching the filter without prerequisites.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var conditions []string
	var args []interface{}

	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(title) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base := "FROM courses" + whereClause(conditions)
	column, order := orderBy(map[string]string{
		"code":       "code",
		"title":      "title",
		"created_at": "created_at",
	}, filter.SortBy, filter.SortOrder, "code")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT id, code, title, credits, faculty_id, status, description, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		base, column, order, limit, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns the course with its prerequisites.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, title, credits, faculty_id, status, description, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	prereqs, err := r.ListPrerequisites(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Prerequisites = prereqs
	return &course, nil
}

// ListPrerequisites returns the courses required before courseID.
func (r *CourseRepository) ListPrerequisites(ctx context.Context, courseID string) ([]models.CourseRef, error) {
	const query = `SELECT c.id, c.code, c.title FROM course_prerequisites cp
        JOIN courses c ON c.id = cp.prerequisite_id
        WHERE cp.course_id = $1 ORDER BY c.code`
	prereqs := make([]models.CourseRef, 0)
	if err := r.db.SelectContext(ctx, &prereqs, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return prereqs, nil
}

// ExistsByCode reports whether a course code is taken, optionally excluding an ID.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE code = $1"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// CountExisting returns how many of ids exist as courses.
func (r *CourseRepository) CountExisting(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("SELECT COUNT(*) FROM courses WHERE id IN (?)", ids)
	if err != nil {
		return 0, fmt.Errorf("build course lookup: %w", err)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}

// Create inserts a course together with its prerequisite links.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course, prerequisiteIDs []string) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	if course.Status == "" {
		course.Status = models.CourseStatusActive
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO courses (id, code, title, credits, faculty_id, status, description, created_at, updated_at)
        VALUES (:id, :code, :title, :credits, :faculty_id, :status, :description, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, course); err != nil {
			return fmt.Errorf("create course: %w", err)
		}
		return insertPrerequisites(ctx, tx, course.ID, prerequisiteIDs)
	})
}

// Update modifies the course attributes.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, title = :title, credits = :credits, faculty_id = :faculty_id, status = :status,
        description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// ReplacePrerequisites swaps the prerequisite set of a course.
func (r *CourseRepository) ReplacePrerequisites(ctx context.Context, courseID string, prerequisiteIDs []string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM course_prerequisites WHERE course_id = $1`, courseID); err != nil {
			return fmt.Errorf("clear prerequisites: %w", err)
		}
		return insertPrerequisites(ctx, tx, courseID, prerequisiteIDs)
	})
}

func insertPrerequisites(ctx context.Context, tx *sqlx.Tx, courseID string, prerequisiteIDs []string) error {
	const query = `INSERT INTO course_prerequisites (course_id, prerequisite_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, id := range prerequisiteIDs {
		if _, err := tx.ExecContext(ctx, query, courseID, id); err != nil {
			return fmt.Errorf("insert prerequisite %s: %w", id, err)
		}
	}
	return nil
}
