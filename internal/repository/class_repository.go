package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-records-api/internal/models"
)

const classDetailColumns = `c.id, c.code, c.course_id, c.semester_id, c.teacher_name, c.schedule, c.classroom, c.maximum_quantity,
        c.enrolled_count, c.created_at, c.updated_at, co.code AS course_code, co.title AS course_title, co.credits`

// ClassRepository persists class offerings.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes matching the filter.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("c.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("c.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.code) LIKE $%d OR LOWER(co.title) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base := "FROM classes c JOIN courses co ON co.id = c.course_id" + whereClause(conditions)
	column, order := orderBy(map[string]string{
		"code":       "c.code",
		"created_at": "c.created_at",
	}, filter.SortBy, filter.SortOrder, "created_at")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", classDetailColumns, base, column, order, limit, offset)
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a class with course info.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM classes c JOIN courses co ON co.id = c.course_id WHERE c.id = $1", classDetailColumns)
	var class models.ClassDetail
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create inserts a class with an empty seat counter.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	class.EnrolledCount = 0
	const query = `INSERT INTO classes (id, code, course_id, semester_id, teacher_name, schedule, classroom, maximum_quantity, enrolled_count, created_at, updated_at)
        VALUES (:id, :code, :course_id, :semester_id, :teacher_name, :schedule, :classroom, :maximum_quantity, :enrolled_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies a class. The enrolled counter is left to admission and cancellation.
// Lowering the maximum below the current count is rejected by the row guard.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) (bool, error) {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET code = :code, teacher_name = :teacher_name, schedule = :schedule, classroom = :classroom,
        maximum_quantity = :maximum_quantity, updated_at = :updated_at WHERE id = :id AND enrolled_count <= :maximum_quantity`
	res, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return false, fmt.Errorf("update class: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update class: %w", err)
	}
	return affected > 0, nil
}
