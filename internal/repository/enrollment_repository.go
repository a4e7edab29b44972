package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/pkg/database"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

const enrollmentColumns = `e.id, e.student_id, e.class_id, e.course_id, e.semester_id, e.status, e.enrolled_at, e.cancelled_at, e.completed_at`

// EnrollmentRepository handles persistence of enrollments and the class seat counter.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN classes c ON c.id = e.class_id
JOIN courses co ON co.id = e.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("e.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	base += whereClause(conditions)

	column, order := orderBy(map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"student_name": "s.full_name",
		"class_code":   "c.code",
	}, filter.SortBy, filter.SortOrder, "enrolled_at")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s,
        s.student_code, s.full_name AS student_name, c.code AS class_code, co.code AS course_code
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, enrollmentColumns, base, column, order, limit, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments e WHERE e.id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student, class and grade info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
        s.student_code, s.full_name AS student_name, c.code AS class_code, co.code AS course_code
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN classes c ON c.id = e.class_id
        JOIN courses co ON co.id = e.course_id
        WHERE e.id = $1`, enrollmentColumns)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}

	const gradeQuery = `SELECT enrollment_id, midterm, final, total, letter, updated_at FROM grades WHERE enrollment_id = $1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, gradeQuery, id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("load grade: %w", err)
		}
	} else {
		detail.Grade = &grade
	}
	return &detail, nil
}

// CompletedCourseIDs returns the courses a student has completed.
func (r *EnrollmentRepository) CompletedCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT DISTINCT course_id FROM enrollments WHERE student_id = $1 AND status = $2`
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, query, studentID, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("list completed courses: %w", err)
	}
	return ids, nil
}

// Admit inserts an ACTIVE enrollment and takes one seat of the class atomically.
// The class row is locked for the duration so concurrent admissions serialise on it.
func (r *EnrollmentRepository) Admit(ctx context.Context, enrollment *models.Enrollment) (err error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	enrollment.Status = models.EnrollmentStatusActive

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin admission transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var seats struct {
		Maximum  int `db:"maximum_quantity"`
		Enrolled int `db:"enrolled_count"`
	}
	const lockQuery = `SELECT maximum_quantity, enrolled_count FROM classes WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &seats, lockQuery, enrollment.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return fmt.Errorf("lock class: %w", err)
	}

	var exists int
	const duplicateQuery = `SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND semester_id = $3 AND status <> $4 LIMIT 1`
	err = tx.GetContext(ctx, &exists, duplicateQuery, enrollment.StudentID, enrollment.ClassID, enrollment.SemesterID, models.EnrollmentStatusCancelled)
	switch {
	case err == nil:
		return appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check duplicate enrollment: %w", err)
	}

	const seatQuery = `UPDATE classes SET enrolled_count = enrolled_count + 1, updated_at = $2 WHERE id = $1 AND enrolled_count < maximum_quantity`
	res, err := tx.ExecContext(ctx, seatQuery, enrollment.ClassID, enrollment.EnrolledAt)
	if err != nil {
		return fmt.Errorf("take seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("take seat: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrClassFull, fmt.Sprintf("class is full (%d/%d)", seats.Enrolled, seats.Maximum))
	}

	const insertQuery = `INSERT INTO enrollments (id, student_id, class_id, course_id, semester_id, status, enrolled_at)
        VALUES (:id, :student_id, :class_id, :course_id, :semester_id, :status, :enrolled_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, enrollment); err != nil {
		if database.IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit admission: %w", err)
	}
	return nil
}

// Cancel locks the enrollment, runs check against the locked row, then marks it
// CANCELLED and releases its seat.
func (r *EnrollmentRepository) Cancel(ctx context.Context, id string, at time.Time, check func(*models.Enrollment) error) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf("SELECT %s FROM enrollments e WHERE e.id = $1 FOR UPDATE", enrollmentColumns)
		if err := tx.GetContext(ctx, &enrollment, query, id); err != nil {
			return err
		}
		if check != nil {
			if err := check(&enrollment); err != nil {
				return err
			}
		}

		const statusQuery = `UPDATE enrollments SET status = $2, cancelled_at = $3 WHERE id = $1 AND status = $4`
		res, err := tx.ExecContext(ctx, statusQuery, id, models.EnrollmentStatusCancelled, at, models.EnrollmentStatusActive)
		if err != nil {
			return fmt.Errorf("cancel enrollment: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("cancel enrollment: %w", err)
		}
		if affected == 0 {
			return appErrors.Clone(appErrors.ErrCancellationNotAllowed, "enrollment is no longer active")
		}

		const seatQuery = `UPDATE classes SET enrolled_count = enrolled_count - 1, updated_at = $2 WHERE id = $1 AND enrolled_count > 0`
		if _, err := tx.ExecContext(ctx, seatQuery, enrollment.ClassID, at); err != nil {
			return fmt.Errorf("release seat: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	enrollment.Status = models.EnrollmentStatusCancelled
	enrollment.CancelledAt = &at
	return &enrollment, nil
}
