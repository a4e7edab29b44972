package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/pkg/database"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

// GradeRepository persists grades and finalises class results.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Record merges the given scores into the stored grade of an ACTIVE enrollment. Scores left nil
// keep their stored values; derive then recomputes total and letter on the merged grade.
// The enrollment row stays locked until commit so finalisation cannot interleave.
func (r *GradeRepository) Record(ctx context.Context, grade *models.Grade, derive func(*models.Grade)) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var status models.EnrollmentStatus
		const lockQuery = `SELECT status FROM enrollments WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &status, lockQuery, grade.EnrollmentID); err != nil {
			return err
		}
		if status != models.EnrollmentStatusActive {
			return appErrors.Clone(appErrors.ErrFinalized, "grades can only be recorded for active enrollments")
		}

		var stored models.Grade
		const selectQuery = `SELECT enrollment_id, midterm, final, total, letter, updated_at FROM grades WHERE enrollment_id = $1`
		err := tx.GetContext(ctx, &stored, selectQuery, grade.EnrollmentID)
		switch {
		case err == nil:
			if grade.Midterm == nil {
				grade.Midterm = stored.Midterm
			}
			if grade.Final == nil {
				grade.Final = stored.Final
			}
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("load grade: %w", err)
		}

		grade.Total, grade.Letter = nil, nil
		if derive != nil {
			derive(grade)
		}
		grade.UpdatedAt = time.Now().UTC()
		const upsertQuery = `INSERT INTO grades (enrollment_id, midterm, final, total, letter, updated_at)
        VALUES (:enrollment_id, :midterm, :final, :total, :letter, :updated_at)
        ON CONFLICT (enrollment_id) DO UPDATE SET midterm = EXCLUDED.midterm, final = EXCLUDED.final,
        total = EXCLUDED.total, letter = EXCLUDED.letter, updated_at = EXCLUDED.updated_at`
		if _, err := tx.NamedExecContext(ctx, upsertQuery, grade); err != nil {
			return fmt.Errorf("upsert grade: %w", err)
		}
		return nil
	})
}

type finalizeRow struct {
	EnrollmentID string   `db:"id"`
	Total        *float64 `db:"total"`
}

// FinalizeResult summarises a class finalisation.
type FinalizeResult struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// FinalizeClass moves every ACTIVE enrollment of a class to COMPLETED or FAILED using
// decide on the recorded total. It fails without changes when any active enrollment is ungraded.
func (r *GradeRepository) FinalizeClass(ctx context.Context, classID string, at time.Time, decide func(total float64) models.EnrollmentStatus) (*FinalizeResult, error) {
	result := &FinalizeResult{}
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const selectQuery = `SELECT e.id, g.total FROM enrollments e
        LEFT JOIN grades g ON g.enrollment_id = e.id
        WHERE e.class_id = $1 AND e.status = $2 FOR UPDATE OF e`
		var rows []finalizeRow
		if err := tx.SelectContext(ctx, &rows, selectQuery, classID, models.EnrollmentStatusActive); err != nil {
			return fmt.Errorf("lock class enrollments: %w", err)
		}

		missing := make([]string, 0)
		for _, row := range rows {
			if row.Total == nil {
				missing = append(missing, row.EnrollmentID)
			}
		}
		if len(missing) > 0 {
			return appErrors.WithDetails(appErrors.ErrPreconditionFailed, "every active enrollment must be graded before finalisation", missing)
		}

		const updateQuery = `UPDATE enrollments SET status = $2, completed_at = $3 WHERE id = $1 AND status = $4`
		for _, row := range rows {
			status := decide(*row.Total)
			if _, err := tx.ExecContext(ctx, updateQuery, row.EnrollmentID, status, at, models.EnrollmentStatusActive); err != nil {
				return fmt.Errorf("finalize enrollment %s: %w", row.EnrollmentID, err)
			}
			if status == models.EnrollmentStatusCompleted {
				result.Completed++
			} else {
				result.Failed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TranscriptRows returns finalised course results of a student, optionally for one semester.
func (r *GradeRepository) TranscriptRows(ctx context.Context, studentID, semesterID string) ([]models.TranscriptRow, error) {
	query := `SELECT e.id AS enrollment_id, e.semester_id, sm.academic_year, sm.term, e.course_id, co.code AS course_code,
        co.title AS course_title, co.credits, e.status, g.midterm, g.final, g.total, g.letter
        FROM enrollments e
        JOIN semesters sm ON sm.id = e.semester_id
        JOIN courses co ON co.id = e.course_id
        LEFT JOIN grades g ON g.enrollment_id = e.id
        WHERE e.student_id = $1 AND e.status IN ($2, $3)`
	args := []interface{}{studentID, models.EnrollmentStatusCompleted, models.EnrollmentStatusFailed}
	if semesterID != "" {
		query += " AND e.semester_id = $4"
		args = append(args, semesterID)
	}
	query += " ORDER BY sm.start_date, co.code"

	rows := make([]models.TranscriptRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list transcript rows: %w", err)
	}
	return rows, nil
}
