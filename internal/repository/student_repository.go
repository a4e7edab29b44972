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

const studentColumns = `s.id, s.student_code, s.full_name, s.date_of_birth, s.gender, s.faculty_id, s.program_id, s.status_id,
        s.cohort_year, s.email, s.phone, s.active, s.created_at, s.updated_at`

// StudentRepository manages persistence for students and the records they own.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var conditions []string
	var args []interface{}

	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("s.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("s.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.StatusID != "" {
		conditions = append(conditions, fmt.Sprintf("s.status_id = $%d", len(args)+1))
		args = append(args, filter.StatusID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(s.student_code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base := "FROM students s" + whereClause(conditions)
	column, order := orderBy(map[string]string{
		"full_name":    "s.full_name",
		"student_code": "s.student_code",
		"created_at":   "s.created_at",
	}, filter.SortBy, filter.SortOrder, "created_at")
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, limit, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindDetailByID fetches a student together with addresses and identity paper.
func (r *StudentRepository) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.StudentDetail{Student: *student, Addresses: []models.Address{}}

	const addressQuery = `SELECT id, student_id, kind, street, ward, district, city, country FROM student_addresses WHERE student_id = $1 ORDER BY kind`
	if err := r.db.SelectContext(ctx, &detail.Addresses, addressQuery, id); err != nil {
		return nil, fmt.Errorf("load addresses: %w", err)
	}

	const paperQuery = `SELECT id, student_id, type, number, issued_date, issued_place, expiry_date, has_chip, issuing_country, notes
        FROM identity_papers WHERE student_id = $1`
	var paper models.IdentityPaper
	if err := r.db.GetContext(ctx, &paper, paperQuery, id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("load identity paper: %w", err)
		}
	} else {
		detail.IdentityPaper = &paper
	}
	return detail, nil
}

// ExistsByCode checks if a student code is taken, optionally excluding an ID.
func (r *StudentRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE student_code = $1"
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
		return false, fmt.Errorf("check student code: %w", err)
	}
	return true, nil
}

// Create inserts the student, its addresses and identity paper in one transaction.
func (r *StudentRepository) Create(ctx context.Context, detail *models.StudentDetail) error {
	student := &detail.Student
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO students (id, student_code, full_name, date_of_birth, gender, faculty_id, program_id, status_id, cohort_year, email, phone, active, created_at, updated_at)
        VALUES (:id, :student_code, :full_name, :date_of_birth, :gender, :faculty_id, :program_id, :status_id, :cohort_year, :email, :phone, :active, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		if err := insertAddresses(ctx, tx, student.ID, detail.Addresses); err != nil {
			return err
		}
		if detail.IdentityPaper != nil {
			if err := insertIdentityPaper(ctx, tx, student.ID, detail.IdentityPaper); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update modifies an existing student. The student code is never rewritten.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, date_of_birth = :date_of_birth, gender = :gender, faculty_id = :faculty_id,
        program_id = :program_id, status_id = :status_id, cohort_year = :cohort_year, email = :email, phone = :phone, active = :active,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// ReplaceAddresses swaps the full address set of a student.
func (r *StudentRepository) ReplaceAddresses(ctx context.Context, studentID string, addresses []models.Address) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM student_addresses WHERE student_id = $1`, studentID); err != nil {
			return fmt.Errorf("clear addresses: %w", err)
		}
		return insertAddresses(ctx, tx, studentID, addresses)
	})
}

// ReplaceIdentityPaper swaps the identity paper of a student.
func (r *StudentRepository) ReplaceIdentityPaper(ctx context.Context, studentID string, paper *models.IdentityPaper) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM identity_papers WHERE student_id = $1`, studentID); err != nil {
			return fmt.Errorf("clear identity paper: %w", err)
		}
		return insertIdentityPaper(ctx, tx, studentID, paper)
	})
}

// Deactivate marks a student as inactive.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}

func insertAddresses(ctx context.Context, tx *sqlx.Tx, studentID string, addresses []models.Address) error {
	const query = `INSERT INTO student_addresses (id, student_id, kind, street, ward, district, city, country)
        VALUES (:id, :student_id, :kind, :street, :ward, :district, :city, :country)`
	for i := range addresses {
		addr := &addresses[i]
		if addr.ID == "" {
			addr.ID = uuid.NewString()
		}
		addr.StudentID = studentID
		if _, err := tx.NamedExecContext(ctx, query, addr); err != nil {
			return fmt.Errorf("insert address %s: %w", addr.Kind, err)
		}
	}
	return nil
}

func insertIdentityPaper(ctx context.Context, tx *sqlx.Tx, studentID string, paper *models.IdentityPaper) error {
	if paper.ID == "" {
		paper.ID = uuid.NewString()
	}
	paper.StudentID = studentID
	const query = `INSERT INTO identity_papers (id, student_id, type, number, issued_date, issued_place, expiry_date, has_chip, issuing_country, notes)
        VALUES (:id, :student_id, :type, :number, :issued_date, :issued_place, :expiry_date, :has_chip, :issuing_country, :notes)`
	if _, err := tx.NamedExecContext(ctx, query, paper); err != nil {
		return fmt.Errorf("insert identity paper: %w", err)
	}
	return nil
}
