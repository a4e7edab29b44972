package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-records-api/internal/models"
)

// ReferenceRepository loads faculties, programs and student statuses.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository constructs a ReferenceRepository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// Load returns the full reference data set.
func (r *ReferenceRepository) Load(ctx context.Context) (*models.SchoolConfig, error) {
	cfg := &models.SchoolConfig{
		Faculties: []models.Faculty{},
		Programs:  []models.Program{},
		Statuses:  []models.StudentStatus{},
	}
	if err := r.db.SelectContext(ctx, &cfg.Faculties, `SELECT id, code, name FROM faculties ORDER BY code`); err != nil {
		return nil, fmt.Errorf("load faculties: %w", err)
	}
	if err := r.db.SelectContext(ctx, &cfg.Programs, `SELECT id, faculty_id, code, name FROM programs ORDER BY code`); err != nil {
		return nil, fmt.Errorf("load programs: %w", err)
	}
	if err := r.db.SelectContext(ctx, &cfg.Statuses, `SELECT id, code, name FROM student_statuses ORDER BY code`); err != nil {
		return nil, fmt.Errorf("load student statuses: %w", err)
	}
	return cfg, nil
}
