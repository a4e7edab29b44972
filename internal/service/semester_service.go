package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type semesterRepository interface {
	List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	Create(ctx context.Context, semester *models.Semester) error
	Update(ctx context.Context, semester *models.Semester) error
}

// SemesterRequest holds payload for creating or updating semesters.
type SemesterRequest struct {
	AcademicYear         string     `json:"academic_year" validate:"required"`
	Term                 int        `json:"term" validate:"required,min=1,max=3"`
	StartDate            time.Time  `json:"start_date" validate:"required"`
	EndDate              time.Time  `json:"end_date" validate:"required"`
	CancellationDeadline *time.Time `json:"cancellation_deadline"`
}

// SemesterService manages academic terms.
type SemesterService struct {
	repo      semesterRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSemesterService constructs the semester service.
func NewSemesterService(repo semesterRepository, validate *validator.Validate, logger *zap.Logger) *SemesterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{repo: repo, validator: validate, logger: logger}
}

// List returns semesters with pagination.
func (s *SemesterService) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, *models.Pagination, error) {
	semesters, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}
	return semesters, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a semester by ID.
func (s *SemesterService) Get(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// Create adds a semester.
func (s *SemesterService) Create(ctx context.Context, req SemesterRequest) (*models.Semester, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	semester := &models.Semester{
		AcademicYear:         req.AcademicYear,
		Term:                 req.Term,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		CancellationDeadline: req.CancellationDeadline,
	}
	if err := s.repo.Create(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}
	return semester, nil
}

// Update modifies a semester.
func (s *SemesterService) Update(ctx context.Context, id string, req SemesterRequest) (*models.Semester, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	semester.AcademicYear = req.AcademicYear
	semester.Term = req.Term
	semester.StartDate = req.StartDate
	semester.EndDate = req.EndDate
	semester.CancellationDeadline = req.CancellationDeadline
	if err := s.repo.Update(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update semester")
	}
	return semester, nil
}

func (s *SemesterService) validate(req SemesterRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	if req.CancellationDeadline != nil && req.CancellationDeadline.After(req.EndDate) {
		return appErrors.Clone(appErrors.ErrValidation, "cancellation deadline must fall within the semester")
	}
	return nil
}
