package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/academic"
	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/repository"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type gradeRepository interface {
	Record(ctx context.Context, grade *models.Grade, derive func(*models.Grade)) error
	FinalizeClass(ctx context.Context, classID string, at time.Time, decide func(total float64) models.EnrollmentStatus) (*repository.FinalizeResult, error)
}

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// GradeRequest records midterm and final scores on a 0-10 scale.
type GradeRequest struct {
	Midterm *float64 `json:"midterm" validate:"omitempty,min=0,max=10"`
	Final   *float64 `json:"final" validate:"omitempty,min=0,max=10"`
}

// GradeService records scores and finalises class results.
type GradeService struct {
	grades        gradeRepository
	enrollments   enrollmentReader
	classes       classLookup
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
	midtermWeight float64
	now           func() time.Time
}

// NewGradeService constructs the grade service.
func NewGradeService(grades gradeRepository, enrollments enrollmentReader, classes classLookup, cache *CacheService, midtermWeight float64, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		grades:        grades,
		enrollments:   enrollments,
		classes:       classes,
		cache:         cache,
		validator:     validate,
		logger:        logger,
		midtermWeight: midtermWeight,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Record merges the scores into the stored grade of an ACTIVE enrollment. Total and letter are
// derived once both midterm and final are known, whichever request supplied them.
func (s *GradeService) Record(ctx context.Context, enrollmentID string, req GradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if req.Midterm == nil && req.Final == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "midterm or final score is required")
	}
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, enrollmentLookupError(err)
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "grades can only be recorded for active enrollments")
	}

	grade := &models.Grade{EnrollmentID: enrollmentID, Midterm: req.Midterm, Final: req.Final}
	err = s.grades.Record(ctx, grade, func(g *models.Grade) {
		if g.Midterm == nil || g.Final == nil {
			return
		}
		total := academic.TotalScore(*g.Midterm, *g.Final, s.midtermWeight)
		letter := academic.LetterGrade(total)
		g.Total = &total
		g.Letter = &letter
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, enrollmentLookupError(err)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}
	return grade, nil
}

// FinalizeClass closes every ACTIVE enrollment of a class as COMPLETED or FAILED.
func (s *GradeService) FinalizeClass(ctx context.Context, classID string) (*repository.FinalizeResult, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, classLookupError(err)
	}
	result, err := s.grades.FinalizeClass(ctx, classID, s.now(), func(total float64) models.EnrollmentStatus {
		if academic.Passed(total) {
			return models.EnrollmentStatusCompleted
		}
		return models.EnrollmentStatusFailed
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize grades")
	}
	s.cache.Invalidate(ctx, cachePrefixTransc+"*")
	s.logger.Info("class grades finalized", zap.String("class_id", classID), zap.Int("completed", result.Completed), zap.Int("failed", result.Failed))
	return result, nil
}
