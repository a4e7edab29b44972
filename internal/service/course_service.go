package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListPrerequisites(ctx context.Context, courseID string) ([]models.CourseRef, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	CountExisting(ctx context.Context, ids []string) (int, error)
	Create(ctx context.Context, course *models.Course, prerequisiteIDs []string) error
	Update(ctx context.Context, course *models.Course) error
	ReplacePrerequisites(ctx context.Context, courseID string, prerequisiteIDs []string) error
}

// CourseRequest holds payload for creating or updating courses.
type CourseRequest struct {
	Code            string              `json:"code" validate:"required,max=32"`
	Title           string              `json:"title" validate:"required"`
	Credits         int                 `json:"credits" validate:"required,gt=0,lte=20"`
	FacultyID       string              `json:"faculty_id" validate:"required"`
	Status          models.CourseStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	Description     string              `json:"description"`
	PrerequisiteIDs []string            `json:"prerequisite_ids" validate:"omitempty,dive,required"`
}

// PrerequisitesRequest replaces the prerequisite set of a course.
type PrerequisitesRequest struct {
	PrerequisiteIDs []string `json:"prerequisite_ids" validate:"omitempty,dive,required"`
}

// CourseService manages the course catalogue.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns courses with pagination.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a course with its prerequisites.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, courseLookupError(err)
	}
	return course, nil
}

// Prerequisites returns the prerequisite set of a course, cached when enabled.
func (s *CourseService) Prerequisites(ctx context.Context, courseID string) ([]models.CourseRef, error) {
	var cached []models.CourseRef
	if s.cache.Get(ctx, prerequisiteCacheKey(courseID), &cached) {
		return cached, nil
	}
	prereqs, err := s.repo.ListPrerequisites(ctx, courseID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, prerequisiteCacheKey(courseID), prereqs, 0)
	return prereqs, nil
}

// Create adds a course to the catalogue.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	exists, err := s.repo.ExistsByCode(ctx, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	prereqs := uniqueIDs(req.PrerequisiteIDs)
	if err := s.checkPrerequisites(ctx, "", prereqs); err != nil {
		return nil, err
	}

	course := &models.Course{
		Code:        code,
		Title:       req.Title,
		Credits:     req.Credits,
		FacultyID:   req.FacultyID,
		Status:      req.Status,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, course, prereqs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return s.Get(ctx, course.ID)
}

// Update modifies course attributes; prerequisites are replaced when provided.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, courseLookupError(err)
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	exists, err := s.repo.ExistsByCode(ctx, code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}

	course.Code = code
	course.Title = req.Title
	course.Credits = req.Credits
	course.FacultyID = req.FacultyID
	if req.Status != "" {
		course.Status = req.Status
	}
	course.Description = req.Description
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	if req.PrerequisiteIDs != nil {
		if _, err := s.ReplacePrerequisites(ctx, id, PrerequisitesRequest{PrerequisiteIDs: req.PrerequisiteIDs}); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// ReplacePrerequisites swaps the prerequisite set of a course.
func (s *CourseService) ReplacePrerequisites(ctx context.Context, id string, req PrerequisitesRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid prerequisites payload")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, courseLookupError(err)
	}
	prereqs := uniqueIDs(req.PrerequisiteIDs)
	if err := s.checkPrerequisites(ctx, id, prereqs); err != nil {
		return nil, err
	}
	if err := s.repo.ReplacePrerequisites(ctx, id, prereqs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save prerequisites")
	}
	s.cache.Invalidate(ctx, prerequisiteCacheKey(id))
	return s.Get(ctx, id)
}

func (s *CourseService) checkPrerequisites(ctx context.Context, courseID string, ids []string) error {
	for _, id := range ids {
		if id == courseID {
			return appErrors.Clone(appErrors.ErrValidation, "course cannot be its own prerequisite")
		}
	}
	count, err := s.repo.CountExisting(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate prerequisites")
	}
	if count != len(ids) {
		return appErrors.Clone(appErrors.ErrValidation, "unknown prerequisite course")
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func courseLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
}
