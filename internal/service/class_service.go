package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassDetail, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) (bool, error)
}

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type semesterLookup interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

// CreateClassRequest holds payload for opening a class.
type CreateClassRequest struct {
	Code            string `json:"code" validate:"required,max=32"`
	CourseID        string `json:"course_id" validate:"required"`
	SemesterID      string `json:"semester_id" validate:"required"`
	TeacherName     string `json:"teacher_name"`
	Schedule        string `json:"schedule"`
	Classroom       string `json:"classroom"`
	MaximumQuantity int    `json:"maximum_quantity" validate:"required,gt=0"`
}

// UpdateClassRequest holds mutable class attributes.
type UpdateClassRequest struct {
	Code            string `json:"code" validate:"required,max=32"`
	TeacherName     string `json:"teacher_name"`
	Schedule        string `json:"schedule"`
	Classroom       string `json:"classroom"`
	MaximumQuantity int    `json:"maximum_quantity" validate:"required,gt=0"`
}

// ClassService manages class offerings.
type ClassService struct {
	repo      classRepository
	courses   courseLookup
	semesters semesterLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(repo classRepository, courses courseLookup, semesters semesterLookup, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, courses: courses, semesters: semesters, validator: validate, logger: logger}
}

// List returns classes with pagination.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a class by ID.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classLookupError(err)
	}
	return class, nil
}

// Create opens a class for a course in a semester.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, courseLookupError(err)
	}
	if course.Status != models.CourseStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is not active")
	}
	if _, err := s.semesters.FindByID(ctx, req.SemesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}

	class := &models.Class{
		Code:            req.Code,
		CourseID:        req.CourseID,
		SemesterID:      req.SemesterID,
		TeacherName:     req.TeacherName,
		Schedule:        req.Schedule,
		Classroom:       req.Classroom,
		MaximumQuantity: req.MaximumQuantity,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return s.Get(ctx, class.ID)
}

// Update modifies a class. The maximum cannot drop below the seats already taken.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	class := current.Class
	class.Code = req.Code
	class.TeacherName = req.TeacherName
	class.Schedule = req.Schedule
	class.Classroom = req.Classroom
	class.MaximumQuantity = req.MaximumQuantity

	updated, err := s.repo.Update(ctx, &class)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrValidation, "maximum quantity is below the number of enrolled students")
	}
	return s.Get(ctx, id)
}

func classLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
}
