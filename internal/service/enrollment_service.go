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
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

const admissionOutcomeAdmitted = "admitted"

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	CompletedCourseIDs(ctx context.Context, studentID string) ([]string, error)
	Admit(ctx context.Context, enrollment *models.Enrollment) error
	Cancel(ctx context.Context, id string, at time.Time, check func(*models.Enrollment) error) (*models.Enrollment, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type classLookup interface {
	FindByID(ctx context.Context, id string) (*models.ClassDetail, error)
}

type prerequisiteSource interface {
	Prerequisites(ctx context.Context, courseID string) ([]models.CourseRef, error)
}

// EnrollRequest is the payload for enrolling a student into a class.
type EnrollRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	CourseID   string `json:"course_id" validate:"required"`
	ClassID    string `json:"class_id" validate:"required"`
	SemesterID string `json:"semester_id" validate:"required"`
}

// CheckPrerequisitesRequest asks whether a student may take a course.
type CheckPrerequisitesRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// EnrollmentServiceConfig holds the tunable enrollment rules.
type EnrollmentServiceConfig struct {
	CancellationWindow time.Duration
}

// EnrollmentService runs the enrollment rules and admission workflow.
type EnrollmentService struct {
	repo          enrollmentRepository
	students      studentLookup
	classes       classLookup
	semesters     semesterLookup
	prerequisites prerequisiteSource
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	cfg           EnrollmentServiceConfig
	now           func() time.Time
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(
	repo enrollmentRepository,
	students studentLookup,
	classes classLookup,
	semesters semesterLookup,
	prerequisites prerequisiteSource,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg EnrollmentServiceConfig,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CancellationWindow <= 0 {
		cfg.CancellationWindow = 14 * 24 * time.Hour
	}
	return &EnrollmentService{
		repo:          repo,
		students:      students,
		classes:       classes,
		semesters:     semesters,
		prerequisites: prerequisites,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// List returns enrollments with pagination.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an enrollment with its grade.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, enrollmentLookupError(err)
	}
	return detail, nil
}

// Enroll admits a student into a class. Gates run in order and the first failure is returned.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (enrollment *models.Enrollment, err error) {
	defer func() { s.recordAdmission(err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, studentLookupError(err)
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not active")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		return nil, classLookupError(err)
	}
	if class.CourseID != req.CourseID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class does not belong to course")
	}
	if class.SemesterID != req.SemesterID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class does not belong to semester")
	}

	prereq := s.evaluatePrerequisites(ctx, req.StudentID, req.CourseID)
	if !prereq.Verified {
		return nil, appErrors.Clone(appErrors.ErrTransient, prereq.Message)
	}
	if !prereq.Valid {
		return nil, appErrors.WithDetails(appErrors.ErrPrerequisiteNotMet, prereq.Message, prereq.Missing)
	}

	if capacity := academic.CheckCapacity(class.EnrolledCount, class.MaximumQuantity); !capacity.Available {
		return nil, appErrors.WithDetails(appErrors.ErrClassFull, "class is full", capacity)
	}

	enrollment = &models.Enrollment{
		StudentID:  req.StudentID,
		ClassID:    req.ClassID,
		CourseID:   req.CourseID,
		SemesterID: req.SemesterID,
		EnrolledAt: s.now(),
	}
	start := time.Now()
	err = s.repo.Admit(ctx, enrollment)
	s.metrics.ObserveDBQuery("enrollment_admit", time.Since(start))
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to admit enrollment")
	}

	s.logger.Info("enrollment admitted",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", enrollment.StudentID),
		zap.String("class_id", enrollment.ClassID),
	)
	return enrollment, nil
}

// CheckCapacity reports the seat availability of a class.
func (s *EnrollmentService) CheckCapacity(ctx context.Context, classID string) (*academic.CapacityResult, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, classLookupError(err)
	}
	result := academic.CheckCapacity(class.EnrolledCount, class.MaximumQuantity)
	return &result, nil
}

// CheckPrerequisites reports whether a student satisfies the prerequisites of a course.
// Lookup failures are reported as an unverified result rather than an error.
func (s *EnrollmentService) CheckPrerequisites(ctx context.Context, req CheckPrerequisitesRequest) (*academic.PrerequisiteResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid prerequisite check payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, studentLookupError(err)
	}
	result := s.evaluatePrerequisites(ctx, req.StudentID, req.CourseID)
	return &result, nil
}

// CheckCancellation reports whether an enrollment may be cancelled now.
func (s *EnrollmentService) CheckCancellation(ctx context.Context, id string) (*academic.CancellationResult, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, enrollmentLookupError(err)
	}
	deadline, err := s.cancellationDeadline(ctx, enrollment)
	if err != nil {
		return nil, err
	}
	result := academic.CheckCancellation(enrollment.Status, deadline, s.now())
	return &result, nil
}

// Cancel cancels an enrollment and releases its seat. Eligibility is re-checked on the locked row.
func (s *EnrollmentService) Cancel(ctx context.Context, id string) (*models.Enrollment, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, enrollmentLookupError(err)
	}
	deadline, err := s.cancellationDeadline(ctx, current)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cancelled, err := s.repo.Cancel(ctx, id, now, func(locked *models.Enrollment) error {
		result := academic.CheckCancellation(locked.Status, deadline, now)
		if !result.Eligible {
			return appErrors.WithDetails(appErrors.ErrCancellationNotAllowed, result.Reason, result)
		}
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, enrollmentLookupError(err)
	}

	s.metrics.RecordCancellation()
	s.logger.Info("enrollment cancelled", zap.String("enrollment_id", id), zap.String("class_id", cancelled.ClassID))
	return cancelled, nil
}

func (s *EnrollmentService) evaluatePrerequisites(ctx context.Context, studentID, courseID string) academic.PrerequisiteResult {
	required, err := s.prerequisites.Prerequisites(ctx, courseID)
	if err != nil {
		s.logger.Warn("prerequisite lookup failed", zap.String("course_id", courseID), zap.Error(err))
		return academic.UnverifiedPrerequisites()
	}
	if len(required) == 0 {
		return academic.CheckPrerequisites(nil, nil)
	}
	completed, err := s.repo.CompletedCourseIDs(ctx, studentID)
	if err != nil {
		s.logger.Warn("completed course lookup failed", zap.String("student_id", studentID), zap.Error(err))
		return academic.UnverifiedPrerequisites()
	}
	return academic.CheckPrerequisites(required, completed)
}

func (s *EnrollmentService) cancellationDeadline(ctx context.Context, enrollment *models.Enrollment) (time.Time, error) {
	semester, err := s.semesters.FindByID(ctx, enrollment.SemesterID)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return academic.CancellationDeadline(semester.CancellationDeadline, enrollment.EnrolledAt, s.cfg.CancellationWindow), nil
}

func (s *EnrollmentService) recordAdmission(err error) {
	if err == nil {
		s.metrics.RecordAdmission(admissionOutcomeAdmitted)
		return
	}
	outcome := appErrors.FromError(err).Code
	s.metrics.RecordAdmission(outcome)
	if outcome == appErrors.ErrInternal.Code {
		s.logger.Error("enrollment failed", zap.Error(err))
	}
}

func enrollmentLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
}
