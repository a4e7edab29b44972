package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, detail *models.StudentDetail) error
	Update(ctx context.Context, student *models.Student) error
	ReplaceAddresses(ctx context.Context, studentID string, addresses []models.Address) error
	ReplaceIdentityPaper(ctx context.Context, studentID string, paper *models.IdentityPaper) error
	Deactivate(ctx context.Context, id string) error
}

type referenceProvider interface {
	Load(ctx context.Context) (*models.SchoolConfig, error)
}

// AddressRequest describes one student address.
type AddressRequest struct {
	Kind     models.AddressKind `json:"kind" validate:"required,oneof=MAILING PERMANENT TEMPORARY"`
	Street   string             `json:"street" validate:"required"`
	Ward     string             `json:"ward"`
	District string             `json:"district"`
	City     string             `json:"city" validate:"required"`
	Country  string             `json:"country" validate:"required"`
}

// IdentityPaperRequest describes the identity paper of a student.
type IdentityPaperRequest struct {
	Type           models.IdentityPaperType `json:"type" validate:"required,oneof=NATIONAL_ID_OLD NATIONAL_ID_CHIP PASSPORT"`
	Number         string                   `json:"number" validate:"required"`
	IssuedDate     time.Time                `json:"issued_date" validate:"required"`
	IssuedPlace    *string                  `json:"issued_place"`
	ExpiryDate     *time.Time               `json:"expiry_date"`
	HasChip        *bool                    `json:"has_chip"`
	IssuingCountry *string                  `json:"issuing_country"`
	Notes          *string                  `json:"notes"`
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	StudentCode   string                `json:"student_code" validate:"required,max=32"`
	FullName      string                `json:"full_name" validate:"required"`
	DateOfBirth   time.Time             `json:"date_of_birth" validate:"required"`
	Gender        string                `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	FacultyID     string                `json:"faculty_id" validate:"required"`
	ProgramID     string                `json:"program_id" validate:"required"`
	StatusID      string                `json:"status_id" validate:"required"`
	CohortYear    int                   `json:"cohort_year" validate:"required,gte=1900,lte=2200"`
	Email         string                `json:"email" validate:"omitempty,email"`
	Phone         string                `json:"phone" validate:"omitempty,max=20"`
	Addresses     []AddressRequest      `json:"addresses" validate:"omitempty,dive"`
	IdentityPaper *IdentityPaperRequest `json:"identity_paper"`
}

// UpdateStudentRequest holds payload for updating students. StudentCode may be echoed but not changed.
type UpdateStudentRequest struct {
	StudentCode string    `json:"student_code"`
	FullName    string    `json:"full_name" validate:"required"`
	DateOfBirth time.Time `json:"date_of_birth" validate:"required"`
	Gender      string    `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	FacultyID   string    `json:"faculty_id" validate:"required"`
	ProgramID   string    `json:"program_id" validate:"required"`
	StatusID    string    `json:"status_id" validate:"required"`
	CohortYear  int       `json:"cohort_year" validate:"required,gte=1900,lte=2200"`
	Email       string    `json:"email" validate:"omitempty,email"`
	Phone       string    `json:"phone" validate:"omitempty,max=20"`
	Active      *bool     `json:"active"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	reference referenceProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, reference referenceProvider, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, reference: reference, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a student with addresses and identity paper.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, studentLookupError(err)
	}
	return detail, nil
}

// Create registers a new student with the records it owns.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	req.StudentCode = strings.TrimSpace(req.StudentCode)
	if err := s.checkAffiliation(ctx, req.FacultyID, req.ProgramID, req.StatusID); err != nil {
		return nil, err
	}
	addresses, err := buildAddresses(req.Addresses)
	if err != nil {
		return nil, err
	}
	var paper *models.IdentityPaper
	if req.IdentityPaper != nil {
		if paper, err = buildIdentityPaper(*req.IdentityPaper); err != nil {
			return nil, err
		}
	}

	exists, err := s.repo.ExistsByCode(ctx, req.StudentCode, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student code already used")
	}

	detail := &models.StudentDetail{
		Student: models.Student{
			StudentCode: req.StudentCode,
			FullName:    req.FullName,
			DateOfBirth: req.DateOfBirth,
			Gender:      req.Gender,
			FacultyID:   req.FacultyID,
			ProgramID:   req.ProgramID,
			StatusID:    req.StatusID,
			CohortYear:  req.CohortYear,
			Email:       req.Email,
			Phone:       req.Phone,
			Active:      true,
		},
		Addresses:     addresses,
		IdentityPaper: paper,
	}
	if err := s.repo.Create(ctx, detail); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", detail.ID), zap.String("student_code", detail.StudentCode))
	return detail, nil
}

// Update modifies an existing student. The student code is immutable.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, studentLookupError(err)
	}
	if code := strings.TrimSpace(req.StudentCode); code != "" && code != student.StudentCode {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student code cannot be changed")
	}
	if err := s.checkAffiliation(ctx, req.FacultyID, req.ProgramID, req.StatusID); err != nil {
		return nil, err
	}

	student.FullName = req.FullName
	student.DateOfBirth = req.DateOfBirth
	student.Gender = req.Gender
	student.FacultyID = req.FacultyID
	student.ProgramID = req.ProgramID
	student.StatusID = req.StatusID
	student.CohortYear = req.CohortYear
	student.Email = req.Email
	student.Phone = req.Phone
	if req.Active != nil {
		student.Active = *req.Active
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// ReplaceAddresses swaps the address set of a student.
func (s *StudentService) ReplaceAddresses(ctx context.Context, id string, reqs []AddressRequest) ([]models.Address, error) {
	for _, req := range reqs {
		if err := s.validator.Struct(req); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid address payload")
		}
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, studentLookupError(err)
	}
	addresses, err := buildAddresses(reqs)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceAddresses(ctx, id, addresses); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save addresses")
	}
	return addresses, nil
}

// ReplaceIdentityPaper swaps the identity paper of a student.
func (s *StudentService) ReplaceIdentityPaper(ctx context.Context, id string, req IdentityPaperRequest) (*models.IdentityPaper, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid identity paper payload")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, studentLookupError(err)
	}
	paper, err := buildIdentityPaper(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceIdentityPaper(ctx, id, paper); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save identity paper")
	}
	return paper, nil
}

// Deactivate marks student inactive.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return studentLookupError(err)
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}

func (s *StudentService) checkAffiliation(ctx context.Context, facultyID, programID, statusID string) error {
	if s.reference == nil {
		return nil
	}
	cfg, err := s.reference.Load(ctx)
	if err != nil {
		return err
	}
	switch {
	case !cfg.HasFaculty(facultyID):
		return appErrors.Clone(appErrors.ErrValidation, "unknown faculty")
	case !cfg.ProgramInFaculty(programID, facultyID):
		return appErrors.Clone(appErrors.ErrValidation, "program does not belong to faculty")
	case !cfg.HasStatus(statusID):
		return appErrors.Clone(appErrors.ErrValidation, "unknown student status")
	}
	return nil
}

func buildAddresses(reqs []AddressRequest) ([]models.Address, error) {
	seen := make(map[models.AddressKind]struct{}, len(reqs))
	addresses := make([]models.Address, 0, len(reqs))
	for _, req := range reqs {
		if _, dup := seen[req.Kind]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "only one address per kind is allowed")
		}
		seen[req.Kind] = struct{}{}
		addresses = append(addresses, models.Address{
			Kind:     req.Kind,
			Street:   req.Street,
			Ward:     req.Ward,
			District: req.District,
			City:     req.City,
			Country:  req.Country,
		})
	}
	return addresses, nil
}

func buildIdentityPaper(req IdentityPaperRequest) (*models.IdentityPaper, error) {
	paper := &models.IdentityPaper{
		Type:           req.Type,
		Number:         strings.TrimSpace(req.Number),
		IssuedDate:     req.IssuedDate,
		IssuedPlace:    req.IssuedPlace,
		ExpiryDate:     req.ExpiryDate,
		HasChip:        req.HasChip,
		IssuingCountry: req.IssuingCountry,
		Notes:          req.Notes,
	}
	if err := paper.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return paper, nil
}

func studentLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
}
