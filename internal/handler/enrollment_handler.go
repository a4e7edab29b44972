package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records-api/internal/academic"
	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/service"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
	"github.com/noah-isme/student-records-api/pkg/response"
)

type enrollmentService interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Enroll(ctx context.Context, req service.EnrollRequest) (*models.Enrollment, error)
	CheckCapacity(ctx context.Context, classID string) (*academic.CapacityResult, error)
	CheckPrerequisites(ctx context.Context, req service.CheckPrerequisitesRequest) (*academic.PrerequisiteResult, error)
	CheckCancellation(ctx context.Context, id string) (*academic.CancellationResult, error)
	Cancel(ctx context.Context, id string) (*models.Enrollment, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param classId query string false "Filter by class"
// @Param semesterId query string false "Filter by semester"
// @Param status query string false "ACTIVE, COMPLETED, FAILED or CANCELLED"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{
		StudentID:  c.Query("studentId"),
		ClassID:    c.Query("classId"),
		SemesterID: c.Query("semesterId"),
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseEnrollmentStatus(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status filter"))
			return
		}
		filter.Status = status
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		filter.StudentID = claims.StudentID
	}
	filter.Page, filter.PageSize = pageParams(c)

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, enrollments, pagination)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.ownedEnrollment(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, enrollment, nil)
}

// Enroll godoc
// @Summary Enroll a student into a class
// @Description Gates run in order: payload, student, class, prerequisites, capacity, atomic admission.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ensureStudentAccess(c, req.StudentID); err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// CheckCapacity godoc
// @Summary Check class capacity
// @Tags Enrollments
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/check-capacity/{classId} [get]
func (h *EnrollmentHandler) CheckCapacity(c *gin.Context) {
	result, err := h.enrollments.CheckCapacity(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, result, nil)
}

// CheckPrerequisites godoc
// @Summary Check prerequisites for a student and course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.CheckPrerequisitesRequest true "Student and course"
// @Success 200 {object} response.Envelope
// @Router /enrollments/check-prerequisites [post]
func (h *EnrollmentHandler) CheckPrerequisites(c *gin.Context) {
	var req service.CheckPrerequisitesRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ensureStudentAccess(c, req.StudentID); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.enrollments.CheckPrerequisites(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, result, nil)
}

// CheckCancellation godoc
// @Summary Check whether an enrollment can be cancelled
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/check-cancellation [get]
func (h *EnrollmentHandler) CheckCancellation(c *gin.Context) {
	if _, err := h.ownedEnrollment(c); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.enrollments.CheckCancellation(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, result, nil)
}

// Cancel godoc
// @Summary Cancel an enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollments/{id}/cancel [patch]
func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	if _, err := h.ownedEnrollment(c); err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.enrollments.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, enrollment, nil)
}

func (h *EnrollmentHandler) ownedEnrollment(c *gin.Context) (*models.EnrollmentDetail, error) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if err := ensureStudentAccess(c, enrollment.StudentID); err != nil {
		return nil, err
	}
	return enrollment, nil
}
