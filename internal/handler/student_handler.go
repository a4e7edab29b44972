package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/service"
	"github.com/noah-isme/student-records-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, req service.CreateStudentRequest) (*models.StudentDetail, error)
	Update(ctx context.Context, id string, req service.UpdateStudentRequest) (*models.Student, error)
	ReplaceAddresses(ctx context.Context, id string, reqs []service.AddressRequest) ([]models.Address, error)
	ReplaceIdentityPaper(ctx context.Context, id string, req service.IdentityPaperRequest) (*models.IdentityPaper, error)
	Deactivate(ctx context.Context, id string) error
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name, code or email"
// @Param facultyId query string false "Filter by faculty"
// @Param programId query string false "Filter by program"
// @Param statusId query string false "Filter by student status"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter models.StudentFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.FacultyID = c.Query("facultyId")
	filter.ProgramID = c.Query("programId")
	filter.StatusID = c.Query("statusId")
	switch c.Query("active") {
	case "true":
		v := true
		filter.Active = &v
	case "false":
		v := false
		filter.Active = &v
	}
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, students, pagination)
}

// Get godoc
// @Summary Get student detail with addresses and identity paper
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	if err := ensureStudentAccess(c, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, student, nil)
}

// Create godoc
// @Summary Create student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, student, nil)
}

// ReplaceAddresses godoc
// @Summary Replace student addresses
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body []service.AddressRequest true "Addresses"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/addresses [put]
func (h *StudentHandler) ReplaceAddresses(c *gin.Context) {
	var req []service.AddressRequest
	if !bindJSON(c, &req) {
		return
	}
	addresses, err := h.students.ReplaceAddresses(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, addresses, nil)
}

// ReplaceIdentityPaper godoc
// @Summary Replace student identity paper
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.IdentityPaperRequest true "Identity paper"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/identity-paper [put]
func (h *StudentHandler) ReplaceIdentityPaper(c *gin.Context) {
	var req service.IdentityPaperRequest
	if !bindJSON(c, &req) {
		return
	}
	paper, err := h.students.ReplaceIdentityPaper(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, paper, nil)
}

// Delete godoc
// @Summary Deactivate student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
