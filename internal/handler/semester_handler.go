package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/service"
	"github.com/noah-isme/student-records-api/pkg/response"
)

type semesterService interface {
	List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Semester, error)
	Create(ctx context.Context, req service.SemesterRequest) (*models.Semester, error)
	Update(ctx context.Context, id string, req service.SemesterRequest) (*models.Semester, error)
}

// SemesterHandler exposes semester endpoints.
type SemesterHandler struct {
	semesters semesterService
}

// NewSemesterHandler constructs SemesterHandler.
func NewSemesterHandler(semesters semesterService) *SemesterHandler {
	return &SemesterHandler{semesters: semesters}
}

// List godoc
// @Summary List semesters
// @Tags Semesters
// @Produce json
// @Param academicYear query string false "Academic year, e.g. 2025-2026"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /semesters [get]
func (h *SemesterHandler) List(c *gin.Context) {
	filter := models.SemesterFilter{AcademicYear: c.Query("academicYear")}
	filter.Page, filter.PageSize = pageParams(c)
	semesters, pagination, err := h.semesters.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, semesters, pagination)
}

// Get godoc
// @Summary Get semester
// @Tags Semesters
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /semesters/{id} [get]
func (h *SemesterHandler) Get(c *gin.Context) {
	semester, err := h.semesters.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, semester, nil)
}

// Create godoc
// @Summary Create semester
// @Tags Semesters
// @Accept json
// @Produce json
// @Param payload body service.SemesterRequest true "Semester payload"
// @Success 201 {object} response.Envelope
// @Router /semesters [post]
func (h *SemesterHandler) Create(c *gin.Context) {
	var req service.SemesterRequest
	if !bindJSON(c, &req) {
		return
	}
	semester, err := h.semesters.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, semester)
}

// Update godoc
// @Summary Update semester
// @Tags Semesters
// @Accept json
// @Produce json
// @Param id path string true "Semester ID"
// @Param payload body service.SemesterRequest true "Semester payload"
// @Success 200 {object} response.Envelope
// @Router /semesters/{id} [put]
func (h *SemesterHandler) Update(c *gin.Context) {
	var req service.SemesterRequest
	if !bindJSON(c, &req) {
		return
	}
	semester, err := h.semesters.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, semester, nil)
}
