package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/repository"
	"github.com/noah-isme/student-records-api/internal/service"
	"github.com/noah-isme/student-records-api/pkg/response"
)

type gradeService interface {
	Record(ctx context.Context, enrollmentID string, req service.GradeRequest) (*models.Grade, error)
	FinalizeClass(ctx context.Context, classID string) (*repository.FinalizeResult, error)
}

// GradeHandler exposes grade recording and finalisation.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Record godoc
// @Summary Record midterm and final scores
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.GradeRequest true "Scores on a 0-10 scale"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/grade [put]
func (h *GradeHandler) Record(c *gin.Context) {
	var req service.GradeRequest
	if !bindJSON(c, &req) {
		return
	}
	grade, err := h.grades.Record(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, grade, nil)
}

// Finalize godoc
// @Summary Finalise grades of a class
// @Description Moves every ACTIVE enrollment to COMPLETED or FAILED. Fails when any enrollment is ungraded.
// @Tags Grades
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /classes/{id}/grades/finalize [post]
func (h *GradeHandler) Finalize(c *gin.Context) {
	result, err := h.grades.FinalizeClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, result, nil)
}
