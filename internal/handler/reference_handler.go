package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/pkg/response"
)

type referenceLoader interface {
	Load(ctx context.Context) (*models.SchoolConfig, error)
}

// ReferenceHandler serves faculties, programs and student statuses.
type ReferenceHandler struct {
	reference referenceLoader
}

// NewReferenceHandler constructs ReferenceHandler.
func NewReferenceHandler(reference referenceLoader) *ReferenceHandler {
	return &ReferenceHandler{reference: reference}
}

// Get godoc
// @Summary Reference data
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reference [get]
func (h *ReferenceHandler) Get(c *gin.Context) {
	cfg, err := h.reference.Load(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, cfg, nil)
}
