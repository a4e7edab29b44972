package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/service"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
	"github.com/noah-isme/student-records-api/pkg/response"
)

type transcriptService interface {
	Get(ctx context.Context, studentID, semesterID string) (*models.Transcript, error)
	Export(ctx context.Context, studentID, semesterID string, format models.ExportFormat) (*service.TranscriptExport, error)
	Open(token string) (*os.File, string, error)
}

// TranscriptExportRequest selects the transcript scope and file format.
type TranscriptExportRequest struct {
	SemesterID string `json:"semester_id"`
	Format     string `json:"format" binding:"required"`
}

// TranscriptHandler exposes transcript endpoints.
type TranscriptHandler struct {
	transcripts transcriptService
}

// NewTranscriptHandler constructs TranscriptHandler.
func NewTranscriptHandler(transcripts transcriptService) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts}
}

// Get godoc
// @Summary Student transcript with GPA
// @Tags Transcripts
// @Produce json
// @Param id path string true "Student ID"
// @Param semesterId query string false "Limit to one semester"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/transcript [get]
func (h *TranscriptHandler) Get(c *gin.Context) {
	studentID := c.Param("id")
	if err := ensureStudentAccess(c, studentID); err != nil {
		response.Error(c, err)
		return
	}
	transcript, err := h.transcripts.Get(c.Request.Context(), studentID, c.Query("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondOK(c, transcript, nil)
}

// Export godoc
// @Summary Export transcript as PDF or CSV
// @Tags Transcripts
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body TranscriptExportRequest true "Export options"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/transcript/export [post]
func (h *TranscriptHandler) Export(c *gin.Context) {
	studentID := c.Param("id")
	if err := ensureStudentAccess(c, studentID); err != nil {
		response.Error(c, err)
		return
	}
	var req TranscriptExportRequest
	if !bindJSON(c, &req) {
		return
	}
	format := models.ExportFormat(strings.ToLower(strings.TrimSpace(req.Format)))
	result, err := h.transcripts.Export(c.Request.Context(), studentID, req.SemesterID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an exported transcript
// @Tags Transcripts
// @Produce application/pdf
// @Produce text/csv
// @Param token path string true "Signed download token"
// @Success 200
// @Failure 403 {object} response.Envelope
// @Router /transcripts/download/{token} [get]
func (h *TranscriptHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, relPath, err := h.transcripts.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read transcript"))
		return
	}
	filename := filepath.Base(relPath)
	contentType := "application/octet-stream"
	switch filepath.Ext(filename) {
	case ".pdf":
		contentType = "application/pdf"
	case ".csv":
		contentType = "text/csv; charset=utf-8"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
