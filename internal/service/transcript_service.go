package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/academic"
	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
	"github.com/noah-isme/student-records-api/pkg/export"
	"github.com/noah-isme/student-records-api/pkg/storage"
)

type transcriptSource interface {
	TranscriptRows(ctx context.Context, studentID, semesterID string) ([]models.TranscriptRow, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// TranscriptConfig tunes transcript exports.
type TranscriptConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// TranscriptExport describes a rendered transcript available for download.
type TranscriptExport struct {
	Format    models.ExportFormat `json:"format"`
	URL       string              `json:"url"`
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// TranscriptService computes transcripts and renders them to files.
type TranscriptService struct {
	students studentLookup
	rows     transcriptSource
	cache    *CacheService
	storage  fileStorage
	signer   *storage.SignedURLSigner
	csv      documentRenderer
	pdf      documentRenderer
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      TranscriptConfig
	now      func() time.Time
}

// NewTranscriptService constructs a TranscriptService.
func NewTranscriptService(students studentLookup, rows transcriptSource, cache *CacheService, files fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg TranscriptConfig, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &TranscriptService{
		students: students,
		rows:     rows,
		cache:    cache,
		storage:  files,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the transcript of a student, optionally limited to one semester.
func (s *TranscriptService) Get(ctx context.Context, studentID, semesterID string) (*models.Transcript, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, studentLookupError(err)
	}

	key := transcriptCacheKey(studentID, semesterID)
	var cached models.Transcript
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	rows, err := s.rows.TranscriptRows(ctx, studentID, semesterID)
	s.metrics.ObserveDBQuery("transcript_rows", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transcript")
	}

	results := make([]academic.CourseResult, 0, len(rows))
	for _, row := range rows {
		if row.Total == nil {
			continue
		}
		results = append(results, academic.CourseResult{CourseID: row.CourseID, Score: *row.Total, Credits: row.Credits})
	}
	gpa := academic.CalculateGPA(results)
	for _, bad := range gpa.OutOfRange {
		s.logger.Warn("score outside 0-10 range", zap.String("student_id", studentID), zap.String("course_id", bad.CourseID), zap.Float64("score", bad.Score))
	}

	transcript := &models.Transcript{
		StudentID:     student.ID,
		StudentCode:   student.StudentCode,
		StudentName:   student.FullName,
		SemesterID:    semesterID,
		Rows:          rows,
		GPA:           gpa.GPA,
		EarnedCredits: gpa.EarnedCredits,
		GeneratedAt:   s.now(),
	}
	s.cache.Set(ctx, key, transcript, 0)
	return transcript, nil
}

// Export renders the transcript and returns a signed download link.
func (s *TranscriptService) Export(ctx context.Context, studentID, semesterID string, format models.ExportFormat) (*TranscriptExport, error) {
	var renderer documentRenderer
	switch format {
	case models.ExportFormatPDF:
		renderer = s.pdf
	case models.ExportFormatCSV:
		renderer = s.csv
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}

	transcript, err := s.Get(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(transcriptDocument(transcript))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}

	filename := fmt.Sprintf("transcript_%s_%s_%s.%s",
		sanitizeFilename(transcript.StudentCode), sanitizeFilename(semesterID), s.now().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store transcript")
	}
	token, expiresAt, err := s.signer.Generate(studentID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign transcript link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.metrics.RecordExport(string(format))
	s.logger.Info("transcript exported", zap.String("student_id", studentID), zap.String("file", relPath))
	return &TranscriptExport{
		Format:    format,
		URL:       fmt.Sprintf("%s/transcripts/download/%s", prefix, token),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a download token and opens the referenced file.
func (s *TranscriptService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "transcript file no longer available")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transcript")
	}
	return file, relPath, nil
}

// Cleanup removes exported files older than the configured retention.
func (s *TranscriptService) Cleanup() ([]string, error) {
	removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("transcript cleanup failed", zap.Error(err))
		return removed, err
	}
	if len(removed) > 0 {
		s.logger.Info("transcript exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

func transcriptDocument(t *models.Transcript) export.Document {
	headers := []string{"Semester", "Course", "Title", "Credits", "Midterm", "Final", "Total", "Letter", "Status"}
	rows := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rows = append(rows, map[string]string{
			"Semester": fmt.Sprintf("%s/%d", row.AcademicYear, row.Term),
			"Course":   row.CourseCode,
			"Title":    row.CourseTitle,
			"Credits":  fmt.Sprintf("%d", row.Credits),
			"Midterm":  formatScore(row.Midterm),
			"Final":    formatScore(row.Final),
			"Total":    formatScore(row.Total),
			"Letter":   derefString(row.Letter),
			"Status":   string(row.Status),
		})
	}
	return export.Document{
		Title: "Academic Transcript",
		Header: []export.Field{
			{Label: "Student Code", Value: t.StudentCode},
			{Label: "Student Name", Value: t.StudentName},
			{Label: "Generated At", Value: t.GeneratedAt.Format(time.RFC3339)},
		},
		Body: export.Dataset{Headers: headers, Rows: rows},
		Summary: []export.Field{
			{Label: "Earned Credits", Value: fmt.Sprintf("%d", t.EarnedCredits)},
			{Label: "GPA", Value: fmt.Sprintf("%.2f", t.GPA)},
		},
	}
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
