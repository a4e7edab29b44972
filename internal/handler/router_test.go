package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/repository"
	"github.com/noah-isme/student-records-api/internal/service"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type studentServiceStub struct{}

func (studentServiceStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	return []models.Student{{ID: "s-1"}}, models.NewPagination(filter.Page, filter.PageSize, 1), nil
}
func (studentServiceStub) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	return &models.StudentDetail{Student: models.Student{ID: id}}, nil
}
func (studentServiceStub) Create(ctx context.Context, req service.CreateStudentRequest) (*models.StudentDetail, error) {
	return &models.StudentDetail{Student: models.Student{ID: "s-new", StudentCode: req.StudentCode}}, nil
}
func (studentServiceStub) Update(ctx context.Context, id string, req service.UpdateStudentRequest) (*models.Student, error) {
	return &models.Student{ID: id}, nil
}
func (studentServiceStub) ReplaceAddresses(ctx context.Context, id string, reqs []service.AddressRequest) ([]models.Address, error) {
	return []models.Address{}, nil
}
func (studentServiceStub) ReplaceIdentityPaper(ctx context.Context, id string, req service.IdentityPaperRequest) (*models.IdentityPaper, error) {
	return &models.IdentityPaper{}, nil
}
func (studentServiceStub) Deactivate(ctx context.Context, id string) error { return nil }

type courseServiceStub struct{}

func (courseServiceStub) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	return []models.Course{}, models.NewPagination(1, 20, 0), nil
}
func (courseServiceStub) Get(ctx context.Context, id string) (*models.Course, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
}
func (courseServiceStub) Create(ctx context.Context, req service.CourseRequest) (*models.Course, error) {
	return &models.Course{ID: "c-1", Code: req.Code}, nil
}
func (courseServiceStub) Update(ctx context.Context, id string, req service.CourseRequest) (*models.Course, error) {
	return &models.Course{ID: id}, nil
}
func (courseServiceStub) ReplacePrerequisites(ctx context.Context, id string, req service.PrerequisitesRequest) (*models.Course, error) {
	return &models.Course{ID: id}, nil
}

type semesterServiceStub struct{}

func (semesterServiceStub) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, *models.Pagination, error) {
	return []models.Semester{}, models.NewPagination(1, 20, 0), nil
}
func (semesterServiceStub) Get(ctx context.Context, id string) (*models.Semester, error) {
	return &models.Semester{ID: id}, nil
}
func (semesterServiceStub) Create(ctx context.Context, req service.SemesterRequest) (*models.Semester, error) {
	return &models.Semester{ID: "sem-1"}, nil
}
func (semesterServiceStub) Update(ctx context.Context, id string, req service.SemesterRequest) (*models.Semester, error) {
	return &models.Semester{ID: id}, nil
}

type classServiceStub struct{}

func (classServiceStub) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	return []models.ClassDetail{}, models.NewPagination(1, 20, 0), nil
}
func (classServiceStub) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	return &models.ClassDetail{Class: models.Class{ID: id}}, nil
}
func (classServiceStub) Create(ctx context.Context, req service.CreateClassRequest) (*models.ClassDetail, error) {
	return &models.ClassDetail{}, nil
}
func (classServiceStub) Update(ctx context.Context, id string, req service.UpdateClassRequest) (*models.ClassDetail, error) {
	return &models.ClassDetail{}, nil
}

type referenceStub struct{}

func (referenceStub) Load(ctx context.Context) (*models.SchoolConfig, error) {
	return &models.SchoolConfig{Faculties: []models.Faculty{{ID: "f-1", Code: "ENG", Name: "Engineering"}}}, nil
}

type gradeServiceStub struct{}

func (gradeServiceStub) Record(ctx context.Context, enrollmentID string, req service.GradeRequest) (*models.Grade, error) {
	return &models.Grade{EnrollmentID: enrollmentID}, nil
}
func (gradeServiceStub) FinalizeClass(ctx context.Context, classID string) (*repository.FinalizeResult, error) {
	return &repository.FinalizeResult{Completed: 2, Failed: 1}, nil
}

type transcriptServiceStub struct {
	file string
}

func (transcriptServiceStub) Get(ctx context.Context, studentID, semesterID string) (*models.Transcript, error) {
	return &models.Transcript{StudentID: studentID, GPA: 7.5}, nil
}
func (transcriptServiceStub) Export(ctx context.Context, studentID, semesterID string, format models.ExportFormat) (*service.TranscriptExport, error) {
	if format != models.ExportFormatPDF && format != models.ExportFormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported format")
	}
	return &service.TranscriptExport{Format: format, URL: "/api/v1/transcripts/download/tok", Token: "tok"}, nil
}
func (s transcriptServiceStub) Open(token string) (*os.File, string, error) {
	if token != "tok" {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}
	f, err := os.Open(s.file)
	return f, "transcript_STU-001_all.csv", err
}

type tokenStub map[string]*models.JWTClaims

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newTestRouter(t *testing.T, withAuth bool) http.Handler {
	t.Helper()
	file, err := os.CreateTemp(t.TempDir(), "transcript*.csv")
	require.NoError(t, err)
	_, _ = file.WriteString("Student Code,STU-001\n")
	require.NoError(t, file.Close())

	metrics := service.NewMetricsService()
	handlers := Handlers{
		Students:    NewStudentHandler(studentServiceStub{}),
		Courses:     NewCourseHandler(courseServiceStub{}),
		Semesters:   NewSemesterHandler(semesterServiceStub{}),
		Classes:     NewClassHandler(classServiceStub{}),
		Reference:   NewReferenceHandler(referenceStub{}),
		Enrollments: NewEnrollmentHandler(&enrollmentServiceMock{}),
		Grades:      NewGradeHandler(gradeServiceStub{}),
		Transcripts: NewTranscriptHandler(transcriptServiceStub{file: file.Name()}),
		Metrics: NewMetricsHandler(metrics, map[string]Pinger{
			"postgres": PingFunc(func(ctx context.Context) error { return nil }),
		}),
	}
	cfg := RouterConfig{APIPrefix: "/api/v1", Metrics: metrics}
	if withAuth {
		cfg.Tokens = tokenStub{
			"admin":   {UserID: "u-admin", Role: models.RoleAdmin},
			"teacher": {UserID: "u-teacher", Role: models.RoleTeacher},
			"student": {UserID: "u-student", Role: models.RoleStudent, StudentID: "s-1"},
		}
	}
	return NewRouter(handlers, cfg)
}

func call(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouterOpsEndpoints(t *testing.T) {
	router := newTestRouter(t, false)

	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/ready", "", "").Code)
	metrics := call(router, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "http_requests_total")
}

func TestRouterReadyReportsFailingDependency(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]Pinger{
		"redis": PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRouterOpenWhenAuthDisabled(t *testing.T) {
	router := newTestRouter(t, false)

	w := call(router, http.MethodPost, "/api/v1/courses", "", `{"code":"CS101","title":"Intro","credits":3,"faculty_id":"f-1"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, http.StatusNotFound, call(router, http.MethodGet, "/api/v1/courses/c-404", "", "").Code)
	assert.Contains(t, call(router, http.MethodGet, "/api/v1/reference", "", "").Body.String(), "Engineering")
}

func TestRouterGuards(t *testing.T) {
	router := newTestRouter(t, true)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		status int
	}{
		{"public catalogue", http.MethodGet, "/api/v1/courses", "", "", http.StatusOK},
		{"mutation needs token", http.MethodPost, "/api/v1/semesters", "", `{}`, http.StatusUnauthorized},
		{"teacher cannot create class", http.MethodPost, "/api/v1/classes", "teacher", `{}`, http.StatusForbidden},
		{"teacher finalises grades", http.MethodPost, "/api/v1/classes/cl-1/grades/finalize", "teacher", "", http.StatusOK},
		{"student reads own transcript", http.MethodGet, "/api/v1/students/s-1/transcript", "student", "", http.StatusOK},
		{"student blocked from other transcript", http.MethodGet, "/api/v1/students/s-2/transcript", "student", "", http.StatusForbidden},
		{"student cannot grade", http.MethodPut, "/api/v1/enrollments/e-1/grade", "student", `{"midterm":8}`, http.StatusForbidden},
		{"admin deactivates student", http.MethodDelete, "/api/v1/students/s-1", "admin", "", http.StatusNoContent},
		{"summary for staff", http.MethodGet, "/api/v1/metrics/summary", "admin", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := call(router, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestRouterTranscriptExportAndDownload(t *testing.T) {
	router := newTestRouter(t, true)

	w := call(router, http.MethodPost, "/api/v1/students/s-1/transcript/export", "student", `{"format":"CSV"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/transcripts/download/tok")

	assert.Equal(t, http.StatusBadRequest, call(router, http.MethodPost, "/api/v1/students/s-1/transcript/export", "admin", `{"format":"xlsx"}`).Code)

	download := call(router, http.MethodGet, "/api/v1/transcripts/download/tok", "", "")
	require.Equal(t, http.StatusOK, download.Code)
	assert.Equal(t, "text/csv; charset=utf-8", download.Header().Get("Content-Type"))
	assert.Contains(t, download.Header().Get("Content-Disposition"), "transcript_STU-001_all.csv")
	assert.Contains(t, download.Body.String(), "STU-001")

	assert.Equal(t, http.StatusForbidden, call(router, http.MethodGet, "/api/v1/transcripts/download/forged", "", "").Code)
}
