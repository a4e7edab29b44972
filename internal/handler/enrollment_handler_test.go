package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records-api/internal/academic"
	"github.com/noah-isme/student-records-api/internal/middleware"
	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/service"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
	"github.com/noah-isme/student-records-api/pkg/response"
)

type enrollmentServiceMock struct {
	enrollErr   error
	cancelErr   error
	enrollments map[string]models.EnrollmentDetail
	lastFilter  models.EnrollmentFilter
	lastEnroll  service.EnrollRequest
	cancelled   []string
}

func (m *enrollmentServiceMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.EnrollmentDetail{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (m *enrollmentServiceMock) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	e, ok := m.enrollments[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	return &e, nil
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, req service.EnrollRequest) (*models.Enrollment, error) {
	m.lastEnroll = req
	if m.enrollErr != nil {
		return nil, m.enrollErr
	}
	return &models.Enrollment{ID: "e-1", StudentID: req.StudentID, ClassID: req.ClassID, Status: models.EnrollmentStatusActive}, nil
}

func (m *enrollmentServiceMock) CheckCapacity(ctx context.Context, classID string) (*academic.CapacityResult, error) {
	r := academic.CheckCapacity(3, 3)
	return &r, nil
}

func (m *enrollmentServiceMock) CheckPrerequisites(ctx context.Context, req service.CheckPrerequisitesRequest) (*academic.PrerequisiteResult, error) {
	r := academic.CheckPrerequisites(nil, nil)
	return &r, nil
}

func (m *enrollmentServiceMock) CheckCancellation(ctx context.Context, id string) (*academic.CancellationResult, error) {
	return &academic.CancellationResult{Eligible: true}, nil
}

func (m *enrollmentServiceMock) Cancel(ctx context.Context, id string) (*models.Enrollment, error) {
	if m.cancelErr != nil {
		return nil, m.cancelErr
	}
	m.cancelled = append(m.cancelled, id)
	return &models.Enrollment{ID: id, Status: models.EnrollmentStatusCancelled}, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestEnrollmentHandlerEnroll(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	payload, _ := json.Marshal(service.EnrollRequest{StudentID: "s-1", CourseID: "c-1", ClassID: "cl-1", SemesterID: "sem-1"})
	c, w := newGinContext(http.MethodPost, "/enrollments", payload)

	handler.Enroll(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "cl-1", mockSvc.lastEnroll.ClassID)
}

func TestEnrollmentHandlerEnrollErrorsCarryCode(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		code   string
	}{
		"prerequisite": {appErrors.WithDetails(appErrors.ErrPrerequisiteNotMet, "missing CS101", []models.CourseRef{{ID: "c-101", Code: "CS101"}}), http.StatusUnprocessableEntity, "PREREQUISITE_NOT_MET"},
		"full":         {appErrors.Clone(appErrors.ErrClassFull, "class is full (1/1)"), http.StatusConflict, "CLASS_FULL"},
		"duplicate":    {appErrors.ErrDuplicateEnrollment, http.StatusConflict, "DUPLICATE_ENROLLMENT"},
		"transient":    {appErrors.ErrTransient, http.StatusServiceUnavailable, "TRANSIENT_ERROR"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler := NewEnrollmentHandler(&enrollmentServiceMock{enrollErr: tc.err})
			payload, _ := json.Marshal(service.EnrollRequest{StudentID: "s-1", CourseID: "c-1", ClassID: "cl-1", SemesterID: "sem-1"})
			c, w := newGinContext(http.MethodPost, "/enrollments", payload)

			handler.Enroll(c)
			require.Equal(t, tc.status, w.Code)
			env := decodeEnvelope(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestEnrollmentHandlerEnrollRejectsOtherStudent(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	payload, _ := json.Marshal(service.EnrollRequest{StudentID: "s-2", CourseID: "c-1", ClassID: "cl-1", SemesterID: "sem-1"})
	c, w := newGinContext(http.MethodPost, "/enrollments", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent, StudentID: "s-1"})

	handler.Enroll(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, mockSvc.lastEnroll.StudentID)
}

func TestEnrollmentHandlerListScopesStudents(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/enrollments?studentId=s-9&status=drop", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent, StudentID: "s-1"})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s-1", mockSvc.lastFilter.StudentID)
	assert.Equal(t, models.EnrollmentStatusCancelled, mockSvc.lastFilter.Status)
}

func TestEnrollmentHandlerListRejectsUnknownStatus(t *testing.T) {
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})

	c, w := newGinContext(http.MethodGet, "/enrollments?status=PAUSED", nil)
	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerCancel(t *testing.T) {
	mockSvc := &enrollmentServiceMock{enrollments: map[string]models.EnrollmentDetail{
		"e-1": {Enrollment: models.Enrollment{ID: "e-1", StudentID: "s-1"}},
		"e-2": {Enrollment: models.Enrollment{ID: "e-2", StudentID: "s-2"}},
	}}
	handler := NewEnrollmentHandler(mockSvc)
	student := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent, StudentID: "s-1"}

	c, w := newGinContext(http.MethodPatch, "/enrollments/e-1/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}
	c.Set(middleware.ContextUserKey, student)
	handler.Cancel(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodPatch, "/enrollments/e-2/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: "e-2"}}
	c.Set(middleware.ContextUserKey, student)
	handler.Cancel(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, []string{"e-1"}, mockSvc.cancelled)
}

func TestEnrollmentHandlerCancelNotAllowed(t *testing.T) {
	mockSvc := &enrollmentServiceMock{
		enrollments: map[string]models.EnrollmentDetail{"e-1": {Enrollment: models.Enrollment{ID: "e-1", StudentID: "s-1"}}},
		cancelErr:   appErrors.Clone(appErrors.ErrCancellationNotAllowed, academic.ReasonDeadlinePassed),
	}
	handler := NewEnrollmentHandler(mockSvc)

	c, w := newGinContext(http.MethodPatch, "/enrollments/e-1/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}
	handler.Cancel(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, academic.ReasonDeadlinePassed, decodeEnvelope(t, w).Message)
}

func TestEnrollmentHandlerCheckCapacity(t *testing.T) {
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})

	c, w := newGinContext(http.MethodGet, "/enrollments/check-capacity/cl-1", nil)
	c.Params = gin.Params{{Key: "classId", Value: "cl-1"}}
	handler.CheckCapacity(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"available":false`)
}
