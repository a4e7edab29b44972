package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/repository"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type mockGradeRepo struct {
	saved    *models.Grade
	stored   map[string]models.Grade
	totals   map[string]float64
	statuses map[string]models.EnrollmentStatus
	err      error
}

func (m *mockGradeRepo) Record(ctx context.Context, grade *models.Grade, derive func(*models.Grade)) error {
	if m.err != nil {
		return m.err
	}
	if prev, ok := m.stored[grade.EnrollmentID]; ok {
		if grade.Midterm == nil {
			grade.Midterm = prev.Midterm
		}
		if grade.Final == nil {
			grade.Final = prev.Final
		}
	}
	grade.Total, grade.Letter = nil, nil
	derive(grade)
	if m.stored == nil {
		m.stored = map[string]models.Grade{}
	}
	m.stored[grade.EnrollmentID] = *grade
	m.saved = grade
	return nil
}

func (m *mockGradeRepo) FinalizeClass(ctx context.Context, classID string, at time.Time, decide func(total float64) models.EnrollmentStatus) (*repository.FinalizeResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := &repository.FinalizeResult{}
	m.statuses = map[string]models.EnrollmentStatus{}
	for id, total := range m.totals {
		status := decide(total)
		m.statuses[id] = status
		if status == models.EnrollmentStatusCompleted {
			result.Completed++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

type mapEnrollments map[string]models.Enrollment

func (m mapEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	e, ok := m[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

type mapClasses map[string]models.ClassDetail

func (m mapClasses) FindByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	c, ok := m[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func floatPtr(v float64) *float64 { return &v }

func TestGradeServiceRecordComputesTotalAndLetter(t *testing.T) {
	repo := &mockGradeRepo{}
	enrollments := mapEnrollments{"en-1": {ID: "en-1", Status: models.EnrollmentStatusActive}}
	svc := NewGradeService(repo, enrollments, mapClasses{}, nil, 0.4, nil, nil)

	grade, err := svc.Record(context.Background(), "en-1", GradeRequest{Midterm: floatPtr(7), Final: floatPtr(9)})
	require.NoError(t, err)
	require.NotNil(t, grade.Total)
	assert.Equal(t, 8.2, *grade.Total)
	assert.Equal(t, "B", *grade.Letter)
	assert.Same(t, grade, repo.saved)
}

func TestGradeServiceRecordPartial(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := NewGradeService(repo, mapEnrollments{"en-1": {Status: models.EnrollmentStatusActive}}, mapClasses{}, nil, 0.5, nil, nil)

	grade, err := svc.Record(context.Background(), "en-1", GradeRequest{Midterm: floatPtr(6)})
	require.NoError(t, err)
	assert.Nil(t, grade.Total)
}

func TestGradeServiceRecordMergesPartialScores(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := NewGradeService(repo, mapEnrollments{"en-1": {Status: models.EnrollmentStatusActive}}, mapClasses{}, nil, 0.4, nil, nil)
	ctx := context.Background()

	_, err := svc.Record(ctx, "en-1", GradeRequest{Midterm: floatPtr(6)})
	require.NoError(t, err)
	grade, err := svc.Record(ctx, "en-1", GradeRequest{Final: floatPtr(8)})
	require.NoError(t, err)

	require.NotNil(t, grade.Midterm)
	assert.Equal(t, 6.0, *grade.Midterm)
	require.NotNil(t, grade.Total)
	assert.Equal(t, 7.2, *grade.Total)
	assert.Equal(t, "B", *grade.Letter)

	grade, err = svc.Record(ctx, "en-1", GradeRequest{Midterm: floatPtr(9)})
	require.NoError(t, err)
	assert.Equal(t, 8.0, *grade.Final)
	assert.Equal(t, 8.4, *grade.Total)
}

func TestGradeServiceRecordMapsRepositoryErrors(t *testing.T) {
	enrollments := mapEnrollments{"en-1": {Status: models.EnrollmentStatusActive}}
	ctx := context.Background()

	svc := NewGradeService(&mockGradeRepo{err: appErrors.Clone(appErrors.ErrFinalized, "finalized meanwhile")}, enrollments, mapClasses{}, nil, 0.5, nil, nil)
	_, err := svc.Record(ctx, "en-1", GradeRequest{Final: floatPtr(5)})
	assert.True(t, errors.Is(err, appErrors.ErrFinalized))

	svc = NewGradeService(&mockGradeRepo{err: sql.ErrNoRows}, enrollments, mapClasses{}, nil, 0.5, nil, nil)
	_, err = svc.Record(ctx, "en-1", GradeRequest{Final: floatPtr(5)})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	svc = NewGradeService(&mockGradeRepo{err: errors.New("pq: connection reset")}, enrollments, mapClasses{}, nil, 0.5, nil, nil)
	_, err = svc.Record(ctx, "en-1", GradeRequest{Final: floatPtr(5)})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestGradeServiceRecordRejects(t *testing.T) {
	enrollments := mapEnrollments{
		"active":    {Status: models.EnrollmentStatusActive},
		"completed": {Status: models.EnrollmentStatusCompleted},
	}
	svc := NewGradeService(&mockGradeRepo{}, enrollments, mapClasses{}, nil, 0.5, nil, nil)
	ctx := context.Background()

	_, err := svc.Record(ctx, "active", GradeRequest{Midterm: floatPtr(11)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = svc.Record(ctx, "active", GradeRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = svc.Record(ctx, "completed", GradeRequest{Final: floatPtr(5)})
	assert.True(t, errors.Is(err, appErrors.ErrFinalized))
	_, err = svc.Record(ctx, "missing", GradeRequest{Final: floatPtr(5)})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestGradeServiceFinalizeClass(t *testing.T) {
	repo := &mockGradeRepo{totals: map[string]float64{"en-1": 5, "en-2": 4.99, "en-3": 9}}
	svc := NewGradeService(repo, mapEnrollments{}, mapClasses{"cl-1": {}}, nil, 0.5, nil, nil)

	result, err := svc.FinalizeClass(context.Background(), "cl-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Completed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, models.EnrollmentStatusFailed, repo.statuses["en-2"])

	_, err = svc.FinalizeClass(context.Background(), "cl-404")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestGradeServiceFinalizePassesBusinessErrors(t *testing.T) {
	repo := &mockGradeRepo{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "ungraded")}
	svc := NewGradeService(repo, mapEnrollments{}, mapClasses{"cl-1": {}}, nil, 0.5, nil, nil)

	_, err := svc.FinalizeClass(context.Background(), "cl-1")
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
}
