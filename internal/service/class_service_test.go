package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type mockClassRepo struct {
	classes map[string]models.Class
}

func (m *mockClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	out := make([]models.ClassDetail, 0, len(m.classes))
	for _, c := range m.classes {
		out = append(out, models.ClassDetail{Class: c})
	}
	return out, len(out), nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	c, ok := m.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.ClassDetail{Class: c}, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	class.ID = "cl-" + class.Code
	m.classes[class.ID] = *class
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) (bool, error) {
	current := m.classes[class.ID]
	if current.EnrolledCount > class.MaximumQuantity {
		return false, nil
	}
	m.classes[class.ID] = *class
	return true, nil
}

func newClassFixture() (*ClassService, *mockClassRepo) {
	repo := &mockClassRepo{classes: map[string]models.Class{}}
	courses := newMockCourseRepo(
		models.Course{ID: "c-101", Code: "CS101", Status: models.CourseStatusActive},
		models.Course{ID: "c-old", Code: "CS000", Status: models.CourseStatusInactive},
	)
	semesters := fakeSemesters{"sem-1": {ID: "sem-1"}}
	return NewClassService(repo, courses, semesters, nil, nil), repo
}

func TestClassServiceCreate(t *testing.T) {
	svc, _ := newClassFixture()

	class, err := svc.Create(context.Background(), CreateClassRequest{Code: "CS101-A", CourseID: "c-101", SemesterID: "sem-1", MaximumQuantity: 30})
	require.NoError(t, err)
	assert.Equal(t, "cl-CS101-A", class.ID)
	assert.Equal(t, 0, class.EnrolledCount)
}

func TestClassServiceCreateRejects(t *testing.T) {
	svc, _ := newClassFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateClassRequest{Code: "X", CourseID: "c-old", SemesterID: "sem-1", MaximumQuantity: 10})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, CreateClassRequest{Code: "X", CourseID: "c-101", SemesterID: "sem-9", MaximumQuantity: 10})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Create(ctx, CreateClassRequest{Code: "X", CourseID: "c-404", SemesterID: "sem-1", MaximumQuantity: 10})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Create(ctx, CreateClassRequest{Code: "X", CourseID: "c-101", SemesterID: "sem-1", MaximumQuantity: 0})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestClassServiceUpdateKeepsCapacityAboveEnrolled(t *testing.T) {
	svc, repo := newClassFixture()
	repo.classes["cl-1"] = models.Class{ID: "cl-1", Code: "A", CourseID: "c-101", SemesterID: "sem-1", MaximumQuantity: 10, EnrolledCount: 6}
	ctx := context.Background()

	_, err := svc.Update(ctx, "cl-1", UpdateClassRequest{Code: "A", MaximumQuantity: 5})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	updated, err := svc.Update(ctx, "cl-1", UpdateClassRequest{Code: "A", MaximumQuantity: 6})
	require.NoError(t, err)
	assert.Equal(t, 6, updated.MaximumQuantity)
	assert.Equal(t, 6, updated.EnrolledCount)
}
