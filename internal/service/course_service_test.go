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
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type mockCourseRepo struct {
	courses       map[string]models.Course
	prereqs       map[string][]string
	prereqLookups int
}

func newMockCourseRepo(courses ...models.Course) *mockCourseRepo {
	repo := &mockCourseRepo{courses: map[string]models.Course{}, prereqs: map[string][]string{}}
	for _, c := range courses {
		repo.courses[c.ID] = c
	}
	return repo
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	out := make([]models.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	refs, _ := m.ListPrerequisites(ctx, id)
	c.Prerequisites = refs
	return &c, nil
}

func (m *mockCourseRepo) ListPrerequisites(ctx context.Context, courseID string) ([]models.CourseRef, error) {
	m.prereqLookups++
	refs := make([]models.CourseRef, 0, len(m.prereqs[courseID]))
	for _, id := range m.prereqs[courseID] {
		c := m.courses[id]
		refs = append(refs, models.CourseRef{ID: c.ID, Code: c.Code, Title: c.Title})
	}
	return refs, nil
}

func (m *mockCourseRepo) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	for _, c := range m.courses {
		if c.Code == code && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCourseRepo) CountExisting(ctx context.Context, ids []string) (int, error) {
	count := 0
	for _, id := range ids {
		if _, ok := m.courses[id]; ok {
			count++
		}
	}
	return count, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course, prerequisiteIDs []string) error {
	course.ID = "c-" + course.Code
	if course.Status == "" {
		course.Status = models.CourseStatusActive
	}
	m.courses[course.ID] = *course
	m.prereqs[course.ID] = prerequisiteIDs
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) ReplacePrerequisites(ctx context.Context, courseID string, prerequisiteIDs []string) error {
	m.prereqs[courseID] = prerequisiteIDs
	return nil
}

func TestCourseServiceCreateWithPrerequisites(t *testing.T) {
	repo := newMockCourseRepo(models.Course{ID: "c-101", Code: "CS101", Title: "Intro"})
	svc := NewCourseService(repo, nil, nil, nil)

	course, err := svc.Create(context.Background(), CourseRequest{
		Code: " cs201 ", Title: "Data Structures", Credits: 4, FacultyID: "f-1",
		PrerequisiteIDs: []string{"c-101", "c-101", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "CS201", course.Code)
	assert.Equal(t, []models.CourseRef{{ID: "c-101", Code: "CS101", Title: "Intro"}}, course.Prerequisites)
}

func TestCourseServiceCreateRejects(t *testing.T) {
	repo := newMockCourseRepo(models.Course{ID: "c-101", Code: "CS101"})
	svc := NewCourseService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), CourseRequest{Code: "CS101", Title: "Again", Credits: 3, FacultyID: "f-1"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Create(context.Background(), CourseRequest{Code: "CS301", Title: "X", Credits: 3, FacultyID: "f-1", PrerequisiteIDs: []string{"ghost"}})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), CourseRequest{Code: "CS302", Title: "X", Credits: 0, FacultyID: "f-1"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCourseServiceReplacePrerequisitesRejectsSelf(t *testing.T) {
	repo := newMockCourseRepo(models.Course{ID: "c-101", Code: "CS101"})
	svc := NewCourseService(repo, nil, nil, nil)

	_, err := svc.ReplacePrerequisites(context.Background(), "c-101", PrerequisitesRequest{PrerequisiteIDs: []string{"c-101"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCourseServicePrerequisitesCachedAndInvalidated(t *testing.T) {
	repo := newMockCourseRepo(
		models.Course{ID: "c-101", Code: "CS101"},
		models.Course{ID: "c-102", Code: "CS102"},
		models.Course{ID: "c-201", Code: "CS201"},
	)
	repo.prereqs["c-201"] = []string{"c-101"}
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc := NewCourseService(repo, cache, nil, nil)
	ctx := context.Background()

	first, err := svc.Prerequisites(ctx, "c-201")
	require.NoError(t, err)
	_, err = svc.Prerequisites(ctx, "c-201")
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Equal(t, 1, repo.prereqLookups)

	_, err = svc.ReplacePrerequisites(ctx, "c-201", PrerequisitesRequest{PrerequisiteIDs: []string{"c-101", "c-102"}})
	require.NoError(t, err)
	refreshed, err := svc.Prerequisites(ctx, "c-201")
	require.NoError(t, err)
	assert.Len(t, refreshed, 2)
}

func TestCourseServiceGetNotFound(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
