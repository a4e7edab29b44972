package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

// testDSNEnv names a Postgres DSN for tests that need a real database, e.g.
// "host=localhost user=postgres password=postgres dbname=students_test sslmode=disable".
const testDSNEnv = "STUDENT_RECORDS_TEST_DSN"

// newPostgresSchema creates a throwaway schema loaded from migrations/0001_init.sql and
// returns a pool bound to it.
func newPostgresSchema(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}

	admin, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	schema := "it_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.Exec("CREATE SCHEMA " + schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec("DROP SCHEMA " + schema + " CASCADE")
		_ = admin.Close()
	})

	scoped := dsn + " search_path=" + schema
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		scoped = dsn + sep + "search_path=" + schema
	}
	db, err := sqlx.Connect("postgres", scoped)
	require.NoError(t, err)
	db.SetMaxOpenConns(20)
	t.Cleanup(func() { _ = db.Close() })

	ddl, err := os.ReadFile("../../migrations/0001_init.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(ddl))
	require.NoError(t, err)
	return db
}

func TestEnrollmentRepositoryAdmitConcurrentPostgres(t *testing.T) {
	db := newPostgresSchema(t)
	ctx := context.Background()

	const seats, requests = 5, 30
	faculty, program, status := uuid.NewString(), uuid.NewString(), uuid.NewString()
	course, semester, class := uuid.NewString(), uuid.NewString(), uuid.NewString()
	db.MustExec(`INSERT INTO faculties (id, code, name) VALUES ($1, 'ENG', 'Engineering')`, faculty)
	db.MustExec(`INSERT INTO programs (id, faculty_id, code, name) VALUES ($1, $2, 'CS', 'Computer Science')`, program, faculty)
	db.MustExec(`INSERT INTO student_statuses (id, code, name) VALUES ($1, 'ENROLLED', 'Enrolled')`, status)
	db.MustExec(`INSERT INTO courses (id, code, title, credits, faculty_id) VALUES ($1, 'CS201', 'Data Structures', 3, $2)`, course, faculty)
	db.MustExec(`INSERT INTO semesters (id, academic_year, term, start_date, end_date) VALUES ($1, '2026-2027', 1, '2026-09-01', '2027-01-15')`, semester)
	db.MustExec(`INSERT INTO classes (id, code, course_id, semester_id, maximum_quantity) VALUES ($1, 'CS201-01', $2, $3, $4)`, class, course, semester, seats)

	students := make([]string, requests)
	for i := range students {
		students[i] = uuid.NewString()
		db.MustExec(`INSERT INTO students (id, student_code, full_name, date_of_birth, gender, faculty_id, program_id, status_id, cohort_year)
            VALUES ($1, $2, 'Student', '2005-01-01', 'OTHER', $3, $4, $5, 2024)`,
			students[i], fmt.Sprintf("STU-%03d", i), faculty, program, status)
	}

	repo := NewEnrollmentRepository(db)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var admitted, full int
	var unexpected []error
	for _, studentID := range students {
		wg.Add(1)
		go func(studentID string) {
			defer wg.Done()
			err := repo.Admit(ctx, &models.Enrollment{
				StudentID:  studentID,
				ClassID:    class,
				CourseID:   course,
				SemesterID: semester,
				EnrolledAt: time.Now().UTC(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, appErrors.ErrClassFull):
				full++
			default:
				unexpected = append(unexpected, err)
			}
		}(studentID)
	}
	wg.Wait()

	require.Empty(t, unexpected)
	assert.Equal(t, seats, admitted)
	assert.Equal(t, requests-seats, full)

	var enrolled, live int
	require.NoError(t, db.Get(&enrolled, `SELECT enrolled_count FROM classes WHERE id = $1`, class))
	require.NoError(t, db.Get(&live, `SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status <> 'CANCELLED'`, class))
	assert.Equal(t, seats, enrolled)
	assert.Equal(t, seats, live)
}
