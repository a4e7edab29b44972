package models

import "time"

// Semester is an academic term referenced by classes and enrollments.
type Semester struct {
	ID                   string     `db:"id" json:"id"`
	AcademicYear         string     `db:"academic_year" json:"academic_year"`
	Term                 int        `db:"term" json:"term"`
	StartDate            time.Time  `db:"start_date" json:"start_date"`
	EndDate              time.Time  `db:"end_date" json:"end_date"`
	CancellationDeadline *time.Time `db:"cancellation_deadline" json:"cancellation_deadline,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// SemesterFilter defines filters supported by list endpoints.
type SemesterFilter struct {
	AcademicYear string
	Page         int
	PageSize     int
}
