package models

import "time"

// CourseStatus marks whether a course can be offered.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "ACTIVE"
	CourseStatusInactive CourseStatus = "INACTIVE"
)

// Course is a catalogue entry; prerequisites are shared references to other courses.
type Course struct {
	ID            string       `db:"id" json:"id"`
	Code          string       `db:"code" json:"code"`
	Title         string       `db:"title" json:"title"`
	Credits       int          `db:"credits" json:"credits"`
	FacultyID     string       `db:"faculty_id" json:"faculty_id"`
	Status        CourseStatus `db:"status" json:"status"`
	Description   string       `db:"description" json:"description"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
	Prerequisites []CourseRef  `db:"-" json:"prerequisites"`
}

// CourseRef is a lightweight course reference used for prerequisites and reports.
type CourseRef struct {
	ID    string `db:"id" json:"id"`
	Code  string `db:"code" json:"code"`
	Title string `db:"title" json:"title"`
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	FacultyID string
	Status    CourseStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
