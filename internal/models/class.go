package models

import "time"

// Class is an offering of a course in a semester with a bounded number of seats.
type Class struct {
	ID              string    `db:"id" json:"id"`
	Code            string    `db:"code" json:"code"`
	CourseID        string    `db:"course_id" json:"course_id"`
	SemesterID      string    `db:"semester_id" json:"semester_id"`
	TeacherName     string    `db:"teacher_name" json:"teacher_name"`
	Schedule        string    `db:"schedule" json:"schedule"`
	Classroom       string    `db:"classroom" json:"classroom"`
	MaximumQuantity int       `db:"maximum_quantity" json:"maximum_quantity"`
	EnrolledCount   int       `db:"enrolled_count" json:"enrolled_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with course information.
type ClassDetail struct {
	Class
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	Credits     int    `db:"credits" json:"credits"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	CourseID   string
	SemesterID string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
