package models

import "time"

// Grade holds the scores recorded against an enrollment on a 0-10 scale.
type Grade struct {
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	Midterm      *float64  `db:"midterm" json:"midterm,omitempty"`
	Final        *float64  `db:"final" json:"final,omitempty"`
	Total        *float64  `db:"total" json:"total,omitempty"`
	Letter       *string   `db:"letter" json:"letter,omitempty"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TranscriptRow is one graded course on a transcript.
type TranscriptRow struct {
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	SemesterID   string           `db:"semester_id" json:"semester_id"`
	AcademicYear string           `db:"academic_year" json:"academic_year"`
	Term         int              `db:"term" json:"term"`
	CourseID     string           `db:"course_id" json:"course_id"`
	CourseCode   string           `db:"course_code" json:"course_code"`
	CourseTitle  string           `db:"course_title" json:"course_title"`
	Credits      int              `db:"credits" json:"credits"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	Midterm      *float64         `db:"midterm" json:"midterm,omitempty"`
	Final        *float64         `db:"final" json:"final,omitempty"`
	Total        *float64         `db:"total" json:"total,omitempty"`
	Letter       *string          `db:"letter" json:"letter,omitempty"`
}

// Transcript aggregates a student's graded courses with the computed GPA.
type Transcript struct {
	StudentID     string          `json:"student_id"`
	StudentCode   string          `json:"student_code"`
	StudentName   string          `json:"student_name"`
	SemesterID    string          `json:"semester_id,omitempty"`
	Rows          []TranscriptRow `json:"rows"`
	GPA           float64         `json:"gpa"`
	EarnedCredits int             `json:"earned_credits"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// ExportFormat enumerates transcript export formats.
type ExportFormat string

const (
	ExportFormatPDF ExportFormat = "pdf"
	ExportFormatCSV ExportFormat = "csv"
)
