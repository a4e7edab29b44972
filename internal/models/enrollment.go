package models

import (
	"fmt"
	"strings"
	"time"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// The closed set of enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusFailed    EnrollmentStatus = "FAILED"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

var legacyStatuses = map[string]EnrollmentStatus{
	"DROP":     EnrollmentStatusCancelled,
	"COMPLETE": EnrollmentStatusCompleted,
	"FAIL":     EnrollmentStatusFailed,
}

// ParseEnrollmentStatus normalises status input, accepting the legacy DROP/COMPLETE/FAIL names.
func ParseEnrollmentStatus(raw string) (EnrollmentStatus, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	switch EnrollmentStatus(value) {
	case EnrollmentStatusActive, EnrollmentStatusCompleted, EnrollmentStatusFailed, EnrollmentStatusCancelled:
		return EnrollmentStatus(value), nil
	}
	if status, ok := legacyStatuses[value]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown enrollment status %q", raw)
}

// Enrollment links a student to a class offering in a semester.
type Enrollment struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	ClassID     string           `db:"class_id" json:"class_id"`
	CourseID    string           `db:"course_id" json:"course_id"`
	SemesterID  string           `db:"semester_id" json:"semester_id"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt  time.Time        `db:"enrolled_at" json:"enrolled_at"`
	CancelledAt *time.Time       `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CompletedAt *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}

// EnrollmentDetail enriches Enrollment with student, class and grade info.
type EnrollmentDetail struct {
	Enrollment
	StudentCode string `db:"student_code" json:"student_code"`
	StudentName string `db:"student_name" json:"student_name"`
	ClassCode   string `db:"class_code" json:"class_code"`
	CourseCode  string `db:"course_code" json:"course_code"`
	Grade       *Grade `db:"-" json:"grade,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID  string
	ClassID    string
	SemesterID string
	Status     EnrollmentStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
