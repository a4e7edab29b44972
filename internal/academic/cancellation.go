package academic

import (
	"time"

	"github.com/noah-isme/student-records-api/internal/models"
)

// Reasons returned when an enrollment cannot be cancelled.
const (
	ReasonAlreadyCancelled = "enrollment already cancelled"
	ReasonAlreadyFailed    = "enrollment already failed"
	ReasonAlreadyCompleted = "enrollment already completed"
	ReasonDeadlinePassed   = "cancellation deadline has passed"
)

// CancellationResult describes whether an enrollment may be cancelled.
type CancellationResult struct {
	Eligible bool      `json:"eligible"`
	Reason   string    `json:"reason,omitempty"`
	Deadline time.Time `json:"deadline"`
}

// CheckCancellation allows cancelling an ACTIVE enrollment up to and including the deadline.
func CheckCancellation(status models.EnrollmentStatus, deadline, now time.Time) CancellationResult {
	result := CancellationResult{Deadline: deadline}
	switch status {
	case models.EnrollmentStatusCancelled:
		result.Reason = ReasonAlreadyCancelled
	case models.EnrollmentStatusFailed:
		result.Reason = ReasonAlreadyFailed
	case models.EnrollmentStatusCompleted:
		result.Reason = ReasonAlreadyCompleted
	case models.EnrollmentStatusActive:
		if now.After(deadline) {
			result.Reason = ReasonDeadlinePassed
		} else {
			result.Eligible = true
		}
	default:
		result.Reason = "unknown enrollment status"
	}
	return result
}

// CancellationDeadline prefers the semester deadline and falls back to enrolledAt + window.
func CancellationDeadline(semesterDeadline *time.Time, enrolledAt time.Time, window time.Duration) time.Time {
	if semesterDeadline != nil && !semesterDeadline.IsZero() {
		return *semesterDeadline
	}
	return enrolledAt.Add(window)
}
