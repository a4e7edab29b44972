package academic

import (
	"fmt"
	"strings"

	"github.com/noah-isme/student-records-api/internal/models"
)

// PrerequisiteResult describes whether a student satisfies a course's prerequisites.
type PrerequisiteResult struct {
	Valid    bool               `json:"valid"`
	Verified bool               `json:"verified"`
	Message  string             `json:"message"`
	Missing  []models.CourseRef `json:"missing"`
}

// CheckPrerequisites reports the required courses absent from completed.
func CheckPrerequisites(required []models.CourseRef, completed []string) PrerequisiteResult {
	done := make(map[string]struct{}, len(completed))
	for _, id := range completed {
		done[id] = struct{}{}
	}

	missing := make([]models.CourseRef, 0)
	for _, course := range required {
		if _, ok := done[course.ID]; !ok {
			missing = append(missing, course)
		}
	}

	if len(missing) == 0 {
		return PrerequisiteResult{Valid: true, Verified: true, Message: "all prerequisites satisfied", Missing: missing}
	}

	codes := make([]string, 0, len(missing))
	for _, course := range missing {
		label := course.Code
		if label == "" {
			label = course.ID
		}
		codes = append(codes, label)
	}
	return PrerequisiteResult{
		Valid:    false,
		Verified: true,
		Message:  fmt.Sprintf("missing prerequisites: %s", strings.Join(codes, ", ")),
		Missing:  missing,
	}
}

// UnverifiedPrerequisites is returned when prerequisite data could not be loaded.
func UnverifiedPrerequisites() PrerequisiteResult {
	return PrerequisiteResult{
		Valid:    false,
		Verified: false,
		Message:  "could not verify prerequisites",
		Missing:  []models.CourseRef{},
	}
}
