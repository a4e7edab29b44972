package academic

import "math"

const (
	// PassingScore is the minimum score for a course to count towards GPA.
	PassingScore = 5.0
	MinScore     = 0.0
	MaxScore     = 10.0
)

// CourseResult is one graded course fed into the GPA calculation.
type CourseResult struct {
	CourseID string  `json:"course_id"`
	Score    float64 `json:"score"`
	Credits  int     `json:"credits"`
}

// GPAResult is the outcome of CalculateGPA.
type GPAResult struct {
	GPA           float64        `json:"gpa"`
	EarnedCredits int            `json:"earned_credits"`
	OutOfRange    []CourseResult `json:"out_of_range,omitempty"`
}

// CalculateGPA returns the credit weighted mean of passing scores.
// Scores outside [0,10] are not clamped; they are reported in OutOfRange.
func CalculateGPA(results []CourseResult) GPAResult {
	var (
		weighted float64
		credits  int
		out      GPAResult
	)
	for _, r := range results {
		if r.Score < MinScore || r.Score > MaxScore {
			out.OutOfRange = append(out.OutOfRange, r)
		}
		if r.Score < PassingScore || r.Credits <= 0 {
			continue
		}
		weighted += r.Score * float64(r.Credits)
		credits += r.Credits
	}
	out.EarnedCredits = credits
	if credits == 0 {
		return out
	}
	out.GPA = Round2(weighted / float64(credits))
	return out
}

// Round2 rounds half to even at two decimals.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// TotalScore combines midterm and final scores with the given midterm weight.
func TotalScore(midterm, final, midtermWeight float64) float64 {
	if midtermWeight < 0 || midtermWeight > 1 {
		midtermWeight = 0.5
	}
	return Round2(midterm*midtermWeight + final*(1-midtermWeight))
}

// LetterGrade maps a 0-10 score to a letter.
func LetterGrade(score float64) string {
	switch {
	case score >= 8.5:
		return "A"
	case score >= 7.0:
		return "B"
	case score >= 5.5:
		return "C"
	case score >= 4.0:
		return "D"
	default:
		return "F"
	}
}

// Passed reports whether a total score completes the course.
func Passed(total float64) bool {
	return total >= PassingScore
}
