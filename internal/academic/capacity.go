package academic

// CapacityResult describes the seat availability of a class.
type CapacityResult struct {
	Available bool `json:"available"`
	Current   int  `json:"current"`
	Maximum   int  `json:"maximum"`
	Remaining int  `json:"remaining"`
}

// CheckCapacity is advisory; admission re-checks the counter atomically.
func CheckCapacity(current, maximum int) CapacityResult {
	remaining := maximum - current
	if remaining < 0 {
		remaining = 0
	}
	return CapacityResult{
		Available: current < maximum,
		Current:   current,
		Maximum:   maximum,
		Remaining: remaining,
	}
}
