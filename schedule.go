package facemark

import "errors"

// DefaultRadius is the search radius every landmark refinement starts from.
const DefaultRadius = 25

// Schedule maps the current search radius to the next one. Radii below Low
// shrink by SmallStep, radii below High by MidStep and any other by LargeStep.
// The search stops as soon as the radius drops to zero or below.
//
// The default thresholds and steps were picked empirically; they are kept
// configurable rather than treated as optimal.
type Schedule struct {
	Low       int `yaml:"low"`
	High      int `yaml:"high"`
	SmallStep int `yaml:"small_step"`
	MidStep   int `yaml:"mid_step"`
	LargeStep int `yaml:"large_step"`
}

// DefaultSchedule takes a radius of 25 through 15 and 5 before stopping.
func DefaultSchedule() Schedule {
	return Schedule{
		Low:       4,
		High:      12,
		SmallStep: 3,
		MidStep:   7,
		LargeStep: 10,
	}
}

// Next returns the radius following r.
func (s Schedule) Next(r int) int {
	switch {
	case r < s.Low:
		return r - s.SmallStep
	case r < s.High:
		return r - s.MidStep
	default:
		return r - s.LargeStep
	}
}

// Radii lists every radius a search starting at start visits, in order.
// A non-positive start or an invalid schedule yields no radius at all.
func (s Schedule) Radii(start int) []int {
	if s.Validate() != nil {
		return nil
	}
	var radii []int
	for r := start; r > 0; r = s.Next(r) {
		radii = append(radii, r)
	}
	return radii
}

// Validate rejects schedules that would never terminate.
func (s Schedule) Validate() error {
	if s.SmallStep <= 0 || s.MidStep <= 0 || s.LargeStep <= 0 {
		return errors.New("schedule steps must be positive")
	}
	if s.Low > s.High {
		return errors.New("schedule low threshold must not exceed the high threshold")
	}
	return nil
}
