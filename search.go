package facemark

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/esimov/facemark/utils"
)

// StencilSize is the number of candidates examined per search iteration.
const StencilSize = 9

// Stencil returns the 3x3 candidate positions around p at distance r.
// The order is fixed: the center first, then the column at p.X, the column
// at p.X-r and the column at p.X+r, each listed as same row, below, above.
// The order decides ties, so it must never change.
func Stencil(p image.Point, r int) [StencilSize]image.Point {
	x, y := p.X, p.Y
	return [StencilSize]image.Point{
		{x, y},
		{x, y + r},
		{x, y - r},
		{x - r, y},
		{x - r, y + r},
		{x - r, y - r},
		{x + r, y},
		{x + r, y + r},
		{x + r, y - r},
	}
}

// clip moves p to the nearest pixel inside bounds.
func clip(p image.Point, bounds image.Rectangle) image.Point {
	return image.Point{
		X: utils.Clamp(p.X, bounds.Min.X, bounds.Max.X-1),
		Y: utils.Clamp(p.Y, bounds.Min.Y, bounds.Max.Y-1),
	}
}

// Step describes one finished search iteration.
type Step struct {
	Iteration  int
	Radius     int
	Candidates [StencilSize]image.Point
	Scores     [StencilSize]float64
	Best       int
	// Degenerate is set when every candidate clipped to the same pixel and
	// the iteration kept the current position without scoring.
	Degenerate bool
}

// Searcher refines a landmark position by coarse to fine stencil search.
type Searcher struct {
	Extractor Extractor
	// Scale is the keypoint scale the candidates are described at.
	Scale    float64
	Schedule Schedule
	// Trace, when set, is called after every iteration.
	Trace func(Step)
}

// NewSearcher returns a searcher using the default keypoint scale and schedule.
func NewSearcher(e Extractor) *Searcher {
	return &Searcher{
		Extractor: e,
		Scale:     DefaultKeypointScale,
		Schedule:  DefaultSchedule(),
	}
}

// Refine moves start towards the position the scorer is most confident in.
// Each iteration scores the nine stencil candidates at the current radius,
// moves to the best one (the first one wins ties) and shrinks the radius by
// the schedule, until the radius is no longer positive.
//
// Candidates outside the image are clipped to its extent and still scored.
// When all of them clip to the same pixel the position is left unchanged
// for that iteration.
func (s *Searcher) Refine(img *image.Gray, start image.Point, radius int, sc Scorer) (image.Point, error) {
	if s.Extractor == nil || sc == nil {
		return start, errors.New("searcher needs an extractor and a scorer")
	}
	if err := s.Schedule.Validate(); err != nil {
		return start, err
	}
	var (
		bounds  = img.Bounds()
		pos     = start
		samples = make([]Sample, StencilSize)
	)

	for iter := 0; radius > 0; iter++ {
		step := Step{
			Iteration: iter,
			Radius:    radius,
		}
		raw := Stencil(pos, radius)

		if bounds.Empty() {
			step.Candidates = raw
			step.Degenerate = true
		} else {
			for i, p := range raw {
				step.Candidates[i] = clip(p, bounds)
			}
			step.Degenerate = allSame(step.Candidates)
		}

		if !step.Degenerate {
			for i, p := range step.Candidates {
				samples[i] = Sample{X: p.X, Y: p.Y, Scale: s.Scale}
			}
			descs, err := s.Extractor.Extract(img, samples)
			if err != nil {
				return pos, err
			}
			if len(descs) != StencilSize {
				return pos, fmt.Errorf("extractor returned %d descriptors for %d samples", len(descs), StencilSize)
			}
			for i, d := range descs {
				step.Scores[i] = sc.Score(d)
			}
			step.Best = argmax(step.Scores[:])
			pos = step.Candidates[step.Best]
		}

		if s.Trace != nil {
			s.Trace(step)
		}
		radius = s.Schedule.Next(radius)
	}
	return pos, nil
}

// argmax returns the index of the first maximal value. NaN scores never win.
func argmax(scores []float64) int {
	best, bestScore := 0, math.Inf(-1)
	for i, v := range scores {
		if v > bestScore {
			best, bestScore = i, v
		}
	}
	return best
}

func allSame(pts [StencilSize]image.Point) bool {
	for _, p := range pts[1:] {
		if p != pts[0] {
			return false
		}
	}
	return true
}
