package facemark

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Tracker keeps one position estimate per landmark and refines all of them
// on every frame. Each frame starts from the previous frame's estimates.
type Tracker struct {
	bank     *Bank
	searcher *Searcher
	radius   int
	workers  int

	initial   []image.Point
	estimates []image.Point

	// OnStep, when set, receives every search iteration of every landmark.
	// It is called concurrently from the refining goroutines.
	OnStep func(landmark int, st Step)
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithRadius sets the radius every refinement starts from.
func WithRadius(r int) TrackerOption {
	return func(t *Tracker) { t.radius = r }
}

// WithWorkers bounds the number of landmarks refined concurrently.
// One worker refines the landmarks sequentially.
func WithWorkers(n int) TrackerOption {
	return func(t *Tracker) { t.workers = n }
}

// NewTracker creates a tracker whose first frame starts from initial,
// which must hold one guess per landmark of the bank, in bank order.
func NewTracker(bank *Bank, searcher *Searcher, initial []image.Point, opts ...TrackerOption) (*Tracker, error) {
	if bank == nil || searcher == nil {
		return nil, fmt.Errorf("tracker needs a classifier bank and a searcher")
	}
	if len(initial) != bank.Len() {
		return nil, fmt.Errorf("got %d initial guesses for %d landmarks", len(initial), bank.Len())
	}
	t := &Tracker{
		bank:     bank,
		searcher: searcher,
		radius:   DefaultRadius,
		workers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.radius <= 0 {
		return nil, fmt.Errorf("search radius must be positive, got %d", t.radius)
	}
	if t.workers <= 0 {
		t.workers = 1
	}
	t.initial = append([]image.Point(nil), initial...)
	t.estimates = append([]image.Point(nil), initial...)

	return t, nil
}

// Refine runs one independent search per landmark over img and returns the
// refined positions in bank order. The stored estimates are replaced only
// when every landmark finished; on error they keep their previous values.
func (t *Tracker) Refine(ctx context.Context, img *image.Gray) ([]image.Point, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, frameError("the frame has zero extent")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)

	refined := make([]image.Point, len(t.estimates))
	for i, start := range t.estimates {
		i, start := i, start
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := *t.searcher
			if t.OnStep != nil {
				s.Trace = func(st Step) { t.OnStep(i, st) }
			}
			p, err := s.Refine(img, start, t.radius, t.bank.at(i))
			if err != nil {
				return fmt.Errorf("landmark %q: %w", t.bank.names[i], err)
			}
			refined[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	copy(t.estimates, refined)
	return refined, nil
}

// Estimates returns a copy of the current estimates.
func (t *Tracker) Estimates() []image.Point {
	return append([]image.Point(nil), t.estimates...)
}

// Reset restores the initial guesses, e.g. after the face was lost.
func (t *Tracker) Reset() {
	copy(t.estimates, t.initial)
}

// Names returns the landmark names in the order Refine reports them.
func (t *Tracker) Names() []string {
	return t.bank.Names()
}
