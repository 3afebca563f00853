package facemark

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStencil_Order(t *testing.T) {
	got := Stencil(image.Pt(10, 20), 3)
	want := [StencilSize]image.Point{
		{10, 20},
		{10, 23},
		{10, 17},
		{7, 20},
		{7, 23},
		{7, 17},
		{13, 20},
		{13, 23},
		{13, 17},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, got, Stencil(image.Pt(10, 20), 3), "the stencil must be reproducible")
}

func TestArgmax(t *testing.T) {
	assert.Equal(t, 0, argmax([]float64{1, 1, 1}))
	assert.Equal(t, 2, argmax([]float64{0, 1, 3, 3}))
	assert.Equal(t, 1, argmax([]float64{math.NaN(), 0, math.NaN()}))
	assert.Equal(t, 0, argmax([]float64{math.Inf(-1), math.Inf(-1)}))
}

func TestRefine_TiesKeepTheCenter(t *testing.T) {
	var steps []Step
	s := NewSearcher(&posExtractor{})
	s.Trace = func(st Step) { steps = append(steps, st) }

	p, err := s.Refine(uniformGray(100, 100, 0), image.Pt(50, 50), 25, constScorer(0.5))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(50, 50), p)

	require.Len(t, steps, 3)
	for i, st := range steps {
		assert.Equal(t, 0, st.Best)
		assert.Equal(t, i, st.Iteration)
	}
}

func TestRefine_TieGoesToFirstCandidate(t *testing.T) {
	var steps []Step
	s := NewSearcher(&posExtractor{})
	s.Trace = func(st Step) { steps = append(steps, st) }

	// Every candidate on the row y=75 scores the same.
	row := ScorerFunc(func(d Descriptor) float64 {
		if d[1] == 75 {
			return 1
		}
		return 0
	})
	p, err := s.Refine(uniformGray(100, 100, 0), image.Pt(50, 50), 25, row)
	require.NoError(t, err)

	require.NotEmpty(t, steps)
	assert.Equal(t, 1, steps[0].Best)
	assert.Equal(t, image.Pt(50, 75), p)
}

func TestRefine_ConvergesToUniqueMaximum(t *testing.T) {
	img := uniformGray(200, 200, 0)
	start := image.Pt(100, 100)

	targets := []image.Point{
		{100, 100},
		{130, 85},
		{145, 55},
		{55, 145},
		{110, 120},
		{95, 105},
	}
	for _, target := range targets {
		p, err := NewSearcher(&posExtractor{}).Refine(img, start, DefaultRadius, l1Scorer(target))
		require.NoError(t, err)
		assert.Equal(t, target, p)
	}

	// Any start within the radius of the target, on the five pixel
	// lattice the 25, 15, 5 radii can cover, ends on the target.
	for _, target := range targets {
		for dy := -DefaultRadius; dy <= DefaultRadius; dy += 5 {
			for dx := -DefaultRadius; dx <= DefaultRadius; dx += 5 {
				from := target.Add(image.Pt(dx, dy))
				p, err := NewSearcher(&posExtractor{}).Refine(img, from, DefaultRadius, l1Scorer(target))
				require.NoError(t, err)
				assert.Equal(t, target, p, "start %v", from)
			}
		}
	}
}

func TestRefine_ClipsCandidatesAtTheEdges(t *testing.T) {
	img := uniformGray(100, 80, 0)
	ext := &posExtractor{bounds: img.Bounds()}

	var steps []Step
	s := NewSearcher(ext)
	s.Trace = func(st Step) { steps = append(steps, st) }

	for _, start := range []image.Point{{0, 0}, {99, 79}, {0, 79}, {2, 40}} {
		steps = steps[:0]
		p, err := s.Refine(img, start, DefaultRadius, l1Scorer(image.Pt(-50, -50)))
		require.NoError(t, err)
		assert.True(t, p.In(img.Bounds()), "%v escaped the image", p)

		for _, st := range steps {
			assert.False(t, st.Degenerate)
			for _, c := range st.Candidates {
				assert.True(t, c.In(img.Bounds()), "candidate %v escaped the image", c)
			}
		}
	}
	assert.Zero(t, ext.outside.Load())
	// Clipped candidates are scored like any other candidate.
	assert.Equal(t, ext.calls.Load()*StencilSize, ext.samples.Load())
}

func TestRefine_DegenerateImage(t *testing.T) {
	ext := &posExtractor{}
	var steps []Step
	s := NewSearcher(ext)
	s.Trace = func(st Step) { steps = append(steps, st) }

	img := uniformGray(1, 1, 0)
	p, err := s.Refine(img, image.Pt(0, 0), DefaultRadius, constScorer(1))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(0, 0), p)

	require.Len(t, steps, 3)
	for _, st := range steps {
		assert.True(t, st.Degenerate)
	}
	assert.Zero(t, ext.calls.Load())

	// A start outside the single pixel is left where it was.
	p, err = s.Refine(img, image.Pt(5, 7), DefaultRadius, constScorer(1))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(5, 7), p)
}

func TestRefine_UniformImageEndToEnd(t *testing.T) {
	img := uniformGray(100, 100, 128)
	start := image.Pt(50, 50)

	// Only (47,53) scores: it is never a candidate, so every iteration ties.
	p, err := NewSearcher(&posExtractor{}).Refine(img, start, DefaultRadius, deltaScorer(image.Pt(47, 53)))
	require.NoError(t, err)
	assert.Equal(t, start, p)

	// Scoring by distance lands on the nearest reachable position.
	p, err = NewSearcher(&posExtractor{}).Refine(img, start, DefaultRadius, l1Scorer(image.Pt(47, 53)))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(45, 55), p)

	// A reachable single scoring position is found exactly.
	p, err = NewSearcher(&posExtractor{}).Refine(img, start, DefaultRadius, deltaScorer(image.Pt(45, 55)))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(45, 55), p)

	// With real descriptors a uniform image gives every candidate the same score.
	clf := &Classifier{Weights: make([]float64, 128), Bias: 0.25}
	clf.Weights[3] = 1
	p, err = NewSearcher(NewGradientExtractor()).Refine(img, start, DefaultRadius, clf)
	require.NoError(t, err)
	assert.Equal(t, start, p)
}

type failingExtractor struct{ err error }

func (e failingExtractor) Extract(*image.Gray, []Sample) ([]Descriptor, error) { return nil, e.err }

type shortExtractor struct{}

func (shortExtractor) Extract(*image.Gray, []Sample) ([]Descriptor, error) {
	return []Descriptor{{0}}, nil
}

func TestRefine_Errors(t *testing.T) {
	img := uniformGray(50, 50, 0)
	start := image.Pt(25, 25)

	boom := errors.New("boom")
	_, err := NewSearcher(failingExtractor{boom}).Refine(img, start, 25, constScorer(0))
	assert.ErrorIs(t, err, boom)

	_, err = NewSearcher(shortExtractor{}).Refine(img, start, 25, constScorer(0))
	assert.Error(t, err)

	_, err = NewSearcher(&posExtractor{}).Refine(img, start, 25, nil)
	assert.Error(t, err)

	s := NewSearcher(&posExtractor{})
	s.Schedule.LargeStep = 0
	_, err = s.Refine(img, start, 25, constScorer(0))
	assert.Error(t, err)
}

func TestRefine_NonPositiveRadius(t *testing.T) {
	ext := &posExtractor{}
	p, err := NewSearcher(ext).Refine(uniformGray(10, 10, 0), image.Pt(3, 4), 0, constScorer(0))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(3, 4), p)
	assert.Zero(t, ext.calls.Load())
}
