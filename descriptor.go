package facemark

import (
	"image"
	"math"

	"github.com/esimov/facemark/utils"
	"gonum.org/v1/gonum/floats"
)

// DefaultKeypointScale is the keypoint size every search sample is taken at.
const DefaultKeypointScale = 5.0

// Descriptor is a fixed-length summary of the local appearance around a point.
type Descriptor []float64

// Sample is a keypoint position paired with the scale its descriptor is computed at.
type Sample struct {
	X, Y  int
	Scale float64
}

// Extractor computes one descriptor per sample. The result has the same
// length and order as samples and the image is never modified.
// Callers are expected to clip the sample positions to the image extent.
type Extractor interface {
	Extract(img *image.Gray, samples []Sample) ([]Descriptor, error)
}

const (
	gridCells   = 4
	orientBins  = 8
	descClamp   = 0.2
	minCellSize = 2
)

// GradientExtractor builds histogram of oriented gradient descriptors laid
// out the way SIFT does: a 4x4 grid of cells around the keypoint, each cell
// holding an 8 bin orientation histogram, for 128 values in total.
// The keypoint orientation is fixed, so the descriptor is not rotation invariant.
type GradientExtractor struct {
	// Magnification is the cell width expressed in keypoint scales.
	Magnification float64
}

// NewGradientExtractor returns an extractor with the usual SIFT magnification.
func NewGradientExtractor() *GradientExtractor {
	return &GradientExtractor{Magnification: 3}
}

// Dim returns the descriptor dimension produced by the extractor.
func (e *GradientExtractor) Dim() int {
	return gridCells * gridCells * orientBins
}

// Extract implements the Extractor interface.
func (e *GradientExtractor) Extract(img *image.Gray, samples []Sample) ([]Descriptor, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	out := make([]Descriptor, len(samples))
	for i, s := range samples {
		out[i] = e.describe(img, s)
	}
	return out, nil
}

func (e *GradientExtractor) cellSize(scale float64) int {
	mag := e.Magnification
	if mag <= 0 {
		mag = 3
	}
	if scale <= 0 {
		scale = DefaultKeypointScale
	}
	return utils.Max(minCellSize, int(math.Round(mag*scale/2)))
}

func (e *GradientExtractor) describe(img *image.Gray, s Sample) Descriptor {
	var (
		cell  = e.cellSize(s.Scale)
		half  = cell * gridCells / 2
		sigma = float64(half)
		desc  = make(Descriptor, e.Dim())
	)

	for v := -half; v < half; v++ {
		for u := -half; u < half; u++ {
			mag, theta := gradient(img, s.X+u, s.Y+v)
			if mag == 0 {
				continue
			}
			weight := math.Exp(-float64(u*u+v*v) / (2 * sigma * sigma))

			cx := (u + half) / cell
			cy := (v + half) / cell
			bin := int(theta/(2*math.Pi)*orientBins) % orientBins

			desc[(cy*gridCells+cx)*orientBins+bin] += mag * weight
		}
	}
	normalize(desc)

	// Clamp the large gradients to reduce the influence of illumination
	// changes, then normalize again.
	for i, v := range desc {
		desc[i] = math.Min(v, descClamp)
	}
	normalize(desc)

	return desc
}

// normalize scales d to unit length. A zero vector is left untouched.
func normalize(d Descriptor) {
	if n := floats.Norm(d, 2); n > 0 {
		floats.Scale(1/n, d)
	}
}
