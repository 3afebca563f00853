package facemark

import (
	"image"
	"image/color"
	"math"
	"sync/atomic"

	"github.com/esimov/facemark/utils"
)

// posExtractor describes a sample by its own position, so scorers can
// reason in pixel coordinates.
type posExtractor struct {
	calls   atomic.Int64
	samples atomic.Int64
	// bounds, when set, records every sample falling outside of it.
	bounds  image.Rectangle
	outside atomic.Int64
}

func (e *posExtractor) Extract(img *image.Gray, samples []Sample) ([]Descriptor, error) {
	e.calls.Add(1)
	e.samples.Add(int64(len(samples)))

	out := make([]Descriptor, len(samples))
	for i, s := range samples {
		if !e.bounds.Empty() && !image.Pt(s.X, s.Y).In(e.bounds) {
			e.outside.Add(1)
		}
		out[i] = Descriptor{float64(s.X), float64(s.Y)}
	}
	return out, nil
}

// l1Scorer prefers the positions closest to target in L1 distance.
func l1Scorer(target image.Point) Scorer {
	return ScorerFunc(func(d Descriptor) float64 {
		return -(math.Abs(d[0]-float64(target.X)) + math.Abs(d[1]-float64(target.Y)))
	})
}

// deltaScorer only scores target, every other position gets zero.
func deltaScorer(target image.Point) Scorer {
	return ScorerFunc(func(d Descriptor) float64 {
		if int(d[0]) == target.X && int(d[1]) == target.Y {
			return 1
		}
		return 0
	})
}

func constScorer(v float64) Scorer {
	return ScorerFunc(func(Descriptor) float64 { return v })
}

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// texturedGray returns a deterministic pattern with gradients everywhere.
func texturedGray(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 128 + 60*math.Sin(float64(x)/3) + 60*math.Cos(float64(y)/5)
			img.SetGray(x, y, color.Gray{Y: uint8(utils.Clamp(v, 0, 255))})
		}
	}
	return img
}
