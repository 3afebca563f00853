package facemark

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// TracePlot records the best score of every search iteration per landmark
// and renders the series as a convergence chart.
// Observe is safe to call from the concurrent landmark searches.
type TracePlot struct {
	mu     sync.Mutex
	names  []string
	steps  int
	frame  int
	series []plotter.XYs
}

// NewTracePlot creates a plot for the given landmarks, where every frame
// runs stepsPerFrame search iterations.
func NewTracePlot(names []string, stepsPerFrame int) *TracePlot {
	if stepsPerFrame <= 0 {
		stepsPerFrame = 1
	}
	return &TracePlot{
		names:  append([]string(nil), names...),
		steps:  stepsPerFrame,
		series: make([]plotter.XYs, len(names)),
	}
}

// Observe records one search iteration of a landmark of the current frame.
// Degenerate iterations and non finite scores are not plotted.
func (tp *TracePlot) Observe(landmark int, st Step) {
	score := st.Scores[st.Best]
	if st.Degenerate || math.IsInf(score, 0) || math.IsNaN(score) {
		return
	}

	tp.mu.Lock()
	defer tp.mu.Unlock()

	if landmark < 0 || landmark >= len(tp.series) {
		return
	}
	x := float64(tp.frame) + float64(st.Iteration)/float64(tp.steps)
	tp.series[landmark] = append(tp.series[landmark], plotter.XY{X: x, Y: score})
}

// Consume implements the Consumer interface. It closes the current frame,
// so the following observations are placed on the next frame.
func (tp *TracePlot) Consume(frame *Frame, _ []image.Point) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	tp.frame++
	return nil
}

// Len returns the number of recorded points of a landmark.
func (tp *TracePlot) Len(landmark int) int {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if landmark < 0 || landmark >= len(tp.series) {
		return 0
	}
	return len(tp.series[landmark])
}

// Save renders the chart as an image; the format follows the file extension.
func (tp *TracePlot) Save(path string) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	p := plot.New()
	p.Title.Text = "Landmark search convergence"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Best score"

	colors := generateColors(len(tp.names))

	var lines int
	for i, name := range tp.names {
		pts := tp.series[i]
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("landmark %q: %w", name, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(name, line)
		lines++
	}
	if lines == 0 {
		return errors.New("no search steps were recorded")
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save trace plot: %w", err)
	}
	return nil
}

// generateColors creates a palette of n distinct colors spread over the hue circle.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range).
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	conv := func(t float64) uint8 {
		return uint8(math.Round(hueToRGB(p, q, t) * 255))
	}
	return conv(h + 1.0/3), conv(h), conv(h - 1.0/3)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
