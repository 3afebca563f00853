package facemark

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/esimov/facemark/utils"
)

// MarkerShape selects how a landmark is drawn.
type MarkerShape string

const (
	Circle MarkerShape = "circle"
	Cross  MarkerShape = "cross"
)

// DefaultMarkerColor is the marker color used when none is set.
const DefaultMarkerColor = "#ff0000"

// Consumer receives the refined landmark positions of every processed frame,
// expressed in the frame's coordinates and in landmark order.
type Consumer interface {
	Consume(frame *Frame, points []image.Point) error
}

// ConsumerFunc adapts an ordinary function to the Consumer interface.
type ConsumerFunc func(frame *Frame, points []image.Point) error

// Consume calls f(frame, points).
func (f ConsumerFunc) Consume(frame *Frame, points []image.Point) error { return f(frame, points) }

// DrawLandmarks returns a copy of img with a marker drawn at every point.
func DrawLandmarks(img image.Image, points []image.Point, shape MarkerShape, col color.Color, size int) *image.NRGBA {
	dst := imaging.Clone(img)
	if size <= 0 {
		size = 2
	}
	origin := img.Bounds().Min
	fill := image.NewUniform(col)

	for _, p := range points {
		p = p.Sub(origin)
		switch shape {
		case Cross:
			drawCross(dst, p, fill, size)
		default:
			drawCircle(dst, p, fill, size)
		}
	}
	return dst
}

// drawCircle fills a disc of the given radius centered at p.
func drawCircle(dst draw.Image, p image.Point, src image.Image, radius int) {
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			q := image.Pt(p.X+dx, p.Y+dy)
			if q.In(dst.Bounds()) {
				dst.Set(q.X, q.Y, src.At(0, 0))
			}
		}
	}
}

// drawCross draws a one pixel wide plus sign centered at p.
func drawCross(dst draw.Image, p image.Point, src image.Image, size int) {
	horiz := image.Rect(p.X-size, p.Y, p.X+size+1, p.Y+1)
	vert := image.Rect(p.X, p.Y-size, p.X+1, p.Y+size+1)

	draw.Draw(dst, horiz.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
	draw.Draw(dst, vert.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
}

// OverlayWriter saves every frame with its landmarks drawn on top
// into a destination directory.
type OverlayWriter struct {
	Dir   string
	Ext   string // output type: .jpg, .png or .bmp; defaults to the frame's own type
	Color string // hex color
	Shape MarkerShape
	Size  int
}

// NewOverlayWriter returns an overlay writer saving into dir.
func NewOverlayWriter(dir string) *OverlayWriter {
	return &OverlayWriter{
		Dir:   dir,
		Color: DefaultMarkerColor,
		Shape: Circle,
		Size:  3,
	}
}

// Consume implements the Consumer interface.
func (o *OverlayWriter) Consume(frame *Frame, points []image.Point) error {
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("unable to create the destination directory: %w", err)
	}
	out := DrawLandmarks(frame.Image, points, o.Shape, utils.HexToRGBA(o.Color), o.Size)

	path := filepath.Join(o.Dir, o.fileName(frame))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create the destination file: %w", err)
	}
	if err := encodeByExt(f, filepath.Ext(path), out); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// fileName derives the output name from the source frame name,
// falling back to the frame index for unnamed frames.
func (o *OverlayWriter) fileName(frame *Frame) string {
	base := filepath.Base(frame.Name)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if frame.Name == "" || stem == "" || stem == "-" {
		stem = fmt.Sprintf("frame_%05d", frame.Index)
	}

	switch {
	case o.Ext != "":
		ext = o.Ext
	case ext == ".gif" || !IsSupportedExt(ext):
		ext = ".png"
	}
	return stem + ext
}

// TextWriter writes one line per frame: the frame index followed by the
// x and y coordinate of every landmark, separated by spaces.
type TextWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextWriter returns a text consumer writing to w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// Consume implements the Consumer interface.
func (t *TextWriter) Consume(frame *Frame, points []image.Point) error {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(frame.Index))
	for _, p := range points {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(p.X))
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(p.Y))
	}
	sb.WriteByte('\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.w, sb.String())
	return err
}
