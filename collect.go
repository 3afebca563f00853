package facemark

import (
	"errors"
	"image"
	"io"
	"sync"
)

// Collector turns manually selected positions into exemplar rows.
// The clicked position is passed in explicitly by the caller, be it a
// command line flag or an interactive front end.
type Collector struct {
	Extractor Extractor
	Scale     float64

	mu   sync.Mutex
	rows []Descriptor
}

// NewCollector returns a collector describing positions at the default keypoint scale.
func NewCollector(e Extractor) *Collector {
	return &Collector{
		Extractor: e,
		Scale:     DefaultKeypointScale,
	}
}

// Collect describes img at click and keeps the resulting row.
// Clicks outside the image are moved to its nearest pixel.
func (c *Collector) Collect(img *image.Gray, click image.Point) (Descriptor, error) {
	if c.Extractor == nil {
		return nil, errors.New("collector needs an extractor")
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	p := clip(click, img.Bounds())

	descs, err := c.Extractor.Extract(img, []Sample{{X: p.X, Y: p.Y, Scale: c.Scale}})
	if err != nil {
		return nil, err
	}
	if len(descs) != 1 {
		return nil, errors.New("extractor did not return a single descriptor")
	}

	c.mu.Lock()
	c.rows = append(c.rows, descs[0])
	c.mu.Unlock()

	return descs[0], nil
}

// Rows returns the rows collected since the last flush.
func (c *Collector) Rows() []Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Descriptor(nil), c.rows...)
}

// Flush writes the collected rows to w and forgets them.
// The rows are kept when writing fails.
func (c *Collector) Flush(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := WriteExemplars(w, c.rows); err != nil {
		return err
	}
	c.rows = nil
	return nil
}

// FlushFile appends the collected rows to the exemplar file at path.
func (c *Collector) FlushFile(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := AppendExemplars(path, c.rows); err != nil {
		return err
	}
	c.rows = nil
	return nil
}
