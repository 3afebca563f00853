package facemark

import (
	"context"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/esimov/facemark/utils"
)

// Frame is one decoded image of the capture session.
type Frame struct {
	Index int
	Name  string
	Image image.Image
}

// FrameSource supplies the frames of a session, one per call.
// Next returns an error matching ErrFrameUnavailable when a single frame
// cannot be used; the following call moves on to the next frame.
// io.EOF ends the session.
type FrameSource interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// DirSource reads the image files of a directory tree in lexical path order.
type DirSource struct {
	paths []string
	next  int
}

// NewDirSource collects the supported image files below dir.
func NewDirSource(dir string) (*DirSource, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !IsSupportedExt(filepath.Ext(d.Name())) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read the frame directory: %w", err)
	}
	sort.Strings(paths)

	return &DirSource{paths: paths}, nil
}

// Len returns the number of frames the source will produce.
func (s *DirSource) Len() int { return len(s.paths) }

// Next implements the FrameSource interface.
func (s *DirSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.paths) {
		return nil, io.EOF
	}
	idx, path := s.next, s.paths[s.next]
	s.next++

	ctype, err := utils.DetectContentType(path)
	if err != nil {
		return nil, frameError("%s: %v", path, err)
	}
	if !strings.Contains(ctype, "image") {
		return nil, frameError("%s is not an image file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, frameError("%s: %v", path, err)
	}
	defer f.Close()

	img, err := decodeFrame(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Frame{Index: idx, Name: path, Image: img}, nil
}

// Close implements the FrameSource interface.
func (s *DirSource) Close() error { return nil }

// ReaderSource yields the single image read from r, e.g. a file or stdin pipe.
type ReaderSource struct {
	r    io.Reader
	name string
	done bool
}

// NewReaderSource returns a one frame source.
func NewReaderSource(r io.Reader, name string) *ReaderSource {
	return &ReaderSource{r: r, name: name}
}

// Next implements the FrameSource interface.
func (s *ReaderSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done {
		return nil, io.EOF
	}
	s.done = true

	img, err := decodeFrame(s.r)
	if err != nil {
		return nil, err
	}
	return &Frame{Name: s.name, Image: img}, nil
}

// Close closes the underlying reader when it is closable.
func (s *ReaderSource) Close() error {
	if c, ok := s.r.(io.Closer); ok && c != os.Stdin {
		return c.Close()
	}
	return nil
}
