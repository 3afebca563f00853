package facemark

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceItem struct {
	frame *Frame
	err   error
}

// sliceSource replays a fixed list of frames and errors.
type sliceSource struct {
	items  []sourceItem
	next   int
	closed bool
}

func (s *sliceSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.items) {
		return nil, io.EOF
	}
	it := s.items[s.next]
	s.next++
	return it.frame, it.err
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

func testFrames() *sliceSource {
	return &sliceSource{items: []sourceItem{
		{frame: &Frame{Index: 0, Image: uniformGray(50, 50, 0)}},
		{err: frameError("broken file")},
		{frame: &Frame{Index: 2, Image: image.NewGray(image.Rectangle{})}},
		{frame: &Frame{Index: 3, Image: uniformGray(50, 50, 0)}},
	}}
}

func TestExecute(t *testing.T) {
	var buf bytes.Buffer
	var seen []int

	p := testProcessor(t)
	stats, err := p.Execute(context.Background(), testFrames(),
		NewTextWriter(&buf),
		ConsumerFunc(func(f *Frame, _ []image.Point) error {
			seen = append(seen, f.Index)
			return nil
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Frames)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, []int{0, 3}, seen)
	assert.Equal(t, "0 25 30 25 25\n3 25 30 25 25\n", buf.String())
}

func TestExecute_LogsSkippedFrames(t *testing.T) {
	var logs strings.Builder
	p := testProcessor(t)
	p.Logger = log.New(&logs, "", 0)

	_, err := p.Execute(context.Background(), testFrames())
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "broken file")
	assert.Contains(t, logs.String(), "zero extent")
}

func TestExecute_ConsumerError(t *testing.T) {
	boom := errors.New("disk full")
	p := testProcessor(t)

	stats, err := p.Execute(context.Background(), testFrames(), ConsumerFunc(func(*Frame, []image.Point) error {
		return boom
	}))
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, stats.Frames)
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testProcessor(t).Execute(ctx, testFrames())
	assert.ErrorIs(t, err, context.Canceled)
}

// onceFailingExtractor fails its first call only.
type onceFailingExtractor struct {
	posExtractor
	failed atomic.Bool
}

func (e *onceFailingExtractor) Extract(img *image.Gray, samples []Sample) ([]Descriptor, error) {
	if e.failed.CompareAndSwap(false, true) {
		return nil, errors.New("transient extractor failure")
	}
	return e.posExtractor.Extract(img, samples)
}

func TestExecute_SkipsFailedRefinement(t *testing.T) {
	var logs strings.Builder
	var seen []int

	p := testProcessor(t)
	p.Extractor = &onceFailingExtractor{}
	p.Logger = log.New(&logs, "", 0)

	src := &sliceSource{items: []sourceItem{
		{frame: &Frame{Index: 0, Image: uniformGray(50, 50, 0)}},
		{frame: &Frame{Index: 1, Image: uniformGray(50, 50, 0)}},
		{frame: &Frame{Index: 2, Image: uniformGray(50, 50, 0)}},
	}}
	stats, err := p.Execute(context.Background(), src, ConsumerFunc(func(f *Frame, points []image.Point) error {
		seen = append(seen, f.Index)
		assert.Equal(t, []image.Point{{25, 30}, {25, 25}}, points)
		return nil
	}))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Frames)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []int{1, 2}, seen)
	assert.Contains(t, logs.String(), "transient extractor failure")
}

func TestExecute_FatalSourceError(t *testing.T) {
	boom := errors.New("device unplugged")
	src := &sliceSource{items: []sourceItem{{err: boom}}}

	_, err := testProcessor(t).Execute(context.Background(), src)
	assert.ErrorIs(t, err, boom)
}

func TestPrefetchSource(t *testing.T) {
	inner := testFrames()
	src := NewPrefetchSource(inner, 2)

	var (
		indexes     []int
		unavailable int
	)
	for {
		f, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrFrameUnavailable) {
			unavailable++
			continue
		}
		require.NoError(t, err)
		indexes = append(indexes, f.Index)
	}
	assert.Equal(t, []int{0, 2, 3}, indexes)
	assert.Equal(t, 1, unavailable)

	require.NoError(t, src.Close())
	assert.True(t, inner.closed)
}

func TestPrefetchSource_EarlyClose(t *testing.T) {
	inner := testFrames()
	src := NewPrefetchSource(inner, 1)

	f, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f.Index)
	require.NoError(t, src.Close())
	assert.True(t, inner.closed)
}
