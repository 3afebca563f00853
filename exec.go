package facemark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/esimov/facemark/utils"
)

// Stats summarizes a processing session.
type Stats struct {
	Frames  int // frames refined and handed to the consumers
	Skipped int // frames that were unavailable or had no face
	Elapsed time.Duration
}

// Execute runs the landmark refinement over every frame of src in order,
// since each frame starts from the estimates of the previous one.
// Frames that fail to be acquired or refined are logged and skipped;
// when the face is lost the estimates fall back to the initial guesses.
// The session ends at io.EOF, on cancellation, on a source failure other
// than an unavailable frame or on the first consumer error.
func (p *Processor) Execute(ctx context.Context, src FrameSource, consumers ...Consumer) (Stats, error) {
	var stats Stats

	if p.tracker == nil {
		if err := p.Init(); err != nil {
			return stats, err
		}
	}
	now := time.Now()
	done := func(err error) (Stats, error) {
		stats.Elapsed = time.Since(now)
		return stats, err
	}

	for {
		frame, err := src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return done(nil)
			case errors.Is(err, ErrFrameUnavailable):
				stats.Skipped++
				p.logf(utils.ErrorMessage, "skipping frame: %v", err)
				continue
			default:
				return done(err)
			}
		}
		p.updateSpinner(frame)

		res, err := p.ProcessFrame(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return done(ctx.Err())
			}
			// A failed frame keeps the previous estimates, a lost face resets them.
			if errors.Is(err, ErrNoFace) {
				p.Reset()
			}
			stats.Skipped++
			p.logf(utils.ErrorMessage, "skipping frame %d: %v", frame.Index, err)
			continue
		}

		for _, c := range consumers {
			if err := c.Consume(frame, res.Points); err != nil {
				return done(fmt.Errorf("frame %d: %w", frame.Index, err))
			}
		}
		stats.Frames++
	}
}

func (p *Processor) updateSpinner(frame *Frame) {
	if p.Spinner == nil {
		return
	}
	p.Spinner.SetMessage(fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ FACEMARK", utils.StatusMessage),
		utils.Decoratef(utils.DefaultMessage, "⇢ refining landmarks of frame %d...", frame.Index),
	))
}

// PrefetchSource decodes the frames of another source ahead of time in a
// separate goroutine, keeping their order.
type PrefetchSource struct {
	items  chan prefetched
	cancel context.CancelFunc
	src    FrameSource
}

type prefetched struct {
	frame *Frame
	err   error
}

// NewPrefetchSource starts reading src, keeping at most depth decoded frames in memory.
func NewPrefetchSource(src FrameSource, depth int) *PrefetchSource {
	if depth <= 0 {
		depth = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	ps := &PrefetchSource{
		items:  make(chan prefetched, depth),
		cancel: cancel,
		src:    src,
	}

	go func() {
		defer close(ps.items)
		for {
			frame, err := src.Next(ctx)
			select {
			case <-ctx.Done():
				return
			case ps.items <- prefetched{frame: frame, err: err}:
			}
			if err != nil && !errors.Is(err, ErrFrameUnavailable) {
				return
			}
		}
	}()
	return ps
}

// Next implements the FrameSource interface.
func (ps *PrefetchSource) Next(ctx context.Context) (*Frame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case it, ok := <-ps.items:
		if !ok {
			return nil, io.EOF
		}
		return it.frame, it.err
	}
}

// Close stops the read ahead and closes the wrapped source.
func (ps *PrefetchSource) Close() error {
	ps.cancel()
	// Wait for the reader to stop before closing the source it reads from.
	for range ps.items {
	}
	return ps.src.Close()
}
