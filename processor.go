package facemark

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"runtime"
	"time"

	"github.com/esimov/facemark/utils"
)

// Processor options
type Processor struct {
	Layout    *Layout
	Bank      *Bank
	Finder    *FaceFinder
	Extractor Extractor
	Spinner   *utils.Spinner
	Trace     *TracePlot
	// Logger receives the per frame diagnostics; nil keeps the processor silent.
	Logger      *log.Logger
	MarkerColor string
	MarkerShape MarkerShape
	MarkerSize  int
	Workers     int
	FaceDetect  bool
	Debug       bool

	tracker *Tracker
}

// Result holds the outcome of refining the landmarks of one frame.
type Result struct {
	Frame *Frame
	// Face is the frame region the landmarks were searched in.
	Face image.Rectangle
	// Local holds the positions in the normalized face space.
	Local []image.Point
	// Points holds the positions in frame coordinates.
	Points  []image.Point
	Elapsed time.Duration
}

// Init validates the options and builds the landmark tracker.
// It is called implicitly by the first processed frame.
func (p *Processor) Init() error {
	if p.Layout == nil {
		p.Layout = DefaultLayout()
	}
	if err := p.Layout.Validate(); err != nil {
		return err
	}
	if p.Bank == nil {
		return errors.New("processor needs a classifier bank")
	}
	if p.Bank.Len() != len(p.Layout.Landmarks) {
		return fmt.Errorf("the bank holds %d landmarks, the layout %d", p.Bank.Len(), len(p.Layout.Landmarks))
	}
	for i, name := range p.Bank.Names() {
		if name != p.Layout.Landmarks[i].Name {
			return fmt.Errorf("landmark %d is %q in the bank and %q in the layout", i, name, p.Layout.Landmarks[i].Name)
		}
	}
	if p.FaceDetect && p.Finder == nil {
		return errors.New("face detection requires a cascade classifier")
	}
	if p.Extractor == nil {
		p.Extractor = NewGradientExtractor()
	}
	if d, ok := p.Extractor.(interface{ Dim() int }); ok {
		if err := p.Bank.CheckDim(d.Dim()); err != nil {
			return err
		}
	}
	if p.Workers <= 0 {
		p.Workers = runtime.NumCPU()
	}

	searcher := &Searcher{
		Extractor: p.Extractor,
		Scale:     p.Layout.KeypointScale,
		Schedule:  p.Layout.Schedule,
	}
	tracker, err := NewTracker(p.Bank, searcher, p.Layout.InitialGuesses(),
		WithRadius(p.Layout.Radius),
		WithWorkers(p.Workers),
	)
	if err != nil {
		return err
	}
	if p.Trace != nil || p.Debug {
		tracker.OnStep = p.observe
	}
	p.tracker = tracker

	return nil
}

// observe forwards a search iteration to the trace plot and the debug log.
func (p *Processor) observe(landmark int, st Step) {
	if p.Trace != nil {
		p.Trace.Observe(landmark, st)
	}
	if p.Debug {
		name := p.Layout.Landmarks[landmark].Name
		if st.Degenerate {
			p.logf(utils.DefaultMessage, "\t%s r=%d degenerate, position kept", name, st.Radius)
			return
		}
		best := st.Candidates[st.Best]
		p.logf(utils.DefaultMessage, "\t%s r=%d -> (%d,%d) score %.4f", name, st.Radius, best.X, best.Y, st.Scores[st.Best])
	}
}

// Reset makes the next frame start again from the layout's initial guesses.
func (p *Processor) Reset() {
	if p.tracker != nil {
		p.tracker.Reset()
	}
}

// ProcessFrame locates the face of the frame, refines every landmark inside it
// and maps the refined positions back to frame coordinates.
// A frame without a face returns an error matching ErrNoFace.
func (p *Processor) ProcessFrame(ctx context.Context, frame *Frame) (*Result, error) {
	if p.tracker == nil {
		if err := p.Init(); err != nil {
			return nil, err
		}
	}
	if frame == nil || frame.Image == nil || frame.Image.Bounds().Empty() {
		return nil, frameError("the frame has zero extent")
	}
	now := time.Now()

	gray := PrepareFrame(frame.Image, p.Layout.Smooth)

	rect := gray.Bounds()
	if p.FaceDetect {
		var ok bool
		if rect, ok = p.Finder.Detect(gray); !ok {
			return nil, fmt.Errorf("%s: %w", frame.Name, ErrNoFace)
		}
	}

	var (
		face   = gray
		region = FaceRegion{Rect: rect, Size: p.Layout.FaceSize}
	)
	if rect != gray.Bounds() || rect.Dx() != p.Layout.FaceSize || rect.Dy() != p.Layout.FaceSize {
		face, region = NormalizeFace(gray, rect, p.Layout.FaceSize)
	}

	local, err := p.tracker.Refine(ctx, face)
	if err != nil {
		return nil, err
	}

	origin := frame.Image.Bounds().Min
	points := make([]image.Point, len(local))
	for i, lp := range local {
		points[i] = region.ToFrame(lp).Add(origin)
	}

	res := &Result{
		Frame:   frame,
		Face:    rect.Add(origin),
		Local:   local,
		Points:  points,
		Elapsed: time.Since(now),
	}
	if p.Debug {
		p.logf(utils.StatusMessage, "frame %d refined in %s", frame.Index, utils.FormatTime(res.Elapsed))
	}
	return res, nil
}

// Process refines the landmarks of the single image read from r and encodes
// the image with the landmarks drawn on top into w.
// We are using the io package, since we can provide different input and output types,
// as long as they implement the io.Reader and io.Writer interface.
func (p *Processor) Process(r io.Reader, w io.Writer) error {
	img, err := decodeFrame(r)
	if err != nil {
		return err
	}
	res, err := p.ProcessFrame(context.Background(), &Frame{Image: img})
	if err != nil {
		return err
	}
	return EncodeImage(w, p.Overlay(res))
}

// Overlay draws the refined landmarks of res over its frame.
func (p *Processor) Overlay(res *Result) *image.NRGBA {
	col := p.MarkerColor
	if col == "" {
		col = DefaultMarkerColor
	}
	return DrawLandmarks(res.Frame.Image, res.Points, p.MarkerShape, utils.HexToRGBA(col), p.MarkerSize)
}

// Names returns the landmark names in result order.
func (p *Processor) Names() []string {
	if p.Layout == nil {
		return nil
	}
	return p.Layout.Names()
}

func (p *Processor) logf(msgType utils.MessageType, format string, args ...any) {
	if p.Logger == nil {
		return
	}
	p.Logger.Print(utils.Decoratef(msgType, format, args...))
}
