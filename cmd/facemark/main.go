package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/esimov/facemark"
	"github.com/esimov/facemark/utils"
	"golang.org/x/term"
)

const HelpBanner = `
┌─┐┌─┐┌─┐┌─┐┌┬┐┌─┐┬─┐┬┌─
├┤ ├─┤│  ├┤ │││├─┤├┬┘├┴┐
└  ┴ ┴└─┘└─┘┴ ┴┴ ┴┴└─┴ ┴

Facial landmark tracking over image sequences.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// maxWorkers sets the maximum number of concurrently refined landmarks.
const maxWorkers = 20

// Version indicates the current build version.
var Version string

var (
	// Flags
	source      = flag.String("in", pipeName, "Source image, image directory or URL")
	destination = flag.String("out", "", "Destination image or directory")
	layoutFile  = flag.String("layout", "", "Landmark layout (YAML)")
	cascade     = flag.String("cc", "", "Cascade classifier")
	modelFile   = flag.String("model", "", "Trained classifier bank (YAML)")
	train       = flag.Bool("train", false, "Train the classifier bank and save it to -model")
	workers     = flag.Int("conc", runtime.NumCPU(), "Number of landmarks to refine concurrently")
	radius      = flag.Int("radius", 0, "Initial search radius (overrides the layout)")
	faceDetect  = flag.Bool("face", false, "Use face detection")
	faceSize    = flag.Int("size", 0, "Normalized face size (overrides the layout)")
	faceAngle   = flag.Float64("angle", 0.0, "Plane rotated faces angle")
	debug       = flag.Bool("debug", false, "Log every search step and the per frame timing")
	plotFile    = flag.String("plot", "", "Save the search convergence chart to this file")
	textFile    = flag.String("text", "", "Write the landmark coordinates to this file ('-' for stdout)")
	collect     = flag.Bool("collect", false, "Collect an exemplar instead of tracking")
	landmark    = flag.String("landmark", "", "Landmark the collected exemplar belongs to")
	click       = flag.String("click", "", "Collected position as x,y in face coordinates")
	label       = flag.String("label", "pos", "Collected exemplar label: pos or neg")
	camera      = flag.Int("camera", -1, "Capture device id (requires the gocv build tag)")
	markerColor = flag.String("color", facemark.DefaultMarkerColor, "Landmark marker color")
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, fmt.Sprintf(HelpBanner, Version))
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout, err := loadLayout()
	if err != nil {
		fatal("Unable to load the landmark layout: ", err)
	}

	var finder *facemark.FaceFinder
	if *faceDetect {
		if len(*cascade) == 0 {
			log.Fatal(utils.DecorateText("Please specify a face classifier in case you are using the -face flag!", utils.ErrorMessage))
		}
		if finder, err = facemark.LoadFaceFinder(*cascade); err != nil {
			fatal("Unable to load the face classifier: ", err)
		}
		finder.Angle = *faceAngle
	}

	if *collect {
		if err := collectExemplar(layout, finder); err != nil {
			fatal("Exemplar collection failed: ", err)
		}
		return
	}

	bank, err := loadBank(layout)
	if err != nil {
		fatal("Unable to build the classifier bank: ", err)
	}
	// A training run without any input or output stops here.
	if *train && *destination == "" && *camera < 0 && *source == pipeName {
		return
	}

	// Limit the concurrently running workers to maxWorkers.
	if *workers <= 0 || *workers > maxWorkers {
		*workers = runtime.NumCPU()
	}

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ FACEMARK", utils.StatusMessage),
		utils.DecorateText("is refining the landmarks...", utils.DefaultMessage))
	spinner := utils.NewSpinner(spinnerText, time.Millisecond*200, true)

	proc := &facemark.Processor{
		Layout:      layout,
		Bank:        bank,
		Finder:      finder,
		FaceDetect:  *faceDetect,
		Workers:     *workers,
		Debug:       *debug,
		MarkerColor: *markerColor,
		MarkerShape: facemark.Circle,
		MarkerSize:  3,
	}
	if *debug {
		proc.Logger = log.New(os.Stderr, "", 0)
	} else {
		proc.Spinner = spinner
	}
	if *plotFile != "" {
		proc.Trace = facemark.NewTracePlot(layout.Names(), len(layout.Schedule.Radii(layout.Radius)))
	}

	src, multi, err := openSource()
	if err != nil {
		fatal("Failed to load the source image: ", err)
	}
	defer src.Close()

	consumers, closers, err := openConsumers(proc, multi)
	if err != nil {
		fatal("Unable to open the destination: ", err)
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	now := time.Now()
	if !*debug {
		spinner.Start()
	}
	stats, err := proc.Execute(ctx, src, consumers...)
	if !*debug {
		spinner.StopMsg = fmt.Sprintf("%s %s\n",
			utils.DecorateText("⚡ FACEMARK", utils.StatusMessage),
			utils.DecorateText("is refining the landmarks... ✔", utils.DefaultMessage))
		if err != nil {
			spinner.StopMsg = ""
		}
		spinner.Stop()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Fatal(utils.DecorateText("\nInterrupted, the frame in progress was discarded.", utils.ErrorMessage))
		}
		fatal("Error refining the landmarks: ", err)
	}

	if proc.Trace != nil {
		if err := proc.Trace.Save(*plotFile); err != nil {
			fatal("Unable to save the convergence chart: ", err)
		}
	}
	printStatus(stats, time.Since(now))
}

// loadLayout reads the layout file, if any, and applies the flag overrides.
func loadLayout() (*facemark.Layout, error) {
	layout := facemark.DefaultLayout()
	if *layoutFile != "" {
		var err error
		if layout, err = facemark.LoadLayout(*layoutFile); err != nil {
			return nil, err
		}
	}
	if *radius > 0 {
		layout.Radius = *radius
	}
	if *faceSize > 0 {
		layout.FaceSize = *faceSize
	}
	return layout, layout.Validate()
}

// loadBank reads the saved bank, or trains it from the layout's exemplars
// when no model is available or training is requested.
func loadBank(layout *facemark.Layout) (*facemark.Bank, error) {
	dim := facemark.NewGradientExtractor().Dim()
	if *modelFile != "" && !*train {
		if _, err := os.Stat(*modelFile); err == nil {
			bank, err := facemark.LoadBank(*modelFile)
			if err != nil {
				return nil, err
			}
			return bank, bank.CheckDim(dim)
		}
	}

	sets, err := layout.LoadExemplars()
	if err != nil {
		return nil, err
	}
	for _, ns := range sets {
		if d, err := ns.Set.Dim(); err == nil && d != dim {
			return nil, &facemark.TrainingError{Landmark: ns.Name,
				Err: fmt.Errorf("exemplars have %d values, the extractor yields %d: %w", d, dim, facemark.ErrDimensionMismatch)}
		}
	}
	now := time.Now()
	bank, err := facemark.TrainBank(sets, facemark.TrainOptions{}, *workers)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "%s %s\n",
		utils.Decoratef(utils.DefaultMessage, "%d landmark classifiers trained in", bank.Len()),
		utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage),
	)

	if *modelFile != "" {
		if err := facemark.SaveBank(bank, *modelFile); err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "The classifier bank has been saved as: %s\n",
			utils.DecorateText(filepath.Base(*modelFile), utils.SuccessMessage))
	}
	return bank, nil
}

// openSource returns the frame source selected by the flags and reports
// whether it may produce more than one frame.
func openSource() (facemark.FrameSource, bool, error) {
	if *camera >= 0 {
		src, err := facemark.NewCameraSource(*camera)
		return src, true, err
	}

	// Check if source path is a local image or URL.
	if utils.IsValidUrl(*source) {
		f, err := utils.DownloadImage(*source)
		if err != nil {
			if f != nil {
				os.Remove(f.Name())
			}
			return nil, false, err
		}
		return &tempSource{ReaderSource: facemark.NewReaderSource(f, *source), file: f}, false, nil
	}

	// Check if the source is a pipe name or a regular file.
	if *source == pipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, false, errors.New("`-` should be used with a pipe for stdin")
		}
		return facemark.NewReaderSource(os.Stdin, pipeName), false, nil
	}

	fs, err := os.Stat(*source)
	if err != nil {
		return nil, false, err
	}
	if fs.IsDir() {
		dir, err := facemark.NewDirSource(*source)
		if err != nil {
			return nil, false, err
		}
		return facemark.NewPrefetchSource(dir, *workers), true, nil
	}

	f, err := os.Open(*source)
	if err != nil {
		return nil, false, fmt.Errorf("unable to open the source file: %w", err)
	}
	return facemark.NewReaderSource(f, *source), false, nil
}

// tempSource removes the downloaded image once the session is over.
type tempSource struct {
	*facemark.ReaderSource
	file *os.File
}

func (s *tempSource) Close() error {
	defer os.Remove(s.file.Name())
	return s.ReaderSource.Close()
}

// openConsumers builds the result consumers selected by the flags.
func openConsumers(proc *facemark.Processor, multi bool) ([]facemark.Consumer, []io.Closer, error) {
	var (
		consumers []facemark.Consumer
		closers   []io.Closer
	)

	switch {
	case *destination == "":
	case multi:
		ow := facemark.NewOverlayWriter(*destination)
		ow.Color = *markerColor
		consumers = append(consumers, ow)
	default:
		w, err := openOutput(*destination)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, w)
		consumers = append(consumers, overlayTo(w, proc.MarkerColor))
	}

	if *textFile != "" {
		if *textFile == pipeName {
			if *destination == pipeName {
				return nil, nil, errors.New("stdout cannot receive both the image and the coordinates")
			}
			consumers = append(consumers, facemark.NewTextWriter(os.Stdout))
		} else {
			f, err := os.Create(*textFile)
			if err != nil {
				return nil, nil, fmt.Errorf("unable to create the coordinates file: %w", err)
			}
			closers = append(closers, f)
			consumers = append(consumers, facemark.NewTextWriter(f))
		}
	}

	if proc.Trace != nil {
		consumers = append(consumers, proc.Trace)
	}
	return consumers, closers, nil
}

// openOutput opens the single image destination, be it a file or stdout.
func openOutput(out string) (*os.File, error) {
	if out == pipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdout")
		}
		return os.Stdout, nil
	}
	if !facemark.IsSupportedExt(filepath.Ext(out)) || strings.EqualFold(filepath.Ext(out), ".gif") {
		return nil, fmt.Errorf("%v file type not supported", filepath.Ext(out))
	}
	f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to create the destination file: %w", err)
	}
	return f, nil
}

// overlayTo returns a consumer encoding the annotated frame into f.
func overlayTo(f *os.File, color string) facemark.Consumer {
	return facemark.ConsumerFunc(func(frame *facemark.Frame, points []image.Point) error {
		out := facemark.DrawLandmarks(frame.Image, points, facemark.Circle, utils.HexToRGBA(color), 3)
		return facemark.EncodeImage(f, out)
	})
}

// collectExemplar describes the image at the clicked position and appends
// the row to the landmark's positive or negative exemplar file.
func collectExemplar(layout *facemark.Layout, finder *facemark.FaceFinder) error {
	var spec *facemark.LandmarkSpec
	for i := range layout.Landmarks {
		if layout.Landmarks[i].Name == *landmark {
			spec = &layout.Landmarks[i]
		}
	}
	if spec == nil {
		return fmt.Errorf("unknown landmark %q, expected one of %s", *landmark, strings.Join(layout.Names(), ", "))
	}
	pt, err := parsePoint(*click)
	if err != nil {
		return err
	}

	var path string
	switch *label {
	case "pos":
		path = spec.Positive
	case "neg":
		path = spec.Negative
	default:
		return fmt.Errorf("the label must be pos or neg, got %q", *label)
	}

	src, _, err := openSource()
	if err != nil {
		return err
	}
	defer src.Close()

	frame, err := src.Next(context.Background())
	if err != nil {
		return err
	}
	gray := facemark.PrepareFrame(frame.Image, layout.Smooth)
	rect := gray.Bounds()
	if finder != nil {
		var ok bool
		if rect, ok = finder.Detect(gray); !ok {
			return facemark.ErrNoFace
		}
	}
	face, _ := facemark.NormalizeFace(gray, rect, layout.FaceSize)

	c := facemark.NewCollector(facemark.NewGradientExtractor())
	c.Scale = layout.KeypointScale
	if _, err := c.Collect(face, pt); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := c.FlushFile(path); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "The %s exemplar of %s has been appended to: %s\n",
		*label, spec.Name, utils.DecorateText(path, utils.SuccessMessage))
	return nil
}

// parsePoint parses an "x,y" pair.
func parsePoint(s string) (image.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return image.Point{}, fmt.Errorf("invalid position %q, expected x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid position %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return image.Pt(x, y), nil
}

// printStatus displays the relevant information about the tracking session.
func printStatus(stats facemark.Stats, elapsed time.Duration) {
	if *destination != "" && *destination != pipeName {
		fmt.Fprintf(os.Stderr, "\nThe annotated frames have been saved to: %s %s\n",
			utils.DecorateText(filepath.Base(*destination), utils.SuccessMessage),
			utils.DefaultColor,
		)
	}
	fmt.Fprintf(os.Stderr, "%d frames refined, %d skipped\n", stats.Frames, stats.Skipped)
	fmt.Fprintf(os.Stderr, "\nExecution time: %s\n", utils.DecorateText(utils.FormatTime(elapsed), utils.SuccessMessage))
}

// fatal logs the error message in the CLI colors and exits.
func fatal(msg string, err error) {
	log.Fatal(
		utils.DecorateText(msg, utils.ErrorMessage),
		utils.DecorateText(err.Error(), utils.DefaultMessage),
	)
}
