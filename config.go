package facemark

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LandmarkSpec configures one landmark: where its search starts on the first
// frame and where its exemplars are read from.
type LandmarkSpec struct {
	Name     string `yaml:"name"`
	Initial  [2]int `yaml:"initial"`
	Positive string `yaml:"positive,omitempty"`
	Negative string `yaml:"negative,omitempty"`
}

// Start returns the initial guess as a point.
func (l LandmarkSpec) Start() image.Point {
	return image.Pt(l.Initial[0], l.Initial[1])
}

// Layout describes the landmark set and the search policy.
// Positions are expressed in the normalized face space of FaceSize x FaceSize pixels.
type Layout struct {
	FaceSize      int            `yaml:"face_size"`
	KeypointScale float64        `yaml:"keypoint_scale"`
	Radius        int            `yaml:"radius"`
	Smooth        float64        `yaml:"smooth"`
	Schedule      Schedule       `yaml:"schedule"`
	Landmarks     []LandmarkSpec `yaml:"landmarks"`
}

// defaultLandmarks are the thirteen landmarks tracked by default:
// eye corners, eyebrow points, mouth corners and upper lip.
var defaultLandmarks = []LandmarkSpec{
	{Name: "olec", Initial: [2]int{80, 120}},  // outer left eye corner
	{Name: "oleb", Initial: [2]int{80, 100}},  // outer left eyebrow
	{Name: "mleb", Initial: [2]int{100, 95}},  // middle left eyebrow
	{Name: "ileb", Initial: [2]int{120, 70}},  // inner left eyebrow
	{Name: "orec", Initial: [2]int{220, 120}}, // outer right eye corner
	{Name: "ireb", Initial: [2]int{180, 100}}, // inner right eyebrow
	{Name: "mreb", Initial: [2]int{200, 95}},  // middle right eyebrow
	{Name: "oreb", Initial: [2]int{220, 100}}, // outer right eyebrow
	{Name: "lmc", Initial: [2]int{100, 260}},  // left mouth corner
	{Name: "rmc", Initial: [2]int{200, 260}},  // right mouth corner
	{Name: "ilec", Initial: [2]int{120, 120}}, // inner left eye corner
	{Name: "irec", Initial: [2]int{200, 120}}, // inner right eye corner
	{Name: "ulom", Initial: [2]int{150, 230}}, // upper lip of mouth
}

// DefaultLayout returns the thirteen landmark layout with exemplars expected
// under sift_data/<name>_pos.txt and sift_data/<name>_neg.txt.
func DefaultLayout() *Layout {
	l := &Layout{
		FaceSize:      DefaultFaceSize,
		KeypointScale: DefaultKeypointScale,
		Radius:        DefaultRadius,
		Schedule:      DefaultSchedule(),
		Landmarks:     make([]LandmarkSpec, len(defaultLandmarks)),
	}
	copy(l.Landmarks, defaultLandmarks)
	l.fillExemplarPaths("")
	return l
}

// LoadLayout reads a YAML layout. Omitted settings keep their default value
// and relative exemplar paths are resolved against the layout's directory.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read the layout file: %w", err)
	}

	l := DefaultLayout()
	l.Landmarks = nil
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("could not decode the layout file: %w", err)
	}
	if len(l.Landmarks) == 0 {
		l.Landmarks = make([]LandmarkSpec, len(defaultLandmarks))
		copy(l.Landmarks, defaultLandmarks)
	}
	l.fillExemplarPaths(filepath.Dir(path))

	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// fillExemplarPaths assigns the conventional exemplar files to landmarks
// without one and anchors relative paths at dir.
func (l *Layout) fillExemplarPaths(dir string) {
	for i := range l.Landmarks {
		lm := &l.Landmarks[i]
		if lm.Positive == "" {
			lm.Positive = filepath.Join("sift_data", lm.Name+"_pos.txt")
		}
		if lm.Negative == "" {
			lm.Negative = filepath.Join("sift_data", lm.Name+"_neg.txt")
		}
		if dir != "" && !filepath.IsAbs(lm.Positive) {
			lm.Positive = filepath.Join(dir, lm.Positive)
		}
		if dir != "" && !filepath.IsAbs(lm.Negative) {
			lm.Negative = filepath.Join(dir, lm.Negative)
		}
	}
}

// Validate checks the layout for settings the search cannot run with.
func (l *Layout) Validate() error {
	if l.FaceSize <= 0 {
		return fmt.Errorf("face size must be positive, got %d", l.FaceSize)
	}
	if l.Radius <= 0 {
		return fmt.Errorf("search radius must be positive, got %d", l.Radius)
	}
	if l.KeypointScale <= 0 {
		return fmt.Errorf("keypoint scale must be positive, got %v", l.KeypointScale)
	}
	if err := l.Schedule.Validate(); err != nil {
		return err
	}
	if len(l.Landmarks) == 0 {
		return errors.New("layout has no landmarks")
	}
	seen := make(map[string]bool, len(l.Landmarks))
	for _, lm := range l.Landmarks {
		if lm.Name == "" {
			return errors.New("landmark without a name")
		}
		if seen[lm.Name] {
			return fmt.Errorf("duplicate landmark %q", lm.Name)
		}
		seen[lm.Name] = true
	}
	return nil
}

// Names returns the landmark names in layout order.
func (l *Layout) Names() []string {
	names := make([]string, len(l.Landmarks))
	for i, lm := range l.Landmarks {
		names[i] = lm.Name
	}
	return names
}

// InitialGuesses returns the first frame starting points in layout order.
func (l *Layout) InitialGuesses() []image.Point {
	pts := make([]image.Point, len(l.Landmarks))
	for i, lm := range l.Landmarks {
		pts[i] = lm.Start()
	}
	return pts
}

// LoadExemplars reads the exemplar files of every landmark.
func (l *Layout) LoadExemplars() ([]NamedExemplarSet, error) {
	sets := make([]NamedExemplarSet, 0, len(l.Landmarks))
	for _, lm := range l.Landmarks {
		set, err := LoadExemplarSet(lm.Positive, lm.Negative)
		if err != nil {
			return nil, &TrainingError{Landmark: lm.Name, Err: err}
		}
		sets = append(sets, NamedExemplarSet{Name: lm.Name, Set: set})
	}
	return sets, nil
}

// SaveLayout writes the layout as YAML.
func SaveLayout(l *Layout, path string) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
