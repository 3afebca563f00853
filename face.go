package facemark

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/esimov/facemark/utils"
	pigo "github.com/esimov/pigo/core"
)

// DefaultFaceSize is the side of the square the detected face is resampled to.
// The landmark layout and its exemplars are expressed in that space.
const DefaultFaceSize = 300

// FaceFinder locates the face region with a pigo cascade classifier.
type FaceFinder struct {
	Detector    *pigo.Pigo
	MinSize     int
	MaxSize     int
	ShiftFactor float64
	ScaleFactor float64
	IoU         float64
	Angle       float64
	// MinQuality is the detection score a face must exceed.
	MinQuality float32
}

// NewFaceFinder unpacks the binary cascade file.
func NewFaceFinder(cascade []byte) (*FaceFinder, error) {
	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	det, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %v", err)
	}
	return &FaceFinder{
		Detector:    det,
		MinSize:     100,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		IoU:         0.2,
		MinQuality:  5.0,
	}, nil
}

// LoadFaceFinder reads the cascade file at path.
func LoadFaceFinder(path string) (*FaceFinder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read the cascade file: %w", err)
	}
	return NewFaceFinder(data)
}

// Detect returns the best scoring face of img.
// The boolean is false when no detection passes MinQuality.
func (f *FaceFinder) Detect(img *image.Gray) (image.Rectangle, bool) {
	dx, dy := img.Bounds().Dx(), img.Bounds().Dy()
	maxSize := f.MaxSize
	if maxSize <= 0 {
		maxSize = utils.Max(dx, dy)
	}

	cParams := pigo.CascadeParams{
		MinSize:     f.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: f.ShiftFactor,
		ScaleFactor: f.ScaleFactor,

		ImageParams: pigo.ImageParams{
			Pixels: Grayscale(img).Pix,
			Rows:   dy,
			Cols:   dx,
			Dim:    dx,
		},
	}

	// The result contains quadruplets representing the row, column, scale and detection score.
	faces := f.Detector.RunCascade(cParams, f.Angle)
	faces = f.Detector.ClusterDetections(faces, f.IoU)

	var (
		best  pigo.Detection
		found bool
	)
	for _, face := range faces {
		if face.Q > f.MinQuality && (!found || face.Q > best.Q) {
			best, found = face, true
		}
	}
	if !found {
		return image.Rectangle{}, false
	}

	half := best.Scale / 2
	rect := image.Rect(best.Col-half, best.Row-half, best.Col+half, best.Row+half)
	rect = rect.Intersect(image.Rect(0, 0, dx, dy))

	return rect, !rect.Empty()
}

// FaceRegion maps positions of the normalized face image back to the frame.
type FaceRegion struct {
	Rect image.Rectangle
	Size int
}

// ToFrame converts a point of the size x size face image into frame coordinates.
func (r FaceRegion) ToFrame(p image.Point) image.Point {
	return image.Point{
		X: r.Rect.Min.X + p.X*r.Rect.Dx()/r.Size,
		Y: r.Rect.Min.Y + p.Y*r.Rect.Dy()/r.Size,
	}
}

// NormalizeFace crops the face out of the frame and resamples it to a
// size x size intensity grid.
func NormalizeFace(frame *image.Gray, rect image.Rectangle, size int) (*image.Gray, FaceRegion) {
	if size <= 0 {
		size = DefaultFaceSize
	}
	face := imaging.Crop(frame, rect)
	face = imaging.Resize(face, size, size, imaging.Linear)

	return nrgbaToGray(face), FaceRegion{Rect: rect, Size: size}
}
