package facemark

import (
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
)

// supportedExtensions lists the frame file types the pipeline reads and writes.
var supportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif"}

// IsSupportedExt reports whether ext (with leading dot) is a readable frame type.
func IsSupportedExt(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range supportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// decodeFrame decodes one frame. Undecodable data and images with zero
// extent are reported as ErrFrameUnavailable.
func decodeFrame(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, frameError("could not decode the frame: %v", err)
	}
	if img.Bounds().Empty() {
		return nil, frameError("the frame has zero extent")
	}
	return img, nil
}

// EncodeImage encodes an image to a destination of type io.Writer.
// Files are encoded by their extension, any other writer receives a jpeg.
func EncodeImage(w io.Writer, img image.Image) error {
	switch w := w.(type) {
	case *os.File:
		return encodeByExt(w, filepath.Ext(w.Name()), img)
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
	}
}

func encodeByExt(w io.Writer, ext string, img image.Image) error {
	switch strings.ToLower(ext) {
	case "", ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
	case ".png":
		return png.Encode(w, img)
	case ".bmp":
		return bmp.Encode(w, img)
	default:
		return errors.New("unsupported image format")
	}
}

// imgToNRGBA converts any image type to *image.NRGBA with min-point at (0, 0).
func imgToNRGBA(img image.Image) *image.NRGBA {
	if src, ok := img.(*image.NRGBA); ok && src.Bounds().Min == (image.Point{}) {
		return src
	}
	return imaging.Clone(img)
}
