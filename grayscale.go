package facemark

import (
	"image"

	"github.com/disintegration/imaging"
)

// Grayscale converts any image to an 8-bit intensity grid with min-point at (0, 0).
// The luminance is computed with the Rec. 601 weights.
func Grayscale(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	img := imgToNRGBA(src)
	dx, dy := img.Bounds().Dx(), img.Bounds().Dy()
	dst := image.NewGray(image.Rect(0, 0, dx, dy))

	for y := 0; y < dy; y++ {
		si := img.PixOffset(0, y)
		di := dst.PixOffset(0, y)
		for x := 0; x < dx; x++ {
			r, g, b := img.Pix[si], img.Pix[si+1], img.Pix[si+2]
			lum := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
			dst.Pix[di] = uint8(lum + 0.5)
			si += 4
			di++
		}
	}
	return dst
}

// Stretch rescales the intensities of img in place so that its darkest pixel
// maps to 0 and its brightest to 255. A flat image is left untouched.
func Stretch(img *image.Gray) {
	if len(img.Pix) == 0 {
		return
	}
	lo, hi := img.Pix[0], img.Pix[0]
	for _, v := range img.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return
	}
	scale := 255 / float64(hi-lo)
	for i, v := range img.Pix {
		img.Pix[i] = uint8(float64(v-lo)*scale + 0.5)
	}
}

// Smooth applies a gaussian blur with the given sigma. A non-positive sigma
// returns the source unchanged.
func Smooth(img *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return img
	}
	return nrgbaToGray(imaging.Blur(img, sigma))
}

// PrepareFrame turns a decoded frame into the normalized intensity grid
// the descriptor extractor works on.
func PrepareFrame(src image.Image, sigma float64) *image.Gray {
	g := Grayscale(src)
	if g == src {
		// Never stretch the caller's pixels in place.
		g = cloneGray(g)
	}
	Stretch(g)
	return Smooth(g, sigma)
}

// nrgbaToGray keeps the red channel of an already gray NRGBA image.
func nrgbaToGray(src *image.NRGBA) *image.Gray {
	dx, dy := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewGray(image.Rect(0, 0, dx, dy))
	for y := 0; y < dy; y++ {
		si := src.PixOffset(src.Bounds().Min.X, src.Bounds().Min.Y+y)
		di := dst.PixOffset(0, y)
		for x := 0; x < dx; x++ {
			dst.Pix[di+x] = src.Pix[si+x*4]
		}
	}
	return dst
}

func cloneGray(src *image.Gray) *image.Gray {
	dst := image.NewGray(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
