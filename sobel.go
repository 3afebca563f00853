package facemark

import (
	"image"
	"math"

	"github.com/esimov/facemark/utils"
)

type kernel [3][3]int32

var (
	kernelX = kernel{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}

	kernelY = kernel{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// sobelAt returns the horizontal and vertical Sobel responses at (x, y).
// Pixels outside the image bounds are replicated from the nearest edge,
// so the gradient is defined for every integer coordinate.
// See https://en.wikipedia.org/wiki/Sobel_operator
func sobelAt(img *image.Gray, x, y int) (gx, gy int32) {
	for ky := 0; ky < 3; ky++ {
		for kx := 0; kx < 3; kx++ {
			px := int32(grayAt(img, x+kx-1, y+ky-1))
			gx += px * kernelX[ky][kx]
			gy += px * kernelY[ky][kx]
		}
	}
	return gx, gy
}

// gradient returns the magnitude and orientation (in [0, 2π)) at (x, y).
func gradient(img *image.Gray, x, y int) (mag, theta float64) {
	gx, gy := sobelAt(img, x, y)
	fx, fy := float64(gx), float64(gy)

	mag = math.Sqrt(fx*fx + fy*fy)
	theta = math.Atan2(fy, fx)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return mag, theta
}

// grayAt reads the intensity at (x, y), clamping the coordinates to the image.
func grayAt(img *image.Gray, x, y int) uint8 {
	b := img.Bounds()
	x = utils.Clamp(x, b.Min.X, b.Max.X-1)
	y = utils.Clamp(y, b.Min.Y, b.Max.Y-1)
	return img.Pix[img.PixOffset(x, y)]
}
