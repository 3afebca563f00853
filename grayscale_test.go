package facemark

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

const ImgWidth = 10
const ImgHeight = 10

func TestGrayscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, ImgWidth, ImgHeight))
	for i := 0; i < img.Bounds().Dx(); i++ {
		for j := 0; j < img.Bounds().Dy(); j++ {
			img.Set(i, j, color.RGBA{177, 177, 177, 255})
		}
	}

	gray := Grayscale(img)
	assert.Equal(t, image.Rect(0, 0, ImgWidth, ImgHeight), gray.Bounds())
	for _, v := range gray.Pix {
		assert.Equal(t, uint8(177), v)
	}
}

func TestGrayscale_Luma(t *testing.T) {
	img := image.NewNRGBA(image.Rect(3, 3, 5, 4))
	img.Set(3, 3, color.NRGBA{255, 0, 0, 255})
	img.Set(4, 3, color.NRGBA{0, 0, 255, 255})

	gray := Grayscale(img)
	assert.Equal(t, image.Rect(0, 0, 2, 1), gray.Bounds())
	assert.Equal(t, uint8(76), gray.Pix[0])
	assert.Equal(t, uint8(29), gray.Pix[1])
}

func TestStretch(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	copy(img.Pix, []uint8{10, 20, 30})
	Stretch(img)
	assert.Equal(t, []uint8{0, 128, 255}, img.Pix)

	flat := uniformGray(4, 4, 42)
	Stretch(flat)
	for _, v := range flat.Pix {
		assert.Equal(t, uint8(42), v)
	}
}

func TestPrepareFrame_KeepsTheSource(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(src.Pix, []uint8{50, 60, 70, 80})

	out := PrepareFrame(src, 0)
	assert.Equal(t, []uint8{50, 60, 70, 80}, src.Pix)
	assert.Equal(t, uint8(0), out.Pix[0])
	assert.Equal(t, uint8(255), out.Pix[3])
}

func TestSmooth(t *testing.T) {
	img := texturedGray(20, 20)
	assert.Same(t, img, Smooth(img, 0))

	blurred := Smooth(img, 2)
	assert.Equal(t, img.Bounds(), blurred.Bounds())
	assert.NotEqual(t, img.Pix, blurred.Pix)

	flat := uniformGray(8, 8, 100)
	for _, v := range Smooth(flat, 1.5).Pix {
		assert.InDelta(t, 100, int(v), 1)
	}
}
