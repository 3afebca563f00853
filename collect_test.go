package facemark

import (
	"bytes"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector(&posExtractor{})
	img := uniformGray(50, 40, 0)

	d, err := c.Collect(img, image.Pt(10, 12))
	require.NoError(t, err)
	assert.Equal(t, Descriptor{10, 12}, d)

	// Clicks outside the image are moved inside.
	d, err = c.Collect(img, image.Pt(60, -3))
	require.NoError(t, err)
	assert.Equal(t, Descriptor{49, 0}, d)
	assert.Len(t, c.Rows(), 2)

	var buf bytes.Buffer
	require.NoError(t, c.Flush(&buf))
	assert.Equal(t, "10 12\n49 0\n", buf.String())
	assert.Empty(t, c.Rows())
}

func TestCollector_FlushFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "olec_pos.txt")
	c := NewCollector(NewGradientExtractor())
	img := texturedGray(60, 60)

	for _, p := range []image.Point{{20, 20}, {30, 40}} {
		_, err := c.Collect(img, p)
		require.NoError(t, err)
		require.NoError(t, c.FlushFile(path))
	}

	rows, err := readExemplarFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 128)
}

func TestCollector_Errors(t *testing.T) {
	_, err := NewCollector(nil).Collect(uniformGray(5, 5, 0), image.Pt(1, 1))
	assert.Error(t, err)

	_, err = NewCollector(&posExtractor{}).Collect(image.NewGray(image.Rectangle{}), image.Pt(1, 1))
	assert.ErrorIs(t, err, ErrEmptyImage)
}
