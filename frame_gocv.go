//go:build gocv

package facemark

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"
)

// CameraSupported reports whether the binary was built with camera support.
const CameraSupported = true

// CameraSource reads frames from a video capture device through OpenCV.
type CameraSource struct {
	dev   *gocv.VideoCapture
	mat   gocv.Mat
	gray  gocv.Mat
	index int
}

// NewCameraSource opens the capture device with the given id.
func NewCameraSource(device int) (FrameSource, error) {
	vc, err := gocv.VideoCaptureDevice(device)
	if err != nil {
		return nil, fmt.Errorf("unable to open the capture device %d: %w", device, err)
	}
	return &CameraSource{
		dev:  vc,
		mat:  gocv.NewMat(),
		gray: gocv.NewMat(),
	}, nil
}

// Next implements the FrameSource interface. A device never ends the
// session on its own; cancel the context to stop reading.
func (c *CameraSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := c.index
	c.index++

	if ok := c.dev.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, frameError("could not read frame %d from the capture device", idx)
	}
	gocv.CvtColor(c.mat, &c.gray, gocv.ColorBGRToGray)

	img, err := c.gray.ToImage()
	if err != nil {
		return nil, frameError("frame %d: %v", idx, err)
	}
	return &Frame{Index: idx, Name: fmt.Sprintf("camera_%05d.png", idx), Image: img}, nil
}

// Close releases the capture device.
func (c *CameraSource) Close() error {
	c.mat.Close()
	c.gray.Close()
	return c.dev.Close()
}
