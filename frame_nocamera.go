//go:build !gocv

package facemark

import "errors"

// CameraSupported reports whether the binary was built with camera support.
const CameraSupported = false

// NewCameraSource is only available in builds with the gocv tag.
func NewCameraSource(device int) (FrameSource, error) {
	return nil, errors.New("camera capture requires a build with the gocv tag")
}
