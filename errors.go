package facemark

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyClass is reported when one side of an exemplar set has no rows.
	ErrEmptyClass = errors.New("exemplar class is empty")

	// ErrDimensionMismatch is reported when exemplar rows (or a row and a
	// classifier) do not share the same descriptor dimension.
	ErrDimensionMismatch = errors.New("descriptor dimensions disagree")

	// ErrFrameUnavailable signals that a frame could not be acquired or decoded.
	// It is fatal for that frame only; the session continues with the next one.
	ErrFrameUnavailable = errors.New("frame unavailable")

	// ErrNoFace signals that no face region was found in the frame.
	ErrNoFace = errors.New("no face detected")

	// ErrEmptyImage is returned by extractors handed an image with zero extent.
	ErrEmptyImage = errors.New("image has zero extent")
)

// TrainingError is raised while building the classifier bank.
// It always ends the session since no bank can be built.
type TrainingError struct {
	Landmark string
	Err      error
}

func (e *TrainingError) Error() string {
	if e.Landmark == "" {
		return fmt.Sprintf("training failed: %v", e.Err)
	}
	return fmt.Sprintf("training landmark %q failed: %v", e.Landmark, e.Err)
}

func (e *TrainingError) Unwrap() error { return e.Err }

// frameError wraps err so that it matches ErrFrameUnavailable.
func frameError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFrameUnavailable, fmt.Sprintf(format, args...))
}
