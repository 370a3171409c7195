package fractal

import "errors"

var (
	// ErrInvalidParams is returned for zero iteration counts and non-finite fields.
	ErrInvalidParams = errors.New("invalid fractal parameters")

	// ErrUnknownKind is returned when a fractal family name is not recognised.
	ErrUnknownKind = errors.New("unknown fractal kind")

	// ErrUnknownLandmark is returned by Landmark for names not in Landmarks.
	ErrUnknownLandmark = errors.New("unknown landmark")
)
