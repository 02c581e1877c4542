package light

import "errors"

// Domain errors for the light package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, light.ErrLightNotFound) {
//	    // handle not found case
//	}
var (
	// ErrLightNotFound is returned when a light id does not exist in the registry.
	ErrLightNotFound = errors.New("light: not found")

	// ErrLightExists is returned when adding a light with an id that already exists.
	ErrLightExists = errors.New("light: already exists")

	// ErrInvalidBrightness is returned when a brightness value is outside 0-255.
	ErrInvalidBrightness = errors.New("light: brightness must be between 0 and 255")

	// ErrNotDimmable is returned when a brightness operation targets a binary light.
	ErrNotDimmable = errors.New("light: not dimmable")

	// ErrNotBound is returned when a command is issued before the light
	// has been bound to a controller.
	ErrNotBound = errors.New("light: not bound to a controller")
)
