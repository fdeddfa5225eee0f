package rmi

import (
	"errors"
	"strconv"
)

// Errors returned by the rmi package.
var (
	// ErrUnsupportedType is returned when a value type has no fixed-width
	// integer encoding.
	ErrUnsupportedType = errors.New("rmi: unsupported value type")

	// ErrShortValue is returned when a value buffer is shorter than its
	// type requires.
	ErrShortValue = errors.New("rmi: value shorter than type width")

	// ErrEmptyResponse is returned for an RMI response with no payload
	// where one was expected.
	ErrEmptyResponse = errors.New("rmi: empty response")
)

// Error is an RMI-level failure reported by the appliance. The status byte
// is preserved verbatim.
type Error struct {
	Status uint8
}

func (e *Error) Error() string {
	return "rmi: appliance returned status " + strconv.Itoa(int(e.Status))
}
