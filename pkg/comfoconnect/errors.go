package comfoconnect

import "errors"

// Errors returned by the comfoconnect package.
var (
	// ErrUnexpectedResponse is returned when the appliance answers a
	// convenience query with a value outside the documented range.
	ErrUnexpectedResponse = errors.New("comfoconnect: unexpected response value")

	// ErrUnknownSensor is returned when registering a sensor whose id is
	// missing from the registry and which carries no name of its own.
	ErrUnknownSensor = errors.New("comfoconnect: unknown sensor")

	// ErrInvalidArgument is returned for enum arguments outside their
	// documented range.
	ErrInvalidArgument = errors.New("comfoconnect: invalid argument")
)
