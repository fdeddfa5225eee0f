package bridge

import "errors"

// Errors returned by the bridge package.
var (
	// ErrNotReachable is returned when the TCP connection cannot be
	// established.
	ErrNotReachable = errors.New("bridge: bridge not reachable")

	// ErrNotRegistered is returned when the bridge refuses the session and
	// no PIN was supplied to register with.
	ErrNotRegistered = errors.New("bridge: app not registered and no pin supplied")

	// ErrBadPin is returned when the bridge rejects registration.
	ErrBadPin = errors.New("bridge: registration rejected")

	// ErrAlreadyConnected is returned when Connect is called on a session
	// that is not disconnected.
	ErrAlreadyConnected = errors.New("bridge: already connected")

	// ErrNotOpen is returned for operations attempted outside an open
	// session.
	ErrNotOpen = errors.New("bridge: session not open")

	// ErrTimeout is returned when the per-request deadline elapses.
	ErrTimeout = errors.New("bridge: request timed out")

	// ErrSessionClosed is returned for requests in flight when the session
	// is torn down.
	ErrSessionClosed = errors.New("bridge: session closed")

	// ErrProtocolViolation is returned when a reply's operation type does
	// not match the request's expected reply, or a frame is malformed.
	ErrProtocolViolation = errors.New("bridge: protocol violation")

	// ErrSelfDeregistration is returned when deregistering the session's
	// own uuid.
	ErrSelfDeregistration = errors.New("bridge: refusing to deregister own uuid")
)

// GatewayError is a non-OK result code on a correlated reply. The bridge's
// result is preserved for callers that need to distinguish refusals.
type GatewayError struct {
	Result      Result
	Description string
}

func (e *GatewayError) Error() string {
	if e.Description != "" {
		return "bridge: gateway returned " + e.Result.String() + ": " + e.Description
	}
	return "bridge: gateway returned " + e.Result.String()
}
