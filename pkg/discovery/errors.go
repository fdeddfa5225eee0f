package discovery

import "errors"

// Errors returned by the discovery package.
var (
	// ErrNoInterfaces is returned when no usable IPv4 interface exists.
	ErrNoInterfaces = errors.New("discovery: no broadcast-capable interfaces")

	// ErrSocket is returned for socket setup or I/O failures.
	ErrSocket = errors.New("discovery: socket error")

	// ErrInvalidReply is returned for replies that do not parse as a
	// search gateway response.
	ErrInvalidReply = errors.New("discovery: invalid reply")

	// ErrNotFound is returned by Lookup when the host does not answer.
	ErrNotFound = errors.New("discovery: no bridge found")
)
