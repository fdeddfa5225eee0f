package message

import "errors"

// Errors returned by the message package.
var (
	// ErrFrameTooLarge is returned when a length prefix exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("message: frame exceeds maximum size")

	// ErrFrameTooShort is returned when a frame is smaller than a valid envelope.
	ErrFrameTooShort = errors.New("message: frame below minimum envelope size")

	// ErrShortRead is returned when the stream ends mid-frame.
	ErrShortRead = errors.New("message: short read on stream")

	// ErrPeerClosed is returned when the peer closed the stream cleanly.
	ErrPeerClosed = errors.New("message: peer closed connection")

	// ErrMalformedOperation is returned for an envelope whose operation
	// protobuf cannot be parsed.
	ErrMalformedOperation = errors.New("message: malformed gateway operation")

	// ErrMalformedPayload is returned for a payload protobuf that cannot
	// be parsed.
	ErrMalformedPayload = errors.New("message: malformed payload")
)
