package message

import (
	"encoding/binary"
	"io"
)

const (
	// LengthPrefixSize is the size of the frame length prefix on the wire.
	LengthPrefixSize = 4

	// MaxFrameSize bounds the accepted frame length. The bridge never sends
	// frames anywhere near this; larger prefixes indicate a desynced stream.
	MaxFrameSize = 1 << 20

	// MinFrameSize is the smallest valid envelope: two 16-byte UUIDs and the
	// 2-byte operation length, with an empty operation and payload.
	MinFrameSize = 16 + 16 + 2
)

// StreamWriter adds big-endian length-prefix framing to an io.Writer.
type StreamWriter struct {
	w io.Writer
}

// NewStreamWriter creates a new stream writer for bridge framing.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// Write writes a frame with a 4-byte big-endian length prefix. The prefix
// and frame are emitted in a single Write call so concurrent writers that
// serialize on a lock cannot interleave partial frames.
func (sw *StreamWriter) Write(frame []byte) (int, error) {
	if len(frame) > MaxFrameSize {
		return 0, ErrFrameTooLarge
	}

	buf := make([]byte, LengthPrefixSize+len(frame))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(frame)))
	copy(buf[LengthPrefixSize:], frame)

	return sw.w.Write(buf)
}

// WriteEnvelope encodes and writes an envelope with length prefix.
func (sw *StreamWriter) WriteEnvelope(env *Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	_, err = sw.Write(data)
	return err
}

// StreamReader reads big-endian length-prefixed frames from an io.Reader.
type StreamReader struct {
	r io.Reader
}

// NewStreamReader creates a new stream reader for bridge framing.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: r}
}

// Read reads the next length-prefixed frame from the stream.
// Returns the frame data without the length prefix.
func (sr *StreamReader) Read() ([]byte, error) {
	var lenBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(sr.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, ErrPeerClosed
		}
		return nil, ErrShortRead
	}

	frameLen := binary.BigEndian.Uint32(lenBuf[:])
	if frameLen > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	if frameLen < MinFrameSize {
		return nil, ErrFrameTooShort
	}

	frame := make([]byte, frameLen)
	if _, err := io.ReadFull(sr.r, frame); err != nil {
		return nil, ErrShortRead
	}

	return frame, nil
}

// ReadEnvelope reads and decodes the next envelope from the stream.
func (sr *StreamReader) ReadEnvelope() (*Envelope, error) {
	data, err := sr.Read()
	if err != nil {
		return nil, err
	}
	return DecodeEnvelope(data)
}
