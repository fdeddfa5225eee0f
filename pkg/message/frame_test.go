package message

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestStreamFramingRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf)
	r := NewStreamReader(&buf)

	frame := make([]byte, MinFrameSize+8)
	for i := range frame {
		frame[i] = byte(i)
	}

	n, err := w.Write(frame)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if n != LengthPrefixSize+len(frame) {
		t.Errorf("wrote %d bytes, want %d", n, LengthPrefixSize+len(frame))
	}

	got, err := r.Read()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("frame mismatch: got %x, want %x", got, frame)
	}
}

func TestStreamFramingMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf)
	r := NewStreamReader(&buf)

	frames := [][]byte{
		bytes.Repeat([]byte{0xAA}, MinFrameSize),
		bytes.Repeat([]byte{0xBB}, MinFrameSize+10),
		bytes.Repeat([]byte{0xCC}, MinFrameSize+100),
	}
	for _, f := range frames {
		if _, err := w.Write(f); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	for i, want := range frames {
		got, err := r.Read()
		if err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d mismatch", i)
		}
	}
}

func TestStreamReaderPrefixIsBigEndian(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf)

	frame := bytes.Repeat([]byte{0x00}, MinFrameSize)
	if _, err := w.Write(frame); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	prefix := binary.BigEndian.Uint32(buf.Bytes()[:LengthPrefixSize])
	if prefix != uint32(len(frame)) {
		t.Errorf("prefix = %d, want %d", prefix, len(frame))
	}
}

func TestStreamReaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{
			name:  "empty stream",
			input: nil,
			want:  ErrPeerClosed,
		},
		{
			name:  "truncated prefix",
			input: []byte{0x00, 0x00},
			want:  ErrShortRead,
		},
		{
			name: "frame too large",
			input: func() []byte {
				var b [4]byte
				binary.BigEndian.PutUint32(b[:], MaxFrameSize+1)
				return b[:]
			}(),
			want: ErrFrameTooLarge,
		},
		{
			name: "frame below minimum",
			input: func() []byte {
				var b [4]byte
				binary.BigEndian.PutUint32(b[:], MinFrameSize-1)
				return b[:]
			}(),
			want: ErrFrameTooShort,
		},
		{
			name: "truncated body",
			input: func() []byte {
				var b [4]byte
				binary.BigEndian.PutUint32(b[:], MinFrameSize)
				return append(b[:], 0x01, 0x02)
			}(),
			want: ErrShortRead,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewStreamReader(bytes.NewReader(tt.input))
			_, err := r.Read()
			if !errors.Is(err, tt.want) {
				t.Errorf("got error %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStreamWriterRejectsOversizedFrame(t *testing.T) {
	w := NewStreamWriter(&bytes.Buffer{})
	_, err := w.Write(make([]byte, MaxFrameSize+1))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("got error %v, want ErrFrameTooLarge", err)
	}
}
