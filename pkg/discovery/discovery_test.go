package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

var testUUID = uuid.MustParse("10000000-0000-0000-0000-000000000001")

// buildReply encodes a DiscoveryOperation carrying a SearchGatewayResponse.
func buildReply(host string, id uuid.UUID, version uint32) []byte {
	var inner []byte
	inner = protowire.AppendTag(inner, 1, protowire.BytesType)
	inner = protowire.AppendString(inner, host)
	inner = protowire.AppendTag(inner, 2, protowire.BytesType)
	inner = protowire.AppendBytes(inner, id[:])
	inner = protowire.AppendTag(inner, 3, protowire.VarintType)
	inner = protowire.AppendVarint(inner, uint64(version))

	var outer []byte
	outer = protowire.AppendTag(outer, 2, protowire.BytesType)
	outer = protowire.AppendBytes(outer, inner)
	return outer
}

func TestParseReply(t *testing.T) {
	bridge, err := parseReply(buildReply("192.168.1.213", testUUID, 3222278144))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if bridge.Host != "192.168.1.213" {
		t.Errorf("host = %s", bridge.Host)
	}
	if bridge.UUID != testUUID {
		t.Errorf("uuid = %s", bridge.UUID)
	}
	if bridge.Version != 3222278144 {
		t.Errorf("version = %d", bridge.Version)
	}
}

func TestParseReplyErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xFF, 0xFF, 0xFF}},
		{"missing response field", []byte{0x0a, 0x00}},
		{"short uuid", func() []byte {
			var inner []byte
			inner = protowire.AppendTag(inner, 1, protowire.BytesType)
			inner = protowire.AppendString(inner, "10.0.0.1")
			inner = protowire.AppendTag(inner, 2, protowire.BytesType)
			inner = protowire.AppendBytes(inner, []byte{1, 2, 3})
			var outer []byte
			outer = protowire.AppendTag(outer, 2, protowire.BytesType)
			outer = protowire.AppendBytes(outer, inner)
			return outer
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseReply(tt.input); !errors.Is(err, ErrInvalidReply) {
				t.Errorf("got %v, want ErrInvalidReply", err)
			}
		})
	}
}

// fakePacketConn replays a fixed set of datagrams, then times out.
type fakePacketConn struct {
	datagrams [][]byte
	pos       int
	writes    [][]byte
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func (f *fakePacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	if f.pos >= len(f.datagrams) {
		return 0, nil, timeoutError{}
	}
	n := copy(p, f.datagrams[f.pos])
	f.pos++
	return n, &net.UDPAddr{IP: net.IPv4(192, 168, 1, 213), Port: Port}, nil
}

func (f *fakePacketConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	f.writes = append(f.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakePacketConn) Close() error                       { return nil }
func (f *fakePacketConn) LocalAddr() net.Addr                { return &net.UDPAddr{} }
func (f *fakePacketConn) SetDeadline(t time.Time) error      { return nil }
func (f *fakePacketConn) SetReadDeadline(t time.Time) error  { return nil }
func (f *fakePacketConn) SetWriteDeadline(t time.Time) error { return nil }

func TestCollectDeduplicatesByUUID(t *testing.T) {
	// The same bridge answering on two interfaces must appear once.
	otherUUID := uuid.MustParse("20000000-0000-0000-0000-000000000002")
	conn := &fakePacketConn{datagrams: [][]byte{
		buildReply("192.168.1.213", testUUID, 1),
		buildReply("10.0.0.4", testUUID, 1),
		buildReply("192.168.1.9", otherUUID, 1),
	}}

	d := New(Config{Conn: conn, Timeout: time.Second})
	bridges, err := d.collect(context.Background(), conn, nil)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(bridges) != 2 {
		t.Fatalf("got %d bridges, want 2", len(bridges))
	}
	if bridges[0].UUID != testUUID || bridges[1].UUID != otherUUID {
		t.Errorf("got %v", bridges)
	}
}

func TestCollectIgnoresEchoAndGarbage(t *testing.T) {
	conn := &fakePacketConn{datagrams: [][]byte{
		probe, // our own broadcast echoed back
		{0xde, 0xad, 0xbe, 0xef},
		buildReply("192.168.1.213", testUUID, 1),
	}}

	d := New(Config{Conn: conn, Timeout: time.Second})
	bridges, err := d.collect(context.Background(), conn, nil)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(bridges) != 1 || bridges[0].UUID != testUUID {
		t.Errorf("got %v", bridges)
	}
}

func TestCollectTimeoutReturnsGathered(t *testing.T) {
	conn := &fakePacketConn{}
	d := New(Config{Conn: conn, Timeout: 10 * time.Millisecond})
	bridges, err := d.collect(context.Background(), conn, nil)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(bridges) != 0 {
		t.Errorf("got %v", bridges)
	}
}

func TestCollectStopsAfterFirstWhenTargeted(t *testing.T) {
	conn := &fakePacketConn{datagrams: [][]byte{
		buildReply("192.168.1.213", testUUID, 1),
		buildReply("192.168.1.214", uuid.MustParse("30000000-0000-0000-0000-000000000003"), 1),
	}}

	d := New(Config{Conn: conn, Timeout: time.Second})
	bridges, err := d.collect(context.Background(), conn, make(chan struct{}))
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(bridges) != 1 {
		t.Errorf("got %d bridges, want 1", len(bridges))
	}
}

func TestProbeBytes(t *testing.T) {
	// The probe is the fixed encoding of an empty SearchGatewayRequest
	// inside a DiscoveryOperation.
	if probe[0] != 0x0a || probe[1] != 0x00 || len(probe) != 2 {
		t.Errorf("probe = %x", probe)
	}
}
