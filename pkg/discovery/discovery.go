// Package discovery locates ComfoConnect LAN C bridges on the local
// network. The bridge answers a fixed two-byte probe on UDP port 56747
// with a protobuf blob carrying its IP address, UUID and firmware version.
//
// Broadcasts are sent on every non-loopback IPv4 interface's directed
// broadcast address. A single global 255.255.255.255 probe is not enough:
// on multi-homed hosts the kernel picks one interface and bridges on the
// other segments never see the probe.
package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"
	"google.golang.org/protobuf/encoding/protowire"
)

// Port is the UDP (and TCP) port the bridge listens on.
const Port = 56747

// DefaultTimeout is how long Discover collects replies.
const DefaultTimeout = 5 * time.Second

// probe is the encoded SearchGatewayRequest: field 1, empty message.
var probe = []byte{0x0a, 0x00}

// Bridge describes one discovered bridge.
type Bridge struct {
	// Host is the bridge's IP address as reported in its reply.
	Host string

	// UUID identifies the bridge.
	UUID uuid.UUID

	// Version is the bridge firmware version.
	Version uint32
}

// Config configures discovery.
type Config struct {
	// Conn is an optional pre-existing PacketConn to use. If nil, a UDP
	// socket bound to an ephemeral port is created.
	Conn net.PacketConn

	// Timeout is how long to collect replies. Zero means DefaultTimeout.
	Timeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Discoverer performs bridge discovery.
type Discoverer struct {
	config Config
	log    logging.LeveledLogger
}

// New creates a Discoverer with the given configuration.
func New(config Config) *Discoverer {
	d := &Discoverer{config: config}
	if config.LoggerFactory != nil {
		d.log = config.LoggerFactory.NewLogger("discovery")
	}
	if d.config.Timeout == 0 {
		d.config.Timeout = DefaultTimeout
	}
	return d
}

// Discover broadcasts the probe and collects replies until the timeout or
// context expiry. Replies are deduplicated by bridge UUID; the list
// gathered so far is returned even when the timeout fires.
func (d *Discoverer) Discover(ctx context.Context) ([]Bridge, error) {
	conn := d.config.Conn
	if conn == nil {
		var err error
		conn, err = net.ListenPacket("udp4", ":0")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSocket, err)
		}
		defer conn.Close()
	}

	targets, err := broadcastAddrs()
	if err != nil {
		return nil, err
	}

	for _, addr := range targets {
		if d.log != nil {
			d.log.Debugf("sending probe to %s", addr)
		}
		if _, err := conn.WriteTo(probe, &net.UDPAddr{IP: addr, Port: Port}); err != nil && d.log != nil {
			d.log.Warnf("probe to %s failed: %v", addr, err)
		}
	}

	return d.collect(ctx, conn, nil)
}

// Lookup probes a single host and returns as soon as it answers.
func (d *Discoverer) Lookup(ctx context.Context, host string) (*Bridge, error) {
	conn := d.config.Conn
	if conn == nil {
		var err error
		conn, err = net.ListenPacket("udp4", ":0")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSocket, err)
		}
		defer conn.Close()
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil, fmt.Errorf("%w: resolve %s", ErrSocket, host)
		}
		ip = ips[0]
	}

	if _, err := conn.WriteTo(probe, &net.UDPAddr{IP: ip, Port: Port}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocket, err)
	}

	stop := make(chan struct{})
	bridges, err := d.collect(ctx, conn, stop)
	if err != nil {
		return nil, err
	}
	if len(bridges) == 0 {
		return nil, ErrNotFound
	}
	return &bridges[0], nil
}

// collect reads replies until the deadline. If stop is non-nil, collection
// ends after the first valid reply.
func (d *Discoverer) collect(ctx context.Context, conn net.PacketConn, stop chan struct{}) ([]Bridge, error) {
	deadline := time.Now().Add(d.config.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	var bridges []Bridge
	seen := make(map[uuid.UUID]bool)
	buf := make([]byte, 1500)

	for {
		if ctx.Err() != nil {
			return bridges, ctx.Err()
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return bridges, fmt.Errorf("%w: %v", ErrSocket, err)
		}

		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return bridges, nil
			}
			return bridges, fmt.Errorf("%w: %v", ErrSocket, err)
		}

		data := buf[:n]
		if len(data) == len(probe) && data[0] == probe[0] && data[1] == probe[1] {
			// Our own broadcast echoed back.
			continue
		}

		bridge, err := parseReply(data)
		if err != nil {
			if d.log != nil {
				d.log.Warnf("invalid reply from %s: %v", addr, err)
			}
			continue
		}

		if seen[bridge.UUID] {
			continue
		}
		seen[bridge.UUID] = true
		bridges = append(bridges, *bridge)
		if d.log != nil {
			d.log.Infof("found bridge %s at %s", bridge.UUID, bridge.Host)
		}

		if stop != nil {
			return bridges, nil
		}
	}
}

// parseReply decodes a DiscoveryOperation reply: field 2 wraps a
// SearchGatewayResponse with ipaddress (1), uuid (2) and version (3).
func parseReply(data []byte) (*Bridge, error) {
	var inner []byte
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrInvalidReply
		}
		data = data[n:]

		if num == 2 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrInvalidReply
			}
			inner = v
			data = data[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, ErrInvalidReply
		}
		data = data[n:]
	}
	if inner == nil {
		return nil, ErrInvalidReply
	}

	bridge := &Bridge{}
	var haveUUID bool
	for len(inner) > 0 {
		num, typ, n := protowire.ConsumeTag(inner)
		if n < 0 {
			return nil, ErrInvalidReply
		}
		inner = inner[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(inner)
			if n < 0 {
				return nil, ErrInvalidReply
			}
			bridge.Host = string(v)
			inner = inner[n:]
		case 2:
			v, n := protowire.ConsumeBytes(inner)
			if n < 0 || len(v) != 16 {
				return nil, ErrInvalidReply
			}
			copy(bridge.UUID[:], v)
			haveUUID = true
			inner = inner[n:]
		case 3:
			v, n := protowire.ConsumeVarint(inner)
			if n < 0 {
				return nil, ErrInvalidReply
			}
			bridge.Version = uint32(v)
			inner = inner[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, inner)
			if n < 0 {
				return nil, ErrInvalidReply
			}
			inner = inner[n:]
		}
	}

	if bridge.Host == "" || !haveUUID {
		return nil, ErrInvalidReply
	}
	return bridge, nil
}

// broadcastAddrs returns the directed broadcast address of every usable
// IPv4 interface.
func broadcastAddrs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocket, err)
	}

	var addrs []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		ifAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range ifAddrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil {
				continue
			}
			mask := ipnet.Mask
			if len(mask) == 16 {
				mask = mask[12:]
			}
			bcast := make(net.IP, 4)
			for i := 0; i < 4; i++ {
				bcast[i] = ip4[i] | ^mask[i]
			}
			addrs = append(addrs, bcast)
		}
	}

	if len(addrs) == 0 {
		return nil, ErrNoInterfaces
	}
	return addrs, nil
}
