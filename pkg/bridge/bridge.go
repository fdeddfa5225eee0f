// Package bridge implements the session layer of the ComfoConnect LAN C
// protocol: a single TCP connection to the bridge multiplexing correlated
// request/confirm pairs, unsolicited notifications, and keepalives.
//
// Requests are correlated by a per-session monotonically increasing
// reference. Each in-flight request holds a pending slot; the read loop
// resolves the slot when the reply with the matching reference arrives.
// Notifications (RPDO samples, alarms, gateway events) are delivered to
// the handlers configured on the session.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/openhvac/comfoconnect/pkg/message"
	"github.com/openhvac/comfoconnect/pkg/rmi"
)

// Port is the TCP port the bridge listens on.
const Port = 56747

// Result is the bridge's status code on a confirm operation.
type Result = message.Result

// Defaults applied by New.
const (
	DefaultConnectTimeout    = 5 * time.Second
	DefaultRequestTimeout    = 10 * time.Second
	DefaultKeepaliveInterval = 60 * time.Second
	defaultDeviceName        = "comfoconnect-go"

	// closeTimeout bounds the CloseSessionRequest write during Disconnect.
	closeTimeout = 2 * time.Second
)

// SensorHandler receives raw RPDO samples.
type SensorHandler func(pdid uint16, data []byte)

// AlarmHandler receives alarm notifications.
type AlarmHandler func(nodeID uint8, alarm *message.CnAlarmNotification)

// NotificationHandler receives bridge-level gateway notifications.
type NotificationHandler func(n *message.GatewayNotification)

// Config configures a bridge session.
type Config struct {
	// Conn is an optional pre-existing connection to use. If set, Host is
	// ignored and no dial happens. Useful for testing with net.Pipe().
	Conn net.Conn

	// Host is the bridge's IP address or hostname.
	Host string

	// UUID is the bridge's uuid, as found during discovery.
	UUID uuid.UUID

	// LocalUUID identifies this application to the bridge. Chosen freely
	// by the client; the bridge stores it on registration.
	LocalUUID uuid.UUID

	// DeviceName is shown in the bridge's registered apps list.
	// Defaults to "comfoconnect-go".
	DeviceName string

	// Pin enables registration when the bridge does not know LocalUUID.
	// Nil disables registration; Connect then fails with ErrNotRegistered
	// for unknown apps.
	Pin *uint32

	// ConnectTimeout bounds the TCP dial and each handshake round-trip.
	// The handshake never blocks longer than this per request, even when
	// the bridge silently refuses registration.
	ConnectTimeout time.Duration

	// RequestTimeout bounds each correlated request.
	RequestTimeout time.Duration

	// KeepaliveInterval is the period of the keepalive sender.
	KeepaliveInterval time.Duration

	// SensorHandler is called for each RPDO notification.
	SensorHandler SensorHandler

	// AlarmHandler is called for each alarm notification.
	AlarmHandler AlarmHandler

	// NotificationHandler is called for each gateway notification.
	NotificationHandler NotificationHandler

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// slotResult resolves a pending request: a decoded envelope or an error,
// never both.
type slotResult struct {
	env *message.Envelope
	err error
}

// pendingSlot is one in-flight correlated request.
type pendingSlot struct {
	ref    uint32
	expect message.OperationType
	done   chan slotResult
}

// Bridge is a session with one ComfoConnect LAN C bridge.
type Bridge struct {
	config Config
	log    logging.LeveledLogger

	// writeMu serializes frame writes so concurrent requests cannot
	// interleave partial frames.
	writeMu sync.Mutex

	mu        sync.Mutex
	state     State
	conn      net.Conn
	writer    *message.StreamWriter
	reference uint32
	pending   map[uint32]*pendingSlot
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// New creates a session for the given bridge. The session starts
// disconnected; call Connect.
func New(config Config) *Bridge {
	if config.DeviceName == "" {
		config.DeviceName = defaultDeviceName
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.KeepaliveInterval == 0 {
		config.KeepaliveInterval = DefaultKeepaliveInterval
	}

	b := &Bridge{config: config}
	if config.LoggerFactory != nil {
		b.log = config.LoggerFactory.NewLogger("bridge")
	}
	return b
}

// State returns the current session state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Connect dials the bridge and runs the session handshake. When the bridge
// refuses the session because the app is unknown and a PIN is configured,
// the app is registered and the session start retried. On success the
// session is open: the read loop and keepalive sender are running.
func (b *Bridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateDisconnected {
		b.mu.Unlock()
		return ErrAlreadyConnected
	}
	b.state = StateConnecting
	b.mu.Unlock()

	conn := b.config.Conn
	addr := net.JoinHostPort(b.config.Host, strconv.Itoa(Port))
	if conn == nil {
		dialer := net.Dialer{Timeout: b.config.ConnectTimeout}
		var err error
		conn, err = dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			b.setState(StateDisconnected)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrNotReachable, err)
		}
	}

	b.mu.Lock()
	b.conn = conn
	b.writer = message.NewStreamWriter(conn)
	b.reference = 0
	b.pending = make(map[uint32]*pendingSlot)
	b.closeCh = make(chan struct{})
	b.state = StateAwaitingStart
	closeCh := b.closeCh
	b.mu.Unlock()

	if b.log != nil {
		b.log.Infof("connected to bridge %s", addr)
	}

	b.wg.Add(1)
	go b.readLoop(conn, closeCh)

	if err := b.handshake(ctx); err != nil {
		b.teardown()
		return err
	}

	b.mu.Lock()
	if b.state != StateAwaitingStart {
		// Torn down while the handshake concluded.
		b.mu.Unlock()
		return ErrSessionClosed
	}
	b.state = StateSessionOpen
	b.mu.Unlock()

	b.wg.Add(1)
	go b.keepaliveLoop(closeCh)

	return nil
}

// handshake runs StartSession, registering first when the bridge does not
// know this app and a PIN is available. Every round-trip is bounded by
// ConnectTimeout.
func (b *Bridge) handshake(ctx context.Context) error {
	start := &message.StartSessionRequest{Takeover: true}
	_, err := b.roundTrip(ctx, b.config.ConnectTimeout, message.OpStartSessionRequest, start)
	if err == nil {
		return nil
	}

	var gw *GatewayError
	if !errors.As(err, &gw) || gw.Result != message.ResultNotAllowed {
		return err
	}
	if b.config.Pin == nil {
		return ErrNotRegistered
	}

	b.setState(StateRegistering)
	if b.log != nil {
		b.log.Infof("app unknown to bridge, registering as %q", b.config.DeviceName)
	}

	register := &message.RegisterAppRequest{
		UUID:       b.config.LocalUUID,
		Pin:        *b.config.Pin,
		DeviceName: b.config.DeviceName,
	}
	if _, err := b.roundTrip(ctx, b.config.ConnectTimeout, message.OpRegisterAppRequest, register); err != nil {
		if errors.As(err, &gw) {
			return fmt.Errorf("%w: %v", ErrBadPin, err)
		}
		return err
	}

	b.setState(StateAwaitingStart)
	_, err = b.roundTrip(ctx, b.config.ConnectTimeout, message.OpStartSessionRequest, start)
	return err
}

// Disconnect sends CloseSessionRequest best-effort and tears the session
// down. All pending requests resolve with ErrSessionClosed before return;
// no handler fires after return. Calling Disconnect on a disconnected
// session is a no-op.
func (b *Bridge) Disconnect() error {
	b.mu.Lock()
	if b.state == StateDisconnected {
		b.mu.Unlock()
		return nil
	}
	open := b.state == StateSessionOpen
	b.state = StateClosing
	conn := b.conn
	writer := b.writer
	b.reference++
	ref := b.reference
	b.mu.Unlock()

	if open && conn != nil && writer != nil {
		env := &message.Envelope{
			Src: b.config.LocalUUID,
			Dst: b.config.UUID,
			Op:  message.GatewayOperation{Type: message.OpCloseSessionRequest, Reference: ref},
		}
		conn.SetWriteDeadline(time.Now().Add(closeTimeout))
		b.writeMu.Lock()
		if err := writer.WriteEnvelope(env); err != nil && b.log != nil {
			b.log.Debugf("close session write failed: %v", err)
		}
		b.writeMu.Unlock()
	}

	b.teardown()
	b.wg.Wait()
	return nil
}

// roundTrip sends a correlated request and waits for its reply.
func (b *Bridge) roundTrip(ctx context.Context, timeout time.Duration, op message.OperationType, payload message.Payload) (*message.Envelope, error) {
	expect, _ := message.ExpectedReply(op)

	b.mu.Lock()
	if b.conn == nil || b.state == StateClosing || b.state == StateDisconnected {
		b.mu.Unlock()
		return nil, ErrNotOpen
	}
	b.reference++
	ref := b.reference
	slot := &pendingSlot{ref: ref, expect: expect, done: make(chan slotResult, 1)}
	b.pending[ref] = slot
	writer := b.writer
	b.mu.Unlock()

	env := &message.Envelope{
		Src:     b.config.LocalUUID,
		Dst:     b.config.UUID,
		Op:      message.GatewayOperation{Type: op, Reference: ref},
		Payload: payload.Marshal(),
	}

	if err := b.write(writer, env); err != nil {
		b.takeSlot(ref)
		b.teardown()
		return nil, fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-slot.done:
		return res.env, res.err
	case <-timer.C:
		// Late replies for this reference are discarded by the read loop.
		b.takeSlot(ref)
		return nil, ErrTimeout
	case <-ctx.Done():
		b.takeSlot(ref)
		return nil, ctx.Err()
	}
}

// send emits a fire-and-forget envelope. A reference is still assigned to
// keep the counter monotonic on the wire, but no slot is allocated.
func (b *Bridge) send(op message.OperationType, payload message.Payload) error {
	b.mu.Lock()
	if b.conn == nil || b.state == StateClosing || b.state == StateDisconnected {
		b.mu.Unlock()
		return ErrNotOpen
	}
	b.reference++
	ref := b.reference
	writer := b.writer
	b.mu.Unlock()

	env := &message.Envelope{
		Src:     b.config.LocalUUID,
		Dst:     b.config.UUID,
		Op:      message.GatewayOperation{Type: op, Reference: ref},
		Payload: payload.Marshal(),
	}

	if err := b.write(writer, env); err != nil {
		b.teardown()
		return fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}
	return nil
}

func (b *Bridge) write(writer *message.StreamWriter, env *message.Envelope) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if b.log != nil {
		b.log.Debugf("TX %s", env)
	}
	return writer.WriteEnvelope(env)
}

// readLoop reads envelopes until the transport fails or the session
// closes.
func (b *Bridge) readLoop(conn net.Conn, closeCh chan struct{}) {
	defer b.wg.Done()

	reader := message.NewStreamReader(conn)
	for {
		env, err := reader.ReadEnvelope()
		if err != nil {
			select {
			case <-closeCh:
			default:
				if b.log != nil {
					b.log.Infof("connection lost: %v", err)
				}
				b.teardown()
			}
			return
		}

		if b.log != nil {
			b.log.Debugf("RX %s", env)
		}
		b.dispatch(env)

		select {
		case <-closeCh:
			return
		default:
		}
	}
}

// dispatch routes one received envelope: notifications to handlers,
// correlated replies to their pending slot.
func (b *Bridge) dispatch(env *message.Envelope) {
	switch env.Op.Type {
	case message.OpCnRpdoNotification:
		n := &message.CnRpdoNotification{}
		if err := n.Unmarshal(env.Payload); err != nil {
			if b.log != nil {
				b.log.Warnf("malformed rpdo notification: %v", err)
			}
			return
		}
		if b.config.SensorHandler != nil {
			b.config.SensorHandler(uint16(n.Pdid), n.Data)
		}

	case message.OpCnAlarmNotification:
		n := &message.CnAlarmNotification{}
		if err := n.Unmarshal(env.Payload); err != nil {
			if b.log != nil {
				b.log.Warnf("malformed alarm notification: %v", err)
			}
			return
		}
		if b.config.AlarmHandler != nil {
			b.config.AlarmHandler(uint8(n.NodeID), n)
		}

	case message.OpGatewayNotification:
		n := &message.GatewayNotification{}
		if err := n.Unmarshal(env.Payload); err != nil {
			if b.log != nil {
				b.log.Warnf("malformed gateway notification: %v", err)
			}
			return
		}
		if b.config.NotificationHandler != nil {
			b.config.NotificationHandler(n)
		}

	case message.OpCnNodeNotification:
		if b.log != nil {
			b.log.Debugf("node notification ignored")
		}

	case message.OpCloseSessionRequest:
		if b.log != nil {
			b.log.Infof("bridge requested session close")
		}
		b.teardown()

	default:
		if env.Op.Reference == 0 {
			if b.log != nil {
				b.log.Warnf("unhandled message %s", env.Op.Type)
			}
			return
		}
		b.resolve(env)
	}
}

// resolve completes the pending slot matching the envelope's reference.
func (b *Bridge) resolve(env *message.Envelope) {
	slot := b.takeSlot(env.Op.Reference)
	if slot == nil {
		if b.log != nil {
			b.log.Warnf("reply for unknown reference %d discarded", env.Op.Reference)
		}
		return
	}

	if env.Op.Result != message.ResultOK {
		slot.done <- slotResult{err: resultError(env)}
		return
	}
	if slot.expect != message.OpNoOperation && env.Op.Type != slot.expect {
		if b.log != nil {
			b.log.Warnf("reply type %s does not match expected %s", env.Op.Type, slot.expect)
		}
		slot.done <- slotResult{err: ErrProtocolViolation}
		return
	}
	slot.done <- slotResult{env: env}
}

// resultError maps a non-OK reply to an error. RMI failures surface the
// appliance's status byte; everything else carries the gateway result.
func resultError(env *message.Envelope) error {
	if env.Op.Result == message.ResultRmiError {
		switch env.Op.Type {
		case message.OpCnRmiResponse:
			resp := &message.CnRmiResponse{}
			if err := resp.Unmarshal(env.Payload); err == nil && resp.Result != 0 {
				return &rmi.Error{Status: uint8(resp.Result)}
			}
		case message.OpCnRmiAsyncResponse:
			resp := &message.CnRmiAsyncResponse{}
			if err := resp.Unmarshal(env.Payload); err == nil && resp.Result != 0 {
				return &rmi.Error{Status: uint8(resp.Result)}
			}
		}
	}
	return &GatewayError{Result: env.Op.Result, Description: env.Op.ResultDescription}
}

// keepaliveLoop emits a keepalive every interval while the session is
// open. A send failure tears the session down.
func (b *Bridge) keepaliveLoop(closeCh chan struct{}) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.config.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closeCh:
			return
		case <-ticker.C:
			if err := b.CmdKeepalive(); err != nil {
				if b.log != nil {
					b.log.Infof("keepalive failed: %v", err)
				}
				return
			}
		}
	}
}

// teardown closes the transport and resolves every pending request with
// ErrSessionClosed. Safe to call from any goroutine, including the read
// loop; it never blocks on the session's own goroutines.
func (b *Bridge) teardown() {
	b.mu.Lock()
	if b.state == StateDisconnected {
		b.mu.Unlock()
		return
	}
	b.state = StateDisconnected
	conn := b.conn
	b.conn = nil
	b.writer = nil
	pending := b.pending
	b.pending = nil
	if b.closeCh != nil {
		select {
		case <-b.closeCh:
		default:
			close(b.closeCh)
		}
	}
	b.mu.Unlock()

	for _, slot := range pending {
		slot.done <- slotResult{err: ErrSessionClosed}
	}
	if conn != nil {
		conn.Close()
	}
}

// takeSlot removes and returns the pending slot for ref. The caller that
// takes the slot is the only one allowed to resolve it.
func (b *Bridge) takeSlot(ref uint32) *pendingSlot {
	b.mu.Lock()
	defer b.mu.Unlock()
	slot, ok := b.pending[ref]
	if !ok {
		return nil
	}
	delete(b.pending, ref)
	return slot
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// requireOpen guards the public command surface.
func (b *Bridge) requireOpen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateSessionOpen {
		return ErrNotOpen
	}
	return nil
}
