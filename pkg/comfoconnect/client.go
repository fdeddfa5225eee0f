// Package comfoconnect is the high-level client for ComfoAir Q ventilation
// units behind a ComfoConnect LAN C bridge. It layers sensor subscription
// management and typed control methods over the session in pkg/bridge.
package comfoconnect

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/openhvac/comfoconnect/pkg/bridge"
	"github.com/openhvac/comfoconnect/pkg/message"
	"github.com/openhvac/comfoconnect/pkg/sensors"
)

// DefaultSensorDelay is how long sensor values are buffered after connect.
// The bridge replays stale samples right after a session opens; holding
// them back until the real values arrive avoids publishing garbage.
const DefaultSensorDelay = 2 * time.Second

// SensorCallback receives decoded sensor updates.
type SensorCallback func(sensor sensors.Sensor, value any)

// AlarmCallback receives decoded alarm reports: active error messages
// keyed by bit position.
type AlarmCallback func(nodeID uint8, errors map[int]string)

// Config configures the client.
type Config struct {
	// Conn is an optional pre-existing connection, passed through to the
	// session. Useful for testing with net.Pipe().
	Conn net.Conn

	// Host is the bridge's address, from discovery or static config.
	Host string

	// UUID is the bridge's uuid.
	UUID uuid.UUID

	// LocalUUID identifies this application. Must be stable across runs
	// to keep the bridge-side registration valid.
	LocalUUID uuid.UUID

	// DeviceName is shown on the bridge's registered apps list.
	DeviceName string

	// Pin enables self-registration on first connect.
	Pin *uint32

	// SensorDelay overrides DefaultSensorDelay. Negative disables the
	// hold entirely.
	SensorDelay time.Duration

	// AlarmCallback is invoked for decoded alarm notifications.
	AlarmCallback AlarmCallback

	// ConnectTimeout, RequestTimeout and KeepaliveInterval are passed to
	// the session; zero selects the session defaults.
	ConnectTimeout    time.Duration
	RequestTimeout    time.Duration
	KeepaliveInterval time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// subscription tracks one bridge-side RPDO registration and its local
// subscribers.
type subscription struct {
	sensor      sensors.Sensor
	subscribers map[int]SensorCallback
}

// Client is a high-level connection to one ventilation unit.
type Client struct {
	config Config
	log    logging.LeveledLogger
	bridge *bridge.Bridge

	mu        sync.Mutex
	subs      map[uint16]*subscription
	nextSubID int
	holding   bool
	held      map[uint16][]byte
	holdTimer *time.Timer
}

// New creates a client. The client starts disconnected; call Connect.
func New(config Config) *Client {
	if config.SensorDelay == 0 {
		config.SensorDelay = DefaultSensorDelay
	}

	c := &Client{
		config: config,
		subs:   make(map[uint16]*subscription),
		held:   make(map[uint16][]byte),
	}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("comfoconnect")
	}

	c.bridge = bridge.New(bridge.Config{
		Conn:              config.Conn,
		Host:              config.Host,
		UUID:              config.UUID,
		LocalUUID:         config.LocalUUID,
		DeviceName:        config.DeviceName,
		Pin:               config.Pin,
		ConnectTimeout:    config.ConnectTimeout,
		RequestTimeout:    config.RequestTimeout,
		KeepaliveInterval: config.KeepaliveInterval,
		SensorHandler:     c.onSensorData,
		AlarmHandler:      c.onAlarm,
		LoggerFactory:     config.LoggerFactory,
	})
	return c
}

// Bridge exposes the underlying session for low-level commands.
func (c *Client) Bridge() *bridge.Bridge {
	return c.bridge
}

// Connect opens the session, registering with the PIN when needed, and
// re-subscribes any sensors registered before a reconnect.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.bridge.Connect(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	if c.config.SensorDelay > 0 {
		c.holding = true
		c.held = make(map[uint16][]byte)
		c.holdTimer = time.AfterFunc(c.config.SensorDelay, c.releaseHold)
	}
	resubscribe := make([]sensors.Sensor, 0, len(c.subs))
	for _, sub := range c.subs {
		resubscribe = append(resubscribe, sub.sensor)
	}
	c.mu.Unlock()

	for _, s := range resubscribe {
		if err := c.bridge.CmdRpdoRequest(ctx, s.ID, uint8(s.Type), 1, nil); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect closes the session. Registered subscriptions survive locally
// and are re-established by the next Connect.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.holdTimer != nil {
		c.holdTimer.Stop()
		c.holdTimer = nil
	}
	c.holding = false
	c.held = make(map[uint16][]byte)
	c.mu.Unlock()

	return c.bridge.Disconnect()
}

// Subscription is a handle for one registered callback.
type Subscription struct {
	client *Client
	pdid   uint16
	id     int
}

// Cancel removes the callback. When the last subscriber for the sensor is
// gone the bridge-side registration is cancelled with a zero timeout.
func (s *Subscription) Cancel(ctx context.Context) error {
	return s.client.cancelSubscription(ctx, s.pdid, s.id)
}

// RegisterSensor subscribes callback to a sensor's updates. The first
// subscriber for a sensor triggers the bridge-side RPDO registration;
// later subscribers share it.
func (c *Client) RegisterSensor(ctx context.Context, sensor sensors.Sensor, callback SensorCallback) (*Subscription, error) {
	if _, ok := sensors.Lookup(sensor.ID); !ok && sensor.Name == "" {
		return nil, ErrUnknownSensor
	}

	c.mu.Lock()
	sub, exists := c.subs[sensor.ID]
	if !exists {
		sub = &subscription{sensor: sensor, subscribers: make(map[int]SensorCallback)}
		c.subs[sensor.ID] = sub
	}
	c.nextSubID++
	id := c.nextSubID
	sub.subscribers[id] = callback
	c.mu.Unlock()

	if !exists {
		if err := c.bridge.CmdRpdoRequest(ctx, sensor.ID, uint8(sensor.Type), 1, nil); err != nil {
			c.mu.Lock()
			delete(sub.subscribers, id)
			if len(sub.subscribers) == 0 {
				delete(c.subs, sensor.ID)
			}
			c.mu.Unlock()
			return nil, err
		}
	}

	return &Subscription{client: c, pdid: sensor.ID, id: id}, nil
}

// DeregisterSensor removes every subscriber of a sensor and cancels the
// bridge-side registration. Idempotent.
func (c *Client) DeregisterSensor(ctx context.Context, sensor sensors.Sensor) error {
	c.mu.Lock()
	_, exists := c.subs[sensor.ID]
	delete(c.subs, sensor.ID)
	delete(c.held, sensor.ID)
	c.mu.Unlock()

	if !exists {
		return nil
	}
	timeout := uint32(0)
	return c.bridge.CmdRpdoRequest(ctx, sensor.ID, uint8(sensor.Type), 1, &timeout)
}

func (c *Client) cancelSubscription(ctx context.Context, pdid uint16, id int) error {
	c.mu.Lock()
	sub, exists := c.subs[pdid]
	if !exists {
		c.mu.Unlock()
		return nil
	}
	delete(sub.subscribers, id)
	last := len(sub.subscribers) == 0
	if last {
		delete(c.subs, pdid)
		delete(c.held, pdid)
	}
	sensor := sub.sensor
	c.mu.Unlock()

	if !last {
		return nil
	}
	timeout := uint32(0)
	return c.bridge.CmdRpdoRequest(ctx, sensor.ID, uint8(sensor.Type), 1, &timeout)
}

// onSensorData decodes a raw sample and fans it out. Callbacks run without
// the client lock held, so subscribers may (de)register from within a
// callback.
func (c *Client) onSensorData(pdid uint16, data []byte) {
	c.mu.Lock()
	sub, ok := c.subs[pdid]
	if !ok {
		c.mu.Unlock()
		if c.log != nil {
			c.log.Warnf("sample for unregistered pdo %d discarded", pdid)
		}
		return
	}
	if c.holding {
		c.held[pdid] = append([]byte(nil), data...)
		c.mu.Unlock()
		return
	}
	sensor := sub.sensor
	callbacks := make([]SensorCallback, 0, len(sub.subscribers))
	for _, cb := range sub.subscribers {
		callbacks = append(callbacks, cb)
	}
	c.mu.Unlock()

	value, err := sensor.Decode(data)
	if err != nil {
		if c.log != nil {
			c.log.Warnf("sample for pdo %d failed to decode: %v", pdid, err)
		}
		return
	}

	for _, cb := range callbacks {
		cb(sensor, value)
	}
}

// releaseHold flushes the samples buffered during the post-connect hold.
func (c *Client) releaseHold() {
	if c.bridge.State() != bridge.StateSessionOpen {
		return
	}

	c.mu.Lock()
	c.holding = false
	held := c.held
	c.held = make(map[uint16][]byte)
	c.mu.Unlock()

	if c.log != nil && len(held) > 0 {
		c.log.Debugf("releasing %d held sensor values", len(held))
	}
	for pdid, data := range held {
		c.onSensorData(pdid, data)
	}
}

// onAlarm decodes the firmware-dependent error bitmask and forwards it.
func (c *Client) onAlarm(nodeID uint8, alarm *message.CnAlarmNotification) {
	if c.config.AlarmCallback == nil {
		return
	}
	errs := DecodeAlarmErrors(alarm.Errors, alarm.SwProgramVersion)
	c.config.AlarmCallback(nodeID, errs)
}
