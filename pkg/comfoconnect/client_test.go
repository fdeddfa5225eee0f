package comfoconnect

import (
	"context"
	"encoding/hex"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openhvac/comfoconnect/pkg/message"
	"github.com/openhvac/comfoconnect/pkg/sensors"
)

var (
	testLocalUUID  = uuid.MustParse("00000000-0000-0000-0000-000000001337")
	testBridgeUUID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
)

// fakeBridge answers the session handshake and then hands every request to
// the test's handler.
type fakeBridge struct {
	t      *testing.T
	conn   net.Conn
	reader *message.StreamReader
	writer *message.StreamWriter

	mu       sync.Mutex
	requests []*message.Envelope
}

func newTestClient(t *testing.T, config Config, handler func(s *fakeBridge, req *message.Envelope)) *Client {
	t.Helper()

	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() {
		clientConn.Close()
		serverConn.Close()
	})

	config.Conn = clientConn
	config.Host = "test"
	config.UUID = testBridgeUUID
	config.LocalUUID = testLocalUUID
	if config.SensorDelay == 0 {
		config.SensorDelay = -1 // most tests want immediate delivery
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = time.Second
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = time.Second
	}

	s := &fakeBridge{
		t:      t,
		conn:   serverConn,
		reader: message.NewStreamReader(serverConn),
		writer: message.NewStreamWriter(serverConn),
	}

	go func() {
		for {
			env, err := s.reader.ReadEnvelope()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.requests = append(s.requests, env)
			s.mu.Unlock()

			switch env.Op.Type {
			case message.OpStartSessionRequest:
				s.reply(env, message.OpStartSessionConfirm, nil)
			case message.OpCloseSessionRequest, message.OpKeepAlive:
				// no reply
			default:
				if handler != nil {
					handler(s, env)
				}
			}
		}
	}()

	return New(config)
}

func (s *fakeBridge) reply(req *message.Envelope, op message.OperationType, payload message.Payload) {
	env := &message.Envelope{
		Src: testBridgeUUID,
		Dst: testLocalUUID,
		Op:  message.GatewayOperation{Type: op, Reference: req.Op.Reference},
	}
	if payload != nil {
		env.Payload = payload.Marshal()
	}
	if err := s.writer.WriteEnvelope(env); err != nil {
		s.t.Errorf("server write failed: %v", err)
	}
}

// notify pushes an unsolicited envelope to the client.
func (s *fakeBridge) notify(op message.OperationType, payload message.Payload) {
	env := &message.Envelope{
		Src:     testBridgeUUID,
		Dst:     testLocalUUID,
		Op:      message.GatewayOperation{Type: op},
		Payload: payload.Marshal(),
	}
	if err := s.writer.WriteEnvelope(env); err != nil {
		s.t.Errorf("server write failed: %v", err)
	}
}

// requestsOfType returns the recorded requests matching op.
func (s *fakeBridge) requestsOfType(op message.OperationType) []*message.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*message.Envelope
	for _, env := range s.requests {
		if env.Op.Type == op {
			out = append(out, env)
		}
	}
	return out
}

// answerRpdo is a handler confirming every RPDO request.
func answerRpdo(s *fakeBridge, req *message.Envelope) {
	if req.Op.Type == message.OpCnRpdoRequest {
		s.reply(req, message.OpCnRpdoConfirm, nil)
	}
}

func TestRegisterSensorSubscribesOnce(t *testing.T) {
	var server *fakeBridge
	client := newTestClient(t, Config{}, func(s *fakeBridge, req *message.Envelope) {
		server = s
		answerRpdo(s, req)
	})

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Disconnect()

	sensor := sensors.Registry[sensors.SensorTemperatureSupply]

	sub1, err := client.RegisterSensor(ctx, sensor, func(sensors.Sensor, any) {})
	if err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	sub2, err := client.RegisterSensor(ctx, sensor, func(sensors.Sensor, any) {})
	if err != nil {
		t.Fatalf("second register failed: %v", err)
	}

	// Only the first local subscriber reaches the bridge.
	reqs := server.requestsOfType(message.OpCnRpdoRequest)
	if len(reqs) != 1 {
		t.Fatalf("got %d rpdo requests, want 1", len(reqs))
	}
	var rpdo message.CnRpdoRequest
	if err := rpdo.Unmarshal(reqs[0].Payload); err != nil {
		t.Fatalf("rpdo payload: %v", err)
	}
	if rpdo.Pdid != 276 || rpdo.Zone != 1 || rpdo.Type != uint32(sensor.Type) || rpdo.Timeout != nil {
		t.Errorf("rpdo request = %+v", rpdo)
	}

	// Cancelling the first subscriber keeps the bridge subscription.
	if err := sub1.Cancel(ctx); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if got := len(server.requestsOfType(message.OpCnRpdoRequest)); got != 1 {
		t.Errorf("got %d rpdo requests after first cancel, want 1", got)
	}

	// Cancelling the last subscriber cancels it with a zero timeout.
	if err := sub2.Cancel(ctx); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	reqs = server.requestsOfType(message.OpCnRpdoRequest)
	if len(reqs) != 2 {
		t.Fatalf("got %d rpdo requests after last cancel, want 2", len(reqs))
	}
	if err := rpdo.Unmarshal(reqs[1].Payload); err != nil {
		t.Fatalf("rpdo payload: %v", err)
	}
	if rpdo.Timeout == nil || *rpdo.Timeout != 0 {
		t.Errorf("cancel request = %+v", rpdo)
	}
}

func TestSensorValueFanOut(t *testing.T) {
	var server *fakeBridge
	client := newTestClient(t, Config{}, func(s *fakeBridge, req *message.Envelope) {
		server = s
		answerRpdo(s, req)
	})

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Disconnect()

	sensor := sensors.Registry[sensors.SensorTemperatureSupply]
	values := make(chan any, 2)
	callback := func(s sensors.Sensor, value any) {
		if s.ID != sensor.ID {
			t.Errorf("callback sensor id = %d", s.ID)
		}
		values <- value
	}

	if _, err := client.RegisterSensor(ctx, sensor, callback); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := client.RegisterSensor(ctx, sensor, callback); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	server.notify(message.OpCnRpdoNotification, &message.CnRpdoNotification{Pdid: 276, Data: []byte{0x60, 0x09}, Zone: 1})

	for i := 0; i < 2; i++ {
		select {
		case v := <-values:
			if v != 240.0 {
				t.Errorf("value = %v, want 240.0", v)
			}
		case <-time.After(time.Second):
			t.Fatal("callback not invoked")
		}
	}
}

func TestSensorHoldBuffersInitialValues(t *testing.T) {
	var server *fakeBridge
	client := newTestClient(t, Config{SensorDelay: 100 * time.Millisecond}, func(s *fakeBridge, req *message.Envelope) {
		server = s
		answerRpdo(s, req)
	})

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Disconnect()

	sensor := sensors.Registry[sensors.SensorTemperatureSupply]
	values := make(chan any, 4)
	if _, err := client.RegisterSensor(ctx, sensor, func(_ sensors.Sensor, v any) { values <- v }); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// A bogus sample during the hold window, replaced by the real one.
	server.notify(message.OpCnRpdoNotification, &message.CnRpdoNotification{Pdid: 276, Data: []byte{0x00, 0x00}, Zone: 1})
	server.notify(message.OpCnRpdoNotification, &message.CnRpdoNotification{Pdid: 276, Data: []byte{0x60, 0x09}, Zone: 1})

	select {
	case v := <-values:
		if v != 240.0 {
			t.Errorf("held value = %v, want the last sample 240.0", v)
		}
	case <-time.After(time.Second):
		t.Fatal("held value never released")
	}

	select {
	case v := <-values:
		t.Errorf("unexpected extra value %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSetSpeedWireBytes(t *testing.T) {
	var server *fakeBridge
	client := newTestClient(t, Config{}, func(s *fakeBridge, req *message.Envelope) {
		server = s
		if req.Op.Type == message.OpCnRmiRequest {
			s.reply(req, message.OpCnRmiResponse, &message.CnRmiResponse{})
		}
	})

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Disconnect()

	if err := client.SetSpeed(ctx, SpeedLow); err != nil {
		t.Fatalf("set speed failed: %v", err)
	}

	reqs := server.requestsOfType(message.OpCnRmiRequest)
	if len(reqs) != 1 {
		t.Fatalf("got %d rmi requests, want 1", len(reqs))
	}
	var rmiReq message.CnRmiRequest
	if err := rmiReq.Unmarshal(reqs[0].Payload); err != nil {
		t.Fatalf("rmi payload: %v", err)
	}
	if rmiReq.NodeID != 1 {
		t.Errorf("node id = %d, want 1", rmiReq.NodeID)
	}
	if got, want := hex.EncodeToString(rmiReq.Message), "84150101000000000100000001"; got != want {
		t.Errorf("rmi message = %s, want %s", got, want)
	}
}

func TestGetSpeedParsesScheduleState(t *testing.T) {
	schedule, _ := hex.DecodeString("0100000000ffffffffffffffff02")
	client := newTestClient(t, Config{}, func(s *fakeBridge, req *message.Envelope) {
		if req.Op.Type == message.OpCnRmiRequest {
			s.reply(req, message.OpCnRmiResponse, &message.CnRmiResponse{Message: schedule})
		}
	})

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Disconnect()

	speed, err := client.GetSpeed(ctx)
	if err != nil {
		t.Fatalf("get speed failed: %v", err)
	}
	if speed != SpeedMedium {
		t.Errorf("speed = %s, want medium", speed)
	}
}

func TestGetModeParsesScheduleState(t *testing.T) {
	manual, _ := hex.DecodeString("0100000000ffffffffffffffff01")
	client := newTestClient(t, Config{}, func(s *fakeBridge, req *message.Envelope) {
		if req.Op.Type == message.OpCnRmiRequest {
			s.reply(req, message.OpCnRmiResponse, &message.CnRmiResponse{Message: manual})
		}
	})

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Disconnect()

	mode, err := client.GetMode(ctx)
	if err != nil {
		t.Fatalf("get mode failed: %v", err)
	}
	if mode != ModeManual {
		t.Errorf("mode = %s, want manual", mode)
	}
}

func TestAlarmDecodedToMessages(t *testing.T) {
	alarms := make(chan map[int]string, 1)
	var server *fakeBridge
	client := newTestClient(t, Config{
		AlarmCallback: func(nodeID uint8, errs map[int]string) {
			alarms <- errs
		},
	}, func(s *fakeBridge, req *message.Envelope) {
		server = s
		answerRpdo(s, req)
	})

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Disconnect()

	// Force the server pointer to be set by issuing one request.
	sensor := sensors.Registry[sensors.SensorDeviceState]
	if _, err := client.RegisterSensor(ctx, sensor, func(sensors.Sensor, any) {}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Bit 34 set: "The front door is open".
	errorMask := []byte{0x00, 0x00, 0x00, 0x00, 0x04}
	server.notify(message.OpCnAlarmNotification, &message.CnAlarmNotification{
		NodeID:           1,
		SwProgramVersion: 3226537985, // current firmware table
		Errors:           errorMask,
	})

	select {
	case errs := <-alarms:
		if msg, ok := errs[34]; !ok || msg != "The front door is open" {
			t.Errorf("alarm errors = %v", errs)
		}
	case <-time.After(time.Second):
		t.Fatal("alarm callback not invoked")
	}
}

func TestDeregisterSensorIsIdempotent(t *testing.T) {
	client := newTestClient(t, Config{}, answerRpdo)

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Disconnect()

	sensor := sensors.Registry[sensors.SensorPowerUsage]
	if err := client.DeregisterSensor(ctx, sensor); err != nil {
		t.Errorf("deregister of unregistered sensor failed: %v", err)
	}
}

func TestAlarmTableDecoding(t *testing.T) {
	// Bit 21 lives in the shared base table.
	mask := []byte{0x00, 0x00, 0x20} // bit 21
	errs := DecodeAlarmErrors(mask, 3226537985)
	if _, ok := errs[21]; !ok {
		t.Errorf("bit 21 missing: %v", errs)
	}

	// Bit 73 differs between firmware generations.
	mask = make([]byte, 10)
	mask[9] = 0x02 // bit 73
	current := DecodeAlarmErrors(mask, 3226537985)
	legacy := DecodeAlarmErrors(mask, 3222278144)
	if current[73] == legacy[73] {
		t.Errorf("firmware tables should disagree on bit 73: %q vs %q", current[73], legacy[73])
	}
}
