package message

import (
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Payload is implemented by every inner protobuf message.
type Payload interface {
	Marshal() []byte
	Unmarshal(data []byte) error
}

// field iteration helper shared by all payload decoders. fn is called for
// each field; unknown fields are skipped.
func eachField(data []byte, fn func(num protowire.Number, typ protowire.Type, data []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ErrMalformedPayload
		}
		data = data[n:]

		consumed, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		if consumed == 0 {
			consumed = protowire.ConsumeFieldValue(num, typ, data)
			if consumed < 0 {
				return ErrMalformedPayload
			}
		}
		data = data[consumed:]
	}
	return nil
}

func consumeVarint(data []byte, out *uint64) (int, error) {
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, ErrMalformedPayload
	}
	*out = v
	return n, nil
}

func consumeBytes(data []byte, out *[]byte) (int, error) {
	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return 0, ErrMalformedPayload
	}
	*out = append([]byte(nil), v...)
	return n, nil
}

func consumeString(data []byte, out *string) (int, error) {
	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return 0, ErrMalformedPayload
	}
	*out = string(v)
	return n, nil
}

func consumeUUID(data []byte, out *uuid.UUID) (int, error) {
	v, n := protowire.ConsumeBytes(data)
	if n < 0 || len(v) != 16 {
		return 0, ErrMalformedPayload
	}
	copy(out[:], v)
	return n, nil
}

func appendUint32(b []byte, num protowire.Number, v uint32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	if v {
		return protowire.AppendVarint(b, 1)
	}
	return protowire.AppendVarint(b, 0)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// Empty is the payload of operations that carry no fields (KeepAlive,
// CloseSessionRequest, the bare confirms).
type Empty struct{}

func (Empty) Marshal() []byte             { return nil }
func (Empty) Unmarshal(data []byte) error { return nil }

// StartSessionRequest opens a session. Takeover disconnects a competing
// client holding the session.
type StartSessionRequest struct {
	Takeover bool
}

func (m *StartSessionRequest) Marshal() []byte {
	var b []byte
	if m.Takeover {
		b = appendBool(b, 1, true)
	}
	return b
}

func (m *StartSessionRequest) Unmarshal(data []byte) error {
	*m = StartSessionRequest{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		if num == 1 {
			var v uint64
			n, err := consumeVarint(data, &v)
			m.Takeover = v != 0
			return n, err
		}
		return 0, nil
	})
}

// StartSessionConfirm acknowledges a session start.
type StartSessionConfirm struct {
	DeviceName string
	Resumed    bool
}

func (m *StartSessionConfirm) Marshal() []byte {
	var b []byte
	if m.DeviceName != "" {
		b = appendString(b, 1, m.DeviceName)
	}
	if m.Resumed {
		b = appendBool(b, 2, true)
	}
	return b
}

func (m *StartSessionConfirm) Unmarshal(data []byte) error {
	*m = StartSessionConfirm{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(data, &m.DeviceName)
		case 2:
			var v uint64
			n, err := consumeVarint(data, &v)
			m.Resumed = v != 0
			return n, err
		}
		return 0, nil
	})
}

// RegisterAppRequest pairs an application with the bridge using its PIN.
type RegisterAppRequest struct {
	UUID       uuid.UUID
	Pin        uint32
	DeviceName string
}

func (m *RegisterAppRequest) Marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, m.UUID[:])
	b = appendUint32(b, 2, m.Pin)
	b = appendString(b, 3, m.DeviceName)
	return b
}

func (m *RegisterAppRequest) Unmarshal(data []byte) error {
	*m = RegisterAppRequest{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		switch num {
		case 1:
			return consumeUUID(data, &m.UUID)
		case 2:
			var v uint64
			n, err := consumeVarint(data, &v)
			m.Pin = uint32(v)
			return n, err
		case 3:
			return consumeString(data, &m.DeviceName)
		}
		return 0, nil
	})
}

// RegisteredApp is one entry of a ListRegisteredAppsConfirm.
type RegisteredApp struct {
	UUID       uuid.UUID
	DeviceName string
}

func (m *RegisteredApp) Marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, m.UUID[:])
	b = appendString(b, 2, m.DeviceName)
	return b
}

func (m *RegisteredApp) Unmarshal(data []byte) error {
	*m = RegisteredApp{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		switch num {
		case 1:
			return consumeUUID(data, &m.UUID)
		case 2:
			return consumeString(data, &m.DeviceName)
		}
		return 0, nil
	})
}

// ListRegisteredAppsConfirm lists the applications paired with the bridge.
type ListRegisteredAppsConfirm struct {
	Apps []RegisteredApp
}

func (m *ListRegisteredAppsConfirm) Marshal() []byte {
	var b []byte
	for i := range m.Apps {
		b = appendBytes(b, 1, m.Apps[i].Marshal())
	}
	return b
}

func (m *ListRegisteredAppsConfirm) Unmarshal(data []byte) error {
	*m = ListRegisteredAppsConfirm{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		if num == 1 {
			var raw []byte
			n, err := consumeBytes(data, &raw)
			if err != nil {
				return 0, err
			}
			var app RegisteredApp
			if err := app.Unmarshal(raw); err != nil {
				return 0, err
			}
			m.Apps = append(m.Apps, app)
			return n, nil
		}
		return 0, nil
	})
}

// DeregisterAppRequest removes a paired application from the bridge.
type DeregisterAppRequest struct {
	UUID uuid.UUID
}

func (m *DeregisterAppRequest) Marshal() []byte {
	return appendBytes(nil, 1, m.UUID[:])
}

func (m *DeregisterAppRequest) Unmarshal(data []byte) error {
	*m = DeregisterAppRequest{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		if num == 1 {
			return consumeUUID(data, &m.UUID)
		}
		return 0, nil
	})
}

// ChangePinRequest replaces the bridge's registration PIN.
type ChangePinRequest struct {
	OldPin uint32
	NewPin uint32
}

func (m *ChangePinRequest) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.OldPin)
	b = appendUint32(b, 2, m.NewPin)
	return b
}

func (m *ChangePinRequest) Unmarshal(data []byte) error {
	*m = ChangePinRequest{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		var v uint64
		switch num {
		case 1:
			n, err := consumeVarint(data, &v)
			m.OldPin = uint32(v)
			return n, err
		case 2:
			n, err := consumeVarint(data, &v)
			m.NewPin = uint32(v)
			return n, err
		}
		return 0, nil
	})
}

// VersionConfirm reports the bridge firmware versions.
type VersionConfirm struct {
	GatewayVersion  uint32
	SerialNumber    string
	ComfoNetVersion uint32
}

func (m *VersionConfirm) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.GatewayVersion)
	b = appendString(b, 2, m.SerialNumber)
	b = appendUint32(b, 3, m.ComfoNetVersion)
	return b
}

func (m *VersionConfirm) Unmarshal(data []byte) error {
	*m = VersionConfirm{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		var v uint64
		switch num {
		case 1:
			n, err := consumeVarint(data, &v)
			m.GatewayVersion = uint32(v)
			return n, err
		case 2:
			return consumeString(data, &m.SerialNumber)
		case 3:
			n, err := consumeVarint(data, &v)
			m.ComfoNetVersion = uint32(v)
			return n, err
		}
		return 0, nil
	})
}

// CnTimeRequest reads the unit clock; a non-zero SetTime also sets it.
// Times are seconds since 2000-01-01 00:00:00 UTC.
type CnTimeRequest struct {
	SetTime uint32
}

func (m *CnTimeRequest) Marshal() []byte {
	var b []byte
	if m.SetTime != 0 {
		b = appendUint32(b, 1, m.SetTime)
	}
	return b
}

func (m *CnTimeRequest) Unmarshal(data []byte) error {
	*m = CnTimeRequest{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		if num == 1 {
			var v uint64
			n, err := consumeVarint(data, &v)
			m.SetTime = uint32(v)
			return n, err
		}
		return 0, nil
	})
}

// CnTimeConfirm carries the unit clock.
type CnTimeConfirm struct {
	CurrentTime uint32
}

func (m *CnTimeConfirm) Marshal() []byte {
	return appendUint32(nil, 1, m.CurrentTime)
}

func (m *CnTimeConfirm) Unmarshal(data []byte) error {
	*m = CnTimeConfirm{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		if num == 1 {
			var v uint64
			n, err := consumeVarint(data, &v)
			m.CurrentTime = uint32(v)
			return n, err
		}
		return 0, nil
	})
}

// CnRmiRequest tunnels a raw RMI byte string to a ComfoNet node.
type CnRmiRequest struct {
	NodeID  uint32
	Message []byte
}

func (m *CnRmiRequest) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.NodeID)
	b = appendBytes(b, 2, m.Message)
	return b
}

func (m *CnRmiRequest) Unmarshal(data []byte) error {
	*m = CnRmiRequest{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		switch num {
		case 1:
			var v uint64
			n, err := consumeVarint(data, &v)
			m.NodeID = uint32(v)
			return n, err
		case 2:
			return consumeBytes(data, &m.Message)
		}
		return 0, nil
	})
}

// CnRmiResponse carries the node's RMI result. A non-zero Result is an
// RMI-level error code from the appliance.
type CnRmiResponse struct {
	Result  uint32
	Message []byte
}

func (m *CnRmiResponse) Marshal() []byte {
	var b []byte
	if m.Result != 0 {
		b = appendUint32(b, 1, m.Result)
	}
	if len(m.Message) > 0 {
		b = appendBytes(b, 2, m.Message)
	}
	return b
}

func (m *CnRmiResponse) Unmarshal(data []byte) error {
	*m = CnRmiResponse{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		switch num {
		case 1:
			var v uint64
			n, err := consumeVarint(data, &v)
			m.Result = uint32(v)
			return n, err
		case 2:
			return consumeBytes(data, &m.Message)
		}
		return 0, nil
	})
}

// CnRmiAsyncConfirm acknowledges an async RMI request.
type CnRmiAsyncConfirm struct {
	Result uint32
}

func (m *CnRmiAsyncConfirm) Marshal() []byte {
	var b []byte
	if m.Result != 0 {
		b = appendUint32(b, 1, m.Result)
	}
	return b
}

func (m *CnRmiAsyncConfirm) Unmarshal(data []byte) error {
	*m = CnRmiAsyncConfirm{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		if num == 1 {
			var v uint64
			n, err := consumeVarint(data, &v)
			m.Result = uint32(v)
			return n, err
		}
		return 0, nil
	})
}

// CnRmiAsyncResponse delivers the deferred result of an async RMI request.
type CnRmiAsyncResponse struct {
	Result  uint32
	Message []byte
}

func (m *CnRmiAsyncResponse) Marshal() []byte {
	var b []byte
	if m.Result != 0 {
		b = appendUint32(b, 1, m.Result)
	}
	if len(m.Message) > 0 {
		b = appendBytes(b, 2, m.Message)
	}
	return b
}

func (m *CnRmiAsyncResponse) Unmarshal(data []byte) error {
	*m = CnRmiAsyncResponse{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		switch num {
		case 1:
			var v uint64
			n, err := consumeVarint(data, &v)
			m.Result = uint32(v)
			return n, err
		case 2:
			return consumeBytes(data, &m.Message)
		}
		return 0, nil
	})
}

// CnRpdoRequest subscribes to a process data object. A nil Timeout leaves
// the field unset, which the bridge treats as indefinite (proto2 default
// 0xFFFFFFFF); a zero Timeout cancels the subscription.
type CnRpdoRequest struct {
	Pdid    uint32
	Zone    uint32
	Type    uint32
	Timeout *uint32
}

func (m *CnRpdoRequest) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.Pdid)
	if m.Zone != 0 {
		b = appendUint32(b, 2, m.Zone)
	}
	if m.Type != 0 {
		b = appendUint32(b, 3, m.Type)
	}
	if m.Timeout != nil {
		b = appendUint32(b, 4, *m.Timeout)
	}
	return b
}

func (m *CnRpdoRequest) Unmarshal(data []byte) error {
	*m = CnRpdoRequest{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		var v uint64
		switch num {
		case 1:
			n, err := consumeVarint(data, &v)
			m.Pdid = uint32(v)
			return n, err
		case 2:
			n, err := consumeVarint(data, &v)
			m.Zone = uint32(v)
			return n, err
		case 3:
			n, err := consumeVarint(data, &v)
			m.Type = uint32(v)
			return n, err
		case 4:
			n, err := consumeVarint(data, &v)
			t := uint32(v)
			m.Timeout = &t
			return n, err
		}
		return 0, nil
	})
}

// CnRpdoNotification is an unsolicited process data sample.
type CnRpdoNotification struct {
	Pdid uint32
	Data []byte
	Zone uint32
}

func (m *CnRpdoNotification) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.Pdid)
	b = appendBytes(b, 2, m.Data)
	if m.Zone != 0 {
		b = appendUint32(b, 3, m.Zone)
	}
	return b
}

func (m *CnRpdoNotification) Unmarshal(data []byte) error {
	*m = CnRpdoNotification{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		switch num {
		case 1:
			var v uint64
			n, err := consumeVarint(data, &v)
			m.Pdid = uint32(v)
			return n, err
		case 2:
			return consumeBytes(data, &m.Data)
		case 3:
			var v uint64
			n, err := consumeVarint(data, &v)
			m.Zone = uint32(v)
			return n, err
		}
		return 0, nil
	})
}

// CnAlarmNotification reports active error flags of a ComfoNet node.
type CnAlarmNotification struct {
	Zone             uint32
	ProductID        uint32
	ProductVariant   uint32
	SerialNumber     string
	SwProgramVersion uint32
	Errors           []byte
	ErrorID          uint32
	NodeID           uint32
}

func (m *CnAlarmNotification) Marshal() []byte {
	var b []byte
	if m.Zone != 0 {
		b = appendUint32(b, 1, m.Zone)
	}
	if m.ProductID != 0 {
		b = appendUint32(b, 2, m.ProductID)
	}
	if m.ProductVariant != 0 {
		b = appendUint32(b, 3, m.ProductVariant)
	}
	if m.SerialNumber != "" {
		b = appendString(b, 4, m.SerialNumber)
	}
	if m.SwProgramVersion != 0 {
		b = appendUint32(b, 5, m.SwProgramVersion)
	}
	if len(m.Errors) > 0 {
		b = appendBytes(b, 6, m.Errors)
	}
	if m.ErrorID != 0 {
		b = appendUint32(b, 7, m.ErrorID)
	}
	if m.NodeID != 0 {
		b = appendUint32(b, 8, m.NodeID)
	}
	return b
}

func (m *CnAlarmNotification) Unmarshal(data []byte) error {
	*m = CnAlarmNotification{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		var v uint64
		switch num {
		case 1:
			n, err := consumeVarint(data, &v)
			m.Zone = uint32(v)
			return n, err
		case 2:
			n, err := consumeVarint(data, &v)
			m.ProductID = uint32(v)
			return n, err
		case 3:
			n, err := consumeVarint(data, &v)
			m.ProductVariant = uint32(v)
			return n, err
		case 4:
			return consumeString(data, &m.SerialNumber)
		case 5:
			n, err := consumeVarint(data, &v)
			m.SwProgramVersion = uint32(v)
			return n, err
		case 6:
			return consumeBytes(data, &m.Errors)
		case 7:
			n, err := consumeVarint(data, &v)
			m.ErrorID = uint32(v)
			return n, err
		case 8:
			n, err := consumeVarint(data, &v)
			m.NodeID = uint32(v)
			return n, err
		}
		return 0, nil
	})
}

// GatewayNotification is an unsolicited bridge-level event.
type GatewayNotification struct {
	PushUUIDs [][]byte
	Alarm     *CnAlarmNotification
}

func (m *GatewayNotification) Marshal() []byte {
	var b []byte
	for _, u := range m.PushUUIDs {
		b = appendBytes(b, 1, u)
	}
	if m.Alarm != nil {
		b = appendBytes(b, 2, m.Alarm.Marshal())
	}
	return b
}

func (m *GatewayNotification) Unmarshal(data []byte) error {
	*m = GatewayNotification{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		switch num {
		case 1:
			var raw []byte
			n, err := consumeBytes(data, &raw)
			if err != nil {
				return 0, err
			}
			m.PushUUIDs = append(m.PushUUIDs, raw)
			return n, nil
		case 2:
			var raw []byte
			n, err := consumeBytes(data, &raw)
			if err != nil {
				return 0, err
			}
			alarm := &CnAlarmNotification{}
			if err := alarm.Unmarshal(raw); err != nil {
				return 0, err
			}
			m.Alarm = alarm
			return n, nil
		}
		return 0, nil
	})
}

// CnNodeNotification announces a ComfoNet node appearing or changing mode.
type CnNodeNotification struct {
	NodeID    uint32
	ProductID uint32
	ZoneID    uint32
	Mode      uint32
}

func (m *CnNodeNotification) Marshal() []byte {
	var b []byte
	b = appendUint32(b, 1, m.NodeID)
	if m.ProductID != 0 {
		b = appendUint32(b, 2, m.ProductID)
	}
	if m.ZoneID != 0 {
		b = appendUint32(b, 3, m.ZoneID)
	}
	if m.Mode != 0 {
		b = appendUint32(b, 4, m.Mode)
	}
	return b
}

func (m *CnNodeNotification) Unmarshal(data []byte) error {
	*m = CnNodeNotification{}
	return eachField(data, func(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
		var v uint64
		switch num {
		case 1:
			n, err := consumeVarint(data, &v)
			m.NodeID = uint32(v)
			return n, err
		case 2:
			n, err := consumeVarint(data, &v)
			m.ProductID = uint32(v)
			return n, err
		case 3:
			n, err := consumeVarint(data, &v)
			m.ZoneID = uint32(v)
			return n, err
		case 4:
			n, err := consumeVarint(data, &v)
			m.Mode = uint32(v)
			return n, err
		}
		return 0, nil
	})
}
