package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/openhvac/comfoconnect/pkg/message"
	"github.com/openhvac/comfoconnect/pkg/rmi"
)

// CmdStartSession starts the session explicitly. Connect already does
// this; the command exists as a low-level escape hatch.
func (b *Bridge) CmdStartSession(ctx context.Context, takeover bool) (*message.StartSessionConfirm, error) {
	env, err := b.roundTrip(ctx, b.config.RequestTimeout, message.OpStartSessionRequest, &message.StartSessionRequest{Takeover: takeover})
	if err != nil {
		return nil, err
	}
	confirm := &message.StartSessionConfirm{}
	if err := confirm.Unmarshal(env.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	return confirm, nil
}

// CmdCloseSession asks the bridge to close the session. The bridge does
// not reply before dropping the connection, so no reply is awaited.
func (b *Bridge) CmdCloseSession() error {
	return b.send(message.OpCloseSessionRequest, message.Empty{})
}

// CmdListRegisteredApps returns the applications registered on the bridge.
func (b *Bridge) CmdListRegisteredApps(ctx context.Context) ([]message.RegisteredApp, error) {
	if err := b.requireOpen(); err != nil {
		return nil, err
	}
	env, err := b.roundTrip(ctx, b.config.RequestTimeout, message.OpListRegisteredAppsRequest, message.Empty{})
	if err != nil {
		return nil, err
	}
	confirm := &message.ListRegisteredAppsConfirm{}
	if err := confirm.Unmarshal(env.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	return confirm.Apps, nil
}

// CmdRegisterApp registers an application on the bridge using the PIN.
func (b *Bridge) CmdRegisterApp(ctx context.Context, appUUID uuid.UUID, deviceName string, pin uint32) error {
	if err := b.requireOpen(); err != nil {
		return err
	}
	req := &message.RegisterAppRequest{UUID: appUUID, Pin: pin, DeviceName: deviceName}
	_, err := b.roundTrip(ctx, b.config.RequestTimeout, message.OpRegisterAppRequest, req)
	var gw *GatewayError
	if errors.As(err, &gw) && gw.Result == message.ResultNotAllowed {
		return fmt.Errorf("%w: %v", ErrBadPin, err)
	}
	return err
}

// CmdDeregisterApp removes an application registration from the bridge.
// Deregistering the session's own uuid is refused.
func (b *Bridge) CmdDeregisterApp(ctx context.Context, appUUID uuid.UUID) error {
	if appUUID == b.config.LocalUUID {
		return ErrSelfDeregistration
	}
	if err := b.requireOpen(); err != nil {
		return err
	}
	_, err := b.roundTrip(ctx, b.config.RequestTimeout, message.OpDeregisterAppRequest, &message.DeregisterAppRequest{UUID: appUUID})
	return err
}

// CmdChangePin replaces the bridge's registration PIN.
func (b *Bridge) CmdChangePin(ctx context.Context, oldPin, newPin uint32) error {
	if err := b.requireOpen(); err != nil {
		return err
	}
	_, err := b.roundTrip(ctx, b.config.RequestTimeout, message.OpChangePinRequest, &message.ChangePinRequest{OldPin: oldPin, NewPin: newPin})
	return err
}

// CmdVersionRequest returns the bridge's version information.
func (b *Bridge) CmdVersionRequest(ctx context.Context) (*message.VersionConfirm, error) {
	if err := b.requireOpen(); err != nil {
		return nil, err
	}
	env, err := b.roundTrip(ctx, b.config.RequestTimeout, message.OpVersionRequest, message.Empty{})
	if err != nil {
		return nil, err
	}
	confirm := &message.VersionConfirm{}
	if err := confirm.Unmarshal(env.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	return confirm, nil
}

// CmdTimeRequest reads the unit clock as seconds since 2000-01-01 UTC.
// A non-zero setTime also sets the clock.
func (b *Bridge) CmdTimeRequest(ctx context.Context, setTime uint32) (uint32, error) {
	if err := b.requireOpen(); err != nil {
		return 0, err
	}
	env, err := b.roundTrip(ctx, b.config.RequestTimeout, message.OpCnTimeRequest, &message.CnTimeRequest{SetTime: setTime})
	if err != nil {
		return 0, err
	}
	confirm := &message.CnTimeConfirm{}
	if err := confirm.Unmarshal(env.Payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	return confirm.CurrentTime, nil
}

// CmdRmiRequest tunnels a raw RMI byte string to the node and returns the
// response payload. A non-zero RMI status surfaces as *rmi.Error.
func (b *Bridge) CmdRmiRequest(ctx context.Context, nodeID uint8, msg []byte) ([]byte, error) {
	if err := b.requireOpen(); err != nil {
		return nil, err
	}
	if nodeID == 0 {
		nodeID = 1
	}
	req := &message.CnRmiRequest{NodeID: uint32(nodeID), Message: msg}
	env, err := b.roundTrip(ctx, b.config.RequestTimeout, message.OpCnRmiRequest, req)
	if err != nil {
		return nil, err
	}
	resp := &message.CnRmiResponse{}
	if err := resp.Unmarshal(env.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	if resp.Result != 0 {
		return nil, &rmi.Error{Status: uint8(resp.Result)}
	}
	return resp.Message, nil
}

// CmdRpdoRequest subscribes to a process data object. A nil timeout keeps
// the subscription alive indefinitely; a zero timeout cancels it.
func (b *Bridge) CmdRpdoRequest(ctx context.Context, pdid uint16, pdoType uint8, zone uint8, timeout *uint32) error {
	if err := b.requireOpen(); err != nil {
		return err
	}
	if zone == 0 {
		zone = 1
	}
	req := &message.CnRpdoRequest{
		Pdid:    uint32(pdid),
		Zone:    uint32(zone),
		Type:    uint32(pdoType),
		Timeout: timeout,
	}
	_, err := b.roundTrip(ctx, b.config.RequestTimeout, message.OpCnRpdoRequest, req)
	return err
}

// CmdKeepalive sends a keepalive. Fire-and-forget: the bridge never
// replies and no pending slot is allocated.
func (b *Bridge) CmdKeepalive() error {
	return b.send(message.OpKeepAlive, message.Empty{})
}
