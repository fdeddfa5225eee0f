package comfoconnect

import (
	"context"
	"fmt"

	"github.com/openhvac/comfoconnect/pkg/rmi"
)

// The convenience methods below drive the ventilation unit's schedule
// subunits: an override (opcode 0x84) forces a value, a clear (0x85)
// returns the schedule to automatic control, a read (0x83) reports the
// current state. Byte layouts follow the appliance's RMI documentation.

// shortOverride is the timeout the mode and speed overrides are installed
// with. The unit treats it as "switch now".
const shortOverride int32 = 1

// GetMode returns the unit's main operating mode.
func (c *Client) GetMode(ctx context.Context) (VentilationMode, error) {
	msg, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleRead(rmi.UnitSchedule, rmi.SubunitMode, 0x01))
	if err != nil {
		return 0, err
	}
	if len(msg) == 0 {
		return 0, ErrUnexpectedResponse
	}
	if msg[0] == 1 {
		return ModeManual, nil
	}
	return ModeAuto, nil
}

// SetMode switches between automatic and manual operation.
func (c *Client) SetMode(ctx context.Context, mode VentilationMode) error {
	switch mode {
	case ModeAuto:
		_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitMode, 0x01))
		return err
	case ModeManual:
		_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleOverride(rmi.UnitSchedule, rmi.SubunitMode, 0x01, shortOverride, 0x01))
		return err
	default:
		return fmt.Errorf("%w: mode %d", ErrInvalidArgument, mode)
	}
}

// GetSpeed returns the current fan speed preset.
func (c *Client) GetSpeed(ctx context.Context) (VentilationSpeed, error) {
	msg, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleRead(rmi.UnitSchedule, rmi.SubunitFanSpeed, 0x01))
	if err != nil {
		return 0, err
	}
	if len(msg) == 0 {
		return 0, ErrUnexpectedResponse
	}
	speed := msg[len(msg)-1]
	if speed > uint8(SpeedHigh) {
		return 0, fmt.Errorf("%w: speed %d", ErrUnexpectedResponse, speed)
	}
	return VentilationSpeed(speed), nil
}

// SetSpeed selects a fan speed preset.
func (c *Client) SetSpeed(ctx context.Context, speed VentilationSpeed) error {
	if speed > SpeedHigh {
		return fmt.Errorf("%w: speed %d", ErrInvalidArgument, speed)
	}
	_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleOverride(rmi.UnitSchedule, rmi.SubunitFanSpeed, 0x01, shortOverride, uint8(speed)))
	return err
}

// GetBypass returns the bypass control state.
func (c *Client) GetBypass(ctx context.Context) (Setting, error) {
	msg, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleRead(rmi.UnitSchedule, rmi.SubunitBypass, 0x01))
	if err != nil {
		return 0, err
	}
	if len(msg) == 0 {
		return 0, ErrUnexpectedResponse
	}
	switch msg[len(msg)-1] {
	case 0:
		return SettingAuto, nil
	case 1:
		return SettingOn, nil
	case 2:
		return SettingOff, nil
	default:
		return 0, fmt.Errorf("%w: bypass %d", ErrUnexpectedResponse, msg[len(msg)-1])
	}
}

// SetBypass forces the bypass open (on), closed (off), or returns it to
// automatic control. timeout bounds the override in seconds;
// rmi.TimeoutIndefinite keeps it until cleared.
func (c *Client) SetBypass(ctx context.Context, setting Setting, timeout int32) error {
	switch setting {
	case SettingAuto:
		_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitBypass, 0x01))
		return err
	case SettingOn:
		_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleOverride(rmi.UnitSchedule, rmi.SubunitBypass, 0x01, timeout, 0x01))
		return err
	case SettingOff:
		_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleOverride(rmi.UnitSchedule, rmi.SubunitBypass, 0x01, timeout, 0x02))
		return err
	default:
		return fmt.Errorf("%w: bypass %d", ErrInvalidArgument, setting)
	}
}

// GetBalanceMode reports which fans run, derived from the supply and
// exhaust fan schedules.
func (c *Client) GetBalanceMode(ctx context.Context) (Balance, error) {
	supply, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleRead(rmi.UnitSchedule, rmi.SubunitSupplyFan, 0x01))
	if err != nil {
		return 0, err
	}
	exhaust, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleRead(rmi.UnitSchedule, rmi.SubunitExhaustFan, 0x01))
	if err != nil {
		return 0, err
	}
	if len(supply) == 0 || len(exhaust) == 0 {
		return 0, ErrUnexpectedResponse
	}

	switch {
	case supply[0] == exhaust[0]:
		return BalanceBoth, nil
	case supply[0] == 1 && exhaust[0] == 0:
		return BalanceSupplyOnly, nil
	case supply[0] == 0 && exhaust[0] == 1:
		return BalanceExhaustOnly, nil
	default:
		return 0, fmt.Errorf("%w: balance %d/%d", ErrUnexpectedResponse, supply[0], exhaust[0])
	}
}

// SetBalanceMode selects which fans run. timeout bounds the override in
// seconds; rmi.TimeoutIndefinite keeps it until cleared.
func (c *Client) SetBalanceMode(ctx context.Context, balance Balance, timeout int32) error {
	clearSupply := rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitSupplyFan, 0x01)
	clearExhaust := rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitExhaustFan, 0x01)

	switch balance {
	case BalanceBoth:
		if _, err := c.bridge.CmdRmiRequest(ctx, 1, clearSupply); err != nil {
			return err
		}
		_, err := c.bridge.CmdRmiRequest(ctx, 1, clearExhaust)
		return err
	case BalanceSupplyOnly:
		if _, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleOverride(rmi.UnitSchedule, rmi.SubunitSupplyFan, 0x01, timeout, 0x01)); err != nil {
			return err
		}
		_, err := c.bridge.CmdRmiRequest(ctx, 1, clearExhaust)
		return err
	case BalanceExhaustOnly:
		if _, err := c.bridge.CmdRmiRequest(ctx, 1, clearSupply); err != nil {
			return err
		}
		_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleOverride(rmi.UnitSchedule, rmi.SubunitExhaustFan, 0x01, timeout, 0x01))
		return err
	default:
		return fmt.Errorf("%w: balance %d", ErrInvalidArgument, balance)
	}
}

// GetBoost reports whether boost mode is active.
func (c *Client) GetBoost(ctx context.Context) (bool, error) {
	msg, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleRead(rmi.UnitSchedule, rmi.SubunitFanSpeed, 0x06))
	if err != nil {
		return false, err
	}
	if len(msg) == 0 {
		return false, ErrUnexpectedResponse
	}
	return msg[0] == 1, nil
}

// SetBoost activates boost (maximum speed) for timeout seconds, or
// deactivates it.
func (c *Client) SetBoost(ctx context.Context, active bool, timeout int32) error {
	if active {
		_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleOverride(rmi.UnitSchedule, rmi.SubunitFanSpeed, 0x06, timeout, uint8(SpeedHigh)))
		return err
	}
	_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitFanSpeed, 0x06))
	return err
}

// GetAway reports whether away mode is active.
func (c *Client) GetAway(ctx context.Context) (bool, error) {
	msg, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleRead(rmi.UnitSchedule, rmi.SubunitFanSpeed, 0x0B))
	if err != nil {
		return false, err
	}
	if len(msg) == 0 {
		return false, ErrUnexpectedResponse
	}
	return msg[0] == 1, nil
}

// SetAway activates away (minimum speed) for timeout seconds, or
// deactivates it.
func (c *Client) SetAway(ctx context.Context, active bool, timeout int32) error {
	if active {
		_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleOverride(rmi.UnitSchedule, rmi.SubunitFanSpeed, 0x0B, timeout, uint8(SpeedAway)))
		return err
	}
	_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitFanSpeed, 0x0B))
	return err
}

// GetComfoCoolMode reports the ComfoCool control state.
func (c *Client) GetComfoCoolMode(ctx context.Context) (ComfoCoolMode, error) {
	msg, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleRead(rmi.UnitSchedule, rmi.SubunitComfoCool, 0x01))
	if err != nil {
		return 0, err
	}
	if len(msg) == 0 {
		return 0, ErrUnexpectedResponse
	}
	if msg[0] == 0 {
		return ComfoCoolAuto, nil
	}
	return ComfoCoolOff, nil
}

// SetComfoCoolMode switches the ComfoCool between automatic control and
// forced off. timeout bounds the off override in seconds.
func (c *Client) SetComfoCoolMode(ctx context.Context, mode ComfoCoolMode, timeout int32) error {
	switch mode {
	case ComfoCoolAuto:
		_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitComfoCool, 0x01))
		return err
	case ComfoCoolOff:
		_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleOverride(rmi.UnitSchedule, rmi.SubunitComfoCool, 0x01, timeout, 0x00))
		return err
	default:
		return fmt.Errorf("%w: comfocool %d", ErrInvalidArgument, mode)
	}
}

// GetTemperatureProfile returns the active comfort temperature profile.
func (c *Client) GetTemperatureProfile(ctx context.Context) (TemperatureProfile, error) {
	msg, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleRead(rmi.UnitSchedule, rmi.SubunitTemperatureProfile, 0x01))
	if err != nil {
		return 0, err
	}
	if len(msg) == 0 {
		return 0, ErrUnexpectedResponse
	}
	profile := msg[len(msg)-1]
	if profile > uint8(ProfileWarm) {
		return 0, fmt.Errorf("%w: profile %d", ErrUnexpectedResponse, profile)
	}
	return TemperatureProfile(profile), nil
}

// SetTemperatureProfile selects the comfort temperature profile. timeout
// bounds the override in seconds; rmi.TimeoutIndefinite keeps it until
// cleared.
func (c *Client) SetTemperatureProfile(ctx context.Context, profile TemperatureProfile, timeout int32) error {
	if profile > ProfileWarm {
		return fmt.Errorf("%w: profile %d", ErrInvalidArgument, profile)
	}
	_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ScheduleOverride(rmi.UnitSchedule, rmi.SubunitTemperatureProfile, 0x01, timeout, uint8(profile)))
	return err
}

// ClearErrors acknowledges and clears the unit's active errors.
func (c *Client) ClearErrors(ctx context.Context) error {
	_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.ResetErrors())
	return err
}
