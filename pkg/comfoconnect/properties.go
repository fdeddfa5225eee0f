package comfoconnect

import (
	"context"
	"fmt"

	"github.com/openhvac/comfoconnect/pkg/props"
	"github.com/openhvac/comfoconnect/pkg/rmi"
)

// GetProperty reads a property and decodes it per its registered type:
// string for rmi.TypeString, bool for rmi.TypeBool, int64 otherwise.
func (c *Client) GetProperty(ctx context.Context, p props.Property) (any, error) {
	return c.GetPropertyOnNode(ctx, p, 1)
}

// GetPropertyOnNode reads a property from a specific ComfoNet node.
func (c *Client) GetPropertyOnNode(ctx context.Context, p props.Property, nodeID uint8) (any, error) {
	msg, err := c.bridge.CmdRmiRequest(ctx, nodeID, rmi.GetProperty(p.Unit, p.Subunit, p.PropertyID))
	if err != nil {
		return nil, err
	}

	switch p.Type {
	case rmi.TypeString:
		return rmi.DecodeString(msg), nil
	case rmi.TypeBool:
		if len(msg) == 0 {
			return nil, rmi.ErrShortValue
		}
		return msg[0] == 1, nil
	default:
		return rmi.DecodeValue(p.Type, msg)
	}
}

// SetProperty writes an integer property, encoding value per the
// property's registered type.
func (c *Client) SetProperty(ctx context.Context, p props.Property, value int64) error {
	msg, err := rmi.SetPropertyTyped(p.Unit, p.Subunit, p.PropertyID, p.Type, value)
	if err != nil {
		return err
	}
	_, err = c.bridge.CmdRmiRequest(ctx, 1, msg)
	return err
}

// GetMultipleProperties reads several properties of one subunit in a
// single RMI round-trip and returns the raw response payload.
func (c *Client) GetMultipleProperties(ctx context.Context, unit, subunit uint8, propertyIDs []uint8) ([]byte, error) {
	return c.bridge.CmdRmiRequest(ctx, 1, rmi.GetMultiple(unit, subunit, propertyIDs))
}

// flowProperty maps a speed preset to its airflow configuration property.
func flowProperty(speed VentilationSpeed) (props.Property, error) {
	switch speed {
	case SpeedAway:
		return props.FlowAway, nil
	case SpeedLow:
		return props.FlowLow, nil
	case SpeedMedium:
		return props.FlowMedium, nil
	case SpeedHigh:
		return props.FlowHigh, nil
	default:
		return props.Property{}, fmt.Errorf("%w: speed %d", ErrInvalidArgument, speed)
	}
}

// GetFlowForSpeed returns the configured airflow in m³/h for a speed
// preset.
func (c *Client) GetFlowForSpeed(ctx context.Context, speed VentilationSpeed) (int, error) {
	p, err := flowProperty(speed)
	if err != nil {
		return 0, err
	}
	msg, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.GetProperty(p.Unit, p.Subunit, p.PropertyID))
	if err != nil {
		return 0, err
	}
	flow, err := rmi.DecodeValue(p.Type, msg)
	if err != nil {
		return 0, err
	}
	return int(flow), nil
}

// SetFlowForSpeed configures the target airflow in m³/h for a speed
// preset.
func (c *Client) SetFlowForSpeed(ctx context.Context, speed VentilationSpeed, flow int) error {
	p, err := flowProperty(speed)
	if err != nil {
		return err
	}
	return c.SetProperty(ctx, p, int64(flow))
}

// sensorVentmode reads one of the sensor-based ventilation controls.
func (c *Client) sensorVentmode(ctx context.Context, p props.Property) (Setting, error) {
	msg, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.GetProperty(p.Unit, p.Subunit, p.PropertyID))
	if err != nil {
		return 0, err
	}
	if len(msg) == 0 {
		return 0, ErrUnexpectedResponse
	}
	mode := msg[0]
	if mode > uint8(SettingOn) {
		return 0, fmt.Errorf("%w: ventmode %d", ErrUnexpectedResponse, mode)
	}
	return Setting(mode), nil
}

// setSensorVentmode writes one of the sensor-based ventilation controls.
func (c *Client) setSensorVentmode(ctx context.Context, p props.Property, setting Setting) error {
	if setting > SettingOn {
		return fmt.Errorf("%w: ventmode %d", ErrInvalidArgument, setting)
	}
	_, err := c.bridge.CmdRmiRequest(ctx, 1, rmi.SetProperty(p.Unit, p.Subunit, p.PropertyID, []byte{uint8(setting)}))
	return err
}

// GetSensorVentmodeTemperaturePassive reads the passive temperature
// control (off / auto / on).
func (c *Client) GetSensorVentmodeTemperaturePassive(ctx context.Context) (Setting, error) {
	return c.sensorVentmode(ctx, props.SensorVentTempPassive)
}

// SetSensorVentmodeTemperaturePassive configures the passive temperature
// control.
func (c *Client) SetSensorVentmodeTemperaturePassive(ctx context.Context, setting Setting) error {
	return c.setSensorVentmode(ctx, props.SensorVentTempPassive, setting)
}

// GetSensorVentmodeHumidityComfort reads the comfort humidity control.
func (c *Client) GetSensorVentmodeHumidityComfort(ctx context.Context) (Setting, error) {
	return c.sensorVentmode(ctx, props.SensorVentHumidityComfort)
}

// SetSensorVentmodeHumidityComfort configures the comfort humidity
// control.
func (c *Client) SetSensorVentmodeHumidityComfort(ctx context.Context, setting Setting) error {
	return c.setSensorVentmode(ctx, props.SensorVentHumidityComfort, setting)
}

// GetSensorVentmodeHumidityProtection reads the humidity protection
// control.
func (c *Client) GetSensorVentmodeHumidityProtection(ctx context.Context) (Setting, error) {
	return c.sensorVentmode(ctx, props.SensorVentHumidityProtection)
}

// SetSensorVentmodeHumidityProtection configures the humidity protection
// control.
func (c *Client) SetSensorVentmodeHumidityProtection(ctx context.Context, setting Setting) error {
	return c.setSensorVentmode(ctx, props.SensorVentHumidityProtection, setting)
}
