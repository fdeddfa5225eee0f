// Package props holds the static registry of device properties addressable
// over the remote management interface.
package props

import "github.com/openhvac/comfoconnect/pkg/rmi"

// Property addresses one device property and carries its value type for
// decoding.
type Property struct {
	Unit       uint8
	Subunit    uint8
	PropertyID uint8
	Type       rmi.DataType
}

// Node property ids.
const (
	PropIDNodeSerialNumber = 0x04
	PropIDNodeFWVersion    = 0x06
	PropIDNodeModel        = 0x08
	PropIDNodeArticle      = 0x0B
	PropIDNodeCountry      = 0x0D
	PropIDNodeName         = 0x14
)

// Node configuration property ids.
const (
	PropIDMaintainerPassword = 0x03
)

// Temperature and humidity control property ids.
const (
	PropIDVentTempPassive  = 0x04
	PropIDVentHumiComfort  = 0x06
	PropIDVentHumiProtect  = 0x07
)

// Ventilation configuration property ids: the target airflow in m³/h for
// each speed preset.
const (
	PropIDFlowAway   = 0x03
	PropIDFlowLow    = 0x04
	PropIDFlowMedium = 0x05
	PropIDFlowHigh   = 0x06
)

var (
	SerialNumber    = Property{rmi.UnitNode, 0x01, PropIDNodeSerialNumber, rmi.TypeString}
	FirmwareVersion = Property{rmi.UnitNode, 0x01, PropIDNodeFWVersion, rmi.TypeUint32}
	Model           = Property{rmi.UnitNode, 0x01, PropIDNodeModel, rmi.TypeString}
	Article         = Property{rmi.UnitNode, 0x01, PropIDNodeArticle, rmi.TypeString}
	Country         = Property{rmi.UnitNode, 0x01, PropIDNodeCountry, rmi.TypeString}
	Name            = Property{rmi.UnitNode, 0x01, PropIDNodeName, rmi.TypeString}

	MaintainerPassword = Property{rmi.UnitNodeConfiguration, 0x01, PropIDMaintainerPassword, rmi.TypeString}

	SensorVentTempPassive       = Property{rmi.UnitTempHumControl, 0x01, PropIDVentTempPassive, rmi.TypeUint32}
	SensorVentHumidityComfort   = Property{rmi.UnitTempHumControl, 0x01, PropIDVentHumiComfort, rmi.TypeUint32}
	SensorVentHumidityProtection = Property{rmi.UnitTempHumControl, 0x01, PropIDVentHumiProtect, rmi.TypeUint32}

	FlowAway   = Property{rmi.UnitVentilationConfig, 0x01, PropIDFlowAway, rmi.TypeInt16}
	FlowLow    = Property{rmi.UnitVentilationConfig, 0x01, PropIDFlowLow, rmi.TypeInt16}
	FlowMedium = Property{rmi.UnitVentilationConfig, 0x01, PropIDFlowMedium, rmi.TypeInt16}
	FlowHigh   = Property{rmi.UnitVentilationConfig, 0x01, PropIDFlowHigh, rmi.TypeInt16}
)

// All lists every registered property, for enumeration by tooling.
var All = []Property{
	SerialNumber,
	FirmwareVersion,
	Model,
	Article,
	Country,
	Name,
	MaintainerPassword,
	SensorVentTempPassive,
	SensorVentHumidityComfort,
	SensorVentHumidityProtection,
	FlowAway,
	FlowLow,
	FlowMedium,
	FlowHigh,
}
