// Package rmi builds and parses the raw byte strings of the appliance's
// remote management interface. An RMI message starts with an opcode byte,
// followed by unit and subunit addressing and opcode-specific arguments.
// All multi-byte arguments are little-endian.
package rmi

import "encoding/binary"

// RMI opcodes.
const (
	opGetProperty      = 0x01
	opGetMultiple      = 0x02
	opSetProperty      = 0x03
	opReset            = 0x82
	opScheduleRead     = 0x83
	opScheduleOverride = 0x84
	opScheduleClear    = 0x85
)

// propertyFlag marks the argument as a property id in get/multi-get
// requests.
const propertyFlag = 0x10

// Unit identifiers of the ventilation unit's internal subsystems.
const (
	UnitNode              = 0x01
	UnitComfoBus          = 0x02
	UnitError             = 0x03
	UnitSchedule          = 0x15
	UnitValve             = 0x16
	UnitFan               = 0x17
	UnitPowerSensor       = 0x18
	UnitPreheater         = 0x19
	UnitHMI               = 0x1A
	UnitRFCommunication   = 0x1B
	UnitFilter            = 0x1C
	UnitTempHumControl    = 0x1D
	UnitVentilationConfig = 0x1E
	UnitNodeConfiguration = 0x20
	UnitTemperatureSensor = 0x21
	UnitHumiditySensor    = 0x22
	UnitPressureSensor    = 0x23
	UnitPeripherals       = 0x24
	UnitAnalogInput       = 0x25
	UnitCookerHood        = 0x26
	UnitPostHeater        = 0x27
	UnitComfoFond         = 0x28
	UnitCO2Sensor         = 0x2B
	UnitServicePrint      = 0x2C
)

// Schedule subunits. Each subunit holds one overridable schedule of the
// ventilation unit.
const (
	SubunitFanSpeed           = 0x01
	SubunitBypass             = 0x02
	SubunitTemperatureProfile = 0x03
	SubunitComfoCool          = 0x05
	SubunitSupplyFan          = 0x06
	SubunitExhaustFan         = 0x07
	SubunitMode               = 0x08
)

// TimeoutIndefinite requests an override that stays active until cleared.
const TimeoutIndefinite int32 = -1

// GetProperty builds a typed property read: opcode 0x01, unit, subunit,
// property flag, property id.
func GetProperty(unit, subunit, propertyID uint8) []byte {
	return []byte{opGetProperty, unit, subunit, propertyFlag, propertyID}
}

// GetMultiple builds a multi-property read: opcode 0x02 with the property
// count folded into the flag byte.
func GetMultiple(unit, subunit uint8, propertyIDs []uint8) []byte {
	msg := make([]byte, 0, 5+len(propertyIDs))
	msg = append(msg, opGetMultiple, unit, subunit, 0x01, propertyFlag|uint8(len(propertyIDs)))
	return append(msg, propertyIDs...)
}

// SetProperty builds a property write with a pre-encoded value.
func SetProperty(unit, subunit, propertyID uint8, value []byte) []byte {
	msg := make([]byte, 0, 4+len(value))
	msg = append(msg, opSetProperty, unit, subunit, propertyID)
	return append(msg, value...)
}

// SetPropertyTyped builds a property write, encoding value per t.
func SetPropertyTyped(unit, subunit, propertyID uint8, t DataType, value int64) ([]byte, error) {
	encoded, err := EncodeValue(t, value)
	if err != nil {
		return nil, err
	}
	return SetProperty(unit, subunit, propertyID, encoded), nil
}

// ScheduleRead builds a read of a schedule's current state.
func ScheduleRead(unit, subunit, schedule uint8) []byte {
	return []byte{opScheduleRead, unit, subunit, schedule}
}

// ScheduleOverride builds a schedule override: zero start offset, a signed
// timeout in seconds (TimeoutIndefinite keeps the override until cleared),
// and the override value.
func ScheduleOverride(unit, subunit, schedule uint8, timeout int32, value uint8) []byte {
	msg := make([]byte, 0, 13)
	msg = append(msg, opScheduleOverride, unit, subunit, schedule)
	msg = append(msg, 0x00, 0x00, 0x00, 0x00)
	msg = binary.LittleEndian.AppendUint32(msg, uint32(timeout))
	return append(msg, value)
}

// ScheduleClear builds a removal of a schedule override, returning the
// schedule to automatic control.
func ScheduleClear(unit, subunit, schedule uint8) []byte {
	return []byte{opScheduleClear, unit, subunit, schedule}
}

// ResetErrors builds the error-unit reset that clears active alarms.
func ResetErrors() []byte {
	return []byte{opReset, UnitError, 0x01}
}
