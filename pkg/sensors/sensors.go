// Package sensors holds the static registry of process data objects the
// ventilation unit publishes, and decodes raw PDO samples into typed
// values.
package sensors

import (
	"github.com/openhvac/comfoconnect/pkg/rmi"
)

// Measurement units used in the registry.
const (
	UnitWatt    = "W"
	UnitKWh     = "kWh"
	UnitVolt    = "V"
	UnitCelsius = "°C"
	UnitPercent = "%"
	UnitRPM     = "rpm"
	UnitM3H     = "m³/h"
	UnitDays    = "days"
)

// Sensor describes one process data object: its id, sample type, and how
// the raw integer sample maps to a reported value.
type Sensor struct {
	ID   uint16
	Name string
	Unit string
	Type rmi.DataType

	// Scale multiplies the raw sample. Zero means unscaled.
	Scale float64

	// Transform overrides the default scaling when the value is not a
	// plain number (enumerations, bitmasks, booleans).
	Transform func(raw int64) any
}

// Value maps a raw sample to the reported value.
func (s Sensor) Value(raw int64) any {
	if s.Transform != nil {
		return s.Transform(raw)
	}
	if s.Scale != 0 && s.Scale != 1 {
		return float64(raw) * s.Scale
	}
	return raw
}

// Decode decodes a raw sample buffer and applies the sensor's transform.
func (s Sensor) Decode(data []byte) (any, error) {
	raw, err := rmi.DecodeValue(s.Type, data)
	if err != nil {
		return nil, err
	}
	return s.Value(raw), nil
}

// Well-known sensor ids.
const (
	SensorDeviceState            uint16 = 16
	SensorChangingFilters        uint16 = 18
	SensorOperatingModeBis       uint16 = 49
	SensorOperatingMode          uint16 = 56
	SensorFanSpeedSetting        uint16 = 65
	SensorBypassActivationMode   uint16 = 66
	SensorTemperatureProfile     uint16 = 67
	SensorNextFanChange          uint16 = 81
	SensorNextBypassChange       uint16 = 82
	SensorFanExhaustDuty         uint16 = 117
	SensorFanSupplyDuty          uint16 = 118
	SensorFanExhaustFlow         uint16 = 119
	SensorFanSupplyFlow          uint16 = 120
	SensorFanExhaustSpeed        uint16 = 121
	SensorFanSupplySpeed         uint16 = 122
	SensorPowerUsage             uint16 = 128
	SensorPowerUsageTotalYear    uint16 = 129
	SensorPowerUsageTotal        uint16 = 130
	SensorPreheaterPowerYear     uint16 = 144
	SensorPreheaterPowerTotal    uint16 = 145
	SensorPreheaterPower         uint16 = 146
	SensorDaysToReplaceFilter    uint16 = 192
	SensorUnitTemperature        uint16 = 208
	SensorRMOT                   uint16 = 209
	SensorSeasonHeatingActive    uint16 = 210
	SensorSeasonCoolingActive    uint16 = 211
	SensorTargetTemperature      uint16 = 212
	SensorAvoidedHeating         uint16 = 213
	SensorAvoidedHeatingYear     uint16 = 214
	SensorAvoidedHeatingTotal    uint16 = 215
	SensorAvoidedCooling         uint16 = 216
	SensorAvoidedCoolingYear     uint16 = 217
	SensorAvoidedCoolingTotal    uint16 = 218
	SensorTemperatureOutdoor     uint16 = 220
	SensorTemperaturePreheated   uint16 = 221
	SensorBypassState            uint16 = 227
	SensorAirflowConstraints     uint16 = 230
	SensorTemperatureExtract     uint16 = 274
	SensorTemperatureExhaust     uint16 = 275
	SensorTemperatureSupply      uint16 = 276
	SensorHumidityExtract        uint16 = 290
	SensorHumidityExhaust        uint16 = 291
	SensorHumidityOutdoor        uint16 = 292
	SensorHumidityPreheated      uint16 = 293
	SensorHumiditySupply         uint16 = 294
	SensorComfoFondTemperature   uint16 = 416
	SensorComfoFondGroundTemp    uint16 = 417
	SensorComfoCoolState         uint16 = 784
	SensorComfoCoolCondenserTemp uint16 = 785
)

func tenths(raw int64) any { return float64(raw) / 10 }

func boolValue(raw int64) any { return raw != 0 }

func temperatureUnit(raw int64) any {
	if raw == 0 {
		return "celsius"
	}
	return "fahrenheit"
}

// Registry is the table of known sensors, indexed by PDO id.
var Registry = map[uint16]Sensor{
	SensorDeviceState:          {ID: SensorDeviceState, Name: "Device State", Type: rmi.TypeUint8},
	SensorChangingFilters:      {ID: SensorChangingFilters, Name: "Changing filters", Type: rmi.TypeUint8},
	SensorOperatingModeBis:     {ID: SensorOperatingModeBis, Name: "Operating Mode (bis)", Type: rmi.TypeUint8},
	SensorOperatingMode:        {ID: SensorOperatingMode, Name: "Operating Mode", Type: rmi.TypeUint8},
	SensorFanSpeedSetting:      {ID: SensorFanSpeedSetting, Name: "Fan Speed Setting", Type: rmi.TypeUint8},
	SensorBypassActivationMode: {ID: SensorBypassActivationMode, Name: "Bypass Activation Mode", Type: rmi.TypeUint8},
	SensorTemperatureProfile:   {ID: SensorTemperatureProfile, Name: "Temperature Profile", Type: rmi.TypeUint8},
	SensorNextFanChange:        {ID: SensorNextFanChange, Name: "General: Countdown until next fan speed change", Type: rmi.TypeUint32},
	SensorNextBypassChange:     {ID: SensorNextBypassChange, Name: "Bypass: Countdown until next change", Type: rmi.TypeUint32},
	SensorFanExhaustDuty:       {ID: SensorFanExhaustDuty, Name: "Exhaust Fan Duty", Unit: UnitPercent, Type: rmi.TypeUint8},
	SensorFanSupplyDuty:        {ID: SensorFanSupplyDuty, Name: "Supply Fan Duty", Unit: UnitPercent, Type: rmi.TypeUint8},
	SensorFanExhaustFlow:       {ID: SensorFanExhaustFlow, Name: "Exhaust Fan Flow", Unit: UnitM3H, Type: rmi.TypeUint16},
	SensorFanSupplyFlow:        {ID: SensorFanSupplyFlow, Name: "Supply Fan Flow", Unit: UnitM3H, Type: rmi.TypeUint16},
	SensorFanExhaustSpeed:      {ID: SensorFanExhaustSpeed, Name: "Exhaust Fan Speed", Unit: UnitRPM, Type: rmi.TypeUint16},
	SensorFanSupplySpeed:       {ID: SensorFanSupplySpeed, Name: "Supply Fan Speed", Unit: UnitRPM, Type: rmi.TypeUint16},
	SensorPowerUsage:           {ID: SensorPowerUsage, Name: "Power Usage", Unit: UnitWatt, Type: rmi.TypeUint16},
	SensorPowerUsageTotalYear:  {ID: SensorPowerUsageTotalYear, Name: "Power Usage (year)", Unit: UnitKWh, Type: rmi.TypeUint16},
	SensorPowerUsageTotal:      {ID: SensorPowerUsageTotal, Name: "Power Usage (total)", Unit: UnitKWh, Type: rmi.TypeUint16},
	SensorPreheaterPowerYear:   {ID: SensorPreheaterPowerYear, Name: "Preheater Power Usage (year)", Unit: UnitKWh, Type: rmi.TypeUint16},
	SensorPreheaterPowerTotal:  {ID: SensorPreheaterPowerTotal, Name: "Preheater Power Usage (total)", Unit: UnitKWh, Type: rmi.TypeUint16},
	SensorPreheaterPower:       {ID: SensorPreheaterPower, Name: "Preheater Power Usage", Unit: UnitWatt, Type: rmi.TypeUint16},
	SensorDaysToReplaceFilter:  {ID: SensorDaysToReplaceFilter, Name: "Days remaining to replace the filter", Unit: UnitDays, Type: rmi.TypeUint16},
	SensorUnitTemperature:      {ID: SensorUnitTemperature, Name: "Device Temperature Unit", Type: rmi.TypeUint8, Transform: temperatureUnit},
	SensorRMOT:                 {ID: SensorRMOT, Name: "Running Mean Outdoor Temperature (RMOT)", Unit: UnitCelsius, Type: rmi.TypeInt16, Scale: 0.1},
	SensorSeasonHeatingActive:  {ID: SensorSeasonHeatingActive, Name: "Heating Season is active", Type: rmi.TypeBool, Transform: boolValue},
	SensorSeasonCoolingActive:  {ID: SensorSeasonCoolingActive, Name: "Cooling Season is active", Type: rmi.TypeBool, Transform: boolValue},
	SensorTargetTemperature:    {ID: SensorTargetTemperature, Name: "Target Temperature", Unit: UnitCelsius, Type: rmi.TypeInt16, Scale: 0.1},
	SensorAvoidedHeating:       {ID: SensorAvoidedHeating, Name: "Avoided Heating", Unit: UnitWatt, Type: rmi.TypeUint16},
	SensorAvoidedHeatingYear:   {ID: SensorAvoidedHeatingYear, Name: "Avoided Heating (year)", Unit: UnitKWh, Type: rmi.TypeUint16},
	SensorAvoidedHeatingTotal:  {ID: SensorAvoidedHeatingTotal, Name: "Avoided Heating (total)", Unit: UnitKWh, Type: rmi.TypeUint16},
	SensorAvoidedCooling:       {ID: SensorAvoidedCooling, Name: "Avoided Cooling", Unit: UnitWatt, Type: rmi.TypeUint16},
	SensorAvoidedCoolingYear:   {ID: SensorAvoidedCoolingYear, Name: "Avoided Cooling (year)", Unit: UnitKWh, Type: rmi.TypeUint16},
	SensorAvoidedCoolingTotal:  {ID: SensorAvoidedCoolingTotal, Name: "Avoided Cooling (total)", Unit: UnitKWh, Type: rmi.TypeUint16},
	SensorTemperatureOutdoor:   {ID: SensorTemperatureOutdoor, Name: "Outdoor Air Temperature", Unit: UnitCelsius, Type: rmi.TypeInt16, Scale: 0.1},
	SensorTemperaturePreheated: {ID: SensorTemperaturePreheated, Name: "Preheated Outdoor Air Temperature", Unit: UnitCelsius, Type: rmi.TypeInt16, Scale: 0.1},
	SensorBypassState:          {ID: SensorBypassState, Name: "Bypass State", Unit: UnitPercent, Type: rmi.TypeUint8},
	SensorAirflowConstraints: {ID: SensorAirflowConstraints, Name: "Airflow constraints", Type: rmi.TypeInt64, Transform: func(raw int64) any {
		return AirflowConstraints(raw)
	}},
	SensorTemperatureExtract:     {ID: SensorTemperatureExtract, Name: "Extract Air Temperature", Unit: UnitCelsius, Type: rmi.TypeInt16, Scale: 0.1},
	SensorTemperatureExhaust:     {ID: SensorTemperatureExhaust, Name: "Exhaust Air Temperature", Unit: UnitCelsius, Type: rmi.TypeInt16, Scale: 0.1},
	SensorTemperatureSupply:      {ID: SensorTemperatureSupply, Name: "Supply Air Temperature", Unit: UnitCelsius, Type: rmi.TypeInt16, Scale: 0.1},
	SensorHumidityExtract:        {ID: SensorHumidityExtract, Name: "Extract Air Humidity", Unit: UnitPercent, Type: rmi.TypeUint8},
	SensorHumidityExhaust:        {ID: SensorHumidityExhaust, Name: "Exhaust Air Humidity", Unit: UnitPercent, Type: rmi.TypeUint8},
	SensorHumidityOutdoor:        {ID: SensorHumidityOutdoor, Name: "Outdoor Air Humidity", Unit: UnitPercent, Type: rmi.TypeUint8},
	SensorHumidityPreheated:      {ID: SensorHumidityPreheated, Name: "Preheated Outdoor Air Humidity", Unit: UnitPercent, Type: rmi.TypeUint8},
	SensorHumiditySupply:         {ID: SensorHumiditySupply, Name: "Supply Air Humidity", Unit: UnitPercent, Type: rmi.TypeUint8},
	SensorComfoFondTemperature:   {ID: SensorComfoFondTemperature, Name: "ComfoFond Outdoor Air Temperature", Unit: UnitCelsius, Type: rmi.TypeInt16, Scale: 0.1},
	SensorComfoFondGroundTemp:    {ID: SensorComfoFondGroundTemp, Name: "ComfoFond Ground Temperature", Unit: UnitCelsius, Type: rmi.TypeInt16, Scale: 0.1},
	SensorComfoCoolState:         {ID: SensorComfoCoolState, Name: "ComfoCool State", Type: rmi.TypeUint8},
	SensorComfoCoolCondenserTemp: {ID: SensorComfoCoolCondenserTemp, Name: "ComfoCool Condenser Temperature", Unit: UnitCelsius, Type: rmi.TypeInt16, Scale: 0.1},
}

// Lookup returns the sensor definition for a PDO id.
func Lookup(id uint16) (Sensor, bool) {
	s, ok := Registry[id]
	return s, ok
}
