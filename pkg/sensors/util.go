package sensors

import (
	"encoding/binary"
	"strconv"
)

const (
	canIDOffset = 0x40
	pdoShift    = 14
)

// constraintBits maps airflow-constraint bit positions to their names.
var constraintBits = []struct {
	bit  int
	name string
}{
	{2, "Resistance"},
	{3, "Resistance"},
	{4, "PreheaterNegative"},
	{5, "NoiseGuard"},
	{6, "ResistanceGuard"},
	{7, "NoiseGuard"},
	{8, "ResistanceGuard"},
	{9, "FrostProtection"},
	{10, "Bypass"},
	{12, "AnalogInput1"},
	{13, "AnalogInput2"},
	{14, "AnalogInput3"},
	{15, "AnalogInput4"},
	{16, "Hood"},
	{18, "AnalogPreset"},
	{19, "ComfoCool"},
	{22, "PreheaterPositive"},
	{23, "RFSensorFlowPreset"},
	{24, "RFSensorFlowProportional"},
	{25, "TemperatureComfort"},
	{26, "HumidityComfort"},
	{27, "HumidityProtection"},
	{47, "CO2ZoneX1"},
	{48, "CO2ZoneX2"},
	{49, "CO2ZoneX3"},
	{50, "CO2ZoneX4"},
	{51, "CO2ZoneX5"},
	{52, "CO2ZoneX6"},
	{53, "CO2ZoneX7"},
	{54, "CO2ZoneX8"},
}

// AirflowConstraints decodes the airflow-constraint bitmask into the names
// of the active constraints. Bit 45 marks the mask as valid; nil is
// returned when it is not set.
func AirflowConstraints(value int64) []string {
	if value&(1<<45) == 0 {
		return nil
	}

	var constraints []string
	for _, c := range constraintBits {
		if value&(1<<uint(c.bit)) == 0 {
			continue
		}
		duplicate := false
		for _, seen := range constraints {
			if seen == c.name {
				duplicate = true
				break
			}
		}
		if !duplicate {
			constraints = append(constraints, c.name)
		}
	}
	return constraints
}

// VersionDecode renders the packed firmware version number the bridge
// reports into the form "<release type><major>.<minor>.<patch>".
func VersionDecode(version uint32) string {
	releaseType := version >> 30 & 3
	major := version >> 20 & 1023
	minor := version >> 10 & 1023
	patch := version & 1023

	var prefix string
	switch releaseType {
	case 0:
		prefix = "U"
	case 1:
		prefix = "D"
	case 2:
		prefix = "P"
	case 3:
		prefix = "R"
	}

	return prefix + strconv.Itoa(int(major)) + "." + strconv.Itoa(int(minor)) + "." + strconv.Itoa(int(patch))
}

// PDOToCAN converts a PDO id to the 29-bit CAN id it occupies on the
// ComfoNet bus.
func PDOToCAN(pdo uint16, nodeID uint8) uint32 {
	return uint32(pdo)<<pdoShift + canIDOffset + uint32(nodeID)
}

// CANToPDO recovers the PDO id from a CAN id.
func CANToPDO(can uint32, nodeID uint8) uint16 {
	return uint16((can - canIDOffset - uint32(nodeID)) >> pdoShift)
}

// CANToPDOBytes recovers the PDO id from a big-endian CAN id buffer as
// found in packet captures.
func CANToPDOBytes(can []byte, nodeID uint8) uint16 {
	if len(can) != 4 {
		return 0
	}
	return CANToPDO(binary.BigEndian.Uint32(can), nodeID)
}
