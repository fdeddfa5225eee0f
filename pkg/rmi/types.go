package rmi

import (
	"encoding/binary"
	"time"
)

// DataType is a ComfoNet value type code, shared by RMI properties and
// RPDO samples.
type DataType uint8

const (
	TypeBool    DataType = 0x00
	TypeUint8   DataType = 0x01
	TypeUint16  DataType = 0x02
	TypeUint32  DataType = 0x03
	TypeInt8    DataType = 0x05
	TypeInt16   DataType = 0x06
	TypeInt64   DataType = 0x08
	TypeString  DataType = 0x09
	TypeTime    DataType = 0x10
	TypeVersion DataType = 0x11
)

// comfoNetEpoch is the zero point of TypeTime values.
var comfoNetEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Width returns the encoded size in bytes, or 0 for variable-width types.
func (t DataType) Width() int {
	switch t {
	case TypeBool, TypeUint8, TypeInt8:
		return 1
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint32, TypeVersion:
		return 4
	case TypeInt64, TypeTime:
		return 8
	default:
		return 0
	}
}

// Signed reports whether values of this type are sign-extended on decode.
func (t DataType) Signed() bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt64:
		return true
	default:
		return false
	}
}

func (t DataType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeUint32:
		return "uint32"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt64:
		return "int64"
	case TypeString:
		return "string"
	case TypeTime:
		return "time"
	case TypeVersion:
		return "version"
	default:
		return "unknown"
	}
}

// EncodeValue encodes an integer value in the little-endian fixed-width
// form the appliance expects for t. Booleans encode as a single 0/1 byte.
func EncodeValue(t DataType, value int64) ([]byte, error) {
	switch t {
	case TypeBool:
		if value != 0 {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case TypeUint8, TypeInt8:
		return []byte{byte(value)}, nil
	case TypeUint16, TypeInt16:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(value))
		return b[:], nil
	case TypeUint32:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(value))
		return b[:], nil
	case TypeInt64, TypeTime:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(value))
		return b[:], nil
	default:
		return nil, ErrUnsupportedType
	}
}

// DecodeValue decodes a little-endian value of type t, sign-extending
// signed types. Short input fails with ErrShortValue.
func DecodeValue(t DataType, data []byte) (int64, error) {
	width := t.Width()
	if width == 0 {
		return 0, ErrUnsupportedType
	}
	if len(data) < width {
		return 0, ErrShortValue
	}

	var raw uint64
	for i := width - 1; i >= 0; i-- {
		raw = raw<<8 | uint64(data[i])
	}

	if t.Signed() {
		shift := uint(64 - 8*width)
		return int64(raw<<shift) >> shift, nil
	}
	return int64(raw), nil
}

// DecodeString decodes a NUL-terminated UTF-8 string value.
func DecodeString(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

// EncodeTime encodes a wall-clock time as seconds since the ComfoNet epoch
// (2000-01-01 UTC).
func EncodeTime(t time.Time) int64 {
	return int64(t.Sub(comfoNetEpoch) / time.Second)
}

// DecodeTime converts ComfoNet epoch seconds back to wall-clock time.
func DecodeTime(seconds int64) time.Time {
	return comfoNetEpoch.Add(time.Duration(seconds) * time.Second)
}
