package rmi

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
	"time"
)

func TestValueRoundtrip(t *testing.T) {
	tests := []struct {
		typ    DataType
		values []int64
	}{
		{TypeBool, []int64{0, 1}},
		{TypeUint8, []int64{0, 1, 127, 255}},
		{TypeInt8, []int64{-128, -1, 0, 127}},
		{TypeUint16, []int64{0, 256, 65535}},
		{TypeInt16, []int64{-32768, -240, -1, 0, 2400, 32767}},
		{TypeUint32, []int64{0, 1 << 24, 4294967295}},
		{TypeInt64, []int64{-1 << 62, -1, 0, 1 << 62}},
	}

	for _, tt := range tests {
		for _, v := range tt.values {
			encoded, err := EncodeValue(tt.typ, v)
			if err != nil {
				t.Fatalf("EncodeValue(%s, %d) failed: %v", tt.typ, v, err)
			}
			if len(encoded) != tt.typ.Width() {
				t.Errorf("EncodeValue(%s, %d) produced %d bytes, want %d", tt.typ, v, len(encoded), tt.typ.Width())
			}

			want := v
			if tt.typ == TypeBool && v != 0 {
				want = 1
			}
			decoded, err := DecodeValue(tt.typ, encoded)
			if err != nil {
				t.Fatalf("DecodeValue(%s) failed: %v", tt.typ, err)
			}
			if decoded != want {
				t.Errorf("roundtrip %s %d: got %d", tt.typ, v, decoded)
			}
		}
	}
}

func TestDecodeValueSignExtension(t *testing.T) {
	// -1 as int16 little-endian
	v, err := DecodeValue(TypeInt16, []byte{0xFF, 0xFF})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if v != -1 {
		t.Errorf("got %d, want -1", v)
	}

	// 0xFFFF as uint16 must not sign-extend
	v, err = DecodeValue(TypeUint16, []byte{0xFF, 0xFF})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if v != 65535 {
		t.Errorf("got %d, want 65535", v)
	}
}

func TestDecodeValueShortBuffer(t *testing.T) {
	_, err := DecodeValue(TypeUint32, []byte{0x01, 0x02})
	if !errors.Is(err, ErrShortValue) {
		t.Errorf("got %v, want ErrShortValue", err)
	}
}

func TestDecodeValueUnsupportedType(t *testing.T) {
	_, err := DecodeValue(TypeString, []byte{0x01})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("got %v, want ErrUnsupportedType", err)
	}
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		input []byte
		want  string
	}{
		{[]byte("ComfoAir Q450\x00\x00\x00"), "ComfoAir Q450"},
		{[]byte("no terminator"), "no terminator"},
		{[]byte{0x00}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := DecodeString(tt.input); got != tt.want {
			t.Errorf("DecodeString(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGetPropertyEncoding(t *testing.T) {
	got := GetProperty(UnitTempHumControl, 0x01, 0x04)
	want := []byte{0x01, 0x1D, 0x01, 0x10, 0x04}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestGetMultipleEncoding(t *testing.T) {
	got := GetMultiple(UnitNode, 0x01, []uint8{0x04, 0x06, 0x08})
	want := []byte{0x02, 0x01, 0x01, 0x01, 0x13, 0x04, 0x06, 0x08}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestSetPropertyEncoding(t *testing.T) {
	got := SetProperty(UnitTempHumControl, 0x01, 0x04, []byte{0x01})
	want := []byte{0x03, 0x1D, 0x01, 0x04, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestSetPropertyTypedEncoding(t *testing.T) {
	got, err := SetPropertyTyped(UnitVentilationConfig, 0x01, 0x04, TypeInt16, 185)
	if err != nil {
		t.Fatalf("SetPropertyTyped failed: %v", err)
	}
	want := []byte{0x03, 0x1E, 0x01, 0x04, 0xB9, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestScheduleOverrideEncoding(t *testing.T) {
	// The speed override for "low": schedule 1 of the fan speed subunit.
	got := ScheduleOverride(UnitSchedule, SubunitFanSpeed, 0x01, 1, 0x01)
	want, _ := hex.DecodeString("84150101000000000100000001")
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestScheduleOverrideIndefiniteTimeout(t *testing.T) {
	got := ScheduleOverride(UnitSchedule, SubunitBypass, 0x01, TimeoutIndefinite, 0x02)
	want, _ := hex.DecodeString("8415020100000000ffffffff02")
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestScheduleReadAndClearEncoding(t *testing.T) {
	if got, want := ScheduleRead(UnitSchedule, SubunitMode, 0x01), []byte{0x83, 0x15, 0x08, 0x01}; !bytes.Equal(got, want) {
		t.Errorf("read: got %x, want %x", got, want)
	}
	if got, want := ScheduleClear(UnitSchedule, SubunitMode, 0x01), []byte{0x85, 0x15, 0x08, 0x01}; !bytes.Equal(got, want) {
		t.Errorf("clear: got %x, want %x", got, want)
	}
}

func TestResetErrorsEncoding(t *testing.T) {
	if got, want := ResetErrors(), []byte{0x82, 0x03, 0x01}; !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestTimeRoundtrip(t *testing.T) {
	epoch := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	if EncodeTime(epoch) != 0 {
		t.Errorf("epoch should encode to 0")
	}

	moment := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	seconds := EncodeTime(moment)
	if DecodeTime(seconds) != moment {
		t.Errorf("roundtrip mismatch: %s", DecodeTime(seconds))
	}
}
