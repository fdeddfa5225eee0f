// Package message implements the wire protocol spoken by the ComfoConnect
// LAN C bridge: length-prefixed frames carrying a GatewayOperation protobuf
// and a typed payload protobuf.
//
// Wire layout of one frame (after the 4-byte big-endian length prefix
// handled by StreamReader/StreamWriter):
//
//	16 bytes  source UUID
//	16 bytes  destination UUID
//	 2 bytes  big-endian operation length
//	 n bytes  GatewayOperation protobuf
//	 m bytes  payload protobuf (type selected by the operation)
package message

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// GatewayOperation is the envelope header: the operation type selecting the
// payload message, the bridge's result code, and the correlation reference.
type GatewayOperation struct {
	Type              OperationType
	Result            Result
	ResultDescription string
	Reference         uint32
}

// Marshal encodes the operation in protobuf wire format. Fields at their
// proto2 default are omitted, matching the bridge's own encoder.
func (op *GatewayOperation) Marshal() []byte {
	var b []byte
	if op.Type != OpNoOperation {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(op.Type))
	}
	if op.Result != ResultOK {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(op.Result))
	}
	if op.ResultDescription != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, op.ResultDescription)
	}
	if op.Reference != 0 {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(op.Reference))
	}
	return b
}

// Unmarshal decodes the operation from protobuf wire format.
func (op *GatewayOperation) Unmarshal(data []byte) error {
	*op = GatewayOperation{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ErrMalformedOperation
		}
		data = data[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ErrMalformedOperation
			}
			op.Type = OperationType(v)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ErrMalformedOperation
			}
			op.Result = Result(v)
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return ErrMalformedOperation
			}
			op.ResultDescription = string(v)
			data = data[n:]
		case 4:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ErrMalformedOperation
			}
			op.Reference = uint32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return ErrMalformedOperation
			}
			data = data[n:]
		}
	}
	return nil
}

// Envelope is one complete message between the application and the bridge.
// Payload holds the inner protobuf in its encoded form; decode it with the
// typed payload struct selected by Op.Type.
type Envelope struct {
	Src     uuid.UUID
	Dst     uuid.UUID
	Op      GatewayOperation
	Payload []byte
}

// Encode serializes the envelope to its frame body (without length prefix).
func (e *Envelope) Encode() ([]byte, error) {
	opBuf := e.Op.Marshal()
	if len(opBuf) > 0xFFFF {
		return nil, ErrFrameTooLarge
	}

	buf := make([]byte, 0, MinFrameSize+len(opBuf)+len(e.Payload))
	buf = append(buf, e.Src[:]...)
	buf = append(buf, e.Dst[:]...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(opBuf)))
	buf = append(buf, opBuf...)
	buf = append(buf, e.Payload...)
	return buf, nil
}

// DecodeEnvelope parses a frame body into an envelope. The payload is kept
// encoded; callers decode it based on the operation type.
func DecodeEnvelope(frame []byte) (*Envelope, error) {
	if len(frame) < MinFrameSize {
		return nil, ErrFrameTooShort
	}

	e := &Envelope{}
	copy(e.Src[:], frame[0:16])
	copy(e.Dst[:], frame[16:32])

	opLen := int(binary.BigEndian.Uint16(frame[32:34]))
	if MinFrameSize+opLen > len(frame) {
		return nil, ErrFrameTooShort
	}

	if err := e.Op.Unmarshal(frame[34 : 34+opLen]); err != nil {
		return nil, err
	}

	if payload := frame[34+opLen:]; len(payload) > 0 {
		e.Payload = make([]byte, len(payload))
		copy(e.Payload, payload)
	}

	return e, nil
}

// String renders a compact transcript line for debug logging.
func (e *Envelope) String() string {
	return e.Src.String() + " -> " + e.Dst.String() +
		": " + e.Op.Type.String() +
		" ref=" + itoa(int(e.Op.Reference)) +
		" result=" + e.Op.Result.String() +
		" payload=" + hex.EncodeToString(e.Payload)
}
