package amf0

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"github.com/pkg/errors"
)

// Encode returns the AMF0 representation of v. Besides the decoded value types it accepts
// int, uint32 and float32, which are encoded as numbers.
func Encode(v Value) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := encode(buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeAll encodes values back to back, which is how command and data message bodies are laid out.
func EncodeAll(values ...Value) ([]byte, error) {
	buf := &bytes.Buffer{}
	for _, v := range values {
		if err := encode(buf, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v Value) error {
	switch v := v.(type) {
	case nil:
		buf.WriteByte(TypeNull)
	case Undefined:
		buf.WriteByte(TypeUndefined)
	case float64:
		encodeNumber(buf, v)
	case float32:
		encodeNumber(buf, float64(v))
	case int:
		encodeNumber(buf, float64(v))
	case uint32:
		encodeNumber(buf, float64(v))
	case bool:
		buf.WriteByte(TypeBoolean)
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case string:
		encodeString(buf, v)
	case Object:
		buf.WriteByte(TypeObject)
		return encodeProperties(buf, v)
	case ECMAArray:
		buf.WriteByte(TypeECMAArray)
		var count [4]byte
		binary.BigEndian.PutUint32(count[:], uint32(len(v)))
		buf.Write(count[:])
		return encodeProperties(buf, v)
	case StrictArray:
		buf.WriteByte(TypeStrictArray)
		var count [4]byte
		binary.BigEndian.PutUint32(count[:], uint32(len(v)))
		buf.Write(count[:])
		for _, elem := range v {
			if err := encode(buf, elem); err != nil {
				return err
			}
		}
	case time.Time:
		buf.WriteByte(TypeDate)
		var b [10]byte
		binary.BigEndian.PutUint64(b[:8], math.Float64bits(float64(v.UnixNano()/int64(time.Millisecond))))
		// Last 2 bytes are the time zone, which stays 0
		buf.Write(b[:])
	default:
		return errors.Errorf("amf0: cannot encode type %T", v)
	}
	return nil
}

func encodeNumber(buf *bytes.Buffer, n float64) {
	var b [9]byte
	b[0] = TypeNumber
	binary.BigEndian.PutUint64(b[1:], math.Float64bits(n))
	buf.Write(b[:])
}

func encodeString(buf *bytes.Buffer, s string) {
	// Strings that don't fit a 16-bit length use TypeLongString
	if len(s) > math.MaxUint16 {
		var b [5]byte
		b[0] = TypeLongString
		binary.BigEndian.PutUint32(b[1:], uint32(len(s)))
		buf.Write(b[:])
		buf.WriteString(s)
		return
	}
	var b [3]byte
	b[0] = TypeString
	binary.BigEndian.PutUint16(b[1:], uint16(len(s)))
	buf.Write(b[:])
	buf.WriteString(s)
}

func encodeProperties(buf *bytes.Buffer, props []Property) error {
	for _, p := range props {
		if len(p.Key) == 0 || len(p.Key) > math.MaxUint16 {
			return errors.Errorf("amf0: invalid property key length %d", len(p.Key))
		}
		// Keys are always short strings without the type marker
		var length [2]byte
		binary.BigEndian.PutUint16(length[:], uint16(len(p.Key)))
		buf.Write(length[:])
		buf.WriteString(p.Key)
		if err := encode(buf, p.Value); err != nil {
			return err
		}
	}
	buf.Write([]byte{0x00, 0x00, TypeObjectEnd})
	return nil
}
