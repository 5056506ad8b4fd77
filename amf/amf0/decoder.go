package amf0

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/pkg/errors"
)

// ErrUnexpectedEnd is returned when the buffer ends before a complete value could be read.
// Callers that consume values until the buffer is exhausted check Decoder.More first, so
// this error always means a truncated value.
var ErrUnexpectedEnd = errors.New("amf0: unexpected end of buffer")

var ErrUnsupportedType = errors.New("amf0: unsupported type marker")
var ErrMalformed = errors.New("amf0: malformed value")

// maxDepth bounds nesting of objects and arrays.
const maxDepth = 64

// Decoder reads consecutive AMF0 values out of a byte slice.
type Decoder struct {
	buf []byte
	off int
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

// More reports whether there are bytes left to decode.
func (d *Decoder) More() bool {
	return d.off < len(d.buf)
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.off
}

// Decode reads the next value.
func (d *Decoder) Decode() (Value, error) {
	return d.decodeValue(0)
}

// DecodeString reads the next value and requires it to be a string.
func (d *Decoder) DecodeString() (string, error) {
	start := d.off
	v, err := d.Decode()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		d.off = start
		return "", errors.Wrapf(ErrMalformed, "expected string, got %T", v)
	}
	return s, nil
}

// Decode decodes a single value from the start of b and returns it along with the number of bytes consumed.
func Decode(b []byte) (Value, int, error) {
	d := NewDecoder(b)
	v, err := d.Decode()
	return v, d.off, err
}

// DecodeAll decodes values until b is exhausted.
func DecodeAll(b []byte) ([]Value, error) {
	d := NewDecoder(b)
	values := make([]Value, 0, 4)
	for d.More() {
		v, err := d.Decode()
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (d *Decoder) decodeValue(depth int) (Value, error) {
	if depth > maxDepth {
		return nil, errors.Wrap(ErrMalformed, "nesting too deep")
	}
	marker, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch marker {
	case TypeNumber:
		return d.readNumber()
	case TypeBoolean:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case TypeString:
		return d.readString()
	case TypeLongString:
		return d.readLongString()
	case TypeObject:
		props, err := d.readProperties(depth)
		if err != nil {
			return nil, err
		}
		return Object(props), nil
	case TypeNull:
		return nil, nil
	case TypeUndefined:
		return Undefined{}, nil
	case TypeECMAArray:
		// The associative count is advisory; the array ends with an object end marker like any object.
		if _, err := d.readN(4); err != nil {
			return nil, err
		}
		props, err := d.readProperties(depth)
		if err != nil {
			return nil, err
		}
		return ECMAArray(props), nil
	case TypeStrictArray:
		b, err := d.readN(4)
		if err != nil {
			return nil, err
		}
		count := binary.BigEndian.Uint32(b)
		// Every element takes at least one byte.
		if uint64(count) > uint64(len(d.buf)-d.off) {
			return nil, errors.Wrapf(ErrUnexpectedEnd, "strict array of %d elements", count)
		}
		arr := make(StrictArray, 0, count)
		for i := uint32(0); i < count; i++ {
			v, err := d.decodeValue(depth + 1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case TypeDate:
		ms, err := d.readNumber()
		if err != nil {
			return nil, err
		}
		// Time zone offset, always written as 0 and ignored on read.
		if _, err := d.readN(2); err != nil {
			return nil, err
		}
		return time.Unix(0, int64(ms)*int64(time.Millisecond)).UTC(), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedType, "marker 0x%02x", marker)
	}
}

func (d *Decoder) readProperties(depth int) ([]Property, error) {
	props := make([]Property, 0, 8)
	for {
		b, err := d.readN(2)
		if err != nil {
			return nil, err
		}
		keyLength := int(binary.BigEndian.Uint16(b))
		if keyLength == 0 {
			end, err := d.readByte()
			if err != nil {
				return nil, err
			}
			if end != TypeObjectEnd {
				return nil, errors.Wrapf(ErrMalformed, "expected object end marker, got 0x%02x", end)
			}
			return props, nil
		}
		key, err := d.readN(keyLength)
		if err != nil {
			return nil, err
		}
		v, err := d.decodeValue(depth + 1)
		if err != nil {
			return nil, err
		}
		props = append(props, Property{Key: string(key), Value: v})
	}
}

func (d *Decoder) readNumber() (float64, error) {
	b, err := d.readN(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func (d *Decoder) readString() (string, error) {
	b, err := d.readN(2)
	if err != nil {
		return "", err
	}
	s, err := d.readN(int(binary.BigEndian.Uint16(b)))
	if err != nil {
		return "", err
	}
	return string(s), nil
}

func (d *Decoder) readLongString() (string, error) {
	b, err := d.readN(4)
	if err != nil {
		return "", err
	}
	length := binary.BigEndian.Uint32(b)
	if uint64(length) > uint64(len(d.buf)-d.off) {
		return "", errors.Wrapf(ErrUnexpectedEnd, "long string of %d bytes", length)
	}
	s, err := d.readN(int(length))
	if err != nil {
		return "", err
	}
	return string(s), nil
}

func (d *Decoder) readByte() (byte, error) {
	if d.off >= len(d.buf) {
		return 0, ErrUnexpectedEnd
	}
	b := d.buf[d.off]
	d.off++
	return b, nil
}

func (d *Decoder) readN(n int) ([]byte, error) {
	if n > len(d.buf)-d.off {
		return nil, errors.Wrapf(ErrUnexpectedEnd, "need %d bytes, have %d", n, len(d.buf)-d.off)
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}
