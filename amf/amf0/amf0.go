// Package amf0 implements the subset of the Action Message Format (version 0) that
// RTMP command and data messages carry.
//
// Decoded values use these Go types:
//
//	Number      float64
//	Boolean     bool
//	String      string (long strings included)
//	Object      Object (ordered properties)
//	Null        nil
//	Undefined   Undefined
//	ECMA array  ECMAArray (ordered properties)
//	Strict arr  StrictArray
//	Date        time.Time
package amf0

const (
	TypeNumber      byte = 0x00
	TypeBoolean     byte = 0x01
	TypeString      byte = 0x02
	TypeObject      byte = 0x03
	TypeMovieClip   byte = 0x04 // reserved, not supported
	TypeNull        byte = 0x05
	TypeUndefined   byte = 0x06
	TypeReference   byte = 0x07
	TypeECMAArray   byte = 0x08
	TypeObjectEnd   byte = 0x09
	TypeStrictArray byte = 0x0A
	TypeDate        byte = 0x0B
	TypeLongString  byte = 0x0C
	TypeUnsupported byte = 0x0D
	TypeRecordSet   byte = 0x0E // reserved, not supported
	TypeXMLDocument byte = 0x0F
	TypeTypedObject byte = 0x10
)

// Value is any of the types listed in the package documentation.
type Value interface{}

// Undefined is the AMF0 undefined marker.
type Undefined struct{}

// Property is a single key/value pair of an Object or ECMAArray.
type Property struct {
	Key   string
	Value Value
}

// Object is an anonymous AMF0 object. Property order is preserved so that a decoded
// object re-encodes to the same bytes.
type Object []Property

// ECMAArray is an associative array. It is encoded like an Object, prefixed with its property count.
type ECMAArray []Property

// StrictArray is an ordinal array of values.
type StrictArray []Value

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	return get(o, key)
}

// GetString returns the value stored under key if it is a string.
func (o Object) GetString(key string) (string, bool) {
	v, ok := get(o, key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetNumber returns the value stored under key if it is a number.
func (o Object) GetNumber(key string) (float64, bool) {
	v, ok := get(o, key)
	if !ok {
		return 0, false
	}
	n, ok := v.(float64)
	return n, ok
}

func (a ECMAArray) Get(key string) (Value, bool) {
	return get(a, key)
}

func get(props []Property, key string) (Value, bool) {
	for _, p := range props {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}
