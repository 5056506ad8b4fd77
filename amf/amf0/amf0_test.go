package amf0

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestEncodeKnownBytes(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		out  []byte
	}{
		{"null", nil, []byte{TypeNull}},
		{"undefined", Undefined{}, []byte{TypeUndefined}},
		{"true", true, []byte{TypeBoolean, 1}},
		{"number", float64(1), []byte{TypeNumber, 0x3F, 0xF0, 0, 0, 0, 0, 0, 0}},
		{"int", 1, []byte{TypeNumber, 0x3F, 0xF0, 0, 0, 0, 0, 0, 0}},
		{"string", "abc", []byte{TypeString, 0, 3, 'a', 'b', 'c'}},
		{"emptyObject", Object{}, []byte{TypeObject, 0, 0, TypeObjectEnd}},
		{"object", Object{{"a", nil}}, []byte{TypeObject, 0, 1, 'a', TypeNull, 0, 0, TypeObjectEnd}},
		{"ecmaArray", ECMAArray{{"a", true}}, []byte{TypeECMAArray, 0, 0, 0, 1, 0, 1, 'a', TypeBoolean, 1, 0, 0, TypeObjectEnd}},
		{"strictArray", StrictArray{nil, nil}, []byte{TypeStrictArray, 0, 0, 0, 2, TypeNull, TypeNull}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.out) {
				t.Errorf("got % x, want % x", got, tt.out)
			}
		})
	}
}

func TestDecodePreservesObjectOrder(t *testing.T) {
	in := Object{
		{"app", "live"},
		{"flashVer", "LNX 9,0,124,2"},
		{"fpad", false},
		{"capabilities", float64(15)},
		{"nested", Object{{"z", float64(1)}, {"a", nil}}},
	}
	b, err := Encode(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, n, err := Decode(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(b) {
		t.Errorf("expected %d bytes consumed, got %d", len(b), n)
	}
	if !reflect.DeepEqual(v, in) {
		t.Errorf("got %#v, want %#v", v, in)
	}
	again, _ := Encode(v)
	if !bytes.Equal(again, b) {
		t.Error("re-encoding a decoded object changed its bytes")
	}
}

func TestDecodeLongString(t *testing.T) {
	s := strings.Repeat("x", 70000)
	b, err := Encode(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b[0] != TypeLongString {
		t.Fatalf("expected long string marker, got 0x%02x", b[0])
	}
	v, _, err := Decode(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.(string) != s {
		t.Error("long string did not survive decoding")
	}
}

func TestDecodeDate(t *testing.T) {
	in := time.Unix(1600000000, 123*int64(time.Millisecond)).UTC()
	b, err := Encode(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _, err := Decode(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.(time.Time).Equal(in) {
		t.Errorf("got %v, want %v", v, in)
	}
}

func TestDecoderExhaustion(t *testing.T) {
	b, _ := EncodeAll("onStatus", float64(0), nil)
	d := NewDecoder(b)
	count := 0
	for d.More() {
		if _, err := d.Decode(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		count++
	}
	if count != 3 {
		t.Errorf("expected 3 values, got %d", count)
	}
	if _, err := d.Decode(); errors.Cause(err) != ErrUnexpectedEnd {
		t.Errorf("expected ErrUnexpectedEnd past the end, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		err  error
	}{
		{"empty", []byte{}, ErrUnexpectedEnd},
		{"truncatedNumber", []byte{TypeNumber, 0, 0}, ErrUnexpectedEnd},
		{"truncatedString", []byte{TypeString, 0, 5, 'a'}, ErrUnexpectedEnd},
		{"unterminatedObject", []byte{TypeObject, 0, 1, 'a', TypeNull}, ErrUnexpectedEnd},
		{"badObjectEnd", []byte{TypeObject, 0, 0, 0x07}, ErrMalformed},
		{"reference", []byte{TypeReference, 0, 1}, ErrUnsupportedType},
		{"hugeStrictArray", []byte{TypeStrictArray, 0xFF, 0xFF, 0xFF, 0xFF}, ErrUnexpectedEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.in)
			if errors.Cause(err) != tt.err {
				t.Errorf("got %v, want %v", err, tt.err)
			}
		})
	}
}

func TestDecoderDecodeString(t *testing.T) {
	b, _ := EncodeAll(float64(3))
	d := NewDecoder(b)
	if _, err := d.DecodeString(); errors.Cause(err) != ErrMalformed {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
	if d.Offset() != 0 {
		t.Errorf("expected offset to be restored, got %d", d.Offset())
	}
}

func TestObjectGetters(t *testing.T) {
	o := Object{{"code", "NetStream.Publish.Start"}, {"id", float64(4)}}
	if s, ok := o.GetString("code"); !ok || s != "NetStream.Publish.Start" {
		t.Errorf("GetString(code) = %q, %v", s, ok)
	}
	if _, ok := o.GetString("id"); ok {
		t.Error("GetString on a number should fail")
	}
	if n, ok := o.GetNumber("id"); !ok || n != 4 {
		t.Errorf("GetNumber(id) = %v, %v", n, ok)
	}
	if _, ok := o.Get("missing"); ok {
		t.Error("Get on a missing key should fail")
	}
}

func TestEncodeUnsupported(t *testing.T) {
	if _, err := Encode(struct{}{}); err == nil {
		t.Error("expected an error encoding a struct")
	}
	if _, err := Encode(Object{{"", nil}}); err == nil {
		t.Error("expected an error encoding an empty key")
	}
}
