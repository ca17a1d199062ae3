package dbus

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/wiredbus/go-dbus/fragments"
)

// marshalBE/unmarshalBEInto exercise the internal reflect-based codec
// directly, the same path [Marshal] and [Unmarshal] use, so table
// tests can work with dynamically typed values.
func marshalBE(t *testing.T, v any) []byte {
	t.Helper()
	e := &fragments.Encoder{Order: fragments.BigEndian}
	if err := Marshal(e, v); err != nil {
		t.Fatalf("Marshal(%#v): %v", v, err)
	}
	return e.Out
}

func unmarshalBEInto(t *testing.T, raw []byte, dst any) {
	t.Helper()
	d := &fragments.Decoder{Order: fragments.BigEndian, Buf: raw}
	rv := reflect.ValueOf(dst).Elem()
	if err := unmarshalValue(d, rv); err != nil {
		t.Fatalf("unmarshal into %T: %v", dst, err)
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		sigStr string
		raw    []byte
	}{
		{"bool true", true, "b", []byte{0, 0, 0, 1}},
		{"bool false", false, "b", []byte{0, 0, 0, 0}},
		{"byte", byte(42), "y", []byte{42}},
		{"int16", int16(0x1234), "n", []byte{0x12, 0x34}},
		{"uint16", uint16(0x1234), "q", []byte{0x12, 0x34}},
		{"int32", int32(0x12345678), "i", []byte{0x12, 0x34, 0x56, 0x78}},
		{"uint32", uint32(0x12345678), "u", []byte{0x12, 0x34, 0x56, 0x78}},
		{"int64", int64(0x1abbccdd12345678), "x",
			[]byte{0x1a, 0xbb, 0xcc, 0xdd, 0x12, 0x34, 0x56, 0x78}},
		{"uint64", uint64(0x1abbccdd12345678), "t",
			[]byte{0x1a, 0xbb, 0xcc, 0xdd, 0x12, 0x34, 0x56, 0x78}},
		{"string", "foobar", "s",
			[]byte{0, 0, 0, 6, 'f', 'o', 'o', 'b', 'a', 'r', 0}},
		{"bytes", []byte("foobar"), "ay",
			[]byte{0, 0, 0, 6, 'f', 'o', 'o', 'b', 'a', 'r'}},
		{"[]string", []string{"fo", "obar"}, "as",
			[]byte{
				0, 0, 0, 17,
				0, 0, 0, 2, 'f', 'o', 0, 0,
				0, 0, 0, 4, 'o', 'b', 'a', 'r', 0,
			}},
		{"struct simple", Simple{42, true}, "(nb)",
			[]byte{0, 42, 0, 0, 0, 0, 0, 1}},
		{"struct nested", Nested{66, Simple{42, true}}, "(y(nb))",
			[]byte{
				66, 0, 0, 0, 0, 0, 0, 0,
				0, 42, 0, 0, 0, 0, 0, 1,
			}},
		{"struct embedded", Embedded{Simple{42, true}, 66}, "((nb)y)",
			[]byte{0, 42, 0, 0, 0, 0, 0, 1, 66}},
		{"map", map[uint16]uint8{1: 2, 3: 4}, "a{qy}",
			[]byte{
				0, 0, 0, 11,
				0, 0, 0, 0,
				0, 1, 2,
				0, 0, 0, 0, 0,
				0, 3, 4,
			}},
		{"struct any", WithAny{42, uint32(66)}, "(qv)",
			[]byte{
				0, 42,
				1, 'u', 0,
				0, 0, 0,
				0, 0, 0, 66,
			}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := marshalBE(t, tc.value)
			if diff := cmp.Diff(got, tc.raw); diff != "" {
				t.Fatalf("wrong encoding (-got +want):\n%s", diff)
			}
			sig, err := SignatureOf(tc.value)
			if err != nil {
				t.Fatalf("SignatureOf: %v", err)
			}
			if sig.String() != tc.sigStr {
				t.Fatalf("wrong signature, got %q want %q", sig, tc.sigStr)
			}

			dst := reflect.New(reflect.TypeOf(tc.value))
			unmarshalBEInto(t, tc.raw, dst.Interface())
			if diff := cmp.Diff(dst.Elem().Interface(), tc.value, cmpopts.EquateComparable(Fd{})); diff != "" {
				t.Fatalf("wrong decoded value (-got +want):\n%s", diff)
			}
		})
	}
}

func TestMarshalByteOrder(t *testing.T) {
	var be, le = fragments.BigEndian, fragments.LittleEndian
	tests := []struct {
		in   any
		enc  fragments.ByteOrder
		want []byte
	}{
		{int32(0x12342bff), le, []byte{0xff, 0x2b, 0x34, 0x12}},
		{int32(0x12342bff), be, []byte{0x12, 0x34, 0x2b, 0xff}},
		{float64(3402823700), le, []byte{0x00, 0x00, 0x80, 0x02, 0x5F, 0x5A, 0xE9, 0x41}},
		{float64(3402823700), be, []byte{0x41, 0xE9, 0x5A, 0x5F, 0x02, 0x80, 0x00, 0x00}},
	}
	for _, tc := range tests {
		e := &fragments.Encoder{Order: tc.enc}
		if err := Marshal(e, tc.in); err != nil {
			t.Fatalf("Marshal(%#v): %v", tc.in, err)
		}
		if diff := cmp.Diff(e.Out, tc.want); diff != "" {
			t.Fatalf("%#v: wrong bytes (-got +want):\n%s", tc.in, diff)
		}
	}
}

func TestMarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		v    any
	}{
		{"recursive type", &Tree{}},
		{"int", int(5)},
		{"uint", uint(5)},
		{"int8", int8(5)},
		{"float32", float32(5)},
		{"signature too long", Large{}},
		{"bad map key", map[float32]string{}},
		{"nil interface", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := &fragments.Encoder{}
			if err := Marshal(e, tc.v); err == nil {
				t.Fatalf("Marshal(%#v) succeeded, want error", tc.v)
			}
		})
	}
}

func TestSelfMarshaler(t *testing.T) {
	raw := marshalBE(t, &SelfMarshalerPtr{B: 41})
	want := []byte{0, 42}
	if diff := cmp.Diff(raw, want); diff != "" {
		t.Fatalf("wrong encoding (-got +want):\n%s", diff)
	}

	var got SelfMarshalerPtr
	unmarshalBEInto(t, raw, &got)
	if got.B != 41 {
		t.Fatalf("got B=%d, want 41", got.B)
	}
}

func TestNestedSelfMarshalerValUnmarshalFails(t *testing.T) {
	raw := marshalBE(t, NestedSelfMarshalerVal{A: 1, B: SelfMarshalerVal{B: 41}})
	var got NestedSelfMarshalerVal
	d := &fragments.Decoder{Order: fragments.BigEndian, Buf: raw}
	err := unmarshalValue(d, reflect.ValueOf(&got).Elem())
	var terr TypeError
	if !errors.As(err, &terr) {
		t.Fatalf("got %v (%T), want TypeError", err, err)
	}
}

func TestSignatureForTooLong(t *testing.T) {
	if _, err := SignatureFor[Large](); err == nil {
		t.Fatal("SignatureFor[Large] succeeded, want error")
	}
}

func TestSignatureForRecursive(t *testing.T) {
	if _, err := SignatureFor[Tree](); err == nil {
		t.Fatal("SignatureFor[Tree] succeeded, want error")
	}
}
