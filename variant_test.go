package dbus

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/wiredbus/go-dbus/fragments"
)

func TestMarshalVariant(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []byte
	}{
		{
			"byte",
			byte(5),
			[]byte{0x01, 0x79, 0x00, 0x05},
		},
		{
			"bool",
			true,
			[]byte{0x01, 0x62, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01},
		},
		{
			"[]uint16",
			[]uint16{1, 2, 3},
			[]byte{
				0x02, 0x61, 0x71, 0x00,
				0x00, 0x00, 0x00, 0x06,
				0x00, 0x01,
				0x00, 0x02,
				0x00, 0x03,
			},
		},
		{
			"struct",
			Simple{A: 2, B: true},
			[]byte{
				0x04, '(', 'n', 'b', ')', 0x00,
				0x00, 0x00,
				0x00, 0x02,
				0x00, 0x00,
				0x00, 0x00, 0x00, 0x01,
			},
		},
		{
			"nested variant",
			Variant{uint16(42)},
			[]byte{
				0x01, 'v', 0x00,
				0x01, 'q', 0x00,
				0x00, 0x2a,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := &fragments.Encoder{Order: fragments.BigEndian}
			v := Variant{Value: tc.in}
			if err := v.MarshalDBus(e); err != nil {
				t.Fatalf("MarshalDBus: %v", err)
			}
			if diff := cmp.Diff(e.Out, tc.want); diff != "" {
				t.Fatalf("wrong encoding (-got +want):\n%s", diff)
			}
		})
	}
}

func TestUnmarshalVariantHoldsParam(t *testing.T) {
	e := &fragments.Encoder{Order: fragments.BigEndian}
	if err := (Variant{Value: uint32(66)}).MarshalDBus(e); err != nil {
		t.Fatalf("MarshalDBus: %v", err)
	}
	d := &fragments.Decoder{Order: fragments.BigEndian, Buf: e.Out}
	var got Variant
	if err := got.UnmarshalDBus(d); err != nil {
		t.Fatalf("UnmarshalDBus: %v", err)
	}
	p, ok := got.Value.(Param)
	if !ok {
		t.Fatalf("got Value of type %T, want Param", got.Value)
	}
	base, ok := p.Base()
	if !ok || base.(uint32) != 66 {
		t.Fatalf("got %#v, want base uint32(66)", p)
	}
}

func TestMarshalVariantNilErrors(t *testing.T) {
	e := &fragments.Encoder{Order: fragments.BigEndian}
	if err := (Variant{}).MarshalDBus(e); err == nil {
		t.Fatal("marshaling a Variant with a nil Value succeeded, want error")
	}
}
