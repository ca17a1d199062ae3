package dbus

import (
	"github.com/wiredbus/go-dbus/fragments"
)

// Simple is a struct with simple fields.
type Simple struct {
	A int16
	B bool
}

// Nested is a struct with a struct field.
type Nested struct {
	A byte
	B Simple
}

// Embedded is a struct that embeds another struct by value. Struct
// fields marshal in declaration order regardless of embedding, so
// Embedded's wire layout is indistinguishable from a struct with an
// explicit named field of type Simple.
type Embedded struct {
	Simple
	C byte
}

// Arrays is a struct with various degrees of complicated arrays
// inside.
type Arrays struct {
	A []string
	B []Simple
	C [][]Nested
}

// Tree is a self-referential struct that can't be represented in the
// DBus wire format.
type Tree struct {
	Left  *Tree
	Right *Tree
}

// SelfMarshalerVal is a struct that implements Marshaler and
// Unmarshaler, with value method receivers. Note the Unmarshaler
// implementation is deliberately unusable: UnmarshalDBus must have a
// pointer receiver, so attempts to unmarshal into this type should
// fail with a TypeError.
type SelfMarshalerVal struct {
	B byte
}

func (s SelfMarshalerVal) IsDBusStruct() bool { return false }

func (s SelfMarshalerVal) SignatureDBus() Type { return baseType(KindUint16) }

func (s SelfMarshalerVal) MarshalDBus(e *fragments.Encoder) error {
	e.Uint16(uint16(s.B) + 1)
	return nil
}

func (s SelfMarshalerVal) UnmarshalDBus(d *fragments.Decoder) error {
	v, err := d.Uint16()
	if err != nil {
		return err
	}
	//lint:ignore SA4005 this type is deliberately broken: its Unmarshaler
	// is implemented on a value receiver, so the assignment never sticks.
	s.B = byte(v) - 1
	return nil
}

// SelfMarshalerPtr is a struct that implements Marshaler and
// Unmarshaler with pointer method receivers.
type SelfMarshalerPtr struct {
	B byte
}

func (s *SelfMarshalerPtr) IsDBusStruct() bool { return false }

func (s *SelfMarshalerPtr) SignatureDBus() Type { return baseType(KindUint16) }

func (s *SelfMarshalerPtr) MarshalDBus(e *fragments.Encoder) error {
	e.Uint16(uint16(s.B) + 1)
	return nil
}

func (s *SelfMarshalerPtr) UnmarshalDBus(d *fragments.Decoder) error {
	v, err := d.Uint16()
	if err != nil {
		return err
	}
	s.B = byte(v) - 1
	return nil
}

// NestedSelfMarshalerVal is a struct with a field that implements
// Marshaler/Unmarshaler using value method receivers.
// NestedSelfMarshalerVal cannot be unmarshaled, because its field's
// UnmarshalDBus isn't implemented on a pointer receiver.
type NestedSelfMarshalerVal struct {
	A byte
	B SelfMarshalerVal
}

// NestedSelfMarshalerPtr is a struct with a struct field that
// implements Marshaler/Unmarshaler with pointer method receivers.
type NestedSelfMarshalerPtr struct {
	A byte
	B SelfMarshalerPtr
}

// NestedSelfMarshalerPtrPtr is a struct with a struct pointer field
// that implements Marshaler/Unmarshaler with pointer method
// receivers.
type NestedSelfMarshalerPtrPtr struct {
	A byte
	B *SelfMarshalerPtr
}

// WithAny is a struct that contains an 'any' field, which marshals
// and unmarshals as a DBus variant.
type WithAny struct {
	A   uint16
	Any any
}

// Large is a struct whose type signature is too big for DBus.
type Large struct {
	A [][][][][][][][][][][][]string
	B [][][][][][][][][][][][]string
	C [][][][][][][][][][][][]string
	D [][][][][][][][][][][][]string
	E [][][][][][][][][][][][]string
	F [][][][][][][][][][][][]string
	G [][][][][][][][][][][][]string
	H [][][][][][][][][][][][]string
	I [][][][][][][][][][][][]string
	J [][][][][][][][][][][][]string
	K [][][][][][][][][][][][]string
	L [][][][][][][][][][][][]string
	M [][][][][][][][][][][][]string
	N [][][][][][][][][][][][]string
	O [][][][][][][][][][][][]string
	P [][][][][][][][][][][][]string
	Q [][][][][][][][][][][][]string
	R [][][][][][][][][][][][]string
	S [][][][][][][][][][][][]string
	T [][][][][][][][][][][][]string
}

func ptr[T any](v T) *T {
	return &v
}
