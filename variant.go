package dbus

import (
	"reflect"

	"github.com/wiredbus/go-dbus/fragments"
)

// A Variant is a value of any valid DBus type.
//
// Variant corresponds to the DBus "variant" type, which is used
// in APIs where a value's type is only known at runtime. When a
// Variant is unmarshaled without a more specific Go type to decode
// into, its Value holds a [Param] describing the wire value generically.
type Variant struct {
	Value any
}

var variantType = reflect.TypeFor[Variant]()

func (v Variant) IsDBusStruct() bool { return false }

var variantWireType = Type{Kind: KindVariant}

func (v Variant) SignatureDBus() Type { return variantWireType }

func (v Variant) MarshalDBus(e *fragments.Encoder) error {
	rv := reflect.ValueOf(v.Value)
	if !rv.IsValid() {
		return typeErr(nil, "cannot marshal a Variant with a nil value")
	}
	sig, err := SignatureOf(v.Value)
	if err != nil {
		return err
	}
	if err := e.Signature(sig.String()); err != nil {
		return marshalErr(ErrKindSignatureTooLong, "variant signature: %v", err)
	}
	return marshalValue(e, rv)
}

func (v *Variant) UnmarshalDBus(d *fragments.Decoder) error {
	sigStr, err := d.Signature()
	if err != nil {
		return wrapWireErr(err)
	}
	innerType, err := ParseSingleType(sigStr)
	if err != nil {
		return err
	}
	p, err := UnmarshalParam(d, innerType)
	if err != nil {
		return err
	}
	v.Value = p
	return nil
}
