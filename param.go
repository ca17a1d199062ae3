package dbus

import (
	"math"

	"github.com/wiredbus/go-dbus/fragments"
)

// A Param is a dynamically typed DBus value: a tagged union that
// mirrors the Type tree, for code that builds or parses message
// bodies without static Go types to describe every value.
//
// Param and the static, generics-based [Marshal]/[Unmarshal] API
// share the same buffer layout: a body can be built with one and read
// with the other.
type Param struct {
	typ Type

	scalar any     // populated when typ.Kind is a base kind
	elems  []Param // Array elements, or Struct fields
	keys   []any   // Dict keys, parallel to vals
	vals   []Param // Dict values, parallel to keys
	inner  *Param  // Variant's contained value
}

// Type returns the DBus type of p.
func (p Param) Type() Type { return p.typ }

// Base returns p's value and true if p holds a base-kind scalar.
func (p Param) Base() (any, bool) {
	if p.typ.Kind.isBase() {
		return p.scalar, true
	}
	return nil, false
}

// Elems returns the elements of an Array or Struct Param, and nil
// otherwise.
func (p Param) Elems() []Param { return p.elems }

// DictEntries returns the keys and values of a Dict Param (an Array
// whose element type is a dict-entry), and nil otherwise. The two
// slices are parallel: keys[i] corresponds to vals[i].
func (p Param) DictEntries() ([]any, []Param) { return p.keys, p.vals }

// Variant returns the value contained in a Variant Param, and true if
// p is in fact a Variant.
func (p Param) Variant() (Param, bool) {
	if p.inner != nil {
		return *p.inner, true
	}
	return Param{}, false
}

// NewBaseParam constructs a Param for a base-kind value v. v's
// concrete Go type must be the one that corresponds to kind: byte,
// bool, int16, uint16, int32, uint32, int64, uint64, float64, string,
// ObjectPath, Signature, or Fd.
func NewBaseParam(kind Kind, v any) (Param, error) {
	if !kind.isBase() {
		return Param{}, marshalErr(ErrKindInvalidSignature, "%s is not a base kind", kind)
	}
	if err := checkBaseGoType(kind, v); err != nil {
		return Param{}, err
	}
	return Param{typ: Type{Kind: kind}, scalar: v}, nil
}

func checkBaseGoType(kind Kind, v any) error {
	ok := false
	switch kind {
	case KindByte:
		_, ok = v.(byte)
	case KindBool:
		_, ok = v.(bool)
	case KindInt16:
		_, ok = v.(int16)
	case KindUint16:
		_, ok = v.(uint16)
	case KindInt32:
		_, ok = v.(int32)
	case KindUint32:
		_, ok = v.(uint32)
	case KindInt64:
		_, ok = v.(int64)
	case KindUint64:
		_, ok = v.(uint64)
	case KindDouble:
		_, ok = v.(float64)
	case KindString:
		_, ok = v.(string)
	case KindObjectPath:
		_, ok = v.(ObjectPath)
	case KindSignature:
		_, ok = v.(Signature)
	case KindUnixFd:
		_, ok = v.(Fd)
	}
	if !ok {
		return marshalErr(ErrKindInvalidSignature, "value %v (%T) does not match base kind %s", v, v, kind)
	}
	return nil
}

// NewArrayParam constructs an Array Param, validating that every
// value's type matches elem exactly.
func NewArrayParam(elem Type, values []Param) (Param, error) {
	want := elem.String()
	for i, v := range values {
		if v.typ.String() != want {
			return Param{}, marshalErr(ErrKindInvalidSignature, "array element %d has type %q, want %q", i, v.typ, want)
		}
	}
	e := elem
	return Param{typ: Type{Kind: KindArray, Elem: &e}, elems: values}, nil
}

// NewStructParam constructs a Struct Param from its member values, in
// order. fields must be non-empty.
func NewStructParam(fields []Param) (Param, error) {
	if len(fields) == 0 {
		return Param{}, marshalErr(ErrKindEmptyStruct, "struct param has no member values")
	}
	ts := make([]Type, len(fields))
	for i, f := range fields {
		ts[i] = f.typ
	}
	return Param{typ: Type{Kind: KindStruct, Fields: ts}, elems: fields}, nil
}

// NewDictParam constructs a Dict Param (wire-encoded as an array of
// dict-entries) from parallel key and value slices. keyKind must be a
// base kind, every key's Go type must match it, and every value's
// type must match valType exactly.
func NewDictParam(keyKind Kind, valType Type, keys []any, vals []Param) (Param, error) {
	if !keyKind.isBase() {
		return Param{}, marshalErr(ErrKindDictKeyMustBeBase, "dict key kind %s is not a base type", keyKind)
	}
	if len(keys) != len(vals) {
		return Param{}, marshalErr(ErrKindInvalidSignature, "dict has %d keys but %d values", len(keys), len(vals))
	}
	want := valType.String()
	for i, k := range keys {
		if err := checkBaseGoType(keyKind, k); err != nil {
			return Param{}, err
		}
		if vals[i].typ.String() != want {
			return Param{}, marshalErr(ErrKindInvalidSignature, "dict value %d has type %q, want %q", i, vals[i].typ, want)
		}
	}
	v := valType
	return Param{
		typ:  Type{Kind: KindArray, Elem: &Type{Kind: KindDict, Key: keyKind, Elem: &v}},
		keys: keys,
		vals: vals,
	}, nil
}

// NewVariantParam wraps inner as a Variant Param, declaring sig as the
// signature the variant's contents are supposed to carry. sig must
// match inner's own computed type exactly; this catches a caller that
// builds a variant's declared signature separately from its value and
// lets them drift apart.
func NewVariantParam(sig Type, inner Param) (Param, error) {
	if sig.String() != inner.typ.String() {
		return Param{}, marshalErr(ErrKindVariantSigMismatch, "variant declared signature %q does not match contained value's type %q", sig, inner.typ)
	}
	return Param{typ: Type{Kind: KindVariant}, inner: &inner}, nil
}

func (p Param) IsDBusStruct() bool { return p.typ.Kind == KindStruct }

func (p Param) SignatureDBus() Type { return p.typ }

// MarshalDBus implements [Marshaler] by dispatching on p's dynamic
// Kind.
func (p Param) MarshalDBus(e *fragments.Encoder) error {
	switch p.typ.Kind {
	case KindByte:
		e.Uint8(p.scalar.(byte))
		return nil
	case KindBool:
		e.Bool(p.scalar.(bool))
		return nil
	case KindInt16:
		e.Uint16(uint16(p.scalar.(int16)))
		return nil
	case KindUint16:
		e.Uint16(p.scalar.(uint16))
		return nil
	case KindInt32:
		e.Uint32(uint32(p.scalar.(int32)))
		return nil
	case KindUint32:
		e.Uint32(p.scalar.(uint32))
		return nil
	case KindInt64:
		e.Uint64(uint64(p.scalar.(int64)))
		return nil
	case KindUint64:
		e.Uint64(p.scalar.(uint64))
		return nil
	case KindDouble:
		e.Uint64(math.Float64bits(p.scalar.(float64)))
		return nil
	case KindString:
		e.String(p.scalar.(string))
		return nil
	case KindObjectPath:
		return p.scalar.(ObjectPath).MarshalDBus(e)
	case KindSignature:
		return p.scalar.(Signature).MarshalDBus(e)
	case KindUnixFd:
		return p.scalar.(Fd).MarshalDBus(e)
	case KindArray:
		if p.typ.Elem.Kind == KindDict {
			keyKind := p.typ.Elem.Key
			return e.Array(8, func() error {
				for i := range p.keys {
					e.Pad(8)
					if err := marshalBaseAny(e, keyKind, p.keys[i]); err != nil {
						return err
					}
					if err := p.vals[i].MarshalDBus(e); err != nil {
						return err
					}
				}
				return nil
			})
		}
		return e.Array(p.typ.Elem.Alignment(), func() error {
			for _, el := range p.elems {
				if err := el.MarshalDBus(e); err != nil {
					return err
				}
			}
			return nil
		})
	case KindStruct:
		return e.Struct(func() error {
			for _, f := range p.elems {
				if err := f.MarshalDBus(e); err != nil {
					return err
				}
			}
			return nil
		})
	case KindVariant:
		sig := Signature(p.inner.typ.String())
		if err := sig.MarshalDBus(e); err != nil {
			return err
		}
		return p.inner.MarshalDBus(e)
	default:
		return marshalErr(ErrKindInvalidSignature, "unknown param kind %s", p.typ.Kind)
	}
}

func marshalBaseAny(e *fragments.Encoder, kind Kind, v any) error {
	p := Param{typ: Type{Kind: kind}, scalar: v}
	return p.MarshalDBus(e)
}

func unmarshalBaseAny(d *fragments.Decoder, kind Kind) (any, error) {
	p, err := UnmarshalParam(d, Type{Kind: kind})
	if err != nil {
		return nil, err
	}
	return p.scalar, nil
}

// UnmarshalParam reads a Param of the given type from d.
func UnmarshalParam(d *fragments.Decoder, t Type) (Param, error) {
	switch t.Kind {
	case KindByte:
		v, err := d.Uint8()
		if err != nil {
			return Param{}, wrapWireErr(err)
		}
		return Param{typ: t, scalar: v}, nil
	case KindBool:
		v, err := d.Bool()
		if err != nil {
			return Param{}, wrapWireErr(err)
		}
		return Param{typ: t, scalar: v}, nil
	case KindInt16:
		v, err := d.Uint16()
		if err != nil {
			return Param{}, wrapWireErr(err)
		}
		return Param{typ: t, scalar: int16(v)}, nil
	case KindUint16:
		v, err := d.Uint16()
		if err != nil {
			return Param{}, wrapWireErr(err)
		}
		return Param{typ: t, scalar: v}, nil
	case KindInt32:
		v, err := d.Uint32()
		if err != nil {
			return Param{}, wrapWireErr(err)
		}
		return Param{typ: t, scalar: int32(v)}, nil
	case KindUint32:
		v, err := d.Uint32()
		if err != nil {
			return Param{}, wrapWireErr(err)
		}
		return Param{typ: t, scalar: v}, nil
	case KindInt64:
		v, err := d.Uint64()
		if err != nil {
			return Param{}, wrapWireErr(err)
		}
		return Param{typ: t, scalar: int64(v)}, nil
	case KindUint64:
		v, err := d.Uint64()
		if err != nil {
			return Param{}, wrapWireErr(err)
		}
		return Param{typ: t, scalar: v}, nil
	case KindDouble:
		v, err := d.Uint64()
		if err != nil {
			return Param{}, wrapWireErr(err)
		}
		return Param{typ: t, scalar: math.Float64frombits(v)}, nil
	case KindString:
		v, err := d.String()
		if err != nil {
			return Param{}, wrapWireErr(err)
		}
		return Param{typ: t, scalar: v}, nil
	case KindObjectPath:
		var v ObjectPath
		if err := v.UnmarshalDBus(d); err != nil {
			return Param{}, err
		}
		return Param{typ: t, scalar: v}, nil
	case KindSignature:
		var v Signature
		if err := v.UnmarshalDBus(d); err != nil {
			return Param{}, err
		}
		return Param{typ: t, scalar: v}, nil
	case KindUnixFd:
		var v Fd
		if err := v.UnmarshalDBus(d); err != nil {
			return Param{}, err
		}
		return Param{typ: t, scalar: v}, nil
	case KindArray:
		if t.Elem.Kind == KindDict {
			var keys []any
			var vals []Param
			_, err := d.Array(8, func(int) error {
				if err := d.Pad(8); err != nil {
					return err
				}
				k, err := unmarshalBaseAny(d, t.Elem.Key)
				if err != nil {
					return err
				}
				v, err := UnmarshalParam(d, *t.Elem.Elem)
				if err != nil {
					return err
				}
				keys = append(keys, k)
				vals = append(vals, v)
				return nil
			})
			if err != nil {
				return Param{}, wrapWireErr(err)
			}
			return Param{typ: t, keys: keys, vals: vals}, nil
		}
		var elems []Param
		_, err := d.Array(t.Elem.Alignment(), func(int) error {
			p, err := UnmarshalParam(d, *t.Elem)
			if err != nil {
				return err
			}
			elems = append(elems, p)
			return nil
		})
		if err != nil {
			return Param{}, wrapWireErr(err)
		}
		return Param{typ: t, elems: elems}, nil
	case KindStruct:
		var fields []Param
		err := d.Struct(func() error {
			for _, ft := range t.Fields {
				p, err := UnmarshalParam(d, ft)
				if err != nil {
					return err
				}
				fields = append(fields, p)
			}
			return nil
		})
		if err != nil {
			return Param{}, wrapWireErr(err)
		}
		return Param{typ: t, elems: fields}, nil
	case KindVariant:
		var sig Signature
		if err := sig.UnmarshalDBus(d); err != nil {
			return Param{}, err
		}
		inner, err := ParseSingleType(string(sig))
		if err != nil {
			return Param{}, err
		}
		v, err := UnmarshalParam(d, inner)
		if err != nil {
			return Param{}, err
		}
		return Param{typ: t, inner: &v}, nil
	default:
		return Param{}, unmarshalErr(ErrKindInvalidUnmarshalSignature, 0, "unknown type kind %s", t.Kind)
	}
}
