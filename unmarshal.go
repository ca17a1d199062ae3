package dbus

import (
	"math"
	"reflect"

	"github.com/wiredbus/go-dbus/fragments"
)

// Unmarshaler is the interface implemented by types that can
// unmarshal themselves from the DBus wire format.
//
// SignatureDBus is invoked on the zero value of the Unmarshaler, and
// must return a constant value. UnmarshalDBus must be implemented on
// a pointer receiver.
type Unmarshaler interface {
	SignatureDBus() Type
	UnmarshalDBus(d *fragments.Decoder) error
}

var unmarshalerType = reflect.TypeFor[Unmarshaler]()

type decodeFunc func(v reflect.Value, d *fragments.Decoder) error

type decInfo struct {
	fn  decodeFunc
	typ Type
}

var decoders cache[reflect.Type, decInfo]

func decoderFor(t reflect.Type) (decInfo, error) {
	return decoders.GetOrBuild(t, func() (decInfo, error) { return buildDecoder(t) })
}

func buildDecoder(t reflect.Type) (decInfo, error) {
	if t.Kind() != reflect.Pointer && t.Implements(unmarshalerType) {
		return decInfo{}, typeErr(t, "UnmarshalDBus must be implemented on a pointer receiver")
	}
	if reflect.PointerTo(t).Implements(unmarshalerType) {
		return newUnmarshalDecoder(t)
	}

	switch t.Kind() {
	case reflect.Pointer:
		return newPtrDecoder(t)
	case reflect.Interface:
		return newAnyDecoder(t)
	case reflect.Bool:
		return decInfo{newBoolDecoder(), baseType(KindBool)}, nil
	case reflect.Int, reflect.Uint:
		return decInfo{}, typeErr(t, "int and uint aren't portable, use fixed width integers")
	case reflect.Int8:
		return decInfo{}, typeErr(t, "int8 has no corresponding DBus type, use uint8 instead")
	case reflect.Int16:
		return decInfo{newIntDecoder(2), baseType(KindInt16)}, nil
	case reflect.Int32:
		return decInfo{newIntDecoder(4), baseType(KindInt32)}, nil
	case reflect.Int64:
		return decInfo{newIntDecoder(8), baseType(KindInt64)}, nil
	case reflect.Uint8:
		return decInfo{newUintDecoder(1), baseType(KindByte)}, nil
	case reflect.Uint16:
		return decInfo{newUintDecoder(2), baseType(KindUint16)}, nil
	case reflect.Uint32:
		return decInfo{newUintDecoder(4), baseType(KindUint32)}, nil
	case reflect.Uint64:
		return decInfo{newUintDecoder(8), baseType(KindUint64)}, nil
	case reflect.Float32:
		return decInfo{}, typeErr(t, "float32 has no corresponding DBus type, use float64 instead")
	case reflect.Float64:
		return decInfo{newFloatDecoder(), baseType(KindDouble)}, nil
	case reflect.String:
		return decInfo{newStringDecoder(), baseType(KindString)}, nil
	case reflect.Slice, reflect.Array:
		return newSliceDecoder(t)
	case reflect.Struct:
		return newStructDecoder(t)
	case reflect.Map:
		return newMapDecoder(t)
	}
	return decInfo{}, typeErr(t, "no dbus mapping for type")
}

func newUnmarshalDecoder(t reflect.Type) (decInfo, error) {
	typ := reflect.Zero(reflect.PointerTo(t)).Interface().(Unmarshaler).SignatureDBus()
	fn := func(v reflect.Value, d *fragments.Decoder) error {
		if !v.CanAddr() {
			return typeErr(t, "cannot unmarshal into a non-addressable value")
		}
		m := v.Addr().Interface().(Unmarshaler)
		return m.UnmarshalDBus(d)
	}
	return decInfo{fn, typ}, nil
}

func newPtrDecoder(t reflect.Type) (decInfo, error) {
	elemInfo, err := decoderFor(t.Elem())
	if err != nil {
		return decInfo{}, err
	}
	fn := func(v reflect.Value, d *fragments.Decoder) error {
		if v.IsNil() {
			v.Set(reflect.New(t.Elem()))
		}
		return elemInfo.fn(v.Elem(), d)
	}
	return decInfo{fn, elemInfo.typ}, nil
}

// newAnyDecoder handles interface-kind targets (in practice, `any`) by
// reading a Variant and storing the contained value.
func newAnyDecoder(t reflect.Type) (decInfo, error) {
	fn := func(v reflect.Value, d *fragments.Decoder) error {
		var vr Variant
		if err := vr.UnmarshalDBus(d); err != nil {
			return err
		}
		v.Set(reflect.ValueOf(vr.Value))
		return nil
	}
	return decInfo{fn, Type{Kind: KindVariant}}, nil
}

func newBoolDecoder() decodeFunc {
	return func(v reflect.Value, d *fragments.Decoder) error {
		b, err := d.Bool()
		if err != nil {
			return wrapWireErr(err)
		}
		v.SetBool(b)
		return nil
	}
}

func newIntDecoder(size int) decodeFunc {
	switch size {
	case 2:
		return func(v reflect.Value, d *fragments.Decoder) error {
			x, err := d.Uint16()
			if err != nil {
				return wrapWireErr(err)
			}
			v.SetInt(int64(int16(x)))
			return nil
		}
	case 4:
		return func(v reflect.Value, d *fragments.Decoder) error {
			x, err := d.Uint32()
			if err != nil {
				return wrapWireErr(err)
			}
			v.SetInt(int64(int32(x)))
			return nil
		}
	case 8:
		return func(v reflect.Value, d *fragments.Decoder) error {
			x, err := d.Uint64()
			if err != nil {
				return wrapWireErr(err)
			}
			v.SetInt(int64(x))
			return nil
		}
	default:
		panic("invalid newIntDecoder size")
	}
}

func newUintDecoder(size int) decodeFunc {
	switch size {
	case 1:
		return func(v reflect.Value, d *fragments.Decoder) error {
			x, err := d.Uint8()
			if err != nil {
				return wrapWireErr(err)
			}
			v.SetUint(uint64(x))
			return nil
		}
	case 2:
		return func(v reflect.Value, d *fragments.Decoder) error {
			x, err := d.Uint16()
			if err != nil {
				return wrapWireErr(err)
			}
			v.SetUint(uint64(x))
			return nil
		}
	case 4:
		return func(v reflect.Value, d *fragments.Decoder) error {
			x, err := d.Uint32()
			if err != nil {
				return wrapWireErr(err)
			}
			v.SetUint(uint64(x))
			return nil
		}
	case 8:
		return func(v reflect.Value, d *fragments.Decoder) error {
			x, err := d.Uint64()
			if err != nil {
				return wrapWireErr(err)
			}
			v.SetUint(x)
			return nil
		}
	default:
		panic("invalid newUintDecoder size")
	}
}

func newFloatDecoder() decodeFunc {
	return func(v reflect.Value, d *fragments.Decoder) error {
		x, err := d.Uint64()
		if err != nil {
			return wrapWireErr(err)
		}
		v.SetFloat(math.Float64frombits(x))
		return nil
	}
}

func newStringDecoder() decodeFunc {
	return func(v reflect.Value, d *fragments.Decoder) error {
		s, err := d.String()
		if err != nil {
			return wrapWireErr(err)
		}
		v.SetString(s)
		return nil
	}
}

func newSliceDecoder(t reflect.Type) (decInfo, error) {
	if t.Elem().Kind() == reflect.Uint8 && t.Kind() == reflect.Slice {
		fn := func(v reflect.Value, d *fragments.Decoder) error {
			bs, err := d.Bytes()
			if err != nil {
				return wrapWireErr(err)
			}
			cp := make([]byte, len(bs))
			copy(cp, bs)
			v.SetBytes(cp)
			return nil
		}
		return decInfo{fn, Type{Kind: KindArray, Elem: &Type{Kind: KindByte}}}, nil
	}

	elemInfo, err := decoderFor(t.Elem())
	if err != nil {
		return decInfo{}, err
	}
	elemAlign := elemInfo.typ.Alignment()
	isArray := t.Kind() == reflect.Array

	fn := func(v reflect.Value, d *fragments.Decoder) error {
		var items []reflect.Value
		_, err := d.Array(elemAlign, func(int) error {
			ev := reflect.New(t.Elem()).Elem()
			if err := elemInfo.fn(ev, d); err != nil {
				return err
			}
			items = append(items, ev)
			return nil
		})
		if err != nil {
			return wrapWireErr(err)
		}
		if isArray {
			if len(items) != t.Len() {
				return unmarshalErr(ErrKindNotEnoughBytesForCollection, 0, "array has %d elements, want %d", len(items), t.Len())
			}
			for i, it := range items {
				v.Index(i).Set(it)
			}
			return nil
		}
		sl := reflect.MakeSlice(t, len(items), len(items))
		for i, it := range items {
			sl.Index(i).Set(it)
		}
		v.Set(sl)
		return nil
	}
	elem := elemInfo.typ
	return decInfo{fn, Type{Kind: KindArray, Elem: &elem}}, nil
}

func newStructDecoder(t reflect.Type) (decInfo, error) {
	info, err := getStructInfo(t)
	if err != nil {
		return decInfo{}, err
	}

	type fieldDec struct {
		idx int
		fn  decodeFunc
	}
	var fdecs []fieldDec
	var fieldTypes []Type
	for _, f := range info.Fields {
		fi, err := decoderFor(f.Type)
		if err != nil {
			return decInfo{}, err
		}
		fdecs = append(fdecs, fieldDec{f.Index[0], fi.fn})
		fieldTypes = append(fieldTypes, fi.typ)
	}

	fn := func(v reflect.Value, d *fragments.Decoder) error {
		err := d.Struct(func() error {
			for _, fd := range fdecs {
				if err := fd.fn(v.Field(fd.idx), d); err != nil {
					return err
				}
			}
			return nil
		})
		return wrapWireErr(err)
	}
	return decInfo{fn, Type{Kind: KindStruct, Fields: fieldTypes}}, nil
}

func newMapDecoder(t reflect.Type) (decInfo, error) {
	kt := t.Key()
	if !mapKeyKinds.Has(kt.Kind()) {
		return decInfo{}, typeErr(t, "invalid map key type %s, must be a dbus basic type", kt)
	}
	kInfo, err := decoderFor(kt)
	if err != nil {
		return decInfo{}, err
	}
	vInfo, err := decoderFor(t.Elem())
	if err != nil {
		return decInfo{}, err
	}

	fn := func(v reflect.Value, d *fragments.Decoder) error {
		m := reflect.MakeMap(t)
		_, err := d.Array(8, func(int) error {
			if err := d.Pad(8); err != nil {
				return err
			}
			kv := reflect.New(kt).Elem()
			if err := kInfo.fn(kv, d); err != nil {
				return err
			}
			vv := reflect.New(t.Elem()).Elem()
			if err := vInfo.fn(vv, d); err != nil {
				return err
			}
			m.SetMapIndex(kv, vv)
			return nil
		})
		if err != nil {
			return wrapWireErr(err)
		}
		v.Set(m)
		return nil
	}
	key := kInfo.typ.Kind
	val := vInfo.typ
	return decInfo{fn, Type{Kind: KindArray, Elem: &Type{Kind: KindDict, Key: key, Elem: &val}}}, nil
}

// Unmarshal reads a value of type T from d.
func Unmarshal[T any](d *fragments.Decoder) (T, error) {
	var v T
	info, err := decoderFor(reflect.TypeFor[T]())
	if err != nil {
		return v, err
	}
	rv := reflect.ValueOf(&v).Elem()
	if err := info.fn(rv, d); err != nil {
		return v, err
	}
	return v, nil
}

func unmarshalValue(d *fragments.Decoder, rv reflect.Value) error {
	info, err := decoderFor(rv.Type())
	if err != nil {
		return err
	}
	return info.fn(rv, d)
}

// hasSig reports whether the DBus type t matches the type described
// at the head of sig, without consuming anything. It is used by the
// body parser to implement WrongSignature checks that leave the
// cursor untouched on a mismatch.
func hasSig(t Type, sig string) bool {
	head, _, err := parseOne(sig, 0, false)
	if err != nil {
		return false
	}
	return head.String() == t.String()
}
