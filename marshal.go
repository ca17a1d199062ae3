package dbus

import (
	"math"
	"reflect"
	"slices"

	"github.com/wiredbus/go-dbus/fragments"
)

// Marshaler is the interface implemented by types that can marshal
// themselves to the DBus wire format.
//
// SignatureDBus and IsDBusStruct are invoked on zero values of the
// Marshaler, and must return constant values.
//
// MarshalDBus is responsible for inserting padding appropriate to the
// values being encoded, and for producing output that matches the
// structure declared by SignatureDBus and IsDBusStruct.
type Marshaler interface {
	SignatureDBus() Type
	IsDBusStruct() bool
	MarshalDBus(e *fragments.Encoder) error
}

var marshalerType = reflect.TypeFor[Marshaler]()

type encodeFunc func(v reflect.Value, e *fragments.Encoder) error

type encInfo struct {
	fn  encodeFunc
	typ Type
}

var encoders cache[reflect.Type, encInfo]

// encoderFor returns the cached encoder and DBus type for t,
// constructing them if this is the first time t is seen. Recursive
// types are rejected via the cache's own recursion guard, and types
// whose signature is longer than maxSignatureLen are rejected too.
func encoderFor(t reflect.Type) (encInfo, error) {
	info, err := encoders.GetOrBuild(t, func() (encInfo, error) {
		info, err := buildEncoder(t)
		if err != nil {
			return encInfo{}, err
		}
		if s := info.typ.String(); len(s) > maxSignatureLen {
			return encInfo{}, marshalErr(ErrKindSignatureTooLong, "signature of %s is %d bytes long, maximum is %d", t, len(s), maxSignatureLen)
		}
		return info, nil
	})
	if err == errRecursion {
		return encInfo{}, typeErr(t, "recursive types cannot be represented: %w", err)
	}
	return info, err
}

func buildEncoder(t reflect.Type) (encInfo, error) {
	// If a value's pointer type implements Marshaler, we can avoid a
	// value copy by using it. But we can only use it for addressable
	// values, which requires an additional runtime check.
	if t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(marshalerType) {
		return newCondAddrMarshalEncoder(t)
	}
	if t.Implements(marshalerType) {
		return newMarshalEncoder(t)
	}

	switch t.Kind() {
	case reflect.Pointer:
		return newPtrEncoder(t)
	case reflect.Interface:
		return newAnyEncoder(t)
	case reflect.Bool:
		return encInfo{newBoolEncoder(), baseType(KindBool)}, nil
	case reflect.Int, reflect.Uint:
		return encInfo{}, typeErr(t, "int and uint aren't portable, use fixed width integers")
	case reflect.Int8:
		return encInfo{}, typeErr(t, "int8 has no corresponding DBus type, use uint8 instead")
	case reflect.Int16:
		return encInfo{newIntEncoder(2), baseType(KindInt16)}, nil
	case reflect.Int32:
		return encInfo{newIntEncoder(4), baseType(KindInt32)}, nil
	case reflect.Int64:
		return encInfo{newIntEncoder(8), baseType(KindInt64)}, nil
	case reflect.Uint8:
		return encInfo{newUintEncoder(1), baseType(KindByte)}, nil
	case reflect.Uint16:
		return encInfo{newUintEncoder(2), baseType(KindUint16)}, nil
	case reflect.Uint32:
		return encInfo{newUintEncoder(4), baseType(KindUint32)}, nil
	case reflect.Uint64:
		return encInfo{newUintEncoder(8), baseType(KindUint64)}, nil
	case reflect.Float32:
		return encInfo{}, typeErr(t, "float32 has no corresponding DBus type, use float64 instead")
	case reflect.Float64:
		return encInfo{newFloatEncoder(), baseType(KindDouble)}, nil
	case reflect.String:
		return encInfo{newStringEncoder(), baseType(KindString)}, nil
	case reflect.Slice, reflect.Array:
		return newSliceEncoder(t)
	case reflect.Struct:
		return newStructEncoder(t)
	case reflect.Map:
		return newMapEncoder(t)
	}
	return encInfo{}, typeErr(t, "no dbus mapping for type")
}

func newMarshalEncoder(t reflect.Type) (encInfo, error) {
	typ := reflect.Zero(t).Interface().(Marshaler).SignatureDBus()
	fn := func(v reflect.Value, e *fragments.Encoder) error {
		m := v.Interface().(Marshaler)
		return m.MarshalDBus(e)
	}
	return encInfo{fn, typ}, nil
}

func newCondAddrMarshalEncoder(t reflect.Type) (encInfo, error) {
	ptrInfo, err := newMarshalEncoder(reflect.PointerTo(t))
	if err != nil {
		return encInfo{}, err
	}
	if t.Implements(marshalerType) {
		valInfo, err := newMarshalEncoder(t)
		if err != nil {
			return encInfo{}, err
		}
		fn := func(v reflect.Value, e *fragments.Encoder) error {
			if v.CanAddr() {
				return ptrInfo.fn(v.Addr(), e)
			}
			return valInfo.fn(v, e)
		}
		return encInfo{fn, valInfo.typ}, nil
	}
	fn := func(v reflect.Value, e *fragments.Encoder) error {
		if !v.CanAddr() {
			return typeErr(t, "Marshaler is only implemented on pointer receiver, and this value is not addressable")
		}
		return ptrInfo.fn(v.Addr(), e)
	}
	return encInfo{fn, ptrInfo.typ}, nil
}

func newPtrEncoder(t reflect.Type) (encInfo, error) {
	elemInfo, err := encoderFor(t.Elem())
	if err != nil {
		return encInfo{}, err
	}
	fn := func(v reflect.Value, e *fragments.Encoder) error {
		if v.IsNil() {
			return elemInfo.fn(reflect.Zero(t.Elem()), e)
		}
		return elemInfo.fn(v.Elem(), e)
	}
	return encInfo{fn, elemInfo.typ}, nil
}

// newAnyEncoder handles interface-kind fields (in practice, `any`) by
// wrapping whatever concrete value they hold in a Variant.
func newAnyEncoder(t reflect.Type) (encInfo, error) {
	fn := func(v reflect.Value, e *fragments.Encoder) error {
		if v.IsNil() {
			return typeErr(t, "cannot marshal a nil interface value")
		}
		vr := Variant{Value: v.Elem().Interface()}
		return vr.MarshalDBus(e)
	}
	return encInfo{fn, Type{Kind: KindVariant}}, nil
}

func newBoolEncoder() encodeFunc {
	return func(v reflect.Value, e *fragments.Encoder) error {
		e.Bool(v.Bool())
		return nil
	}
}

func newIntEncoder(size int) encodeFunc {
	switch size {
	case 2:
		return func(v reflect.Value, e *fragments.Encoder) error {
			e.Uint16(uint16(v.Int()))
			return nil
		}
	case 4:
		return func(v reflect.Value, e *fragments.Encoder) error {
			e.Uint32(uint32(v.Int()))
			return nil
		}
	case 8:
		return func(v reflect.Value, e *fragments.Encoder) error {
			e.Uint64(uint64(v.Int()))
			return nil
		}
	default:
		panic("invalid newIntEncoder size")
	}
}

func newUintEncoder(size int) encodeFunc {
	switch size {
	case 1:
		return func(v reflect.Value, e *fragments.Encoder) error {
			e.Uint8(uint8(v.Uint()))
			return nil
		}
	case 2:
		return func(v reflect.Value, e *fragments.Encoder) error {
			e.Uint16(uint16(v.Uint()))
			return nil
		}
	case 4:
		return func(v reflect.Value, e *fragments.Encoder) error {
			e.Uint32(uint32(v.Uint()))
			return nil
		}
	case 8:
		return func(v reflect.Value, e *fragments.Encoder) error {
			e.Uint64(v.Uint())
			return nil
		}
	default:
		panic("invalid newUintEncoder size")
	}
}

func newFloatEncoder() encodeFunc {
	return func(v reflect.Value, e *fragments.Encoder) error {
		e.Uint64(math.Float64bits(v.Float()))
		return nil
	}
}

func newStringEncoder() encodeFunc {
	return func(v reflect.Value, e *fragments.Encoder) error {
		e.String(v.String())
		return nil
	}
}

func newSliceEncoder(t reflect.Type) (encInfo, error) {
	if t.Elem().Kind() == reflect.Uint8 && t.Kind() == reflect.Slice {
		// Fast path for []byte.
		fn := func(v reflect.Value, e *fragments.Encoder) error {
			e.Bytes(v.Bytes())
			return nil
		}
		return encInfo{fn, Type{Kind: KindArray, Elem: &Type{Kind: KindByte}}}, nil
	}

	elemInfo, err := encoderFor(t.Elem())
	if err != nil {
		return encInfo{}, err
	}
	elemAlign := elemInfo.typ.Alignment()

	fn := func(v reflect.Value, e *fragments.Encoder) error {
		return e.Array(elemAlign, func() error {
			for i := 0; i < v.Len(); i++ {
				if err := elemInfo.fn(v.Index(i), e); err != nil {
					return err
				}
			}
			return nil
		})
	}
	elem := elemInfo.typ
	return encInfo{fn, Type{Kind: KindArray, Elem: &elem}}, nil
}

func newStructEncoder(t reflect.Type) (encInfo, error) {
	info, err := getStructInfo(t)
	if err != nil {
		return encInfo{}, err
	}

	type fieldEnc struct {
		idx int
		fn  encodeFunc
	}
	var fencs []fieldEnc
	var fieldTypes []Type
	for _, f := range info.Fields {
		fe, err := encoderFor(f.Type)
		if err != nil {
			return encInfo{}, err
		}
		fencs = append(fencs, fieldEnc{f.Index[0], fe.fn})
		fieldTypes = append(fieldTypes, fe.typ)
	}

	fn := func(v reflect.Value, e *fragments.Encoder) error {
		return e.Struct(func() error {
			for _, fe := range fencs {
				if err := fe.fn(v.Field(fe.idx), e); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return encInfo{fn, Type{Kind: KindStruct, Fields: fieldTypes}}, nil
}

func newMapEncoder(t reflect.Type) (encInfo, error) {
	kt := t.Key()
	if !mapKeyKinds.Has(kt.Kind()) {
		return encInfo{}, typeErr(t, "invalid map key type %s, must be a dbus basic type", kt)
	}
	kInfo, err := encoderFor(kt)
	if err != nil {
		return encInfo{}, err
	}
	vInfo, err := encoderFor(t.Elem())
	if err != nil {
		return encInfo{}, err
	}
	kCmp := mapKeyCmp(kt)

	fn := func(v reflect.Value, e *fragments.Encoder) error {
		ks := v.MapKeys()
		slices.SortFunc(ks, kCmp)
		return e.Array(8, func() error {
			for _, mk := range ks {
				mv := v.MapIndex(mk)
				e.Pad(8)
				if err := kInfo.fn(mk, e); err != nil {
					return err
				}
				if err := vInfo.fn(mv, e); err != nil {
					return err
				}
			}
			return nil
		})
	}
	key := kInfo.typ.Kind
	val := vInfo.typ
	return encInfo{fn, Type{Kind: KindArray, Elem: &Type{Kind: KindDict, Key: key, Elem: &val}}}, nil
}

// SignatureFor returns the DBus Type that values of type T marshal
// to.
func SignatureFor[T any]() (Type, error) {
	info, err := encoderFor(reflect.TypeFor[T]())
	if err != nil {
		return Type{}, err
	}
	return info.typ, nil
}

// SignatureOf returns the DBus Type that v marshals to.
func SignatureOf(v any) (Type, error) {
	if v == nil {
		return Type{}, typeErr(nil, "nil interface has no dbus signature")
	}
	info, err := encoderFor(reflect.TypeOf(v))
	if err != nil {
		return Type{}, err
	}
	return info.typ, nil
}

// Marshal appends v's DBus wire encoding to e.
func Marshal(e *fragments.Encoder, v any) error {
	if v == nil {
		return typeErr(nil, "cannot marshal a nil interface value")
	}
	info, err := encoderFor(reflect.TypeOf(v))
	if err != nil {
		return err
	}
	return info.fn(reflect.ValueOf(v), e)
}

func marshalValue(e *fragments.Encoder, rv reflect.Value) error {
	info, err := encoderFor(rv.Type())
	if err != nil {
		return err
	}
	return info.fn(rv, e)
}
