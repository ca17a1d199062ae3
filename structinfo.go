package dbus

import (
	"cmp"
	"fmt"
	"reflect"
)

// structInfo is the information needed to marshal and unmarshal a
// struct type: DBus tuples are simply the struct's exported fields, in
// declaration order, with no interior padding beyond each field's own
// alignment.
type structInfo struct {
	Fields []reflect.StructField
}

var structInfos cache[reflect.Type, *structInfo]

func getStructInfo(t reflect.Type) (*structInfo, error) {
	return structInfos.GetOrBuild(t, func() (*structInfo, error) { return buildStructInfo(t) })
}

func buildStructInfo(t reflect.Type) (*structInfo, error) {
	var fields []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("struct %s has no exported fields to represent as a dbus tuple", t)
	}
	return &structInfo{Fields: fields}, nil
}

// mapKeyCmp returns a comparison function for the given DBus-base-typed
// map key, used to produce deterministic dict ordering on the wire.
func mapKeyCmp(t reflect.Type) func(a, b reflect.Value) int {
	switch t.Kind() {
	case reflect.Bool:
		return func(a, b reflect.Value) int {
			if a.Bool() == b.Bool() {
				return 0
			}
			if !a.Bool() {
				return -1
			}
			return 1
		}
	case reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.Int(), b.Int())
		}
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.Uint(), b.Uint())
		}
	case reflect.Float64:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.Float(), b.Float())
		}
	case reflect.String:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.String(), b.String())
		}
	default:
		panic(fmt.Sprintf("invalid dbus map key type %s", t))
	}
}
