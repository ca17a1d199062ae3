package dbus

import (
	"reflect"
	"testing"
)

func TestMapKeyKinds(t *testing.T) {
	allowed := []reflect.Kind{
		reflect.Bool, reflect.Uint8, reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32, reflect.Int64, reflect.Uint64,
		reflect.Float64, reflect.String,
	}
	for _, k := range allowed {
		if !mapKeyKinds.Has(k) {
			t.Errorf("mapKeyKinds missing %v", k)
		}
	}
	disallowed := []reflect.Kind{
		reflect.Int, reflect.Uint, reflect.Int8, reflect.Float32,
		reflect.Struct, reflect.Slice, reflect.Map, reflect.Ptr,
	}
	for _, k := range disallowed {
		if mapKeyKinds.Has(k) {
			t.Errorf("mapKeyKinds unexpectedly allows %v", k)
		}
	}
}
