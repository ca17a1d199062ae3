package dbus

import (
	"reflect"

	"github.com/creachadair/mds/mapset"
)

// mapKeyKinds is the set of reflect.Kinds that can be DBus map keys:
// exactly the DBus base types representable by a native Go kind.
var mapKeyKinds = mapset.New(
	reflect.Bool,
	reflect.Uint8,
	reflect.Int16,
	reflect.Uint16,
	reflect.Int32,
	reflect.Uint32,
	reflect.Int64,
	reflect.Uint64,
	reflect.Float64,
	reflect.String,
)
