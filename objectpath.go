package dbus

import (
	"strings"

	"github.com/wiredbus/go-dbus/fragments"
)

// ObjectPath is a DBus object path: a slash-separated name, such as
// "/org/freedesktop/DBus", that identifies an object exported by a
// bus peer.
type ObjectPath string

// Valid reports whether p conforms to the DBus object path grammar: it
// starts with '/', its elements are non-empty and contain only
// ASCII letters, digits and underscore, and (unless p is the root
// path "/") it does not end in a trailing slash.
func (p ObjectPath) Valid() bool {
	s := string(p)
	if len(s) == 0 || s[0] != '/' {
		return false
	}
	if s == "/" {
		return true
	}
	for _, elem := range strings.Split(s[1:], "/") {
		if len(elem) == 0 {
			return false
		}
		for _, c := range []byte(elem) {
			if !isPathElementByte(c) {
				return false
			}
		}
	}
	return true
}

func isPathElementByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_':
		return true
	}
	return false
}

func (ObjectPath) IsDBusStruct() bool { return false }

var objectPathWireType = Type{Kind: KindObjectPath}

func (ObjectPath) SignatureDBus() Type { return objectPathWireType }

func (p ObjectPath) MarshalDBus(e *fragments.Encoder) error {
	if !p.Valid() {
		return marshalErr(ErrKindInvalidObjectPath, "%q is not a valid object path", string(p))
	}
	e.String(string(p))
	return nil
}

func (p *ObjectPath) UnmarshalDBus(d *fragments.Decoder) error {
	v, err := d.String()
	if err != nil {
		return wrapWireErr(err)
	}
	ret := ObjectPath(v)
	if !ret.Valid() {
		return unmarshalErr(ErrKindInvalidUnmarshalObjectPath, 0, "%q is not a valid object path", v)
	}
	*p = ret
	return nil
}
