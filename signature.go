package dbus

import (
	"strings"

	"github.com/wiredbus/go-dbus/fragments"
)

// Kind identifies the category of a DBus type: one of the thirteen
// base types, or one of the four container types (array, struct,
// dict-entry, variant).
type Kind byte

const (
	KindInvalid Kind = 0

	KindByte       Kind = 'y'
	KindBool       Kind = 'b'
	KindInt16      Kind = 'n'
	KindUint16     Kind = 'q'
	KindInt32      Kind = 'i'
	KindUint32     Kind = 'u'
	KindInt64      Kind = 'x'
	KindUint64     Kind = 't'
	KindDouble     Kind = 'd'
	KindString     Kind = 's'
	KindObjectPath Kind = 'o'
	KindSignature  Kind = 'g'
	KindUnixFd     Kind = 'h'

	KindArray   Kind = 'a'
	KindStruct  Kind = 'r'
	KindDict    Kind = 'e'
	KindVariant Kind = 'v'
)

func (k Kind) String() string {
	if k == KindInvalid {
		return "<invalid>"
	}
	return string(rune(k))
}

func (k Kind) isBase() bool {
	switch k {
	case KindByte, KindBool, KindInt16, KindUint16, KindInt32, KindUint32,
		KindInt64, KindUint64, KindDouble, KindString, KindObjectPath,
		KindSignature, KindUnixFd:
		return true
	}
	return false
}

// A Type is a node in the type tree described by a DBus signature
// string. Base types are represented by Kind alone; the three
// compound kinds (Array, Struct, Dict) carry additional structure, and
// Variant is atomic in the signature even though it carries an
// arbitrary value in the payload.
type Type struct {
	Kind Kind

	// Elem is the element type of an Array, or the value type of a
	// Dict. Unused for other kinds.
	Elem *Type
	// Key is the base kind of a Dict's key. Unused for other kinds.
	Key Kind
	// Fields is the member types of a Struct, always non-empty.
	// Unused for other kinds.
	Fields []Type
}

func baseType(k Kind) Type { return Type{Kind: k} }

// Alignment returns the DBus wire alignment, in bytes, that values of
// type t must start at.
func (t Type) Alignment() int {
	switch t.Kind {
	case KindByte, KindSignature, KindVariant:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindBool, KindUnixFd, KindArray, KindString, KindObjectPath:
		return 4
	case KindInt64, KindUint64, KindDouble, KindStruct, KindDict:
		return 8
	default:
		return 1
	}
}

// FixedWidth reports whether t is a base type that marshals to exactly
// t.Alignment() bytes, with no length prefix, and for which every bit
// pattern of that size is a valid value (so bool is excluded). The raw
// validator applies the same test, through bytesAlwaysValid in
// validate.go, to skip an elementwise walk of fixed-width array
// contents.
func (t Type) FixedWidth() bool {
	switch t.Kind {
	case KindByte, KindInt16, KindUint16, KindInt32, KindUint32,
		KindInt64, KindUint64, KindDouble, KindUnixFd:
		return true
	default:
		return false
	}
}

// String returns t's DBus signature encoding.
func (t Type) String() string {
	var sb strings.Builder
	t.appendString(&sb)
	return sb.String()
}

func (t Type) appendString(sb *strings.Builder) {
	switch t.Kind {
	case KindArray:
		sb.WriteByte('a')
		t.Elem.appendString(sb)
	case KindStruct:
		sb.WriteByte('(')
		for _, f := range t.Fields {
			f.appendString(sb)
		}
		sb.WriteByte(')')
	case KindDict:
		sb.WriteByte('{')
		sb.WriteByte(byte(t.Key))
		t.Elem.appendString(sb)
		sb.WriteByte('}')
	default:
		sb.WriteByte(byte(t.Kind))
	}
}

// TypesString returns the concatenated signature encoding of ts, as
// would appear as a message body's top-level signature.
func TypesString(ts []Type) string {
	var sb strings.Builder
	for _, t := range ts {
		t.appendString(&sb)
	}
	return sb.String()
}

const (
	maxSignatureLen = 255
	maxNestingDepth = 32
)

// ParseSignature parses a complete DBus signature string into the
// sequence of top-level types it describes. A signature string may
// describe zero or more types concatenated together, as is the case
// for a message body's signature.
func ParseSignature(sig string) ([]Type, error) {
	if len(sig) > maxSignatureLen {
		return nil, marshalErr(ErrKindSignatureTooLong, "signature %q is %d bytes long, maximum is %d", sig, len(sig), maxSignatureLen)
	}
	var types []Type
	rest := sig
	for len(rest) > 0 {
		t, n, err := parseOne(rest, 0, false)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
		rest = rest[n:]
	}
	return types, nil
}

// ParseSingleType parses sig as exactly one top-level type. It is used
// to interpret the signature string embedded ahead of every Variant's
// payload, which the DBus specification requires to describe exactly
// one type.
func ParseSingleType(sig string) (Type, error) {
	types, err := ParseSignature(sig)
	if err != nil {
		return Type{}, err
	}
	if len(types) != 1 {
		return Type{}, unmarshalErr(ErrKindWrongSignature, 0, "variant signature %q must describe exactly one type, got %d", sig, len(types))
	}
	return types[0], nil
}

func mustParseSingleType(sig string) Type {
	t, err := ParseSingleType(sig)
	if err != nil {
		panic(err)
	}
	return t
}

// parseOne consumes one complete type from the front of s, returning
// the parsed Type and the number of bytes consumed. allowDict permits
// a leading '{' to be interpreted as a dict-entry; it is only true
// when parseOne is invoked to parse the element type that immediately
// follows an 'a'.
func parseOne(s string, depth int, allowDict bool) (Type, int, error) {
	if len(s) == 0 {
		return Type{}, 0, marshalErr(ErrKindInvalidSignature, "unexpected end of signature")
	}
	if depth > maxNestingDepth {
		return Type{}, 0, marshalErr(ErrKindExceedsMaxDepth, "signature nesting exceeds %d levels", maxNestingDepth)
	}

	k := Kind(s[0])
	if k.isBase() || k == KindVariant {
		return Type{Kind: k}, 1, nil
	}

	switch s[0] {
	case byte(KindArray):
		elem, n, err := parseOne(s[1:], depth+1, true)
		if err != nil {
			return Type{}, 0, err
		}
		return Type{Kind: KindArray, Elem: &elem}, n + 1, nil

	case '(':
		rest := s[1:]
		consumed := 1
		var fields []Type
		for {
			if len(rest) == 0 {
				return Type{}, 0, marshalErr(ErrKindInvalidSignature, "unterminated struct in %q", s)
			}
			if rest[0] == ')' {
				consumed++
				break
			}
			f, n, err := parseOne(rest, depth+1, false)
			if err != nil {
				return Type{}, 0, err
			}
			fields = append(fields, f)
			rest = rest[n:]
			consumed += n
		}
		if len(fields) == 0 {
			return Type{}, 0, marshalErr(ErrKindEmptyStruct, "struct in %q has no member types", s)
		}
		return Type{Kind: KindStruct, Fields: fields}, consumed, nil

	case '{':
		if !allowDict {
			return Type{}, 0, marshalErr(ErrKindInvalidSignature, "dict-entry in %q used outside of an array", s)
		}
		rest := s[1:]
		if len(rest) == 0 || !Kind(rest[0]).isBase() {
			return Type{}, 0, marshalErr(ErrKindDictKeyMustBeBase, "dict-entry key in %q must be a base type", s)
		}
		key := Kind(rest[0])
		val, n, err := parseOne(rest[1:], depth+1, false)
		if err != nil {
			return Type{}, 0, err
		}
		rest = rest[1+n:]
		if len(rest) == 0 || rest[0] != '}' {
			return Type{}, 0, marshalErr(ErrKindInvalidSignature, "unterminated dict-entry in %q", s)
		}
		return Type{Kind: KindDict, Key: key, Elem: &val}, n + 3, nil

	case ')':
		return Type{}, 0, marshalErr(ErrKindInvalidSignature, "unexpected ) in %q", s)
	case '}':
		return Type{}, 0, marshalErr(ErrKindInvalidSignature, "unexpected } in %q", s)
	default:
		return Type{}, 0, marshalErr(ErrKindInvalidSignatureChar, "unknown type code %q in %q", s[0], s)
	}
}

// Signature is the Go representation of a DBus "signature" (g) value:
// a string of type codes. It is itself a valid DBus value of type
// "g", and is also the type of the descriptor embedded ahead of every
// Variant's payload.
type Signature string

// Types parses s into the sequence of top-level types it describes.
func (s Signature) Types() ([]Type, error) {
	return ParseSignature(string(s))
}

func (Signature) IsDBusStruct() bool { return false }

var signatureWireType = Type{Kind: KindSignature}

func (Signature) SignatureDBus() Type { return signatureWireType }

func (s Signature) MarshalDBus(e *fragments.Encoder) error {
	if len(s) > maxSignatureLen {
		return marshalErr(ErrKindSignatureTooLong, "signature %q is %d bytes long, maximum is %d", string(s), len(s), maxSignatureLen)
	}
	return e.Signature(string(s))
}

func (s *Signature) UnmarshalDBus(d *fragments.Decoder) error {
	v, err := d.Signature()
	if err != nil {
		return wrapWireErr(err)
	}
	*s = Signature(v)
	return nil
}
