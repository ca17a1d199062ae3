// Package dbus implements the DBus message wire protocol: marshaling
// and unmarshaling of Go values to and from the DBus binary format,
// the dynamic Param value model for code that doesn't know a value's
// type until runtime, and the message envelope that wraps a body with
// its routing header.
//
// # Marshaling
//
// Marshal traverses a Go value v and writes its DBus wire encoding to
// an [fragments.Encoder]. If v implements [Marshaler], Marshal calls
// MarshalDBus on it to produce the encoding. Otherwise Marshal uses
// the following type-dependent default encodings:
//
// uint{8,16,32,64}, int{16,32,64}, float64, bool and string values
// encode to the corresponding DBus basic type.
//
// Array and slice values encode as DBus arrays. Nil slices encode the
// same as an empty slice.
//
// Struct values encode as DBus structs. Each exported struct field is
// encoded in declaration order, according to its own type. An embedded
// struct field is encoded like a named field of the same type, as a
// nested DBus struct; its inner fields are not flattened into the
// outer struct.
//
// Map values encode as a DBus dictionary, an array of key/value
// pairs, ordered by a deterministic comparison of the keys. The map's
// key type must be uint{8,16,32,64}, int{16,32,64}, float64, bool, or
// string.
//
// Pointer values encode as the value pointed to. A nil pointer
// encodes as the zero value of the type pointed to.
//
// [Signature], [ObjectPath], [Fd] and [Variant] values encode to the
// corresponding DBus types. 'any' values encode as DBus variants: the
// interface's inner value must itself be a valid value according to
// these rules, or Marshal returns a [TypeError].
//
// int8, int, uint, uintptr, complex64, complex128, float32, channel,
// and function values cannot be encoded, and cause Marshal to return
// a [TypeError]. DBus cannot represent cyclic or recursive types;
// attempting to encode one also returns a [TypeError].
//
// # Unmarshaling
//
// Unmarshal is the generic inverse of Marshal: Unmarshal[T] reads a
// DBus value from a [fragments.Decoder] into a freshly zeroed T. The
// wire data's layout must be compatible with T's DBus signature;
// since a raw buffer carries no signature of its own, it is up to the
// caller to know or negotiate the expected format. [Body] and
// [BodyParser] track a message body's signature alongside its bytes,
// so [Get] can check it for you.
//
// If T implements [Unmarshaler], Unmarshal calls UnmarshalDBus on a
// pointer to it. Implementations must use a pointer receiver; a value
// receiver causes Unmarshal to return a [TypeError].
//
// Otherwise Unmarshal decodes the same default encodings Marshal
// produces, in reverse: slices are replaced by a newly allocated slice
// of the decoded elements, maps are allocated before being filled (a
// duplicate key discards all but the dictionary's last value for it),
// and 'any' decodes into a [Param] describing the variant's contents
// generically, since the target Go type isn't known ahead of time.
//
// # Signatures, dynamic values, and validation
//
// [Type] is the structural signature tree used internally to
// describe DBus types; [Signature] is the DBus "g"-typed wire value,
// a validated signature string. [Param] is a dynamic, tagged-union
// value model for code working with DBus data whose type is only
// known at runtime — a bus proxy, an introspection tool, a relay.
// [Validate] checks that a raw buffer is a well-formed marshaling of
// a signature without doing the work of a full typed unmarshal, which
// is useful for code that forwards messages without inspecting their
// contents.
//
// # Messages
//
// [Message] is a complete DBus message: its type, flags, routing
// header and [Body]. [EncodeHeader] and [DecodeHeader] handle the
// fixed part of the wire format — the byte order mark, message type,
// flags, protocol version, and the array of header fields — around
// the message body that [Body] and [BodyParser] marshal and parse.
// [MessageBuilder] and its descendants build outgoing messages with a
// fluent, one-call-per-field API.
package dbus
