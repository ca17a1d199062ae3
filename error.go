package dbus

import (
	"fmt"
	"reflect"

	"github.com/wiredbus/go-dbus/fragments"
)

// TypeError is the error returned when a Go type cannot be
// represented in the DBus wire format.
type TypeError struct {
	// Type is the name of the type that caused the error.
	Type string
	// Reason is an explanation of why the type isn't representable by
	// DBus.
	Reason error
}

func (e TypeError) Error() string {
	return fmt.Sprintf("dbus cannot represent %s: %s", e.Type, e.Reason)
}

func (e TypeError) Unwrap() error {
	return e.Reason
}

func typeErr(t reflect.Type, reason string, args ...any) error {
	ts := ""
	if t != nil {
		ts = t.String()
	}
	return TypeError{ts, fmt.Errorf(reason, args...)}
}

// CallError describes a failed DBus method call by its DBus error
// name and a human-readable detail.
type CallError struct {
	// Name is the DBus error name, e.g. "org.freedesktop.DBus.Error.Failed".
	Name string
	// Detail is the human-readable explanation of what went wrong.
	Detail string
}

func (e CallError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("call error %s", e.Name)
	}
	return fmt.Sprintf("call error %s: %s", e.Name, e.Detail)
}

// A MarshalErrorKind classifies the reason a marshal operation
// failed.
type MarshalErrorKind int

const (
	_ MarshalErrorKind = iota
	ErrKindInvalidSignature
	ErrKindSignatureTooLong
	ErrKindExceedsMaxDepth
	ErrKindEmptyStruct
	ErrKindInvalidObjectPath
	ErrKindInvalidSignatureChar
	ErrKindDictKeyMustBeBase
	ErrKindVariantSigMismatch
	ErrKindFdIndexOverflow
	ErrKindArrayTooLong
)

func (k MarshalErrorKind) String() string {
	switch k {
	case ErrKindInvalidSignature:
		return "InvalidSignature"
	case ErrKindSignatureTooLong:
		return "TooLong"
	case ErrKindExceedsMaxDepth:
		return "ExceedsMaxDepth"
	case ErrKindEmptyStruct:
		return "EmptyStruct"
	case ErrKindInvalidObjectPath:
		return "InvalidObjectPath"
	case ErrKindInvalidSignatureChar:
		return "InvalidSignatureChar"
	case ErrKindDictKeyMustBeBase:
		return "DictKeyMustBeBase"
	case ErrKindVariantSigMismatch:
		return "VariantSigMismatch"
	case ErrKindFdIndexOverflow:
		return "FdIndexOverflow"
	case ErrKindArrayTooLong:
		return "TooLong"
	default:
		return "Unknown"
	}
}

// MarshalError is returned by operations that build DBus wire bytes.
type MarshalError struct {
	Kind   MarshalErrorKind
	Detail string
}

func (e *MarshalError) Error() string {
	if e.Detail == "" {
		return "marshal error: " + e.Kind.String()
	}
	return fmt.Sprintf("marshal error: %s: %s", e.Kind, e.Detail)
}

func marshalErr(kind MarshalErrorKind, format string, args ...any) *MarshalError {
	return &MarshalError{kind, fmt.Sprintf(format, args...)}
}

// An UnmarshalErrorKind classifies the reason an unmarshal or
// validation operation failed.
type UnmarshalErrorKind int

const (
	_ UnmarshalErrorKind = iota
	ErrKindNotEnoughBytes
	ErrKindNotEnoughBytesForCollection
	ErrKindNotAllBytesUsed
	ErrKindPaddingContainedData
	ErrKindInvalidBoolean
	ErrKindInvalidUnmarshalObjectPath
	ErrKindInvalidUtf8
	ErrKindInvalidUnmarshalSignature
	ErrKindWrongSignature
	ErrKindEndOfMessage
)

func (k UnmarshalErrorKind) String() string {
	switch k {
	case ErrKindNotEnoughBytes:
		return "NotEnoughBytes"
	case ErrKindNotEnoughBytesForCollection:
		return "NotEnoughBytesForCollection"
	case ErrKindNotAllBytesUsed:
		return "NotAllBytesUsed"
	case ErrKindPaddingContainedData:
		return "PaddingContainedData"
	case ErrKindInvalidBoolean:
		return "InvalidBoolean"
	case ErrKindInvalidUnmarshalObjectPath:
		return "InvalidObjectPath"
	case ErrKindInvalidUtf8:
		return "InvalidUtf8"
	case ErrKindInvalidUnmarshalSignature:
		return "InvalidSignature"
	case ErrKindWrongSignature:
		return "WrongSignature"
	case ErrKindEndOfMessage:
		return "EndOfMessage"
	default:
		return "Unknown"
	}
}

// UnmarshalError is returned by operations that read DBus wire bytes.
//
// Offset is the byte offset at which the problem was detected. The
// EndOfMessage and WrongSignature errors of [BodyParser] set it to the
// parser's position in the body's buffer; errors from decoding a
// value leave it at zero. The raw validator reports offsets through
// [ValidationError] instead.
type UnmarshalError struct {
	Kind    UnmarshalErrorKind
	Offset  int
	Detail  string
}

func (e *UnmarshalError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unmarshal error at offset %d: %s", e.Offset, e.Kind)
	}
	return fmt.Sprintf("unmarshal error at offset %d: %s: %s", e.Offset, e.Kind, e.Detail)
}

func unmarshalErr(kind UnmarshalErrorKind, offset int, format string, args ...any) *UnmarshalError {
	return &UnmarshalError{kind, offset, fmt.Sprintf(format, args...)}
}

// wrapWireErr upgrades an error returned directly by a
// [fragments.Encoder]/[fragments.Decoder] method into the richer
// UnmarshalError taxonomy, leaving anything it doesn't recognize
// untouched.
func wrapWireErr(err error) error {
	if err == nil {
		return nil
	}
	if k, ok := wireErrKind(err); ok {
		return &UnmarshalError{Kind: k}
	}
	return err
}

// wireErrKind maps a wire-level error produced by the fragments
// package to the UnmarshalError kind that best describes it, so code
// built on top of [fragments.Decoder] reports errors using the same
// taxonomy as the raw validator.
func wireErrKind(err error) (UnmarshalErrorKind, bool) {
	switch err {
	case fragments.ErrNotEnoughBytes:
		return ErrKindNotEnoughBytes, true
	case fragments.ErrNotEnoughBytesForCollection:
		return ErrKindNotEnoughBytesForCollection, true
	case fragments.ErrPaddingContainedData:
		return ErrKindPaddingContainedData, true
	case fragments.ErrInvalidBoolean:
		return ErrKindInvalidBoolean, true
	case fragments.ErrArrayTooLong:
		return ErrKindNotEnoughBytesForCollection, true
	case fragments.ErrInvalidUTF8:
		return ErrKindInvalidUtf8, true
	case fragments.ErrInvalidSignature:
		return ErrKindInvalidUnmarshalSignature, true
	}
	return 0, false
}
