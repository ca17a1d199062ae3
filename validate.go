package dbus

import (
	"fmt"

	"github.com/wiredbus/go-dbus/fragments"
)

// A ValidationError reports a defect found while validating raw wire
// data against a declared signature, at the byte offset it occurred.
type ValidationError struct {
	Offset int
	Kind   UnmarshalErrorKind
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dbus: invalid wire data at offset %d: %s", e.Offset, e.Kind)
}

func validationErr(offset int, kind UnmarshalErrorKind) error {
	return &ValidationError{Offset: offset, Kind: kind}
}

// Validate checks that buf is a well-formed marshalling of sigs, the
// top-level DBus types in encounter order, without doing the work of
// fully unmarshalling any of them. It returns the number of bytes of
// buf the marshalling occupies, or an error reporting where the
// corruption was found.
//
// Validate is meant for callers like message relays that want to
// confirm a buffer is sound before forwarding it, without paying for
// a full typed unmarshal.
func Validate(order fragments.ByteOrder, buf []byte, sigs []Type) (int, error) {
	offset := 0
	for _, t := range sigs {
		n, err := validateOne(order, buf, offset, t)
		if err != nil {
			return 0, err
		}
		offset += n
	}
	if offset != len(buf) {
		return 0, validationErr(offset, ErrKindNotAllBytesUsed)
	}
	return offset, nil
}

func alignOffset(align, offset int, buf []byte) (int, error) {
	pad := (align - offset%align) % align
	if offset+pad > len(buf) {
		return 0, validationErr(offset, ErrKindNotEnoughBytes)
	}
	for _, b := range buf[offset : offset+pad] {
		if b != 0 {
			return 0, validationErr(offset, ErrKindPaddingContainedData)
		}
	}
	return pad, nil
}

func validateOne(order fragments.ByteOrder, buf []byte, offset int, t Type) (int, error) {
	if t.Kind.isBase() {
		return validateBase(order, buf, offset, t.Kind)
	}
	switch t.Kind {
	case KindArray:
		if t.Elem.Kind == KindDict {
			return validateDict(order, buf, offset, t.Elem.Key, *t.Elem.Elem)
		}
		return validateArray(order, buf, offset, *t.Elem)
	case KindDict:
		return validateDict(order, buf, offset, t.Key, *t.Elem)
	case KindStruct:
		return validateStruct(order, buf, offset, t.Fields)
	case KindVariant:
		return validateVariant(order, buf, offset)
	}
	return 0, validationErr(offset, ErrKindInvalidUnmarshalSignature)
}

func validateBase(order fragments.ByteOrder, buf []byte, offset int, kind Kind) (int, error) {
	align := baseType(kind).Alignment()
	pad, err := alignOffset(align, offset, buf)
	if err != nil {
		return 0, err
	}
	offset += pad

	need := func(n int) error {
		if len(buf)-offset < n {
			return validationErr(offset, ErrKindNotEnoughBytes)
		}
		return nil
	}

	switch kind {
	case KindByte, KindUnixFd:
		n := 1
		if kind == KindUnixFd {
			n = 4
		}
		if err := need(n); err != nil {
			return 0, err
		}
		return pad + n, nil
	case KindInt16, KindUint16:
		if err := need(2); err != nil {
			return 0, err
		}
		return pad + 2, nil
	case KindInt32, KindUint32:
		if err := need(4); err != nil {
			return 0, err
		}
		return pad + 4, nil
	case KindInt64, KindUint64, KindDouble:
		if err := need(8); err != nil {
			return 0, err
		}
		return pad + 8, nil
	case KindBool:
		if err := need(4); err != nil {
			return 0, err
		}
		v := order.Uint32(buf[offset : offset+4])
		if v != 0 && v != 1 {
			return 0, validationErr(offset, ErrKindInvalidBoolean)
		}
		return pad + 4, nil
	case KindString:
		n, _, err := validateWireString(order, buf, offset)
		if err != nil {
			return 0, err
		}
		return pad + n, nil
	case KindObjectPath:
		n, s, err := validateWireString(order, buf, offset)
		if err != nil {
			return 0, err
		}
		if !ObjectPath(s).Valid() {
			return 0, validationErr(offset, ErrKindInvalidUnmarshalObjectPath)
		}
		return pad + n, nil
	case KindSignature:
		n, s, err := validateWireSignature(buf, offset)
		if err != nil {
			return 0, err
		}
		if _, err := ParseSignature(s); err != nil {
			return 0, validationErr(offset, ErrKindInvalidUnmarshalSignature)
		}
		return pad + n, nil
	}
	return 0, validationErr(offset, ErrKindInvalidUnmarshalSignature)
}

func validateWireString(order fragments.ByteOrder, buf []byte, offset int) (int, string, error) {
	if len(buf)-offset < 4 {
		return 0, "", validationErr(offset, ErrKindNotEnoughBytes)
	}
	n := int(order.Uint32(buf[offset : offset+4]))
	start := offset + 4
	if len(buf)-start < n+1 {
		return 0, "", validationErr(offset, ErrKindNotEnoughBytes)
	}
	if buf[start+n] != 0 {
		return 0, "", validationErr(offset, ErrKindNotEnoughBytes)
	}
	return 4 + n + 1, string(buf[start : start+n]), nil
}

func validateWireSignature(buf []byte, offset int) (int, string, error) {
	if len(buf)-offset < 1 {
		return 0, "", validationErr(offset, ErrKindNotEnoughBytes)
	}
	n := int(buf[offset])
	start := offset + 1
	if len(buf)-start < n+1 {
		return 0, "", validationErr(offset, ErrKindNotEnoughBytes)
	}
	if buf[start+n] != 0 {
		return 0, "", validationErr(offset, ErrKindNotEnoughBytes)
	}
	return 1 + n + 1, string(buf[start : start+n]), nil
}

// bytesAlwaysValid reports whether any bit pattern of the right
// length is a valid encoding of t: true for fixed-width base types
// other than bool, for which the validator can skip per-element
// recursion and just check the content length is a multiple of the
// element's width.
func bytesAlwaysValid(t Type) bool {
	switch t.Kind {
	case KindByte, KindInt16, KindUint16, KindInt32, KindUint32,
		KindInt64, KindUint64, KindDouble, KindUnixFd:
		return true
	default:
		return false
	}
}

func validateArray(order fragments.ByteOrder, buf []byte, offset int, elem Type) (int, error) {
	pad, err := alignOffset(4, offset, buf)
	if err != nil {
		return 0, err
	}
	offset += pad
	if len(buf)-offset < 4 {
		return 0, validationErr(offset, ErrKindNotEnoughBytes)
	}
	contentLen := int(order.Uint32(buf[offset : offset+4]))
	if contentLen > fragments.MaxArrayLength {
		return 0, validationErr(offset, ErrKindNotEnoughBytesForCollection)
	}
	offset += 4
	if len(buf)-offset < contentLen {
		return 0, validationErr(offset, ErrKindNotEnoughBytesForCollection)
	}

	elemPad, err := alignOffset(elem.Alignment(), offset, buf)
	if err != nil {
		return 0, err
	}
	offset += elemPad
	if len(buf)-offset < contentLen {
		return 0, validationErr(offset, ErrKindNotEnoughBytesForCollection)
	}

	if bytesAlwaysValid(elem) {
		if contentLen%elem.Alignment() != 0 {
			return 0, validationErr(offset, ErrKindNotEnoughBytes)
		}
	} else {
		arrayEnd := offset + contentLen
		used := 0
		for used < contentLen {
			n, err := validateOne(order, buf[:arrayEnd], offset+used, elem)
			if err != nil {
				return 0, err
			}
			used += n
		}
	}
	return pad + 4 + elemPad + contentLen, nil
}

func validateDict(order fragments.ByteOrder, buf []byte, offset int, key Kind, val Type) (int, error) {
	pad, err := alignOffset(4, offset, buf)
	if err != nil {
		return 0, err
	}
	offset += pad
	if len(buf)-offset < 4 {
		return 0, validationErr(offset, ErrKindNotEnoughBytes)
	}
	contentLen := int(order.Uint32(buf[offset : offset+4]))
	if contentLen > fragments.MaxArrayLength {
		return 0, validationErr(offset, ErrKindNotEnoughBytesForCollection)
	}
	offset += 4
	if len(buf)-offset < contentLen {
		return 0, validationErr(offset, ErrKindNotEnoughBytesForCollection)
	}

	entryPad, err := alignOffset(8, offset, buf)
	if err != nil {
		return 0, err
	}
	offset += entryPad
	if len(buf)-offset < contentLen {
		return 0, validationErr(offset, ErrKindNotEnoughBytesForCollection)
	}

	dictEnd := offset + contentLen
	dictBuf := buf[:dictEnd]
	used := 0
	for used < contentLen {
		ePad, err := alignOffset(8, offset+used, dictBuf)
		if err != nil {
			return 0, err
		}
		used += ePad
		kn, err := validateBase(order, dictBuf, offset+used, key)
		if err != nil {
			return 0, err
		}
		used += kn
		vn, err := validateOne(order, dictBuf, offset+used, val)
		if err != nil {
			return 0, err
		}
		used += vn
	}
	return pad + entryPad + 4 + used, nil
}

func validateStruct(order fragments.ByteOrder, buf []byte, offset int, fields []Type) (int, error) {
	pad, err := alignOffset(8, offset, buf)
	if err != nil {
		return 0, err
	}
	offset += pad
	used := 0
	for _, f := range fields {
		n, err := validateOne(order, buf, offset+used, f)
		if err != nil {
			return 0, err
		}
		used += n
	}
	return pad + used, nil
}

func validateVariant(order fragments.ByteOrder, buf []byte, offset int) (int, error) {
	sigLen, sigStr, err := validateWireSignature(buf, offset)
	if err != nil {
		return 0, err
	}
	types, err := ParseSignature(sigStr)
	if err != nil {
		return 0, validationErr(offset, ErrKindInvalidUnmarshalSignature)
	}
	if len(types) != 1 {
		return 0, validationErr(offset, ErrKindWrongSignature)
	}
	offset += sigLen
	n, err := validateOne(order, buf, offset, types[0])
	if err != nil {
		return 0, err
	}
	return sigLen + n, nil
}
