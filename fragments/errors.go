package fragments

import "errors"

// MaxArrayLength is the largest permitted content length, in bytes,
// of a single DBus array or dict (2^26, per the DBus specification).
const MaxArrayLength = 1 << 26

// Wire-level errors returned by [Encoder] and [Decoder]. Higher-level
// callers generally wrap these into the richer MarshalError and
// UnmarshalError taxonomies, but the sentinels here are what the
// low-level read/write primitives actually produce.
var (
	ErrNotEnoughBytes             = errors.New("not enough bytes remaining in buffer")
	ErrNotEnoughBytesForCollection = errors.New("array or dict content length exceeds available bytes")
	ErrPaddingContainedData       = errors.New("alignment padding contains non-zero bytes")
	ErrInvalidBoolean             = errors.New("boolean value is neither 0 nor 1")
	ErrArrayTooLong               = errors.New("array or dict content exceeds the maximum length")
	ErrFdIndexOverflow            = errors.New("file descriptor index out of range")
	ErrInvalidUTF8                = errors.New("string is not valid UTF-8")
	ErrInvalidSignature           = errors.New("malformed signature string")
	ErrSignatureTooLong           = errors.New("signature string exceeds 255 bytes")
)
