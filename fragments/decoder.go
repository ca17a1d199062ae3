package fragments

import (
	"fmt"
	"unicode/utf8"
)

// A Decoder provides utilities to read a DBus wire format message
// from a byte slice.
//
// Methods advance the read cursor as needed to account for the
// padding required by DBus alignment rules, except for [Decoder.Read]
// which reads bytes verbatim. Decoder operates directly on a borrowed
// byte slice so that string and byte-array values can be returned
// without copying.
type Decoder struct {
	// Order is the byte order to use when reading multi-byte values.
	Order ByteOrder
	// Buf is the message body being decoded.
	Buf []byte
	// Offset is the current read cursor into Buf.
	Offset int
	// Fds is the out-of-band list of file descriptors referenced by
	// Buf. A value read with [Decoder.Fd] looks up its handle here.
	Fds []int
}

func (d *Decoder) remaining() int {
	return len(d.Buf) - d.Offset
}

// Pad consumes padding bytes as needed to make the next read happen
// at a multiple of align bytes. If the decoder is already correctly
// aligned, no bytes are consumed. Padding bytes that are not zero are
// rejected with [ErrPaddingContainedData].
func (d *Decoder) Pad(align int) error {
	extra := d.Offset % align
	if extra == 0 {
		return nil
	}
	skip := align - extra
	if d.remaining() < skip {
		return ErrNotEnoughBytes
	}
	for _, b := range d.Buf[d.Offset : d.Offset+skip] {
		if b != 0 {
			return ErrPaddingContainedData
		}
	}
	d.Offset += skip
	return nil
}

// Read returns the next n bytes, with no framing or padding, and
// advances the cursor past them.
func (d *Decoder) Read(n int) ([]byte, error) {
	if d.remaining() < n {
		return nil, ErrNotEnoughBytes
	}
	bs := d.Buf[d.Offset : d.Offset+n]
	d.Offset += n
	return bs, nil
}

// Bytes reads a DBus byte array: a u32 length followed by the raw
// bytes.
func (d *Decoder) Bytes() ([]byte, error) {
	ln, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	return d.Read(int(ln))
}

// String reads a DBus string: a u32 length followed by the raw bytes
// and a trailing NUL. It verifies the bytes are valid UTF-8.
func (d *Decoder) String() (string, error) {
	bs, err := d.Bytes()
	if err != nil {
		return "", err
	}
	nul, err := d.Read(1)
	if err != nil {
		return "", err
	}
	if nul[0] != 0 {
		return "", ErrInvalidUTF8
	}
	if !utf8.Valid(bs) {
		return "", ErrInvalidUTF8
	}
	return string(bs), nil
}

// Signature reads a DBus signature string: a u8 length followed by
// the raw bytes and a trailing NUL.
func (d *Decoder) Signature() (string, error) {
	ln, err := d.Uint8()
	if err != nil {
		return "", err
	}
	bs, err := d.Read(int(ln))
	if err != nil {
		return "", err
	}
	nul, err := d.Read(1)
	if err != nil {
		return "", err
	}
	if nul[0] != 0 {
		return "", ErrInvalidSignature
	}
	return string(bs), nil
}

// Uint8 reads a uint8.
func (d *Decoder) Uint8() (uint8, error) {
	bs, err := d.Read(1)
	if err != nil {
		return 0, err
	}
	return bs[0], nil
}

// Uint16 reads a uint16.
func (d *Decoder) Uint16() (uint16, error) {
	if err := d.Pad(2); err != nil {
		return 0, err
	}
	bs, err := d.Read(2)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint16(bs), nil
}

// Uint32 reads a uint32.
func (d *Decoder) Uint32() (uint32, error) {
	if err := d.Pad(4); err != nil {
		return 0, err
	}
	bs, err := d.Read(4)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint32(bs), nil
}

// Uint64 reads a uint64.
func (d *Decoder) Uint64() (uint64, error) {
	if err := d.Pad(8); err != nil {
		return 0, err
	}
	bs, err := d.Read(8)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint64(bs), nil
}

// Bool reads a boolean, encoded as a u32 that must be 0 or 1.
func (d *Decoder) Bool() (bool, error) {
	v, err := d.Uint32()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidBoolean
	}
}

// Fd reads a u32 fd index and resolves it against Fds.
func (d *Decoder) Fd() (int, error) {
	idx, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	if int(idx) >= len(d.Fds) {
		return 0, ErrFdIndexOverflow
	}
	return d.Fds[idx], nil
}

// Array reads an array.
//
// readElement is called repeatedly while there is array data
// remaining to process, passing in the array index of the element to
// be decoded. readElement must completely consume all array bytes for
// that element, and must not read beyond the end of the array data.
//
// elemAlign is the alignment of the array's element type, used to
// consume the padding between the length prefix and the first
// element even when the array is empty.
//
// Array returns the total number of array elements that were
// processed.
func (d *Decoder) Array(elemAlign int, readElement func(int) error) (int, error) {
	ln, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	if ln > MaxArrayLength {
		return 0, ErrArrayTooLong
	}
	if err := d.Pad(elemAlign); err != nil {
		return 0, err
	}
	start := d.Offset
	end := start + int(ln)
	if end > len(d.Buf) {
		return 0, ErrNotEnoughBytesForCollection
	}
	idx := 0
	for d.Offset < end {
		if err := readElement(idx); err != nil {
			return idx, err
		}
		idx++
	}
	if d.Offset != end {
		return idx, ErrNotEnoughBytesForCollection
	}
	return idx, nil
}

// Struct reads a struct.
//
// Struct fields must be read within the provided fields function.
func (d *Decoder) Struct(fields func() error) error {
	if err := d.Pad(8); err != nil {
		return err
	}
	return fields()
}

// ByteOrderFlag reads a DBus byte order flag byte, and sets
// [Decoder.Order] to match it.
func (d *Decoder) ByteOrderFlag() error {
	v, err := d.Uint8()
	if err != nil {
		return err
	}
	switch v {
	case 'B':
		d.Order = BigEndian
	case 'l':
		d.Order = LittleEndian
	default:
		return fmt.Errorf("unknown byte order flag %q", v)
	}
	return nil
}
