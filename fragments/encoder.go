package fragments

// An Encoder provides utilities to write a DBus wire format message
// to a byte slice.
//
// Methods insert padding as needed to conform to DBus alignment
// rules, except for [Encoder.Write] which outputs bytes verbatim.
type Encoder struct {
	// Order is the byte order to use when encoding multi-byte values.
	Order ByteOrder
	// Out is the encoded output.
	Out []byte
	// Fds accumulates the Unix file descriptors referenced by Out, in
	// encounter order. A value written with [Encoder.Fd] records its
	// index into Fds at the current position in Out.
	Fds []int
}

// Pad inserts padding bytes as needed to make the message a multiple
// of align bytes. If the message is already correctly aligned, no
// padding is inserted.
func (e *Encoder) Pad(align int) {
	extra := len(e.Out) % align
	if extra == 0 {
		return
	}
	var pad [8]byte
	e.Out = append(e.Out, pad[:align-extra]...)
}

// Write writes bs as-is to the output. It is the caller's
// responsibility to ensure correct padding and encoding.
func (e *Encoder) Write(bs []byte) {
	e.Out = append(e.Out, bs...)
}

// Bytes writes bs as a DBus byte array: a u32 length followed by the
// raw bytes.
func (e *Encoder) Bytes(bs []byte) {
	e.Pad(4)
	e.Uint32(uint32(len(bs)))
	e.Out = append(e.Out, bs...)
}

// String writes s using the DBus string encoding: a u32 length
// followed by the raw bytes and a trailing NUL that is not counted in
// the length.
func (e *Encoder) String(s string) {
	e.Bytes([]byte(s))
	e.Out = append(e.Out, 0)
}

// Signature writes s using the DBus signature-string encoding: a u8
// length followed by the raw bytes and a trailing NUL.
func (e *Encoder) Signature(s string) error {
	if len(s) > 255 {
		return ErrSignatureTooLong
	}
	e.Uint8(uint8(len(s)))
	e.Out = append(e.Out, s...)
	e.Out = append(e.Out, 0)
	return nil
}

// Uint8 writes a uint8.
func (e *Encoder) Uint8(u8 uint8) {
	e.Out = append(e.Out, u8)
}

// Uint16 writes a uint16.
func (e *Encoder) Uint16(u16 uint16) {
	e.Pad(2)
	e.Out = e.Order.AppendUint16(e.Out, u16)
}

// Uint32 writes a uint32.
func (e *Encoder) Uint32(u32 uint32) {
	e.Pad(4)
	e.Out = e.Order.AppendUint32(e.Out, u32)
}

// Uint64 writes a uint64.
func (e *Encoder) Uint64(u64 uint64) {
	e.Pad(8)
	e.Out = e.Order.AppendUint64(e.Out, u64)
}

// Bool writes a boolean, encoded as the DBus wire format mandates: a
// u32 containing 0 or 1.
func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint32(1)
	} else {
		e.Uint32(0)
	}
}

// Fd records fd in the fd list and writes its index to the output.
func (e *Encoder) Fd(fd int) error {
	if len(e.Fds) >= 1<<32-1 {
		return ErrFdIndexOverflow
	}
	idx := len(e.Fds)
	e.Fds = append(e.Fds, fd)
	e.Uint32(uint32(idx))
	return nil
}

// Array writes an array to the output.
//
// Array elements must be added within the provided elements function.
// elemAlign is the alignment of the array's element type: the
// elements function is only responsible for the alignment of each
// individual element relative to the previous one, Array pads the
// start of the first element for it.
func (e *Encoder) Array(elemAlign int, elements func() error) error {
	before := len(e.Out)
	e.Pad(4)
	offset := len(e.Out)
	e.Uint32(0)
	e.Pad(elemAlign)

	start := len(e.Out)
	if err := elements(); err != nil {
		e.Out = e.Out[:before]
		return err
	}
	end := len(e.Out)
	contentLen := end - start
	if contentLen > MaxArrayLength {
		e.Out = e.Out[:before]
		return ErrArrayTooLong
	}
	e.Order.PutUint32(e.Out[offset:], uint32(contentLen))
	return nil
}

// Struct writes a struct to the output.
//
// Struct fields must be added within the provided elements function.
func (e *Encoder) Struct(elements func() error) error {
	e.Pad(8)
	return elements()
}

// ByteOrderFlag writes the DBus byte order flag byte ('l' or 'B')
// that matches [Encoder.Order].
func (e *Encoder) ByteOrderFlag() {
	e.Write([]byte{e.Order.dbusFlag()})
}
