package dbus

import (
	"reflect"

	"github.com/wiredbus/go-dbus/fragments"
)

// Body is an accumulating buffer of DBus method-call or signal
// parameters, together with the wire signature describing them and
// any file descriptors referenced from the buffer.
//
// Push methods marshal a parameter and extend buf, fds and sig
// together, so the three never drift out of sync with each other.
// [Body.Parser] then reads them back out in the same order. A Body is
// owned by a single caller; there is no internal locking.
type Body struct {
	order fragments.ByteOrder
	buf   []byte
	fds   []int
	sig   string
}

// NewBody returns an empty body using the host's native byte order.
func NewBody() *Body {
	return &Body{order: fragments.NativeEndian}
}

// NewBodyOrder returns an empty body using the given byte order.
func NewBodyOrder(order fragments.ByteOrder) *Body {
	return &Body{order: order}
}

// BodyFromParts wraps an already-marshaled buffer, its associated file
// descriptors, and its signature string into a Body, for a message
// read from a transport. The caller promises that buf is a consistent
// marshalling of sig; use [Body.Validate] to check that defensively.
func BodyFromParts(order fragments.ByteOrder, buf []byte, fds []int, sig string) *Body {
	return &Body{order: order, buf: buf, fds: fds, sig: sig}
}

// Buf returns the body's marshaled bytes.
func (b *Body) Buf() []byte { return b.buf }

// Sig returns the concatenation of the top-level signatures of every
// parameter pushed into the body so far.
func (b *Body) Sig() string { return b.sig }

// Fds returns the file descriptors referenced from the body, in the
// order their "h"-typed fields were pushed.
func (b *Body) Fds() []int { return b.fds }

// ByteOrder returns the byte order the body marshals with.
func (b *Body) ByteOrder() fragments.ByteOrder { return b.order }

// Reset clears buf, fds and sig back to empty, while retaining their
// backing storage for reuse.
func (b *Body) Reset() {
	b.buf = b.buf[:0]
	b.fds = b.fds[:0]
	b.sig = ""
}

// Reserve grows buf's capacity by additional bytes, to reduce
// reallocation while pushing a batch of parameters of known size.
func (b *Body) Reserve(additional int) {
	if cap(b.buf)-len(b.buf) >= additional {
		return
	}
	nb := make([]byte, len(b.buf), len(b.buf)+additional)
	copy(nb, b.buf)
	b.buf = nb
}

// PushParam marshals v and appends it to the body, rolling back buf,
// fds and sig to their prior state if marshalling fails.
func (b *Body) PushParam(v any) error {
	typ, err := SignatureOf(v)
	if err != nil {
		return err
	}
	bufLen, fdsLen := len(b.buf), len(b.fds)
	e := &fragments.Encoder{Order: b.order, Out: b.buf, Fds: b.fds}
	if err := Marshal(e, v); err != nil {
		b.buf = e.Out[:bufLen]
		b.fds = e.Fds[:fdsLen]
		return err
	}
	b.buf = e.Out
	b.fds = e.Fds
	b.sig += typ.String()
	return nil
}

// pushMultiHelper runs push under a single rollback scope: if push
// fails, buf, fds and sig are restored to their state before the call.
func (b *Body) pushMultiHelper(push func() error) error {
	sigLen, bufLen, fdsLen := len(b.sig), len(b.buf), len(b.fds)
	if err := push(); err != nil {
		b.sig = b.sig[:sigLen]
		b.buf = b.buf[:bufLen]
		b.fds = b.fds[:fdsLen]
		return err
	}
	return nil
}

// PushParams pushes every value in vs as a single transaction: if any
// marshal fails, the body is left exactly as it was beforehand.
func (b *Body) PushParams(vs ...any) error {
	return b.pushMultiHelper(func() error {
		for _, v := range vs {
			if err := b.PushParam(v); err != nil {
				return err
			}
		}
		return nil
	})
}

// PushVariant marshals v as the contents of a DBus variant: it writes
// the literal signature character "v" to the body's top-level
// signature, and marshals v's own signature and value into the buffer.
func (b *Body) PushVariant(v any) error {
	bufLen, fdsLen := len(b.buf), len(b.fds)
	e := &fragments.Encoder{Order: b.order, Out: b.buf, Fds: b.fds}
	vr := Variant{Value: v}
	if err := vr.MarshalDBus(e); err != nil {
		b.buf = e.Out[:bufLen]
		b.fds = e.Fds[:fdsLen]
		return err
	}
	b.buf = e.Out
	b.fds = e.Fds
	b.sig += "v"
	return nil
}

// PushOldParam marshals a dynamic [Param] and appends it to the body,
// for callers working with the untyped value model instead of Go types.
func (b *Body) PushOldParam(p Param) error {
	bufLen, fdsLen := len(b.buf), len(b.fds)
	e := &fragments.Encoder{Order: b.order, Out: b.buf, Fds: b.fds}
	if err := p.MarshalDBus(e); err != nil {
		b.buf = e.Out[:bufLen]
		b.fds = e.Fds[:fdsLen]
		return err
	}
	b.buf = e.Out
	b.fds = e.Fds
	b.sig += p.Type().String()
	return nil
}

// PushOldParams calls PushOldParam for every element of ps, under a
// single rollback scope.
func (b *Body) PushOldParams(ps []Param) error {
	return b.pushMultiHelper(func() error {
		for _, p := range ps {
			if err := b.PushOldParam(p); err != nil {
				return err
			}
		}
		return nil
	})
}

// Validate runs the raw validator across every top-level type in sig,
// requiring that it exactly accounts for buf's length.
func (b *Body) Validate() error {
	if b.sig == "" && len(b.buf) == 0 {
		return nil
	}
	types, err := ParseSignature(b.sig)
	if err != nil {
		return err
	}
	_, err = Validate(b.order, b.buf, types)
	return err
}

// Parser returns a cursor for reading the parameters out of b in the
// order they were pushed.
func (b *Body) Parser() *BodyParser {
	return &BodyParser{body: b}
}

// BodyParser is a read cursor into a [Body]'s buffer and signature.
// It tracks its position itself; failed reads leave it unchanged.
type BodyParser struct {
	body   *Body
	bufIdx int
	sigIdx int
}

func (p *BodyParser) nextSig() (Type, string, bool) {
	if p.sigIdx >= len(p.body.sig) {
		return Type{}, "", false
	}
	rest := p.body.sig[p.sigIdx:]
	t, n, err := parseOne(rest, 0, false)
	if err != nil {
		return Type{}, "", false
	}
	return t, rest[:n], true
}

// GetNextSig returns the signature token of the next unread parameter,
// if any remain.
func (p *BodyParser) GetNextSig() (string, bool) {
	_, tok, ok := p.nextSig()
	return tok, ok
}

// SigsLeft reports how many top-level parameters remain to be read.
func (p *BodyParser) SigsLeft() int {
	count := 0
	idx := p.sigIdx
	for idx < len(p.body.sig) {
		_, n, err := parseOne(p.body.sig[idx:], 0, false)
		if err != nil {
			break
		}
		idx += n
		count++
	}
	return count
}

// Get reads the next parameter as a T. It fails with EndOfMessage if
// no parameters remain, or WrongSignature — without advancing the
// cursor — if T's DBus type doesn't match the next parameter's.
func Get[T any](p *BodyParser) (T, error) {
	var zero T
	typ, tok, ok := p.nextSig()
	if !ok {
		return zero, unmarshalErr(ErrKindEndOfMessage, p.bufIdx, "no more parameters")
	}
	info, err := decoderFor(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	if !hasSig(info.typ, p.body.sig[p.sigIdx:]) {
		return zero, unmarshalErr(ErrKindWrongSignature, p.bufIdx, "have %s, want %s", typ, info.typ)
	}
	d := &fragments.Decoder{Order: p.body.order, Buf: p.body.buf, Offset: p.bufIdx, Fds: p.body.fds}
	var v T
	if err := info.fn(reflect.ValueOf(&v).Elem(), d); err != nil {
		return zero, err
	}
	p.bufIdx = d.Offset
	p.sigIdx += len(tok)
	return v, nil
}

func getMultiHelper[T any](p *BodyParser, count int, get func() (T, error)) (T, error) {
	var zero T
	if count > p.SigsLeft() {
		return zero, unmarshalErr(ErrKindEndOfMessage, p.bufIdx, "need %d more parameters", count)
	}
	sigIdx, bufIdx := p.sigIdx, p.bufIdx
	v, err := get()
	if err != nil {
		p.sigIdx, p.bufIdx = sigIdx, bufIdx
		return zero, err
	}
	return v, nil
}

// Get2 reads the next two parameters as a (T1, T2) pair, in a single
// rollback scope: a failure midway leaves the cursor untouched.
func Get2[T1, T2 any](p *BodyParser) (T1, T2, error) {
	var v1 T1
	var v2 T2
	_, err := getMultiHelper(p, 2, func() (struct{}, error) {
		var err error
		if v1, err = Get[T1](p); err != nil {
			return struct{}{}, err
		}
		v2, err = Get[T2](p)
		return struct{}{}, err
	})
	return v1, v2, err
}

// Get3 reads the next three parameters as a (T1, T2, T3) tuple.
func Get3[T1, T2, T3 any](p *BodyParser) (T1, T2, T3, error) {
	var v1 T1
	var v2 T2
	var v3 T3
	_, err := getMultiHelper(p, 3, func() (struct{}, error) {
		var err error
		if v1, err = Get[T1](p); err != nil {
			return struct{}{}, err
		}
		if v2, err = Get[T2](p); err != nil {
			return struct{}{}, err
		}
		v3, err = Get[T3](p)
		return struct{}{}, err
	})
	return v1, v2, v3, err
}

// Get4 reads the next four parameters as a (T1, T2, T3, T4) tuple.
func Get4[T1, T2, T3, T4 any](p *BodyParser) (T1, T2, T3, T4, error) {
	var v1 T1
	var v2 T2
	var v3 T3
	var v4 T4
	_, err := getMultiHelper(p, 4, func() (struct{}, error) {
		var err error
		if v1, err = Get[T1](p); err != nil {
			return struct{}{}, err
		}
		if v2, err = Get[T2](p); err != nil {
			return struct{}{}, err
		}
		if v3, err = Get[T3](p); err != nil {
			return struct{}{}, err
		}
		v4, err = Get[T4](p)
		return struct{}{}, err
	})
	return v1, v2, v3, v4, err
}

// Get5 reads the next five parameters as a (T1, T2, T3, T4, T5) tuple.
func Get5[T1, T2, T3, T4, T5 any](p *BodyParser) (T1, T2, T3, T4, T5, error) {
	var v1 T1
	var v2 T2
	var v3 T3
	var v4 T4
	var v5 T5
	_, err := getMultiHelper(p, 5, func() (struct{}, error) {
		var err error
		if v1, err = Get[T1](p); err != nil {
			return struct{}{}, err
		}
		if v2, err = Get[T2](p); err != nil {
			return struct{}{}, err
		}
		if v3, err = Get[T3](p); err != nil {
			return struct{}{}, err
		}
		if v4, err = Get[T4](p); err != nil {
			return struct{}{}, err
		}
		v5, err = Get[T5](p)
		return struct{}{}, err
	})
	return v1, v2, v3, v4, v5, err
}

// GetParam reads the next parameter as a dynamic [Param], for callers
// that don't know the parameter's Go type ahead of time.
func (p *BodyParser) GetParam() (Param, error) {
	typ, tok, ok := p.nextSig()
	if !ok {
		return Param{}, unmarshalErr(ErrKindEndOfMessage, p.bufIdx, "no more parameters")
	}
	d := &fragments.Decoder{Order: p.body.order, Buf: p.body.buf, Offset: p.bufIdx, Fds: p.body.fds}
	param, err := UnmarshalParam(d, typ)
	if err != nil {
		return Param{}, err
	}
	p.bufIdx = d.Offset
	p.sigIdx += len(tok)
	return param, nil
}
