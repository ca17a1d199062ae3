package fragments

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncoderPad(t *testing.T) {
	e := &Encoder{Order: BigEndian}
	e.Write([]byte{1, 2, 3})
	e.Pad(4)
	if diff := cmp.Diff(e.Out, []byte{1, 2, 3, 0}); diff != "" {
		t.Fatalf("wrong padding (-got +want):\n%s", diff)
	}
	// Already aligned: Pad is a no-op.
	e.Pad(4)
	if len(e.Out) != 4 {
		t.Fatalf("Pad on aligned output grew the buffer to %d bytes", len(e.Out))
	}
}

func TestEncoderIntegers(t *testing.T) {
	e := &Encoder{Order: BigEndian}
	e.Uint8(1)
	e.Uint16(2)
	e.Uint32(3)
	e.Uint64(4)
	want := []byte{
		1, 0, // Uint8, then pad to 2
		0, 2, // Uint16
		0, 0, 0, 3, // Uint32 (already aligned to 4)
		0, 0, 0, 0, 0, 0, 0, 4, // Uint64 (already aligned to 8)
	}
	if diff := cmp.Diff(e.Out, want); diff != "" {
		t.Fatalf("wrong encoding (-got +want):\n%s", diff)
	}
}

func TestEncoderBool(t *testing.T) {
	e := &Encoder{Order: BigEndian}
	e.Bool(true)
	e.Bool(false)
	want := []byte{0, 0, 0, 1, 0, 0, 0, 0}
	if diff := cmp.Diff(e.Out, want); diff != "" {
		t.Fatalf("wrong encoding (-got +want):\n%s", diff)
	}
}

func TestEncoderString(t *testing.T) {
	e := &Encoder{Order: BigEndian}
	e.String("ab")
	want := []byte{0, 0, 0, 2, 'a', 'b', 0}
	if diff := cmp.Diff(e.Out, want); diff != "" {
		t.Fatalf("wrong encoding (-got +want):\n%s", diff)
	}
}

func TestEncoderSignature(t *testing.T) {
	e := &Encoder{Order: BigEndian}
	if err := e.Signature("ai"); err != nil {
		t.Fatalf("Signature: %v", err)
	}
	want := []byte{2, 'a', 'i', 0}
	if diff := cmp.Diff(e.Out, want); diff != "" {
		t.Fatalf("wrong encoding (-got +want):\n%s", diff)
	}

	e2 := &Encoder{Order: BigEndian}
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'y'
	}
	if err := e2.Signature(string(long)); err != ErrSignatureTooLong {
		t.Fatalf("Signature of 256-byte string: got %v, want ErrSignatureTooLong", err)
	}
}

func TestEncoderFd(t *testing.T) {
	e := &Encoder{Order: BigEndian}
	if err := e.Fd(7); err != nil {
		t.Fatalf("Fd: %v", err)
	}
	if err := e.Fd(9); err != nil {
		t.Fatalf("Fd: %v", err)
	}
	if diff := cmp.Diff(e.Fds, []int{7, 9}); diff != "" {
		t.Fatalf("wrong Fds (-got +want):\n%s", diff)
	}
	want := []byte{0, 0, 0, 0, 0, 0, 0, 1}
	if diff := cmp.Diff(e.Out, want); diff != "" {
		t.Fatalf("wrong encoding (-got +want):\n%s", diff)
	}
}

func TestEncoderArray(t *testing.T) {
	e := &Encoder{Order: BigEndian}
	vals := []uint16{1, 2, 3}
	if err := e.Array(2, func() error {
		for _, v := range vals {
			e.Uint16(v)
		}
		return nil
	}); err != nil {
		t.Fatalf("Array: %v", err)
	}
	want := []byte{
		0, 0, 0, 6,
		0, 1, 0, 2, 0, 3,
	}
	if diff := cmp.Diff(e.Out, want); diff != "" {
		t.Fatalf("wrong encoding (-got +want):\n%s", diff)
	}
}

func TestEncoderArrayErrorRollsBackLength(t *testing.T) {
	e := &Encoder{Order: BigEndian}
	e.Write([]byte{0xff})
	before := len(e.Out)
	wantErr := ErrInvalidBoolean
	if err := e.Array(1, func() error {
		e.Uint8(1)
		return wantErr
	}); err != wantErr {
		t.Fatalf("Array: got %v, want %v", err, wantErr)
	}
	if len(e.Out) != before {
		t.Fatalf("Array did not roll back output on error: got %d bytes, want %d", len(e.Out), before)
	}
}

func TestEncoderStruct(t *testing.T) {
	e := &Encoder{Order: BigEndian}
	e.Write([]byte{1, 2, 3})
	if err := e.Struct(func() error {
		e.Uint8(9)
		return nil
	}); err != nil {
		t.Fatalf("Struct: %v", err)
	}
	want := []byte{1, 2, 3, 0, 0, 0, 0, 0, 9}
	if diff := cmp.Diff(e.Out, want); diff != "" {
		t.Fatalf("wrong encoding (-got +want):\n%s", diff)
	}
}

func TestEncoderByteOrderFlag(t *testing.T) {
	be := &Encoder{Order: BigEndian}
	be.ByteOrderFlag()
	if diff := cmp.Diff(be.Out, []byte{'B'}); diff != "" {
		t.Fatalf("wrong encoding (-got +want):\n%s", diff)
	}

	le := &Encoder{Order: LittleEndian}
	le.ByteOrderFlag()
	if diff := cmp.Diff(le.Out, []byte{'l'}); diff != "" {
		t.Fatalf("wrong encoding (-got +want):\n%s", diff)
	}
}
