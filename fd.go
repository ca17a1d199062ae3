package dbus

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/wiredbus/go-dbus/fragments"
)

// An Fd is a Unix file descriptor that can be sent or received
// alongside a DBus message body.
//
// Copies of an Fd share one underlying handle and its state. There is
// no reference count: [Fd.Close] on any copy closes the handle for all
// copies, and nothing closes the handle automatically when an Fd
// becomes unreachable.
//
// Taking the raw OS handle out of an Fd with [Fd.Take] is allowed
// exactly once; after that the Fd no longer owns the handle, and
// [Fd.Close] on it or on any copy of it does nothing.
type Fd struct {
	state *fdState
}

type fdState struct {
	mu     sync.Mutex
	handle int
	closed bool
	taken  bool
}

// NewFd wraps an OS file descriptor as an Fd. The Fd takes ownership
// of handle: closing the Fd closes handle, unless the handle was
// first taken with [Fd.Take].
func NewFd(handle int) Fd {
	return Fd{&fdState{handle: handle}}
}

// Dup duplicates the underlying handle with dup(2) and wraps the
// duplicate in a new, independently-owned Fd.
func (f Fd) Dup() (Fd, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	if f.state.closed {
		return Fd{}, fmt.Errorf("dbus: Dup of closed Fd")
	}
	nh, err := unix.Dup(f.state.handle)
	if err != nil {
		return Fd{}, fmt.Errorf("dbus: Dup: %w", err)
	}
	return NewFd(nh), nil
}

// Take returns the raw OS handle and relinquishes the Fd's ownership
// of it: the caller becomes responsible for closing it. Take may be
// called at most once per Fd; subsequent calls return an error.
func (f Fd) Take() (int, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	if f.state.taken {
		return 0, fmt.Errorf("dbus: Fd handle already taken")
	}
	if f.state.closed {
		return 0, fmt.Errorf("dbus: Take of closed Fd")
	}
	f.state.taken = true
	return f.state.handle, nil
}

// Close releases the underlying handle, unless it has already been
// taken with [Fd.Take] or closed.
func (f Fd) Close() error {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	if f.state.closed || f.state.taken {
		return nil
	}
	f.state.closed = true
	return unix.Close(f.state.handle)
}

func (Fd) IsDBusStruct() bool { return false }

var fdWireType = Type{Kind: KindUnixFd}

func (Fd) SignatureDBus() Type { return fdWireType }

func (f Fd) MarshalDBus(e *fragments.Encoder) error {
	f.state.mu.Lock()
	h := f.state.handle
	closed := f.state.closed
	f.state.mu.Unlock()
	if closed {
		return marshalErr(ErrKindFdIndexOverflow, "cannot marshal a closed Fd")
	}
	return e.Fd(h)
}

func (f *Fd) UnmarshalDBus(d *fragments.Decoder) error {
	h, err := d.Fd()
	if err != nil {
		return wrapWireErr(err)
	}
	*f = NewFd(h)
	return nil
}
