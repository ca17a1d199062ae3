package dbus

import (
	"fmt"

	"github.com/wiredbus/go-dbus/fragments"
)

// MessageType is the type of a DBus message.
type MessageType byte

const (
	_ MessageType = iota
	MessageTypeCall
	MessageTypeReturn
	MessageTypeError
	MessageTypeSignal
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeCall:
		return "MethodCall"
	case MessageTypeReturn:
		return "MethodReturn"
	case MessageTypeError:
		return "Error"
	case MessageTypeSignal:
		return "Signal"
	default:
		return fmt.Sprintf("MessageType(%d)", byte(t))
	}
}

// HeaderFlags is a bit in a message's header flags byte.
type HeaderFlags byte

const (
	FlagNoReplyExpected              HeaderFlags = 1 << 0
	FlagNoAutoStart                  HeaderFlags = 1 << 1
	FlagAllowInteractiveAuthorization HeaderFlags = 1 << 2
)

// IsSet reports whether f is set in flags.
//
// flags&byte(f) is compared against 0, not 1: a flags byte with more
// than one bit set (the common case) would otherwise make every bit
// past the lowest one test as unset.
func (f HeaderFlags) IsSet(flags byte) bool {
	return flags&byte(f) != 0
}

// Set turns f on in *flags.
func (f HeaderFlags) Set(flags *byte) {
	*flags |= byte(f)
}

// Unset turns f off in *flags.
func (f HeaderFlags) Unset(flags *byte) {
	*flags &^= byte(f)
}

// Toggle flips f in *flags.
func (f HeaderFlags) Toggle(flags *byte) {
	if f.IsSet(*flags) {
		f.Unset(flags)
	} else {
		f.Set(flags)
	}
}

// DynamicHeader holds the variable part of a DBus message header: the
// fields whose presence and value depend on the message's type and
// addressing.
type DynamicHeader struct {
	Object         ObjectPath
	Interface      string
	Member         string
	ErrorName      string
	ReplySerial    uint32
	Destination    string
	Sender         string
	NumFDs         uint32
}

// A Message is a complete DBus message: its type, flags, the dynamic
// header fields, and its body.
type Message struct {
	Type   MessageType
	Flags  byte
	Header DynamicHeader
	Body   *Body

	serial uint32
}

// Serial returns the serial number the message was sent, or received,
// with.
func (m *Message) Serial() uint32 { return m.serial }

// MakeResponse builds a successful method-return message addressed
// back to m's sender, with m's serial as the reply's ReplySerial.
func (m *Message) MakeResponse() *Message {
	return &Message{
		Type: MessageTypeReturn,
		Header: DynamicHeader{
			Destination: m.Header.Sender,
			ReplySerial: m.serial,
		},
		Body: NewBody(),
	}
}

// MakeErrorResponse builds an error reply addressed back to m's
// sender, with m's serial as the reply's ReplySerial. If msg is
// non-empty, it is pushed as the response's sole body parameter.
func (m *Message) MakeErrorResponse(name, msg string) *Message {
	resp := &Message{
		Type: MessageTypeError,
		Header: DynamicHeader{
			Destination: m.Header.Sender,
			ReplySerial: m.serial,
			ErrorName:   name,
		},
		Body: NewBody(),
	}
	if msg != "" {
		// A single valid Go string can never fail to marshal.
		_ = resp.Body.PushParam(msg)
	}
	return resp
}

// WantReply reports whether a call message requires a response.
func (m *Message) WantReply() bool {
	return m.Type == MessageTypeCall && !FlagNoReplyExpected.IsSet(m.Flags)
}

// CanInteract reports whether the message's sender is prepared to
// wait for an interactive authorization prompt.
func (m *Message) CanInteract() bool {
	return m.Type == MessageTypeCall && FlagAllowInteractiveAuthorization.IsSet(m.Flags)
}

// Valid checks that m carries the header fields its MessageType
// requires.
func (m *Message) Valid() error {
	switch m.Type {
	case 0:
		return fmt.Errorf("dbus: invalid message with type 0")
	case MessageTypeCall:
		if m.Header.Object == "" {
			return fmt.Errorf("dbus: call is missing Object")
		}
		if m.Header.Member == "" {
			return fmt.Errorf("dbus: call is missing Member")
		}
	case MessageTypeReturn:
		if m.Header.ReplySerial == 0 {
			return fmt.Errorf("dbus: return is missing ReplySerial")
		}
	case MessageTypeError:
		if m.Header.ReplySerial == 0 {
			return fmt.Errorf("dbus: error is missing ReplySerial")
		}
		if m.Header.ErrorName == "" {
			return fmt.Errorf("dbus: error is missing ErrorName")
		}
	case MessageTypeSignal:
		if m.Header.Object == "" {
			return fmt.Errorf("dbus: signal is missing Object")
		}
		if m.Header.Interface == "" {
			return fmt.Errorf("dbus: signal is missing Interface")
		}
		if m.Header.Member == "" {
			return fmt.Errorf("dbus: signal is missing Member")
		}
	}
	return nil
}

// MessageBuilder is the entry point for constructing outgoing
// messages. Use [MessageBuilder.Call] or [MessageBuilder.Signal] to
// pick a message type before setting its addressing fields.
type MessageBuilder struct {
	msg Message
}

// NewMessageBuilder starts a message using the host's native byte
// order for its body.
func NewMessageBuilder() MessageBuilder {
	return MessageBuilder{msg: Message{Body: NewBody()}}
}

// NewMessageBuilderOrder starts a message using the given byte order
// for its body.
func NewMessageBuilderOrder(order fragments.ByteOrder) MessageBuilder {
	return MessageBuilder{msg: Message{Body: NewBodyOrder(order)}}
}

// Call starts building a method-call message targeting member.
func (b MessageBuilder) Call(member string) CallBuilder {
	b.msg.Type = MessageTypeCall
	b.msg.Header.Member = member
	return CallBuilder{msg: b.msg}
}

// Signal starts building a signal message.
func (b MessageBuilder) Signal(iface, member string, object ObjectPath) SignalBuilder {
	b.msg.Type = MessageTypeSignal
	b.msg.Header.Interface = iface
	b.msg.Header.Member = member
	b.msg.Header.Object = object
	return SignalBuilder{msg: b.msg}
}

// CallBuilder builds a method-call message.
type CallBuilder struct {
	msg Message
}

// On sets the call's target object path.
func (b CallBuilder) On(object ObjectPath) CallBuilder {
	b.msg.Header.Object = object
	return b
}

// WithInterface sets the call's target interface.
func (b CallBuilder) WithInterface(iface string) CallBuilder {
	b.msg.Header.Interface = iface
	return b
}

// At sets the call's target destination.
func (b CallBuilder) At(destination string) CallBuilder {
	b.msg.Header.Destination = destination
	return b
}

// Build finalizes the call message.
func (b CallBuilder) Build() *Message {
	m := b.msg
	return &m
}

// SignalBuilder builds a signal message.
type SignalBuilder struct {
	msg Message
}

// To sets the signal's destination. Signals are usually broadcast
// with no destination; set one to unicast instead.
func (b SignalBuilder) To(destination string) SignalBuilder {
	b.msg.Header.Destination = destination
	return b
}

// Build finalizes the signal message.
func (b SignalBuilder) Build() *Message {
	m := b.msg
	return &m
}

const protocolVersion = 1

// headerFieldCode is the byte code identifying a header field in the
// wire header's array of (yv) structs.
type headerFieldCode byte

const (
	fieldObject      headerFieldCode = 1
	fieldInterface   headerFieldCode = 2
	fieldMember      headerFieldCode = 3
	fieldErrorName   headerFieldCode = 4
	fieldReplySerial headerFieldCode = 5
	fieldDestination headerFieldCode = 6
	fieldSender      headerFieldCode = 7
	fieldSignature   headerFieldCode = 8
	fieldNumFDs      headerFieldCode = 9
)

// EncodeHeader writes m's fixed DBus header (byte order mark, type,
// flags, protocol version, body length, serial, and the array of
// header fields) to e, followed by the padding that must precede the
// body. It does not write the body itself; append m.Body.Buf() after
// calling EncodeHeader.
func EncodeHeader(e *fragments.Encoder, m *Message, serial uint32) error {
	e.ByteOrderFlag()
	e.Uint8(byte(m.Type))
	e.Uint8(m.Flags)
	e.Uint8(protocolVersion)
	e.Uint32(uint32(len(m.Body.Buf())))
	e.Uint32(serial)

	push := func(code headerFieldCode, v any) error {
		return e.Struct(func() error {
			e.Uint8(byte(code))
			vr := Variant{Value: v}
			return vr.MarshalDBus(e)
		})
	}

	err := e.Array(8, func() error {
		if m.Header.Object != "" {
			if err := push(fieldObject, m.Header.Object); err != nil {
				return err
			}
		}
		if m.Header.Interface != "" {
			if err := push(fieldInterface, m.Header.Interface); err != nil {
				return err
			}
		}
		if m.Header.Member != "" {
			if err := push(fieldMember, m.Header.Member); err != nil {
				return err
			}
		}
		if m.Header.ErrorName != "" {
			if err := push(fieldErrorName, m.Header.ErrorName); err != nil {
				return err
			}
		}
		if m.Header.ReplySerial != 0 {
			if err := push(fieldReplySerial, m.Header.ReplySerial); err != nil {
				return err
			}
		}
		if m.Header.Destination != "" {
			if err := push(fieldDestination, m.Header.Destination); err != nil {
				return err
			}
		}
		if m.Header.Sender != "" {
			if err := push(fieldSender, m.Header.Sender); err != nil {
				return err
			}
		}
		if sig := m.Body.Sig(); sig != "" {
			if err := push(fieldSignature, Signature(sig)); err != nil {
				return err
			}
		}
		if nfds := len(m.Body.Fds()); nfds > 0 {
			if err := push(fieldNumFDs, uint32(nfds)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.Pad(8)
	return nil
}

// DecodeHeader reads a DBus fixed header from d, returning the
// message it describes (minus its body) and the serial it was sent
// with. The caller is responsible for reading exactly the returned
// bodyLen bytes of body afterwards and attaching them via
// [BodyFromParts].
func DecodeHeader(d *fragments.Decoder) (m *Message, serial uint32, bodyLen uint32, err error) {
	if err := d.ByteOrderFlag(); err != nil {
		return nil, 0, 0, wrapWireErr(err)
	}
	typByte, err := d.Uint8()
	if err != nil {
		return nil, 0, 0, wrapWireErr(err)
	}
	flags, err := d.Uint8()
	if err != nil {
		return nil, 0, 0, wrapWireErr(err)
	}
	if _, err := d.Uint8(); err != nil {
		return nil, 0, 0, wrapWireErr(err)
	}
	bodyLen, err = d.Uint32()
	if err != nil {
		return nil, 0, 0, wrapWireErr(err)
	}
	serial, err = d.Uint32()
	if err != nil {
		return nil, 0, 0, wrapWireErr(err)
	}

	m = &Message{Type: MessageType(typByte), Flags: flags, serial: serial}
	var sigStr string

	_, err = d.Array(8, func(int) error {
		return d.Struct(func() error {
			code, err := d.Uint8()
			if err != nil {
				return err
			}
			var v Variant
			if err := v.UnmarshalDBus(d); err != nil {
				return err
			}
			p, _ := v.Value.(Param)
			base, _ := p.Base()
			switch headerFieldCode(code) {
			case fieldObject:
				if s, ok := base.(ObjectPath); ok {
					m.Header.Object = s
				}
			case fieldInterface:
				if s, ok := base.(string); ok {
					m.Header.Interface = s
				}
			case fieldMember:
				if s, ok := base.(string); ok {
					m.Header.Member = s
				}
			case fieldErrorName:
				if s, ok := base.(string); ok {
					m.Header.ErrorName = s
				}
			case fieldReplySerial:
				if s, ok := base.(uint32); ok {
					m.Header.ReplySerial = s
				}
			case fieldDestination:
				if s, ok := base.(string); ok {
					m.Header.Destination = s
				}
			case fieldSender:
				if s, ok := base.(string); ok {
					m.Header.Sender = s
				}
			case fieldSignature:
				if s, ok := base.(Signature); ok {
					sigStr = string(s)
				}
			case fieldNumFDs:
				if s, ok := base.(uint32); ok {
					m.Header.NumFDs = s
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, 0, 0, wrapWireErr(err)
	}
	if err := d.Pad(8); err != nil {
		return nil, 0, 0, wrapWireErr(err)
	}
	m.Body = &Body{order: d.Order, sig: sigStr}
	return m, serial, bodyLen, nil
}
