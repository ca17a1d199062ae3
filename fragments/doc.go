// Package fragments provides low-level encoding and decoding helpers
// used to construct and parse DBus messages.
//
// The provided encoder and decoder are low level tools: they apply
// DBus alignment and length-prefix rules to individual values, but do
// not by themselves guarantee that a whole message is well formed.
//
// You should not need to use this package directly unless you are
// implementing your own [github.com/wiredbus/go-dbus.Marshaler] or
// [github.com/wiredbus/go-dbus.Unmarshaler], in which case your code
// will be handed an [Encoder] or [Decoder] and is expected to produce
// or consume correct DBus wire data with it.
package fragments
