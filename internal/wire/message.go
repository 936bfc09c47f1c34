// Package wire encodes and decodes messages of the display server wire protocol.
//
// A message is an 8 byte header (sender object id, then size<<16 | opcode)
// followed by 32-bit aligned arguments in host byte order.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderSize is the size of a message header in bytes.
const HeaderSize = 8

// MaxMessageSize is the largest message the 16-bit size field can describe.
const MaxMessageSize = 0xffff

var order = binary.NativeEndian

var (
	// ErrShortMessage is returned when a message ends before all of its
	// arguments were read.
	ErrShortMessage = errors.New("wire: short message")
	// ErrInvalidString is returned for a string argument without its
	// terminating NUL byte.
	ErrInvalidString = errors.New("wire: string not NUL terminated")
	// ErrMessageTooLarge is returned when encoding would overflow the size field.
	ErrMessageTooLarge = errors.New("wire: message too large")
)

// ObjectRef is anything that can be written as an object argument.
type ObjectRef interface {
	ProtocolID() uint32
}

// Message is a single request or event.
type Message struct {
	Sender uint32
	Opcode uint16
	args   []byte
}

// NewMessage starts an empty message from sender.
func NewMessage(sender uint32, opcode uint16) *Message {
	return &Message{Sender: sender, Opcode: opcode}
}

// PutUint32 appends a uint argument.
func (m *Message) PutUint32(u uint32) {
	m.args = order.AppendUint32(m.args, u)
}

// PutInt32 appends an int argument.
func (m *Message) PutInt32(i int32) {
	m.PutUint32(uint32(i))
}

// PutFixed appends a fixed argument.
func (m *Message) PutFixed(f Fixed) {
	m.PutUint32(uint32(f))
}

// PutObject appends an object argument. A nil ref is written as the null object.
func (m *Message) PutObject(ref ObjectRef) {
	if ref == nil {
		m.PutUint32(0)
		return
	}
	m.PutUint32(ref.ProtocolID())
}

// PutString appends a NUL terminated, padded string argument.
func (m *Message) PutString(s string) {
	if s == "" {
		m.PutUint32(0)
		return
	}
	m.PutUint32(uint32(len(s) + 1))
	m.args = append(m.args, s...)
	m.args = append(m.args, 0)
	m.pad()
}

// PutArray appends an array argument.
func (m *Message) PutArray(a []byte) {
	m.PutUint32(uint32(len(a)))
	m.args = append(m.args, a...)
	m.pad()
}

func (m *Message) pad() {
	for len(m.args)%4 != 0 {
		m.args = append(m.args, 0)
	}
}

// Write appends arg, choosing the encoding from its Go type.
func (m *Message) Write(arg any) error {
	switch t := arg.(type) {
	case uint32:
		m.PutUint32(t)
	case int32:
		m.PutInt32(t)
	case Fixed:
		m.PutFixed(t)
	case float64:
		m.PutFixed(NewFixed(t))
	case string:
		m.PutString(t)
	case []byte:
		m.PutArray(t)
	case ObjectRef:
		m.PutObject(t)
	case nil:
		m.PutUint32(0)
	default:
		return fmt.Errorf("wire: unsupported argument type %T", arg)
	}
	return nil
}

// Size returns the encoded size including the header.
func (m *Message) Size() int {
	return HeaderSize + len(m.args)
}

// Args returns the encoded argument bytes.
func (m *Message) Args() []byte {
	return m.args
}

// Bytes encodes the full message.
func (m *Message) Bytes() ([]byte, error) {
	size := m.Size()
	if size > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}
	buf := make([]byte, 0, size)
	buf = order.AppendUint32(buf, m.Sender)
	buf = order.AppendUint32(buf, uint32(size)<<16|uint32(m.Opcode))
	return append(buf, m.args...), nil
}

// WriteTo writes the encoded message to w.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	buf, err := m.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// NewMessageFromArgs rebuilds a message from an already encoded argument block.
func NewMessageFromArgs(sender uint32, opcode uint16, args []byte) *Message {
	return &Message{Sender: sender, Opcode: opcode, args: append([]byte(nil), args...)}
}

// ReadMessage reads one message from r.
func ReadMessage(r io.Reader) (*Message, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	sender := order.Uint32(header[0:4])
	word := order.Uint32(header[4:8])
	size := int(word >> 16)
	if size < HeaderSize {
		return nil, fmt.Errorf("wire: invalid message size %d", size)
	}

	args := make([]byte, size-HeaderSize)
	if _, err := io.ReadFull(r, args); err != nil {
		return nil, fmt.Errorf("wire: reading message body: %w", err)
	}

	return &Message{Sender: sender, Opcode: uint16(word & 0xffff), args: args}, nil
}

// Reader returns a cursor over the message arguments.
func (m *Message) Reader() *ArgReader {
	return &ArgReader{data: m.args}
}

// ArgReader reads arguments in order.
type ArgReader struct {
	data []byte
	off  int
}

// Uint32 reads a uint argument.
func (r *ArgReader) Uint32() (uint32, error) {
	if r.off+4 > len(r.data) {
		return 0, ErrShortMessage
	}
	v := order.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

// Int32 reads an int argument.
func (r *ArgReader) Int32() (int32, error) {
	u, err := r.Uint32()
	return int32(u), err
}

// Fixed reads a fixed argument.
func (r *ArgReader) Fixed() (Fixed, error) {
	u, err := r.Uint32()
	return Fixed(int32(u)), err
}

// String reads a string argument. The length includes the terminating NUL.
func (r *ArgReader) String() (string, error) {
	b, err := r.block()
	if err != nil || len(b) == 0 {
		return "", err
	}
	if b[len(b)-1] != 0 {
		return "", ErrInvalidString
	}
	return string(b[:len(b)-1]), nil
}

// Array reads an array argument.
func (r *ArgReader) Array() ([]byte, error) {
	b, err := r.block()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// block reads a length-prefixed, 32-bit padded argument and returns its
// unpadded content. The length is checked before any arithmetic on it.
func (r *ArgReader) block() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	size := uint64(n)
	padded := (size + 3) &^ 3
	if padded > uint64(r.Remaining()) {
		return nil, ErrShortMessage
	}
	b := r.data[r.off : r.off+int(size)]
	r.off += int(padded)
	return b, nil
}

// Remaining returns the number of unread argument bytes.
func (r *ArgReader) Remaining() int {
	return len(r.data) - r.off
}

// Decode reads every argument described by signature. Ints decode to int32,
// uints, objects and new ids to uint32, fixed to float64, strings to string
// and arrays to []byte.
func (m *Message) Decode(signature string) ([]any, error) {
	r := m.Reader()
	var out []any
	for _, c := range signature {
		var (
			v   any
			err error
		)
		switch c {
		case '?':
			continue
		case 'i':
			v, err = r.Int32()
		case 'u', 'o', 'n':
			v, err = r.Uint32()
		case 'f':
			var f Fixed
			f, err = r.Fixed()
			v = f.Float64()
		case 's':
			v, err = r.String()
		case 'a':
			v, err = r.Array()
		default:
			return nil, fmt.Errorf("wire: unknown signature code %q", c)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
