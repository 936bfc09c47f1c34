package wire

// MessageSpec describes one request or event of an interface.
//
// Signature uses the protocol's argument codes: i (int), u (uint), f (fixed),
// s (string), o (object), n (new_id), a (array). A '?' marks the next
// argument as nullable.
type MessageSpec struct {
	Name       string
	Signature  string
	Since      uint32
	Destructor bool
}

// Interface describes a protocol interface and its messages, indexed by opcode.
type Interface struct {
	Name     string
	Version  uint32
	Requests []MessageSpec
	Events   []MessageSpec
}

// Request returns the request with the given opcode.
func (i *Interface) Request(opcode uint16) (MessageSpec, bool) {
	if int(opcode) >= len(i.Requests) {
		return MessageSpec{}, false
	}
	return i.Requests[opcode], true
}

// Event returns the event with the given opcode.
func (i *Interface) Event(opcode uint16) (MessageSpec, bool) {
	if int(opcode) >= len(i.Events) {
		return MessageSpec{}, false
	}
	return i.Events[opcode], true
}
