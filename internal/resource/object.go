package resource

import (
	"fmt"
	"sync"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/wire"
	"go.uber.org/atomic"
)

var generation atomic.Uint64

// ObjectID identifies one protocol object for the lifetime of the process.
// Protocol ids are reused by clients; the generation is not.
type ObjectID struct {
	Client     ClientID
	Protocol   uint32
	Generation uint64
}

// IsNull reports whether id is the zero identity.
func (id ObjectID) IsNull() bool {
	return id == ObjectID{}
}

func (id ObjectID) String() string {
	return fmt.Sprintf("client%d/%d#%d", id.Client, id.Protocol, id.Generation)
}

// RequestHandler handles one inbound request addressed to obj. Returning a
// *ProtocolError terminates the client.
type RequestHandler func(obj *Object, msg *wire.Message) error

// DestroyFunc is called once when an object is destroyed.
type DestroyFunc func(id ObjectID)

// Object is a protocol object owned by a client.
type Object struct {
	id      ObjectID
	iface   *wire.Interface
	version uint32
	client  *Client
	data    any

	alive       *atomic.Bool
	destroyOnce sync.Once

	mu        sync.Mutex
	handler   RequestHandler
	onDestroy []DestroyFunc
}

// ID returns the stable identity of the object.
func (o *Object) ID() ObjectID { return o.id }

// ProtocolID returns the id the client uses on the wire.
func (o *Object) ProtocolID() uint32 {
	if o == nil {
		return 0
	}
	return o.id.Protocol
}

// Interface returns the interface the object implements.
func (o *Object) Interface() *wire.Interface { return o.iface }

// Version returns the version negotiated when the object was created.
func (o *Object) Version() uint32 { return o.version }

// Client returns the owning client.
func (o *Object) Client() *Client { return o.client }

// Data returns the compositor-side user data attached at creation.
func (o *Object) Data() any { return o.data }

// Alive reports whether the object has not been destroyed yet.
func (o *Object) Alive() bool { return o.alive.Load() }

// SameClientAs reports whether both objects belong to the same client.
func (o *Object) SameClientAs(other *Object) bool {
	if o == nil || other == nil {
		return false
	}
	return o.id.Client == other.id.Client
}

// Is reports whether o and other are the same protocol object.
func (o *Object) Is(other *Object) bool {
	if o == nil || other == nil {
		return false
	}
	return o.id == other.id
}

func (o *Object) String() string {
	return fmt.Sprintf("%s@%d", o.iface.Name, o.id.Protocol)
}

// SetHandler installs the request handler.
func (o *Object) SetHandler(h RequestHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handler = h
}

// OnDestroy registers fn to run when the object is destroyed. If the object
// is already dead, fn runs immediately. Either way it runs exactly once.
func (o *Object) OnDestroy(fn DestroyFunc) {
	o.mu.Lock()
	if o.Alive() {
		o.onDestroy = append(o.onDestroy, fn)
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()
	fn(o.id)
}

// Send encodes an event and hands it to the client's sink. Sending on a dead
// object, or an event newer than the object's version, is dropped.
func (o *Object) Send(opcode uint16, args ...any) {
	if !o.Alive() {
		return
	}

	ev, ok := o.iface.Event(opcode)
	if !ok {
		logger.Errorf("Unknown event opcode %d on %s", opcode, o)
		return
	}
	if ev.Since > o.version {
		logger.Warnf("Dropping %s.%s: needs version %d, object has %d", o.iface.Name, ev.Name, ev.Since, o.version)
		return
	}

	msg := wire.NewMessage(o.id.Protocol, opcode)
	for _, arg := range args {
		if err := msg.Write(arg); err != nil {
			logger.Errorf("Failed to encode %s.%s: %v", o.iface.Name, ev.Name, err)
			return
		}
	}

	o.client.deliver(o, msg)
}

func (o *Object) dispatch(msg *wire.Message) error {
	o.mu.Lock()
	handler := o.handler
	o.mu.Unlock()

	if handler == nil {
		return nil
	}
	return handler(o, msg)
}

// destroy marks the object dead and runs the destroy callbacks exactly once.
func (o *Object) destroy() {
	o.destroyOnce.Do(func() {
		o.alive.Store(false)

		o.mu.Lock()
		callbacks := o.onDestroy
		o.onDestroy = nil
		o.handler = nil
		o.mu.Unlock()

		for _, fn := range callbacks {
			fn(o.id)
		}
	})
}
