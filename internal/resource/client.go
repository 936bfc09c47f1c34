// Package resource tracks client connections and the protocol objects they
// own, and delivers the exactly-once destroy notification for each object.
package resource

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/wire"
	"go.uber.org/atomic"
)

// DisplayID is the protocol id of the wl_display object of every client.
const DisplayID = 1

// serverIDStart is the first id of the range allocated by the server.
const serverIDStart = 0xff000000

var clientIDs atomic.Uint64

// ClientID identifies a client connection.
type ClientID uint64

// Sink receives every event sent to a client's objects, in order.
type Sink interface {
	Send(obj *Object, msg *wire.Message) error
}

// protocolID writes a bare id as an object argument.
type protocolID uint32

func (p protocolID) ProtocolID() uint32 { return uint32(p) }

// Client is one connection and the objects it owns.
type Client struct {
	id      ClientID
	sink    Sink
	display *Object
	dead    *atomic.Bool

	mu        sync.Mutex
	objects   map[uint32]*Object
	lastError *ProtocolError
}

// NewClient creates a connected client whose events go to sink.
func NewClient(sink Sink) *Client {
	c := &Client{
		id:      ClientID(clientIDs.Inc()),
		sink:    sink,
		dead:    atomic.NewBool(false),
		objects: make(map[uint32]*Object),
	}

	display, err := c.CreateObject(DisplayID, protocols.Display, 1, nil)
	if err != nil {
		// A fresh client has an empty table; this cannot fail.
		panic(fmt.Sprintf("creating wl_display: %v", err))
	}
	c.display = display

	return c
}

// ID returns the client identity.
func (c *Client) ID() ClientID { return c.id }

// Display returns the client's wl_display object.
func (c *Client) Display() *Object { return c.display }

// Alive reports whether the connection is still open.
func (c *Client) Alive() bool { return !c.dead.Load() }

// Error returns the protocol error that killed the client, if any.
func (c *Client) Error() *ProtocolError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// CreateObject adds an object with the given protocol id to the client.
func (c *Client) CreateObject(id uint32, iface *wire.Interface, version uint32, data any) (*Object, error) {
	if id == 0 {
		return nil, fmt.Errorf("creating %s: null object id", iface.Name)
	}
	if version == 0 || version > iface.Version {
		return nil, fmt.Errorf("creating %s v%d: %w", iface.Name, version, ErrUnsupportedVersion)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead.Load() {
		return nil, ErrClientDead
	}
	if _, exists := c.objects[id]; exists {
		return nil, fmt.Errorf("creating %s@%d: %w", iface.Name, id, ErrIDInUse)
	}

	obj := &Object{
		id: ObjectID{
			Client:     c.id,
			Protocol:   id,
			Generation: generation.Inc(),
		},
		iface:   iface,
		version: version,
		client:  c,
		data:    data,
		alive:   atomic.NewBool(true),
	}
	c.objects[id] = obj

	return obj, nil
}

// Object looks up a live object by protocol id.
func (c *Client) Object(id uint32) *Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects[id]
}

// Len returns the number of live objects, wl_display included.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.objects)
}

// Destroy removes obj from the client and fires its destroy notification.
// Destroying an object twice is a no-op.
func (c *Client) Destroy(obj *Object) {
	if obj == nil || obj.client != c {
		return
	}

	c.mu.Lock()
	removed := c.objects[obj.id.Protocol] == obj
	if removed {
		delete(c.objects, obj.id.Protocol)
	}
	c.mu.Unlock()

	obj.destroy()

	if removed && obj.id.Protocol < serverIDStart && c.Alive() {
		c.display.Send(protocols.DisplayEventDeleteID, obj.id.Protocol)
	}
}

// Dispatch routes an inbound request to its target object. Malformed
// requests post a protocol error and kill the client; the error is returned.
func (c *Client) Dispatch(msg *wire.Message) error {
	if !c.Alive() {
		return ErrClientDead
	}

	obj := c.Object(msg.Sender)
	if obj == nil {
		perr := NewProtocolError(c.display, protocols.DisplayErrorInvalidObject, "invalid object %d", msg.Sender)
		c.PostError(perr)
		return perr
	}

	req, ok := obj.iface.Request(msg.Opcode)
	if !ok || req.Since > obj.version {
		perr := NewProtocolError(c.display, protocols.DisplayErrorInvalidMethod,
			"invalid method %d (version %d) on %s", msg.Opcode, obj.version, obj)
		c.PostError(perr)
		return perr
	}

	if err := obj.dispatch(msg); err != nil {
		var perr *ProtocolError
		if !errors.As(err, &perr) {
			code := uint32(protocols.DisplayErrorImplementation)
			if errors.Is(err, wire.ErrShortMessage) || errors.Is(err, wire.ErrInvalidString) {
				code = protocols.DisplayErrorInvalidMethod
			}
			perr = NewProtocolError(c.display, code, "%s.%s: %v", obj.iface.Name, req.Name, err)
			perr.cause = err
			err = perr
		}
		c.PostError(perr)
		return err
	}

	if req.Destructor {
		c.Destroy(obj)
	}

	return nil
}

// PostError sends a fatal protocol error to the client and disconnects it.
func (c *Client) PostError(perr *ProtocolError) {
	if !c.Alive() {
		return
	}

	logger.Warn("Protocol error, disconnecting client", "client", c.id, "interface", perr.Interface, "code", perr.Code, "message", perr.Message)

	c.mu.Lock()
	if c.lastError == nil {
		c.lastError = perr
	}
	c.mu.Unlock()

	c.display.Send(protocols.DisplayEventError, protocolID(perr.Object.Protocol), perr.Code, perr.Message)
	c.Close()
}

// Close disconnects the client, destroying every remaining object. Objects
// are destroyed newest id first so children go before their parents.
func (c *Client) Close() {
	if !c.dead.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	objects := make([]*Object, 0, len(c.objects))
	for _, obj := range c.objects {
		objects = append(objects, obj)
	}
	c.objects = make(map[uint32]*Object)
	c.mu.Unlock()

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].id.Protocol > objects[j].id.Protocol
	})
	for _, obj := range objects {
		obj.destroy()
	}

	logger.Debug("Client disconnected", "client", c.id, "objects", len(objects))
}

func (c *Client) deliver(obj *Object, msg *wire.Message) {
	if c.sink == nil {
		return
	}
	// Callers may hold component locks: never tear the client down from here.
	if err := c.sink.Send(obj, msg); err != nil {
		logger.Debugf("Dropping event for %s: %v", obj, err)
	}
}
