package compositor

import (
	"time"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/wire"
)

// global is an interface advertised through wl_registry.
type global struct {
	name    uint32
	iface   *wire.Interface
	version uint32
	bind    func(client *resource.Client, id, version uint32) (*resource.Object, error)
}

func (c *Compositor) newGlobals() []global {
	return []global{
		{name: 1, iface: protocols.Compositor, version: protocols.Compositor.Version, bind: c.bindCompositor},
		{name: 2, iface: protocols.Seat, version: c.opts.TouchVersion, bind: c.seat.Bind},
		{name: 3, iface: protocols.WmBase, version: c.opts.XdgVersion, bind: c.shell.BindWmBase},
	}
}

func (c *Compositor) global(name uint32) (global, bool) {
	for _, g := range c.globals {
		if g.name == name {
			return g, true
		}
	}
	return global{}, false
}

// Accept registers a client connected through a transport. Its events go to
// sink and its wl_display answers sync and get_registry. The caller
// serializes dispatch across all accepted clients.
func (c *Compositor) Accept(sink resource.Sink) *resource.Client {
	client := resource.NewClient(sink)
	client.Display().SetHandler(c.handleDisplayRequest)
	logger.Debug("Client accepted", "client", client.ID())
	return client
}

func (c *Compositor) handleDisplayRequest(obj *resource.Object, msg *wire.Message) error {
	client := obj.Client()
	id, err := msg.Reader().Uint32()
	if err != nil {
		return err
	}

	switch msg.Opcode {
	case protocols.DisplayRequestSync:
		cb, err := client.CreateObject(id, protocols.Callback, 1, nil)
		if err != nil {
			return resource.NewProtocolError(obj, protocols.DisplayErrorInvalidObject, "sync: %v", err)
		}
		cb.Send(protocols.CallbackEventDone, uint32(c.serials.Next()))
		client.Destroy(cb)
		return nil

	case protocols.DisplayRequestGetRegistry:
		reg, err := client.CreateObject(id, protocols.Registry, 1, nil)
		if err != nil {
			return resource.NewProtocolError(obj, protocols.DisplayErrorInvalidObject, "get_registry: %v", err)
		}
		reg.SetHandler(c.handleRegistryRequest)
		for _, g := range c.globals {
			reg.Send(protocols.RegistryEventGlobal, g.name, g.iface.Name, g.version)
		}
		return nil

	default:
		return resource.NewProtocolError(obj, protocols.DisplayErrorInvalidMethod, "unknown wl_display request %d", msg.Opcode)
	}
}

func (c *Compositor) handleRegistryRequest(obj *resource.Object, msg *wire.Message) error {
	client := obj.Client()
	if msg.Opcode != protocols.RegistryRequestBind {
		return resource.NewProtocolError(client.Display(), protocols.DisplayErrorInvalidMethod,
			"unknown wl_registry request %d", msg.Opcode)
	}

	args, err := msg.Decode("usun")
	if err != nil {
		return err
	}
	name, ifaceName, version, id := args[0].(uint32), args[1].(string), args[2].(uint32), args[3].(uint32)

	g, ok := c.global(name)
	switch {
	case !ok:
		return resource.NewProtocolError(client.Display(), protocols.DisplayErrorInvalidObject, "invalid global %d", name)
	case ifaceName != g.iface.Name:
		return resource.NewProtocolError(client.Display(), protocols.DisplayErrorInvalidObject,
			"invalid interface for global %d: have %s, wanted %s", name, ifaceName, g.iface.Name)
	case version == 0 || version > g.version:
		return resource.NewProtocolError(client.Display(), protocols.DisplayErrorInvalidObject,
			"invalid version for global %s (%d): have %d, wanted %d", ifaceName, name, version, g.version)
	}

	if _, err := g.bind(client, id, version); err != nil {
		return resource.NewProtocolError(client.Display(), protocols.DisplayErrorInvalidObject, "bind %s: %v", ifaceName, err)
	}
	return nil
}

func (c *Compositor) bindCompositor(client *resource.Client, id, version uint32) (*resource.Object, error) {
	obj, err := client.CreateObject(id, protocols.Compositor, version, c)
	if err != nil {
		return nil, err
	}
	obj.SetHandler(c.handleCompositorRequest)
	return obj, nil
}

func (c *Compositor) handleCompositorRequest(obj *resource.Object, msg *wire.Message) error {
	client := obj.Client()
	id, err := msg.Reader().Uint32()
	if err != nil {
		return err
	}

	switch msg.Opcode {
	case protocols.CompositorRequestCreateSurface:
		if _, err := c.newSurface(client, id, obj.Version()); err != nil {
			return resource.NewProtocolError(client.Display(), protocols.DisplayErrorInvalidObject, "create_surface: %v", err)
		}
	case protocols.CompositorRequestCreateRegion:
		if _, err := client.CreateObject(id, protocols.Region, 1, nil); err != nil {
			return resource.NewProtocolError(client.Display(), protocols.DisplayErrorInvalidObject, "create_region: %v", err)
		}
	default:
		return resource.NewProtocolError(client.Display(), protocols.DisplayErrorInvalidMethod,
			"unknown wl_compositor request %d", msg.Opcode)
	}
	return nil
}

// newSurface creates a wl_surface. Buffers are not handled; frame callbacks
// complete immediately.
func (c *Compositor) newSurface(client *resource.Client, id, version uint32) (*resource.Object, error) {
	obj, err := client.CreateObject(id, protocols.Surface, version, nil)
	if err != nil {
		return nil, err
	}
	obj.SetHandler(handleSurfaceRequest)
	return obj, nil
}

func handleSurfaceRequest(obj *resource.Object, msg *wire.Message) error {
	if msg.Opcode != protocols.SurfaceRequestFrame {
		return nil
	}

	client := obj.Client()
	id, err := msg.Reader().Uint32()
	if err != nil {
		return err
	}
	cb, err := client.CreateObject(id, protocols.Callback, 1, nil)
	if err != nil {
		return resource.NewProtocolError(client.Display(), protocols.DisplayErrorInvalidObject, "frame: %v", err)
	}
	cb.Send(protocols.CallbackEventDone, uint32(time.Now().UnixMilli()))
	client.Destroy(cb)
	return nil
}
