package compositor

import (
	"bytes"
	"fmt"

	"github.com/bnema/waycore/internal/geom"
	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/serial"
	"github.com/bnema/waycore/internal/trace"
	"github.com/bnema/waycore/internal/wire"
	"github.com/bnema/waycore/internal/xdg"
)

// In-process clients skip wl_compositor and create surfaces at this version.
const surfaceVersion = 6

type clientPopup struct {
	wlSurface  *resource.Object
	xdgSurface *resource.Object
	popup      *resource.Object
}

// Client is an in-process client. Requests are encoded to wire messages,
// decoded again and dispatched, the way a socket connection would deliver
// them. Every event the client receives is recorded.
type Client struct {
	name     string
	comp     *Compositor
	res      *resource.Client
	recorder *trace.Recorder
	offset   geom.Point
	nextID   uint32

	seat    *resource.Object
	touch   *resource.Object
	wmBase  *resource.Object
	surface *resource.Object

	popups map[string]*clientPopup
}

func newClient(comp *Compositor, name string, offset geom.Point) (*Client, error) {
	if name == "" {
		return nil, fmt.Errorf("client needs a name")
	}
	rec := trace.NewRecorder()
	if comp.opts.Trace != nil {
		rec.Tee(comp.opts.Trace)
	}
	return &Client{
		name:     name,
		comp:     comp,
		res:      resource.NewClient(rec),
		recorder: rec,
		offset:   offset,
		nextID:   resource.DisplayID,
		popups:   make(map[string]*clientPopup),
	}, nil
}

func (cl *Client) setup(touchVersion, xdgVersion uint32) error {
	var err error
	if cl.seat, err = cl.comp.seat.Bind(cl.res, cl.newID(), touchVersion); err != nil {
		return err
	}

	touchID := cl.newID()
	if err := cl.request(cl.seat, protocols.SeatRequestGetTouch, touchID); err != nil {
		return err
	}
	cl.touch = cl.res.Object(touchID)

	if cl.surface, err = cl.comp.newSurface(cl.res, cl.newID(), surfaceVersion); err != nil {
		return err
	}

	cl.wmBase, err = cl.comp.shell.BindWmBase(cl.res, cl.newID(), xdgVersion)
	return err
}

func (cl *Client) newID() uint32 {
	cl.nextID++
	return cl.nextID
}

// request sends one request from the client to the compositor.
func (cl *Client) request(target *resource.Object, opcode uint16, args ...any) error {
	msg := wire.NewMessage(target.ProtocolID(), opcode)
	for _, arg := range args {
		if err := msg.Write(arg); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	in, err := wire.ReadMessage(&buf)
	if err != nil {
		return fmt.Errorf("failed to decode request: %w", err)
	}

	if err := cl.res.Dispatch(in); err != nil {
		if perr := cl.res.Error(); perr != nil {
			return perr
		}
		return err
	}
	return nil
}

// Name returns the client name.
func (cl *Client) Name() string { return cl.name }

// Resource returns the compositor-side client.
func (cl *Client) Resource() *resource.Client { return cl.res }

// Alive reports whether the client is still connected.
func (cl *Client) Alive() bool { return cl.res.Alive() }

// Error returns the protocol error that disconnected the client, if any.
func (cl *Client) Error() *resource.ProtocolError { return cl.res.Error() }

// Records returns every event the client received.
func (cl *Client) Records() []trace.Record { return cl.recorder.Records() }

// Recorder returns the client's event recorder.
func (cl *Client) Recorder() *trace.Recorder { return cl.recorder }

// Touch returns the client's wl_touch object.
func (cl *Client) Touch() *resource.Object { return cl.touch }

// Surface returns the client's main wl_surface.
func (cl *Client) Surface() *resource.Object { return cl.surface }

// Popup returns the compositor handle of a popup created by this client.
func (cl *Client) Popup(name string) (xdg.PopupSurface, bool) {
	p, ok := cl.popups[name]
	if !ok {
		return xdg.PopupSurface{}, false
	}
	return xdg.PopupFromObject(p.popup)
}

func (cl *Client) lookupPopup(name string) (*clientPopup, error) {
	p, ok := cl.popups[name]
	if !ok {
		return nil, fmt.Errorf("client %q has no popup %q", cl.name, name)
	}
	return p, nil
}

// lastSerial returns the serial of the newest event named event on obj.
func (cl *Client) lastSerial(obj *resource.Object, event string) (serial.Serial, bool) {
	recs := cl.recorder.For(obj)
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Event != event || len(recs[i].Args) == 0 {
			continue
		}
		if u, ok := recs[i].Args[0].(uint32); ok {
			return serial.Serial(u), true
		}
	}
	return 0, false
}

func (cl *Client) createPositioner(state xdg.PositionerState) (*resource.Object, error) {
	id := cl.newID()
	if err := cl.request(cl.wmBase, protocols.WmBaseRequestCreatePositioner, id); err != nil {
		return nil, err
	}
	pos := cl.res.Object(id)

	r := state.AnchorRect
	requests := [][]any{
		{protocols.PositionerRequestSetSize, state.RectSize.W, state.RectSize.H},
		{protocols.PositionerRequestSetAnchorRect, r.Loc.X, r.Loc.Y, r.Size.W, r.Size.H},
		{protocols.PositionerRequestSetAnchor, uint32(state.AnchorEdges)},
		{protocols.PositionerRequestSetGravity, uint32(state.Gravity)},
		{protocols.PositionerRequestSetConstraintAdjustment, uint32(state.ConstraintAdjustment)},
		{protocols.PositionerRequestSetOffset, state.Offset.X, state.Offset.Y},
	}
	if state.Reactive && pos.Version() >= 3 {
		requests = append(requests, []any{protocols.PositionerRequestSetReactive})
	}
	for _, req := range requests {
		if err := cl.request(pos, uint16(req[0].(int)), req[1:]...); err != nil {
			return nil, err
		}
	}
	return pos, nil
}

// CreatePopup creates a surface with the popup role. parent names another
// popup of this client, or is empty.
func (cl *Client) CreatePopup(name, parent string, state xdg.PositionerState) error {
	var parentObj *resource.Object
	if parent != "" {
		p, err := cl.lookupPopup(parent)
		if err != nil {
			return err
		}
		parentObj = p.xdgSurface
	}

	pos, err := cl.createPositioner(state)
	if err != nil {
		return err
	}

	wlSurface, err := cl.comp.newSurface(cl.res, cl.newID(), surfaceVersion)
	if err != nil {
		return err
	}
	xdgID := cl.newID()
	if err := cl.request(cl.wmBase, protocols.WmBaseRequestGetXdgSurface, xdgID, wlSurface); err != nil {
		return err
	}
	xdgSurface := cl.res.Object(xdgID)

	popupID := cl.newID()
	if err := cl.request(xdgSurface, protocols.XdgSurfaceRequestGetPopup, popupID, parentObj, pos); err != nil {
		return err
	}
	cl.popups[name] = &clientPopup{
		wlSurface:  wlSurface,
		xdgSurface: xdgSurface,
		popup:      cl.res.Object(popupID),
	}

	return cl.request(pos, protocols.PositionerRequestDestroy)
}

// Reposition asks for a popup to be placed again. The compositor answers
// with a configure carrying token.
func (cl *Client) Reposition(name string, state xdg.PositionerState, token uint32) error {
	p, err := cl.lookupPopup(name)
	if err != nil {
		return err
	}
	pos, err := cl.createPositioner(state)
	if err != nil {
		return err
	}
	if err := cl.request(p.popup, protocols.PopupRequestReposition, pos, token); err != nil {
		return err
	}
	return cl.request(pos, protocols.PositionerRequestDestroy)
}

// Grab requests an explicit grab. A zero serial uses the last touch down.
func (cl *Client) Grab(name string, s serial.Serial) error {
	p, err := cl.lookupPopup(name)
	if err != nil {
		return err
	}
	if s == 0 {
		s, _ = cl.lastSerial(cl.touch, "down")
	}
	return cl.request(p.popup, protocols.PopupRequestGrab, cl.seat, uint32(s))
}

// Ack acknowledges a configure of the popup's xdg_surface. A zero serial
// acknowledges the last configure received.
func (cl *Client) Ack(name string, s serial.Serial) error {
	p, err := cl.lookupPopup(name)
	if err != nil {
		return err
	}
	if s == 0 {
		last, ok := cl.lastSerial(p.xdgSurface, "configure")
		if !ok {
			return fmt.Errorf("popup %q was never configured", name)
		}
		s = last
	}
	return cl.request(p.xdgSurface, protocols.XdgSurfaceRequestAckConfigure, uint32(s))
}

// DestroyPopup destroys the popup, then its xdg_surface and wl_surface.
func (cl *Client) DestroyPopup(name string) error {
	p, err := cl.lookupPopup(name)
	if err != nil {
		return err
	}
	if err := cl.request(p.popup, protocols.PopupRequestDestroy); err != nil {
		return err
	}
	if err := cl.request(p.xdgSurface, protocols.XdgSurfaceRequestDestroy); err != nil {
		return err
	}
	cl.res.Destroy(p.wlSurface)
	delete(cl.popups, name)
	return nil
}

// Disconnect closes the connection, destroying every object of the client.
func (cl *Client) Disconnect() {
	cl.res.Close()
}
