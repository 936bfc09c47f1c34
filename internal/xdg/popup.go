package xdg

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/bnema/waycore/internal/geom"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/serial"
	"github.com/bnema/waycore/internal/wire"
)

// PopupState is the compositor-side state of a popup that the next
// configure will carry.
type PopupState struct {
	Positioner PositionerState
	// Geometry is relative to the parent's window geometry.
	Geometry geom.Rectangle
}

// PopupConfigure is one configure sequence sent to a popup.
type PopupConfigure struct {
	State  PopupState
	Serial serial.Serial
	// RepositionToken is set when the configure answers a reposition
	// request.
	RepositionToken *uint32
}

type popupData struct {
	xdgSurface *SurfaceData
	parent     *SurfaceData
	serials    *serial.Counter
	alive      *atomic.Bool

	mu            sync.Mutex
	state         PopupState
	lastConfigure *PopupConfigure
}

// PopupSurface is a handle on one popup. Handles are values; two handles are
// the same popup when Equal reports so.
type PopupSurface struct {
	wlSurface    *resource.Object
	shellSurface *resource.Object
}

// PopupFromObject returns the handle for an xdg_popup object.
func PopupFromObject(obj *resource.Object) (PopupSurface, bool) {
	d, ok := popupDataOf(obj)
	if !ok {
		return PopupSurface{}, false
	}
	return PopupSurface{wlSurface: d.xdgSurface.wlSurface, shellSurface: obj}, true
}

func popupDataOf(obj *resource.Object) (*popupData, bool) {
	if obj == nil {
		return nil, false
	}
	d, ok := obj.Data().(*popupData)
	return d, ok
}

func (p PopupSurface) data() *popupData {
	d, _ := popupDataOf(p.shellSurface)
	return d
}

// WlSurface returns the wl_surface carrying the popup content.
func (p PopupSurface) WlSurface() *resource.Object { return p.wlSurface }

// ShellSurface returns the xdg_popup protocol object.
func (p PopupSurface) ShellSurface() *resource.Object { return p.shellSurface }

// Equal reports whether both handles refer to the same popup.
func (p PopupSurface) Equal(other PopupSurface) bool {
	return p.shellSurface.Is(other.shellSurface)
}

// Alive reports whether the xdg_popup object still exists.
func (p PopupSurface) Alive() bool {
	d := p.data()
	return d != nil && d.alive.Load()
}

// XdgSurface returns the xdg_surface the popup role belongs to.
func (p PopupSurface) XdgSurface() *SurfaceData {
	if d := p.data(); d != nil {
		return d.xdgSurface
	}
	return nil
}

// Parent returns the parent xdg_surface, or nil when the popup was created
// without one.
func (p PopupSurface) Parent() *SurfaceData {
	if d := p.data(); d != nil {
		return d.parent
	}
	return nil
}

// State returns a copy of the pending state.
func (p PopupSurface) State() PopupState {
	d := p.data()
	if d == nil {
		return PopupState{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// WithPendingState lets fn modify the state the next configure will carry.
func (p PopupSurface) WithPendingState(fn func(state *PopupState)) {
	d := p.data()
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.state)
}

// LastConfigure returns the most recent configure sent to the popup.
func (p PopupSurface) LastConfigure() (PopupConfigure, bool) {
	d := p.data()
	if d == nil {
		return PopupConfigure{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastConfigure == nil {
		return PopupConfigure{}, false
	}
	return *d.lastConfigure, true
}

// SendPendingConfigure sends the pending state under a fresh serial.
func (p PopupSurface) SendPendingConfigure() (serial.Serial, error) {
	return p.sendConfigure(nil)
}

// SendRepositioned answers a reposition request: the pending state is sent
// preceded by repositioned(token).
func (p PopupSurface) SendRepositioned(token uint32) (serial.Serial, error) {
	return p.sendConfigure(&token)
}

func (p PopupSurface) sendConfigure(token *uint32) (serial.Serial, error) {
	d := p.data()
	if d == nil || !d.alive.Load() {
		return 0, fmt.Errorf("configure %v: %w", p.shellSurface, ErrObjectDead)
	}

	configure := PopupConfigure{
		State:           p.State(),
		Serial:          d.serials.Next(),
		RepositionToken: token,
	}
	SendConfigure(p.shellSurface, configure)
	return configure.Serial, nil
}

// SendPopupDone tells the client the popup was dismissed.
func (p PopupSurface) SendPopupDone() {
	p.shellSurface.Send(protocols.PopupEventPopupDone)
}

// SendConfigure sends configure to an xdg_popup object: repositioned (when a
// token is set and the object supports it), xdg_popup.configure and finally
// xdg_surface.configure carrying the serial.
func SendConfigure(popup *resource.Object, configure PopupConfigure) {
	d, ok := popupDataOf(popup)
	if !ok {
		logger.Errorf("SendConfigure on %v, which is not an xdg_popup", popup)
		return
	}

	if configure.RepositionToken != nil && popup.Version() >= protocols.PopupRepositionSinceVersion {
		popup.Send(protocols.PopupEventRepositioned, *configure.RepositionToken)
	}

	g := configure.State.Geometry
	popup.Send(protocols.PopupEventConfigure, g.Loc.X, g.Loc.Y, g.Size.W, g.Size.H)

	d.xdgSurface.sendConfigure(configure.Serial)

	d.mu.Lock()
	d.lastConfigure = &configure
	d.mu.Unlock()
}

// PopupRequest is one decoded xdg_popup request.
type PopupRequest interface {
	popupRequest()
}

// PopupDestroyRequest ends the popup role.
type PopupDestroyRequest struct{}

// PopupGrabRequest asks for an explicit input grab.
type PopupGrabRequest struct {
	Seat   *resource.Object
	Serial serial.Serial
}

// PopupRepositionRequest asks for the popup to be placed again.
type PopupRepositionRequest struct {
	Positioner *resource.Object
	Token      uint32
}

func (PopupDestroyRequest) popupRequest()    {}
func (PopupGrabRequest) popupRequest()       {}
func (PopupRepositionRequest) popupRequest() {}

// DecodePopupRequest decodes msg, sent to the xdg_popup obj.
func DecodePopupRequest(obj *resource.Object, msg *wire.Message) (PopupRequest, error) {
	switch msg.Opcode {
	case protocols.PopupRequestDestroy:
		return PopupDestroyRequest{}, nil

	case protocols.PopupRequestGrab:
		r := msg.Reader()
		seatID, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("grab: %w", err)
		}
		s, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("grab: %w", err)
		}
		seat := obj.Client().Object(seatID)
		if seat == nil || seat.Interface() != protocols.Seat {
			return nil, fmt.Errorf("grab: object %d is not a wl_seat", seatID)
		}
		return PopupGrabRequest{Seat: seat, Serial: serial.Serial(s)}, nil

	case protocols.PopupRequestReposition:
		r := msg.Reader()
		positionerID, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("reposition: %w", err)
		}
		token, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("reposition: %w", err)
		}
		positioner := obj.Client().Object(positionerID)
		if _, ok := PositionerFromObject(positioner); !ok {
			return nil, fmt.Errorf("reposition: object %d is not an xdg_positioner", positionerID)
		}
		return PopupRepositionRequest{Positioner: positioner, Token: token}, nil

	default:
		return nil, fmt.Errorf("xdg_popup opcode %d: %w", msg.Opcode, ErrUnknownOpcode)
	}
}

func (s *ShellState) handlePopupRequest(obj *resource.Object, msg *wire.Message) error {
	req, err := DecodePopupRequest(obj, msg)
	if errors.Is(err, ErrUnknownOpcode) {
		return resource.NewProtocolError(obj.Client().Display(), protocols.DisplayErrorInvalidMethod, "%v", err)
	}
	if err != nil {
		return resource.NewProtocolError(obj.Client().Display(), protocols.DisplayErrorInvalidObject, "%v", err)
	}
	return s.HandlePopupRequest(obj, req)
}

// HandlePopupRequest applies a decoded request to the popup obj.
func (s *ShellState) HandlePopupRequest(obj *resource.Object, req PopupRequest) error {
	popup, ok := PopupFromObject(obj)
	if !ok {
		return fmt.Errorf("%v is not an xdg_popup", obj)
	}

	switch r := req.(type) {
	case PopupDestroyRequest:
		// The object itself is destroyed by the dispatcher; the registry
		// entry goes with its destroy notification.
		popup.XdgSurface().ReleaseRole()
		return nil

	case PopupGrabRequest:
		s.handler.Grab(popup, r.Seat, r.Serial)
		return nil

	case PopupRepositionRequest:
		positioner, ok := PositionerFromObject(r.Positioner)
		if !ok {
			return fmt.Errorf("reposition: %v is not an xdg_positioner", r.Positioner)
		}
		s.handler.RepositionRequest(popup, positioner.Snapshot(), r.Token)
		return nil

	default:
		return resource.NewProtocolError(obj.Client().Display(), protocols.DisplayErrorInvalidMethod,
			"unexpected xdg_popup request %T", req)
	}
}
