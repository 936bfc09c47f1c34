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

var (
	// ErrRoleAlreadyAssigned is returned when an xdg_surface already has a
	// live role object.
	ErrRoleAlreadyAssigned = errors.New("xdg_surface already has a role object")
	// ErrInvalidSerial is returned when a client acknowledges a configure
	// that was never sent or was already superseded.
	ErrInvalidSerial = errors.New("unknown configure serial")
	// ErrObjectDead is returned when sending to a destroyed popup.
	ErrObjectDead = errors.New("object is no longer alive")
	// ErrUnknownOpcode is returned when decoding a request outside the
	// known set.
	ErrUnknownOpcode = errors.New("unknown request opcode")
)

// SurfaceData is the state of one xdg_surface.
type SurfaceData struct {
	obj       *resource.Object
	wlSurface *resource.Object
	wmBase    *resource.Object
	shell     *ShellState

	hasActiveRole *atomic.Bool

	mu             sync.Mutex
	pending        []serial.Serial
	lastAcked      serial.Serial
	acked          bool
	configured     bool
	windowGeometry geom.Rectangle
}

// SurfaceDataFromObject returns the state behind an xdg_surface object.
func SurfaceDataFromObject(obj *resource.Object) (*SurfaceData, bool) {
	if obj == nil {
		return nil, false
	}
	d, ok := obj.Data().(*SurfaceData)
	return d, ok
}

// Object returns the xdg_surface protocol object.
func (d *SurfaceData) Object() *resource.Object { return d.obj }

// WlSurface returns the wl_surface this xdg_surface was created for.
func (d *SurfaceData) WlSurface() *resource.Object { return d.wlSurface }

// HasActiveRole reports whether a role object is currently attached.
func (d *SurfaceData) HasActiveRole() bool { return d.hasActiveRole.Load() }

// AssignRole claims the role for a new role object.
func (d *SurfaceData) AssignRole() error {
	if !d.hasActiveRole.CompareAndSwap(false, true) {
		return ErrRoleAlreadyAssigned
	}
	return nil
}

// ReleaseRole clears the role flag so another role object may be attached.
func (d *SurfaceData) ReleaseRole() {
	d.hasActiveRole.Store(false)
}

// Configured reports whether at least one configure was sent.
func (d *SurfaceData) Configured() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configured
}

// PendingConfigures returns the serials sent but not acknowledged yet.
func (d *SurfaceData) PendingConfigures() []serial.Serial {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]serial.Serial(nil), d.pending...)
}

// LastAcked returns the last acknowledged configure serial.
func (d *SurfaceData) LastAcked() (serial.Serial, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastAcked, d.acked
}

// WindowGeometry returns the geometry set by the client, if any.
func (d *SurfaceData) WindowGeometry() geom.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.windowGeometry
}

// AckConfigure acknowledges the configure carrying s. Older pending
// configures are dropped with it.
func (d *SurfaceData) AckConfigure(s serial.Serial) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, p := range d.pending {
		if p == s {
			d.pending = append(d.pending[:0], d.pending[i+1:]...)
			d.lastAcked = s
			d.acked = true
			return nil
		}
	}
	return fmt.Errorf("ack_configure(%d): %w", s, ErrInvalidSerial)
}

func (d *SurfaceData) sendConfigure(s serial.Serial) {
	d.mu.Lock()
	d.pending = append(d.pending, s)
	d.configured = true
	d.mu.Unlock()

	d.obj.Send(protocols.XdgSurfaceEventConfigure, uint32(s))
}

func (d *SurfaceData) handleRequest(obj *resource.Object, msg *wire.Message) error {
	req, _ := obj.Interface().Request(msg.Opcode)
	args, err := msg.Decode(req.Signature)
	if err != nil {
		return fmt.Errorf("%s: %w", req.Name, err)
	}

	switch msg.Opcode {
	case protocols.XdgSurfaceRequestDestroy:
		if d.HasActiveRole() {
			return resource.NewProtocolError(obj, protocols.XdgSurfaceErrorDefunctRoleObject,
				"xdg_surface destroyed before its role object")
		}
		return nil

	case protocols.XdgSurfaceRequestGetToplevel:
		if d.HasActiveRole() {
			return resource.NewProtocolError(obj, protocols.XdgSurfaceErrorAlreadyConstructed,
				"xdg_surface already has a role object")
		}
		return resource.NewProtocolError(obj.Client().Display(), protocols.DisplayErrorImplementation,
			"xdg_toplevel is not provided by this compositor")

	case protocols.XdgSurfaceRequestGetPopup:
		return d.getPopup(obj, args[0].(uint32), args[1].(uint32), args[2].(uint32))

	case protocols.XdgSurfaceRequestSetWindowGeometry:
		x, y, w, h := args[0].(int32), args[1].(int32), args[2].(int32), args[3].(int32)
		if w <= 0 || h <= 0 {
			return resource.NewProtocolError(obj, protocols.XdgSurfaceErrorInvalidSize,
				"invalid window geometry size %dx%d", w, h)
		}
		d.mu.Lock()
		d.windowGeometry = geom.Rect(x, y, w, h)
		d.mu.Unlock()
		return nil

	case protocols.XdgSurfaceRequestAckConfigure:
		s := serial.Serial(args[0].(uint32))
		if err := d.AckConfigure(s); err != nil {
			return resource.NewProtocolError(obj, protocols.XdgSurfaceErrorInvalidSerial, "%v", err)
		}
		logger.Debug("Configure acknowledged", "surface", obj, "serial", s)
		return nil

	default:
		return resource.NewProtocolError(obj.Client().Display(), protocols.DisplayErrorInvalidMethod,
			"unexpected xdg_surface request %d", msg.Opcode)
	}
}

func (d *SurfaceData) getPopup(obj *resource.Object, id, parentID, positionerID uint32) error {
	client := obj.Client()

	var parent *SurfaceData
	if parentID != 0 {
		p, ok := SurfaceDataFromObject(client.Object(parentID))
		if !ok {
			return resource.NewProtocolError(d.wmBase, protocols.WmBaseErrorInvalidPopupParent,
				"popup parent %d is not an xdg_surface", parentID)
		}
		parent = p
	}

	positioner, ok := PositionerFromObject(client.Object(positionerID))
	if !ok {
		return resource.NewProtocolError(client.Display(), protocols.DisplayErrorInvalidObject,
			"object %d is not an xdg_positioner", positionerID)
	}
	state := positioner.Snapshot()
	if !state.IsComplete() {
		return resource.NewProtocolError(d.wmBase, protocols.WmBaseErrorInvalidPositioner,
			"incomplete positioner")
	}

	_, err := d.shell.NewPopup(d, id, parent, state)
	if errors.Is(err, ErrRoleAlreadyAssigned) {
		return resource.NewProtocolError(obj, protocols.XdgSurfaceErrorAlreadyConstructed, "%v", err)
	}
	return err
}
