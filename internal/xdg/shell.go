// Package xdg implements the popup side of the xdg-shell protocol: the
// xdg_wm_base global, xdg_surface role bookkeeping, positioners and the
// lifecycle of xdg_popup objects.
package xdg

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/serial"
	"github.com/bnema/waycore/internal/wire"
)

// Handler is the compositor policy consulted by the shell. Methods are called
// without any shell lock held and may call back into the ShellState.
type Handler interface {
	// NewPopup is called once a popup was created and registered.
	NewPopup(popup PopupSurface, positioner PositionerState)
	// Grab is called when the client requests an explicit grab for popup.
	Grab(popup PopupSurface, seat *resource.Object, s serial.Serial)
	// RepositionRequest is called when the client asks for popup to be
	// moved according to positioner. The reply must carry token.
	RepositionRequest(popup PopupSurface, positioner PositionerState, token uint32)
	// PopupDestroyed is called exactly once per popup after its protocol
	// object was destroyed.
	PopupDestroyed(popup PopupSurface)
}

// ShellState tracks every live popup of the compositor.
type ShellState struct {
	handler Handler
	serials *serial.Counter

	mu          sync.Mutex
	knownPopups []PopupSurface
	// live xdg_surfaces per xdg_wm_base
	surfaces map[resource.ObjectID]int
}

// NewShellState creates an empty shell. Configure serials come from serials,
// or from serial.DefaultCounter when nil.
func NewShellState(handler Handler, serials *serial.Counter) *ShellState {
	if serials == nil {
		serials = serial.DefaultCounter
	}
	return &ShellState{
		handler:  handler,
		serials:  serials,
		surfaces: make(map[resource.ObjectID]int),
	}
}

// Serials returns the serial counter used for configures.
func (s *ShellState) Serials() *serial.Counter { return s.serials }

// Popups returns a snapshot of the live popups.
func (s *ShellState) Popups() []PopupSurface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PopupSurface(nil), s.knownPopups...)
}

// BindWmBase creates an xdg_wm_base object for client.
func (s *ShellState) BindWmBase(client *resource.Client, id, version uint32) (*resource.Object, error) {
	obj, err := client.CreateObject(id, protocols.WmBase, version, s)
	if err != nil {
		return nil, fmt.Errorf("failed to bind xdg_wm_base: %w", err)
	}
	obj.SetHandler(s.handleWmBaseRequest)
	obj.OnDestroy(func(id resource.ObjectID) {
		s.mu.Lock()
		delete(s.surfaces, id)
		s.mu.Unlock()
	})
	return obj, nil
}

// NewPositioner creates an xdg_positioner owned by the client of wmBase.
func (s *ShellState) NewPositioner(wmBase *resource.Object, id uint32) (*Positioner, error) {
	p := &Positioner{}
	obj, err := wmBase.Client().CreateObject(id, protocols.Positioner, wmBase.Version(), p)
	if err != nil {
		return nil, fmt.Errorf("failed to create positioner: %w", err)
	}
	p.obj = obj
	obj.SetHandler(p.handleRequest)
	return p, nil
}

// NewXdgSurface creates the xdg_surface for wlSurface.
func (s *ShellState) NewXdgSurface(wmBase *resource.Object, id uint32, wlSurface *resource.Object) (*SurfaceData, error) {
	if wlSurface == nil || wlSurface.Interface() != protocols.Surface {
		return nil, fmt.Errorf("get_xdg_surface: %v is not a wl_surface", wlSurface)
	}

	d := &SurfaceData{
		wlSurface:     wlSurface,
		wmBase:        wmBase,
		shell:         s,
		hasActiveRole: atomic.NewBool(false),
	}
	obj, err := wmBase.Client().CreateObject(id, protocols.XdgSurface, wmBase.Version(), d)
	if err != nil {
		return nil, fmt.Errorf("failed to create xdg_surface: %w", err)
	}
	d.obj = obj
	obj.SetHandler(d.handleRequest)

	owner := wmBase.ID()
	s.mu.Lock()
	s.surfaces[owner]++
	s.mu.Unlock()
	obj.OnDestroy(func(resource.ObjectID) {
		s.mu.Lock()
		if n, ok := s.surfaces[owner]; ok && n > 1 {
			s.surfaces[owner] = n - 1
		} else {
			delete(s.surfaces, owner)
		}
		s.mu.Unlock()
	})
	return d, nil
}

// liveSurfaces returns how many xdg_surfaces created through wmBase are
// still alive.
func (s *ShellState) liveSurfaces(wmBase *resource.Object) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surfaces[wmBase.ID()]
}

// NewPopup gives surface the popup role and registers the new xdg_popup
// object id. The positioner is copied; later changes to the client's
// positioner do not affect the popup.
func (s *ShellState) NewPopup(surface *SurfaceData, id uint32, parent *SurfaceData, positioner PositionerState) (PopupSurface, error) {
	if err := surface.AssignRole(); err != nil {
		return PopupSurface{}, err
	}

	data := &popupData{
		xdgSurface: surface,
		parent:     parent,
		serials:    s.serials,
		alive:      atomic.NewBool(true),
		state: PopupState{
			Positioner: positioner,
			Geometry:   positioner.Geometry(),
		},
	}
	obj, err := surface.obj.Client().CreateObject(id, protocols.Popup, surface.obj.Version(), data)
	if err != nil {
		surface.ReleaseRole()
		return PopupSurface{}, fmt.Errorf("failed to create popup: %w", err)
	}

	popup := PopupSurface{wlSurface: surface.wlSurface, shellSurface: obj}
	obj.SetHandler(s.handlePopupRequest)
	obj.OnDestroy(func(id resource.ObjectID) {
		s.destroyedNotification(id, data)
	})

	s.mu.Lock()
	s.knownPopups = append(s.knownPopups, popup)
	s.mu.Unlock()

	logger.Debug("Popup created", "popup", obj, "geometry", data.state.Geometry)
	s.handler.NewPopup(popup, positioner)
	return popup, nil
}

// destroyedNotification runs once when a popup's protocol object goes away.
// The handler is called after the registry lock is released.
func (s *ShellState) destroyedNotification(id resource.ObjectID, data *popupData) {
	data.alive.Store(false)

	s.mu.Lock()
	idx := -1
	for i, p := range s.knownPopups {
		if p.shellSurface.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	popup := s.knownPopups[idx]
	s.knownPopups = append(s.knownPopups[:idx], s.knownPopups[idx+1:]...)
	s.mu.Unlock()

	logger.Debug("Popup destroyed", "popup", id)
	s.handler.PopupDestroyed(popup)
}

func (s *ShellState) handleWmBaseRequest(obj *resource.Object, msg *wire.Message) error {
	req, _ := obj.Interface().Request(msg.Opcode)
	args, err := msg.Decode(req.Signature)
	if err != nil {
		return fmt.Errorf("%s: %w", req.Name, err)
	}

	switch msg.Opcode {
	case protocols.WmBaseRequestDestroy:
		if n := s.liveSurfaces(obj); n > 0 {
			return resource.NewProtocolError(obj, protocols.WmBaseErrorDefunctSurfaces,
				"xdg_wm_base destroyed with %d live xdg_surface objects", n)
		}
		return nil
	case protocols.WmBaseRequestCreatePositioner:
		_, err := s.NewPositioner(obj, args[0].(uint32))
		return err
	case protocols.WmBaseRequestGetXdgSurface:
		surface := obj.Client().Object(args[1].(uint32))
		if surface == nil || surface.Interface() != protocols.Surface {
			return resource.NewProtocolError(obj.Client().Display(), protocols.DisplayErrorInvalidObject,
				"object %d is not a wl_surface", args[1].(uint32))
		}
		_, err := s.NewXdgSurface(obj, args[0].(uint32), surface)
		return err
	case protocols.WmBaseRequestPong:
		logger.Debug("Pong", "client", obj.Client().ID(), "serial", args[0])
		return nil
	default:
		return resource.NewProtocolError(obj.Client().Display(), protocols.DisplayErrorInvalidMethod,
			"unexpected xdg_wm_base request %d", msg.Opcode)
	}
}
