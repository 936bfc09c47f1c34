package seat

import (
	"sync"

	"github.com/bnema/waycore/internal/geom"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/serial"
	"github.com/bnema/waycore/internal/wire"
)

// TouchSlot identifies one simultaneous touch contact.
type TouchSlot int32

// Touch is a client's wl_touch object.
type Touch struct {
	obj *resource.Object
}

// NewTouchObject wraps an existing wl_touch object.
func NewTouchObject(obj *resource.Object) *Touch {
	return &Touch{obj: obj}
}

// Object returns the underlying protocol object.
func (t *Touch) Object() *resource.Object { return t.obj }

// Version returns the negotiated wl_touch version.
func (t *Touch) Version() uint32 { return t.obj.Version() }

func (t *Touch) Down(s serial.Serial, time uint32, surface *resource.Object, slot TouchSlot, x, y float64) {
	t.obj.Send(protocols.TouchEventDown, uint32(s), time, surface, int32(slot), wire.NewFixed(x), wire.NewFixed(y))
}

func (t *Touch) Up(s serial.Serial, time uint32, slot TouchSlot) {
	t.obj.Send(protocols.TouchEventUp, uint32(s), time, int32(slot))
}

func (t *Touch) Motion(time uint32, slot TouchSlot, x, y float64) {
	t.obj.Send(protocols.TouchEventMotion, time, int32(slot), wire.NewFixed(x), wire.NewFixed(y))
}

func (t *Touch) Frame() {
	t.obj.Send(protocols.TouchEventFrame)
}

func (t *Touch) Cancel() {
	t.obj.Send(protocols.TouchEventCancel)
}

func (t *Touch) Shape(slot TouchSlot, major, minor float64) {
	t.obj.Send(protocols.TouchEventShape, int32(slot), wire.NewFixed(major), wire.NewFixed(minor))
}

func (t *Touch) Orientation(slot TouchSlot, orientation float64) {
	t.obj.Send(protocols.TouchEventOrientation, int32(slot), wire.NewFixed(orientation))
}

// touchFocus is the client state of one contact, fixed at its down event.
type touchFocus struct {
	surfaceOffset geom.Point
	handles       []*Touch
}

// TouchHandle routes touch events to the wl_touch objects of the client that
// owns the touched surface. All copies of the pointer share one state.
//
// Events are written to client sinks while the handle lock is held; sinks
// must not call back into the handle.
type TouchHandle struct {
	mu           sync.Mutex
	knownHandles []*Touch
	focus        map[TouchSlot]*touchFocus
}

// NewTouchHandle creates an empty touch router.
func NewTouchHandle() *TouchHandle {
	return &TouchHandle{
		focus: make(map[TouchSlot]*touchFocus),
	}
}

// NewTouch registers a wl_touch object. It must be called before any event
// can reach the object's client. The object is forgotten again when the
// client destroys it. A dead object is never registered.
func (h *TouchHandle) NewTouch(obj *resource.Object) *Touch {
	touch := NewTouchObject(obj)
	if !obj.Alive() {
		logger.Debugf("Not registering destroyed %s", obj)
		return touch
	}

	h.mu.Lock()
	h.knownHandles = append(h.knownHandles, touch)
	h.mu.Unlock()

	obj.OnDestroy(h.Unregister)
	return touch
}

// Unregister forgets the wl_touch object with the given identity. Unknown
// identities are ignored.
func (h *TouchHandle) Unregister(id resource.ObjectID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.knownHandles[:0]
	for _, t := range h.knownHandles {
		if t.obj.ID() != id {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(h.knownHandles); i++ {
		h.knownHandles[i] = nil
	}
	h.knownHandles = kept
}

// Down notifies the client owning surface about a new contact. The contact
// stays bound to that client until the next Down on the same slot.
func (h *TouchHandle) Down(s serial.Serial, time uint32, surface *resource.Object, surfaceOffset geom.Point, slot TouchSlot, location geom.Point) {
	h.mu.Lock()
	defer h.mu.Unlock()

	focus, ok := h.focus[slot]
	if !ok {
		focus = &touchFocus{}
		h.focus[slot] = focus
	}
	focus.surfaceOffset = surfaceOffset
	focus.handles = focus.handles[:0]

	for _, t := range h.knownHandles {
		if t.obj.SameClientAs(surface) {
			focus.handles = append(focus.handles, t)
		}
	}

	local := location.Sub(focus.surfaceOffset)
	h.withFocusedHandles(slot, func(t *Touch) bool {
		t.Down(s, time, surface, slot, local.X, local.Y)
		return true
	})
}

// Up notifies the focused client that a contact was lifted.
func (h *TouchHandle) Up(s serial.Serial, time uint32, slot TouchSlot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.withFocusedHandles(slot, func(t *Touch) bool {
		t.Up(s, time, slot)
		return true
	})
}

// Motion notifies the focused client that a contact moved. Coordinates are
// made surface-local with the offset captured at Down.
func (h *TouchHandle) Motion(time uint32, slot TouchSlot, location geom.Point) {
	h.mu.Lock()
	defer h.mu.Unlock()

	focus, ok := h.focus[slot]
	if !ok {
		logger.Debugf("Touch motion for unknown slot %d", slot)
		return
	}

	local := location.Sub(focus.surfaceOffset)
	h.withFocusedHandles(slot, func(t *Touch) bool {
		t.Motion(time, slot, local.X, local.Y)
		return true
	})
}

// Shape notifies the focused client about the contact's ellipse axes.
// Objects older than version 6 are skipped.
func (h *TouchHandle) Shape(slot TouchSlot, major, minor float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.withFocusedHandles(slot, func(t *Touch) bool {
		if t.Version() < protocols.TouchShapeSinceVersion {
			return false
		}
		t.Shape(slot, major, minor)
		return true
	})
}

// Orientation notifies the focused client about the contact's angle.
// Objects older than version 6 are skipped.
func (h *TouchHandle) Orientation(slot TouchSlot, orientation float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.withFocusedHandles(slot, func(t *Touch) bool {
		if t.Version() < protocols.TouchShapeSinceVersion {
			return false
		}
		t.Orientation(slot, orientation)
		return true
	})
}

// Cancel tells every known wl_touch object, focused or not, that the
// current touch sequence was taken over by the compositor. No frame follows.
func (h *TouchHandle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, t := range h.knownHandles {
		t.Cancel()
	}
}

// FocusedHandles returns how many wl_touch objects currently receive events
// for slot.
func (h *TouchHandle) FocusedHandles(slot TouchSlot) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if focus, ok := h.focus[slot]; ok {
		return len(focus.handles)
	}
	return 0
}

// KnownHandles returns how many wl_touch objects are registered.
func (h *TouchHandle) KnownHandles() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.knownHandles)
}

// withFocusedHandles runs f for each handle focused on slot. Every event f
// reports as sent is followed by a frame. Caller must hold h.mu.
func (h *TouchHandle) withFocusedHandles(slot TouchSlot, f func(t *Touch) bool) {
	focus, ok := h.focus[slot]
	if !ok {
		return
	}
	for _, t := range focus.handles {
		if f(t) {
			t.Frame()
		}
	}
}
