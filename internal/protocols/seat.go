package protocols

import "github.com/bnema/waycore/internal/wire"

// Protocol interface names
const (
	SeatInterfaceName    = "wl_seat"
	TouchInterfaceName   = "wl_touch"
	SurfaceInterfaceName = "wl_surface"
)

// wl_seat capability bits
const (
	SeatCapabilityPointer  = 1
	SeatCapabilityKeyboard = 2
	SeatCapabilityTouch    = 4
)

// wl_seat error codes
const (
	SeatErrorMissingCapability = 0
)

// wl_seat request opcodes
const (
	// Opcode 0: get_pointer(id)
	SeatRequestGetPointer = 0
	// Opcode 1: get_keyboard(id)
	SeatRequestGetKeyboard = 1
	// Opcode 2: get_touch(id)
	SeatRequestGetTouch = 2
	// Opcode 3: release (since version 5)
	SeatRequestRelease = 3
)

// wl_seat event opcodes
const (
	SeatEventCapabilities = 0
	SeatEventName         = 1
)

// Seat is the wl_seat interface.
var Seat = &wire.Interface{
	Name:    SeatInterfaceName,
	Version: 9,
	Requests: []wire.MessageSpec{
		{Name: "get_pointer", Signature: "n"},
		{Name: "get_keyboard", Signature: "n"},
		{Name: "get_touch", Signature: "n"},
		{Name: "release", Since: 5, Destructor: true},
	},
	Events: []wire.MessageSpec{
		{Name: "capabilities", Signature: "u"},
		{Name: "name", Signature: "s", Since: 2},
	},
}

// wl_touch request opcodes
const (
	// Opcode 0: release (since version 3)
	TouchRequestRelease = 0
)

// wl_touch event opcodes
const (
	// Opcode 0: down(serial, time, surface, id, x, y)
	TouchEventDown = 0
	// Opcode 1: up(serial, time, id)
	TouchEventUp = 1
	// Opcode 2: motion(time, id, x, y)
	TouchEventMotion = 2
	// Opcode 3: frame
	TouchEventFrame = 3
	// Opcode 4: cancel
	TouchEventCancel = 4
	// Opcode 5: shape(id, major, minor) (since version 6)
	TouchEventShape = 5
	// Opcode 6: orientation(id, orientation) (since version 6)
	TouchEventOrientation = 6
)

// TouchShapeSinceVersion is the first wl_touch version carrying shape and
// orientation events.
const TouchShapeSinceVersion = 6

// Touch is the wl_touch interface.
var Touch = &wire.Interface{
	Name:    TouchInterfaceName,
	Version: 9,
	Requests: []wire.MessageSpec{
		{Name: "release", Since: 3, Destructor: true},
	},
	Events: []wire.MessageSpec{
		{Name: "down", Signature: "uuoiff"},
		{Name: "up", Signature: "uui"},
		{Name: "motion", Signature: "uiff"},
		{Name: "frame"},
		{Name: "cancel"},
		{Name: "shape", Signature: "iff", Since: TouchShapeSinceVersion},
		{Name: "orientation", Signature: "if", Since: TouchShapeSinceVersion},
	},
}

// wl_surface request opcodes
const (
	// Opcode 0: destroy
	SurfaceRequestDestroy = 0
	// Opcode 3: frame(callback)
	SurfaceRequestFrame = 3
	// Opcode 6: commit
	SurfaceRequestCommit = 6
)

// Surface is the wl_surface interface. The core only needs its identity and
// owning client; buffer handling lives with the renderer.
var Surface = &wire.Interface{
	Name:    SurfaceInterfaceName,
	Version: 6,
	Requests: []wire.MessageSpec{
		{Name: "destroy", Destructor: true},
		{Name: "attach", Signature: "?oii"},
		{Name: "damage", Signature: "iiii"},
		{Name: "frame", Signature: "n"},
		{Name: "set_opaque_region", Signature: "?o"},
		{Name: "set_input_region", Signature: "?o"},
		{Name: "commit"},
		{Name: "set_buffer_transform", Signature: "i", Since: 2},
		{Name: "set_buffer_scale", Signature: "i", Since: 3},
		{Name: "damage_buffer", Signature: "iiii", Since: 4},
		{Name: "offset", Signature: "ii", Since: 5},
	},
	Events: []wire.MessageSpec{
		{Name: "enter", Signature: "o"},
		{Name: "leave", Signature: "o"},
		{Name: "preferred_buffer_scale", Signature: "i", Since: 6},
		{Name: "preferred_buffer_transform", Signature: "u", Since: 6},
	},
}
