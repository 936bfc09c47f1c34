package protocols

import "github.com/bnema/waycore/internal/wire"

// Protocol interface names
const (
	WmBaseInterfaceName     = "xdg_wm_base"
	PositionerInterfaceName = "xdg_positioner"
	XdgSurfaceInterfaceName = "xdg_surface"
	PopupInterfaceName      = "xdg_popup"
)

// xdg_wm_base error codes
const (
	WmBaseErrorRole                = 0
	WmBaseErrorDefunctSurfaces     = 1
	WmBaseErrorNotTheTopmostPopup  = 2
	WmBaseErrorInvalidPopupParent  = 3
	WmBaseErrorInvalidSurfaceState = 4
	WmBaseErrorInvalidPositioner   = 5
	WmBaseErrorUnresponsive        = 6
)

// xdg_wm_base request opcodes
const (
	// Opcode 0: destroy
	WmBaseRequestDestroy = 0
	// Opcode 1: create_positioner(id)
	WmBaseRequestCreatePositioner = 1
	// Opcode 2: get_xdg_surface(id, surface)
	WmBaseRequestGetXdgSurface = 2
	// Opcode 3: pong(serial)
	WmBaseRequestPong = 3
)

// WmBase is the xdg_wm_base interface.
var WmBase = &wire.Interface{
	Name:    WmBaseInterfaceName,
	Version: 6,
	Requests: []wire.MessageSpec{
		{Name: "destroy", Destructor: true},
		{Name: "create_positioner", Signature: "n"},
		{Name: "get_xdg_surface", Signature: "no"},
		{Name: "pong", Signature: "u"},
	},
	Events: []wire.MessageSpec{
		{Name: "ping", Signature: "u"},
	},
}

// xdg_positioner error codes
const (
	PositionerErrorInvalidInput = 0
)

// xdg_positioner request opcodes
const (
	PositionerRequestDestroy                 = 0
	PositionerRequestSetSize                 = 1
	PositionerRequestSetAnchorRect           = 2
	PositionerRequestSetAnchor               = 3
	PositionerRequestSetGravity              = 4
	PositionerRequestSetConstraintAdjustment = 5
	PositionerRequestSetOffset               = 6
	PositionerRequestSetReactive             = 7
	PositionerRequestSetParentSize           = 8
	PositionerRequestSetParentConfigure      = 9
)

// Positioner is the xdg_positioner interface.
var Positioner = &wire.Interface{
	Name:    PositionerInterfaceName,
	Version: 6,
	Requests: []wire.MessageSpec{
		{Name: "destroy", Destructor: true},
		{Name: "set_size", Signature: "ii"},
		{Name: "set_anchor_rect", Signature: "iiii"},
		{Name: "set_anchor", Signature: "u"},
		{Name: "set_gravity", Signature: "u"},
		{Name: "set_constraint_adjustment", Signature: "u"},
		{Name: "set_offset", Signature: "ii"},
		{Name: "set_reactive", Since: 3},
		{Name: "set_parent_size", Signature: "ii", Since: 3},
		{Name: "set_parent_configure", Signature: "u", Since: 3},
	},
}

// xdg_surface error codes
const (
	XdgSurfaceErrorNotConstructed     = 1
	XdgSurfaceErrorAlreadyConstructed = 2
	XdgSurfaceErrorUnconfiguredBuffer = 3
	XdgSurfaceErrorInvalidSerial      = 4
	XdgSurfaceErrorInvalidSize        = 5
	XdgSurfaceErrorDefunctRoleObject  = 6
)

// xdg_surface request opcodes
const (
	// Opcode 0: destroy
	XdgSurfaceRequestDestroy = 0
	// Opcode 1: get_toplevel(id)
	XdgSurfaceRequestGetToplevel = 1
	// Opcode 2: get_popup(id, parent, positioner)
	XdgSurfaceRequestGetPopup = 2
	// Opcode 3: set_window_geometry(x, y, width, height)
	XdgSurfaceRequestSetWindowGeometry = 3
	// Opcode 4: ack_configure(serial)
	XdgSurfaceRequestAckConfigure = 4
)

// xdg_surface event opcodes
const (
	// Opcode 0: configure(serial)
	XdgSurfaceEventConfigure = 0
)

// XdgSurface is the xdg_surface interface.
var XdgSurface = &wire.Interface{
	Name:    XdgSurfaceInterfaceName,
	Version: 6,
	Requests: []wire.MessageSpec{
		{Name: "destroy", Destructor: true},
		{Name: "get_toplevel", Signature: "n"},
		{Name: "get_popup", Signature: "n?oo"},
		{Name: "set_window_geometry", Signature: "iiii"},
		{Name: "ack_configure", Signature: "u"},
	},
	Events: []wire.MessageSpec{
		{Name: "configure", Signature: "u"},
	},
}

// xdg_popup error codes
const (
	PopupErrorInvalidGrab = 0
)

// xdg_popup request opcodes
const (
	// Opcode 0: destroy
	PopupRequestDestroy = 0
	// Opcode 1: grab(seat, serial)
	PopupRequestGrab = 1
	// Opcode 2: reposition(positioner, token) (since version 3)
	PopupRequestReposition = 2
)

// xdg_popup event opcodes
const (
	// Opcode 0: configure(x, y, width, height)
	PopupEventConfigure = 0
	// Opcode 1: popup_done
	PopupEventPopupDone = 1
	// Opcode 2: repositioned(token) (since version 3)
	PopupEventRepositioned = 2
)

// PopupRepositionSinceVersion is the first xdg_popup version with reposition
// and repositioned.
const PopupRepositionSinceVersion = 3

// Popup is the xdg_popup interface.
var Popup = &wire.Interface{
	Name:    PopupInterfaceName,
	Version: 6,
	Requests: []wire.MessageSpec{
		{Name: "destroy", Destructor: true},
		{Name: "grab", Signature: "ou"},
		{Name: "reposition", Signature: "ou", Since: PopupRepositionSinceVersion},
	},
	Events: []wire.MessageSpec{
		{Name: "configure", Signature: "iiii"},
		{Name: "popup_done"},
		{Name: "repositioned", Signature: "u", Since: PopupRepositionSinceVersion},
	},
}
