package protocols

import "github.com/bnema/waycore/internal/wire"

// Protocol interface names
const (
	RegistryInterfaceName   = "wl_registry"
	CallbackInterfaceName   = "wl_callback"
	CompositorInterfaceName = "wl_compositor"
	RegionInterfaceName     = "wl_region"
)

// wl_display request opcodes
const (
	// Opcode 0: sync(callback)
	DisplayRequestSync = 0
	// Opcode 1: get_registry(registry)
	DisplayRequestGetRegistry = 1
)

// wl_registry request and event opcodes
const (
	// Opcode 0: bind(name, interface, version, id)
	RegistryRequestBind = 0

	RegistryEventGlobal       = 0
	RegistryEventGlobalRemove = 1
)

// Registry is the wl_registry interface.
var Registry = &wire.Interface{
	Name:    RegistryInterfaceName,
	Version: 1,
	Requests: []wire.MessageSpec{
		{Name: "bind", Signature: "usun"},
	},
	Events: []wire.MessageSpec{
		{Name: "global", Signature: "usu"},
		{Name: "global_remove", Signature: "u"},
	},
}

// wl_callback event opcodes
const (
	CallbackEventDone = 0
)

// Callback is the wl_callback interface. The server destroys it right after
// done.
var Callback = &wire.Interface{
	Name:    CallbackInterfaceName,
	Version: 1,
	Events: []wire.MessageSpec{
		{Name: "done", Signature: "u"},
	},
}

// wl_compositor request opcodes
const (
	// Opcode 0: create_surface(id)
	CompositorRequestCreateSurface = 0
	// Opcode 1: create_region(id)
	CompositorRequestCreateRegion = 1
)

// Compositor is the wl_compositor interface.
var Compositor = &wire.Interface{
	Name:    CompositorInterfaceName,
	Version: 6,
	Requests: []wire.MessageSpec{
		{Name: "create_surface", Signature: "n"},
		{Name: "create_region", Signature: "n"},
	},
}

// wl_region request opcodes
const (
	RegionRequestDestroy = 0
)

// Region is the wl_region interface. Regions are accepted and ignored.
var Region = &wire.Interface{
	Name:    RegionInterfaceName,
	Version: 1,
	Requests: []wire.MessageSpec{
		{Name: "destroy", Destructor: true},
		{Name: "add", Signature: "iiii"},
		{Name: "subtract", Signature: "iiii"},
	},
}
