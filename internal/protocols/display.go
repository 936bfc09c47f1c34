// Package protocols holds the server-side interface tables of the protocols
// the core speaks, indexed by opcode.
package protocols

import "github.com/bnema/waycore/internal/wire"

// Protocol interface names
const (
	DisplayInterfaceName = "wl_display"
)

// wl_display error codes
const (
	DisplayErrorInvalidObject  = 0
	DisplayErrorInvalidMethod  = 1
	DisplayErrorNoMemory       = 2
	DisplayErrorImplementation = 3
)

// wl_display event opcodes
const (
	// Opcode 0: error(object_id, code, message)
	DisplayEventError = 0
	// Opcode 1: delete_id(id)
	DisplayEventDeleteID = 1
)

// Display is the wl_display interface. Every client owns one at id 1.
var Display = &wire.Interface{
	Name:    DisplayInterfaceName,
	Version: 1,
	Requests: []wire.MessageSpec{
		{Name: "sync", Signature: "n"},
		{Name: "get_registry", Signature: "n"},
	},
	Events: []wire.MessageSpec{
		{Name: "error", Signature: "ous"},
		{Name: "delete_id", Signature: "u"},
	},
}
