// Package seat implements the wl_seat global and routes touch input to the
// clients owning the touched surfaces.
package seat

import (
	"fmt"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/wire"
)

// Seat is a named group of input devices. Only the touch capability is
// provided by this core.
type Seat struct {
	name  string
	touch *TouchHandle
}

// NewSeat creates a seat with a touch capability.
func NewSeat(name string) *Seat {
	return &Seat{
		name:  name,
		touch: NewTouchHandle(),
	}
}

// Name returns the seat name advertised to clients.
func (s *Seat) Name() string { return s.name }

// TouchHandle returns the touch router of this seat.
func (s *Seat) TouchHandle() *TouchHandle { return s.touch }

// Bind creates a wl_seat object for client, as a registry bind would, and
// sends the initial capabilities and name.
func (s *Seat) Bind(client *resource.Client, id, version uint32) (*resource.Object, error) {
	obj, err := client.CreateObject(id, protocols.Seat, version, s)
	if err != nil {
		return nil, fmt.Errorf("failed to bind seat %q: %w", s.name, err)
	}
	obj.SetHandler(s.handleRequest)

	obj.Send(protocols.SeatEventCapabilities, uint32(protocols.SeatCapabilityTouch))
	if version >= 2 {
		obj.Send(protocols.SeatEventName, s.name)
	}

	logger.Debug("Seat bound", "seat", s.name, "client", client.ID(), "version", version)
	return obj, nil
}

func (s *Seat) handleRequest(obj *resource.Object, msg *wire.Message) error {
	switch msg.Opcode {
	case protocols.SeatRequestGetTouch:
		id, err := msg.Reader().Uint32()
		if err != nil {
			return err
		}
		touchObj, err := obj.Client().CreateObject(id, protocols.Touch, obj.Version(), s)
		if err != nil {
			return resource.NewProtocolError(obj.Client().Display(), protocols.DisplayErrorInvalidObject, "get_touch: %v", err)
		}
		s.touch.NewTouch(touchObj)
		return nil

	case protocols.SeatRequestGetPointer, protocols.SeatRequestGetKeyboard:
		return resource.NewProtocolError(obj, protocols.SeatErrorMissingCapability,
			"seat %q has no pointer or keyboard", s.name)

	case protocols.SeatRequestRelease:
		return nil

	default:
		return resource.NewProtocolError(obj.Client().Display(), protocols.DisplayErrorInvalidMethod,
			"unknown wl_seat request %d", msg.Opcode)
	}
}
