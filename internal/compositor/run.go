package compositor

import (
	"errors"
	"fmt"

	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/scenario"
	"github.com/bnema/waycore/internal/seat"
	"github.com/bnema/waycore/internal/serial"
	"github.com/bnema/waycore/internal/trace"
)

// ClientResult is what one client saw during a scenario.
type ClientResult struct {
	Name    string
	Records []trace.Record
	// Error is the protocol error that disconnected the client, if any.
	Error *resource.ProtocolError
}

// Result is the outcome of a scenario run.
type Result struct {
	Scenario        string
	Clients         []ClientResult
	PopupsCreated   int64
	PopupsDestroyed int64
	PopupsRemaining int
	FailedSteps     int
}

// Run connects the scenario's clients and replays its steps in order.
// Steps that make a client commit a protocol error do not stop the run; the
// error is part of that client's result.
func (c *Compositor) Run(sc *scenario.Scenario) (*Result, error) {
	clients := make(map[string]*Client, len(sc.Clients))
	for _, desc := range sc.Clients {
		client, err := c.Connect(desc.Name, desc.TouchVersion, desc.XdgVersion, desc.Offset())
		if err != nil {
			return nil, err
		}
		clients[desc.Name] = client
	}

	r := &runner{comp: c, clients: clients, owners: make(map[string]*Client)}
	failed := 0
	for i, step := range sc.Steps {
		err := r.step(step)
		if err == nil {
			continue
		}
		var perr *resource.ProtocolError
		if errors.As(err, &perr) || errors.Is(err, resource.ErrClientDead) {
			logger.Warn("Scenario step failed", "step", i+1, "action", step.Action, "error", err)
			failed++
			continue
		}
		return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
	}

	result := &Result{
		Scenario:        sc.Name,
		PopupsCreated:   c.policy.Created(),
		PopupsDestroyed: c.policy.Destroyed(),
		PopupsRemaining: len(c.shell.Popups()),
		FailedSteps:     failed,
	}
	for _, client := range c.Clients() {
		result.Clients = append(result.Clients, ClientResult{
			Name:    client.Name(),
			Records: client.Records(),
			Error:   client.Error(),
		})
	}
	return result, nil
}

type runner struct {
	comp    *Compositor
	clients map[string]*Client
	owners  map[string]*Client
}

func (r *runner) client(name string) (*Client, error) {
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("unknown client %q", name)
	}
	return client, nil
}

func (r *runner) owner(popup string) (*Client, error) {
	client, ok := r.owners[popup]
	if !ok {
		return nil, fmt.Errorf("unknown popup %q", popup)
	}
	return client, nil
}

func (r *runner) step(step scenario.Step) error {
	c := r.comp
	slot := seat.TouchSlot(step.Slot)

	switch step.Action {
	case scenario.ActionTouchDown:
		client, err := r.client(step.Client)
		if err != nil {
			return err
		}
		c.TouchDown(client, step.Time, slot, step.Location())
	case scenario.ActionTouchUp:
		c.TouchUp(step.Time, slot)
	case scenario.ActionTouchMotion:
		c.TouchMotion(step.Time, slot, step.Location())
	case scenario.ActionTouchShape:
		c.TouchShape(slot, step.Major, step.Minor)
	case scenario.ActionTouchOrientation:
		c.TouchOrientation(slot, step.Orientation)
	case scenario.ActionTouchCancel:
		c.TouchCancel()

	case scenario.ActionPopupCreate:
		client, err := r.client(step.Client)
		if err != nil {
			return err
		}
		state, err := step.Positioner.State()
		if err != nil {
			return err
		}
		r.owners[step.Popup] = client
		return client.CreatePopup(step.Popup, step.Parent, state)
	case scenario.ActionPopupReposition:
		client, err := r.owner(step.Popup)
		if err != nil {
			return err
		}
		state, err := step.Positioner.State()
		if err != nil {
			return err
		}
		return client.Reposition(step.Popup, state, step.Token)
	case scenario.ActionPopupGrab:
		client, err := r.owner(step.Popup)
		if err != nil {
			return err
		}
		return client.Grab(step.Popup, serial.Serial(step.Serial))
	case scenario.ActionPopupAck:
		client, err := r.owner(step.Popup)
		if err != nil {
			return err
		}
		return client.Ack(step.Popup, serial.Serial(step.Serial))
	case scenario.ActionPopupDone:
		client, err := r.owner(step.Popup)
		if err != nil {
			return err
		}
		if popup, ok := client.Popup(step.Popup); ok {
			popup.SendPopupDone()
		}
	case scenario.ActionPopupDestroy:
		client, err := r.owner(step.Popup)
		if err != nil {
			return err
		}
		return client.DestroyPopup(step.Popup)
	case scenario.ActionDisconnect:
		client, err := r.client(step.Client)
		if err != nil {
			return err
		}
		client.Disconnect()

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}
