// Package compositor wires the seat and the xdg shell into a minimal
// compositor. It drives in-process clients to replay scenarios and accepts
// clients from a transport through wl_registry.
package compositor

import (
	"fmt"
	"io"
	"sync"

	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/geom"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/seat"
	"github.com/bnema/waycore/internal/serial"
	"github.com/bnema/waycore/internal/xdg"
)

// Options configure a Compositor.
type Options struct {
	SeatName         string
	TouchVersion     uint32
	XdgVersion       uint32
	PopupGrabLogging bool
	// Trace receives every event sent to any client, as framed trace
	// records. Nil disables tracing.
	Trace io.Writer
}

// OptionsFromConfig builds options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SeatName:         cfg.Seat.Name,
		TouchVersion:     cfg.Seat.TouchVersion,
		XdgVersion:       cfg.Shell.XdgVersion,
		PopupGrabLogging: cfg.Shell.PopupGrabLogging,
	}
}

// Compositor owns the serial counter, one seat and the shell.
type Compositor struct {
	opts    Options
	serials *serial.Counter
	seat    *seat.Seat
	shell   *xdg.ShellState
	policy  *Policy
	globals []global

	mu      sync.Mutex
	clients []*Client
}

// New creates a compositor. Zero versions default to the newest supported.
func New(opts Options) *Compositor {
	def := config.DefaultConfig
	if opts.SeatName == "" {
		opts.SeatName = def.Seat.Name
	}
	if opts.TouchVersion == 0 {
		opts.TouchVersion = def.Seat.TouchVersion
	}
	if opts.XdgVersion == 0 {
		opts.XdgVersion = def.Shell.XdgVersion
	}

	serials := serial.NewCounter()
	policy := NewPolicy(opts.PopupGrabLogging)
	c := &Compositor{
		opts:    opts,
		serials: serials,
		seat:    seat.NewSeat(opts.SeatName),
		shell:   xdg.NewShellState(policy, serials),
		policy:  policy,
	}
	c.globals = c.newGlobals()
	return c
}

// Seat returns the compositor's seat.
func (c *Compositor) Seat() *seat.Seat { return c.seat }

// Shell returns the compositor's xdg shell.
func (c *Compositor) Shell() *xdg.ShellState { return c.shell }

// Policy returns the shell policy handler.
func (c *Compositor) Policy() *Policy { return c.policy }

// Serials returns the serial counter shared by input and configures.
func (c *Compositor) Serials() *serial.Counter { return c.serials }

// Clients returns the connected and disconnected clients in connection order.
func (c *Compositor) Clients() []*Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Client(nil), c.clients...)
}

// Connect creates a client with a surface at offset. The client binds the
// seat, asks for a wl_touch and binds xdg_wm_base. Zero versions use the
// compositor options.
func (c *Compositor) Connect(name string, touchVersion, xdgVersion uint32, offset geom.Point) (*Client, error) {
	if touchVersion == 0 {
		touchVersion = c.opts.TouchVersion
	}
	if xdgVersion == 0 {
		xdgVersion = c.opts.XdgVersion
	}

	client, err := newClient(c, name, offset)
	if err != nil {
		return nil, err
	}
	if err := client.setup(touchVersion, xdgVersion); err != nil {
		return nil, fmt.Errorf("failed to set up client %q: %w", name, err)
	}

	c.mu.Lock()
	c.clients = append(c.clients, client)
	c.mu.Unlock()

	logger.Debug("Client connected", "name", name, "touch_version", touchVersion, "xdg_version", xdgVersion)
	return client, nil
}

// TouchDown starts a contact on client's surface at the global location.
func (c *Compositor) TouchDown(client *Client, time uint32, slot seat.TouchSlot, location geom.Point) serial.Serial {
	s := c.serials.Next()
	c.seat.TouchHandle().Down(s, time, client.surface, client.offset, slot, location)
	return s
}

// TouchUp ends a contact.
func (c *Compositor) TouchUp(time uint32, slot seat.TouchSlot) serial.Serial {
	s := c.serials.Next()
	c.seat.TouchHandle().Up(s, time, slot)
	return s
}

// TouchMotion moves a contact to the global location.
func (c *Compositor) TouchMotion(time uint32, slot seat.TouchSlot, location geom.Point) {
	c.seat.TouchHandle().Motion(time, slot, location)
}

// TouchShape updates a contact's ellipse.
func (c *Compositor) TouchShape(slot seat.TouchSlot, major, minor float64) {
	c.seat.TouchHandle().Shape(slot, major, minor)
}

// TouchOrientation updates a contact's angle.
func (c *Compositor) TouchOrientation(slot seat.TouchSlot, orientation float64) {
	c.seat.TouchHandle().Orientation(slot, orientation)
}

// TouchCancel takes the current touch sequence away from all clients.
func (c *Compositor) TouchCancel() {
	c.seat.TouchHandle().Cancel()
}
