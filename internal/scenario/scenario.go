// Package scenario loads TOML descriptions of client sessions: which clients
// connect, and the touch and popup steps the compositor replays for them.
package scenario

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/bnema/waycore/internal/geom"
	"github.com/bnema/waycore/internal/xdg"
)

// Action names one kind of step.
type Action string

const (
	ActionTouchDown        Action = "touch_down"
	ActionTouchUp          Action = "touch_up"
	ActionTouchMotion      Action = "touch_motion"
	ActionTouchShape       Action = "touch_shape"
	ActionTouchOrientation Action = "touch_orientation"
	ActionTouchCancel      Action = "touch_cancel"
	ActionPopupCreate      Action = "popup_create"
	ActionPopupReposition  Action = "popup_reposition"
	ActionPopupGrab        Action = "popup_grab"
	ActionPopupAck         Action = "popup_ack"
	ActionPopupDone        Action = "popup_done"
	ActionPopupDestroy     Action = "popup_destroy"
	ActionDisconnect       Action = "disconnect"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid scenario")

// Scenario is a decoded scenario file.
type Scenario struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Clients     []Client `toml:"client"`
	Steps       []Step   `toml:"step"`
}

// Client is one connection of the scenario. Zero versions use the
// compositor defaults.
type Client struct {
	Name          string    `toml:"name"`
	TouchVersion  uint32    `toml:"touch_version"`
	XdgVersion    uint32    `toml:"xdg_version"`
	SurfaceOffset []float64 `toml:"surface_offset"`
}

// Offset returns the global position of the client's surface.
func (c Client) Offset() geom.Point {
	if len(c.SurfaceOffset) != 2 {
		return geom.Point{}
	}
	return geom.Point{X: c.SurfaceOffset[0], Y: c.SurfaceOffset[1]}
}

// Step is one action. Which fields matter depends on Action.
type Step struct {
	Action Action `toml:"action"`
	Client string `toml:"client"`
	Popup  string `toml:"popup"`
	Parent string `toml:"parent"`

	Slot        int32   `toml:"slot"`
	Time        uint32  `toml:"time"`
	X           float64 `toml:"x"`
	Y           float64 `toml:"y"`
	Major       float64 `toml:"major"`
	Minor       float64 `toml:"minor"`
	Orientation float64 `toml:"orientation"`

	// Serial is acknowledged or used for a grab. Zero picks the most
	// recent one the client received.
	Serial uint32 `toml:"serial"`
	Token  uint32 `toml:"token"`

	Positioner *Positioner `toml:"positioner"`
}

// Location returns the global touch position of the step.
func (s Step) Location() geom.Point {
	return geom.Point{X: s.X, Y: s.Y}
}

// Positioner describes an xdg_positioner in a scenario file.
type Positioner struct {
	Size                 []int32  `toml:"size"`
	AnchorRect           []int32  `toml:"anchor_rect"`
	Anchor               string   `toml:"anchor"`
	Gravity              string   `toml:"gravity"`
	Offset               []int32  `toml:"offset"`
	ConstraintAdjustment []string `toml:"constraint_adjustment"`
	Reactive             bool     `toml:"reactive"`
}

var edgeNames = map[string]uint32{
	"":             0,
	"none":         0,
	"top":          1,
	"bottom":       2,
	"left":         3,
	"right":        4,
	"top_left":     5,
	"bottom_left":  6,
	"top_right":    7,
	"bottom_right": 8,
}

var adjustmentNames = map[string]xdg.ConstraintAdjustment{
	"none":     xdg.ConstraintAdjustmentNone,
	"slide_x":  xdg.ConstraintAdjustmentSlideX,
	"slide_y":  xdg.ConstraintAdjustmentSlideY,
	"flip_x":   xdg.ConstraintAdjustmentFlipX,
	"flip_y":   xdg.ConstraintAdjustmentFlipY,
	"resize_x": xdg.ConstraintAdjustmentResizeX,
	"resize_y": xdg.ConstraintAdjustmentResizeY,
}

// State converts the description to positioner parameters.
func (p *Positioner) State() (xdg.PositionerState, error) {
	var state xdg.PositionerState

	if len(p.Size) != 2 || p.Size[0] <= 0 || p.Size[1] <= 0 {
		return state, fmt.Errorf("%w: positioner size must be two positive integers", ErrInvalid)
	}
	state.RectSize = geom.Size{W: p.Size[0], H: p.Size[1]}

	switch len(p.AnchorRect) {
	case 0:
	case 4:
		if p.AnchorRect[2] < 0 || p.AnchorRect[3] < 0 {
			return state, fmt.Errorf("%w: negative anchor_rect size", ErrInvalid)
		}
		state.AnchorRect = geom.Rect(p.AnchorRect[0], p.AnchorRect[1], p.AnchorRect[2], p.AnchorRect[3])
	default:
		return state, fmt.Errorf("%w: anchor_rect must be [x, y, width, height]", ErrInvalid)
	}

	anchor, ok := edgeNames[p.Anchor]
	if !ok {
		return state, fmt.Errorf("%w: unknown anchor %q", ErrInvalid, p.Anchor)
	}
	state.AnchorEdges = xdg.Anchor(anchor)

	gravity, ok := edgeNames[p.Gravity]
	if !ok {
		return state, fmt.Errorf("%w: unknown gravity %q", ErrInvalid, p.Gravity)
	}
	state.Gravity = xdg.Gravity(gravity)

	switch len(p.Offset) {
	case 0:
	case 2:
		state.Offset = geom.IPoint{X: p.Offset[0], Y: p.Offset[1]}
	default:
		return state, fmt.Errorf("%w: offset must be [x, y]", ErrInvalid)
	}

	for _, name := range p.ConstraintAdjustment {
		adj, ok := adjustmentNames[name]
		if !ok {
			return state, fmt.Errorf("%w: unknown constraint adjustment %q", ErrInvalid, name)
		}
		state.ConstraintAdjustment |= adj
	}
	state.Reactive = p.Reactive

	return state, nil
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	var sc Scenario
	md, err := toml.DecodeFile(path, &sc)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Parse decodes and validates a scenario from TOML text.
func Parse(data string) (*Scenario, error) {
	var sc Scenario
	md, err := toml.Decode(data, &sc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	sort.Strings(names)
	return fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(names, ", "))
}

// Validate checks that every step names known clients and popups, and that
// popups are created before they are used.
func (sc *Scenario) Validate() error {
	clients := make(map[string]bool, len(sc.Clients))
	for i, c := range sc.Clients {
		if c.Name == "" {
			return fmt.Errorf("%w: client %d has no name", ErrInvalid, i)
		}
		if clients[c.Name] {
			return fmt.Errorf("%w: duplicate client %q", ErrInvalid, c.Name)
		}
		if len(c.SurfaceOffset) != 0 && len(c.SurfaceOffset) != 2 {
			return fmt.Errorf("%w: client %q surface_offset must be [x, y]", ErrInvalid, c.Name)
		}
		clients[c.Name] = true
	}

	popups := make(map[string]string)
	for i, step := range sc.Steps {
		if err := sc.validateStep(step, clients, popups); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
	}
	return nil
}

func (sc *Scenario) validateStep(step Step, clients map[string]bool, popups map[string]string) error {
	needClient := func() error {
		if !clients[step.Client] {
			return fmt.Errorf("%w: unknown client %q", ErrInvalid, step.Client)
		}
		return nil
	}
	needPopup := func() error {
		if _, ok := popups[step.Popup]; !ok {
			return fmt.Errorf("%w: unknown popup %q", ErrInvalid, step.Popup)
		}
		return nil
	}
	needPositioner := func() error {
		if step.Positioner == nil {
			return fmt.Errorf("%w: missing positioner", ErrInvalid)
		}
		_, err := step.Positioner.State()
		return err
	}

	switch step.Action {
	case ActionTouchDown, ActionDisconnect:
		return needClient()
	case ActionTouchUp, ActionTouchMotion, ActionTouchShape, ActionTouchOrientation, ActionTouchCancel:
		return nil
	case ActionPopupCreate:
		if err := needClient(); err != nil {
			return err
		}
		if step.Popup == "" {
			return fmt.Errorf("%w: popup needs a name", ErrInvalid)
		}
		if _, ok := popups[step.Popup]; ok {
			return fmt.Errorf("%w: duplicate popup %q", ErrInvalid, step.Popup)
		}
		if step.Parent != "" {
			owner, ok := popups[step.Parent]
			if !ok {
				return fmt.Errorf("%w: unknown parent popup %q", ErrInvalid, step.Parent)
			}
			if owner != step.Client {
				return fmt.Errorf("%w: parent popup %q belongs to client %q", ErrInvalid, step.Parent, owner)
			}
		}
		if err := needPositioner(); err != nil {
			return err
		}
		popups[step.Popup] = step.Client
		return nil
	case ActionPopupReposition:
		if err := needPopup(); err != nil {
			return err
		}
		return needPositioner()
	case ActionPopupGrab, ActionPopupAck, ActionPopupDone, ActionPopupDestroy:
		return needPopup()
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalid, step.Action)
	}
}
