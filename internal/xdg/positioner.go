package xdg

import (
	"sync"

	"github.com/bnema/waycore/internal/geom"
	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/serial"
	"github.com/bnema/waycore/internal/wire"
)

// Anchor selects the point of the anchor rectangle a popup is attached to.
type Anchor uint32

const (
	AnchorNone Anchor = iota
	AnchorTop
	AnchorBottom
	AnchorLeft
	AnchorRight
	AnchorTopLeft
	AnchorBottomLeft
	AnchorTopRight
	AnchorBottomRight
)

// Gravity selects the direction a popup extends from its anchor point.
type Gravity uint32

const (
	GravityNone Gravity = iota
	GravityTop
	GravityBottom
	GravityLeft
	GravityRight
	GravityTopLeft
	GravityBottomLeft
	GravityTopRight
	GravityBottomRight
)

// ConstraintAdjustment is a bit set of the ways a popup may be moved to stay
// within the output.
type ConstraintAdjustment uint32

const (
	ConstraintAdjustmentNone    ConstraintAdjustment = 0
	ConstraintAdjustmentSlideX  ConstraintAdjustment = 1
	ConstraintAdjustmentSlideY  ConstraintAdjustment = 2
	ConstraintAdjustmentFlipX   ConstraintAdjustment = 4
	ConstraintAdjustmentFlipY   ConstraintAdjustment = 8
	ConstraintAdjustmentResizeX ConstraintAdjustment = 16
	ConstraintAdjustmentResizeY ConstraintAdjustment = 32

	constraintAdjustmentAll ConstraintAdjustment = 63
)

// edges is shared by Anchor and Gravity, which use the same value layout.
type edges uint32

func (e edges) left() bool {
	return e == edges(AnchorLeft) || e == edges(AnchorTopLeft) || e == edges(AnchorBottomLeft)
}

func (e edges) right() bool {
	return e == edges(AnchorRight) || e == edges(AnchorTopRight) || e == edges(AnchorBottomRight)
}

func (e edges) top() bool {
	return e == edges(AnchorTop) || e == edges(AnchorTopLeft) || e == edges(AnchorTopRight)
}

func (e edges) bottom() bool {
	return e == edges(AnchorBottom) || e == edges(AnchorBottomLeft) || e == edges(AnchorBottomRight)
}

// PositionerState is a value copy of the parameters of an xdg_positioner.
type PositionerState struct {
	RectSize             geom.Size
	AnchorRect           geom.Rectangle
	AnchorEdges          Anchor
	Gravity              Gravity
	ConstraintAdjustment ConstraintAdjustment
	Offset               geom.IPoint
	Reactive             bool

	ParentSize         geom.Size
	HasParentSize      bool
	ParentConfigure    serial.Serial
	HasParentConfigure bool
}

// IsComplete reports whether the positioner carries a usable size.
func (p PositionerState) IsComplete() bool {
	return !p.RectSize.IsEmpty()
}

// AnchorPoint returns the point of the anchor rectangle selected by the
// anchor edges, relative to the parent's window geometry.
func (p PositionerState) AnchorPoint() geom.IPoint {
	r := p.AnchorRect
	e := edges(p.AnchorEdges)

	pt := geom.IPoint{X: r.Loc.X + r.Size.W/2, Y: r.Loc.Y + r.Size.H/2}
	if e.left() {
		pt.X = r.Loc.X
	} else if e.right() {
		pt.X = r.Loc.X + r.Size.W
	}
	if e.top() {
		pt.Y = r.Loc.Y
	} else if e.bottom() {
		pt.Y = r.Loc.Y + r.Size.H
	}
	return pt
}

// Geometry returns the popup rectangle, relative to the parent, that the
// positioner asks for before any constraint adjustment.
func (p PositionerState) Geometry() geom.Rectangle {
	geo := geom.Rectangle{
		Loc:  p.Offset.Add(p.AnchorPoint()),
		Size: p.RectSize,
	}

	g := edges(p.Gravity)
	if g.left() {
		geo.Loc.X -= geo.Size.W
	} else if !g.right() {
		geo.Loc.X -= geo.Size.W / 2
	}
	if g.top() {
		geo.Loc.Y -= geo.Size.H
	} else if !g.bottom() {
		geo.Loc.Y -= geo.Size.H / 2
	}
	return geo
}

// Positioner is a client's xdg_positioner. Popups never hold on to it; they
// take a Snapshot when they are created or repositioned.
type Positioner struct {
	obj *resource.Object

	mu    sync.Mutex
	state PositionerState
}

// PositionerFromObject returns the positioner behind an xdg_positioner object.
func PositionerFromObject(obj *resource.Object) (*Positioner, bool) {
	if obj == nil {
		return nil, false
	}
	p, ok := obj.Data().(*Positioner)
	return p, ok
}

// Object returns the xdg_positioner protocol object.
func (p *Positioner) Object() *resource.Object { return p.obj }

// Snapshot returns a copy of the current parameters.
func (p *Positioner) Snapshot() PositionerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Positioner) handleRequest(obj *resource.Object, msg *wire.Message) error {
	req, _ := obj.Interface().Request(msg.Opcode)
	args, err := msg.Decode(req.Signature)
	if err != nil {
		return resource.NewProtocolError(obj, protocols.PositionerErrorInvalidInput, "%s: %v", req.Name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch msg.Opcode {
	case protocols.PositionerRequestDestroy:
	case protocols.PositionerRequestSetSize:
		w, h := args[0].(int32), args[1].(int32)
		if w <= 0 || h <= 0 {
			return resource.NewProtocolError(obj, protocols.PositionerErrorInvalidInput, "invalid size %dx%d", w, h)
		}
		p.state.RectSize = geom.Size{W: w, H: h}
	case protocols.PositionerRequestSetAnchorRect:
		x, y, w, h := args[0].(int32), args[1].(int32), args[2].(int32), args[3].(int32)
		if w < 0 || h < 0 {
			return resource.NewProtocolError(obj, protocols.PositionerErrorInvalidInput, "invalid anchor rect size %dx%d", w, h)
		}
		p.state.AnchorRect = geom.Rect(x, y, w, h)
	case protocols.PositionerRequestSetAnchor:
		a := Anchor(args[0].(uint32))
		if a > AnchorBottomRight {
			return resource.NewProtocolError(obj, protocols.PositionerErrorInvalidInput, "invalid anchor %d", a)
		}
		p.state.AnchorEdges = a
	case protocols.PositionerRequestSetGravity:
		g := Gravity(args[0].(uint32))
		if g > GravityBottomRight {
			return resource.NewProtocolError(obj, protocols.PositionerErrorInvalidInput, "invalid gravity %d", g)
		}
		p.state.Gravity = g
	case protocols.PositionerRequestSetConstraintAdjustment:
		p.state.ConstraintAdjustment = ConstraintAdjustment(args[0].(uint32)) & constraintAdjustmentAll
	case protocols.PositionerRequestSetOffset:
		p.state.Offset = geom.IPoint{X: args[0].(int32), Y: args[1].(int32)}
	case protocols.PositionerRequestSetReactive:
		p.state.Reactive = true
	case protocols.PositionerRequestSetParentSize:
		p.state.ParentSize = geom.Size{W: args[0].(int32), H: args[1].(int32)}
		p.state.HasParentSize = true
	case protocols.PositionerRequestSetParentConfigure:
		p.state.ParentConfigure = serial.Serial(args[0].(uint32))
		p.state.HasParentConfigure = true
	default:
		return resource.NewProtocolError(obj.Client().Display(), protocols.DisplayErrorInvalidMethod,
			"unexpected xdg_positioner request %d", msg.Opcode)
	}
	return nil
}
