package xdg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waycore/internal/geom"
	"github.com/bnema/waycore/internal/protocols"
)

func TestPositionerGeometry(t *testing.T) {
	base := PositionerState{
		RectSize:   geom.Size{W: 100, H: 50},
		AnchorRect: geom.Rect(10, 10, 20, 20),
	}

	tests := []struct {
		name    string
		anchor  Anchor
		gravity Gravity
		offset  geom.IPoint
		want    geom.Rectangle
	}{
		{"centered", AnchorNone, GravityNone, geom.IPoint{}, geom.Rect(-30, -5, 100, 50)},
		{"below right", AnchorBottomRight, GravityBottomRight, geom.IPoint{}, geom.Rect(30, 30, 100, 50)},
		{"above left", AnchorTopLeft, GravityTopLeft, geom.IPoint{}, geom.Rect(-90, -40, 100, 50)},
		{"right edge", AnchorRight, GravityRight, geom.IPoint{}, geom.Rect(30, -5, 100, 50)},
		{"bottom with offset", AnchorBottom, GravityBottom, geom.IPoint{X: 3, Y: -4}, geom.Rect(-27, 26, 100, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.AnchorEdges = tt.anchor
			p.Gravity = tt.gravity
			p.Offset = tt.offset
			assert.Equal(t, tt.want, p.Geometry())
		})
	}
}

func TestPositionerRequests(t *testing.T) {
	t.Run("updates state", func(t *testing.T) {
		f := newFixture(t, 6)
		p, err := f.shell.NewPositioner(f.wmBase, 10)
		require.NoError(t, err)
		assert.False(t, p.Snapshot().IsComplete())

		obj := p.Object()
		for _, msg := range [][]any{
			{protocols.PositionerRequestSetSize, int32(100), int32(50)},
			{protocols.PositionerRequestSetAnchorRect, int32(1), int32(2), int32(3), int32(4)},
			{protocols.PositionerRequestSetAnchor, uint32(AnchorTopRight)},
			{protocols.PositionerRequestSetGravity, uint32(GravityBottomLeft)},
			{protocols.PositionerRequestSetConstraintAdjustment, uint32(0xff)},
			{protocols.PositionerRequestSetOffset, int32(-1), int32(1)},
			{protocols.PositionerRequestSetReactive},
			{protocols.PositionerRequestSetParentSize, int32(800), int32(600)},
			{protocols.PositionerRequestSetParentConfigure, uint32(12)},
		} {
			require.NoError(t, f.client.Dispatch(request(obj, uint16(msg[0].(int)), msg[1:]...)))
		}

		got := p.Snapshot()
		assert.True(t, got.IsComplete())
		assert.Equal(t, PositionerState{
			RectSize:             geom.Size{W: 100, H: 50},
			AnchorRect:           geom.Rect(1, 2, 3, 4),
			AnchorEdges:          AnchorTopRight,
			Gravity:              GravityBottomLeft,
			ConstraintAdjustment: constraintAdjustmentAll,
			Offset:               geom.IPoint{X: -1, Y: 1},
			Reactive:             true,
			ParentSize:           geom.Size{W: 800, H: 600},
			HasParentSize:        true,
			ParentConfigure:      12,
			HasParentConfigure:   true,
		}, got)
	})

	invalid := []struct {
		name   string
		opcode uint16
		args   []any
	}{
		{"zero size", protocols.PositionerRequestSetSize, []any{int32(0), int32(10)}},
		{"negative anchor rect", protocols.PositionerRequestSetAnchorRect, []any{int32(0), int32(0), int32(-1), int32(1)}},
		{"bad anchor", protocols.PositionerRequestSetAnchor, []any{uint32(9)}},
		{"bad gravity", protocols.PositionerRequestSetGravity, []any{uint32(42)}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 6)
			p, err := f.shell.NewPositioner(f.wmBase, 10)
			require.NoError(t, err)

			require.Error(t, f.client.Dispatch(request(p.Object(), tt.opcode, tt.args...)))
			perr := f.client.Error()
			require.NotNil(t, perr)
			assert.Equal(t, protocols.PositionerInterfaceName, perr.Interface)
			assert.Equal(t, uint32(protocols.PositionerErrorInvalidInput), perr.Code)
		})
	}
}
