package compositor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/geom"
	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/scenario"
	"github.com/bnema/waycore/internal/serial"
	"github.com/bnema/waycore/internal/trace"
	"github.com/bnema/waycore/internal/xdg"
)

func menuPositioner() xdg.PositionerState {
	return xdg.PositionerState{
		RectSize:    geom.Size{W: 100, H: 50},
		AnchorRect:  geom.Rect(0, 0, 20, 10),
		AnchorEdges: xdg.AnchorBottomLeft,
		Gravity:     xdg.GravityBottomRight,
	}
}

func TestConnect(t *testing.T) {
	c := New(Options{})
	client, err := c.Connect("a", 0, 0, geom.Point{})
	require.NoError(t, err)

	assert.True(t, client.Alive())
	assert.Equal(t, uint32(9), client.Touch().Version())
	assert.Equal(t, 1, c.Seat().TouchHandle().KnownHandles())
	assert.Equal(t, []string{"capabilities(4)", `name("seat0")`}, client.Recorder().Calls(client.seat))

	_, err = c.Connect("", 0, 0, geom.Point{})
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Seat.Name = "touchscreen"
	cfg.Shell.XdgVersion = 3

	c := New(OptionsFromConfig(&cfg))
	assert.Equal(t, "touchscreen", c.Seat().Name())

	client, err := c.Connect("a", 0, 0, geom.Point{})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), client.wmBase.Version())
}

func TestTouchRouting(t *testing.T) {
	c := New(Options{})
	a, err := c.Connect("a", 0, 0, geom.Point{X: 10, Y: 20})
	require.NoError(t, err)
	b, err := c.Connect("b", 5, 0, geom.Point{})
	require.NoError(t, err)

	s := c.TouchDown(a, 0, 0, geom.Point{X: 15, Y: 22})
	assert.Equal(t, serial.Serial(1), s)
	c.TouchShape(0, 3, 1)
	c.TouchDown(b, 0, 1, geom.Point{X: 1, Y: 1})
	c.TouchShape(1, 3, 1)
	c.TouchCancel()

	assert.Equal(t, []string{
		"down(1, 0, 4, 0, 5, 2)", "frame()",
		"shape(0, 3, 1)", "frame()",
		"cancel()",
	}, a.Recorder().Calls(a.Touch()))
	assert.Equal(t, []string{
		"down(2, 0, 4, 1, 1, 1)", "frame()",
		"cancel()",
	}, b.Recorder().Calls(b.Touch()))
}

func TestPopupLifecycle(t *testing.T) {
	c := New(Options{})
	client, err := c.Connect("a", 0, 0, geom.Point{})
	require.NoError(t, err)

	require.NoError(t, client.CreatePopup("menu", "", menuPositioner()))
	popup, ok := client.Popup("menu")
	require.True(t, ok)
	p := client.popups["menu"]

	assert.Equal(t, []string{"configure(0, 10, 100, 50)"}, client.Recorder().Calls(p.popup))
	assert.Equal(t, []string{"configure(1)"}, client.Recorder().Calls(p.xdgSurface))
	assert.Equal(t, int64(1), c.Policy().Created())
	assert.Len(t, c.Shell().Popups(), 1)

	// The positioner was destroyed after get_popup.
	assert.Nil(t, client.Resource().Object(6))

	require.NoError(t, client.Reposition("menu", xdg.PositionerState{RectSize: geom.Size{W: 120, H: 60}}, 7))
	assert.Equal(t, []string{
		"configure(0, 10, 100, 50)",
		"repositioned(7)",
		"configure(-60, -30, 120, 60)",
	}, client.Recorder().Calls(p.popup))
	assert.Equal(t, []string{"configure(1)", "configure(2)"}, client.Recorder().Calls(p.xdgSurface))
	assert.Equal(t, geom.Rect(-60, -30, 120, 60), popup.State().Geometry)

	require.NoError(t, client.Ack("menu", 0))
	acked, ok := popup.XdgSurface().LastAcked()
	require.True(t, ok)
	assert.Equal(t, serial.Serial(2), acked)

	require.NoError(t, client.Grab("menu", 0))
	assert.Equal(t, int64(1), c.Policy().Grabs())

	require.NoError(t, client.DestroyPopup("menu"))
	assert.False(t, popup.Alive())
	assert.Empty(t, c.Shell().Popups())
	assert.Equal(t, int64(1), c.Policy().Destroyed())
	assert.True(t, client.Alive())

	_, ok = client.Popup("menu")
	assert.False(t, ok)
}

func TestNestedPopup(t *testing.T) {
	c := New(Options{})
	client, err := c.Connect("a", 0, 0, geom.Point{})
	require.NoError(t, err)

	require.NoError(t, client.CreatePopup("menu", "", menuPositioner()))
	require.NoError(t, client.CreatePopup("submenu", "menu", menuPositioner()))

	menu, _ := client.Popup("menu")
	submenu, ok := client.Popup("submenu")
	require.True(t, ok)
	assert.Same(t, menu.XdgSurface(), submenu.Parent())

	assert.Error(t, client.CreatePopup("orphan", "missing", menuPositioner()))
}

func TestDisconnectDestroysPopups(t *testing.T) {
	c := New(Options{})
	a, err := c.Connect("a", 0, 0, geom.Point{})
	require.NoError(t, err)
	b, err := c.Connect("b", 0, 0, geom.Point{})
	require.NoError(t, err)

	require.NoError(t, a.CreatePopup("menu", "", menuPositioner()))
	require.NoError(t, b.CreatePopup("menu", "", menuPositioner()))

	a.Disconnect()

	assert.Equal(t, int64(1), c.Policy().Destroyed())
	assert.Len(t, c.Shell().Popups(), 1)
	assert.Equal(t, 1, c.Seat().TouchHandle().KnownHandles())
	assert.True(t, b.Alive())
	assert.Nil(t, a.Error())
}

const isolationScenario = `
name = "isolation"

[[client]]
name = "good"
surface_offset = [100.0, 0.0]

[[client]]
name = "bad"

[[step]]
action = "touch_down"
client = "good"
x = 110.0
y = 5.0

[[step]]
action = "popup_create"
client = "good"
popup = "menu"
positioner = { size = [40, 40], anchor_rect = [0, 0, 10, 10], anchor = "bottom_right", gravity = "bottom_right" }

[[step]]
action = "popup_create"
client = "bad"
popup = "tooltip"
positioner = { size = [10, 10] }

[[step]]
action = "popup_ack"
popup = "tooltip"
serial = 999

[[step]]
action = "popup_grab"
popup = "tooltip"

[[step]]
action = "popup_ack"
popup = "menu"

[[step]]
action = "popup_done"
popup = "menu"

[[step]]
action = "touch_up"
time = 3
`

func TestRunScenario(t *testing.T) {
	sc, err := scenario.Parse(isolationScenario)
	require.NoError(t, err)

	var buf bytes.Buffer
	c := New(Options{Trace: &buf})
	result, err := c.Run(sc)
	require.NoError(t, err)

	assert.Equal(t, "isolation", result.Scenario)
	assert.Equal(t, int64(2), result.PopupsCreated)
	assert.Equal(t, int64(1), result.PopupsDestroyed)
	assert.Equal(t, 1, result.PopupsRemaining)
	assert.Equal(t, 2, result.FailedSteps)
	require.Len(t, result.Clients, 2)

	good, bad := result.Clients[0], result.Clients[1]
	assert.Equal(t, "good", good.Name)
	assert.Nil(t, good.Error)
	require.NotNil(t, bad.Error)
	assert.Equal(t, uint32(protocols.XdgSurfaceErrorInvalidSerial), bad.Error.Code)

	var goodCalls []string
	for _, rec := range good.Records {
		goodCalls = append(goodCalls, rec.String())
	}
	assert.Equal(t, []string{
		"wl_seat@2.capabilities(4)",
		`wl_seat@2.name("seat0")`,
		"wl_touch@3.down(1, 0, 4, 0, 10, 5)",
		"wl_touch@3.frame()",
		"xdg_popup@9.configure(10, 10, 40, 40)",
		"xdg_surface@8.configure(2)",
		"wl_display@1.delete_id(6)",
		"xdg_popup@9.popup_done()",
		"wl_touch@3.up(4, 3, 0)",
		"wl_touch@3.frame()",
	}, goodCalls)

	traced, err := trace.ReadAll(&buf)
	require.NoError(t, err)
	assert.Len(t, traced, len(good.Records)+len(bad.Records))
}

func TestRunUnknownReferences(t *testing.T) {
	c := New(Options{})
	_, err := c.Run(&scenario.Scenario{
		Steps: []scenario.Step{{Action: scenario.ActionTouchDown, Client: "ghost"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown client")
}
