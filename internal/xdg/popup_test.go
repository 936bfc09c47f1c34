package xdg

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waycore/internal/geom"
	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/serial"
)

func (f *fixture) events() []string {
	var out []string
	for _, rec := range f.recorder.Records() {
		out = append(out, rec.String())
	}
	return out
}

func TestSendConfigureOrdering(t *testing.T) {
	tests := []struct {
		name    string
		version uint32
		token   *uint32
		want    func(s serial.Serial) []string
	}{
		{
			name:    "plain configure",
			version: 6,
			want: func(s serial.Serial) []string {
				return []string{
					"xdg_popup@5.configure(10, 30, 100, 50)",
					fmt.Sprintf("xdg_surface@4.configure(%d)", s),
				}
			},
		},
		{
			name:    "reposition reply",
			version: 6,
			token:   ptr(uint32(7)),
			want: func(s serial.Serial) []string {
				return []string{
					"xdg_popup@5.repositioned(7)",
					"xdg_popup@5.configure(10, 30, 100, 50)",
					fmt.Sprintf("xdg_surface@4.configure(%d)", s),
				}
			},
		},
		{
			name:    "token dropped before version 3",
			version: 2,
			token:   ptr(uint32(7)),
			want: func(s serial.Serial) []string {
				return []string{
					"xdg_popup@5.configure(10, 30, 100, 50)",
					fmt.Sprintf("xdg_surface@4.configure(%d)", s),
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.version)
			popup := f.newPopup(t)
			f.recorder.Reset()

			configure := PopupConfigure{State: popup.State(), Serial: 77, RepositionToken: tt.token}
			SendConfigure(popup.ShellSurface(), configure)

			assert.Equal(t, tt.want(77), f.events())
			assert.True(t, f.surface.Configured())
			assert.Equal(t, []serial.Serial{77}, f.surface.PendingConfigures())

			last, ok := popup.LastConfigure()
			require.True(t, ok)
			assert.Equal(t, serial.Serial(77), last.Serial)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestPopupSendPendingConfigure(t *testing.T) {
	f := newFixture(t, 6)
	popup := f.newPopup(t)
	f.recorder.Reset()

	_, ok := popup.LastConfigure()
	assert.False(t, ok)

	popup.WithPendingState(func(state *PopupState) {
		state.Geometry = geom.Rect(1, 2, 3, 4)
	})
	first, err := popup.SendPendingConfigure()
	require.NoError(t, err)
	second, err := popup.SendRepositioned(9)
	require.NoError(t, err)

	assert.True(t, second.IsNoOlderThan(first))
	assert.NotEqual(t, first, second)
	assert.Equal(t, []string{
		"xdg_popup@5.configure(1, 2, 3, 4)",
		fmt.Sprintf("xdg_surface@4.configure(%d)", first),
		"xdg_popup@5.repositioned(9)",
		"xdg_popup@5.configure(1, 2, 3, 4)",
		fmt.Sprintf("xdg_surface@4.configure(%d)", second),
	}, f.events())
	assert.Equal(t, second, f.shell.Serials().Last())
}

func TestAckConfigure(t *testing.T) {
	t.Run("acks pending serial and drops older ones", func(t *testing.T) {
		f := newFixture(t, 6)
		popup := f.newPopup(t)

		first, err := popup.SendPendingConfigure()
		require.NoError(t, err)
		second, err := popup.SendPendingConfigure()
		require.NoError(t, err)

		require.NoError(t, f.client.Dispatch(request(f.surface.Object(), protocols.XdgSurfaceRequestAckConfigure, uint32(second))))
		acked, ok := f.surface.LastAcked()
		require.True(t, ok)
		assert.Equal(t, second, acked)
		assert.Empty(t, f.surface.PendingConfigures())

		assert.ErrorIs(t, f.surface.AckConfigure(first), ErrInvalidSerial)
	})

	t.Run("unknown serial is fatal", func(t *testing.T) {
		f := newFixture(t, 6)
		f.newPopup(t)

		require.Error(t, f.client.Dispatch(request(f.surface.Object(), protocols.XdgSurfaceRequestAckConfigure, uint32(1234))))
		perr := f.client.Error()
		require.NotNil(t, perr)
		assert.Equal(t, uint32(protocols.XdgSurfaceErrorInvalidSerial), perr.Code)
		assert.False(t, f.client.Alive())
	})
}

func TestSetWindowGeometry(t *testing.T) {
	f := newFixture(t, 6)

	require.NoError(t, f.client.Dispatch(request(f.surface.Object(), protocols.XdgSurfaceRequestSetWindowGeometry,
		int32(5), int32(6), int32(300), int32(200))))
	assert.Equal(t, geom.Rect(5, 6, 300, 200), f.surface.WindowGeometry())

	require.Error(t, f.client.Dispatch(request(f.surface.Object(), protocols.XdgSurfaceRequestSetWindowGeometry,
		int32(0), int32(0), int32(0), int32(10))))
	perr := f.client.Error()
	require.NotNil(t, perr)
	assert.Equal(t, uint32(protocols.XdgSurfaceErrorInvalidSize), perr.Code)
}

func TestPopupDoneAndDeadPopup(t *testing.T) {
	f := newFixture(t, 6)
	popup := f.newPopup(t)
	f.recorder.Reset()

	popup.SendPopupDone()
	assert.Equal(t, []string{"xdg_popup@5.popup_done()"}, f.events())

	f.client.Destroy(popup.ShellSurface())
	f.recorder.Reset()

	_, err := popup.SendPendingConfigure()
	assert.ErrorIs(t, err, ErrObjectDead)
	popup.SendPopupDone()
	assert.Empty(t, f.events())
}
