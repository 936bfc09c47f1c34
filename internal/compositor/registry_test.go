package compositor

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/trace"
	"github.com/bnema/waycore/internal/wire"
)

func send(t *testing.T, client *resource.Client, sender uint32, opcode uint16, args ...any) error {
	t.Helper()
	msg := wire.NewMessage(sender, opcode)
	for _, arg := range args {
		require.NoError(t, msg.Write(arg))
	}
	return client.Dispatch(msg)
}

func TestAcceptRegistry(t *testing.T) {
	c := New(Options{XdgVersion: 5})
	rec := trace.NewRecorder()
	client := c.Accept(rec)

	require.NoError(t, send(t, client, resource.DisplayID, protocols.DisplayRequestGetRegistry, uint32(2)))
	registry := client.Object(2)
	require.NotNil(t, registry)
	assert.Equal(t, []string{
		`global(1, "wl_compositor", 6)`,
		`global(2, "wl_seat", 9)`,
		`global(3, "xdg_wm_base", 5)`,
	}, rec.Calls(registry))

	require.NoError(t, send(t, client, 2, protocols.RegistryRequestBind, uint32(1), "wl_compositor", uint32(4), uint32(3)))
	require.NoError(t, send(t, client, 2, protocols.RegistryRequestBind, uint32(2), "wl_seat", uint32(7), uint32(4)))
	require.NoError(t, send(t, client, 2, protocols.RegistryRequestBind, uint32(3), "xdg_wm_base", uint32(5), uint32(5)))

	assert.Equal(t, uint32(4), client.Object(3).Version())
	assert.Equal(t, uint32(7), client.Object(4).Version())
	assert.Equal(t, protocols.WmBase, client.Object(5).Interface())
	assert.Equal(t, []string{"capabilities(4)", `name("seat0")`}, rec.Calls(client.Object(4)))

	t.Run("sync", func(t *testing.T) {
		rec.Reset()
		require.NoError(t, send(t, client, resource.DisplayID, protocols.DisplayRequestSync, uint32(6)))
		assert.Nil(t, client.Object(6))

		records := rec.Records()
		require.Len(t, records, 2)
		assert.Equal(t, "wl_callback", records[0].Interface)
		assert.Equal(t, "done", records[0].Event)
		assert.Equal(t, "wl_display@1.delete_id(6)", records[1].String())
	})

	t.Run("surface frame callback", func(t *testing.T) {
		require.NoError(t, send(t, client, 3, protocols.CompositorRequestCreateSurface, uint32(7)))
		surface := client.Object(7)
		require.NotNil(t, surface)
		assert.Equal(t, uint32(4), surface.Version())

		rec.Reset()
		require.NoError(t, send(t, client, 7, protocols.SurfaceRequestFrame, uint32(8)))
		require.NoError(t, send(t, client, 7, protocols.SurfaceRequestCommit))
		records := rec.Records()
		require.Len(t, records, 2)
		assert.Equal(t, "done", records[0].Event)
		assert.Equal(t, "wl_display@1.delete_id(8)", records[1].String())
	})

	t.Run("surface is usable by the shell", func(t *testing.T) {
		require.NoError(t, send(t, client, 5, protocols.WmBaseRequestGetXdgSurface, uint32(9), client.Object(7)))
		assert.Equal(t, protocols.XdgSurface, client.Object(9).Interface())
	})
}

func TestRegistryBindErrors(t *testing.T) {
	tests := []struct {
		name    string
		global  uint32
		iface   string
		version uint32
		wantMsg string
	}{
		{"unknown global", 42, "wl_seat", 1, "invalid global 42"},
		{"wrong interface", 2, "wl_compositor", 1, "invalid interface for global 2"},
		{"version too new", 3, "xdg_wm_base", 7, "invalid version for global xdg_wm_base"},
		{"version zero", 1, "wl_compositor", 0, "invalid version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Options{})
			client := c.Accept(trace.NewRecorder())
			require.NoError(t, send(t, client, resource.DisplayID, protocols.DisplayRequestGetRegistry, uint32(2)))

			err := send(t, client, 2, protocols.RegistryRequestBind, tt.global, tt.iface, tt.version, uint32(3))
			require.Error(t, err)

			perr := client.Error()
			require.NotNil(t, perr)
			assert.Equal(t, uint32(protocols.DisplayErrorInvalidObject), perr.Code)
			assert.Contains(t, perr.Message, tt.wantMsg)
			assert.False(t, client.Alive())
		})
	}
}

func TestAcceptIDInUse(t *testing.T) {
	c := New(Options{})
	client := c.Accept(trace.NewRecorder())
	require.NoError(t, send(t, client, resource.DisplayID, protocols.DisplayRequestGetRegistry, uint32(2)))

	err := send(t, client, resource.DisplayID, protocols.DisplayRequestSync, uint32(2))
	require.Error(t, err)
	require.NotNil(t, client.Error())
	assert.Equal(t, uint32(protocols.DisplayErrorInvalidObject), client.Error().Code)
}

func TestMalformedBindKillsOnlyThatClient(t *testing.T) {
	words := func(vals ...uint32) []byte {
		var b []byte
		for _, v := range vals {
			b = binary.NativeEndian.AppendUint32(b, v)
		}
		return b
	}

	tests := []struct {
		name string
		args []byte
	}{
		{"string length wraps", words(1, 0xffffffff, 1, 5)},
		{"string length near wrap", words(1, 0xfffffffd, 1, 5)},
		{"string longer than message", words(1, 64, 1, 5)},
		{"string without nul", append(words(1, 4), 'w', 'l', '_', 'c', 0, 0, 0, 6, 0, 0, 0, 5)},
		{"truncated arguments", words(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Options{})
			bystander := c.Accept(trace.NewRecorder())
			rec := trace.NewRecorder()
			client := c.Accept(rec)
			require.NoError(t, send(t, client, resource.DisplayID, protocols.DisplayRequestGetRegistry, uint32(2)))

			var err error
			require.NotPanics(t, func() {
				err = client.Dispatch(wire.NewMessageFromArgs(2, protocols.RegistryRequestBind, tt.args))
			})

			var perr *resource.ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, uint32(protocols.DisplayErrorInvalidMethod), perr.Code)
			assert.False(t, client.Alive())
			assert.Equal(t, perr, client.Error())
			assert.Contains(t, rec.Calls(client.Display())[0], "error(")

			assert.True(t, bystander.Alive())
			require.NoError(t, send(t, bystander, resource.DisplayID, protocols.DisplayRequestGetRegistry, uint32(2)))
		})
	}
}
