package seat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waycore/internal/geom"
	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/trace"
	"github.com/bnema/waycore/internal/wire"
)

func TestSeatBind(t *testing.T) {
	tests := []struct {
		name    string
		version uint32
		want    []string
	}{
		{"version 1 has no name", 1, []string{"capabilities(4)"}},
		{"version 9 sends name", 9, []string{"capabilities(4)", `name("seat0")`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSeat("seat0")
			rec := trace.NewRecorder()
			c := resource.NewClient(rec)

			obj, err := s.Bind(c, 2, tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Calls(obj))
		})
	}
}

func TestSeatGetTouch(t *testing.T) {
	s := NewSeat("seat0")
	rec := trace.NewRecorder()
	c := resource.NewClient(rec)
	seatObj, err := s.Bind(c, 2, 7)
	require.NoError(t, err)
	surface, err := c.CreateObject(3, protocols.Surface, 4, nil)
	require.NoError(t, err)

	msg := wire.NewMessage(seatObj.ProtocolID(), protocols.SeatRequestGetTouch)
	msg.PutUint32(4)
	require.NoError(t, c.Dispatch(msg))

	touchObj := c.Object(4)
	require.NotNil(t, touchObj)
	assert.Equal(t, protocols.Touch, touchObj.Interface())
	assert.Equal(t, uint32(7), touchObj.Version())
	assert.Equal(t, 1, s.TouchHandle().KnownHandles())

	s.TouchHandle().Down(9, 100, surface, geom.Point{}, 0, geom.Point{X: 1, Y: 2})
	assert.Equal(t, []string{"down(9, 100, 3, 0, 1, 2)", "frame()"}, rec.Calls(touchObj))

	release := wire.NewMessage(4, protocols.TouchRequestRelease)
	require.NoError(t, c.Dispatch(release))
	assert.Nil(t, c.Object(4))
	assert.Zero(t, s.TouchHandle().KnownHandles())
}

func TestSeatMissingCapability(t *testing.T) {
	for _, opcode := range []uint16{protocols.SeatRequestGetPointer, protocols.SeatRequestGetKeyboard} {
		s := NewSeat("seat0")
		c := resource.NewClient(trace.NewRecorder())
		seatObj, err := s.Bind(c, 2, 7)
		require.NoError(t, err)

		msg := wire.NewMessage(seatObj.ProtocolID(), opcode)
		msg.PutUint32(5)
		require.Error(t, c.Dispatch(msg))

		perr := c.Error()
		require.NotNil(t, perr)
		assert.Equal(t, protocols.SeatInterfaceName, perr.Interface)
		assert.Equal(t, uint32(protocols.SeatErrorMissingCapability), perr.Code)
		assert.False(t, c.Alive())
	}
}

func TestSeatRelease(t *testing.T) {
	s := NewSeat("seat0")
	c := resource.NewClient(trace.NewRecorder())
	seatObj, err := s.Bind(c, 2, 7)
	require.NoError(t, err)

	require.NoError(t, c.Dispatch(wire.NewMessage(seatObj.ProtocolID(), protocols.SeatRequestRelease)))
	assert.Nil(t, c.Object(2))
	assert.True(t, c.Alive())
}
