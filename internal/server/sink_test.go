package server

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waycore/internal/protocols"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/wire"
)

func deleteID(id uint32) *wire.Message {
	msg := wire.NewMessage(resource.DisplayID, protocols.DisplayEventDeleteID)
	msg.PutUint32(id)
	return msg
}

func TestConnSinkStalledPeer(t *testing.T) {
	local, peer := net.Pipe()
	defer peer.Close()

	sink := newConnSink(local, Options{WriteTimeout: 20 * time.Millisecond})
	display := resource.NewClient(nil).Display()

	start := time.Now()
	err := sink.Send(display, deleteID(3))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	// Later events are discarded without blocking again
	start = time.Now()
	assert.ErrorIs(t, sink.Send(display, deleteID(4)), errConnBroken)
	assert.Less(t, time.Since(start), 10*time.Millisecond)

	// The connection was closed so the reader side sees it go away
	_, err = peer.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestConnSinkWrites(t *testing.T) {
	local, peer := net.Pipe()
	defer local.Close()
	defer peer.Close()

	sink := newConnSink(local, Options{})
	assert.Equal(t, defaultWriteTimeout, sink.timeout)

	got := make(chan *wire.Message, 1)
	go func() {
		msg, err := wire.ReadMessage(peer)
		if err == nil {
			got <- msg
		}
		close(got)
	}()

	require.NoError(t, sink.Send(resource.NewClient(nil).Display(), deleteID(7)))
	msg := <-got
	require.NotNil(t, msg)
	assert.Equal(t, uint16(protocols.DisplayEventDeleteID), msg.Opcode)
}
