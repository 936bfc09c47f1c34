package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/trace"
)

func record(client resource.ClientID, iface, event string, args ...any) trace.Record {
	return trace.Record{
		Object:    resource.ObjectID{Client: client, Protocol: 3},
		Interface: iface,
		Event:     event,
		Args:      args,
	}
}

func sized(m *EventsModel) *EventsModel {
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func TestEventsModelStatic(t *testing.T) {
	m := NewEventsModel("trace.bin", []trace.Record{
		record(1, "wl_touch", "down", uint32(1), uint32(0)),
		record(1, "wl_touch", "frame"),
		record(2, "xdg_popup", "popup_done"),
	}, nil)

	assert.Contains(t, m.View(), "Initializing")

	sized(m)
	view := m.View()
	assert.Contains(t, view, "trace.bin")
	assert.Contains(t, view, "wl_touch@3.down(1, 0)")
	assert.Contains(t, view, "xdg_popup@3.popup_done()")
	assert.Contains(t, view, "2 clients")
	assert.Contains(t, view, "complete")
	assert.Nil(t, m.waitForRecord())
}

func TestEventsModelFilter(t *testing.T) {
	m := sized(NewEventsModel("live", []trace.Record{
		record(4, "wl_touch", "frame"),
		record(9, "xdg_popup", "popup_done"),
	}, nil))

	tests := []struct {
		filter  string
		visible int
		shows   string
		hides   string
	}{
		{"client 4", 1, "wl_touch@3.frame()", "popup_done"},
		{"client 9", 1, "popup_done", "wl_touch"},
		{"all clients", 2, "wl_touch@3.frame()", ""},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			m.Update(tea.KeyMsg{Type: tea.KeyTab})
			assert.Equal(t, tt.filter, m.Filter())
			assert.Len(t, m.Visible(), tt.visible)

			view := m.View()
			assert.Contains(t, view, tt.shows)
			if tt.hides != "" {
				assert.NotContains(t, view, tt.hides)
			}
		})
	}
}

func TestEventsModelLive(t *testing.T) {
	source := make(chan trace.Record, 1)
	m := sized(NewEventsModel("waycore-0", nil, source))
	assert.Contains(t, m.View(), "Waiting for events")
	assert.Contains(t, m.View(), "live")

	source <- record(7, "wl_touch", "cancel")
	cmd := m.waitForRecord()
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, RecordMsg{}, msg)

	_, next := m.Update(msg)
	assert.NotNil(t, next)
	assert.Contains(t, m.View(), "wl_touch@3.cancel()")

	close(source)
	m.Update(m.waitForRecord()())
	assert.True(t, m.closed)
	assert.Contains(t, m.View(), "complete")
	assert.Nil(t, m.waitForRecord())
}

func TestEventsModelQuit(t *testing.T) {
	keys := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	}
	for _, key := range keys {
		t.Run(key.String(), func(t *testing.T) {
			m := sized(NewEventsModel("x", nil, nil))
			_, cmd := m.Update(key)
			require.NotNil(t, cmd)
			assert.Equal(t, tea.Quit(), cmd())
		})
	}
}

func TestEventsModelTrimsHistory(t *testing.T) {
	m := NewEventsModel("x", nil, nil)
	m.maxRecords = 3
	for i := range 5 {
		m.addRecord(record(resource.ClientID(i+1), "wl_touch", "frame"))
	}
	require.Len(t, m.records, 3)
	assert.Equal(t, resource.ClientID(3), m.records[0].Object.Client)
}
