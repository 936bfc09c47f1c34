package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waycore/internal/trace"
)

const replayScenario = `
name = "tap and menu"

[[client]]
name = "editor"
surface_offset = [10.0, 20.0]

[[step]]
action = "touch_down"
client = "editor"
x = 15.0
y = 22.0

[[step]]
action = "popup_create"
client = "editor"
popup = "menu"
positioner = { size = [100, 50], anchor_rect = [0, 0, 20, 10], anchor = "bottom_left", gravity = "bottom_right" }

[[step]]
action = "popup_destroy"
popup = "menu"
`

func TestReplayAndTrace(t *testing.T) {
	tmpDir := isolate(t)
	scenarioPath := filepath.Join(tmpDir, "menu.toml")
	tracePath := filepath.Join(tmpDir, "out", "menu.trace")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(replayScenario), 0644))

	out, err := executeCommand(rootCmd, "replay", scenarioPath, "--trace", tracePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario tap and menu")
	assert.Contains(t, out, "wl_touch@3")
	assert.Contains(t, out, "down(1, 0, 4, 0, 5, 2)")
	assert.Contains(t, out, "xdg_popup@9")
	assert.Contains(t, out, "configure(0, 10, 100, 50)")
	assert.Contains(t, out, "popups created: 1, destroyed: 1, live: 0")

	records, err := trace.ReadFile(tracePath)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	out, err = executeCommand(rootCmd, "trace", tracePath)
	require.NoError(t, err)
	assert.Contains(t, out, "wl_touch@3")
	assert.Contains(t, out, "frame()")
	assert.Contains(t, out, "events")

	out, err = executeCommand(rootCmd, "trace", tracePath, "--client", "999999999")
	require.NoError(t, err)
	assert.NotContains(t, out, "wl_touch@3")
	assert.Contains(t, out, "0 of")
}

func TestReplayErrors(t *testing.T) {
	tmpDir := isolate(t)

	_, err := executeCommand(rootCmd, "replay", filepath.Join(tmpDir, "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(tmpDir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[[step]]\naction = \"swipe\"\n"), 0644))
	_, err = executeCommand(rootCmd, "replay", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")

	_, err = executeCommand(rootCmd, "trace", filepath.Join(tmpDir, "missing.trace"))
	assert.Error(t, err)
}
