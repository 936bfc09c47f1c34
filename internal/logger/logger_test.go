package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("")

	tests := []struct {
		name    string
		level   string
		want    log.Level
		wantErr bool
	}{
		{name: "debug", level: "debug", want: log.DebugLevel},
		{name: "warning alias", level: "WARNING", want: log.WarnLevel},
		{name: "error", level: "error", want: log.ErrorLevel},
		{name: "unknown falls back to info", level: "chatty", want: log.InfoLevel, wantErr: true},
		{name: "empty falls back to info", level: "", want: log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLevel("debug")
			err := SetLevel(tt.level)
			if tt.wantErr {
				assert.ErrorContains(t, err, tt.level)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, Logger.GetLevel())
		})
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel("")

	SetLevel("info")
	Debug("hidden")
	assert.Empty(t, buf.String())

	Info("shown", "slot", 3)
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "slot=3")
}

func TestPrefixAndWith(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	With("client", 7).Info("connected")
	assert.Contains(t, buf.String(), "waycore")
	assert.Contains(t, buf.String(), "client=7")
}
