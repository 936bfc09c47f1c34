package cmd

import (
	"fmt"
	"strconv"

	"github.com/bnema/waycore/internal/config"
	"github.com/charmbracelet/huh"
	"github.com/spf13/viper"
)

// initAnswers holds what `config init --interactive` asks for.
type initAnswers struct {
	SeatName       string
	TouchVersion   uint32
	XdgVersion     uint32
	TraceEnabled   bool
	MonitorEnabled bool
}

func answersFrom(cfg *config.Config) initAnswers {
	return initAnswers{
		SeatName:       cfg.Seat.Name,
		TouchVersion:   cfg.Seat.TouchVersion,
		XdgVersion:     cfg.Shell.XdgVersion,
		TraceEnabled:   cfg.Trace.Enabled,
		MonitorEnabled: cfg.Monitor.Enabled,
	}
}

func versionOptions(maxVersion uint32) []huh.Option[uint32] {
	options := make([]huh.Option[uint32], 0, maxVersion)
	for v := maxVersion; v >= 1; v-- {
		options = append(options, huh.NewOption(strconv.FormatUint(uint64(v), 10), v))
	}
	return options
}

func newInitForm(a *initAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Seat Name").
				Description("Name advertised by wl_seat").
				Value(&a.SeatName).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("seat name must not be empty")
					}
					return nil
				}),
			huh.NewSelect[uint32]().
				Title("wl_touch Version").
				Description("Shape and orientation events need version 6 or newer").
				Options(versionOptions(config.DefaultConfig.Seat.TouchVersion)...).
				Value(&a.TouchVersion),
			huh.NewSelect[uint32]().
				Title("xdg_wm_base Version").
				Description("Popup reposition needs version 3 or newer").
				Options(versionOptions(config.DefaultConfig.Shell.XdgVersion)...).
				Value(&a.XdgVersion),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Record event traces?").
				Value(&a.TraceEnabled),
			huh.NewConfirm().
				Title("Enable the SSH event monitor?").
				Value(&a.MonitorEnabled),
		),
	)
}

// apply validates the answers against the loaded configuration and stores
// them for the next Save.
func (a initAnswers) apply(cfg *config.Config) error {
	c := *cfg
	c.Seat.Name = a.SeatName
	c.Seat.TouchVersion = a.TouchVersion
	c.Shell.XdgVersion = a.XdgVersion
	c.Trace.Enabled = a.TraceEnabled
	c.Monitor.Enabled = a.MonitorEnabled
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid answers: %w", err)
	}

	viper.Set("seat.name", c.Seat.Name)
	viper.Set("seat.touch_version", c.Seat.TouchVersion)
	viper.Set("shell.xdg_version", c.Shell.XdgVersion)
	viper.Set("trace.enabled", c.Trace.Enabled)
	viper.Set("monitor.enabled", c.Monitor.Enabled)
	config.Set(&c)
	return nil
}
