package cmd

import (
	"fmt"

	"github.com/bnema/waycore/internal/compositor"
	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/scenario"
	"github.com/bnema/waycore/internal/trace"
	"github.com/bnema/waycore/internal/ui"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.toml>",
	Short: "Replay a scenario and print the events each client received",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) (err error) {
	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	cfg := config.Get()
	opts := compositor.OptionsFromConfig(cfg)

	tracePath, f, err := openTrace(cmd, cfg)
	if err != nil {
		return err
	}
	if f != nil {
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		opts.Trace = f
	}

	logger.Debug("Replaying scenario", "name", sc.Name, "clients", len(sc.Clients), "steps", len(sc.Steps))
	result, err := compositor.New(opts).Run(sc)
	if err != nil {
		return fmt.Errorf("scenario %s: %w", args[0], err)
	}

	fmt.Fprint(cmd.OutOrStdout(), ui.FormatResult(result))
	if tracePath != "" {
		logger.Infof("Trace written to %s", tracePath)
	}
	return nil
}

// openTrace creates the trace file named by the --trace flag, or by the
// configuration when tracing is enabled there. It returns a nil file when
// tracing is off.
func openTrace(cmd *cobra.Command, cfg *config.Config) (string, *trace.File, error) {
	tracePath, _ := cmd.Flags().GetString("trace")
	if tracePath == "" && cfg.Trace.Enabled {
		tracePath = cfg.Trace.Path
	}
	if tracePath == "" {
		return "", nil, nil
	}

	interval, size := cfg.Trace.FlushInterval(), cfg.Trace.BufferSize
	if interval <= 0 || size <= 0 {
		interval, size = config.DefaultConfig.Trace.FlushInterval(), config.DefaultConfig.Trace.BufferSize
	}
	f, err := trace.CreateFile(tracePath, interval, size)
	if err != nil {
		return "", nil, err
	}
	return tracePath, f, nil
}

func init() {
	replayCmd.Flags().String("trace", "", "write a trace of every event to this file")
}
