package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bnema/waycore/internal/compositor"
	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/monitor"
	"github.com/bnema/waycore/internal/server"
	"github.com/bnema/waycore/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the compositor core on a display socket",
	Long: `Listen on a unix socket and serve wl_compositor, wl_seat and xdg_wm_base
to real clients. Popups are configured by the default policy; touch input is
not generated by this command.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	cfg := config.Get()

	srvCfg := cfg.Server
	if socket, _ := cmd.Flags().GetString("socket"); socket != "" {
		srvCfg.SocketName = socket
	}
	if cmd.Flags().Changed("max-clients") {
		srvCfg.MaxClients, _ = cmd.Flags().GetInt("max-clients")
	}

	opts := compositor.OptionsFromConfig(cfg)
	serverOpts := server.Options{
		SocketPath: srvCfg.SocketPath(),
		MaxClients: srvCfg.MaxClients,
	}

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
		serverOpts.Trace = f
		logger.Infof("Tracing events to %s", tracePath)
	}

	monCfg := cfg.Monitor
	if addr, _ := cmd.Flags().GetString("monitor"); addr != "" {
		monCfg.Enabled = true
		monCfg.Address = addr
	}
	tui, _ := cmd.Flags().GetBool("tui")

	hub := monitor.NewHub()
	defer hub.Close()
	if monCfg.Enabled || tui {
		serverOpts.Publisher = hub
	}

	srv, err := server.New(compositor.New(opts), serverOpts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer srv.Stop()

	if monCfg.Enabled {
		sshSrv, err := monitor.NewSSHServer(hub, monitor.SSHOptions{
			Address:            monCfg.Address,
			HostKeyPath:        monCfg.GetHostKeyPath(),
			AuthorizedKeysPath: monCfg.GetAuthorizedKeysPath(),
			MaxSessions:        monCfg.MaxSessions,
		})
		if err != nil {
			return err
		}
		if err := sshSrv.Start(ctx); err != nil {
			return err
		}
		defer sshSrv.Stop()
		logger.Infof("Event monitor listening on %s", sshSrv.Addr())
	}

	if tui {
		return runEventsTUI(ctx, hub, "waycore serving "+srv.SocketPath())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.FormatStatus(true, ui.HeaderStyle.Render("waycore serving "+srv.SocketPath())))
	fmt.Fprintln(out, ui.SubtleStyle.Render(fmt.Sprintf("  WAYLAND_DISPLAY=%s", waylandDisplay(srv.SocketPath()))))

	<-ctx.Done()
	logger.Info("Shutting down")
	return nil
}

// runEventsTUI shows live events until the user quits or ctx is done. Log
// output is discarded while the full-screen view owns the terminal.
func runEventsTUI(ctx context.Context, hub *monitor.Hub, title string) error {
	records, cancel := hub.Subscribe(1024)
	defer cancel()

	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	p := tea.NewProgram(ui.NewEventsModel(title, nil, records), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("events view failed: %w", err)
	}
	return nil
}

// waylandDisplay returns the value clients need in WAYLAND_DISPLAY: the
// bare name when the socket is in XDG_RUNTIME_DIR, the full path otherwise.
func waylandDisplay(socketPath string) string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" && filepath.Dir(socketPath) == filepath.Clean(dir) {
		return filepath.Base(socketPath)
	}
	return socketPath
}

func init() {
	serveCmd.Flags().String("socket", "", "socket name in $XDG_RUNTIME_DIR, or an absolute path (default from config)")
	serveCmd.Flags().Int("max-clients", 0, "maximum concurrent clients, 0 for unlimited (default from config)")
	serveCmd.Flags().String("trace", "", "write a trace of every event to this file")
	serveCmd.Flags().String("monitor", "", "stream events over SSH on this address (enables the monitor)")
	serveCmd.Flags().Bool("tui", false, "show live events in a full-screen view")
}
