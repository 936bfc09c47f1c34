package cmd

import (
	"fmt"
	"os"

	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage waycore configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, ui.HeaderStyle.Render("Current Configuration"))
		fmt.Fprintf(out, "Config file: %s\n\n", config.GetConfigPath())

		fmt.Fprintln(out, ui.SubheaderStyle.Render("[seat]"))
		fmt.Fprintf(out, "  Name: %s\n", cfg.Seat.Name)
		fmt.Fprintf(out, "  Touch Version: %d\n", cfg.Seat.TouchVersion)

		fmt.Fprintln(out, ui.SubheaderStyle.Render("\n[shell]"))
		fmt.Fprintf(out, "  xdg Version: %d\n", cfg.Shell.XdgVersion)
		fmt.Fprintf(out, "  Popup Grab Logging: %v\n", cfg.Shell.PopupGrabLogging)

		fmt.Fprintln(out, ui.SubheaderStyle.Render("\n[trace]"))
		fmt.Fprintf(out, "  Enabled: %v\n", cfg.Trace.Enabled)
		fmt.Fprintf(out, "  Path: %s\n", cfg.Trace.Path)
		fmt.Fprintf(out, "  Flush Interval: %s\n", cfg.Trace.FlushInterval())
		fmt.Fprintf(out, "  Buffer Size: %d bytes\n", cfg.Trace.BufferSize)

		fmt.Fprintln(out, ui.SubheaderStyle.Render("\n[server]"))
		fmt.Fprintf(out, "  Socket: %s\n", cfg.Server.SocketPath())
		fmt.Fprintf(out, "  Max Clients: %d\n", cfg.Server.MaxClients)

		fmt.Fprintln(out, ui.SubheaderStyle.Render("\n[monitor]"))
		fmt.Fprintf(out, "  Enabled: %v\n", cfg.Monitor.Enabled)
		fmt.Fprintf(out, "  Address: %s\n", cfg.Monitor.Address)
		fmt.Fprintf(out, "  Host Key: %s\n", cfg.Monitor.GetHostKeyPath())
		fmt.Fprintf(out, "  Max Sessions: %d\n", cfg.Monitor.MaxSessions)

		fmt.Fprintln(out, ui.SubheaderStyle.Render("\n[logging]"))
		level := cfg.Logging.LogLevel
		if level == "" {
			level = "(LOG_LEVEL)"
		}
		fmt.Fprintf(out, "  Log Level: %s\n", level)

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Infof("Configuration file already exists at: %s", configPath)
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
			answers := answersFrom(config.Get())
			if err := newInitForm(&answers).Run(); err != nil {
				return fmt.Errorf("configuration cancelled: %w", err)
			}
			if err := answers.apply(config.Get()); err != nil {
				return err
			}
		}

		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
	configInitCmd.Flags().BoolP("interactive", "i", false, "Ask for the main settings before writing")
}
