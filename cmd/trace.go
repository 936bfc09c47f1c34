package cmd

import (
	"errors"
	"fmt"

	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/trace"
	"github.com/bnema/waycore/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var traceCmd = &cobra.Command{
	Use:   "trace <file>",
	Short: "Print a recorded event trace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := trace.ReadFile(args[0])
		if err != nil {
			return err
		}

		if tui, _ := cmd.Flags().GetBool("tui"); tui {
			p := tea.NewProgram(ui.NewEventsModel(args[0], records, nil), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("events view failed: %w", err)
			}
			return nil
		}

		only, _ := cmd.Flags().GetUint64("client")
		out := cmd.OutOrStdout()

		var current resource.ClientID
		shown := 0
		for _, rec := range records {
			if only != 0 && uint64(rec.Object.Client) != only {
				continue
			}
			if rec.Object.Client != current {
				current = rec.Object.Client
				fmt.Fprintln(out, ui.SubheaderStyle.Render(fmt.Sprintf("client %d", current)))
			}
			fmt.Fprintln(out, ui.FormatRecord(rec))
			shown++
		}

		fmt.Fprintln(out, ui.SubtleStyle.Render(fmt.Sprintf("%d of %d events", shown, len(records))))
		return nil
	},
}

func init() {
	traceCmd.Flags().Uint64("client", 0, "only show events sent to this client id")
	traceCmd.Flags().Bool("tui", false, "browse the trace in a full-screen view")
}
