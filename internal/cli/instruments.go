package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"upstox-analyst/pkg/utils"
)

// addInstrumentCommands adds instrument directory commands.
func addInstrumentCommands(rootCmd *cobra.Command, app *App) {
	instCmd := &cobra.Command{
		Use:   "instruments",
		Short: "Instrument directory management",
		Long:  "Refresh and search the NSE instrument master contract.",
	}

	instCmd.AddCommand(newInstrumentsRefreshCmd(app))
	instCmd.AddCommand(newInstrumentsSearchCmd(app))
	instCmd.AddCommand(newInstrumentsCountCmd(app))

	rootCmd.AddCommand(instCmd)
}

func newInstrumentsRefreshCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force-download the instrument master contract",
		Long: `Downloads the master contract even if today's snapshot exists and
replaces the persisted snapshot. Transient download failures are retried
with backoff.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			cfg := utils.RetryConfig{
				MaxAttempts:   3,
				InitialDelay:  2 * time.Second,
				MaxDelay:      15 * time.Second,
				BackoffFactor: 2.0,
			}
			start := time.Now()
			err := utils.Retry(cmd.Context(), cfg, func() error {
				return app.Directory.Refresh(cmd.Context())
			})
			if err != nil {
				output.Error("Refresh failed: %v", err)
				return err
			}

			count := app.Directory.Count()
			if output.IsJSON() {
				return output.JSON(map[string]any{
					"instruments": count,
					"duration_ms": time.Since(start).Milliseconds(),
				})
			}
			output.Success("✓ Loaded %s instruments in %s",
				utils.FormatQuantity(int64(count)), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func newInstrumentsSearchCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search the instrument directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Directory.Load(cmd.Context()); err != nil {
				return err
			}

			matches := app.Directory.FuzzySearch(args[0], limit)
			if len(matches) == 0 {
				output.Warning("No instruments matched %q", args[0])
				return nil
			}

			if output.IsJSON() {
				return output.JSON(matches)
			}

			table := NewTable(output, "SYMBOL", "NAME", "TYPE", "EXCHANGE", "SCORE")
			for _, m := range matches {
				table.AddRow(
					m.Instrument.Symbol,
					m.Instrument.Name,
					string(m.Instrument.Type),
					string(m.Instrument.Exchange),
					fmt.Sprintf("%.0f", m.Score),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	return cmd
}

func newInstrumentsCountCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show the number of loaded instruments",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Directory.Load(cmd.Context()); err != nil {
				return err
			}

			count := app.Directory.Count()
			if output.IsJSON() {
				return output.JSON(map[string]int{"instruments": count})
			}
			output.Printf("%s instruments loaded\n", utils.FormatQuantity(int64(count)))
			return nil
		},
	}
}
