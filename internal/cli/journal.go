package cli

import (
	"github.com/spf13/cobra"
)

// addJournalCommands adds the query history command.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent queries",
		Long:  "Lists recent prompts with their matched intent and outcome, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Warning("Query journal unavailable (store failed to initialize)")
				return nil
			}

			records, err := app.Store.RecentQueries(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				output.Dim("No queries recorded yet.")
				return nil
			}

			if output.IsJSON() {
				return output.JSON(records)
			}

			table := NewTable(output, "TIME", "PROMPT", "INTENT", "SYMBOL", "RESULT")
			for _, r := range records {
				result := output.Green("ok")
				if !r.Success {
					result = output.Red(r.Error)
				}
				table.AddRow(
					r.Timestamp.Local().Format("02 Jan 15:04"),
					truncate(r.Prompt, 40),
					r.Intent,
					r.Symbol,
					result,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records")
	rootCmd.AddCommand(cmd)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
