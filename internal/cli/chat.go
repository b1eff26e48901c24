package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"upstox-analyst/internal/chat"
	"upstox-analyst/internal/intent"
)

// addChatCommands adds the conversational commands.
func addChatCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newChatCmd(app))
	rootCmd.AddCommand(newAskCmd(app))
	rootCmd.AddCommand(newExamplesCmd())
}

// newSession prepares the instrument directory and wires a chat session
// for the given command's output.
func (app *App) newSession(cmd *cobra.Command, output *Output) (*chat.Session, error) {
	if err := app.Directory.Load(cmd.Context()); err != nil {
		output.Warning("Instrument directory unavailable: %v", err)
		output.Dim("Symbol prompts will be rejected until the directory can be downloaded.")
	}

	var journal chat.Journal
	if app.Store != nil {
		journal = app.Store
	}
	return chat.NewSession(app.Matcher, app.Dispatcher, journal, app.Logger, cmd.OutOrStdout()), nil
}

func newChatCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive analysis session",
		Long: `Starts an interactive prompt. Ask questions in plain English, for
example "Show me the last 3 months of INFY" or "Compare TCS and WIPRO".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			session, err := app.newSession(cmd, output)
			if err != nil {
				return err
			}
			return session.Run(cmd.Context(), os.Stdin)
		},
	}
}

func newAskCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "One-shot analysis query",
		Long:  `Answers a single plain-English question and exits.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			session, err := app.newSession(cmd, output)
			if err != nil {
				return err
			}

			prompt := strings.Join(args, " ")
			reply := session.Ask(cmd.Context(), prompt)
			output.Println(reply)
			return nil
		},
	}
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show example prompts",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(intent.ExamplePrompts())
				return
			}
			output.Bold("Example prompts")
			for _, example := range intent.ExamplePrompts() {
				output.Printf("  %s\n", example)
			}
		},
	}
}
