package cli

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"upstox-analyst/internal/analysis"
	"upstox-analyst/internal/auth"
	"upstox-analyst/internal/config"
	"upstox-analyst/internal/directory"
	"upstox-analyst/internal/insight"
	"upstox-analyst/internal/intent"
	"upstox-analyst/internal/logging"
	"upstox-analyst/internal/market"
	"upstox-analyst/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-01"
)

// App holds the application dependencies.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Store      store.DataStore
	Auth       *auth.Authenticator
	Directory  *directory.Directory
	Market     *market.Client
	Matcher    *intent.Matcher
	Dispatcher *analysis.Dispatcher
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := newApp(cfg, logger)

	rootCmd := &cobra.Command{
		Use:   "upstox-analyst",
		Short: "Upstox Analyst - conversational market analysis for NSE stocks",
		Long: `Upstox Analyst answers plain-English questions about Indian stocks.

It fetches quotes and historical candles from the Upstox API, computes
technical indicators locally, and can augment the numbers with
AI-generated commentary.

Use 'upstox-analyst chat' for an interactive session, or
'upstox-analyst ask "<question>"' for a one-shot query.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/upstox-analyst)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addAuthCommands(rootCmd, app)
	addChatCommands(rootCmd, app)
	addInstrumentCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)

	return rootCmd
}

// newApp wires the dependency graph. Missing credentials and a broken
// store degrade features rather than aborting startup.
func newApp(cfg *config.Config, logger zerolog.Logger) *App {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.API.TimeoutSecs) * time.Second}
	sessionDir := config.DefaultConfigDir()

	app.Auth = auth.New(auth.Config{
		BaseURL:      cfg.API.BaseURL,
		ClientID:     cfg.Credentials.Upstox.ClientID,
		ClientSecret: cfg.Credentials.Upstox.ClientSecret,
		RedirectURI:  cfg.API.RedirectURI,
		SessionDir:   sessionDir,
	}, httpClient, logger)

	dataStore, err := store.NewSQLiteStore(sessionDir + "/analyst.db")
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, journaling and snapshots disabled")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	var snapshots directory.SnapshotStore
	if dataStore != nil {
		snapshots = dataStore
	}
	app.Directory = directory.New(cfg.API.InstrumentURL, httpClient, snapshots, logger)
	app.Matcher = intent.NewMatcher(app.Directory, logger)

	cache := market.NewCache(time.Duration(cfg.Cache.TTLSecs)*time.Second, cfg.Cache.MaxEntries)
	tokens := auth.SessionTokens{Dir: sessionDir}
	app.Market = market.NewClient(cfg.API.BaseURL, httpClient, tokens, cache, logger)

	var insights analysis.InsightProvider
	if cfg.Chat.InsightsEnabled && cfg.Credentials.XAI.APIKey != "" {
		insights = insight.NewAnalyzer(insight.Config{
			APIKey:    cfg.Credentials.XAI.APIKey,
			BaseURL:   cfg.Credentials.XAI.BaseURL,
			Model:     cfg.Chat.Model,
			MaxTokens: cfg.Chat.MaxTokens,
		}, logger)
		logger.Debug().Str("model", cfg.Chat.Model).Msg("Insight analyzer initialized")
	}
	app.Dispatcher = analysis.NewDispatcher(app.Market, insights, logger)

	return app
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Upstox Analyst v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("API Configuration")
	output.Printf("  Base URL:       %s\n", cfg.API.BaseURL)
	output.Printf("  Redirect URI:   %s\n", cfg.API.RedirectURI)
	output.Printf("  Instrument URL: %s\n", cfg.API.InstrumentURL)
	output.Printf("  Timeout:        %ds\n", cfg.API.TimeoutSecs)
	output.Println()

	output.Bold("Cache Configuration")
	output.Printf("  TTL:            %ds\n", cfg.Cache.TTLSecs)
	output.Printf("  Max Entries:    %d\n", cfg.Cache.MaxEntries)
	output.Println()

	output.Bold("Chat Configuration")
	output.Printf("  AI Insights:    %v\n", cfg.Chat.InsightsEnabled)
	output.Printf("  Model:          %s\n", cfg.Chat.Model)
	output.Printf("  Max Tokens:     %d\n", cfg.Chat.MaxTokens)
	output.Println()

	output.Bold("Credentials")
	output.Printf("  Upstox Client:  %s\n", maskValue(cfg.Credentials.Upstox.ClientID))
	output.Printf("  x.ai API Key:   %s\n", maskValue(cfg.Credentials.XAI.APIKey))

	return nil
}

func maskValue(v string) string {
	if v == "" {
		return "(not set)"
	}
	if len(v) <= 4 {
		return "****"
	}
	return v[:4] + "****"
}
