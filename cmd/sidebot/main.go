// sidebot is a chat-driven data dashboard: an LLM agent explores a CSV
// dataset through SQL tools and controls what the dashboard shows.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sidebot/internal/config"
)

var (
	// Global flags
	configPath   string
	verbose      bool
	providerName string
	modelName    string
	datasetPath  string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sidebot",
	Short: "Chat with your data through a SQL-driven dashboard",
	Long: `sidebot loads a CSV dataset into an in-memory SQL engine and starts a
chat session with an LLM agent. The agent answers questions by querying the
data and updates the dashboard by committing validated SELECT statements.

Run without arguments to start the interactive chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real environment always wins.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if providerName != "" {
			cfg.LLM.Provider = providerName
			cfg.LLM.APIKey = ""
			cfg.ResolveAPIKey()
		}
		if modelName != "" {
			cfg.LLM.Model = modelName
		}
		if datasetPath != "" {
			cfg.Dataset.Path = datasetPath
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		zcfg := zap.NewProductionConfig()
		if cfg.Logging.Format == "console" {
			zcfg = zap.NewDevelopmentConfig()
		}
		level := zapcore.InfoLevel
		if err := level.Set(cfg.Logging.Level); err != nil {
			level = zapcore.InfoLevel
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "sidebot.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "LLM provider (anthropic, gemini, openai)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Model identifier override")
	rootCmd.PersistentFlags().StringVar(&datasetPath, "dataset", "", "CSV dataset path override")

	rootCmd.AddCommand(evalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
