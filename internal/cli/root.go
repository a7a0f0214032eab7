// Package cli implements the agentrag command line.
package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"agentrag/internal/config"
	"agentrag/internal/logger"
	"agentrag/internal/service"
)

var (
	cfgPath string
	verbose bool

	// appConfig is populated by the root pre-run hook.
	appConfig *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "agentrag",
	Short: "Agentic retrieval-augmented question answering over local documents",
	Long: `agentrag ingests PDF, DOCX, PPTX, CSV, TXT and Markdown files into an
in-memory vector index and answers questions from them. Ingestion, retrieval
and generation run as separate roles that exchange trace-correlated messages.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/agentrag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.ExecuteContext(ctx)
}

func setup(_ *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	var err error
	if cfgPath == "" {
		appConfig, _, err = config.LoadDefault()
	} else {
		appConfig, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := appConfig.Log.Level
	if verbose {
		level = "debug"
	}
	return logger.Init(level, appConfig.Log.Format)
}

// newApp builds an app and ingests files into it.
func newApp(ctx context.Context, files []string) (*service.App, []service.FileResult, error) {
	app, err := service.New(ctx, appConfig, service.Options{})
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return app, nil, nil
	}
	results, err := app.IngestFiles(ctx, files)
	if err != nil {
		_ = app.Close()
		return nil, nil, err
	}
	return app, results, nil
}
