// Package cli provides the command-line interface for rivet.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rivetlabs/rivet/internal/config"
	"github.com/rivetlabs/rivet/internal/db"
	"github.com/rivetlabs/rivet/internal/expert"
	"github.com/rivetlabs/rivet/internal/llm"
	"github.com/rivetlabs/rivet/internal/metrics"
	"github.com/rivetlabs/rivet/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logger, and db client shared by all commands
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func() error
	dbClient  *db.Client
	collector = metrics.NewCollector()

	// Lazy-initialized LLM components
	embedder *llm.Embedder
	model    *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rivet",
	Short: "Industrial troubleshooting assistant with a self-improving knowledge base",
	Long: `Rivet answers industrial maintenance questions through four ordered routes:
curated knowledge-base search, vendor expert dispatch, research-gap capture,
and a general fallback. Every query it cannot answer well is recorded as a
research gap, so the knowledge base improves over time.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)

		ctx := cmd.Context()
		var err error
		dbClient, err = db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// getKnowledge builds the knowledge service, initializing the embedder on
// first use. Commands that never embed anything avoid the provider check.
func getKnowledge() (*service.KnowledgeService, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}
	}
	return service.NewKnowledgeService(dbClient, embedder, collector, logger), nil
}

// getOrchestrator wires the full four-route pipeline, initializing the LLM
// on first use.
func getOrchestrator(ctx context.Context, kbThreshold, smeThreshold float64) (*service.Orchestrator, error) {
	knowledge, err := getKnowledge()
	if err != nil {
		return nil, err
	}
	if model == nil {
		model, err = llm.NewModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init model: %w", err)
		}
	}

	return service.NewOrchestrator(service.Deps{
		Knowledge:  knowledge,
		Dispatcher: expert.NewDispatcher(model, logger),
		Gaps:       service.NewGapTracker(dbClient, collector, logger),
		General:    model,
		Metrics:    collector,
		Logger:     logger,
	}, service.Options{
		KBThreshold:  kbThreshold,
		SMEThreshold: smeThreshold,
	}), nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(troubleshootCmd)
	rootCmd.AddCommand(atomCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
