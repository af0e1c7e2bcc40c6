// Package main provides the entry point for the rivet MCP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rivetlabs/rivet/internal/config"
	"github.com/rivetlabs/rivet/internal/db"
	"github.com/rivetlabs/rivet/internal/expert"
	"github.com/rivetlabs/rivet/internal/llm"
	"github.com/rivetlabs/rivet/internal/metrics"
	"github.com/rivetlabs/rivet/internal/server"
	"github.com/rivetlabs/rivet/internal/service"
	"github.com/rivetlabs/rivet/internal/tools"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("rivet starting",
		"version", version,
		"surrealdb_url", cfg.SurrealDBURL,
		"embed_model", cfg.EmbedModel,
		"llm_model", cfg.LLMModel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing database connection")
		_ = dbClient.Close(context.Background())
	}()

	// Initialize database schema
	if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
		logger.Error("failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	// Create embedding and LLM backends
	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	logger.Info("embedder initialized", "model", embedder.Model(), "dimension", embedder.Dimension())

	model, err := llm.NewModel(ctx, cfg)
	if err != nil {
		logger.Error("failed to create model", "error", err)
		os.Exit(1)
	}
	logger.Info("model initialized", "model", model.Model())

	// Wire the four-route pipeline
	collector := metrics.NewCollector()
	knowledge := service.NewKnowledgeService(dbClient, embedder, collector, logger)
	orchestrator := service.NewOrchestrator(service.Deps{
		Knowledge:  knowledge,
		Dispatcher: expert.NewDispatcher(model, logger),
		Gaps:       service.NewGapTracker(dbClient, collector, logger),
		General:    model,
		Metrics:    collector,
		Logger:     logger,
	}, service.Options{
		KBThreshold:  cfg.KBThreshold,
		SMEThreshold: cfg.SMEThreshold,
	})

	// Create and setup server
	srv := server.New(version, logger)
	srv.Setup()

	// Register tools
	deps := &tools.Dependencies{
		DB:           dbClient,
		Knowledge:    knowledge,
		Orchestrator: orchestrator,
		Metrics:      collector,
		Logger:       logger,
	}
	tools.RegisterAll(srv.MCPServer(), deps)

	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
