// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/rivetlabs/rivet/internal/db"
	"github.com/rivetlabs/rivet/internal/metrics"
	"github.com/rivetlabs/rivet/internal/service"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	DB           *db.Client
	Knowledge    *service.KnowledgeService
	Orchestrator *service.Orchestrator
	Metrics      *metrics.Collector
	Logger       *slog.Logger
}
