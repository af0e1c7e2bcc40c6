package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rivetlabs/rivet/internal/expert"
	"github.com/rivetlabs/rivet/internal/llm"
	"github.com/rivetlabs/rivet/internal/metrics"
	"github.com/rivetlabs/rivet/internal/models"
	"github.com/rivetlabs/rivet/internal/vendors"
)

// Default routing thresholds.
const (
	DefaultKBThreshold  = 0.85
	DefaultSMEThreshold = 0.70

	// GeneralConfidence is the static trust level of the Route D fallback.
	GeneralConfidence = 0.50
)

// Per-route deadlines. A collaborator that hangs past its deadline is
// treated like any other collaborator failure: the route degrades and the
// state machine proceeds.
const (
	kbRouteTimeout  = 15 * time.Second
	llmRouteTimeout = 60 * time.Second
	gapRouteTimeout = 5 * time.Second
)

// staticFallbackAnswer is returned when even the Route D LLM call fails. The
// caller always receives an answer, never an error.
const staticFallbackAnswer = `I couldn't reach my knowledge services just now, so I can't give equipment-specific guidance. ` +
	`General advice: note any fault codes shown, check power and connections, and consult the equipment manual. ` +
	`If the work involves opening electrical enclosures, stop and involve a qualified electrician. Please try again in a moment.`

const generalSystemPrompt = `You are an experienced industrial maintenance engineer answering a technician on the shop floor.
Give concrete, step-by-step troubleshooting guidance. Always state required safety precautions first.
Be honest about uncertainty: if the problem could have several causes, list them in order of likelihood.`

// KnowledgeLookup is the Route A collaborator contract.
type KnowledgeLookup interface {
	BestMatch(ctx context.Context, query string, equipment models.EquipmentContext) (*Match, error)
	MarkUsed(ctx context.Context, atom models.KnowledgeAtom)
}

// Dispatcher is the Route B collaborator contract.
type Dispatcher interface {
	Dispatch(ctx context.Context, query string, vendor vendors.Vendor, equipment models.EquipmentContext) (*expert.Answer, error)
}

// GapRecorder is the Route C collaborator contract.
type GapRecorder interface {
	RecordGap(ctx context.Context, query string, equipment models.EquipmentContext, kbConfidence, smeConfidence float64) models.GapOutcome
}

// Generator is the Route D collaborator contract.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (*llm.Completion, error)
	Model() string
}

// Options configures the routing thresholds. Zero values fall back to the
// defaults.
type Options struct {
	KBThreshold  float64
	SMEThreshold float64
}

// Deps carries the orchestrator's collaborators.
type Deps struct {
	Knowledge  KnowledgeLookup
	Dispatcher Dispatcher
	Gaps       GapRecorder
	General    Generator
	Metrics    *metrics.Collector
	Logger     *slog.Logger
}

// Orchestrator is the four-route troubleshooting state machine: curated KB
// search, vendor SME dispatch, gap tracking/clarification, general fallback.
// Routes run strictly in order; each either terminates with an answer or
// falls through. Holds no per-request state, safe for concurrent use.
type Orchestrator struct {
	deps Deps
	opts Options
}

// NewOrchestrator creates an orchestrator with explicitly injected
// collaborators.
func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.KBThreshold == 0 {
		opts.KBThreshold = DefaultKBThreshold
	}
	if opts.SMEThreshold == 0 {
		opts.SMEThreshold = DefaultSMEThreshold
	}
	return &Orchestrator{deps: deps, opts: opts}
}

// Troubleshoot answers a query. It always returns a result, never an error:
// collaborator failures degrade the affected route to confidence 0 and the
// state machine proceeds, terminating at Route D at the latest.
func (o *Orchestrator) Troubleshoot(ctx context.Context, query string, equipment models.EquipmentContext) *models.TroubleshootResult {
	result := &models.TroubleshootResult{
		Manufacturer: equipment.Manufacturer,
		ModelNumber:  equipment.ModelNumber,
		FaultCode:    equipment.FaultCode,
	}

	detection := vendors.Detect(query, equipment)
	if result.Manufacturer == "" && detection.Vendor != vendors.None {
		result.Manufacturer = string(detection.Vendor)
	}

	if hit := o.routeKB(ctx, query, equipment, result); hit != nil {
		applyKBHit(result, hit)
		return o.finish(result)
	}
	if hit := o.routeSME(ctx, query, detection, equipment, result); hit != nil {
		applySMEHit(result, hit)
		return o.finish(result)
	}
	if outcome := o.routeGap(ctx, query, equipment, result); outcome.ClarificationNeeded {
		applyClarification(result, outcome)
		return o.finish(result)
	}
	applyGeneralAnswer(result, o.routeGeneral(ctx, query, equipment, result))
	return o.finish(result)
}

func (o *Orchestrator) finish(result *models.TroubleshootResult) *models.TroubleshootResult {
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordRoute(string(result.Route))
	}
	o.deps.Logger.Info("troubleshoot complete",
		"route", string(result.Route),
		"confidence", result.Confidence,
		"llm_calls", result.LLMCalls,
		"cost_usd", result.CostUSD,
		"gap_logged", result.GapLogged)
	return result
}

// routeKB runs Route A. A non-nil KBHit terminates the state machine;
// bookkeeping (attempted flag, confidence, usage counter) lands on the
// result either way.
func (o *Orchestrator) routeKB(ctx context.Context, query string, equipment models.EquipmentContext, result *models.TroubleshootResult) *models.KBHit {
	result.KBAttempted = true

	ctx, cancel := context.WithTimeout(ctx, kbRouteTimeout)
	defer cancel()

	match, err := o.deps.Knowledge.BestMatch(ctx, query, equipment)
	if err != nil {
		o.logRouteFailure("kb", err)
		return nil
	}
	if match == nil {
		return nil
	}

	result.KBConfidence = match.Confidence
	if match.Confidence < o.opts.KBThreshold {
		return nil
	}

	o.deps.Knowledge.MarkUsed(ctx, match.Atom)
	return &models.KBHit{Atom: match.Atom, Confidence: match.Confidence}
}

// routeSME runs Route B against the detected vendor's expert profile (generic
// when none was detected). A non-nil SMEHit terminates the state machine.
func (o *Orchestrator) routeSME(ctx context.Context, query string, detection vendors.Detection, equipment models.EquipmentContext, result *models.TroubleshootResult) *models.SMEHit {
	result.SMEAttempted = true

	ctx, cancel := context.WithTimeout(ctx, llmRouteTimeout)
	defer cancel()

	start := time.Now()
	answer, err := o.deps.Dispatcher.Dispatch(ctx, query, detection.Vendor, equipment)
	if err != nil {
		o.logRouteFailure("sme", err)
		return nil
	}

	// Cost visibility includes attempts that fall below the threshold.
	result.LLMCalls += answer.LLMCalls
	result.CostUSD += answer.CostUSD
	result.SMEConfidence = answer.Confidence
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordLLMUsage(metrics.OpLLMGenerate, time.Since(start),
			int64(answer.InputTokens), int64(answer.OutputTokens), answer.CostUSD)
	}

	if answer.Confidence < o.opts.SMEThreshold {
		return nil
	}

	return &models.SMEHit{
		Answer:         answer.Text,
		Confidence:     answer.Confidence,
		Vendor:         string(answer.Vendor),
		Sources:        answer.Sources,
		SafetyWarnings: answer.SafetyWarnings,
	}
}

// routeGap runs Route C. The outcome terminates the state machine only when
// clarification is needed; logging a gap (or skipping it) always falls
// through to Route D.
func (o *Orchestrator) routeGap(ctx context.Context, query string, equipment models.EquipmentContext, result *models.TroubleshootResult) models.GapOutcome {
	ctx, cancel := context.WithTimeout(ctx, gapRouteTimeout)
	defer cancel()

	outcome := o.deps.Gaps.RecordGap(ctx, query, equipment, result.KBConfidence, result.SMEConfidence)
	result.GapLogged = outcome.GapLogged
	return outcome
}

// routeGeneral runs Route D, which always terminates. If even the fallback
// LLM fails, the static answer is returned at confidence 0.
func (o *Orchestrator) routeGeneral(ctx context.Context, query string, equipment models.EquipmentContext, result *models.TroubleshootResult) models.GeneralAnswer {
	ctx, cancel := context.WithTimeout(ctx, llmRouteTimeout)
	defer cancel()

	start := time.Now()
	completion, err := o.deps.General.Generate(ctx, generalSystemPrompt,
		expert.UserPrompt(query, equipment.Manufacturer, equipment.ModelNumber, equipment.FaultCode))
	if err != nil {
		o.logRouteFailure("general", err)
		return models.GeneralAnswer{Answer: staticFallbackAnswer, Confidence: 0}
	}

	result.LLMCalls++
	result.CostUSD += completion.CostUSD
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordLLMUsage(metrics.OpLLMGenerate, time.Since(start),
			int64(completion.InputTokens), int64(completion.OutputTokens), completion.CostUSD)
	}

	return models.GeneralAnswer{Answer: completion.Text, Confidence: GeneralConfidence}
}

// The apply functions translate each route's tagged outcome into the flat
// result envelope. Sources and safety warnings come only from the
// terminating route.

func applyKBHit(result *models.TroubleshootResult, hit *models.KBHit) {
	result.Route = models.RouteKB
	result.Confidence = hit.Confidence
	result.Answer = formatAtomAnswer(hit.Atom)
	result.Sources = atomSources(hit.Atom)
	result.SafetyWarnings = expert.ExtractSafetyWarnings(hit.Atom.Content)
}

func applySMEHit(result *models.TroubleshootResult, hit *models.SMEHit) {
	result.Route = models.RouteSME
	result.Confidence = hit.Confidence
	result.Answer = hit.Answer
	result.Sources = hit.Sources
	result.SafetyWarnings = hit.SafetyWarnings
}

func applyClarification(result *models.TroubleshootResult, outcome models.GapOutcome) {
	result.Route = models.RouteClarify
	result.Confidence = 0
	result.Answer = outcome.ClarificationPrompt
	result.ClarificationPrompt = outcome.ClarificationPrompt
}

func applyGeneralAnswer(result *models.TroubleshootResult, answer models.GeneralAnswer) {
	result.Route = models.RouteGeneral
	result.Confidence = answer.Confidence
	result.Answer = answer.Answer
	result.SafetyWarnings = expert.ExtractSafetyWarnings(answer.Answer)
}

// logRouteFailure absorbs a collaborator error at a route boundary. Fatal
// provider errors (bad credentials, exhausted quota) log at error level since
// no retry will fix them.
func (o *Orchestrator) logRouteFailure(route string, err error) {
	if errors.Is(err, llm.ErrFatalAPI) {
		o.deps.Logger.Error("route collaborator failed", "route", route, "error", err)
		return
	}
	o.deps.Logger.Warn("route collaborator failed", "route", route, "error", err)
}

// formatAtomAnswer renders a knowledge atom for the end user.
func formatAtomAnswer(atom models.KnowledgeAtom) string {
	answer := fmt.Sprintf("%s\n\n%s", atom.Title, atom.Content)
	if atom.SourceURL != nil && *atom.SourceURL != "" {
		answer += fmt.Sprintf("\n\nSource: %s", *atom.SourceURL)
	}
	return answer
}

func atomSources(atom models.KnowledgeAtom) []string {
	if atom.SourceURL != nil && *atom.SourceURL != "" {
		return []string{*atom.SourceURL}
	}
	return []string{atom.Title}
}
