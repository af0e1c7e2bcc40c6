package expert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rivetlabs/rivet/internal/llm"
	"github.com/rivetlabs/rivet/internal/models"
	"github.com/rivetlabs/rivet/internal/vendors"
)

// Generator is the LLM collaborator contract the dispatcher needs.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (*llm.Completion, error)
	Model() string
}

// DispatchError is the typed failure surfaced when the LLM collaborator
// fails; the orchestrator uses it to score the route at confidence 0 instead
// of receiving a silently empty answer.
type DispatchError struct {
	Vendor vendors.Vendor
	Err    error
}

func (e *DispatchError) Error() string {
	name := string(e.Vendor)
	if name == "" {
		name = "generic"
	}
	return fmt.Sprintf("expert dispatch (%s): %v", name, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Answer is a vendor expert's response.
type Answer struct {
	Text           string
	Confidence     float64
	Vendor         vendors.Vendor
	ProfileName    string
	Sources        []string
	SafetyWarnings []string
	LLMCalls       int
	InputTokens    int
	OutputTokens   int
	CostUSD        float64
}

// Dispatcher selects vendor persona profiles and runs them against the LLM.
type Dispatcher struct {
	generator Generator
	logger    *slog.Logger
}

// NewDispatcher creates a vendor expert dispatcher.
func NewDispatcher(generator Generator, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{generator: generator, logger: logger}
}

// Dispatch answers a query using the profile for the given vendor (generic
// when the vendor is unknown). Returns a *DispatchError when the LLM call
// fails; the answer's confidence is the profile's static constant otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, query string, vendor vendors.Vendor, equipment models.EquipmentContext) (*Answer, error) {
	profile := ProfileFor(vendor)
	userPrompt := UserPrompt(query, equipment.Manufacturer, equipment.ModelNumber, equipment.FaultCode)

	d.logger.Debug("dispatching to expert profile",
		"profile", profile.Name,
		"vendor", string(vendor),
		"model", d.generator.Model())

	completion, err := d.generator.Generate(ctx, profile.System, userPrompt)
	if err != nil {
		return nil, &DispatchError{Vendor: vendor, Err: err}
	}

	return &Answer{
		Text:           completion.Text,
		Confidence:     profile.Confidence,
		Vendor:         profile.Vendor,
		ProfileName:    profile.Name,
		Sources:        []string{profile.Name},
		SafetyWarnings: ExtractSafetyWarnings(completion.Text),
		LLMCalls:       1,
		InputTokens:    completion.InputTokens,
		OutputTokens:   completion.OutputTokens,
		CostUSD:        completion.CostUSD,
	}, nil
}
