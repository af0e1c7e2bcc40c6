package models

// Route identifies which strategy produced the final answer.
type Route string

const (
	RouteKB      Route = "kb"
	RouteSME     Route = "sme"
	RouteClarify Route = "clarify"
	RouteGeneral Route = "general"
)

// TroubleshootResult is the orchestrator's output envelope. Created fresh per
// query; never persisted.
type TroubleshootResult struct {
	Answer     string  `json:"answer"`
	Route      Route   `json:"route"`
	Confidence float64 `json:"confidence"`

	// Detected equipment context, either caller-supplied or inferred.
	Manufacturer string `json:"manufacturer,omitempty"`
	ModelNumber  string `json:"model_number,omitempty"`
	FaultCode    string `json:"fault_code,omitempty"`

	// Per-route attempt bookkeeping.
	KBAttempted   bool    `json:"kb_attempted"`
	KBConfidence  float64 `json:"kb_confidence"`
	SMEAttempted  bool    `json:"sme_attempted"`
	SMEConfidence float64 `json:"sme_confidence"`
	GapLogged     bool    `json:"gap_logged"`

	ClarificationPrompt string   `json:"clarification_prompt,omitempty"`
	Sources             []string `json:"sources,omitempty"`
	SafetyWarnings      []string `json:"safety_warnings,omitempty"`

	// Accumulated across every route attempted, including ones that fell
	// through.
	LLMCalls int     `json:"llm_calls"`
	CostUSD  float64 `json:"cost_usd"`
}

// KBHit is the Route A outcome: a knowledge atom cleared the KB threshold.
type KBHit struct {
	Atom       KnowledgeAtom
	Confidence float64
}

// SMEHit is the Route B outcome: a vendor expert profile answered.
type SMEHit struct {
	Answer         string
	Confidence     float64
	Vendor         string
	Sources        []string
	SafetyWarnings []string
}

// GapOutcome is the Route C outcome: either a clarification request or a
// logged (or skipped) research gap.
type GapOutcome struct {
	ClarificationNeeded bool
	ClarificationPrompt string
	GapLogged           bool
}

// GeneralAnswer is the Route D outcome, always produced.
type GeneralAnswer struct {
	Answer     string
	Confidence float64
}
