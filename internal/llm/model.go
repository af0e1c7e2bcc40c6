package llm

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rivetlabs/rivet/internal/config"
)

// Completion is a single LLM generation with usage accounting attached.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Model wraps a langchaingo LLM for text generation with cost tracking.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates an LLM model based on configuration.
func NewModel(ctx context.Context, cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.BedrockRegion),
		)
		if awsErr != nil {
			return nil, fmt.Errorf("load aws config: %w", awsErr)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		model, err = bedrock.New(
			bedrock.WithClient(client),
			bedrock.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
	}, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// Generate runs a system + user prompt pair and returns the completion with
// token usage. Providers that report no usage get a length-based estimate so
// cost accounting stays monotonic rather than silently zero.
func (m *Model) Generate(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", wrapFatalError(err))
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}
	choice := response.Choices[0]

	inTokens, outTokens := usageFromGenerationInfo(choice.GenerationInfo)
	if inTokens == 0 {
		inTokens = estimateTokens(systemPrompt) + estimateTokens(userPrompt)
	}
	if outTokens == 0 {
		outTokens = estimateTokens(choice.Content)
	}

	return &Completion{
		Text:         choice.Content,
		InputTokens:  inTokens,
		OutputTokens: outTokens,
		CostUSD:      CostUSD(m.modelName, inTokens, outTokens),
	}, nil
}

// usageFromGenerationInfo digs token counts out of the provider-specific
// generation info map. Key names differ per langchaingo backend.
func usageFromGenerationInfo(info map[string]any) (inTokens, outTokens int) {
	for _, key := range []string{"PromptTokens", "InputTokens", "input_tokens"} {
		if v, ok := asInt(info[key]); ok {
			inTokens = v
			break
		}
	}
	for _, key := range []string{"CompletionTokens", "OutputTokens", "output_tokens"} {
		if v, ok := asInt(info[key]); ok {
			outTokens = v
			break
		}
	}
	return inTokens, outTokens
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// estimateTokens approximates token count as len/4, the usual rule of thumb
// for English prose.
func estimateTokens(text string) int {
	return len(text) / 4
}
