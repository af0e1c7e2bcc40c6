package llm

import "strings"

// modelPrice holds USD cost per million tokens.
type modelPrice struct {
	inputPerM  float64
	outputPerM float64
}

// priceTable maps model name prefixes to pricing. Longest prefix wins.
// Unknown models cost zero; the metrics layer still counts their tokens.
var priceTable = map[string]modelPrice{
	"gpt-4o-mini":                 {inputPerM: 0.15, outputPerM: 0.60},
	"gpt-4o":                      {inputPerM: 2.50, outputPerM: 10.00},
	"gpt-4.1-mini":                {inputPerM: 0.40, outputPerM: 1.60},
	"gpt-4.1":                     {inputPerM: 2.00, outputPerM: 8.00},
	"claude-3-5-haiku":            {inputPerM: 0.80, outputPerM: 4.00},
	"claude-3-5-sonnet":           {inputPerM: 3.00, outputPerM: 15.00},
	"claude-sonnet-4":             {inputPerM: 3.00, outputPerM: 15.00},
	"anthropic.claude-3-5-sonnet": {inputPerM: 3.00, outputPerM: 15.00},
	"anthropic.claude-3-5-haiku":  {inputPerM: 0.80, outputPerM: 4.00},
	"text-embedding-3-small":      {inputPerM: 0.02},
	"text-embedding-3-large":      {inputPerM: 0.13},
}

// CostUSD computes the dollar cost of a completion for a known model, zero
// otherwise. Local models (ollama) are free by construction.
func CostUSD(model string, inputTokens, outputTokens int) float64 {
	var best string
	for prefix := range priceTable {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return 0
	}
	price := priceTable[best]
	return float64(inputTokens)/1e6*price.inputPerM + float64(outputTokens)/1e6*price.outputPerM
}
