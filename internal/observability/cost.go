package observability

import "strconv"

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64
	OutputPricePer1K float64
}

// PricingTable contains pricing for every model the provider factory can
// dispatch to, spanning both OpenAI and Gemini families.
var PricingTable = map[string]ModelPricing{
	"gpt-5.1": {
		InputPricePer1K:  0.001,
		OutputPricePer1K: 0.003,
	},
	"gpt-5.1-mini": {
		InputPricePer1K:  0.0005,
		OutputPricePer1K: 0.0015,
	},
	"gpt-4o": {
		InputPricePer1K:  0.005,
		OutputPricePer1K: 0.015,
	},
	"gpt-4o-mini": {
		InputPricePer1K:  0.00015,
		OutputPricePer1K: 0.0006,
	},
	"gemini-2.0-flash": {
		InputPricePer1K:  0.0001,
		OutputPricePer1K: 0.0004,
	},
	"gemini-2.5-pro": {
		InputPricePer1K:  0.00125,
		OutputPricePer1K: 0.005,
	},
}

// TokenUsage is the provider-agnostic usage shape every LLMPort adapter
// normalizes its raw SDK usage struct into before cost is computed.
type TokenUsage struct {
	InputTokens     int64
	OutputTokens    int64
	ReasoningTokens int64
}

// CalculateCost calculates the cost in USD for a single LLM invocation.
// Falls back to the gpt-5.1 entry for unrecognized models, the same
// default-pricing fallback the teacher used for OpenAI-only calls.
func CalculateCost(model string, usage TokenUsage) float64 {
	pricing, exists := PricingTable[model]
	if !exists {
		pricing = PricingTable["gpt-5.1"]
	}

	inputCost := (float64(usage.InputTokens) / 1000.0) * pricing.InputPricePer1K
	outputCost := (float64(usage.OutputTokens) / 1000.0) * pricing.OutputPricePer1K

	reasoningCost := 0.0
	if usage.ReasoningTokens > 0 {
		reasoningCost = (float64(usage.ReasoningTokens) / 1000.0) * pricing.InputPricePer1K
	}

	return inputCost + outputCost + reasoningCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + formatFloat(cost, 6)
}

func formatFloat(f float64, precision int) string {
	return strconv.FormatFloat(f, 'f', precision, 64)
}
