package llm

import (
	"context"
	"fmt"
	"strings"
)

// ProviderFactory creates providers based on model name.
type ProviderFactory struct {
	openaiAPIKey string
	geminiAPIKey string
}

// NewProviderFactory creates a new provider factory.
func NewProviderFactory(openaiAPIKey, geminiAPIKey string) *ProviderFactory {
	return &ProviderFactory{
		openaiAPIKey: openaiAPIKey,
		geminiAPIKey: geminiAPIKey,
	}
}

// GetProvider returns the appropriate provider for the given model.
func (f *ProviderFactory) GetProvider(ctx context.Context, model string) (Provider, error) {
	modelLower := strings.ToLower(model)

	if strings.HasPrefix(modelLower, "gemini-") {
		if f.geminiAPIKey == "" {
			return nil, fmt.Errorf("gemini API key not configured")
		}
		return NewGeminiProvider(ctx, f.geminiAPIKey)
	}

	if f.openaiAPIKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}
	return NewOpenAIProvider(f.openaiAPIKey), nil
}
