// Package llm defines the LLM port every recommender stage talks to, plus
// concrete OpenAI and Gemini adapters and the structured-output schemas
// each stage requests.
package llm

import (
	"context"

	"github.com/moodloom/recengine/internal/observability"
)

// Provider is the LLM port. Every stage that needs a model call goes
// through this interface rather than an SDK client directly, so tests can
// substitute a mock and the provider factory can route by model name.
// Every provider MUST support structured output (JSON Schema) so stages
// never have to free-text-parse a response.
type Provider interface {
	// Generate runs a single structured-output completion.
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// Name returns the provider name ("openai", "gemini").
	Name() string
}

// GenerationRequest contains all parameters needed for a single
// structured-output completion.
type GenerationRequest struct {
	Model        string
	InputArray   []map[string]any
	SystemPrompt string
	OutputSchema *OutputSchema
}

// OutputSchema defines the expected JSON output structure. Schema is a
// JSON Schema object expressed as a Go map, per stage (see schema.go).
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any
}

// GenerationResponse contains the result from a single LLM call.
type GenerationResponse struct {
	RawOutput string
	Usage     observability.TokenUsage
	Model     string
}

// StageCaller wraps a Provider with the stage name it's being called from,
// so the orchestrator can pass one value around instead of threading
// Provider and a stage label separately through every function signature.
type StageCaller struct {
	Provider Provider
	Stage    string
}
