package observability

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/moodloom/recengine/internal/config"
	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"
)

// LangfuseClient wraps the Langfuse client with our configuration
type LangfuseClient struct {
	client  *langfuse.Langfuse
	enabled bool
	ctx     context.Context
}

var globalClient *LangfuseClient

// InitializeLangfuse initializes the global Langfuse client
func InitializeLangfuse(ctx context.Context, cfg *config.Config) *LangfuseClient {
	if !cfg.LangfuseEnabled || cfg.LangfuseSecretKey == "" {
		log.Println("langfuse not configured (LANGFUSE_ENABLED=false or LANGFUSE_SECRET_KEY not set)")
		globalClient = &LangfuseClient{enabled: false, ctx: ctx}
		return globalClient
	}

	lf := langfuse.New(ctx)

	globalClient = &LangfuseClient{
		client:  lf,
		enabled: true,
		ctx:     ctx,
	}

	log.Printf("langfuse initialized (host: %s)", cfg.LangfuseHost)
	log.Printf("langfuse: public key set: %v, secret key set: %v",
		os.Getenv("LANGFUSE_PUBLIC_KEY") != "",
		os.Getenv("LANGFUSE_SECRET_KEY") != "")
	return globalClient
}

// GetClient returns the global Langfuse client
func GetClient() *LangfuseClient {
	if globalClient == nil {
		return &LangfuseClient{enabled: false, ctx: context.Background()}
	}
	return globalClient
}

// IsEnabled returns whether Langfuse is enabled
func (c *LangfuseClient) IsEnabled() bool {
	return c.enabled && c.client != nil
}

// StartTrace starts a trace for a single workflow session. Each recommender
// stage opens its own Generation span under this trace.
func (c *LangfuseClient) StartTrace(ctx context.Context, name string, metadata map[string]interface{}) *Trace {
	if !c.IsEnabled() {
		return &Trace{enabled: false, ctx: ctx}
	}

	trace, err := c.client.Trace(&model.Trace{
		Name:     name,
		Metadata: metadata,
	})
	if err != nil {
		log.Printf("failed to create langfuse trace: %v", err)
		return &Trace{enabled: false, ctx: ctx}
	}

	return &Trace{
		trace:   trace,
		enabled: true,
		ctx:     ctx,
		client:  c.client,
	}
}

// Trace represents a Langfuse trace, one per workflow session.
type Trace struct {
	trace   *model.Trace
	enabled bool
	ctx     context.Context
	client  *langfuse.Langfuse
}

// Span starts a new generation span within the trace for a single
// recommender stage (intent analysis, mood analysis, seed gathering, ...).
func (t *Trace) Span(name string, metadata map[string]interface{}) *Generation {
	if !t.enabled {
		return &Generation{enabled: false, ctx: t.ctx}
	}

	now := time.Now()
	gen, err := t.client.Generation(&model.Generation{
		TraceID:   t.trace.ID,
		Name:      name,
		StartTime: &now,
		Metadata:  metadata,
	}, nil)
	if err != nil {
		log.Printf("failed to create langfuse generation: %v", err)
		return &Generation{enabled: false, ctx: t.ctx}
	}

	return &Generation{
		generation: gen,
		enabled:    true,
		ctx:        t.ctx,
		client:     t.client,
	}
}

// Finish completes the trace and flushes data to Langfuse
func (t *Trace) Finish() {
	if t.enabled && t.client != nil {
		t.client.Flush(t.ctx)
	}
}

// SetMetadata adds metadata to the trace
func (t *Trace) SetMetadata(metadata map[string]interface{}) {
	if t.enabled && t.trace != nil {
		t.trace.Metadata = metadata
	}
}

// Generation represents a Langfuse generation span attached to a single
// recommender stage invocation (may wrap zero, one, or several LLM calls).
type Generation struct {
	generation *model.Generation
	enabled    bool
	ctx        context.Context
	client     *langfuse.Langfuse
}

func (g *Generation) Input(input interface{}) {
	if g.enabled && g.generation != nil {
		g.generation.Input = input
	}
}

func (g *Generation) Output(output interface{}) {
	if g.enabled && g.generation != nil {
		g.generation.Output = output
	}
}

func (g *Generation) Usage(usage map[string]interface{}) {
	if g.enabled && g.generation != nil {
		g.generation.Usage = convertUsageMap(usage)
	}
}

func (g *Generation) Metadata(metadata map[string]interface{}) {
	if g.enabled && g.generation != nil {
		if g.generation.Metadata == nil {
			g.generation.Metadata = make(map[string]interface{})
		}
		if md, ok := g.generation.Metadata.(map[string]interface{}); ok {
			for k, v := range metadata {
				md[k] = v
			}
		} else {
			g.generation.Metadata = metadata
		}
	}
}

// Finish completes the generation and sends it to Langfuse
func (g *Generation) Finish() {
	if g.enabled && g.generation != nil && g.client != nil {
		now := time.Now()
		g.generation.EndTime = &now
		if _, err := g.client.GenerationEnd(g.generation); err != nil {
			log.Printf("failed to end langfuse generation: %v", err)
		}
	}
}

func (g *Generation) SetLevel(level string) {
	if g.enabled && g.generation != nil {
		g.generation.Level = model.ObservationLevel(level)
	}
}

// LogInvocation records a single LLM call's input/output/usage/cost against
// the generation span, provider-agnostic so both the OpenAI and Gemini
// adapters can call through the same path.
func (g *Generation) LogInvocation(
	modelName string,
	inputMessages []map[string]interface{},
	outputText string,
	usage TokenUsage,
	metadata map[string]interface{},
) {
	if !g.enabled {
		return
	}

	cost := CalculateCost(modelName, usage)

	modelUsage := model.Usage{
		Input:     int(usage.InputTokens),
		Output:    int(usage.OutputTokens),
		Total:     int(usage.InputTokens + usage.OutputTokens),
		Unit:      model.ModelUsageUnitTokens,
		TotalCost: cost,
	}

	finalMetadata := map[string]interface{}{
		"model":    modelName,
		"cost_usd": cost,
	}
	for k, v := range metadata {
		finalMetadata[k] = v
	}

	g.Input(inputMessages)
	if outputText != "" {
		g.Output(outputText)
	}
	g.generation.Usage = modelUsage
	g.generation.Model = modelName
	g.Metadata(finalMetadata)
}

func convertUsageMap(usage map[string]interface{}) model.Usage {
	result := model.Usage{
		Unit: model.ModelUsageUnitTokens,
	}

	if input, ok := usage["input_tokens"].(int); ok {
		result.Input = input
	} else if input, ok := usage["input_tokens"].(int64); ok {
		result.Input = int(input)
	}

	if output, ok := usage["output_tokens"].(int); ok {
		result.Output = output
	} else if output, ok := usage["output_tokens"].(int64); ok {
		result.Output = int(output)
	}

	if total, ok := usage["total_tokens"].(int); ok {
		result.Total = total
	} else if total, ok := usage["total_tokens"].(int64); ok {
		result.Total = int(total)
	}

	if cost, ok := usage["cost_usd"].(float64); ok {
		result.TotalCost = cost
	}

	return result
}
