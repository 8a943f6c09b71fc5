// Package improvement decides which corrective strategies to apply to a
// candidate playlist that hasn't yet met its quality threshold.
package improvement

import (
	"context"
	"fmt"
	"time"

	"github.com/moodloom/recengine/internal/llm"
	"github.com/moodloom/recengine/internal/logger"
	"github.com/moodloom/recengine/internal/models"
	"github.com/moodloom/recengine/internal/observability"
	"github.com/moodloom/recengine/internal/recommender/quality"
)

const stageName = "improvement_strategy"

// Strategy names the orchestrator understands. Compound selections apply
// each in sequence.
type Strategy string

const (
	StrategyFilterAndReplace    Strategy = "filter_and_replace"
	StrategyAdjustFeatureWeights Strategy = "adjust_feature_weights"
	StrategyReseedFromClean     Strategy = "reseed_from_clean"
	StrategyGenerateMore        Strategy = "generate_more"
)

// Decider picks one or more Strategy values to apply to the next
// iteration, preferring an LLM's compound judgment and falling back to a
// fixed rule ladder when the LLM is unavailable or its answer is
// unusable.
type Decider struct {
	provider          llm.Provider
	model             string
	cohesionThreshold float64
	trace             *observability.Trace
}

// New builds a Decider.
func New(provider llm.Provider, model string, cohesionThreshold float64, trace *observability.Trace) *Decider {
	return &Decider{provider: provider, model: model, cohesionThreshold: cohesionThreshold, trace: trace}
}

// Decide returns the strategies to apply for the next iteration.
func (d *Decider) Decide(ctx context.Context, sessionID string, eval quality.Evaluation, target models.PlaylistTarget) []Strategy {
	if d.provider != nil {
		if strategies, err := d.llmDecide(ctx, sessionID, eval, target); err == nil && len(strategies) > 0 {
			return strategies
		}
	}
	return d.fallbackDecide(eval, target)
}

func (d *Decider) fallbackDecide(eval quality.Evaluation, target models.PlaylistTarget) []Strategy {
	var strategies []Strategy
	outlierCount := len(eval.OutlierTrackIDs)
	recommendationsCount := len(eval.TrackScores)

	if outlierCount > 0 && recommendationsCount > target.MinCount {
		strategies = append(strategies, StrategyFilterAndReplace)
	}
	if eval.CohesionScore < d.cohesionThreshold {
		strategies = append(strategies, StrategyAdjustFeatureWeights)
	}
	if eval.CohesionScore < 0.6 && recommendationsCount >= target.MinCount && !contains(strategies, StrategyFilterAndReplace) {
		strategies = append(strategies, StrategyReseedFromClean)
	}
	if recommendationsCount < target.TargetCount {
		strategies = append(strategies, StrategyGenerateMore)
	}

	if len(strategies) == 0 {
		strategies = []Strategy{StrategyAdjustFeatureWeights, StrategyGenerateMore}
	}
	return strategies
}

func contains(strategies []Strategy, s Strategy) bool {
	for _, v := range strategies {
		if v == s {
			return true
		}
	}
	return false
}

type strategyPayload struct {
	Strategies []string `json:"strategies"`
	Reasoning  string   `json:"reasoning"`
}

func (d *Decider) llmDecide(ctx context.Context, sessionID string, eval quality.Evaluation, target models.PlaylistTarget) ([]Strategy, error) {
	fields := logger.WithSession(sessionID, stageName)
	start := time.Now()

	prompt := fmt.Sprintf(
		"Quality evaluation: overall=%.2f cohesion=%.2f coverage=%.2f confidence=%.2f diversity=%.2f outliers=%d target_count=%d min_count=%d.\nDecide which improvement strategies to apply next.",
		eval.OverallScore, eval.CohesionScore, eval.CoverageScore, eval.ConfidenceScore, eval.DiversityScore, len(eval.OutlierTrackIDs), target.TargetCount, target.MinCount,
	)

	request := &llm.GenerationRequest{
		Model:        d.model,
		SystemPrompt: "You decide which playlist improvement strategies to apply next, possibly more than one.",
		InputArray: []map[string]any{
			{"role": "user", "content": prompt},
		},
		OutputSchema: &llm.OutputSchema{
			Name:        "strategy_decision",
			Description: "compound improvement strategy decision",
			Schema:      llm.GetStrategyDecisionSchema(),
		},
	}

	var generation *observability.Generation
	if d.trace != nil {
		generation = d.trace.Span(stageName, nil)
	}

	resp, err := d.provider.Generate(ctx, request)
	if err != nil {
		logger.Warn("llm strategy decision failed", fields)
		return nil, err
	}
	if generation != nil {
		generation.LogInvocation(resp.Model, request.InputArray, resp.RawOutput, resp.Usage, nil)
		generation.Finish()
	}

	var payload strategyPayload
	if err := llm.ExtractJSON(resp.RawOutput, &payload); err != nil {
		logger.Warn("could not parse llm strategy decision", fields)
		return nil, err
	}

	var strategies []Strategy
	for _, s := range payload.Strategies {
		strategies = append(strategies, Strategy(s))
	}

	logger.LogStageCompletion(stageName, time.Since(start), len(strategies), fields)
	return strategies, nil
}

// AdjustFeatureWeight increases the orchestrator's global feature-weight
// strictness knob, capped at 5.0, the way repeated cohesion failures
// tighten the next generation pass.
func AdjustFeatureWeight(current float64) float64 {
	if current == 0 {
		current = 4.5
	}
	next := current + 0.3
	if next > 5.0 {
		return 5.0
	}
	return next
}
