// Package mood turns a mood prompt plus its intent analysis into target
// audio features, feature weights, and a playlist size/quality plan.
package mood

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/moodloom/recengine/internal/apperrors"
	"github.com/moodloom/recengine/internal/llm"
	"github.com/moodloom/recengine/internal/logger"
	"github.com/moodloom/recengine/internal/models"
	"github.com/moodloom/recengine/internal/observability"
)

const stageName = "mood_analyzer"

// defaultFeatureWeights mirrors the weighting a listener intuitively puts
// on each feature when no LLM-derived weighting is available.
var defaultFeatureWeights = map[string]float64{
	"energy":           0.8,
	"valence":          0.8,
	"danceability":     0.6,
	"acousticness":     0.6,
	"instrumentalness": 0.5,
	"tempo":            0.4,
	"mode":             0.4,
	"loudness":         0.3,
	"speechiness":      0.3,
	"liveness":         0.2,
	"key":              0.2,
	"popularity":       0.1,
}

// Analyzer derives a models.MoodAnalysis from a mood prompt.
type Analyzer struct {
	provider llm.Provider
	model    string
	trace    *observability.Trace
}

// New builds an Analyzer.
func New(provider llm.Provider, model string, trace *observability.Trace) *Analyzer {
	return &Analyzer{provider: provider, model: model, trace: trace}
}

// Analyze classifies moodPrompt into target audio features, never
// returning a nil result: an LLM failure falls back to keyword-driven
// mood-profile matching.
func (a *Analyzer) Analyze(ctx context.Context, sessionID, moodPrompt string, intentAnalysis *models.IntentAnalysis) (*models.MoodAnalysis, *apperrors.AppError) {
	fields := logger.WithSession(sessionID, stageName)
	start := time.Now()

	span := sentry.StartSpan(ctx, stageName)
	defer span.Finish()

	result, err := a.analyzeWithLLM(ctx, moodPrompt, intentAnalysis)
	if err != nil {
		logger.Warn("mood LLM analysis failed, using keyword fallback", fields)
		result = analyzeFallback(moodPrompt)
	}

	fillDefaults(result)
	logger.LogStageCompletion(stageName, time.Since(start), len(result.TargetFeatures), fields)
	return result, nil
}

func (a *Analyzer) analyzeWithLLM(ctx context.Context, moodPrompt string, intentAnalysis *models.IntentAnalysis) (*models.MoodAnalysis, error) {
	if a.provider == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	var generation *observability.Generation
	if a.trace != nil {
		generation = a.trace.Span(stageName, map[string]interface{}{"prompt_length": len(moodPrompt)})
	}

	content := moodPrompt
	if intentAnalysis != nil && intentAnalysis.PrimaryGenre != nil {
		content = fmt.Sprintf("%s (primary genre hint: %s)", moodPrompt, *intentAnalysis.PrimaryGenre)
	}

	request := &llm.GenerationRequest{
		Model:        a.model,
		SystemPrompt: moodSystemPrompt,
		InputArray: []map[string]any{
			{"role": "user", "content": content},
		},
		OutputSchema: &llm.OutputSchema{
			Name:        "mood_analysis",
			Description: "target audio features and weights for a mood prompt",
			Schema:      llm.GetMoodAnalysisSchema(),
		},
	}

	resp, err := a.provider.Generate(ctx, request)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindRetryableTransient, stageName, "llm generation failed", err)
	}

	if generation != nil {
		generation.LogInvocation(resp.Model, request.InputArray, resp.RawOutput, resp.Usage, nil)
		generation.Finish()
	}

	var payload moodPayload
	if err := llm.ExtractJSON(resp.RawOutput, &payload); err != nil {
		return nil, apperrors.Wrap(apperrors.KindSchemaViolation, stageName, "could not parse mood analysis JSON", err)
	}

	return payload.toModel(), nil
}

type featureRangePayload struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type moodPayload struct {
	MoodInterpretation    string                         `json:"mood_interpretation"`
	TargetFeatures        map[string]featureRangePayload `json:"target_features"`
	FeatureWeights        map[string]float64             `json:"feature_weights"`
	SearchKeywords        []string                       `json:"search_keywords"`
	ArtistRecommendations []string                       `json:"artist_recommendations"`
	GenreKeywords         []string                       `json:"genre_keywords"`
	IsTemporal            bool                            `json:"is_temporal"`
	Decade                *string                        `json:"decade"`
}

func (p moodPayload) toModel() *models.MoodAnalysis {
	targetFeatures := make(map[string]models.FeatureRange, len(p.TargetFeatures))
	for k, v := range p.TargetFeatures {
		targetFeatures[k] = models.FeatureRange{Min: v.Min, Max: v.Max}
	}

	var temporal *models.TemporalContext
	if p.IsTemporal || p.Decade != nil {
		temporal = &models.TemporalContext{Decade: p.Decade, IsTemporal: p.IsTemporal}
	}

	return &models.MoodAnalysis{
		MoodInterpretation:    p.MoodInterpretation,
		TargetFeatures:        targetFeatures,
		FeatureWeights:        p.FeatureWeights,
		SearchKeywords:        p.SearchKeywords,
		ArtistRecommendations: p.ArtistRecommendations,
		GenreKeywords:         p.GenreKeywords,
		TemporalContext:       temporal,
	}
}

const moodSystemPrompt = `You translate a listener's mood prompt into target audio feature ranges
(acousticness, danceability, energy, instrumentalness, liveness, loudness, speechiness, tempo,
valence, popularity), a weight per feature reflecting how strongly it defines the mood, and
supporting search keywords, artist suggestions, and genre keywords.`

// fillDefaults ensures a MoodAnalysis always has a usable feature set and
// weighting, the way the original feature extractor filled in neutral
// defaults when an LLM or rule-based pass produced nothing specific.
func fillDefaults(m *models.MoodAnalysis) {
	if len(m.TargetFeatures) == 0 {
		energy, valence, dance, acoustic := 0.5, 0.5, 0.5, 0.5
		m.TargetFeatures = map[string]models.FeatureRange{
			"energy":       {Min: energy - 0.15, Max: energy + 0.15},
			"valence":      {Min: valence - 0.15, Max: valence + 0.15},
			"danceability": {Min: dance - 0.15, Max: dance + 0.15},
			"acousticness": {Min: acoustic - 0.15, Max: acoustic + 0.15},
		}
	}
	if len(m.FeatureWeights) == 0 {
		m.FeatureWeights = make(map[string]float64, len(defaultFeatureWeights))
		for k, v := range defaultFeatureWeights {
			m.FeatureWeights[k] = v
		}
	}
	if m.SearchKeywords == nil {
		m.SearchKeywords = []string{}
	}
	if m.ArtistRecommendations == nil {
		m.ArtistRecommendations = []string{}
	}
	if m.GenreKeywords == nil {
		m.GenreKeywords = []string{}
	}
}
