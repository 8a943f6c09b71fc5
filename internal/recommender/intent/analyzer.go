// Package intent classifies a mood prompt's user intent before mood
// analysis and seed gathering run, so the rest of the pipeline knows
// whether the user wants an artist-anchored, genre-exploratory,
// similar-track, or general mood-variety playlist.
package intent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/moodloom/recengine/internal/apperrors"
	"github.com/moodloom/recengine/internal/llm"
	"github.com/moodloom/recengine/internal/logger"
	"github.com/moodloom/recengine/internal/models"
	"github.com/moodloom/recengine/internal/observability"
)

const stageName = "intent_analyzer"

// Analyzer turns a raw mood prompt into a models.IntentAnalysis, preferring
// an LLM structured-output call and falling back to a rule-based keyword
// classifier when the call fails or returns a schema violation.
type Analyzer struct {
	provider llm.Provider
	model    string
	trace    *observability.Trace
}

// New builds an Analyzer against the given provider and model name.
func New(provider llm.Provider, model string, trace *observability.Trace) *Analyzer {
	return &Analyzer{provider: provider, model: model, trace: trace}
}

// Analyze classifies moodPrompt. It never returns a nil *models.IntentAnalysis;
// on any LLM failure it logs a warning and falls back to rule-based
// classification. The returned AppError is always nil, so an LLM failure
// never aborts the pipeline.
func (a *Analyzer) Analyze(ctx context.Context, sessionID, moodPrompt string) (*models.IntentAnalysis, *apperrors.AppError) {
	fields := logger.WithSession(sessionID, stageName)
	start := time.Now()

	span := sentry.StartSpan(ctx, stageName)
	defer span.Finish()

	result, err := a.analyzeWithLLM(ctx, moodPrompt)
	if err != nil {
		logger.Warn("intent LLM analysis failed, using rule-based fallback", fields)
		result = analyzeFallback(moodPrompt)
	}

	validated := validate(result)
	logger.LogStageCompletion(stageName, time.Since(start), 1, fields)
	return validated, nil
}

func (a *Analyzer) analyzeWithLLM(ctx context.Context, moodPrompt string) (*models.IntentAnalysis, error) {
	if a.provider == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	trace := a.trace
	var generation *observability.Generation
	if trace != nil {
		generation = trace.Span(stageName, map[string]interface{}{"prompt_length": len(moodPrompt)})
	}

	request := &llm.GenerationRequest{
		Model:        a.model,
		SystemPrompt: intentSystemPrompt,
		InputArray: []map[string]any{
			{"role": "user", "content": moodPrompt},
		},
		OutputSchema: &llm.OutputSchema{
			Name:        "intent_analysis",
			Description: "classification of the user's mood-prompt intent",
			Schema:      llm.GetIntentAnalysisSchema(),
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

	var payload intentPayload
	if err := llm.ExtractJSON(resp.RawOutput, &payload); err != nil {
		return nil, apperrors.Wrap(apperrors.KindSchemaViolation, stageName, "could not parse intent analysis JSON", err)
	}

	return payload.toModel(), nil
}

// intentPayload mirrors the LLM's structured-output schema before it is
// mapped onto the domain model and validated.
type intentPayload struct {
	IntentType           string                  `json:"intent_type"`
	UserMentionedTracks  []mentionedTrackPayload `json:"user_mentioned_tracks"`
	UserMentionedArtists []string                `json:"user_mentioned_artists"`
	PrimaryGenre         *string                 `json:"primary_genre"`
	GenreStrictness      float64                 `json:"genre_strictness"`
	LanguagePreferences  []string                `json:"language_preferences"`
	ExcludeRegions       []string                `json:"exclude_regions"`
	AllowObscureArtists  bool                    `json:"allow_obscure_artists"`
	QualityThreshold     float64                 `json:"quality_threshold"`
}

type mentionedTrackPayload struct {
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
	Priority   string `json:"priority"`
}

func (p intentPayload) toModel() *models.IntentAnalysis {
	tracks := make([]models.MentionedTrack, 0, len(p.UserMentionedTracks))
	for _, t := range p.UserMentionedTracks {
		priority := models.PriorityMedium
		if t.Priority == string(models.PriorityHigh) {
			priority = models.PriorityHigh
		}
		tracks = append(tracks, models.MentionedTrack{
			TrackName:  t.TrackName,
			ArtistName: t.ArtistName,
			Priority:   priority,
		})
	}

	return &models.IntentAnalysis{
		IntentType:           models.IntentType(p.IntentType),
		UserMentionedTracks:  tracks,
		UserMentionedArtists: p.UserMentionedArtists,
		PrimaryGenre:         p.PrimaryGenre,
		GenreStrictness:      p.GenreStrictness,
		LanguagePreferences:  p.LanguagePreferences,
		ExcludeRegions:       p.ExcludeRegions,
		AllowObscureArtists:  p.AllowObscureArtists,
		QualityThreshold:     p.QualityThreshold,
	}
}

const intentSystemPrompt = `You classify a listener's mood prompt into a structured intent analysis.
Identify whether they want tracks similar to something specific, a focused artist playlist,
genre exploration, or general mood variety. Extract any tracks or artists they name explicitly.`

var validIntentTypes = map[models.IntentType]bool{
	models.IntentArtistFocus:         true,
	models.IntentGenreExploration:    true,
	models.IntentMoodVariety:         true,
	models.IntentSpecificTrackSimilar: true,
}

// validate sanitizes an IntentAnalysis the way a rule-driven validator
// would: invalid enums fall back to sane defaults, numeric ranges clamp to
// [0,1], and required slices are never left nil.
func validate(a *models.IntentAnalysis) *models.IntentAnalysis {
	if a == nil {
		a = &models.IntentAnalysis{}
	}
	if !validIntentTypes[a.IntentType] {
		a.IntentType = models.IntentMoodVariety
	}
	if a.UserMentionedTracks == nil {
		a.UserMentionedTracks = []models.MentionedTrack{}
	}
	if a.UserMentionedArtists == nil {
		a.UserMentionedArtists = []string{}
	}
	if len(a.LanguagePreferences) == 0 {
		a.LanguagePreferences = []string{"english"}
	}
	if a.ExcludeRegions == nil {
		a.ExcludeRegions = []string{}
	}
	a.GenreStrictness = clamp01(a.GenreStrictness, 0.6)
	a.QualityThreshold = clamp01(a.QualityThreshold, 0.6)

	validated := make([]models.MentionedTrack, 0, len(a.UserMentionedTracks))
	for _, t := range a.UserMentionedTracks {
		if strings.TrimSpace(t.TrackName) == "" || strings.TrimSpace(t.ArtistName) == "" {
			continue
		}
		if t.Priority != models.PriorityHigh && t.Priority != models.PriorityMedium {
			t.Priority = models.PriorityMedium
		}
		validated = append(validated, t)
	}
	a.UserMentionedTracks = validated

	return a
}

func clamp01(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
