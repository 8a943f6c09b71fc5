// Package models defines the recommender pipeline's data model: the
// WorkflowState document each stage reads and mutates, and the value
// types (IntentAnalysis, MoodAnalysis, AudioFeatures, TrackRecommendation,
// PlaylistTarget) carried inside it.
package models

import "time"

// Status is the closed set of lifecycle states a WorkflowState can be in.
// Transitions are monotonic except that Cancelled and Failed may occur
// from any non-terminal state; RecommendationsReady is terminal.
type Status string

const (
	StatusPending                    Status = "pending"
	StatusGatheringSeeds              Status = "gathering_seeds"
	StatusGeneratingRecommendations   Status = "generating_recommendations"
	StatusEvaluatingQuality           Status = "evaluating_quality"
	StatusOptimizingRecommendations   Status = "optimizing_recommendations"
	StatusRecommendationsReady        Status = "recommendations_ready"
	StatusCancelled                   Status = "cancelled"
	StatusFailed                      Status = "failed"
)

// IsTerminal reports whether no further stage work happens from this status.
func (s Status) IsTerminal() bool {
	return s == StatusRecommendationsReady || s == StatusCancelled || s == StatusFailed
}

// IntentType is the closed set of ways a mood prompt's intent is classified.
type IntentType string

const (
	IntentArtistFocus           IntentType = "artist_focus"
	IntentGenreExploration      IntentType = "genre_exploration"
	IntentMoodVariety           IntentType = "mood_variety"
	IntentSpecificTrackSimilar  IntentType = "specific_track_similar"
)

// Priority is the closed set of priorities for a user-mentioned track.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// MentionedTrack is a track the user named directly in their mood prompt.
type MentionedTrack struct {
	TrackName  string   `json:"track_name"`
	ArtistName string   `json:"artist_name"`
	Priority   Priority `json:"priority"`
}

// IntentAnalysis is the output of the IntentAnalyzer stage.
type IntentAnalysis struct {
	IntentType           IntentType       `json:"intent_type"`
	UserMentionedTracks  []MentionedTrack `json:"user_mentioned_tracks"`
	UserMentionedArtists []string         `json:"user_mentioned_artists"`
	PrimaryGenre         *string          `json:"primary_genre,omitempty"`
	GenreStrictness      float64          `json:"genre_strictness"`
	LanguagePreferences  []string         `json:"language_preferences"`
	ExcludeRegions       []string         `json:"exclude_regions"`
	AllowObscureArtists  bool             `json:"allow_obscure_artists"`
	QualityThreshold     float64          `json:"quality_threshold"`
}

// FeatureRange is an inclusive [min, max] target range for one audio
// feature, as produced by the MoodAnalyzer and consumed by cohesion scoring.
type FeatureRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Mid returns the midpoint of the range, used when a scalar target value
// is needed (e.g. for cohesion distance calculations).
func (r FeatureRange) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// TemporalContext narrows the mood prompt to a decade, era, or year range.
type TemporalContext struct {
	Decade     *string `json:"decade,omitempty"`
	Era        *string `json:"era,omitempty"`
	YearRangeMin *int  `json:"year_range_min,omitempty"`
	YearRangeMax *int  `json:"year_range_max,omitempty"`
	IsTemporal bool    `json:"is_temporal"`
}

// MoodAnalysis is the output of the MoodAnalyzer stage.
type MoodAnalysis struct {
	MoodInterpretation    string                  `json:"mood_interpretation"`
	TargetFeatures        map[string]FeatureRange `json:"target_features"`
	FeatureWeights        map[string]float64      `json:"feature_weights"`
	SearchKeywords        []string                `json:"search_keywords"`
	ArtistRecommendations []string                `json:"artist_recommendations"`
	GenreKeywords         []string                `json:"genre_keywords"`
	TemporalContext       *TemporalContext        `json:"temporal_context,omitempty"`
	ExcludedThemes        []string                `json:"excluded_themes,omitempty"`
	PreferredRegions      []string                `json:"preferred_regions,omitempty"`
	ExcludedRegions       []string                `json:"excluded_regions,omitempty"`
}

// AudioFeatures is the closed set of audio features a track may carry.
// Every field is optional since not every catalog or similarity source
// returns the full set.
type AudioFeatures struct {
	Acousticness     *float64 `json:"acousticness,omitempty"`
	Danceability     *float64 `json:"danceability,omitempty"`
	Energy           *float64 `json:"energy,omitempty"`
	Instrumentalness *float64 `json:"instrumentalness,omitempty"`
	Key              *int     `json:"key,omitempty"`
	Liveness         *float64 `json:"liveness,omitempty"`
	Loudness         *float64 `json:"loudness,omitempty"`
	Mode             *int     `json:"mode,omitempty"`
	Speechiness      *float64 `json:"speechiness,omitempty"`
	Tempo            *float64 `json:"tempo,omitempty"`
	Valence          *float64 `json:"valence,omitempty"`
	Popularity       *int     `json:"popularity,omitempty"`
}

// AsMap flattens populated fields into a name->value map, the shape the
// cohesion matcher operates on. Key and Mode are not included.
func (a AudioFeatures) AsMap() map[string]float64 {
	out := make(map[string]float64)
	if a.Acousticness != nil {
		out["acousticness"] = *a.Acousticness
	}
	if a.Danceability != nil {
		out["danceability"] = *a.Danceability
	}
	if a.Energy != nil {
		out["energy"] = *a.Energy
	}
	if a.Instrumentalness != nil {
		out["instrumentalness"] = *a.Instrumentalness
	}
	if a.Liveness != nil {
		out["liveness"] = *a.Liveness
	}
	if a.Loudness != nil {
		out["loudness"] = *a.Loudness
	}
	if a.Speechiness != nil {
		out["speechiness"] = *a.Speechiness
	}
	if a.Tempo != nil {
		out["tempo"] = *a.Tempo
	}
	if a.Valence != nil {
		out["valence"] = *a.Valence
	}
	if a.Popularity != nil {
		out["popularity"] = float64(*a.Popularity)
	}
	return out
}

// IsEmpty reports whether none of the features AsMap includes has been
// populated; Key and Mode are not considered.
func (a AudioFeatures) IsEmpty() bool {
	return len(a.AsMap()) == 0
}

// RecommendationSource is the closed set of origins a recommendation can
// come from.
type RecommendationSource string

const (
	SourceAnchorTrack     RecommendationSource = "anchor_track"
	SourceArtistDiscovery RecommendationSource = "artist_discovery"
	SourceReccobeat       RecommendationSource = "reccobeat"
)

// AnchorType narrows SourceAnchorTrack into why the track became an anchor.
type AnchorType string

const (
	AnchorUser   AnchorType = "user"
	AnchorGenre  AnchorType = "genre"
	AnchorArtist AnchorType = "artist"
)

// TrackRecommendation is a single candidate track moving through seed
// gathering, generation, quality evaluation, and final ordering.
type TrackRecommendation struct {
	TrackID             string                `json:"track_id"`
	TrackName           string                `json:"track_name"`
	Artists             []string              `json:"artists"`
	SpotifyURI          *string               `json:"spotify_uri,omitempty"`
	AudioFeatures       AudioFeatures         `json:"audio_features"`
	ConfidenceScore     float64               `json:"confidence_score"`
	Reasoning           string                `json:"reasoning"`
	Source              RecommendationSource  `json:"source"`
	UserMentioned       bool                  `json:"user_mentioned"`
	UserMentionedArtist bool                  `json:"user_mentioned_artist"`
	Protected           bool                  `json:"protected"`
	AnchorType          *AnchorType           `json:"anchor_type,omitempty"`
	ReleaseYear         *int                  `json:"release_year,omitempty"`
	Phase               string                `json:"phase,omitempty"`
}

// IsLocked reports whether invariant I1 forbids any filter from removing
// this track: protected or user-mentioned tracks are never dropped.
func (t TrackRecommendation) IsLocked() bool {
	return t.Protected || t.UserMentioned
}

// PlaylistTarget bounds how many tracks the final playlist should contain
// and what quality bar it must clear, as computed by the playlist target
// planner from the mood prompt's specificity.
type PlaylistTarget struct {
	TargetCount      int     `json:"target_count"`
	MinCount         int     `json:"min_count"`
	MaxCount         int     `json:"max_count"`
	QualityThreshold float64 `json:"quality_threshold"`
}

// QualityScoreRecord captures a single quality-evaluation snapshot, kept
// in metadata.QualityScoresHistory to detect stalled convergence.
type QualityScoreRecord struct {
	Iteration     int     `json:"iteration"`
	CohesionScore float64 `json:"cohesion_score"`
	CoverageScore float64 `json:"coverage_score"`
	OverallScore  float64 `json:"overall_score"`
	OutlierCount  int     `json:"outlier_count"`
	MetThreshold  bool    `json:"met_threshold"`
}

// ImprovementActionRecord captures which improvement strategies were
// applied in a given iteration, for the metadata history.
type ImprovementActionRecord struct {
	Iteration  int      `json:"iteration"`
	Strategies []string `json:"strategies"`
}

// ErrorRecord mirrors apperrors.Record for embedding in workflow metadata
// without pulling the apperrors package into the public API shape twice.
type ErrorRecord struct {
	Kind      string `json:"kind"`
	Stage     string `json:"stage"`
	Iteration int    `json:"iteration"`
	Message   string `json:"message"`
}

// LLMInvocationRecord logs a single LLM call made during the workflow,
// grounding cost and latency reporting without requiring a trace backend.
type LLMInvocationRecord struct {
	Stage        string  `json:"stage"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	TotalTokens  int     `json:"total_tokens"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	DurationMS   int64   `json:"duration_ms"`
	UsedFallback bool    `json:"used_fallback"`
}

// CacheStats tracks hit/miss counters for the session's cache usage.
type CacheStats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// Metadata is the extensible mapping WorkflowState carries, with typed
// fields for everything SPEC_FULL.md names explicitly and an Extra map
// for anything ad hoc a stage wants to stash.
type Metadata struct {
	TargetFeatures          map[string]FeatureRange   `json:"target_features,omitempty"`
	FeatureWeights          map[string]float64        `json:"feature_weights,omitempty"`
	PlaylistTarget          *PlaylistTarget           `json:"playlist_target,omitempty"`
	OrchestrationIterations int                       `json:"orchestration_iterations"`
	QualityScoresHistory    []QualityScoreRecord      `json:"quality_scores_history,omitempty"`
	ImprovementActions      []ImprovementActionRecord `json:"improvement_actions,omitempty"`
	StageTimingsMS          map[string]int64          `json:"stage_timings_ms,omitempty"`
	ErrorLog                []ErrorRecord             `json:"error_log,omitempty"`
	LLMInvocations          []LLMInvocationRecord     `json:"llm_invocations,omitempty"`
	CacheStats              CacheStats                `json:"cache_stats"`
	FeatureWeight           float64                   `json:"feature_weight"`
	InsufficientSupply      bool                      `json:"insufficient_supply"`
	Extra                   map[string]interface{}    `json:"extra,omitempty"`
}

// WorkflowState is the single in-memory document owned by one workflow
// run. It is mutated only by the owning orchestrator goroutine and
// snapshot-persisted after each stage completes.
type WorkflowState struct {
	SessionID      string                `json:"session_id"`
	MoodPrompt     string                `json:"mood_prompt"`
	Status         Status                `json:"status"`
	CurrentStep    string                `json:"current_step"`
	ErrorMessage   *string               `json:"error_message,omitempty"`
	Intent         *IntentAnalysis       `json:"intent,omitempty"`
	MoodAnalysis   *MoodAnalysis         `json:"mood_analysis,omitempty"`
	SeedTracks     []string              `json:"seed_tracks"`
	NegativeSeeds  []string              `json:"negative_seeds"`
	Recommendations []TrackRecommendation `json:"recommendations"`
	Metadata       Metadata              `json:"metadata"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// NewWorkflowState builds a fresh pending workflow for a new session.
func NewWorkflowState(sessionID, moodPrompt string) *WorkflowState {
	now := time.Now()
	return &WorkflowState{
		SessionID:  sessionID,
		MoodPrompt: moodPrompt,
		Status:     StatusPending,
		Metadata: Metadata{
			StageTimingsMS: make(map[string]int64),
			Extra:          make(map[string]interface{}),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddNegativeSeed appends a track id to negative_seeds, enforcing I2: the
// set never exceeds 5 entries and never contains a protected track.
func (w *WorkflowState) AddNegativeSeed(trackID string) {
	for _, existing := range w.NegativeSeeds {
		if existing == trackID {
			return
		}
	}
	for _, rec := range w.Recommendations {
		if rec.TrackID == trackID && rec.IsLocked() {
			return
		}
	}
	w.NegativeSeeds = append(w.NegativeSeeds, trackID)
	if len(w.NegativeSeeds) > 5 {
		w.NegativeSeeds = w.NegativeSeeds[len(w.NegativeSeeds)-5:]
	}
}

// TransitionTo moves the workflow to a new status, honoring I6: cancelled
// and failed are reachable from any non-terminal state, but no other
// transition is allowed once a terminal state has been reached.
func (w *WorkflowState) TransitionTo(status Status) bool {
	if w.Status.IsTerminal() {
		return false
	}
	w.Status = status
	w.UpdatedAt = time.Now()
	return true
}
