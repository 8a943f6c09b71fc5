package quality

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moodloom/recengine/internal/llm"
	"github.com/moodloom/recengine/internal/logger"
	"github.com/moodloom/recengine/internal/models"
	"github.com/moodloom/recengine/internal/observability"
)

const stageName = "quality_evaluator"

// Evaluation is the result of scoring a candidate playlist against its
// target mood and size plan.
type Evaluation struct {
	OverallScore    float64
	CohesionScore   float64
	CoverageScore   float64
	ConfidenceScore float64
	DiversityScore  float64
	MeetsThreshold  bool
	Issues          []string
	OutlierTrackIDs []string
	TrackScores     map[string]float64
}

// Evaluator scores recommendations against a mood's target features and
// optionally blends in an LLM's holistic quality judgment.
type Evaluator struct {
	provider         llm.Provider
	model            string
	cohesionThreshold float64
	trace            *observability.Trace
}

// New builds an Evaluator. A nil provider disables the LLM-blended score,
// leaving the evaluation purely algorithmic.
func New(provider llm.Provider, model string, cohesionThreshold float64, trace *observability.Trace) *Evaluator {
	return &Evaluator{provider: provider, model: model, cohesionThreshold: cohesionThreshold, trace: trace}
}

// Evaluate scores recommendations against target and the playlist's size
// plan, following the same weighting the orchestrator's quality gate
// always has: cohesion 40%, coverage 25%, confidence 20%, diversity 15%,
// then blended 70/30 with an LLM holistic score when one is available.
func (e *Evaluator) Evaluate(ctx context.Context, sessionID, moodPrompt string, recs []models.TrackRecommendation, moodAnalysis *models.MoodAnalysis, target models.PlaylistTarget) Evaluation {
	eval := Evaluation{TrackScores: map[string]float64{}}

	count := len(recs)
	switch {
	case count < target.MinCount:
		eval.Issues = append(eval.Issues, fmt.Sprintf("below minimum: %d < %d", count, target.MinCount))
		eval.CoverageScore = float64(count) / float64(target.TargetCount)
	case count < target.TargetCount:
		eval.CoverageScore = float64(count) / float64(target.TargetCount)
		eval.Issues = append(eval.Issues, fmt.Sprintf("below target: %d < %d", count, target.TargetCount))
	default:
		eval.CoverageScore = 1.0
	}

	if count == 0 {
		return eval
	}

	cohesion, outliers, perTrack := TrackCohesionScores(recs, moodAnalysis.TargetFeatures, moodAnalysis.FeatureWeights)
	eval.CohesionScore = cohesion
	eval.OutlierTrackIDs = outliers
	eval.TrackScores = perTrack
	if len(outliers) > 0 {
		eval.Issues = append(eval.Issues, fmt.Sprintf("found %d outlier tracks", len(outliers)))
	}

	var confidenceSum float64
	uniqueArtists := make(map[string]struct{})
	for _, r := range recs {
		confidenceSum += r.ConfidenceScore
		for _, a := range r.Artists {
			uniqueArtists[a] = struct{}{}
		}
	}
	eval.ConfidenceScore = confidenceSum / float64(count)
	if eval.ConfidenceScore < 0.5 {
		eval.Issues = append(eval.Issues, fmt.Sprintf("low average confidence: %.2f", eval.ConfidenceScore))
	}

	diversityRatio := float64(len(uniqueArtists)) / float64(count)
	eval.DiversityScore = diversityRatio / 0.6
	if eval.DiversityScore > 1.0 {
		eval.DiversityScore = 1.0
	}

	eval.OverallScore = eval.CohesionScore*0.4 + eval.CoverageScore*0.25 + eval.ConfidenceScore*0.2 + eval.DiversityScore*0.15

	if e.provider != nil {
		if assessment, err := e.llmEvaluate(ctx, sessionID, moodPrompt, moodAnalysis, recs, eval, target); err == nil && assessment != nil {
			eval.OverallScore = eval.OverallScore*0.7 + assessment.QualityScore*0.3
			eval.Issues = append(eval.Issues, assessment.Issues...)

			llmOutliers := extractLLMOutliers(assessment.SpecificConcerns, recs)
			if len(llmOutliers) > 0 {
				eval.OutlierTrackIDs = mergeUnique(eval.OutlierTrackIDs, llmOutliers)
			}
		}
	}

	meetsStrict := eval.CohesionScore >= e.cohesionThreshold &&
		count >= target.TargetCount &&
		len(eval.OutlierTrackIDs) == 0 &&
		eval.OverallScore >= target.QualityThreshold

	meetsRelaxed := eval.CohesionScore >= 0.65 &&
		eval.OverallScore >= 0.60 &&
		count >= target.MinCount &&
		len(eval.OutlierTrackIDs) <= 2

	eval.MeetsThreshold = meetsStrict || meetsRelaxed

	return eval
}

type llmAssessment struct {
	QualityScore      float64  `json:"overall_score"`
	Issues            []string `json:"issues"`
	SpecificConcerns  []string `json:"specific_concerns"`
	MeetsExpectations bool     `json:"meets_expectations"`
}

func (e *Evaluator) llmEvaluate(ctx context.Context, sessionID, moodPrompt string, moodAnalysis *models.MoodAnalysis, recs []models.TrackRecommendation, eval Evaluation, target models.PlaylistTarget) (*llmAssessment, error) {
	fields := logger.WithSession(sessionID, stageName)
	start := time.Now()

	summaryLimit := len(recs)
	if summaryLimit > 15 {
		summaryLimit = 15
	}
	var lines []string
	for i := 0; i < summaryLimit; i++ {
		r := recs[i]
		lines = append(lines, fmt.Sprintf("%d. %s by %s (confidence: %.2f, source: %s)", i+1, r.TrackName, strings.Join(r.Artists, ", "), r.ConfidenceScore, r.Source))
	}

	prompt := fmt.Sprintf(
		"Mood prompt: %s\nMood interpretation: %s\nTarget track count: %d\nTracks:\n%s\n\nAssess whether this playlist matches the mood. Call out any tracks that feel out of place using the exact format \"Track Name by Artist Name ...\".",
		moodPrompt, moodAnalysis.MoodInterpretation, target.TargetCount, strings.Join(lines, "\n"),
	)

	request := &llm.GenerationRequest{
		Model:        e.model,
		SystemPrompt: "You are a meticulous music curator assessing playlist quality.",
		InputArray: []map[string]any{
			{"role": "user", "content": prompt},
		},
		OutputSchema: &llm.OutputSchema{
			Name:        "quality_evaluation",
			Description: "holistic quality assessment of a candidate playlist",
			Schema:      llm.GetQualityEvaluationSchema(),
		},
	}

	var generation *observability.Generation
	if e.trace != nil {
		generation = e.trace.Span(stageName, map[string]interface{}{"track_count": len(recs)})
	}

	resp, err := e.provider.Generate(ctx, request)
	if err != nil {
		logger.Warn("llm quality evaluation failed", fields)
		return nil, err
	}
	if generation != nil {
		generation.LogInvocation(resp.Model, request.InputArray, resp.RawOutput, resp.Usage, nil)
		generation.Finish()
	}

	var assessment llmAssessment
	if err := llm.ExtractJSON(resp.RawOutput, &assessment); err != nil {
		logger.Warn("could not parse llm quality assessment", fields)
		return nil, err
	}

	logger.LogStageCompletion(stageName, time.Since(start), len(recs), fields)
	return &assessment, nil
}

// extractLLMOutliers matches the LLM's free-text specific-concerns
// sentences ("Track Name by Artist Name feels out of place...") back to
// track IDs, ignoring any match against a protected or user-mentioned
// track since those can never be dropped as outliers.
func extractLLMOutliers(concerns []string, recs []models.TrackRecommendation) []string {
	var outliers []string

	for _, concern := range concerns {
		idx := strings.Index(concern, " by ")
		if idx == -1 {
			continue
		}
		trackNamePart := strings.ToLower(strings.TrimSpace(concern[:idx]))

		for _, rec := range recs {
			if rec.IsLocked() {
				continue
			}
			nameLower := strings.ToLower(rec.TrackName)
			if nameLower == trackNamePart || strings.Contains(nameLower, trackNamePart) {
				outliers = append(outliers, rec.TrackID)
				break
			}
		}
	}

	return outliers
}

func mergeUnique(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range a {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
