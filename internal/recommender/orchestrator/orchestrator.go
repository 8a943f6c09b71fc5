// Package orchestrator wires the intent, mood, seed, generation, quality
// and improvement stages into the full generate-evaluate-improve loop and
// drives a WorkflowState from pending through recommendations_ready.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/moodloom/recengine/internal/apperrors"
	"github.com/moodloom/recengine/internal/catalog"
	"github.com/moodloom/recengine/internal/logger"
	"github.com/moodloom/recengine/internal/models"
	"github.com/moodloom/recengine/internal/recommender/improvement"
	"github.com/moodloom/recengine/internal/recommender/intent"
	"github.com/moodloom/recengine/internal/recommender/mood"
	"github.com/moodloom/recengine/internal/recommender/ordering"
	"github.com/moodloom/recengine/internal/recommender/quality"
	"github.com/moodloom/recengine/internal/recommender/recgen"
	"github.com/moodloom/recengine/internal/recommender/seed"
)

const (
	stageName             = "orchestrator"
	maxIterations         = 2
	cohesionThreshold     = 0.65
	convergenceThreshold  = 0.03
	maxStalledIterations  = 1
	artistRecommendRatio  = 0.95
)

// Orchestrator runs one workflow's full pipeline to completion.
type Orchestrator struct {
	intentAnalyzer *intent.Analyzer
	moodAnalyzer   *mood.Analyzer
	seedGatherer   *seed.Gatherer
	generator      *recgen.Generator
	evaluator      *quality.Evaluator
	decider        *improvement.Decider
	orderer        *ordering.Orderer
	catalogPort    catalog.Port
	rng            *rand.Rand
}

// New wires every stage into a single orchestrator. rng lets tests
// inject a deterministic source for playlist-target jitter.
func New(
	intentAnalyzer *intent.Analyzer,
	moodAnalyzer *mood.Analyzer,
	seedGatherer *seed.Gatherer,
	generator *recgen.Generator,
	evaluator *quality.Evaluator,
	decider *improvement.Decider,
	orderer *ordering.Orderer,
	catalogPort catalog.Port,
	rng *rand.Rand,
) *Orchestrator {
	return &Orchestrator{
		intentAnalyzer: intentAnalyzer,
		moodAnalyzer:   moodAnalyzer,
		seedGatherer:   seedGatherer,
		generator:      generator,
		evaluator:      evaluator,
		decider:        decider,
		orderer:        orderer,
		catalogPort:    catalogPort,
		rng:            rng,
	}
}

// Run drives state from pending to a terminal status, mutating it in
// place at every stage boundary so a caller persisting snapshots between
// calls can observe progress. It honors ctx cancellation between stages
// and iterations, transitioning state to Cancelled rather than returning
// a bare context error.
func (o *Orchestrator) Run(ctx context.Context, state *models.WorkflowState, accessToken string) {
	fields := logger.WithSession(state.SessionID, stageName)
	start := time.Now()

	if !o.checkCancellation(ctx, state) {
		return
	}

	intentAnalysis, appErr := o.intentAnalyzer.Analyze(ctx, state.SessionID, state.MoodPrompt)
	o.recordError(state, appErr, 0)
	state.Intent = intentAnalysis

	if !o.checkCancellation(ctx, state) {
		return
	}

	moodAnalysis, appErr := o.moodAnalyzer.Analyze(ctx, state.SessionID, state.MoodPrompt, intentAnalysis)
	o.recordError(state, appErr, 0)
	state.MoodAnalysis = moodAnalysis
	state.Metadata.TargetFeatures = moodAnalysis.TargetFeatures
	state.Metadata.FeatureWeights = moodAnalysis.FeatureWeights

	target := mood.PlanPlaylistTarget(o.rng, state.MoodPrompt, moodAnalysis)
	state.Metadata.PlaylistTarget = &target

	if !o.checkCancellation(ctx, state) {
		return
	}

	state.TransitionTo(models.StatusGatheringSeeds)
	o.performInitialGeneration(ctx, state, accessToken, target)

	if !o.checkCancellation(ctx, state) {
		return
	}

	finalEval := o.performIterativeImprovement(ctx, state, accessToken, target)

	if !o.checkCancellation(ctx, state) {
		return
	}

	o.performFinalProcessing(ctx, state, accessToken, target, finalEval)

	if state.Recommendations != nil && o.orderer != nil {
		state.Recommendations = o.orderer.Order(ctx, state.SessionID, state.Recommendations)
	}

	state.TransitionTo(models.StatusRecommendationsReady)
	state.CurrentStep = "recommendations_ready"
	logger.LogStageCompletion(stageName, time.Since(start), len(state.Recommendations), fields)
}

// checkCancellation transitions state to Cancelled and returns false if
// ctx has been cancelled, letting callers short-circuit the remaining
// stages without leaving the workflow stuck mid-pipeline.
func (o *Orchestrator) checkCancellation(ctx context.Context, state *models.WorkflowState) bool {
	select {
	case <-ctx.Done():
		state.TransitionTo(models.StatusCancelled)
		state.CurrentStep = "cancelled"
		logger.Info(fmt.Sprintf("workflow %s cancelled", state.SessionID), logger.WithSession(state.SessionID, stageName))
		return false
	default:
		return true
	}
}

func (o *Orchestrator) recordError(state *models.WorkflowState, appErr *apperrors.AppError, iteration int) {
	if appErr == nil {
		return
	}
	state.Metadata.ErrorLog = append(state.Metadata.ErrorLog, models.ErrorRecord{
		Kind:      string(appErr.Kind),
		Stage:     appErr.Stage,
		Iteration: iteration,
		Message:   appErr.Message,
	})
}

func (o *Orchestrator) performInitialGeneration(ctx context.Context, state *models.WorkflowState, accessToken string, target models.PlaylistTarget) {
	state.CurrentStep = "gathering_seeds"
	state.TransitionTo(models.StatusGatheringSeeds)

	seedResult, appErr := o.seedGatherer.Gather(ctx, state.SessionID, accessToken, state.Intent, state.MoodAnalysis)
	o.recordError(state, appErr, 0)

	state.Recommendations = append(state.Recommendations, seedResult.AnchorTracks...)
	state.SeedTracks = seedResult.SeedTrackIDs

	state.CurrentStep = "generating_recommendations"
	state.TransitionTo(models.StatusGeneratingRecommendations)

	input := recgen.Input{
		AccessToken:            accessToken,
		SeedTrackIDs:           seedResult.SeedTrackIDs,
		UserMentionedArtistIDs: seedResult.UserMentionedArtistIDs,
		RecommendedArtistIDs:   seedResult.RecommendedArtistIDs,
		FallbackSearchTracks:   seedResult.FallbackSearchTracks,
		AnchorTracks:           seedResult.AnchorTracks,
		Limit:                  target.MaxCount,
		Filters:                o.filterContext(state),
	}

	recs, appErr := o.generator.Generate(ctx, state.SessionID, input, cohesionScorer, state.Metadata.TargetFeatures, state.Metadata.FeatureWeights)
	o.recordError(state, appErr, 0)
	state.Recommendations = append(state.Recommendations, recs...)
}

func (o *Orchestrator) performIterativeImprovement(ctx context.Context, state *models.WorkflowState, accessToken string, target models.PlaylistTarget) *quality.Evaluation {
	var finalEval *quality.Evaluation
	previousScore := 0.0
	stalled := 0

	for iteration := 0; iteration < maxIterations; iteration++ {
		if !o.checkCancellation(ctx, state) {
			return finalEval
		}

		state.Metadata.OrchestrationIterations = iteration + 1
		state.CurrentStep = fmt.Sprintf("evaluating_quality_iteration_%d", iteration+1)
		state.TransitionTo(models.StatusEvaluatingQuality)

		eval := o.evaluator.Evaluate(ctx, state.SessionID, state.MoodPrompt, state.Recommendations, state.MoodAnalysis, target)
		finalEval = &eval

		state.Metadata.QualityScoresHistory = append(state.Metadata.QualityScoresHistory, models.QualityScoreRecord{
			Iteration:     iteration + 1,
			CohesionScore: eval.CohesionScore,
			CoverageScore: eval.CoverageScore,
			OverallScore:  eval.OverallScore,
			OutlierCount:  len(eval.OutlierTrackIDs),
			MetThreshold:  eval.MeetsThreshold,
		})

		if iteration > 0 {
			improvementDelta := eval.OverallScore - previousScore
			if improvementDelta < convergenceThreshold {
				stalled++
			} else {
				stalled = 0
			}
			if stalled >= maxStalledIterations {
				state.CurrentStep = "recommendations_converged"
				break
			}
		}

		if eval.MeetsThreshold {
			state.CurrentStep = "recommendations_ready"
			break
		}

		previousScore = eval.OverallScore

		state.CurrentStep = fmt.Sprintf("optimizing_recommendations_iteration_%d", iteration+1)
		state.TransitionTo(models.StatusOptimizingRecommendations)

		strategies := o.decider.Decide(ctx, state.SessionID, eval, target)
		var strategyNames []string
		for _, s := range strategies {
			strategyNames = append(strategyNames, string(s))
		}
		state.Metadata.ImprovementActions = append(state.Metadata.ImprovementActions, models.ImprovementActionRecord{
			Iteration:  iteration + 1,
			Strategies: strategyNames,
		})

		o.applyImprovements(ctx, state, accessToken, target, strategies, eval)
	}

	return finalEval
}

// applyImprovements mutates state.Recommendations according to the
// decided strategies: filtering outliers, raising the global feature-weight
// multiplier,
// reseeding from the cleanest remaining tracks, or simply generating more
// candidates. Each strategy's state mutation runs in full before the
// shared generate call at the bottom, rather than treating the strategies
// as independent no-ops.
func (o *Orchestrator) applyImprovements(ctx context.Context, state *models.WorkflowState, accessToken string, target models.PlaylistTarget, strategies []improvement.Strategy, eval quality.Evaluation) {
	shortfall := 0

	for _, strategy := range strategies {
		switch strategy {
		case improvement.StrategyFilterAndReplace:
			for _, id := range eval.OutlierTrackIDs {
				state.AddNegativeSeed(id)
			}
			state.Recommendations = filterOutliers(state.Recommendations, eval.OutlierTrackIDs)
			for _, id := range topNByConfidence(state.Recommendations, 5) {
				if !containsString(state.SeedTracks, id) {
					state.SeedTracks = append(state.SeedTracks, id)
				}
			}
		case improvement.StrategyAdjustFeatureWeights:
			state.Metadata.FeatureWeight = improvement.AdjustFeatureWeight(state.Metadata.FeatureWeight)
		case improvement.StrategyReseedFromClean:
			ranked := rankByConfidenceAndCohesion(state.Recommendations, state.Metadata.TargetFeatures, state.Metadata.FeatureWeights)
			newSeeds := topN(ranked, 5)
			state.SeedTracks = trackIDs(newSeeds)
			state.Recommendations = newSeeds
			for _, id := range bottomNNonProtected(ranked, 3) {
				state.AddNegativeSeed(id)
			}
		case improvement.StrategyGenerateMore:
			shortfall = target.TargetCount - len(state.Recommendations)
		}
	}

	needsMore := false
	for _, strategy := range strategies {
		if strategy == improvement.StrategyGenerateMore || strategy == improvement.StrategyReseedFromClean || strategy == improvement.StrategyFilterAndReplace {
			needsMore = true
		}
	}
	if !needsMore {
		return
	}

	limit := target.MaxCount
	if shortfall > 0 && shortfall < limit {
		limit = shortfall
	}

	input := recgen.Input{
		AccessToken:     accessToken,
		SeedTrackIDs:    state.SeedTracks,
		NegativeSeedIDs: state.NegativeSeeds,
		Limit:           limit,
		Filters:         o.filterContext(state),
	}
	recs, appErr := o.generator.Generate(ctx, state.SessionID, input, cohesionScorer, state.Metadata.TargetFeatures, state.Metadata.FeatureWeights)
	o.recordError(state, appErr, state.Metadata.OrchestrationIterations)
	state.Recommendations = recgen.RemoveDuplicates(append(state.Recommendations, recs...))
}

// filterContext translates the analyzed intent and mood into the
// RecommendationGenerator's candidate-filter gating inputs.
func (o *Orchestrator) filterContext(state *models.WorkflowState) recgen.FilterContext {
	fc := recgen.FilterContext{}
	if state.Intent != nil {
		fc.PrimaryGenre = state.Intent.PrimaryGenre
		fc.GenreStrictness = state.Intent.GenreStrictness
	}
	if state.MoodAnalysis != nil {
		fc.ExcludedRegions = state.MoodAnalysis.ExcludedRegions
		if tc := state.MoodAnalysis.TemporalContext; tc != nil {
			fc.IsTemporal = tc.IsTemporal
			fc.YearRangeMin = tc.YearRangeMin
			fc.YearRangeMax = tc.YearRangeMax
		}
	}
	return fc
}

// topNByConfidence returns up to n track IDs from recs sorted by
// confidence descending, used to promote filter_and_replace's survivors
// into new seed tracks.
func topNByConfidence(recs []models.TrackRecommendation, n int) []string {
	sorted := make([]models.TrackRecommendation, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ConfidenceScore > sorted[j].ConfidenceScore
	})
	return trackIDs(topN(sorted, n))
}

// rankByConfidenceAndCohesion sorts recs by (confidence+track_cohesion)/2
// descending, the ranking reseed_from_clean uses to pick new seeds and
// tracks to discard.
func rankByConfidenceAndCohesion(recs []models.TrackRecommendation, targetFeatures map[string]models.FeatureRange, featureWeights map[string]float64) []models.TrackRecommendation {
	_, _, cohesionByTrack := quality.TrackCohesionScores(recs, targetFeatures, featureWeights)

	ranked := make([]models.TrackRecommendation, len(recs))
	copy(ranked, recs)
	sort.SliceStable(ranked, func(i, j int) bool {
		scoreI := (ranked[i].ConfidenceScore + cohesionByTrack[ranked[i].TrackID]) / 2
		scoreJ := (ranked[j].ConfidenceScore + cohesionByTrack[ranked[j].TrackID]) / 2
		return scoreI > scoreJ
	})
	return ranked
}

func topN(recs []models.TrackRecommendation, n int) []models.TrackRecommendation {
	if n > len(recs) {
		n = len(recs)
	}
	return recs[:n]
}

// bottomNNonProtected returns up to n track IDs from the tail of ranked
// (lowest combined score first), skipping locked tracks, which
// reseed_from_clean adds to negative_seeds.
func bottomNNonProtected(ranked []models.TrackRecommendation, n int) []string {
	var ids []string
	for i := len(ranked) - 1; i >= 0 && len(ids) < n; i-- {
		if ranked[i].IsLocked() {
			continue
		}
		ids = append(ids, ranked[i].TrackID)
	}
	return ids
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func filterOutliers(recs []models.TrackRecommendation, outlierIDs []string) []models.TrackRecommendation {
	if len(outlierIDs) == 0 {
		return recs
	}
	outlierSet := make(map[string]struct{}, len(outlierIDs))
	for _, id := range outlierIDs {
		outlierSet[id] = struct{}{}
	}

	var kept []models.TrackRecommendation
	for _, r := range recs {
		if _, isOutlier := outlierSet[r.TrackID]; isOutlier && !r.IsLocked() {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func (o *Orchestrator) performFinalProcessing(ctx context.Context, state *models.WorkflowState, accessToken string, target models.PlaylistTarget, finalEval *quality.Evaluation) {
	state.Recommendations = recgen.RemoveDuplicates(state.Recommendations)
	o.enrichMissingTracks(ctx, state, accessToken)

	eval := o.evaluator.Evaluate(ctx, state.SessionID, state.MoodPrompt, state.Recommendations, state.MoodAnalysis, target)
	state.Recommendations = filterOutliers(state.Recommendations, eval.OutlierTrackIDs)

	if len(state.Recommendations) < target.TargetCount {
		shortfall := target.TargetCount - len(state.Recommendations)
		logger.Info(fmt.Sprintf("below target after filtering (%d < %d), generating %d more", len(state.Recommendations), target.TargetCount, shortfall), logger.WithSession(state.SessionID, stageName))

		seedIDs := state.SeedTracks
		if len(state.Recommendations) > 0 {
			seedIDs = firstN(trackIDs(state.Recommendations), 5)
		}
		input := recgen.Input{
			AccessToken:  accessToken,
			SeedTrackIDs: seedIDs,
			Limit:        target.MaxCount,
			Filters:      o.filterContext(state),
		}
		recs, appErr := o.generator.Generate(ctx, state.SessionID, input, cohesionScorer, state.Metadata.TargetFeatures, state.Metadata.FeatureWeights)
		o.recordError(state, appErr, state.Metadata.OrchestrationIterations)
		state.Recommendations = recgen.RemoveDuplicates(append(state.Recommendations, recs...))
	}

	if len(state.Recommendations) < target.MinCount {
		state.Metadata.InsufficientSupply = true
		o.recordError(state, apperrors.New(apperrors.KindInsufficientSupply, stageName, "below minimum playlist size after final generation"), state.Metadata.OrchestrationIterations)
	}

	finalLimit := target.TargetCount
	if target.MaxCount < finalLimit {
		finalLimit = target.MaxCount
	}
	if len(state.Recommendations) < finalLimit {
		finalLimit = len(state.Recommendations)
	}
	state.Recommendations = recgen.EnforceSourceRatio(state.Recommendations, finalLimit, artistRecommendRatio)
}

// enrichMissingTracks fills in a bare track ID's Spotify URI and artist
// names for any recommendation the generator populated only partially
// (RecoBeat responses, in particular, sometimes omit the URI).
func (o *Orchestrator) enrichMissingTracks(ctx context.Context, state *models.WorkflowState, accessToken string) {
	if accessToken == "" || o.catalogPort == nil {
		return
	}

	var enriched []models.TrackRecommendation
	for _, rec := range state.Recommendations {
		needsEnrichment := rec.SpotifyURI == nil || *rec.SpotifyURI == "" || containsUnknownArtist(rec.Artists)
		if !needsEnrichment {
			enriched = append(enriched, rec)
			continue
		}

		dto, err := o.catalogPort.GetTrack(ctx, accessToken, rec.TrackID)
		if err != nil {
			logger.Warn(fmt.Sprintf("could not enrich track %s: %v", rec.TrackID, err), logger.WithSession(state.SessionID, stageName))
			enriched = append(enriched, rec)
			continue
		}

		if dto.SpotifyURI != "" {
			uri := dto.SpotifyURI
			rec.SpotifyURI = &uri
		}
		if len(dto.Artists) > 0 {
			rec.Artists = dto.Artists
		}
		enriched = append(enriched, rec)
	}
	state.Recommendations = enriched
}

// cohesionScorer adapts quality.Cohesion (which takes an explicit
// tolerance mode) to the recgen.ConfidenceScorer shape the generator
// calls while scoring freshly fetched candidates.
func cohesionScorer(audioFeatures map[string]float64, targetFeatures map[string]models.FeatureRange, featureWeights map[string]float64, source models.RecommendationSource) float64 {
	return quality.Cohesion(audioFeatures, targetFeatures, featureWeights, source, quality.ToleranceBase)
}

func containsUnknownArtist(artists []string) bool {
	for _, a := range artists {
		if a == "Unknown Artist" {
			return true
		}
	}
	return false
}

func trackIDs(recs []models.TrackRecommendation) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.TrackID
	}
	return ids
}

func firstN(values []string, n int) []string {
	if n > len(values) {
		n = len(values)
	}
	return values[:n]
}
