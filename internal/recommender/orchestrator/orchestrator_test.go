package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodloom/recengine/internal/catalog"
	"github.com/moodloom/recengine/internal/models"
	"github.com/moodloom/recengine/internal/recommender/improvement"
	"github.com/moodloom/recengine/internal/recommender/intent"
	"github.com/moodloom/recengine/internal/recommender/mood"
	"github.com/moodloom/recengine/internal/recommender/quality"
	"github.com/moodloom/recengine/internal/recommender/recgen"
	"github.com/moodloom/recengine/internal/recommender/seed"
)

func buildOrchestrator(catalogMock *catalog.MockPort) *Orchestrator {
	intentAnalyzer := intent.New(nil, "", nil)
	moodAnalyzer := mood.New(nil, "", nil)
	seedGatherer := seed.New(catalogMock)
	generator := recgen.New(catalogMock, nil, 3)
	evaluator := quality.New(nil, "", cohesionThreshold, nil)
	decider := improvement.New(nil, "", cohesionThreshold, nil)

	return New(intentAnalyzer, moodAnalyzer, seedGatherer, generator, evaluator, decider, nil, catalogMock, rand.New(rand.NewSource(1)))
}

func TestRunProducesRecommendationsReadyWithFallbacksOnly(t *testing.T) {
	catalogMock := &catalog.MockPort{
		GetArtistTopTracksFunc: func(_ context.Context, _, artistID, _ string) ([]catalog.TrackDTO, error) {
			return []catalog.TrackDTO{{TrackID: "t-" + artistID, Name: "Track", Artists: []string{artistID}}}, nil
		},
		SearchArtistFunc: func(_ context.Context, _, name string, _ int) ([]catalog.ArtistDTO, error) {
			return []catalog.ArtistDTO{{ArtistID: name, Name: name}}, nil
		},
	}

	o := buildOrchestrator(catalogMock)
	state := models.NewWorkflowState("session-1", "upbeat party anthems")

	o.Run(context.Background(), state, "")

	require.Equal(t, models.StatusRecommendationsReady, state.Status)
	assert.NotNil(t, state.Intent)
	assert.NotNil(t, state.MoodAnalysis)
	assert.NotNil(t, state.Metadata.PlaylistTarget)
}

func TestRunHonorsPreCancelledContext(t *testing.T) {
	o := buildOrchestrator(&catalog.MockPort{})
	state := models.NewWorkflowState("session-2", "chill evening")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o.Run(ctx, state, "")
	assert.Equal(t, models.StatusCancelled, state.Status)
}

func TestFilterOutliersNeverDropsLockedTracks(t *testing.T) {
	recs := []models.TrackRecommendation{
		{TrackID: "keep-protected", Protected: true},
		{TrackID: "drop-me"},
	}
	filtered := filterOutliers(recs, []string{"keep-protected", "drop-me"})
	require.Len(t, filtered, 1)
	assert.Equal(t, "keep-protected", filtered[0].TrackID)
}

func TestApplyImprovementsFilterAndReplacePromotesAndBlocksOutliers(t *testing.T) {
	catalogMock := &catalog.MockPort{
		GetArtistTopTracksFunc: func(_ context.Context, _, artistID, _ string) ([]catalog.TrackDTO, error) {
			return []catalog.TrackDTO{{TrackID: "replacement", Name: "Replacement", Artists: []string{artistID}}}, nil
		},
	}
	o := buildOrchestrator(catalogMock)

	state := models.NewWorkflowState("session-filter", "some mood")
	state.Recommendations = []models.TrackRecommendation{
		{TrackID: "good", ConfidenceScore: 0.9},
		{TrackID: "outlier", ConfidenceScore: 0.2},
	}
	state.SeedTracks = []string{"seed-a"}

	eval := quality.Evaluation{OutlierTrackIDs: []string{"outlier"}}
	target := models.PlaylistTarget{TargetCount: 2, MaxCount: 5}

	o.applyImprovements(context.Background(), state, "", target, []improvement.Strategy{improvement.StrategyFilterAndReplace}, eval)

	assert.Contains(t, state.NegativeSeeds, "outlier")
	assert.Contains(t, state.SeedTracks, "good")
	for _, r := range state.Recommendations {
		assert.NotEqual(t, "outlier", r.TrackID)
	}
}

func TestApplyImprovementsReseedFromCleanKeepsTopFiveAndDiscardsRest(t *testing.T) {
	catalogMock := &catalog.MockPort{}
	o := buildOrchestrator(catalogMock)

	state := models.NewWorkflowState("session-reseed", "some mood")
	for i := 0; i < 7; i++ {
		state.Recommendations = append(state.Recommendations, models.TrackRecommendation{
			TrackID:         fmt.Sprintf("t%d", i),
			ConfidenceScore: float64(i) / 10.0,
		})
	}

	eval := quality.Evaluation{}
	target := models.PlaylistTarget{TargetCount: 5, MaxCount: 10}

	o.applyImprovements(context.Background(), state, "", target, []improvement.Strategy{improvement.StrategyReseedFromClean}, eval)

	require.Len(t, state.Recommendations, 5)
	require.Len(t, state.SeedTracks, 5)
	assert.NotEmpty(t, state.NegativeSeeds)
	assert.Contains(t, state.NegativeSeeds, "t0")
}

func TestApplyImprovementsGenerateMoreRetainsExistingRecommendations(t *testing.T) {
	catalogMock := &catalog.MockPort{
		GetArtistTopTracksFunc: func(_ context.Context, _, artistID, _ string) ([]catalog.TrackDTO, error) {
			return []catalog.TrackDTO{{TrackID: "more", Name: "More", Artists: []string{artistID}}}, nil
		},
	}
	o := buildOrchestrator(catalogMock)

	state := models.NewWorkflowState("session-more", "some mood")
	state.Recommendations = []models.TrackRecommendation{{TrackID: "existing"}}
	state.SeedTracks = []string{"seed-a"}

	eval := quality.Evaluation{}
	target := models.PlaylistTarget{TargetCount: 4, MaxCount: 10}

	o.applyImprovements(context.Background(), state, "", target, []improvement.Strategy{improvement.StrategyGenerateMore}, eval)

	assert.GreaterOrEqual(t, len(state.Recommendations), 1)
}

func TestRankByConfidenceAndCohesionOrdersByCombinedScore(t *testing.T) {
	recs := []models.TrackRecommendation{
		{TrackID: "low", ConfidenceScore: 0.1},
		{TrackID: "high", ConfidenceScore: 0.9},
	}
	ranked := rankByConfidenceAndCohesion(recs, nil, nil)
	require.Len(t, ranked, 2)
	assert.Equal(t, "high", ranked[0].TrackID)
}

func TestBottomNNonProtectedSkipsLockedTracks(t *testing.T) {
	ranked := []models.TrackRecommendation{
		{TrackID: "best"},
		{TrackID: "locked", Protected: true},
		{TrackID: "worst"},
	}
	bottom := bottomNNonProtected(ranked, 2)
	assert.Equal(t, []string{"worst", "best"}, bottom)
}
