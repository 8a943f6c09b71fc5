package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moodloom/recengine/internal/models"
)

func TestCohesionReturnsSourcePriorWhenFeaturesMissing(t *testing.T) {
	assert.Equal(t, 0.65, Cohesion(nil, map[string]models.FeatureRange{"energy": {}}, nil, models.SourceReccobeat, ToleranceBase))
	assert.Equal(t, 0.75, Cohesion(nil, map[string]models.FeatureRange{"energy": {}}, nil, models.SourceArtistDiscovery, ToleranceBase))
	assert.Equal(t, 0.70, Cohesion(nil, map[string]models.FeatureRange{"energy": {}}, nil, models.SourceAnchorTrack, ToleranceBase))
}

func TestCohesionScoresPerfectMatchAsOne(t *testing.T) {
	audio := map[string]float64{"energy": 0.8}
	target := map[string]models.FeatureRange{"energy": {Min: 0.8, Max: 0.8}}
	score := Cohesion(audio, target, map[string]float64{"energy": 1.0}, models.SourceArtistDiscovery, ToleranceBase)
	assert.InDelta(t, 1.0, score, 0.0001)
}

func TestCohesionPenalizesLargeDeviation(t *testing.T) {
	audio := map[string]float64{"energy": 0.1}
	target := map[string]models.FeatureRange{"energy": {Min: 0.9, Max: 0.9}}
	score := Cohesion(audio, target, map[string]float64{"energy": 1.0}, models.SourceArtistDiscovery, ToleranceBase)
	assert.Equal(t, 0.0, score)
}

func TestTrackCohesionScoresSkipsProtectedTracksFromOutlierDetection(t *testing.T) {
	energy := 0.05
	recs := []models.TrackRecommendation{
		{
			TrackID:       "protected",
			Protected:     true,
			Source:        models.SourceReccobeat,
			AudioFeatures: models.AudioFeatures{Energy: &energy},
		},
	}
	target := map[string]models.FeatureRange{"energy": {Min: 0.9, Max: 0.9}}

	overall, outliers, _ := TrackCohesionScores(recs, target, map[string]float64{"energy": 1.0})
	assert.Empty(t, outliers)
	assert.Equal(t, 1.0, overall)
}

func TestTrackCohesionScoresAppliesStricterThresholdToReccobeat(t *testing.T) {
	energy := 0.1
	recs := []models.TrackRecommendation{
		{TrackID: "r1", Source: models.SourceReccobeat, AudioFeatures: models.AudioFeatures{Energy: &energy}},
	}
	target := map[string]models.FeatureRange{"energy": {Min: 0.9, Max: 0.9}}

	_, outliers, _ := TrackCohesionScores(recs, target, map[string]float64{"energy": 1.0})
	assert.Contains(t, outliers, "r1")
}

func TestExtractLLMOutliersMatchesByTrackName(t *testing.T) {
	recs := []models.TrackRecommendation{
		{TrackID: "t1", TrackName: "Lost Cause", Artists: []string{"Beck"}},
		{TrackID: "t2", TrackName: "Protected Song", Protected: true},
	}
	concerns := []string{
		"Lost Cause by Beck feels tonally out of place here",
		"Protected Song by Someone feels out of place too",
	}

	outliers := extractLLMOutliers(concerns, recs)
	assert.Equal(t, []string{"t1"}, outliers)
}
