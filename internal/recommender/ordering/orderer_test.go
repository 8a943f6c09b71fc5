package ordering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodloom/recengine/internal/models"
)

func featureRec(id string, energy float64, locked bool) models.TrackRecommendation {
	e := energy
	return models.TrackRecommendation{
		TrackID:       id,
		TrackName:     id,
		Artists:       []string{"artist-" + id},
		AudioFeatures: models.AudioFeatures{Energy: &e},
		Protected:     locked,
	}
}

func TestOrderWithNilProviderAssignsAllSixPhases(t *testing.T) {
	recs := make([]models.TrackRecommendation, 0, 20)
	for i := 0; i < 20; i++ {
		recs = append(recs, featureRec(string(rune('a'+i)), float64(i)/20.0, false))
	}

	o := New(nil, "", nil)
	ordered := o.Order(context.Background(), "session-1", recs)

	require.Len(t, ordered, len(recs))

	counts := map[string]int{}
	for _, r := range ordered {
		require.NotEmpty(t, r.Phase)
		counts[r.Phase]++
	}

	sum := 0
	for _, phase := range []Phase{PhaseOpening, PhaseBuild, PhaseMid, PhaseHigh, PhaseDescent, PhaseClosure} {
		sum += counts[string(phase)]
	}
	assert.Equal(t, len(recs), sum)
}

func TestOrderWithNilProviderNeverDropsOrDuplicatesTracks(t *testing.T) {
	recs := []models.TrackRecommendation{
		featureRec("high", 0.9, false),
		featureRec("low", 0.1, false),
		featureRec("mid", 0.5, false),
	}

	o := New(nil, "", nil)
	ordered := o.Order(context.Background(), "session-1", recs)

	require.Len(t, ordered, len(recs))
	seen := map[string]bool{}
	for _, r := range ordered {
		seen[r.TrackID] = true
	}
	assert.True(t, seen["high"])
	assert.True(t, seen["low"])
	assert.True(t, seen["mid"])
}

func TestOrderKeepsLockedTrackWithinItsPhase(t *testing.T) {
	recs := []models.TrackRecommendation{
		featureRec("anchor", 0.85, true),
		featureRec("a", 0.8, false),
		featureRec("b", 0.9, false),
		featureRec("c", 0.82, false),
	}

	o := New(nil, "", nil)
	ordered := o.Order(context.Background(), "session-1", recs)

	var anchorPhase string
	for _, r := range ordered {
		if r.TrackID == "anchor" {
			anchorPhase = r.Phase
		}
	}
	require.NotEmpty(t, anchorPhase)
}

func TestAllocatePhaseDistributionSumsToTotal(t *testing.T) {
	for arc, weights := range arcPhaseWeights {
		for _, total := range []int{0, 1, 5, 7, 20, 33} {
			dist := allocatePhaseDistribution(total, weights)
			sum := 0
			for _, p := range allPhases {
				v, ok := dist[p]
				require.True(t, ok, "arc %s missing phase %s", arc, p)
				sum += v
			}
			assert.Equal(t, total, sum, "arc %s total %d", arc, total)
		}
	}
}

func TestNormalizePhaseDistributionRejectsWrongSum(t *testing.T) {
	raw := map[string]int{
		"opening": 1, "build": 1, "mid": 1, "high": 1, "descent": 1, "closure": 1,
	}
	assert.Nil(t, normalizePhaseDistribution(raw, 10))
	assert.NotNil(t, normalizePhaseDistribution(raw, 6))
}

func TestNormalizePhaseDistributionRejectsMissingPhase(t *testing.T) {
	raw := map[string]int{
		"opening": 2, "build": 2, "mid": 2, "high": 2, "descent": 2,
	}
	assert.Nil(t, normalizePhaseDistribution(raw, 10))
}

func TestFallbackArcStrategyPicksSustainedEnergyForFlatHighEnergy(t *testing.T) {
	assert.Equal(t, ArcSustainedEnergy, fallbackArcStrategy(0.85, 0.1))
}

func TestFallbackArcStrategyPicksAmbientFlowForFlatLowEnergy(t *testing.T) {
	assert.Equal(t, ArcAmbientFlow, fallbackArcStrategy(0.2, 0.1))
}

func TestFallbackArcStrategyPicksRollercoasterForWideRange(t *testing.T) {
	assert.Equal(t, ArcEmotionalRollercoaster, fallbackArcStrategy(0.5, 0.7))
}

func TestOrderPhaseTracksPrefersSmoothTransitions(t *testing.T) {
	tracks := []models.TrackRecommendation{
		featureRec("a", 0.1, false),
		featureRec("c", 0.9, false),
		featureRec("b", 0.5, false),
	}
	analyses := map[string]trackAnalysis{
		"a": {EnergyLevel: 0.1},
		"c": {EnergyLevel: 0.9},
		"b": {EnergyLevel: 0.5},
	}

	ordered := orderPhaseTracks(tracks, analyses)
	require.Len(t, ordered, 3)
	assert.Equal(t, "a", ordered[0].TrackID)
	assert.Equal(t, "b", ordered[1].TrackID)
	assert.Equal(t, "c", ordered[2].TrackID)
}

func TestKeyDistanceWrapsAroundCircleOfKeys(t *testing.T) {
	assert.Equal(t, 1.0, keyDistance(11, 0))
	assert.Equal(t, 6.0, keyDistance(0, 6))
	assert.Equal(t, 0.0, keyDistance(3, 3))
}
