package improvement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moodloom/recengine/internal/models"
	"github.com/moodloom/recengine/internal/recommender/quality"
)

func TestFallbackDecideFiltersWhenOutliersPresent(t *testing.T) {
	d := New(nil, "", 0.65, nil)
	eval := quality.Evaluation{
		CohesionScore:   0.8,
		OutlierTrackIDs: []string{"t1"},
		TrackScores:     map[string]float64{"t1": 0.1, "t2": 0.9, "t3": 0.9, "t4": 0.9, "t5": 0.9, "t6": 0.9, "t7": 0.9, "t8": 0.9, "t9": 0.9, "t10": 0.9, "t11": 0.9, "t12": 0.9, "t13": 0.9, "t14": 0.9, "t15": 0.9, "t16": 0.9, "t17": 0.9},
	}
	target := models.PlaylistTarget{TargetCount: 20, MinCount: 15}

	strategies := d.fallbackDecide(eval, target)
	assert.Contains(t, strategies, StrategyFilterAndReplace)
	assert.Contains(t, strategies, StrategyGenerateMore)
}

func TestFallbackDecideAdjustsWeightsBelowCohesionThreshold(t *testing.T) {
	d := New(nil, "", 0.65, nil)
	eval := quality.Evaluation{CohesionScore: 0.5, TrackScores: map[string]float64{}}
	target := models.PlaylistTarget{TargetCount: 20, MinCount: 15}

	strategies := d.fallbackDecide(eval, target)
	assert.Contains(t, strategies, StrategyAdjustFeatureWeights)
}

func TestFallbackDecideDefaultsWhenNothingTriggers(t *testing.T) {
	d := New(nil, "", 0.65, nil)
	trackScores := map[string]float64{}
	for i := 0; i < 20; i++ {
		trackScores[string(rune('a'+i))] = 0.9
	}
	eval := quality.Evaluation{CohesionScore: 0.9, TrackScores: trackScores}
	target := models.PlaylistTarget{TargetCount: 20, MinCount: 15}

	strategies := d.fallbackDecide(eval, target)
	assert.Equal(t, []Strategy{StrategyAdjustFeatureWeights, StrategyGenerateMore}, strategies)
}

func TestAdjustFeatureWeightCapsAtFive(t *testing.T) {
	assert.Equal(t, 5.0, AdjustFeatureWeight(4.9))
	assert.InDelta(t, 4.8, AdjustFeatureWeight(4.5), 0.0001)
	assert.InDelta(t, 4.8, AdjustFeatureWeight(0), 0.0001)
}
