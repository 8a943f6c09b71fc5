package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddNegativeSeedCapsAtFive(t *testing.T) {
	w := NewWorkflowState("session-1", "chill rainy day vibes")
	for i := 0; i < 8; i++ {
		w.AddNegativeSeed(string(rune('a' + i)))
	}
	assert.Len(t, w.NegativeSeeds, 5)
	assert.Equal(t, []string{"d", "e", "f", "g", "h"}, w.NegativeSeeds)
}

func TestAddNegativeSeedSkipsProtectedTrack(t *testing.T) {
	w := NewWorkflowState("session-1", "sad songs for a breakup")
	w.Recommendations = append(w.Recommendations, TrackRecommendation{
		TrackID:   "protected-track",
		Protected: true,
	})

	w.AddNegativeSeed("protected-track")

	assert.Empty(t, w.NegativeSeeds)
}

func TestAddNegativeSeedSkipsUserMentionedTrack(t *testing.T) {
	w := NewWorkflowState("session-1", "songs like bohemian rhapsody")
	w.Recommendations = append(w.Recommendations, TrackRecommendation{
		TrackID:       "mentioned-track",
		UserMentioned: true,
	})

	w.AddNegativeSeed("mentioned-track")

	assert.Empty(t, w.NegativeSeeds)
}

func TestAddNegativeSeedDeduplicates(t *testing.T) {
	w := NewWorkflowState("session-1", "upbeat workout mix")
	w.AddNegativeSeed("track-1")
	w.AddNegativeSeed("track-1")

	assert.Equal(t, []string{"track-1"}, w.NegativeSeeds)
}

func TestTransitionToRespectsTerminalStates(t *testing.T) {
	w := NewWorkflowState("session-1", "focus music for deep work")

	assert.True(t, w.TransitionTo(StatusGatheringSeeds))
	assert.True(t, w.TransitionTo(StatusRecommendationsReady))
	assert.True(t, w.Status.IsTerminal())

	assert.False(t, w.TransitionTo(StatusGatheringSeeds))
	assert.Equal(t, StatusRecommendationsReady, w.Status)
}

func TestIsLockedCoversBothProtectedAndUserMentioned(t *testing.T) {
	assert.True(t, TrackRecommendation{Protected: true}.IsLocked())
	assert.True(t, TrackRecommendation{UserMentioned: true}.IsLocked())
	assert.False(t, TrackRecommendation{}.IsLocked())
}

func TestAudioFeaturesAsMapOnlyIncludesPopulatedFields(t *testing.T) {
	energy := 0.8
	af := AudioFeatures{Energy: &energy}

	m := af.AsMap()

	assert.Equal(t, map[string]float64{"energy": 0.8}, m)
	assert.False(t, af.IsEmpty())
	assert.True(t, AudioFeatures{}.IsEmpty())
}

func TestFeatureRangeMid(t *testing.T) {
	r := FeatureRange{Min: 0.2, Max: 0.6}
	assert.InDelta(t, 0.4, r.Mid(), 0.0001)
}
