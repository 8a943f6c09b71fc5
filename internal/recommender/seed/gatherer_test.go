package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodloom/recengine/internal/catalog"
	"github.com/moodloom/recengine/internal/models"
)

func TestGatherFindsAndProtectsUserMentionedTracks(t *testing.T) {
	mock := &catalog.MockPort{
		SearchTracksFunc: func(_ context.Context, _, _ string, _ int) ([]catalog.TrackDTO, error) {
			return []catalog.TrackDTO{{TrackID: "t1", Name: "Karma Police", Artists: []string{"Radiohead"}}}, nil
		},
	}

	g := New(mock)
	intent := &models.IntentAnalysis{
		UserMentionedTracks: []models.MentionedTrack{{TrackName: "Karma Police", ArtistName: "Radiohead"}},
	}
	mood := &models.MoodAnalysis{}

	result, appErr := g.Gather(context.Background(), "session-1", "token", intent, mood)
	require.Nil(t, appErr)
	require.Len(t, result.AnchorTracks, 1)
	assert.True(t, result.AnchorTracks[0].Protected)
	assert.True(t, result.AnchorTracks[0].UserMentioned)
	assert.Equal(t, []string{"t1"}, result.SeedTrackIDs)
}

func TestGatherSkipsUnresolvableMentionedTracks(t *testing.T) {
	mock := &catalog.MockPort{
		SearchTracksFunc: func(_ context.Context, _, _ string, _ int) ([]catalog.TrackDTO, error) {
			return nil, nil
		},
	}

	g := New(mock)
	intent := &models.IntentAnalysis{
		UserMentionedTracks: []models.MentionedTrack{{TrackName: "Unknown Song", ArtistName: "Unknown Artist"}},
	}
	mood := &models.MoodAnalysis{}

	result, appErr := g.Gather(context.Background(), "session-1", "token", intent, mood)
	require.Nil(t, appErr)
	assert.Empty(t, result.AnchorTracks)
}

func TestGatherSeparatesUserMentionedFromRecommendedArtists(t *testing.T) {
	mock := &catalog.MockPort{
		SearchArtistFunc: func(_ context.Context, _, name string, _ int) ([]catalog.ArtistDTO, error) {
			return []catalog.ArtistDTO{{ArtistID: "artist-" + name}}, nil
		},
	}

	g := New(mock)
	intent := &models.IntentAnalysis{UserMentionedArtists: []string{"Radiohead"}}
	mood := &models.MoodAnalysis{ArtistRecommendations: []string{"Boards of Canada"}}

	result, appErr := g.Gather(context.Background(), "session-1", "token", intent, mood)
	require.Nil(t, appErr)
	assert.Equal(t, []string{"artist-Radiohead"}, result.UserMentionedArtistIDs)
	assert.Equal(t, []string{"artist-Boards of Canada"}, result.RecommendedArtistIDs)
}

func TestGatherFallsBackToKeywordSearchWhenArtistDiscoveryIsSparse(t *testing.T) {
	var searchedQuery string
	mock := &catalog.MockPort{
		SearchArtistFunc: func(_ context.Context, _, _ string, _ int) ([]catalog.ArtistDTO, error) {
			return nil, nil
		},
		SearchTracksFunc: func(_ context.Context, _, query string, _ int) ([]catalog.TrackDTO, error) {
			searchedQuery = query
			return []catalog.TrackDTO{{TrackID: "fallback1", Name: "Fallback Track"}}, nil
		},
	}

	g := New(mock)
	intent := &models.IntentAnalysis{}
	mood := &models.MoodAnalysis{SearchKeywords: []string{"late night", "driving"}}

	result, appErr := g.Gather(context.Background(), "session-1", "token", intent, mood)
	require.Nil(t, appErr)
	require.Len(t, result.FallbackSearchTracks, 1)
	assert.Equal(t, "fallback1", result.FallbackSearchTracks[0].TrackID)
	assert.Equal(t, "late night driving", searchedQuery)
}

func TestComputeNegativeSeedsExcludesLockedTracks(t *testing.T) {
	energyLow, energyHigh := 0.1, 0.95
	recs := []models.TrackRecommendation{
		{TrackID: "bad-fit", AudioFeatures: models.AudioFeatures{Energy: &energyLow}},
		{TrackID: "protected", Protected: true, AudioFeatures: models.AudioFeatures{Energy: &energyLow}},
		{TrackID: "good-fit", AudioFeatures: models.AudioFeatures{Energy: &energyHigh}},
	}
	target := map[string]models.FeatureRange{"energy": {Min: 0.9, Max: 0.9}}

	negatives := ComputeNegativeSeeds(recs, target, map[string]float64{"energy": 1.0}, 5)
	assert.Contains(t, negatives, "bad-fit")
	assert.NotContains(t, negatives, "protected")
}
