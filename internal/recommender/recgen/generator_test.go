package recgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodloom/recengine/internal/catalog"
	"github.com/moodloom/recengine/internal/models"
)

func TestGenerateCombinesSimilarityAndArtistResults(t *testing.T) {
	catalogMock := &catalog.MockPort{
		GetArtistTopTracksFunc: func(_ context.Context, _, artistID, _ string) ([]catalog.TrackDTO, error) {
			return []catalog.TrackDTO{{TrackID: "artist-track", Name: "Artist Track", Artists: []string{artistID}}}, nil
		},
	}
	similarityMock := &catalog.MockSimilarityPort{
		SimilarTracksFunc: func(_ context.Context, _, _ []string, _ int) ([]catalog.TrackDTO, error) {
			return []catalog.TrackDTO{{TrackID: "similar-track", Name: "Similar Track", Artists: []string{"Someone"}}}, nil
		},
	}

	gen := New(catalogMock, similarityMock, 2)
	input := Input{
		SeedTrackIDs:         []string{"seed1"},
		RecommendedArtistIDs: []string{"artist1"},
		Limit:                10,
	}

	recs, appErr := gen.Generate(context.Background(), "session-1", input, nil, nil, nil)
	require.Nil(t, appErr)
	require.Len(t, recs, 2)

	var sources []models.RecommendationSource
	for _, r := range recs {
		sources = append(sources, r.Source)
	}
	assert.Contains(t, sources, models.SourceArtistDiscovery)
	assert.Contains(t, sources, models.SourceReccobeat)
}

func TestGenerateEnrichesMissingAudioFeaturesBeforeScoring(t *testing.T) {
	energy := 0.8
	catalogMock := &catalog.MockPort{
		GetArtistTopTracksFunc: func(_ context.Context, _, artistID, _ string) ([]catalog.TrackDTO, error) {
			return []catalog.TrackDTO{{TrackID: "artist-track", Name: "Artist Track", Artists: []string{artistID}}}, nil
		},
		GetTracksAudioFeaturesFunc: func(_ context.Context, trackIDs []string) (map[string]catalog.AudioFeaturesDTO, error) {
			require.Contains(t, trackIDs, "artist-track")
			return map[string]catalog.AudioFeaturesDTO{
				"artist-track": {Energy: &energy},
			}, nil
		},
	}

	gen := New(catalogMock, nil, 0)
	input := Input{RecommendedArtistIDs: []string{"artist1"}, Limit: 10}

	recs, appErr := gen.Generate(context.Background(), "session-1", input, nil, nil, nil)
	require.Nil(t, appErr)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].AudioFeatures.Energy)
	assert.Equal(t, 0.8, *recs[0].AudioFeatures.Energy)
}

func TestGenerateFiltersCandidatesByFilterContext(t *testing.T) {
	catalogMock := &catalog.MockPort{
		GetArtistTopTracksFunc: func(_ context.Context, _, artistID, _ string) ([]catalog.TrackDTO, error) {
			return []catalog.TrackDTO{
				{TrackID: "excluded", Name: "Excluded Track", Artists: []string{artistID}, ArtistCountry: "southeast_asian"},
				{TrackID: "allowed", Name: "Allowed Track", Artists: []string{artistID}},
			}, nil
		},
	}

	gen := New(catalogMock, nil, 0)
	input := Input{
		RecommendedArtistIDs: []string{"artist1"},
		Limit:                10,
		Filters:              FilterContext{ExcludedRegions: []string{"southeast_asian"}},
	}

	recs, appErr := gen.Generate(context.Background(), "session-1", input, nil, nil, nil)
	require.Nil(t, appErr)
	require.Len(t, recs, 1)
	assert.Equal(t, "allowed", recs[0].TrackID)
}

func TestCapPerArtistNeverDropsLockedTracks(t *testing.T) {
	recs := []models.TrackRecommendation{
		{TrackID: "t1", Artists: []string{"A"}, Protected: true},
		{TrackID: "t2", Artists: []string{"A"}},
		{TrackID: "t3", Artists: []string{"A"}},
		{TrackID: "t4", Artists: []string{"A"}},
	}

	capped := capPerArtist(recs, 1)
	assert.Len(t, capped, 2, "protected track plus one allowed non-locked track")
}
