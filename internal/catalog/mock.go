package catalog

import "context"

// MockPort is a hand-written Port test double shared across the
// recommender package's tests, following the injectable-func pattern used
// throughout this module's tests.
type MockPort struct {
	SearchTracksFunc           func(ctx context.Context, accessToken, query string, limit int) ([]TrackDTO, error)
	GetArtistTopTracksFunc     func(ctx context.Context, accessToken, artistID, countryHint string) ([]TrackDTO, error)
	GetTrackFunc               func(ctx context.Context, accessToken, trackID string) (TrackDTO, error)
	GetTracksAudioFeaturesFunc func(ctx context.Context, trackIDs []string) (map[string]AudioFeaturesDTO, error)
	SearchArtistFunc           func(ctx context.Context, accessToken, name string, limit int) ([]ArtistDTO, error)
}

func (m *MockPort) SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]TrackDTO, error) {
	if m.SearchTracksFunc != nil {
		return m.SearchTracksFunc(ctx, accessToken, query, limit)
	}
	return nil, nil
}

func (m *MockPort) GetArtistTopTracks(ctx context.Context, accessToken, artistID, countryHint string) ([]TrackDTO, error) {
	if m.GetArtistTopTracksFunc != nil {
		return m.GetArtistTopTracksFunc(ctx, accessToken, artistID, countryHint)
	}
	return nil, nil
}

func (m *MockPort) GetTrack(ctx context.Context, accessToken, trackID string) (TrackDTO, error) {
	if m.GetTrackFunc != nil {
		return m.GetTrackFunc(ctx, accessToken, trackID)
	}
	return TrackDTO{}, nil
}

func (m *MockPort) GetTracksAudioFeatures(ctx context.Context, trackIDs []string) (map[string]AudioFeaturesDTO, error) {
	if m.GetTracksAudioFeaturesFunc != nil {
		return m.GetTracksAudioFeaturesFunc(ctx, trackIDs)
	}
	return map[string]AudioFeaturesDTO{}, nil
}

func (m *MockPort) SearchArtist(ctx context.Context, accessToken, name string, limit int) ([]ArtistDTO, error) {
	if m.SearchArtistFunc != nil {
		return m.SearchArtistFunc(ctx, accessToken, name, limit)
	}
	return nil, nil
}

// MockSimilarityPort is a hand-written SimilarityPort test double.
type MockSimilarityPort struct {
	SimilarTracksFunc func(ctx context.Context, seedTrackIDs, negativeSeedIDs []string, limit int) ([]TrackDTO, error)
}

func (m *MockSimilarityPort) SimilarTracks(ctx context.Context, seedTrackIDs, negativeSeedIDs []string, limit int) ([]TrackDTO, error) {
	if m.SimilarTracksFunc != nil {
		return m.SimilarTracksFunc(ctx, seedTrackIDs, negativeSeedIDs, limit)
	}
	return nil, nil
}
