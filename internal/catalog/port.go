// Package catalog defines the CatalogPort boundary the recommender
// pipeline uses to reach external music catalog and similarity services,
// plus the concrete Spotify- and RecoBeat-shaped adapters.
package catalog

import "context"

// TrackDTO is the catalog-side track shape, normalized from whichever
// backing client produced it before a recommender stage wraps it into a
// models.TrackRecommendation. ArtistCountry is not a real Spotify field
// (the Web API never exposes one) — it is a region tag derived from the
// primary artist's genres, good enough for the regional filter's
// exclusion matching but not a geographic fact.
type TrackDTO struct {
	TrackID          string
	Name             string
	Artists          []string
	ArtistIDs        []string
	SpotifyURI       string
	Popularity       int
	ReleaseYear      *int
	ArtistGenres     []string
	ArtistCountry    string
	Acousticness     *float64
	Danceability     *float64
	Energy           *float64
	Instrumentalness *float64
	Liveness         *float64
	Loudness         *float64
	Speechiness      *float64
	Tempo            *float64
	Valence          *float64
}

// ArtistDTO is the catalog-side artist shape.
type ArtistDTO struct {
	ArtistID   string
	Name       string
	Genres     []string
	Popularity int
}

// AudioFeaturesDTO is the per-track audio-feature response shape returned
// by the batched audio-features lookup.
type AudioFeaturesDTO struct {
	Acousticness     *float64
	Danceability     *float64
	Energy           *float64
	Instrumentalness *float64
	Liveness         *float64
	Loudness         *float64
	Speechiness      *float64
	Tempo            *float64
	Valence          *float64
	Popularity       *int
}

// Port is the abstract catalog boundary the core recommender depends on.
// SpotifyCatalogClient is the only production implementation; tests use a
// hand-written mock.
type Port interface {
	SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]TrackDTO, error)
	GetArtistTopTracks(ctx context.Context, accessToken, artistID, countryHint string) ([]TrackDTO, error)
	GetTrack(ctx context.Context, accessToken, trackID string) (TrackDTO, error)
	GetTracksAudioFeatures(ctx context.Context, trackIDs []string) (map[string]AudioFeaturesDTO, error)
	SearchArtist(ctx context.Context, accessToken, name string, limit int) ([]ArtistDTO, error)
}

// SimilarityPort is the abstract boundary for the RecoBeat-shaped seeded
// similarity service, kept separate from Port because it is not part of
// the Spotify-shaped catalog surface and has its own chunking contract.
type SimilarityPort interface {
	// SimilarTracks returns tracks similar to seedTrackIDs, with
	// negativeSeedIDs excluded from the result.
	SimilarTracks(ctx context.Context, seedTrackIDs, negativeSeedIDs []string, limit int) ([]TrackDTO, error)
}
