package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	spotify "github.com/zmb3/spotify/v2"
)

const (
	clientRateLimitPerMinute = 120
	clientRateBurst          = 20
)

// rateLimitedTransport enforces the CatalogPort's internal client rate
// limit (token bucket, 120 req/min, burst 20) ahead of every Spotify call,
// independent of the process-wide top-tracks gate.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// SpotifyCatalogClient implements Port against the Spotify Web API.
type SpotifyCatalogClient struct {
	limiter       *rate.Limiter
	topTracksGate *TopTracksGate
}

// NewSpotifyCatalogClient builds a client-side rate-limited Spotify
// adapter. The process-wide top-tracks gate is shared across every
// workflow session, so it is injected rather than owned per client.
func NewSpotifyCatalogClient(topTracksGate *TopTracksGate) *SpotifyCatalogClient {
	return &SpotifyCatalogClient{
		limiter:       rate.NewLimiter(rate.Limit(float64(clientRateLimitPerMinute)/60.0), clientRateBurst),
		topTracksGate: topTracksGate,
	}
}

// clientFor builds a per-call spotify.Client authorized with the caller's
// access token, since CatalogPort methods are stateless with respect to
// which user's token is in play.
func (c *SpotifyCatalogClient) clientFor(ctx context.Context, accessToken string) *spotify.Client {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	httpClient := oauth2.NewClient(ctx, tokenSource)
	httpClient.Transport = &rateLimitedTransport{base: httpClient.Transport, limiter: c.limiter}
	return spotify.New(httpClient)
}

// SearchTracks implements Port.
func (c *SpotifyCatalogClient) SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]TrackDTO, error) {
	client := c.clientFor(ctx, accessToken)

	results, err := client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("spotify search failed: %w", err)
	}
	if results.Tracks == nil {
		return nil, nil
	}

	out := make([]TrackDTO, 0, len(results.Tracks.Tracks))
	for _, t := range results.Tracks.Tracks {
		dto := fullTrackToDTO(t)
		c.enrichArtistMetadata(ctx, client, &dto)
		out = append(out, dto)
	}
	return out, nil
}

// GetArtistTopTracks implements Port, gated by the process-wide
// artist-top-tracks rate limiter (at most one request per 1.5s globally).
func (c *SpotifyCatalogClient) GetArtistTopTracks(ctx context.Context, accessToken, artistID, countryHint string) ([]TrackDTO, error) {
	if err := c.topTracksGate.Wait(ctx); err != nil {
		return nil, err
	}

	client := c.clientFor(ctx, accessToken)
	country := countryHint
	if country == "" {
		country = "US"
	}

	tracks, err := client.GetArtistsTopTracks(ctx, spotify.ID(artistID), country)
	if err != nil {
		return nil, fmt.Errorf("spotify artist top tracks failed: %w", err)
	}

	genres, region := c.lookupArtistGenresAndRegion(ctx, client, artistID)

	out := make([]TrackDTO, 0, len(tracks))
	for _, t := range tracks {
		dto := fullTrackToDTO(t)
		dto.ArtistGenres = genres
		dto.ArtistCountry = region
		out = append(out, dto)
	}
	return out, nil
}

// GetTrack implements Port.
func (c *SpotifyCatalogClient) GetTrack(ctx context.Context, accessToken, trackID string) (TrackDTO, error) {
	client := c.clientFor(ctx, accessToken)

	track, err := client.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		return TrackDTO{}, fmt.Errorf("spotify get track failed: %w", err)
	}
	dto := fullTrackToDTO(*track)
	c.enrichArtistMetadata(ctx, client, &dto)
	return dto, nil
}

// enrichArtistMetadata fills in a track DTO's genre and region fields from
// its primary artist, since neither is present on the track resource
// itself. Best-effort: a lookup failure leaves the DTO's genre/region
// fields empty rather than failing the whole call.
func (c *SpotifyCatalogClient) enrichArtistMetadata(ctx context.Context, client *spotify.Client, dto *TrackDTO) {
	if len(dto.ArtistIDs) == 0 {
		return
	}
	genres, region := c.lookupArtistGenresAndRegion(ctx, client, dto.ArtistIDs[0])
	dto.ArtistGenres = genres
	dto.ArtistCountry = region
}

func (c *SpotifyCatalogClient) lookupArtistGenresAndRegion(ctx context.Context, client *spotify.Client, artistID string) ([]string, string) {
	artist, err := client.GetArtist(ctx, spotify.ID(artistID))
	if err != nil || artist == nil {
		return nil, ""
	}
	return artist.Genres, regionFromGenres(artist.Genres)
}

// GetTracksAudioFeatures implements Port as a single batched lookup, the
// shape the recommender's cohesion scoring expects.
func (c *SpotifyCatalogClient) GetTracksAudioFeatures(ctx context.Context, trackIDs []string) (map[string]AudioFeaturesDTO, error) {
	if len(trackIDs) == 0 {
		return map[string]AudioFeaturesDTO{}, nil
	}

	client := c.clientFor(ctx, "")
	ids := make([]spotify.ID, 0, len(trackIDs))
	for _, id := range trackIDs {
		ids = append(ids, spotify.ID(id))
	}

	features, err := client.GetAudioFeatures(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("spotify audio features failed: %w", err)
	}

	out := make(map[string]AudioFeaturesDTO, len(features))
	for i, f := range features {
		if f == nil || i >= len(trackIDs) {
			continue
		}
		acousticness := float64(f.Acousticness)
		danceability := float64(f.Danceability)
		energy := float64(f.Energy)
		instrumentalness := float64(f.Instrumentalness)
		liveness := float64(f.Liveness)
		loudness := float64(f.Loudness)
		speechiness := float64(f.Speechiness)
		tempo := float64(f.Tempo)
		valence := float64(f.Valence)

		out[trackIDs[i]] = AudioFeaturesDTO{
			Acousticness:     &acousticness,
			Danceability:     &danceability,
			Energy:           &energy,
			Instrumentalness: &instrumentalness,
			Liveness:         &liveness,
			Loudness:         &loudness,
			Speechiness:      &speechiness,
			Tempo:            &tempo,
			Valence:          &valence,
		}
	}
	return out, nil
}

// SearchArtist implements Port.
func (c *SpotifyCatalogClient) SearchArtist(ctx context.Context, accessToken, name string, limit int) ([]ArtistDTO, error) {
	client := c.clientFor(ctx, accessToken)

	results, err := client.Search(ctx, name, spotify.SearchTypeArtist, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("spotify artist search failed: %w", err)
	}
	if results.Artists == nil {
		return nil, nil
	}

	out := make([]ArtistDTO, 0, len(results.Artists.Artists))
	for _, a := range results.Artists.Artists {
		out = append(out, ArtistDTO{
			ArtistID:   a.ID.String(),
			Name:       a.Name,
			Genres:     a.Genres,
			Popularity: int(a.Popularity),
		})
	}
	return out, nil
}

func fullTrackToDTO(t spotify.FullTrack) TrackDTO {
	artists := make([]string, 0, len(t.Artists))
	artistIDs := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
		artistIDs = append(artistIDs, a.ID.String())
	}

	return TrackDTO{
		TrackID:     t.ID.String(),
		Name:        t.Name,
		Artists:     artists,
		ArtistIDs:   artistIDs,
		SpotifyURI:  string(t.URI),
		Popularity:  int(t.Popularity),
		ReleaseYear: parseReleaseYear(t.Album.ReleaseDate),
	}
}

// parseReleaseYear extracts the leading year from a Spotify release_date
// string, which may carry year, year-month, or full-date precision.
func parseReleaseYear(releaseDate string) *int {
	if len(releaseDate) < 4 {
		return nil
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil {
		return nil
	}
	return &year
}
