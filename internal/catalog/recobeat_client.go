package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// recoBeatChunkSize is the maximum number of seed tracks RecoBeat's
// recommendation endpoint accepts per request; larger seed sets are
// chunked by the caller and their results merged.
const recoBeatChunkSize = 3

// RecoBeatClient implements SimilarityPort against the RecoBeat seeded
// similarity API.
type RecoBeatClient struct {
	http    *resty.Client
	baseURL string
}

// NewRecoBeatClient builds a RecoBeat adapter rooted at baseURL.
func NewRecoBeatClient(baseURL string) *RecoBeatClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")

	return &RecoBeatClient{http: client, baseURL: baseURL}
}

type recoBeatTrack struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	ArtistIDs  []string `json:"artist_ids"`
	URI        string   `json:"uri"`
	Popularity int      `json:"popularity"`
}

type recoBeatResponse struct {
	Content []recoBeatTrack `json:"content"`
}

// SimilarTracks implements SimilarityPort. RecoBeat's endpoint only takes
// a handful of seeds per call, so seedTrackIDs is chunked into groups of
// recoBeatChunkSize and the results are merged, deduplicating on track ID.
func (c *RecoBeatClient) SimilarTracks(ctx context.Context, seedTrackIDs, negativeSeedIDs []string, limit int) ([]TrackDTO, error) {
	if len(seedTrackIDs) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var merged []TrackDTO

	for start := 0; start < len(seedTrackIDs); start += recoBeatChunkSize {
		end := start + recoBeatChunkSize
		if end > len(seedTrackIDs) {
			end = len(seedTrackIDs)
		}
		chunk := seedTrackIDs[start:end]

		tracks, err := c.requestChunk(ctx, chunk, negativeSeedIDs, limit)
		if err != nil {
			return nil, err
		}
		for _, t := range tracks {
			if _, ok := seen[t.TrackID]; ok {
				continue
			}
			seen[t.TrackID] = struct{}{}
			merged = append(merged, t)
		}
	}

	return merged, nil
}

func (c *RecoBeatClient) requestChunk(ctx context.Context, seedTrackIDs, negativeSeedIDs []string, limit int) ([]TrackDTO, error) {
	var result recoBeatResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"seed_tracks":     strings.Join(seedTrackIDs, ","),
			"negative_tracks": strings.Join(negativeSeedIDs, ","),
			"size":            strconv.Itoa(limit),
		}).
		SetResult(&result).
		Get("/track/recommendation")
	if err != nil {
		return nil, fmt.Errorf("reccobeat request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("reccobeat request returned status %d: %s", resp.StatusCode(), resp.String())
	}

	out := make([]TrackDTO, 0, len(result.Content))
	for _, t := range result.Content {
		out = append(out, TrackDTO{
			TrackID:    t.ID,
			Name:       t.Name,
			Artists:    t.Artists,
			ArtistIDs:  t.ArtistIDs,
			SpotifyURI: t.URI,
			Popularity: t.Popularity,
		})
	}
	return out, nil
}
