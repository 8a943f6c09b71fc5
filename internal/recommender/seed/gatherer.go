// Package seed resolves a mood/intent analysis into concrete seed and
// negative-seed track IDs the recommendation generator fans out from:
// user-mentioned tracks (the only anchors it produces) and
// mentioned/recommended artist IDs. It gathers no genre anchors.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moodloom/recengine/internal/apperrors"
	"github.com/moodloom/recengine/internal/catalog"
	"github.com/moodloom/recengine/internal/logger"
	"github.com/moodloom/recengine/internal/models"
	"github.com/moodloom/recengine/internal/recommender/quality"
)

const stageName = "seed_gatherer"

// Gatherer resolves intent/mood analyses into anchor tracks and seed IDs.
type Gatherer struct {
	catalogPort catalog.Port
}

// New builds a Gatherer.
func New(catalogPort catalog.Port) *Gatherer {
	return &Gatherer{catalogPort: catalogPort}
}

// fallbackArtistThreshold is the minimum number of resolved artist IDs
// below which artist discovery is considered too sparse and a
// search-keyword fallback kicks in.
const fallbackArtistThreshold = 2

// fallbackSearchLimit bounds the keyword-search fallback's result count.
const fallbackSearchLimit = 10

// Result bundles everything the recommendation generator needs from seed
// gathering.
type Result struct {
	AnchorTracks []models.TrackRecommendation
	SeedTrackIDs []string

	// UserMentionedArtistIDs and RecommendedArtistIDs are kept separate
	// so the generator can tag resulting tracks with UserMentionedArtist,
	// letting EnforceSourceRatio throttle the user-mentioned-artist share
	// of the artist_discovery partition independently of track-level
	// UserMentioned anchors.
	UserMentionedArtistIDs []string
	RecommendedArtistIDs   []string

	// FallbackSearchTracks is populated only when artist discovery
	// resolves too few artists, searching by the mood analysis's
	// search keywords instead.
	FallbackSearchTracks []catalog.TrackDTO
}

// Gather searches for every user-mentioned track (protected, unlimited,
// always kept), resolves mentioned/recommended artists to IDs for
// artist-discovery fan-out, and returns the seed set the recommendation
// generator needs.
func (g *Gatherer) Gather(ctx context.Context, sessionID, accessToken string, intentAnalysis *models.IntentAnalysis, moodAnalysis *models.MoodAnalysis) (Result, *apperrors.AppError) {
	fields := logger.WithSession(sessionID, stageName)
	start := time.Now()

	var result Result

	for _, mention := range intentAnalysis.UserMentionedTracks {
		track, found, err := g.searchMentionedTrack(ctx, accessToken, mention)
		if err != nil {
			logger.Warn(fmt.Sprintf("error searching for mentioned track %q", mention.TrackName), fields)
			continue
		}
		if !found {
			logger.Warn(fmt.Sprintf("could not find mentioned track %q by %q", mention.TrackName, mention.ArtistName), fields)
			continue
		}
		result.AnchorTracks = append(result.AnchorTracks, track)
		result.SeedTrackIDs = append(result.SeedTrackIDs, track.TrackID)
	}

	for _, name := range dedupeStrings(intentAnalysis.UserMentionedArtists) {
		artists, err := g.catalogPort.SearchArtist(ctx, accessToken, name, 1)
		if err != nil || len(artists) == 0 {
			logger.Warn(fmt.Sprintf("could not resolve user-mentioned artist %q", name), fields)
			continue
		}
		result.UserMentionedArtistIDs = append(result.UserMentionedArtistIDs, artists[0].ArtistID)
	}

	for _, name := range dedupeStrings(moodAnalysis.ArtistRecommendations) {
		artists, err := g.catalogPort.SearchArtist(ctx, accessToken, name, 1)
		if err != nil || len(artists) == 0 {
			logger.Warn(fmt.Sprintf("could not resolve recommended artist %q", name), fields)
			continue
		}
		result.RecommendedArtistIDs = append(result.RecommendedArtistIDs, artists[0].ArtistID)
	}

	totalArtists := len(result.UserMentionedArtistIDs) + len(result.RecommendedArtistIDs)
	if totalArtists < fallbackArtistThreshold && len(moodAnalysis.SearchKeywords) > 0 {
		query := strings.Join(moodAnalysis.SearchKeywords, " ")
		tracks, err := g.catalogPort.SearchTracks(ctx, accessToken, query, fallbackSearchLimit)
		if err != nil {
			logger.Warn(fmt.Sprintf("keyword fallback search failed for %q", query), fields)
		} else {
			result.FallbackSearchTracks = tracks
		}
	}

	logger.LogStageCompletion(stageName, time.Since(start), len(result.AnchorTracks)+totalArtists, fields)
	return result, nil
}

func (g *Gatherer) searchMentionedTrack(ctx context.Context, accessToken string, mention models.MentionedTrack) (models.TrackRecommendation, bool, error) {
	query := fmt.Sprintf("track:%s artist:%s", mention.TrackName, mention.ArtistName)
	results, err := g.catalogPort.SearchTracks(ctx, accessToken, query, 3)
	if err != nil {
		return models.TrackRecommendation{}, false, err
	}
	if len(results) == 0 {
		return models.TrackRecommendation{}, false, nil
	}

	best := results[0]
	var uri *string
	if best.SpotifyURI != "" {
		u := best.SpotifyURI
		uri = &u
	}
	anchorType := models.AnchorUser

	return models.TrackRecommendation{
		TrackID:             best.TrackID,
		TrackName:           best.Name,
		Artists:             best.Artists,
		SpotifyURI:          uri,
		ConfidenceScore:     1.0,
		Source:              models.SourceAnchorTrack,
		UserMentioned:       true,
		UserMentionedArtist: false,
		Protected:           true,
		AnchorType:          &anchorType,
	}, true, nil
}

// ComputeNegativeSeeds ranks current recommendations by cohesion and
// returns the IDs of the worst-fitting non-locked tracks, for use as
// negative seeds in RecoBeat's next similarity request.
func ComputeNegativeSeeds(recs []models.TrackRecommendation, targetFeatures map[string]models.FeatureRange, featureWeights map[string]float64, limit int) []string {
	type scored struct {
		id    string
		score float64
	}

	var candidates []scored
	for _, rec := range recs {
		if rec.IsLocked() {
			continue
		}
		score := quality.Cohesion(rec.AudioFeatures.AsMap(), targetFeatures, featureWeights, rec.Source, quality.ToleranceBase)
		candidates = append(candidates, scored{id: rec.TrackID, score: score})
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].score < candidates[i].score {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}

	if limit > len(candidates) {
		limit = len(candidates)
	}

	out := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, candidates[i].id)
	}
	return out
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
