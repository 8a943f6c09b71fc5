package recgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moodloom/recengine/internal/apperrors"
	"github.com/moodloom/recengine/internal/catalog"
	"github.com/moodloom/recengine/internal/logger"
	"github.com/moodloom/recengine/internal/models"
)

const stageName = "recommendation_generator"

// sourcePrior is the baseline confidence credited to a track purely by
// virtue of where it came from, before cohesion is blended in.
var sourcePrior = map[models.RecommendationSource]float64{
	models.SourceAnchorTrack:     1.0,
	models.SourceArtistDiscovery: 0.85,
	models.SourceReccobeat:       0.7,
}

// ConfidenceScorer computes a track's confidence score, the weighted blend
// of feature cohesion and source trust. It is a function type so quality
// scoring (which imports recgen's models but not the reverse) can be
// injected without an import cycle.
type ConfidenceScorer func(audioFeatures map[string]float64, targetFeatures map[string]models.FeatureRange, featureWeights map[string]float64, source models.RecommendationSource) float64

// Generator produces candidate recommendations for a gathered seed set by
// fanning out concurrently across RecoBeat similarity and Spotify artist
// discovery.
type Generator struct {
	catalogPort    catalog.Port
	similarityPort catalog.SimilarityPort
	maxPerArtist   int
}

// New builds a Generator.
func New(catalogPort catalog.Port, similarityPort catalog.SimilarityPort, maxPerArtist int) *Generator {
	return &Generator{catalogPort: catalogPort, similarityPort: similarityPort, maxPerArtist: maxPerArtist}
}

// Input bundles the seeds and context a generation pass needs.
type Input struct {
	AccessToken            string
	SeedTrackIDs           []string
	NegativeSeedIDs        []string
	UserMentionedArtistIDs []string
	RecommendedArtistIDs   []string
	FallbackSearchTracks   []catalog.TrackDTO
	AnchorTracks           []models.TrackRecommendation
	Limit                  int
	CountryHint            string
	Filters                FilterContext
}

// Generate fans out to RecoBeat similarity and Spotify artist-top-tracks
// concurrently, normalizes every result into a TrackRecommendation tagged
// with its source, and caps per-artist representation before returning.
func (g *Generator) Generate(ctx context.Context, sessionID string, input Input, scorer ConfidenceScorer, targetFeatures map[string]models.FeatureRange, featureWeights map[string]float64) ([]models.TrackRecommendation, *apperrors.AppError) {
	fields := logger.WithSession(sessionID, stageName)
	start := time.Now()

	group, gctx := errgroup.WithContext(ctx)
	var similarityResults []catalog.TrackDTO
	var userMentionedArtistResults, recommendedArtistResults []catalog.TrackDTO
	var mu sync.Mutex

	if g.similarityPort != nil && len(input.SeedTrackIDs) > 0 {
		group.Go(func() error {
			results, err := g.similarityPort.SimilarTracks(gctx, input.SeedTrackIDs, input.NegativeSeedIDs, input.Limit)
			if err != nil {
				return apperrors.Wrap(apperrors.KindRetryableTransient, stageName, "reccobeat similarity failed", err)
			}
			similarityResults = results
			return nil
		})
	}

	fanOutArtists := func(artistIDs []string, dest *[]catalog.TrackDTO) {
		for _, artistID := range artistIDs {
			artistID := artistID
			group.Go(func() error {
				tracks, err := g.catalogPort.GetArtistTopTracks(gctx, input.AccessToken, artistID, input.CountryHint)
				if err != nil {
					logger.Warn(fmt.Sprintf("artist top tracks failed for %s", artistID), fields)
					return nil
				}
				mu.Lock()
				*dest = append(*dest, tracks...)
				mu.Unlock()
				return nil
			})
		}
	}

	if g.catalogPort != nil {
		fanOutArtists(input.UserMentionedArtistIDs, &userMentionedArtistResults)
		fanOutArtists(input.RecommendedArtistIDs, &recommendedArtistResults)
	}

	if err := group.Wait(); err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			return nil, appErr
		}
		return nil, apperrors.Wrap(apperrors.KindFatal, stageName, "generation fan-out failed", err)
	}

	userMentionedArtistResults = filterCandidates(userMentionedArtistResults, input.Filters, sessionID)
	recommendedArtistResults = filterCandidates(recommendedArtistResults, input.Filters, sessionID)
	fallbackSearchTracks := filterCandidates(input.FallbackSearchTracks, input.Filters, sessionID)
	similarityResults = filterCandidates(similarityResults, input.Filters, sessionID)

	if g.catalogPort != nil {
		g.enrichAudioFeatures(ctx, sessionID, userMentionedArtistResults, recommendedArtistResults, fallbackSearchTracks, similarityResults)
	}

	var recs []models.TrackRecommendation
	recs = append(recs, input.AnchorTracks...)
	recs = append(recs, toRecommendations(userMentionedArtistResults, models.SourceArtistDiscovery, true, scorer, targetFeatures, featureWeights)...)
	recs = append(recs, toRecommendations(recommendedArtistResults, models.SourceArtistDiscovery, false, scorer, targetFeatures, featureWeights)...)
	recs = append(recs, toRecommendations(fallbackSearchTracks, models.SourceArtistDiscovery, false, scorer, targetFeatures, featureWeights)...)
	recs = append(recs, toRecommendations(similarityResults, models.SourceReccobeat, false, scorer, targetFeatures, featureWeights)...)

	recs = capPerArtist(recs, g.maxPerArtist)

	logger.LogStageCompletion(stageName, time.Since(start), len(recs), fields)
	return recs, nil
}

func toRecommendations(tracks []catalog.TrackDTO, source models.RecommendationSource, userMentionedArtist bool, scorer ConfidenceScorer, targetFeatures map[string]models.FeatureRange, featureWeights map[string]float64) []models.TrackRecommendation {
	recs := make([]models.TrackRecommendation, 0, len(tracks))
	for _, t := range tracks {
		audioFeatures := dtoToAudioFeatures(t)
		confidence := sourcePrior[source]
		if scorer != nil {
			confidence = scorer(audioFeatures.AsMap(), targetFeatures, featureWeights, source) * 0.7
			confidence += sourcePrior[source] * 0.3
		}

		var uri *string
		if t.SpotifyURI != "" {
			u := t.SpotifyURI
			uri = &u
		}

		recs = append(recs, models.TrackRecommendation{
			TrackID:             t.TrackID,
			TrackName:           t.Name,
			Artists:             t.Artists,
			SpotifyURI:          uri,
			AudioFeatures:       audioFeatures,
			ConfidenceScore:     confidence,
			Source:              source,
			UserMentionedArtist: userMentionedArtist,
			ReleaseYear:         t.ReleaseYear,
		})
	}
	return recs
}

// enrichAudioFeatures batch-fetches audio features for every candidate
// across pools that doesn't already carry them (artist-top-tracks and
// RecoBeat DTOs arrive with none), mutating each pool's tracks in place so
// cohesion scoring has real feature data instead of always falling back to
// the empty-features source prior.
func (g *Generator) enrichAudioFeatures(ctx context.Context, sessionID string, pools ...[]catalog.TrackDTO) {
	seen := make(map[string]struct{})
	var ids []string
	for _, pool := range pools {
		for _, t := range pool {
			if t.Energy != nil {
				continue
			}
			if _, ok := seen[t.TrackID]; ok {
				continue
			}
			seen[t.TrackID] = struct{}{}
			ids = append(ids, t.TrackID)
		}
	}
	if len(ids) == 0 {
		return
	}

	features, err := g.catalogPort.GetTracksAudioFeatures(ctx, ids)
	if err != nil {
		logger.Warn("batch audio features lookup failed", logger.WithSession(sessionID, stageName))
		return
	}

	for _, pool := range pools {
		for i := range pool {
			if pool[i].Energy != nil {
				continue
			}
			f, ok := features[pool[i].TrackID]
			if !ok {
				continue
			}
			pool[i].Acousticness = f.Acousticness
			pool[i].Danceability = f.Danceability
			pool[i].Energy = f.Energy
			pool[i].Instrumentalness = f.Instrumentalness
			pool[i].Liveness = f.Liveness
			pool[i].Loudness = f.Loudness
			pool[i].Speechiness = f.Speechiness
			pool[i].Tempo = f.Tempo
			pool[i].Valence = f.Valence
		}
	}
}

func dtoToAudioFeatures(t catalog.TrackDTO) models.AudioFeatures {
	return models.AudioFeatures{
		Acousticness:     t.Acousticness,
		Danceability:     t.Danceability,
		Energy:           t.Energy,
		Instrumentalness: t.Instrumentalness,
		Liveness:         t.Liveness,
		Loudness:         t.Loudness,
		Speechiness:      t.Speechiness,
		Tempo:            t.Tempo,
		Valence:          t.Valence,
		Popularity:       &t.Popularity,
	}
}

// capPerArtist enforces the maximum number of tracks any single artist may
// contribute, always keeping locked (protected/user-mentioned) tracks
// regardless of the cap.
func capPerArtist(recs []models.TrackRecommendation, maxPerArtist int) []models.TrackRecommendation {
	if maxPerArtist <= 0 {
		return recs
	}

	counts := make(map[string]int)
	out := make([]models.TrackRecommendation, 0, len(recs))

	for _, rec := range recs {
		if rec.IsLocked() {
			out = append(out, rec)
			continue
		}

		primaryArtist := ""
		if len(rec.Artists) > 0 {
			primaryArtist = rec.Artists[0]
		}

		if counts[primaryArtist] >= maxPerArtist {
			continue
		}
		counts[primaryArtist]++
		out = append(out, rec)
	}

	return out
}
