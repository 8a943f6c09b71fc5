// Package recgen generates candidate track recommendations from gathered
// seeds via RecoBeat similarity and Spotify artist discovery, then
// enforces the dedup and source-ratio invariants the rest of the pipeline
// depends on.
package recgen

import (
	"sort"

	"github.com/moodloom/recengine/internal/logger"
	"github.com/moodloom/recengine/internal/models"
)

const maxAnchorTracks = 5

// userMentionedArtistRatio caps the share of the artist_discovery
// partition that may come from artists the user named directly, rather
// than artists MoodAnalysis recommended, so discovery still introduces
// new artists instead of only revisiting named ones.
const userMentionedArtistRatio = 0.5

// RemoveDuplicates drops tracks sharing a track ID or Spotify URI with an
// earlier entry, preserving order and keeping the first occurrence.
func RemoveDuplicates(recs []models.TrackRecommendation) []models.TrackRecommendation {
	seenIDs := make(map[string]struct{}, len(recs))
	seenURIs := make(map[string]struct{}, len(recs))
	unique := make([]models.TrackRecommendation, 0, len(recs))

	for _, rec := range recs {
		uri := ""
		if rec.SpotifyURI != nil {
			uri = *rec.SpotifyURI
		}
		if _, idSeen := seenIDs[rec.TrackID]; idSeen {
			continue
		}
		if uri != "" {
			if _, uriSeen := seenURIs[uri]; uriSeen {
				continue
			}
			seenURIs[uri] = struct{}{}
		}
		seenIDs[rec.TrackID] = struct{}{}
		unique = append(unique, rec)
	}

	return unique
}

// EnforceSourceRatio removes duplicates, then caps each source bucket and
// recombines them anchor-first, artist-discovery-second, reccobeat-last,
// without re-sorting across buckets so user-mentioned anchors always stay
// at the top of the final list.
func EnforceSourceRatio(recs []models.TrackRecommendation, maxCount int, artistRatio float64) []models.TrackRecommendation {
	deduped := RemoveDuplicates(recs)
	groups := separateBySource(deduped)
	limits := calculateSourceLimits(maxCount, artistRatio)
	capped := capAndSortBySource(groups, limits)
	return combineAndSortFinal(capped, len(deduped))
}

func separateBySource(recs []models.TrackRecommendation) map[models.RecommendationSource][]models.TrackRecommendation {
	groups := map[models.RecommendationSource][]models.TrackRecommendation{
		models.SourceAnchorTrack:     {},
		models.SourceArtistDiscovery: {},
		models.SourceReccobeat:       {},
	}
	for _, rec := range recs {
		if _, ok := groups[rec.Source]; ok {
			groups[rec.Source] = append(groups[rec.Source], rec)
		}
	}
	return groups
}

type sourceLimits struct {
	anchor, artist, reccobeat int
}

// calculateSourceLimits derives the cap for each bucket from maxCount and
// artistRatio, reserving a fixed anchor budget first: artistRatio of the
// remainder to artist discovery, the rest (at least one) to RecoBeat.
func calculateSourceLimits(maxCount int, artistRatio float64) sourceLimits {
	maxAnchor := maxAnchorTracks
	remaining := maxCount - maxAnchor
	if remaining < 0 {
		remaining = 0
	}
	maxArtist := int(float64(remaining) * artistRatio)
	maxReccobeat := remaining - maxArtist
	if maxReccobeat < 1 {
		maxReccobeat = 1
	}
	return sourceLimits{anchor: maxAnchor, artist: maxArtist, reccobeat: maxReccobeat}
}

func capAndSortBySource(groups map[models.RecommendationSource][]models.TrackRecommendation, limits sourceLimits) map[models.RecommendationSource][]models.TrackRecommendation {
	capped := make(map[models.RecommendationSource][]models.TrackRecommendation, len(groups))

	for source, recs := range groups {
		switch source {
		case models.SourceAnchorTrack:
			var userMentioned, otherAnchors []models.TrackRecommendation
			for _, r := range recs {
				if r.UserMentioned {
					userMentioned = append(userMentioned, r)
				} else {
					otherAnchors = append(otherAnchors, r)
				}
			}
			sortByConfidenceDesc(userMentioned)
			sortByConfidenceDesc(otherAnchors)
			if len(otherAnchors) > limits.anchor {
				otherAnchors = otherAnchors[:limits.anchor]
			}
			capped[source] = append(userMentioned, otherAnchors...)
		case models.SourceArtistDiscovery:
			capped[source] = capSorted(enforceUserMentionedArtistRatio(recs), limits.artist)
		case models.SourceReccobeat:
			capped[source] = capSorted(recs, limits.reccobeat)
		}
	}

	return capped
}

// enforceUserMentionedArtistRatio drops the lowest-confidence overflow of
// user-mentioned-artist tracks beyond userMentionedArtistRatio of the
// partition, before the confidence sort and size cap run.
func enforceUserMentionedArtistRatio(recs []models.TrackRecommendation) []models.TrackRecommendation {
	maxMentioned := int(float64(len(recs)) * userMentionedArtistRatio)

	var mentioned, other []models.TrackRecommendation
	for _, r := range recs {
		if r.UserMentionedArtist {
			mentioned = append(mentioned, r)
		} else {
			other = append(other, r)
		}
	}
	if len(mentioned) <= maxMentioned {
		return recs
	}

	sortByConfidenceDesc(mentioned)
	mentioned = mentioned[:maxMentioned]
	return append(other, mentioned...)
}

func capSorted(recs []models.TrackRecommendation, limit int) []models.TrackRecommendation {
	sorted := make([]models.TrackRecommendation, len(recs))
	copy(sorted, recs)
	sortByConfidenceDesc(sorted)
	if limit < 0 {
		limit = 0
	}
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func sortByConfidenceDesc(recs []models.TrackRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ConfidenceScore > recs[j].ConfidenceScore
	})
}

// combineAndSortFinal concatenates the capped buckets anchor-first, the
// order the orchestrator depends on to keep protected tracks at the top;
// it never re-sorts across buckets.
func combineAndSortFinal(capped map[models.RecommendationSource][]models.TrackRecommendation, originalCount int) []models.TrackRecommendation {
	anchor := capped[models.SourceAnchorTrack]
	artist := capped[models.SourceArtistDiscovery]
	reccobeat := capped[models.SourceReccobeat]

	final := make([]models.TrackRecommendation, 0, len(anchor)+len(artist)+len(reccobeat))
	final = append(final, anchor...)
	final = append(final, artist...)
	final = append(final, reccobeat...)

	logger.Info("enforced source ratio", logger.Fields{
		"anchor_count":     len(anchor),
		"artist_count":     len(artist),
		"reccobeat_count":  len(reccobeat),
		"final_count":      len(final),
		"original_count":   originalCount,
	})

	return final
}
