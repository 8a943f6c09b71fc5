package recgen

import (
	"fmt"
	"strings"

	"github.com/moodloom/recengine/internal/catalog"
	"github.com/moodloom/recengine/internal/logger"
)

const temporalYearTolerance = 1

// FilterContext carries the gating inputs the genre, regional, and
// temporal candidate filters need, sourced from IntentAnalysis and
// MoodAnalysis. Anchors
// never pass through these filters — they are added to the recommendation
// set directly, bypassing toRecommendations entirely, which is how the
// protected-exempt handling falls out without an explicit locked-track
// check here.
type FilterContext struct {
	PrimaryGenre    *string
	GenreStrictness float64
	ExcludedRegions []string
	IsTemporal      bool
	YearRangeMin    *int
	YearRangeMax    *int
}

func (fc FilterContext) genreGateActive() bool {
	return fc.PrimaryGenre != nil && *fc.PrimaryGenre != "" && fc.GenreStrictness >= 0.7
}

// filterCandidates drops tracks rejected by the genre gate, the regional
// filter, or the temporal filter, logging the reason for each rejection.
func filterCandidates(tracks []catalog.TrackDTO, fc FilterContext, sessionID string) []catalog.TrackDTO {
	if len(tracks) == 0 {
		return tracks
	}

	fields := logger.WithSession(sessionID, stageName)
	kept := make([]catalog.TrackDTO, 0, len(tracks))
	for _, t := range tracks {
		if reason := rejectReason(t, fc); reason != "" {
			logger.Debug(fmt.Sprintf("rejected %s (%s) by %s", t.TrackID, t.Name, reason), fields)
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

func rejectReason(t catalog.TrackDTO, fc FilterContext) string {
	if fc.genreGateActive() && !genreFamilyMatches(t.ArtistGenres, *fc.PrimaryGenre) {
		return "genre_filter"
	}
	if regionExcluded(t.ArtistCountry, fc.ExcludedRegions) {
		return "regional_filter"
	}
	if temporalOutOfRange(t.ReleaseYear, fc) {
		return "temporal_filter"
	}
	return ""
}

// genreFamilyMatches reports whether any of the candidate's resolved
// genres overlaps the requested genre family, using substring containment
// in either direction so "indie rock" matches a request for "rock" and
// vice versa. A candidate with no resolved genre has an empty genre set,
// which is disjoint from any requested family and is therefore rejected.
func genreFamilyMatches(candidateGenres []string, requested string) bool {
	requested = strings.ToLower(strings.TrimSpace(requested))
	for _, g := range candidateGenres {
		g = strings.ToLower(g)
		if strings.Contains(g, requested) || strings.Contains(requested, g) {
			return true
		}
	}
	return false
}

func regionExcluded(artistCountry string, excludedRegions []string) bool {
	if artistCountry == "" || len(excludedRegions) == 0 {
		return false
	}
	candidate := normalizeRegion(artistCountry)
	for _, region := range excludedRegions {
		if normalizeRegion(region) == candidate {
			return true
		}
	}
	return false
}

func normalizeRegion(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// temporalOutOfRange reports whether a candidate's release year falls
// outside the requested year range, with a one-year tolerance on either
// edge. A candidate with no known release year cannot be shown to violate
// the range, so it is kept.
func temporalOutOfRange(releaseYear *int, fc FilterContext) bool {
	if !fc.IsTemporal || releaseYear == nil {
		return false
	}
	if fc.YearRangeMin != nil && *releaseYear < *fc.YearRangeMin-temporalYearTolerance {
		return true
	}
	if fc.YearRangeMax != nil && *releaseYear > *fc.YearRangeMax+temporalYearTolerance {
		return true
	}
	return false
}
