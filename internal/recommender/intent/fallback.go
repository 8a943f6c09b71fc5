package intent

import (
	"strings"

	"github.com/moodloom/recengine/internal/models"
)

var genreKeywords = map[string][]string{
	"trap":        {"trap", "travis scott", "future", "migos"},
	"hip hop":     {"hip hop", "rap", "rapper"},
	"pop":         {"pop", "taylor swift", "ariana"},
	"rock":        {"rock", "indie", "alternative"},
	"electronic":  {"electronic", "edm", "techno", "house"},
	"jazz":        {"jazz", "bebop", "swing"},
	"classical":   {"classical", "orchestra", "symphony"},
	"country":     {"country", "nashville"},
	"funk":        {"funk", "funky"},
	"soul":        {"soul", "r&b", "rnb"},
}

// analyzeFallback is a rule-based keyword classifier used when the LLM
// call fails or returns an unparseable response. It makes no attempt to
// extract specific tracks or artists by name; that requires language
// understanding the fallback path doesn't have.
func analyzeFallback(moodPrompt string) *models.IntentAnalysis {
	lower := strings.ToLower(moodPrompt)

	intentType := models.IntentMoodVariety
	switch {
	case containsAny(lower, "like ", "similar to", "things like"):
		intentType = models.IntentSpecificTrackSimilar
	case containsAny(lower, "playlist", "give me", "only"):
		intentType = models.IntentArtistFocus
	case containsAny(lower, "explore", "discover", "variety", "mix"):
		intentType = models.IntentGenreExploration
	}

	genreStrictness := 0.6
	switch intentType {
	case models.IntentArtistFocus, models.IntentSpecificTrackSimilar:
		genreStrictness = 0.85
	case models.IntentGenreExploration:
		genreStrictness = 0.7
	}

	return &models.IntentAnalysis{
		IntentType:           intentType,
		UserMentionedTracks:  []models.MentionedTrack{},
		UserMentionedArtists: []string{},
		PrimaryGenre:         detectGenre(lower),
		GenreStrictness:      genreStrictness,
		LanguagePreferences:  []string{"english"},
		ExcludeRegions:       []string{},
		AllowObscureArtists:  false,
		QualityThreshold:     0.6,
	}
}

func detectGenre(lower string) *string {
	for genre, keywords := range genreKeywords {
		if containsAny(lower, keywords...) {
			g := genre
			return &g
		}
	}
	return nil
}

func containsAny(s string, candidates ...string) bool {
	for _, c := range candidates {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}
