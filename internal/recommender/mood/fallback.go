package mood

import (
	"strings"

	"github.com/moodloom/recengine/internal/models"
)

// moodProfile is a rule-based mood definition: a set of trigger keywords,
// the feature ranges it implies, and how strongly each feature should be
// weighted when this profile matches.
type moodProfile struct {
	keywords []string
	features map[string]models.FeatureRange
	weights  map[string]float64
}

var moodProfiles = map[string]moodProfile{
	"indie": {
		keywords: []string{"indie", "alternative", "underground", "independent"},
		features: map[string]models.FeatureRange{
			"acousticness":     {Min: 0.6, Max: 1.0},
			"energy":           {Min: 0.2, Max: 0.6},
			"loudness":         {Min: -20, Max: -5},
			"instrumentalness": {Min: 0.2, Max: 0.8},
		},
		weights: map[string]float64{"acousticness": 0.9, "energy": 0.7},
	},
	"party": {
		keywords: []string{"party", "celebration", "dance", "club", "energetic"},
		features: map[string]models.FeatureRange{
			"energy":       {Min: 0.7, Max: 1.0},
			"danceability": {Min: 0.7, Max: 1.0},
			"valence":      {Min: 0.6, Max: 1.0},
			"tempo":        {Min: 110, Max: 140},
			"loudness":     {Min: -10, Max: -2},
		},
		weights: map[string]float64{"energy": 0.9, "danceability": 0.9, "valence": 0.8},
	},
	"chill": {
		keywords: []string{"chill", "relaxed", "calm", "peaceful", "mellow"},
		features: map[string]models.FeatureRange{
			"energy":       {Min: 0.0, Max: 0.4},
			"acousticness": {Min: 0.5, Max: 1.0},
			"valence":      {Min: 0.4, Max: 0.8},
			"tempo":        {Min: 60, Max: 100},
			"loudness":     {Min: -25, Max: -10},
		},
		weights: map[string]float64{"energy": 0.9, "acousticness": 0.8, "tempo": 0.7},
	},
	"focus": {
		keywords: []string{"focus", "concentration", "study", "instrumental", "ambient"},
		features: map[string]models.FeatureRange{
			"instrumentalness": {Min: 0.7, Max: 1.0},
			"energy":           {Min: 0.1, Max: 0.4},
			"acousticness":     {Min: 0.4, Max: 1.0},
			"speechiness":      {Min: 0.0, Max: 0.2},
			"tempo":            {Min: 50, Max: 90},
		},
		weights: map[string]float64{"instrumentalness": 0.9, "speechiness": 0.8, "energy": 0.7},
	},
	"emotional": {
		keywords: []string{"emotional", "sad", "melancholy", "deep", "sentimental"},
		features: map[string]models.FeatureRange{
			"valence":      {Min: 0.0, Max: 0.4},
			"energy":       {Min: 0.1, Max: 0.5},
			"mode":         {Min: 0, Max: 0.3},
			"acousticness": {Min: 0.4, Max: 1.0},
			"tempo":        {Min: 60, Max: 110},
		},
		weights: map[string]float64{"valence": 0.9, "mode": 0.8, "acousticness": 0.7},
	},
}

// profileOrder fixes iteration order over moodProfiles so the fallback is
// deterministic (Go map iteration order is randomized).
var profileOrder = []string{"indie", "party", "chill", "focus", "emotional"}

// analyzeFallback matches moodPrompt against a small library of curated
// mood profiles when the LLM path is unavailable.
func analyzeFallback(moodPrompt string) *models.MoodAnalysis {
	lower := strings.ToLower(moodPrompt)

	for _, name := range profileOrder {
		profile := moodProfiles[name]
		for _, kw := range profile.keywords {
			if strings.Contains(lower, kw) {
				return &models.MoodAnalysis{
					MoodInterpretation: "rule-based match: " + name,
					TargetFeatures:     profile.features,
					FeatureWeights:     profile.weights,
					GenreKeywords:      []string{name},
				}
			}
		}
	}

	return &models.MoodAnalysis{
		MoodInterpretation: "no specific mood profile matched",
	}
}
