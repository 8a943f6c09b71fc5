package mood

import (
	"math/rand"
	"strings"

	"github.com/moodloom/recengine/internal/models"
)

var nicheKeywords = []string{"indie", "underground", "obscure", "niche", "rare"}

// PlanPlaylistTarget determines a playlist's target size and quality
// threshold from the mood prompt's specificity: broad prompts tolerate a
// wider, more diverse selection while specific prompts call for a
// smaller, more focused one.
func PlanPlaylistTarget(rng *rand.Rand, moodPrompt string, moodAnalysis *models.MoodAnalysis) models.PlaylistTarget {
	featureCount := len(moodAnalysis.TargetFeatures)
	highWeightFeatures := 0
	for _, w := range moodAnalysis.FeatureWeights {
		if w > 0.7 {
			highWeightFeatures++
		}
	}

	var targetCount, minCount int
	var qualityThreshold float64

	switch {
	case featureCount <= 4 || highWeightFeatures <= 2:
		targetCount = 22 + rng.Intn(7) - 3
		minCount = 16
		qualityThreshold = 0.7
	case featureCount >= 8 || highWeightFeatures >= 4:
		targetCount = 19 + rng.Intn(5) - 2
		minCount = 16
		qualityThreshold = 0.78
	default:
		targetCount = 20 + rng.Intn(7) - 3
		minCount = 16
		qualityThreshold = 0.75
	}

	lower := strings.ToLower(moodPrompt)
	for _, kw := range nicheKeywords {
		if strings.Contains(lower, kw) {
			targetCount = maxInt(17, targetCount-rng.Intn(3))
			minCount = 15
			break
		}
	}

	return models.PlaylistTarget{
		TargetCount:      targetCount,
		MinCount:         minCount,
		MaxCount:         targetCount + 5,
		QualityThreshold: qualityThreshold,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
