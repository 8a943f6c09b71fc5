// Package quality scores a set of track recommendations against the
// target mood's audio features and decides whether the playlist is good
// enough to stop iterating.
package quality

import (
	"github.com/moodloom/recengine/internal/models"
)

// ToleranceMode selects which tolerance table Cohesion uses when scoring
// a track's deviation from the target features.
type ToleranceMode string

const (
	ToleranceBase     ToleranceMode = "base"
	ToleranceExtended ToleranceMode = "extended"
	ToleranceRelaxed  ToleranceMode = "relaxed"
)

var baseTolerance = map[string]float64{
	"energy": 0.25, "valence": 0.30, "danceability": 0.30, "acousticness": 0.40,
	"instrumentalness": 0.25, "speechiness": 0.25, "tempo": 35.0, "loudness": 6.0,
	"liveness": 0.40, "popularity": 30,
}

var extendedTolerance = map[string]float64{
	"energy": 0.20, "valence": 0.25, "danceability": 0.20, "acousticness": 0.25,
	"instrumentalness": 0.15, "speechiness": 0.15, "tempo": 30.0, "loudness": 5.0,
	"liveness": 0.30, "popularity": 20,
}

var relaxedTolerance = map[string]float64{
	"energy": 0.35, "valence": 0.35, "danceability": 0.35, "acousticness": 0.45,
	"instrumentalness": 0.30, "speechiness": 0.30, "tempo": 45.0, "loudness": 7.0,
	"liveness": 0.45, "popularity": 35,
}

func toleranceTable(mode ToleranceMode) map[string]float64 {
	switch mode {
	case ToleranceExtended:
		return extendedTolerance
	case ToleranceRelaxed:
		return relaxedTolerance
	default:
		return baseTolerance
	}
}

// DefaultFeatureWeights is a reference per-feature weighting. Nothing in
// this module reads it: Cohesion weighs a feature missing from the given
// weights at 0.5, and weighs all features equally when given no weights.
var DefaultFeatureWeights = map[string]float64{
	"energy": 0.8, "valence": 0.8, "speechiness": 0.7, "instrumentalness": 0.7,
	"danceability": 0.6, "acousticness": 0.6, "tempo": 0.4, "mode": 0.4,
	"loudness": 0.3, "liveness": 0.2, "key": 0.2, "popularity": 0.1,
}

// Cohesion scores how closely a single track's audio features match the
// target feature ranges, weighted by feature importance. A track or mood
// with no features at all falls back to a source-reliability prior instead
// of penalizing the playlist for a missing Spotify audio-features lookup;
// a track with features but none scorable against the target gets a flat
// 0.70 regardless of source.
func Cohesion(audioFeatures map[string]float64, targetFeatures map[string]models.FeatureRange, featureWeights map[string]float64, source models.RecommendationSource, mode ToleranceMode) float64 {
	if len(audioFeatures) == 0 || len(targetFeatures) == 0 {
		switch source {
		case models.SourceReccobeat:
			return 0.65
		case models.SourceArtistDiscovery:
			return 0.75
		default:
			return 0.70
		}
	}

	tolerances := toleranceTable(mode)

	type weightedMatch struct {
		score, weight float64
	}
	var matches []weightedMatch
	weighted := len(featureWeights) > 0

	for feature, target := range targetFeatures {
		actual, ok := audioFeatures[feature]
		if !ok {
			continue
		}
		tolerance, ok := tolerances[feature]
		if !ok {
			continue
		}

		weight := 0.5
		if weighted {
			if w, ok := featureWeights[feature]; ok {
				weight = w
			}
		} else {
			weight = 1.0
		}

		diff := abs(actual - target.Mid())
		matchScore := 1.0 - diff/tolerance
		if matchScore < 0 {
			matchScore = 0
		}
		matches = append(matches, weightedMatch{score: matchScore, weight: weight})
	}

	if len(matches) == 0 {
		return 0.70
	}

	if weighted {
		var totalWeight, weightedSum float64
		for _, m := range matches {
			totalWeight += m.weight
			weightedSum += m.score * m.weight
		}
		if totalWeight == 0 {
			return 0
		}
		return weightedSum / totalWeight
	}

	var sum float64
	for _, m := range matches {
		sum += m.score
	}
	return sum / float64(len(matches))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// CriticalFeatures returns the feature names whose weight exceeds the
// critical threshold, the features an outlier track is least forgiven for
// missing.
func CriticalFeatures(featureWeights map[string]float64) map[string]bool {
	critical := make(map[string]bool)
	for feature, weight := range featureWeights {
		if weight > 0.65 {
			critical[feature] = true
		}
	}
	return critical
}

// TrackCohesionScores computes a per-track cohesion score for every
// recommendation and separates non-protected tracks flagged as outliers
// from the rest, following the source-aware thresholds: RecoBeat tracks
// (prone to circular feature bias) are held to a stricter bar than
// Spotify-curated artist-discovery tracks. Protected tracks are never
// outliers and count as 1.0 in the overall mean.
func TrackCohesionScores(recs []models.TrackRecommendation, targetFeatures map[string]models.FeatureRange, featureWeights map[string]float64) (overall float64, outlierIDs []string, perTrack map[string]float64) {
	perTrack = make(map[string]float64, len(recs))
	var validScores []float64

	for _, rec := range recs {
		score := Cohesion(rec.AudioFeatures.AsMap(), targetFeatures, featureWeights, rec.Source, ToleranceBase)
		perTrack[rec.TrackID] = score

		if rec.IsLocked() {
			validScores = append(validScores, 1.0)
			continue
		}

		isOutlier := false
		if rec.Source == models.SourceReccobeat {
			isOutlier = score < 0.6
		} else {
			isOutlier = score < 0.3
		}

		if isOutlier {
			outlierIDs = append(outlierIDs, rec.TrackID)
		} else {
			validScores = append(validScores, score)
		}
	}

	if len(validScores) == 0 {
		return 0, outlierIDs, perTrack
	}
	var sum float64
	for _, s := range validScores {
		sum += s
	}
	return sum / float64(len(validScores)), outlierIDs, perTrack
}
