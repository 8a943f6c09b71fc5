package llm

// GetIntentAnalysisSchema returns the JSON schema the IntentAnalyzer stage
// forces the model to answer in.
func GetIntentAnalysisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"intent_type": map[string]any{
				"type": "string",
				"enum": []string{"artist_focus", "genre_exploration", "mood_variety", "specific_track_similar"},
			},
			"user_mentioned_tracks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"track_name":  map[string]any{"type": "string"},
						"artist_name": map[string]any{"type": "string"},
						"priority":    map[string]any{"type": "string", "enum": []string{"high", "medium"}},
					},
					"required":             []string{"track_name", "artist_name", "priority"},
					"additionalProperties": false,
				},
			},
			"user_mentioned_artists": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"primary_genre": map[string]any{
				"type": []any{"string", "null"},
			},
			"genre_strictness": map[string]any{
				"type": "number", "minimum": 0, "maximum": 1,
			},
			"language_preferences": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"exclude_regions": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"allow_obscure_artists": map[string]any{"type": "boolean"},
			"quality_threshold":     map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		},
		"required": []string{
			"intent_type", "user_mentioned_tracks", "user_mentioned_artists",
			"primary_genre", "genre_strictness", "language_preferences",
			"exclude_regions", "allow_obscure_artists", "quality_threshold",
		},
		"additionalProperties": false,
	}
}

// GetMoodAnalysisSchema returns the JSON schema the MoodAnalyzer stage
// forces the model to answer in.
func GetMoodAnalysisSchema() map[string]any {
	featureRangeSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"min": map[string]any{"type": "number"},
			"max": map[string]any{"type": "number"},
		},
		"required":             []string{"min", "max"},
		"additionalProperties": false,
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mood_interpretation": map[string]any{"type": "string"},
			"target_features": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"acousticness":     featureRangeSchema,
					"danceability":     featureRangeSchema,
					"energy":           featureRangeSchema,
					"instrumentalness": featureRangeSchema,
					"liveness":         featureRangeSchema,
					"loudness":         featureRangeSchema,
					"speechiness":      featureRangeSchema,
					"tempo":            featureRangeSchema,
					"valence":          featureRangeSchema,
					"popularity":       featureRangeSchema,
				},
				"additionalProperties": false,
			},
			"feature_weights": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			},
			"search_keywords":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"artist_recommendations": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"genre_keywords":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"is_temporal":            map[string]any{"type": "boolean"},
			"decade":                 map[string]any{"type": []any{"string", "null"}},
		},
		"required": []string{
			"mood_interpretation", "target_features", "feature_weights",
			"search_keywords", "artist_recommendations", "genre_keywords",
			"is_temporal", "decade",
		},
		"additionalProperties": false,
	}
}

// GetQualityEvaluationSchema returns the JSON schema the QualityEvaluator
// stage requests when blending an LLM judgment into the rule-based score.
func GetQualityEvaluationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"overall_score": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"specific_concerns": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []string{"overall_score", "specific_concerns"},
		"additionalProperties": false,
	}
}

// GetStrategyDecisionSchema returns the JSON schema the ImprovementStrategy
// stage requests before falling back to the rule-based decision table.
func GetStrategyDecisionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"strategies": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "string",
					"enum": []string{"filter_and_replace", "adjust_feature_weights", "reseed_from_clean", "generate_more"},
				},
			},
			"reasoning": map[string]any{"type": "string"},
		},
		"required":             []string{"strategies", "reasoning"},
		"additionalProperties": false,
	}
}

// GetTrackEnergySchema returns the JSON schema the PlaylistOrderer's
// batched energy-analysis pass requests per chunk of tracks.
func GetTrackEnergySchema() map[string]any {
	unit := map[string]any{"type": "number", "minimum": 0, "maximum": 1}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tracks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"track_id":            map[string]any{"type": "string"},
						"energy_level":        unit,
						"momentum":            unit,
						"emotional_intensity": unit,
						"opening_potential":   unit,
						"closing_potential":   unit,
						"peak_potential":      unit,
					},
					"required": []string{
						"track_id", "energy_level", "momentum", "emotional_intensity",
						"opening_potential", "closing_potential", "peak_potential",
					},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"tracks"},
		"additionalProperties": false,
	}
}

// GetOrderingStrategySchema returns the JSON schema the PlaylistOrderer
// requests when picking the overall arc strategy and phase distribution for
// the playlist. phase_distribution must name all six phases so their
// counts can be checked to sum to the track count.
func GetOrderingStrategySchema() map[string]any {
	phaseCount := map[string]any{"type": "integer", "minimum": 0}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"strategy": map[string]any{
				"type": "string",
				"enum": []string{
					"classic_build", "immediate_impact", "chill_journey",
					"emotional_rollercoaster", "sustained_energy", "ambient_flow",
				},
			},
			"phase_distribution": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"opening": phaseCount,
					"build":   phaseCount,
					"mid":     phaseCount,
					"high":    phaseCount,
					"descent": phaseCount,
					"closure": phaseCount,
				},
				"required":             []string{"opening", "build", "mid", "high", "descent", "closure"},
				"additionalProperties": false,
			},
			"reasoning": map[string]any{"type": "string"},
		},
		"required":             []string{"strategy", "phase_distribution", "reasoning"},
		"additionalProperties": false,
	}
}
