package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodloom/recengine/internal/llm"
	"github.com/moodloom/recengine/internal/models"
)

type mockProvider struct {
	generateFunc func(ctx context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error)
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Generate(ctx context.Context, request *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	return m.generateFunc(ctx, request)
}

func TestAnalyzeUsesLLMResultWhenAvailable(t *testing.T) {
	provider := &mockProvider{
		generateFunc: func(_ context.Context, _ *llm.GenerationRequest) (*llm.GenerationResponse, error) {
			return &llm.GenerationResponse{
				RawOutput: `{"intent_type":"artist_focus","user_mentioned_artists":["Radiohead"],"genre_strictness":0.9,"quality_threshold":0.8}`,
			}, nil
		},
	}

	analyzer := New(provider, "gpt-5.1-mini", nil)
	result, appErr := analyzer.Analyze(context.Background(), "session-1", "give me a Radiohead playlist")
	require.Nil(t, appErr)
	require.NotNil(t, result)
	assert.Equal(t, models.IntentArtistFocus, result.IntentType)
	assert.Equal(t, []string{"Radiohead"}, result.UserMentionedArtists)
}

func TestAnalyzeFallsBackOnProviderError(t *testing.T) {
	provider := &mockProvider{
		generateFunc: func(_ context.Context, _ *llm.GenerationRequest) (*llm.GenerationResponse, error) {
			return nil, assertError{}
		},
	}

	analyzer := New(provider, "gpt-5.1-mini", nil)
	result, appErr := analyzer.Analyze(context.Background(), "session-1", "songs like Blinding Lights")
	require.Nil(t, appErr)
	require.NotNil(t, result)
	assert.Equal(t, models.IntentSpecificTrackSimilar, result.IntentType)
}

func TestValidateDefaultsInvalidIntentType(t *testing.T) {
	validated := validate(&models.IntentAnalysis{IntentType: "not_a_real_type"})
	assert.Equal(t, models.IntentMoodVariety, validated.IntentType)
}

func TestValidateDropsIncompleteTrackMentions(t *testing.T) {
	validated := validate(&models.IntentAnalysis{
		IntentType: models.IntentMoodVariety,
		UserMentionedTracks: []models.MentionedTrack{
			{TrackName: "Complete", ArtistName: "Artist"},
			{TrackName: "Missing Artist"},
		},
	})
	require.Len(t, validated.UserMentionedTracks, 1)
	assert.Equal(t, "Complete", validated.UserMentionedTracks[0].TrackName)
	assert.Equal(t, models.PriorityMedium, validated.UserMentionedTracks[0].Priority)
}

func TestFallbackDetectsGenreAndIntent(t *testing.T) {
	result := analyzeFallback("I want to explore some jazz variety")
	assert.Equal(t, models.IntentGenreExploration, result.IntentType)
	require.NotNil(t, result.PrimaryGenre)
	assert.Equal(t, "jazz", *result.PrimaryGenre)
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
