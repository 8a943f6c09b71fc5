package mood

import (
	"context"
	"math/rand"
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

func TestAnalyzeUsesLLMFeatures(t *testing.T) {
	provider := &mockProvider{
		generateFunc: func(_ context.Context, _ *llm.GenerationRequest) (*llm.GenerationResponse, error) {
			return &llm.GenerationResponse{
				RawOutput: `{"mood_interpretation":"upbeat road trip","target_features":{"energy":{"min":0.7,"max":1.0}},"feature_weights":{"energy":0.9}}`,
			}, nil
		},
	}

	analyzer := New(provider, "gpt-5.1-mini", nil)
	result, appErr := analyzer.Analyze(context.Background(), "session-1", "upbeat road trip", nil)
	require.Nil(t, appErr)
	require.Contains(t, result.TargetFeatures, "energy")
	assert.InDelta(t, 0.7, result.TargetFeatures["energy"].Min, 0.0001)
}

func TestAnalyzeFallsBackOnProviderError(t *testing.T) {
	provider := &mockProvider{
		generateFunc: func(_ context.Context, _ *llm.GenerationRequest) (*llm.GenerationResponse, error) {
			return nil, assertError{}
		},
	}

	analyzer := New(provider, "gpt-5.1-mini", nil)
	result, appErr := analyzer.Analyze(context.Background(), "session-1", "chill relaxed evening", nil)
	require.Nil(t, appErr)
	assert.Contains(t, result.MoodInterpretation, "chill")
}

func TestFillDefaultsPopulatesNeutralFeatures(t *testing.T) {
	m := &models.MoodAnalysis{}
	fillDefaults(m)
	assert.NotEmpty(t, m.TargetFeatures)
	assert.NotEmpty(t, m.FeatureWeights)
}

func TestPlanPlaylistTargetShrinksForNicheMoods(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	target := PlanPlaylistTarget(rng, "underground obscure deep cuts", &models.MoodAnalysis{
		TargetFeatures: map[string]models.FeatureRange{"energy": {}},
	})
	assert.GreaterOrEqual(t, target.TargetCount, 15)
	assert.Equal(t, 15, target.MinCount)
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
