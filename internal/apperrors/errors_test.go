package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfClassifiesAppError(t *testing.T) {
	err := New(KindSchemaViolation, "intent_analyzer", "missing required field")
	assert.Equal(t, KindSchemaViolation, KindOf(err))
	assert.True(t, IsKind(err, KindSchemaViolation))
	assert.False(t, IsRetryable(err))
}

func TestKindOfDefaultsToFatalForUnclassifiedError(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, KindFatal, KindOf(plain))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := Wrap(KindRetryableTransient, "catalog", "top tracks request failed", cause)

	require.True(t, errors.Is(wrapped, wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.True(t, IsRetryable(wrapped))
}

func TestWithIterationDoesNotMutateOriginal(t *testing.T) {
	base := New(KindInsufficientSupply, "orchestrator", "short by 3 tracks")
	tagged := base.WithIteration(2)

	assert.Equal(t, 0, base.Iteration)
	assert.Equal(t, 2, tagged.Iteration)
}

func TestTrackerCountsByKindAndStage(t *testing.T) {
	tracker := NewTracker()
	tracker.Record(New(KindSchemaViolation, "mood_analyzer", "bad json"))
	tracker.Record(New(KindSchemaViolation, "mood_analyzer", "bad json again"))
	tracker.Record(New(KindRetryableTransient, "catalog", "timeout"))

	assert.Equal(t, 2, tracker.CountFor(KindSchemaViolation, "mood_analyzer"))
	assert.Equal(t, 1, tracker.CountFor(KindRetryableTransient, "catalog"))
	assert.Equal(t, 3, tracker.Len())
	assert.Len(t, tracker.Records(), 3)
}
