package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodloom/recengine/internal/models"
)

type fakeRunner struct {
	blockUntilCancel bool
	setStatus        models.Status
}

func (f *fakeRunner) Run(ctx context.Context, state *models.WorkflowState, _ string) {
	if f.blockUntilCancel {
		<-ctx.Done()
		state.TransitionTo(models.StatusCancelled)
		return
	}
	state.TransitionTo(f.setStatus)
}

func TestStartWorkflowPersistsAndCompletes(t *testing.T) {
	store := NewMockStore()
	runner := &fakeRunner{setStatus: models.StatusRecommendationsReady}
	svc := NewService(store, runner)

	sessionID, err := svc.StartWorkflow("chill sunday", UserContext{AccessToken: "token"})
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	require.Eventually(t, func() bool {
		state, err := svc.GetWorkflowState(sessionID)
		return err == nil && state.Status == models.StatusRecommendationsReady
	}, time.Second, 5*time.Millisecond)
}

func TestCancelStopsRunningWorkflow(t *testing.T) {
	store := NewMockStore()
	runner := &fakeRunner{blockUntilCancel: true}
	svc := NewService(store, runner)

	sessionID, err := svc.StartWorkflow("late night drive", UserContext{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := svc.GetWorkflowState(sessionID)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Cancel(sessionID))

	require.Eventually(t, func() bool {
		state, err := svc.GetWorkflowState(sessionID)
		return err == nil && state.Status == models.StatusCancelled
	}, time.Second, 5*time.Millisecond)
}

func TestCancelOnAlreadyTerminalWorkflowIsNoop(t *testing.T) {
	store := NewMockStore()
	runner := &fakeRunner{setStatus: models.StatusRecommendationsReady}
	svc := NewService(store, runner)

	sessionID, err := svc.StartWorkflow("focus music", UserContext{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		state, err := svc.GetWorkflowState(sessionID)
		return err == nil && state.Status == models.StatusRecommendationsReady
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, svc.Cancel(sessionID))

	state, err := svc.GetWorkflowState(sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRecommendationsReady, state.Status)
}

func TestGetWorkflowStateReturnsNotFoundForUnknownSession(t *testing.T) {
	svc := NewService(NewMockStore(), &fakeRunner{})
	_, err := svc.GetWorkflowState("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}
