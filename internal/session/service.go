package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moodloom/recengine/internal/logger"
	"github.com/moodloom/recengine/internal/models"
)

const stageName = "session_service"

// maxWorkflowDuration bounds a single orchestration run so a stuck LLM or
// catalog call can't hold a goroutine (and its DB connection) forever.
const maxWorkflowDuration = 5 * time.Minute

// Runner executes one workflow's full pipeline in place on state, honoring
// ctx cancellation. orchestrator.Orchestrator satisfies this.
type Runner interface {
	Run(ctx context.Context, state *models.WorkflowState, accessToken string)
}

// Store is the persistence boundary Service depends on. SnapshotStore is
// the only production implementation; tests use a hand-written mock.
type Store interface {
	Save(state *models.WorkflowState) error
	Get(sessionID string) (*models.WorkflowState, error)
}

// UserContext carries the caller-supplied identity and catalog credentials
// a workflow run needs, kept separate from the mood prompt itself.
type UserContext struct {
	AccessToken string
	CountryHint string
}

// Service implements the recommendation engine's public contract:
// StartWorkflow, GetWorkflowState, Cancel.
type Service struct {
	store   Store
	runner  Runner
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewService builds a Service backed by store and runner.
func NewService(store Store, runner Runner) *Service {
	return &Service{
		store:   store,
		runner:  runner,
		cancels: make(map[string]context.CancelFunc),
	}
}

// StartWorkflow creates a new pending WorkflowState, persists its initial
// snapshot, and launches the pipeline asynchronously. It returns the
// session_id immediately; callers poll GetWorkflowState for progress.
func (s *Service) StartWorkflow(moodPrompt string, userContext UserContext) (string, error) {
	sessionID := uuid.NewString()
	state := models.NewWorkflowState(sessionID, moodPrompt)

	if err := s.store.Save(state); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(context.Background(), maxWorkflowDuration)
	s.mu.Lock()
	s.cancels[sessionID] = cancel
	s.mu.Unlock()

	go s.run(runCtx, cancel, state, userContext.AccessToken)

	return sessionID, nil
}

func (s *Service) run(ctx context.Context, cancel context.CancelFunc, state *models.WorkflowState, accessToken string) {
	defer cancel()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, state.SessionID)
		s.mu.Unlock()
	}()

	s.runner.Run(ctx, state, accessToken)

	if err := s.store.Save(state); err != nil {
		logger.Error("failed to persist final workflow snapshot", err, logger.WithSession(state.SessionID, stageName))
	}
}

// GetWorkflowState returns the most recently persisted snapshot for
// sessionID.
func (s *Service) GetWorkflowState(sessionID string) (*models.WorkflowState, error) {
	return s.store.Get(sessionID)
}

// Cancel requests cancellation of a running workflow. For a workflow not
// running in this process it falls back to the stored snapshot: a no-op
// (not an error) if that state is already terminal, a transition to
// cancelled if it is not, and ErrNotFound if no snapshot exists.
func (s *Service) Cancel(sessionID string) error {
	s.mu.Lock()
	cancel, running := s.cancels[sessionID]
	s.mu.Unlock()

	if running {
		cancel()
		return nil
	}

	state, err := s.store.Get(sessionID)
	if err != nil {
		return err
	}
	if !state.Status.IsTerminal() {
		state.TransitionTo(models.StatusCancelled)
		return s.store.Save(state)
	}
	return nil
}
