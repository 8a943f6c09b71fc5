package session

import (
	"sync"

	"github.com/moodloom/recengine/internal/models"
)

// MockStore is an in-memory Store for tests, guarded by a mutex since
// Service saves from a background goroutine.
type MockStore struct {
	mu   sync.Mutex
	rows map[string]*models.WorkflowState
}

// NewMockStore builds an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{rows: make(map[string]*models.WorkflowState)}
}

func (m *MockStore) Save(state *models.WorkflowState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := *state
	m.rows[state.SessionID] = &snapshot
	return nil
}

func (m *MockStore) Get(sessionID string) (*models.WorkflowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := *row
	return &snapshot, nil
}
