// Package session persists WorkflowState snapshots and exposes the
// recommendation engine's public contract (StartWorkflow, GetWorkflowState,
// Cancel) that the out-of-scope HTTP layer invokes.
package session

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moodloom/recengine/internal/models"
)

// ErrNotFound is returned when no snapshot exists for a session_id.
var ErrNotFound = errors.New("session: workflow state not found")

// snapshotRow is the one-row-per-session JSONB persistence shape. Each
// write overwrites the row rather than appending, since only the latest
// snapshot is ever read back; gorm's autoUpdateTime stamps updated_at
// from the application clock on every write.
type snapshotRow struct {
	SessionID string    `gorm:"primaryKey;column:session_id"`
	Payload   []byte    `gorm:"column:payload;type:jsonb"`
	Status    string    `gorm:"column:status;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the table name so migrations don't depend on gorm's
// pluralization rules.
func (snapshotRow) TableName() string { return "workflow_state_snapshots" }

// SnapshotStore persists and retrieves WorkflowState documents, keyed by
// session_id, over Postgres.
type SnapshotStore struct {
	db *gorm.DB
}

// NewSnapshotStore builds a SnapshotStore and ensures its table exists.
func NewSnapshotStore(db *gorm.DB) (*SnapshotStore, error) {
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, err
	}
	return &SnapshotStore{db: db}, nil
}

// Save upserts the given state as the latest snapshot for its session.
func (s *SnapshotStore) Save(state *models.WorkflowState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}

	row := snapshotRow{
		SessionID: state.SessionID,
		Payload:   payload,
		Status:    string(state.Status),
	}

	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// Get returns the latest snapshot for sessionID, or ErrNotFound.
func (s *SnapshotStore) Get(sessionID string) (*models.WorkflowState, error) {
	var row snapshotRow
	if err := s.db.First(&row, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var state models.WorkflowState
	if err := json.Unmarshal(row.Payload, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
