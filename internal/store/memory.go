package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/varekai/pagepilot/api/schemas"
	"github.com/varekai/pagepilot/internal/action"
)

// Memory is an in-process Repository for tests and non-production runs.
// It has no real transactions: CommitTurn applies its writes sequentially
// under one mutex, which serializes access within this process but offers
// none of the durability or multi-writer atomicity of the Postgres store.
type Memory struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]schemas.Session
	records  map[uuid.UUID][]action.Record
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[uuid.UUID]schemas.Session),
		records:  make(map[uuid.UUID][]action.Record),
	}
}

func (m *Memory) CreateSession(_ context.Context, title string, now time.Time) (schemas.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := schemas.Session{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	m.sessions[sess.ID] = sess
	return sess, nil
}

func (m *Memory) GetSession(_ context.Context, id uuid.UUID) (schemas.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return schemas.Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

func (m *Memory) RecentActions(_ context.Context, sessionID uuid.UUID, limit int) ([]action.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.records[sessionID]
	merged := make([]action.Record, len(all))
	copy(merged, all)
	sortRecords(merged)
	if len(merged) > limit {
		merged = merged[len(merged)-limit:]
	}
	return merged, nil
}

func (m *Memory) CommitTurn(_ context.Context, commit TurnCommit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[commit.SessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, commit.SessionID)
	}

	for seq, a := range commit.Actions {
		m.records[commit.SessionID] = append(m.records[commit.SessionID], action.Record{
			Type:      a.ActionType(),
			Detail:    action.Detail(a),
			Reasoning: a.Rationale(),
			CreatedAt: a.Created(),
			TurnSeq:   seq,
		})
	}

	sess.UpdatedAt = commit.Now.UTC()
	if commit.Completed && sess.CompletedAt == nil {
		completedAt := commit.Now.UTC()
		sess.CompletedAt = &completedAt
	}
	m.sessions[commit.SessionID] = sess
	return nil
}
