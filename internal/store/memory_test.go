package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varekai/pagepilot/internal/action"
)

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	sess, err := m.CreateSession(ctx, "book a flight", now)
	require.NoError(t, err)
	assert.True(t, sess.Active())

	loaded, err := m.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess, loaded)

	_, err = m.GetSession(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCommitTurn(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	sess, err := m.CreateSession(ctx, "book a flight", now)
	require.NoError(t, err)

	t.Run("unknown session yields ErrNotFound", func(t *testing.T) {
		err := m.CommitTurn(ctx, TurnCommit{SessionID: uuid.New(), Now: now})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	turnAt := now.Add(time.Minute)
	click := &action.Click{Selector: "#search"}
	click.Stamp(turnAt)
	wait := &action.Wait{Duration: 3}
	wait.Stamp(turnAt)

	err = m.CommitTurn(ctx, TurnCommit{
		SessionID: sess.ID,
		Actions:   []action.Action{click, wait},
		Now:       turnAt,
	})
	require.NoError(t, err)

	records, err := m.RecentActions(ctx, sess.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, action.TypeClick, records[0].Type)
	assert.Equal(t, action.TypeWait, records[1].Type)

	updated, err := m.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, turnAt, updated.UpdatedAt)
	assert.True(t, updated.Active())

	t.Run("completed turn closes the session once", func(t *testing.T) {
		doneAt := turnAt.Add(time.Minute)
		done := &action.Complete{Summary: "flight booked"}
		done.Stamp(doneAt)

		err := m.CommitTurn(ctx, TurnCommit{
			SessionID: sess.ID,
			Actions:   []action.Action{done},
			Now:       doneAt,
			Completed: true,
		})
		require.NoError(t, err)

		closed, err := m.GetSession(ctx, sess.ID)
		require.NoError(t, err)
		require.NotNil(t, closed.CompletedAt)
		assert.Equal(t, doneAt, *closed.CompletedAt)
		assert.False(t, closed.Active())

		// A later completed commit must not move completed_at.
		err = m.CommitTurn(ctx, TurnCommit{
			SessionID: sess.ID,
			Now:       doneAt.Add(time.Hour),
			Completed: true,
		})
		require.NoError(t, err)
		again, err := m.GetSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, doneAt, *again.CompletedAt)
	})
}

func TestMemoryRecentActionsBound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	sess, err := m.CreateSession(ctx, "goal", base)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		click := &action.Click{Selector: "#next"}
		click.Stamp(base.Add(time.Duration(i) * time.Minute))
		err := m.CommitTurn(ctx, TurnCommit{
			SessionID: sess.ID,
			Actions:   []action.Action{click},
			Now:       click.Created(),
		})
		require.NoError(t, err)
	}

	records, err := m.RecentActions(ctx, sess.ID, 4)
	require.NoError(t, err)
	require.Len(t, records, 4)
	// Oldest of the kept window is the third commit.
	assert.Equal(t, base.Add(2*time.Minute), records[0].CreatedAt)
	assert.Equal(t, base.Add(5*time.Minute), records[3].CreatedAt)
}
