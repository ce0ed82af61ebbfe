// Package store persists sessions and the append-only action log. The
// production implementation runs on PostgreSQL via pgx; every turn commits
// its action appends and the session update in one transaction, retried at
// the transaction boundary on transient failures.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/varekai/pagepilot/api/schemas"
	"github.com/varekai/pagepilot/internal/action"
)

// DBPool abstracts pgxpool.Pool so the store can be exercised with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

const (
	commitMaxRetries   = 2
	commitRetryBackoff = 100 * time.Millisecond
)

// Postgres is the transactional Repository implementation.
type Postgres struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Postgres, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool, log: logger.Named("store")}, nil
}

const sqlInsertSession = `
INSERT INTO sessions (id, title, created_at, updated_at)
VALUES ($1, $2, $3, $3);`

// CreateSession inserts a new active session with the given goal title.
func (s *Postgres) CreateSession(ctx context.Context, title string, now time.Time) (schemas.Session, error) {
	sess := schemas.Session{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if _, err := s.pool.Exec(ctx, sqlInsertSession, sess.ID, sess.Title, sess.CreatedAt); err != nil {
		return schemas.Session{}, fmt.Errorf("failed to insert session: %w", err)
	}
	s.log.Info("Session created", zap.String("session_id", sess.ID.String()))
	return sess, nil
}

const sqlSelectSession = `
SELECT id, title, created_at, updated_at, completed_at
FROM sessions WHERE id = $1;`

// GetSession loads one session; unknown ids yield ErrNotFound.
func (s *Postgres) GetSession(ctx context.Context, id uuid.UUID) (schemas.Session, error) {
	var sess schemas.Session
	err := s.pool.QueryRow(ctx, sqlSelectSession, id).
		Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt, &sess.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schemas.Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return schemas.Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// One query per variant table; the detail column is normalized to text so a
// single scan loop serves all four.
var recordQueries = []struct {
	typ action.Type
	sql string
}{
	{action.TypeClick, `
SELECT selector, reasoning, created_at, turn_seq
FROM click_actions WHERE session_id = $1
ORDER BY created_at DESC, turn_seq DESC LIMIT $2;`},
	{action.TypeWait, `
SELECT duration_seconds::text, reasoning, created_at, turn_seq
FROM wait_actions WHERE session_id = $1
ORDER BY created_at DESC, turn_seq DESC LIMIT $2;`},
	{action.TypeMessage, `
SELECT body, reasoning, created_at, turn_seq
FROM message_actions WHERE session_id = $1
ORDER BY created_at DESC, turn_seq DESC LIMIT $2;`},
	{action.TypeComplete, `
SELECT summary, reasoning, created_at, turn_seq
FROM complete_actions WHERE session_id = $1
ORDER BY created_at DESC, turn_seq DESC LIMIT $2;`},
}

// RecentActions merges the per-variant logs chronologically and returns at
// most limit records, oldest first. Each variant query is itself bounded by
// limit, which is enough to reconstruct the merged tail.
func (s *Postgres) RecentActions(ctx context.Context, sessionID uuid.UUID, limit int) ([]action.Record, error) {
	var merged []action.Record
	for _, q := range recordQueries {
		records, err := s.queryRecords(ctx, q.sql, q.typ, sessionID, limit)
		if err != nil {
			return nil, err
		}
		merged = append(merged, records...)
	}

	sortRecords(merged)
	if len(merged) > limit {
		merged = merged[len(merged)-limit:]
	}
	return merged, nil
}

func (s *Postgres) queryRecords(ctx context.Context, sql string, typ action.Type, sessionID uuid.UUID, limit int) ([]action.Record, error) {
	rows, err := s.pool.Query(ctx, sql, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s actions: %w", typ, err)
	}
	defer rows.Close()

	var records []action.Record
	for rows.Next() {
		r := action.Record{Type: typ}
		if err := rows.Scan(&r.Detail, &r.Reasoning, &r.CreatedAt, &r.TurnSeq); err != nil {
			return nil, fmt.Errorf("failed to scan %s action row: %w", typ, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s action rows: %w", typ, err)
	}
	return records, nil
}

const (
	sqlInsertClick = `
INSERT INTO click_actions (id, session_id, turn_seq, selector, reasoning, page_url, page_markup, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	sqlInsertWait = `
INSERT INTO wait_actions (id, session_id, turn_seq, duration_seconds, reasoning, page_url, page_markup, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	sqlInsertMessage = `
INSERT INTO message_actions (id, session_id, turn_seq, body, reasoning, page_url, page_markup, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	sqlInsertComplete = `
INSERT INTO complete_actions (id, session_id, turn_seq, summary, reasoning, page_url, page_markup, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	sqlTouchSession = `
UPDATE sessions SET updated_at = $2, completed_at = COALESCE(completed_at, $3)
WHERE id = $1;`
)

// CommitTurn applies one turn as a single transaction: an append per action
// plus the session update. Transient failures are retried transparently at
// the transaction boundary; the caller sees an error only once retries are
// exhausted.
func (s *Postgres) CommitTurn(ctx context.Context, commit TurnCommit) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(commitRetryBackoff), commitMaxRetries),
		ctx,
	)

	attempt := 0
	operation := func() error {
		attempt++
		if err := s.commitOnce(ctx, commit); err != nil {
			s.log.Warn("Turn commit attempt failed",
				zap.Int("attempt", attempt),
				zap.String("session_id", commit.SessionID.String()),
				zap.Error(err))
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("failed to commit turn after %d attempts: %w", attempt, err)
	}
	return nil
}

func (s *Postgres) commitOnce(ctx context.Context, commit TurnCommit) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	markup := schemas.TruncateRunes(commit.PageMarkup, StoredMarkupLimit)

	batch := &pgx.Batch{}
	for seq, a := range commit.Actions {
		sql, err := insertSQL(a)
		if err != nil {
			return err
		}
		batch.Queue(sql, uuid.New(), commit.SessionID, seq, insertDetail(a), a.Rationale(), commit.PageURL, markup, a.Created())
	}

	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		if br == nil {
			return errors.New("failed to send batch: batch results is nil")
		}
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to append action %d/%d: %w", i+1, batch.Len(), err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to close batch: %w", err)
		}
	}

	var completedAt *time.Time
	if commit.Completed {
		now := commit.Now.UTC()
		completedAt = &now
	}
	tag, err := tx.Exec(ctx, sqlTouchSession, commit.SessionID, commit.Now.UTC(), completedAt)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("session update affected %d rows, want 1", tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertSQL(a action.Action) (string, error) {
	switch a.ActionType() {
	case action.TypeClick:
		return sqlInsertClick, nil
	case action.TypeWait:
		return sqlInsertWait, nil
	case action.TypeMessage:
		return sqlInsertMessage, nil
	case action.TypeComplete:
		return sqlInsertComplete, nil
	default:
		return "", fmt.Errorf("no action log table for type %q", a.ActionType())
	}
}

// insertDetail yields the variant payload column value. Wait durations are
// stored as integers, everything else as text.
func insertDetail(a action.Action) interface{} {
	if w, ok := a.(*action.Wait); ok {
		return w.Duration
	}
	return action.Detail(a)
}
