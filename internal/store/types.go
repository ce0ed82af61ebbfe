package store

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/varekai/pagepilot/internal/action"
)

// StoredMarkupLimit caps the page markup copied onto each action log record.
// This is storage economy only; truncation appends a visible marker and the
// total stays within the cap. It is distinct from the transcript preview cap.
const StoredMarkupLimit = 50000

// ErrNotFound is returned when a session id is unknown to the store.
var ErrNotFound = errors.New("session not found")

// TurnCommit is the single atomic unit persisted at the end of a turn: one
// append per extracted action plus the session update. Actions must already
// carry their shared timestamp; list order is preserved via turn_seq.
type TurnCommit struct {
	SessionID uuid.UUID
	Actions   []action.Action
	// PageURL and PageMarkup are attached to every record for audit and
	// debugging. PageMarkup may be empty for structured-only observations.
	PageURL    string
	PageMarkup string
	// Now becomes the session's new updated_at, and its completed_at when
	// Completed is set.
	Now       time.Time
	Completed bool
}

// sortRecords orders merged records chronologically; ties on the shared
// per-turn timestamp fall back to list order within the turn.
func sortRecords(records []action.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].TurnSeq < records[j].TurnSeq
	})
}
