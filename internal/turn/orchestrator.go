// Package turn orchestrates one request/response cycle of a browsing
// session: resolve the session, assemble the model transcript from the page
// observation and recent history, call the model, extract its actions, and
// commit the whole turn atomically.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/varekai/pagepilot/api/schemas"
	"github.com/varekai/pagepilot/internal/action"
	"github.com/varekai/pagepilot/internal/extract"
	"github.com/varekai/pagepilot/internal/store"
	"github.com/varekai/pagepilot/internal/transcript"
)

// Repository is the session and action-log persistence the orchestrator
// needs. Implemented by store.Postgres and store.Memory.
type Repository interface {
	CreateSession(ctx context.Context, title string, now time.Time) (schemas.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (schemas.Session, error)
	RecentActions(ctx context.Context, sessionID uuid.UUID, limit int) ([]action.Record, error)
	CommitTurn(ctx context.Context, commit store.TurnCommit) error
}

// Request is one turn submission. A nil SessionID starts a new session, in
// which case Title carries the user's goal; otherwise the turn continues the
// referenced session and Title is ignored.
type Request struct {
	SessionID *uuid.UUID
	Title     string
	Page      schemas.PageState
}

// Result is the outcome of a processed turn.
type Result struct {
	Session  schemas.Session
	Actions  []action.Action
	Complete bool
}

// Orchestrator drives the turn pipeline.
type Orchestrator struct {
	repo        Repository
	model       schemas.LLMClient
	extractor   *extract.Extractor
	log         *zap.Logger
	now         func() time.Time
	temperature float64
}

// New creates an orchestrator with the production clock. temperature is the
// generation temperature for every model call this orchestrator issues.
func New(repo Repository, model schemas.LLMClient, temperature float64, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		repo:        repo,
		model:       model,
		extractor:   extract.New(logger),
		log:         logger.Named("turn"),
		now:         time.Now,
		temperature: temperature,
	}
}

// Process runs one full turn. Every failure path leaves the session and its
// action log untouched; on success exactly one commit lands, covering all
// extracted actions and the session update.
func (o *Orchestrator) Process(ctx context.Context, req Request) (Result, error) {
	if err := req.Page.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	now := o.now().UTC()

	sess, err := o.resolveSession(ctx, req, now)
	if err != nil {
		return Result{}, err
	}

	history, err := o.repo.RecentActions(ctx, sess.ID, transcript.HistoryLimit)
	if err != nil {
		return Result{}, fmt.Errorf("%w: loading history: %s", ErrPersistence, err)
	}

	tr := transcript.Build(sess.Title, history, req.Page)
	raw, genErr := o.model.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: tr.SystemPrompt(),
		UserPrompt:   tr.UserPrompt(),
		Options: schemas.GenerationOptions{
			Temperature:     o.temperature,
			ForceJSONFormat: true,
		},
	})
	if genErr != nil {
		if raw == "" {
			return Result{}, fmt.Errorf("%w: %s", ErrModelCall, genErr)
		}
		// A partial response is still worth extracting from.
		o.log.Warn("Model call failed but returned partial output",
			zap.String("session_id", sess.ID.String()),
			zap.Error(genErr))
	}

	actions := o.extractor.Extract(raw)

	completed := false
	for _, a := range actions {
		a.Stamp(now)
		if a.ActionType() == action.TypeComplete {
			completed = true
		}
	}

	commit := store.TurnCommit{
		SessionID:  sess.ID,
		Actions:    actions,
		PageURL:    req.Page.URL,
		PageMarkup: req.Page.HTML,
		Now:        now,
		Completed:  completed,
	}
	if err := o.repo.CommitTurn(ctx, commit); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrPersistence, err)
	}

	sess.UpdatedAt = now
	if completed && sess.CompletedAt == nil {
		sess.CompletedAt = &now
	}

	o.log.Info("Turn processed",
		zap.String("session_id", sess.ID.String()),
		zap.Int("actions", len(actions)),
		zap.Bool("complete", completed))

	return Result{Session: sess, Actions: actions, Complete: completed}, nil
}

// resolveSession creates a session for a first turn or loads and gates an
// existing one. Completed sessions are rejected before any model call.
func (o *Orchestrator) resolveSession(ctx context.Context, req Request, now time.Time) (schemas.Session, error) {
	if req.SessionID == nil {
		title := strings.TrimSpace(req.Title)
		if title == "" {
			return schemas.Session{}, fmt.Errorf("%w: a new session needs a non-empty goal", ErrInvalidRequest)
		}
		if utf8.RuneCountInString(title) > schemas.MaxTitleLength {
			return schemas.Session{}, fmt.Errorf("%w: goal exceeds %d characters", ErrInvalidRequest, schemas.MaxTitleLength)
		}
		sess, err := o.repo.CreateSession(ctx, title, now)
		if err != nil {
			return schemas.Session{}, fmt.Errorf("%w: creating session: %s", ErrPersistence, err)
		}
		return sess, nil
	}

	sess, err := o.repo.GetSession(ctx, *req.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return schemas.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, *req.SessionID)
		}
		return schemas.Session{}, fmt.Errorf("%w: loading session: %s", ErrPersistence, err)
	}
	if !sess.Active() {
		return schemas.Session{}, fmt.Errorf("%w: %s", ErrInvalidState, sess.ID)
	}
	return sess, nil
}
