// Package ledger records answer attempts and derives mastery
// statistics. It consumes question IDs handed out by the cache
// coordinator but takes no part in cache logic.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/prepdeck/backend/internal/apperr"
	"github.com/prepdeck/backend/internal/blob"
	"github.com/prepdeck/backend/internal/model"
	"github.com/prepdeck/backend/internal/store"
)

const defaultHistoryLimit = 50

// Ledger is the attempt/progress service.
type Ledger struct {
	store *store.Store
	blobs blob.Store
}

// New creates a Ledger over the given store and blob store.
func New(s *store.Store, blobs blob.Store) *Ledger {
	return &Ledger{store: s, blobs: blobs}
}

// AttemptInput is the caller-supplied attempt. QuestionID must come
// from a prior fetch; the ledger never generates questions itself.
type AttemptInput struct {
	UserID       int64
	QuestionID   string
	Subject      string
	Topic        string
	ChosenOption model.Option
	WasCorrect   bool
	ElapsedMs    int64
}

// RecordAttempt validates the input, appends the attempt, and returns
// the recomputed mastery and attempt total for the (user, subject,
// topic) key.
func (l *Ledger) RecordAttempt(ctx context.Context, in AttemptInput) (mastery, totalAttempts int, err error) {
	if err := validateAttempt(in); err != nil {
		return 0, 0, err
	}

	user, err := l.store.GetUserByID(in.UserID)
	if err != nil {
		return 0, 0, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return 0, 0, &apperr.NotFoundError{Kind: "user", ID: strconv.FormatInt(in.UserID, 10)}
	}

	p, err := l.store.RecordAttempt(model.AttemptRecord{
		UserID:       in.UserID,
		QuestionID:   in.QuestionID,
		Subject:      in.Subject,
		Topic:        in.Topic,
		ChosenOption: in.ChosenOption,
		WasCorrect:   in.WasCorrect,
		ElapsedMs:    in.ElapsedMs,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("record attempt: %w", err)
	}
	return p.Mastery, p.TotalAttempts, nil
}

func validateAttempt(in AttemptInput) error {
	if in.UserID <= 0 {
		return &apperr.ValidationError{Field: "user_id", Reason: "required"}
	}
	if in.QuestionID == "" {
		return &apperr.ValidationError{Field: "question_id", Reason: "required"}
	}
	if in.Subject == "" {
		return &apperr.ValidationError{Field: "subject", Reason: "required"}
	}
	if in.Topic == "" {
		return &apperr.ValidationError{Field: "topic", Reason: "required"}
	}
	if !in.ChosenOption.Valid() {
		return &apperr.ValidationError{Field: "chosen_option", Reason: "must be one of A, B, C, D"}
	}
	if in.ElapsedMs < 0 {
		return &apperr.ValidationError{Field: "elapsed_ms", Reason: "must not be negative"}
	}
	return nil
}

// Progress returns the progress entry for the key. A user with no
// attempts on the key gets a zero-valued entry, not an error.
func (l *Ledger) Progress(ctx context.Context, userID int64, subject, topic string) (model.ProgressEntry, error) {
	p, err := l.store.GetProgress(userID, subject, topic)
	if err != nil {
		return model.ProgressEntry{}, fmt.Errorf("get progress: %w", err)
	}
	if p == nil {
		return model.ProgressEntry{UserID: userID, Subject: subject, Topic: topic}, nil
	}
	return *p, nil
}

// ProgressAll returns every progress entry for the user.
func (l *Ledger) ProgressAll(ctx context.Context, userID int64) ([]model.ProgressEntry, error) {
	return l.store.ListProgress(userID)
}

// History returns the user's most recent attempts with their questions
// lazily loaded from the blob store. Attempts whose question blob is
// gone keep a nil Question; the attempt record itself is the durable
// part of the history.
func (l *Ledger) History(ctx context.Context, userID int64, limit int) ([]model.HistoryItem, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	attempts, err := l.store.ListAttempts(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	ids := make([]string, 0, len(attempts))
	seen := make(map[string]struct{}, len(attempts))
	for _, a := range attempts {
		if _, ok := seen[a.QuestionID]; ok {
			continue
		}
		seen[a.QuestionID] = struct{}{}
		ids = append(ids, a.QuestionID)
	}

	questions, err := l.blobs.GetMany(ctx, ids)
	if err != nil {
		// Best-effort enrichment; the attempts are still returned.
		slog.Warn("history question fetch failed", "user_id", userID, "error", err)
		questions = nil
	}
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	items := make([]model.HistoryItem, 0, len(attempts))
	for _, a := range attempts {
		item := model.HistoryItem{Attempt: a}
		if q, ok := byID[a.QuestionID]; ok {
			item.Question = &q
		}
		items = append(items, item)
	}
	return items, nil
}
