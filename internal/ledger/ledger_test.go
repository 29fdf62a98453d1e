package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/prepdeck/backend/internal/apperr"
	"github.com/prepdeck/backend/internal/blob"
	"github.com/prepdeck/backend/internal/model"
	"github.com/prepdeck/backend/internal/store"
)

func newTestLedger(t *testing.T) (*Ledger, *store.Store, *blob.MemStore) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	blobs := blob.NewMemStore()
	return New(s, blobs), s, blobs
}

func createUser(t *testing.T, s *store.Store) int64 {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Username: "alice", PasswordHash: "x", Role: model.UserRoleStudent, Active: true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return id
}

func validInput(userID int64) AttemptInput {
	return AttemptInput{
		UserID:       userID,
		QuestionID:   "q-1",
		Subject:      "AP Biology",
		Topic:        "Unit 1",
		ChosenOption: model.OptionB,
		WasCorrect:   true,
		ElapsedMs:    2000,
	}
}

func TestRecordAttempt(t *testing.T) {
	l, s, _ := newTestLedger(t)
	userID := createUser(t, s)
	ctx := context.Background()

	mastery, total, err := l.RecordAttempt(ctx, validInput(userID))
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if mastery != 100 || total != 1 {
		t.Errorf("got mastery=%d total=%d, want 100/1", mastery, total)
	}

	in := validInput(userID)
	in.WasCorrect = false
	mastery, total, err = l.RecordAttempt(ctx, in)
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if mastery != 50 || total != 2 {
		t.Errorf("got mastery=%d total=%d, want 50/2", mastery, total)
	}
}

func TestRecordAttemptUnknownUser(t *testing.T) {
	l, _, _ := newTestLedger(t)

	_, _, err := l.RecordAttempt(context.Background(), validInput(42))
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Kind != "user" {
		t.Errorf("expected user NotFoundError, got kind %q", nf.Kind)
	}
}

func TestRecordAttemptValidation(t *testing.T) {
	l, s, _ := newTestLedger(t)
	userID := createUser(t, s)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*AttemptInput)
	}{
		{"missing user", func(in *AttemptInput) { in.UserID = 0 }},
		{"missing question id", func(in *AttemptInput) { in.QuestionID = "" }},
		{"missing subject", func(in *AttemptInput) { in.Subject = "" }},
		{"missing topic", func(in *AttemptInput) { in.Topic = "" }},
		{"bad option", func(in *AttemptInput) { in.ChosenOption = "E" }},
		{"empty option", func(in *AttemptInput) { in.ChosenOption = "" }},
		{"negative elapsed", func(in *AttemptInput) { in.ElapsedMs = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(userID)
			tt.mutate(&in)
			_, _, err := l.RecordAttempt(ctx, in)
			if !apperr.IsValidation(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}

	// Validation failures must not record anything.
	count, err := s.AttemptCount()
	if err != nil {
		t.Fatalf("AttemptCount: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 attempts after validation failures, got %d", count)
	}
}

func TestProgressZeroValue(t *testing.T) {
	l, s, _ := newTestLedger(t)
	userID := createUser(t, s)

	p, err := l.Progress(context.Background(), userID, "AP Biology", "Unit 9")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if p.TotalAttempts != 0 || p.Mastery != 0 {
		t.Errorf("expected zero progress, got %+v", p)
	}
	if p.Subject != "AP Biology" || p.Topic != "Unit 9" {
		t.Errorf("zero progress should carry the key, got %+v", p)
	}
}

func TestHistoryLazilyLoadsQuestions(t *testing.T) {
	l, s, blobs := newTestLedger(t)
	userID := createUser(t, s)
	ctx := context.Background()

	q := model.Question{
		ID: "q-live", Subject: "AP Biology", Topic: "Unit 1",
		Prompt: "p", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
		CorrectOption: model.OptionA,
	}
	if err := blobs.Put(ctx, q.ID, q); err != nil {
		t.Fatalf("Put: %v", err)
	}

	for _, qid := range []string{"q-live", "q-gone"} {
		in := validInput(userID)
		in.QuestionID = qid
		if _, _, err := l.RecordAttempt(ctx, in); err != nil {
			t.Fatalf("RecordAttempt %s: %v", qid, err)
		}
	}

	items, err := l.History(ctx, userID, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 history items, got %d", len(items))
	}

	// Newest first: q-gone has no blob, q-live resolves.
	if items[0].Attempt.QuestionID != "q-gone" || items[0].Question != nil {
		t.Errorf("expected unresolved question for q-gone, got %+v", items[0])
	}
	if items[1].Attempt.QuestionID != "q-live" || items[1].Question == nil {
		t.Errorf("expected resolved question for q-live, got %+v", items[1])
	}
	if items[1].Question.Prompt != "p" {
		t.Errorf("unexpected question content: %+v", items[1].Question)
	}
}
