package store

import (
	"testing"
	"time"

	"github.com/prepdeck/backend/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, username string) int64 {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Username:     username,
		DisplayName:  "Test " + username,
		PasswordHash: "x",
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("createTestUser: %v", err)
	}
	return id
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)

	count, err := s.UserCount()
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 users, got %d", count)
	}

	id := createTestUser(t, s, "alice")

	u, err := s.GetUserByID(id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u == nil || u.Username != "alice" {
		t.Errorf("unexpected user: %+v", u)
	}

	u, err = s.GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.ID != id {
		t.Errorf("unexpected user by username: %+v", u)
	}

	// Not found returns nil, nil.
	u, err = s.GetUserByUsername("nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername missing: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil for missing user, got %+v", u)
	}
}

func TestAuthSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "alice")

	token, err := s.CreateAuthSession(userID)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != userID {
		t.Errorf("unexpected session: %+v", sess)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil session after delete")
	}
}

func TestRecordAttemptMasterySequence(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "alice")

	// T, F, T, T should yield 100, 50, 67, 75.
	sequence := []struct {
		correct     bool
		wantMastery int
		wantTotal   int
	}{
		{true, 100, 1},
		{false, 50, 2},
		{true, 67, 3},
		{true, 75, 4},
	}

	for i, step := range sequence {
		p, err := s.RecordAttempt(model.AttemptRecord{
			UserID:       userID,
			QuestionID:   "q-1",
			Subject:      "AP Biology",
			Topic:        "Unit 1",
			ChosenOption: model.OptionB,
			WasCorrect:   step.correct,
			ElapsedMs:    1500,
		})
		if err != nil {
			t.Fatalf("RecordAttempt %d: %v", i, err)
		}
		if p.Mastery != step.wantMastery {
			t.Errorf("attempt %d: mastery = %d, want %d", i, p.Mastery, step.wantMastery)
		}
		if p.TotalAttempts != step.wantTotal {
			t.Errorf("attempt %d: total = %d, want %d", i, p.TotalAttempts, step.wantTotal)
		}
	}
}

func TestRecordAttemptSeparateKeys(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "alice")

	if _, err := s.RecordAttempt(model.AttemptRecord{
		UserID: userID, QuestionID: "q-1", Subject: "AP Biology", Topic: "Unit 1",
		ChosenOption: model.OptionA, WasCorrect: true,
	}); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if _, err := s.RecordAttempt(model.AttemptRecord{
		UserID: userID, QuestionID: "q-2", Subject: "AP Biology", Topic: "Unit 2",
		ChosenOption: model.OptionA, WasCorrect: false,
	}); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	p1, err := s.GetProgress(userID, "AP Biology", "Unit 1")
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if p1 == nil || p1.Mastery != 100 || p1.TotalAttempts != 1 {
		t.Errorf("unexpected Unit 1 progress: %+v", p1)
	}

	p2, err := s.GetProgress(userID, "AP Biology", "Unit 2")
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if p2 == nil || p2.Mastery != 0 || p2.TotalAttempts != 1 {
		t.Errorf("unexpected Unit 2 progress: %+v", p2)
	}

	// No progress row for an untouched key.
	p3, err := s.GetProgress(userID, "AP Chemistry", "Unit 1")
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if p3 != nil {
		t.Errorf("expected nil progress, got %+v", p3)
	}

	all, err := s.ListProgress(userID)
	if err != nil {
		t.Fatalf("ListProgress: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 progress rows, got %d", len(all))
	}
}

func TestListAttempts(t *testing.T) {
	s := newTestStore(t)
	userID := createTestUser(t, s, "alice")

	for i, qid := range []string{"q-1", "q-2", "q-3"} {
		if _, err := s.RecordAttempt(model.AttemptRecord{
			UserID: userID, QuestionID: qid, Subject: "AP Biology", Topic: "Unit 1",
			ChosenOption: model.OptionC, WasCorrect: i%2 == 0, ElapsedMs: int64(1000 * i),
		}); err != nil {
			t.Fatalf("RecordAttempt %s: %v", qid, err)
		}
	}

	attempts, err := s.ListAttempts(userID, 2)
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	// Newest first.
	if attempts[0].QuestionID != "q-3" || attempts[1].QuestionID != "q-2" {
		t.Errorf("unexpected order: %s, %s", attempts[0].QuestionID, attempts[1].QuestionID)
	}
	if attempts[0].CreatedAt.After(time.Now().Add(time.Minute)) {
		t.Error("created_at looks wrong")
	}

	count, err := s.AttemptCount()
	if err != nil {
		t.Fatalf("AttemptCount: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 attempts total, got %d", count)
	}
}

func TestMasteryPercent(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{0, 0, 0},
		{1, 1, 100},
		{1, 2, 50},
		{2, 3, 67},
		{3, 4, 75},
		{1, 3, 33},
		{0, 5, 0},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := masteryPercent(tt.correct, tt.total); got != tt.want {
			t.Errorf("masteryPercent(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}
