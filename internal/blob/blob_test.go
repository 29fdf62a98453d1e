package blob

import (
	"context"
	"testing"

	"github.com/prepdeck/backend/internal/apperr"
	"github.com/prepdeck/backend/internal/model"
)

func testQuestion(id, subject, topic string) model.Question {
	return model.Question{
		ID:            id,
		Subject:       subject,
		Topic:         topic,
		Prompt:        "Which organelle produces ATP?",
		OptionA:       "Nucleus",
		OptionB:       "Mitochondrion",
		OptionC:       "Ribosome",
		OptionD:       "Golgi apparatus",
		CorrectOption: model.OptionB,
		Explanation:   "Mitochondria run cellular respiration.",
	}
}

func TestMemStorePutGet(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	q := testQuestion("q1", "AP Biology", "Unit 1")
	if err := s.Put(ctx, "q1", q); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "q1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != q {
		t.Errorf("Get returned %+v, want %+v", got, q)
	}

	_, err = s.Get(ctx, "missing")
	if !apperr.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestMemStoreGetMany(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, id, testQuestion(id, "AP Biology", "Unit 1")); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	// Missing IDs are omitted, not errors.
	got, err := s.GetMany(ctx, []string{"a", "missing", "c"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("unexpected IDs: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestMemStoreList(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	for _, id := range []string{"aa-1", "aa-2", "bb-1"} {
		if err := s.Put(ctx, id, testQuestion(id, "AP Biology", "Unit 1")); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	tests := []struct {
		name   string
		prefix string
		want   int
	}{
		{"all", "", 3},
		{"prefix aa", "aa", 2},
		{"prefix bb", "bb", 1},
		{"no match", "zz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := s.List(ctx, tt.prefix)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(ids) != tt.want {
				t.Errorf("expected %d ids, got %d: %v", tt.want, len(ids), ids)
			}
		})
	}
}

func TestObjectKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"round trip", objectKey("abc-123"), "abc-123"},
		{"wrong prefix", "avatars/abc.json", ""},
		{"wrong suffix", "questions/abc.txt", ""},
		{"bare key", "abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := idFromKey(tt.key); got != tt.want {
				t.Errorf("idFromKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
