package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Option labels a multiple-choice answer.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// Valid reports whether o is one of the four answer labels.
func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Question is a generated multiple-choice question. Questions are
// immutable once created; the blob store owns the durable copy and
// everything else holds the ID as a weak reference.
type Question struct {
	ID            string `json:"id"`
	Subject       string `json:"subject"`
	Topic         string `json:"topic"`
	Prompt        string `json:"prompt"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption Option `json:"correct_option"`
	Explanation   string `json:"explanation"`
}

// AttemptRecord is one answered question. Append-only; the question
// itself can be re-fetched from the blob store by ID if needed.
type AttemptRecord struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	QuestionID   string    `json:"question_id"`
	Subject      string    `json:"subject"`
	Topic        string    `json:"topic"`
	ChosenOption Option    `json:"chosen_option"`
	WasCorrect   bool      `json:"was_correct"`
	ElapsedMs    int64     `json:"elapsed_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProgressEntry tracks mastery for one (user, subject, topic) key.
// Mastery is recomputed from the counters on every attempt, never
// maintained as a running average.
type ProgressEntry struct {
	UserID          int64     `json:"user_id"`
	Subject         string    `json:"subject"`
	Topic           string    `json:"topic"`
	TotalAttempts   int       `json:"total_attempts"`
	CorrectAttempts int       `json:"correct_attempts"`
	Mastery         int       `json:"mastery"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SubjectCount is one row of per-subject cache statistics.
type SubjectCount struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// CacheStats is a read-only snapshot of the question cache.
type CacheStats struct {
	Total      int            `json:"total"`
	PerSubject []SubjectCount `json:"per_subject"`
}

// HistoryItem pairs an attempt with its lazily loaded question. The
// question is nil when the blob is gone or unreadable.
type HistoryItem struct {
	Attempt  AttemptRecord `json:"attempt"`
	Question *Question     `json:"question,omitempty"`
}
