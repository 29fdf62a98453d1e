package store

import (
	"database/sql"
	"math"
	"time"

	"github.com/prepdeck/backend/internal/model"
)

// RecordAttempt appends an attempt and upserts the matching progress
// row in one transaction. The progress counters are incremented and
// mastery is recomputed from scratch as round(100*correct/total).
// Returns the updated progress entry.
func (s *Store) RecordAttempt(a model.AttemptRecord) (model.ProgressEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return model.ProgressEntry{}, err
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.Exec(
		`INSERT INTO attempts (user_id, question_id, subject, topic, chosen_option, was_correct, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.QuestionID, a.Subject, a.Topic, a.ChosenOption, a.WasCorrect, a.ElapsedMs, now,
	)
	if err != nil {
		return model.ProgressEntry{}, err
	}

	var p model.ProgressEntry
	err = tx.QueryRow(
		`SELECT total_attempts, correct_attempts FROM progress
		 WHERE user_id = ? AND subject = ? AND topic = ?`,
		a.UserID, a.Subject, a.Topic,
	).Scan(&p.TotalAttempts, &p.CorrectAttempts)
	if err != nil && err != sql.ErrNoRows {
		return model.ProgressEntry{}, err
	}

	p.UserID = a.UserID
	p.Subject = a.Subject
	p.Topic = a.Topic
	p.TotalAttempts++
	if a.WasCorrect {
		p.CorrectAttempts++
	}
	p.Mastery = masteryPercent(p.CorrectAttempts, p.TotalAttempts)
	p.UpdatedAt = now

	_, err = tx.Exec(
		`INSERT INTO progress (user_id, subject, topic, total_attempts, correct_attempts, mastery, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, subject, topic) DO UPDATE SET
		   total_attempts = ?, correct_attempts = ?, mastery = ?, updated_at = ?`,
		p.UserID, p.Subject, p.Topic, p.TotalAttempts, p.CorrectAttempts, p.Mastery, p.UpdatedAt,
		p.TotalAttempts, p.CorrectAttempts, p.Mastery, p.UpdatedAt,
	)
	if err != nil {
		return model.ProgressEntry{}, err
	}

	return p, tx.Commit()
}

// masteryPercent computes the rounded mastery percentage in [0,100].
func masteryPercent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// GetProgress returns the progress entry for a key, or nil if the user
// has no attempts there yet.
func (s *Store) GetProgress(userID int64, subject, topic string) (*model.ProgressEntry, error) {
	var p model.ProgressEntry
	err := s.db.QueryRow(
		`SELECT user_id, subject, topic, total_attempts, correct_attempts, mastery, updated_at
		 FROM progress WHERE user_id = ? AND subject = ? AND topic = ?`,
		userID, subject, topic,
	).Scan(&p.UserID, &p.Subject, &p.Topic, &p.TotalAttempts, &p.CorrectAttempts, &p.Mastery, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProgress returns all progress entries for a user.
func (s *Store) ListProgress(userID int64) ([]model.ProgressEntry, error) {
	rows, err := s.db.Query(
		`SELECT user_id, subject, topic, total_attempts, correct_attempts, mastery, updated_at
		 FROM progress WHERE user_id = ? ORDER BY subject, topic`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.ProgressEntry
	for rows.Next() {
		var p model.ProgressEntry
		if err := rows.Scan(&p.UserID, &p.Subject, &p.Topic, &p.TotalAttempts, &p.CorrectAttempts, &p.Mastery, &p.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, p)
	}
	return entries, rows.Err()
}

// ListAttempts returns a user's most recent attempts, newest first.
func (s *Store) ListAttempts(userID int64, limit int) ([]model.AttemptRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, question_id, subject, topic, chosen_option, was_correct, elapsed_ms, created_at
		 FROM attempts WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.AttemptRecord
	for rows.Next() {
		var a model.AttemptRecord
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.Subject, &a.Topic,
			&a.ChosenOption, &a.WasCorrect, &a.ElapsedMs, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListAllAttempts returns every attempt in the database, oldest first.
// Used by the export command, not the request path.
func (s *Store) ListAllAttempts() ([]model.AttemptRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, question_id, subject, topic, chosen_option, was_correct, elapsed_ms, created_at
		 FROM attempts ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.AttemptRecord
	for rows.Next() {
		var a model.AttemptRecord
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.Subject, &a.Topic,
			&a.ChosenOption, &a.WasCorrect, &a.ElapsedMs, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListAllProgress returns every progress row in the database. Used by
// the export command, not the request path.
func (s *Store) ListAllProgress() ([]model.ProgressEntry, error) {
	rows, err := s.db.Query(
		`SELECT user_id, subject, topic, total_attempts, correct_attempts, mastery, updated_at
		 FROM progress ORDER BY user_id, subject, topic`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.ProgressEntry
	for rows.Next() {
		var p model.ProgressEntry
		if err := rows.Scan(&p.UserID, &p.Subject, &p.Topic, &p.TotalAttempts, &p.CorrectAttempts, &p.Mastery, &p.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, p)
	}
	return entries, rows.Err()
}

// AttemptCount returns the number of recorded attempts.
func (s *Store) AttemptCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM attempts`).Scan(&count)
	return count, err
}
