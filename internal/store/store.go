// Package store persists the per-student attempt bookkeeping: the
// completion marker behind single-attempt enforcement and the transient
// working answer mirror. The store is advisory; the grading side
// (submissions table) stays authoritative, and disagreements are resolved
// in the collaborator's favor by the attempt machine.
package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/gradebox/quizdesk-backend/internal/config"
)

// SessionStore implements attempt.Store on Redis. Markers have no TTL;
// they survive process restarts for this deployment.
type SessionStore struct {
	rdb *redis.Client
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// IsCompleted reports whether the completion marker is set for the pair.
func (s *SessionStore) IsCompleted(ctx context.Context, quizID string, studentID int) (bool, error) {
	n, err := s.rdb.Exists(ctx, config.CacheKey.AttemptCompletedKey(quizID, studentID)).Result()
	if err != nil {
		return false, fmt.Errorf("check completion marker: %w", err)
	}
	return n > 0, nil
}

// MarkCompleted records completion. Idempotent: re-marking an already
// completed pair is a no-op.
func (s *SessionStore) MarkCompleted(ctx context.Context, quizID string, studentID int) error {
	if err := s.rdb.Set(ctx, config.CacheKey.AttemptCompletedKey(quizID, studentID), "1", 0).Err(); err != nil {
		return fmt.Errorf("write completion marker: %w", err)
	}
	return nil
}

// SaveWorkingAnswer mirrors one in-progress answer into the working hash.
func (s *SessionStore) SaveWorkingAnswer(ctx context.Context, quizID string, studentID, question int, option string) error {
	key := config.CacheKey.AttemptAnswersKey(quizID, studentID)
	if err := s.rdb.HSet(ctx, key, strconv.Itoa(question), option).Err(); err != nil {
		return fmt.Errorf("save working answer: %w", err)
	}
	return nil
}

// WorkingAnswers returns the mirrored in-progress answers, keyed by
// 1-based question number.
func (s *SessionStore) WorkingAnswers(ctx context.Context, quizID string, studentID int) (map[string]string, error) {
	answers, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(quizID, studentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load working answers: %w", err)
	}
	return answers, nil
}

// ClearWorkingAnswers drops the working hash after finalization.
func (s *SessionStore) ClearWorkingAnswers(ctx context.Context, quizID string, studentID int) error {
	if err := s.rdb.Del(ctx, config.CacheKey.AttemptAnswersKey(quizID, studentID)).Err(); err != nil {
		return fmt.Errorf("clear working answers: %w", err)
	}
	return nil
}
