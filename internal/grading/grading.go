// Package grading implements the grading collaborator: it turns one
// FinalAnswerSet into one GradedResult, at most once per (student, quiz)
// pair, and queues the result for durable persistence.
package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gradebox/quizdesk-backend/internal/attempt"
	"github.com/gradebox/quizdesk-backend/internal/config"
	"github.com/gradebox/quizdesk-backend/internal/model"
)

// Permanent refusals. All wrap attempt.ErrGradeRejected, so the state
// machine knows not to retry; everything else that escapes Grade is a
// transient transport failure and the same finalizing attempt may be
// re-sent.
var (
	ErrAlreadyGraded  = fmt.Errorf("%w: attempt already graded", attempt.ErrGradeRejected)
	ErrDeadlinePassed = fmt.Errorf("%w: quiz deadline has passed", attempt.ErrGradeRejected)
	ErrUnknownStudent = fmt.Errorf("%w: unknown roll number", attempt.ErrGradeRejected)
	ErrUnknownQuiz    = fmt.Errorf("%w: unknown quiz", attempt.ErrGradeRejected)
)

// PersistPayload is the queue message consumed by the result worker.
type PersistPayload struct {
	QuizID    string                 `json:"quiz_id"`
	StudentID int                    `json:"student_id"`
	Source    model.SubmissionSource `json:"source"`
	Marks     float64                `json:"marks"`
	Details   []model.QuestionResult `json:"details"`
}

// QuizStore is the view of the quiz repository the grader needs.
type QuizStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	GetAnswerKey(ctx context.Context, quizID uuid.UUID) ([]model.QuizQuestion, error)
}

// StudentStore resolves roll numbers to student records.
type StudentStore interface {
	GetByRollNo(ctx context.Context, rollNo string) (*model.Student, error)
}

// SubmissionStore is the view of the submission repository the grader needs.
type SubmissionStore interface {
	Exists(ctx context.Context, quizID uuid.UUID, studentID int) (bool, error)
	GetResult(ctx context.Context, quizID uuid.UUID, studentID int) (*model.GradedResult, error)
	Create(ctx context.Context, sub *model.Submission, details []model.QuestionResult) error
}

// Service grades answer sets against the stored answer key.
type Service struct {
	quizRepo    QuizStore
	studentRepo StudentStore
	subRepo     SubmissionStore
	rdb         redis.Cmdable
	log         zerolog.Logger
}

// NewService creates a grading Service.
func NewService(
	quizRepo QuizStore,
	studentRepo StudentStore,
	subRepo SubmissionStore,
	rdb redis.Cmdable,
	log zerolog.Logger,
) *Service {
	return &Service{
		quizRepo:    quizRepo,
		studentRepo: studentRepo,
		subRepo:     subRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "grading").Logger(),
	}
}

// Grade implements attempt.Grader. The graded marker is claimed in Redis
// synchronously (SETNX) before any result is produced, so a concurrent or
// repeated submission for the same pair cannot double-grade even while the
// durable write is still queued.
func (s *Service) Grade(ctx context.Context, source model.SubmissionSource, set *model.FinalAnswerSet) (*model.GradedResult, error) {
	quizID, err := uuid.Parse(set.QuizID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuiz, set.QuizID)
	}

	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownQuiz, set.QuizID)
		}
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if time.Now().After(quiz.Deadline) {
		return nil, ErrDeadlinePassed
	}

	student, err := s.studentRepo.GetByRollNo(ctx, set.RollNo)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStudent, set.RollNo)
	}

	exists, err := s.subRepo.Exists(ctx, quizID, student.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing submission: %w", err)
	}
	if exists {
		return nil, ErrAlreadyGraded
	}

	// Claim the graded marker. Losing the race means another submission
	// for this pair is already being graded.
	markerKey := config.CacheKey.QuizGradedKey(set.QuizID, student.ID)
	claimed, err := s.rdb.SetNX(ctx, markerKey, "1", 0).Result()
	if err != nil {
		return nil, fmt.Errorf("claim graded marker: %w", err)
	}
	if !claimed {
		return nil, ErrAlreadyGraded
	}

	answerKey, err := s.quizRepo.GetAnswerKey(ctx, quizID)
	if err != nil {
		// Transient failure after the claim: release the marker or every
		// retry of this still-finalizing attempt gets a false rejection.
		s.releaseMarker(ctx, markerKey)
		return nil, fmt.Errorf("load answer key: %w", err)
	}

	result := Score(quiz, answerKey, set)

	s.persist(ctx, &PersistPayload{
		QuizID:    set.QuizID,
		StudentID: student.ID,
		Source:    source,
		Marks:     result.ObtainedMarks,
		Details:   result.Details,
	})

	s.log.Info().
		Str("quiz_id", set.QuizID).
		Int("student_id", student.ID).
		Str("source", string(source)).
		Float64("marks", result.ObtainedMarks).
		Msg("Attempt graded")

	return result, nil
}

// persist queues the graded submission for the result worker, falling back
// to a direct write when the queue is unreachable. The marker is already
// claimed, so at worst the durable write is late, never duplicated.
func (s *Service) persist(ctx context.Context, p *PersistPayload) {
	raw, _ := json.Marshal(p)
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Result enqueue failed, writing directly")

		sub := &model.Submission{
			QuizID:        uuid.MustParse(p.QuizID),
			StudentID:     p.StudentID,
			Source:        p.Source,
			ObtainedMarks: p.Marks,
		}
		if err := s.subRepo.Create(ctx, sub, p.Details); err != nil {
			s.log.Error().Err(err).Msg("Direct submission write failed")
		}
	}
}

// ExistingResult returns the stored GradedResult for the pair, or nil when
// none exists yet.
func (s *Service) ExistingResult(ctx context.Context, quizID uuid.UUID, studentID int) (*model.GradedResult, error) {
	result, err := s.subRepo.GetResult(ctx, quizID, studentID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

// releaseMarker undoes a claimed graded marker after a transient failure so
// the same finalizing attempt can be re-sent.
func (s *Service) releaseMarker(ctx context.Context, key string) {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Graded marker release failed")
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
