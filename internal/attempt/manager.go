package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gradebox/quizdesk-backend/internal/codec"
	"github.com/gradebox/quizdesk-backend/internal/model"
)

// Import validation failures. The caller's state is never mutated by a
// rejected import.
var (
	ErrMalformedImport = errors.New("malformed import payload")
	ErrImportMismatch  = fmt.Errorf("%w: payload does not belong to this quiz and student", ErrMalformedImport)
	ErrNoAttempt       = errors.New("no attempt in progress")
)

// Manager owns at most one Attempt per (student, quiz) pair and drives the
// one-second countdown for every active timed attempt. It is the single
// entry point handlers use, so all events for one attempt serialize
// through the attempt's own mutex.
type Manager struct {
	mu sync.Mutex

	// attempts keeps finalized entries for the process lifetime. They are
	// the grade-display cache: Get still serves the finalized snapshot and
	// a re-submit answers with the attempted conflict instead of a 404.
	// Refusal of a fresh Begin does not depend on this, the store's
	// completion marker covers it across restarts.
	attempts map[string]*Attempt

	store  Store
	grader Grader
	log    zerolog.Logger

	// tickInterval is one second in production; tests shorten it.
	tickInterval time.Duration
}

// NewManager creates an attempt manager.
func NewManager(store Store, grader Grader, log zerolog.Logger) *Manager {
	return &Manager{
		attempts:     make(map[string]*Attempt),
		store:        store,
		grader:       grader,
		log:          log.With().Str("component", "attempt_manager").Logger(),
		tickInterval: time.Second,
	}
}

func attemptKey(quizID string, studentID int) string {
	return fmt.Sprintf("%s:%d", quizID, studentID)
}

// Begin starts (or resumes) the attempt for the given pair. A finalized
// attempt or a set completion marker refuses with ErrAlreadyAttempted.
func (m *Manager) Begin(ctx context.Context, quiz *model.Quiz, student model.StudentIdentity) (*Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := attemptKey(quiz.ID.String(), student.ID)
	if a, ok := m.attempts[k]; ok {
		if a.State() == StateFinalized {
			return nil, ErrAlreadyAttempted
		}
		return a, nil
	}

	a := New(quiz, student, m.store, m.grader, m.log)
	if err := a.Begin(ctx); err != nil {
		return nil, err
	}
	m.attempts[k] = a
	return a, nil
}

// Get returns the live attempt for the pair, if any.
func (m *Manager) Get(quizID string, studentID int) (*Attempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptKey(quizID, studentID)]
	return a, ok
}

// VerifyKey runs the key challenge and, on success, starts the countdown
// goroutine for timed quizzes.
func (m *Manager) VerifyKey(quizID string, studentID int, candidate string) error {
	a, ok := m.Get(quizID, studentID)
	if !ok {
		return ErrNoAttempt
	}
	if err := a.VerifyKey(candidate); err != nil {
		return err
	}
	if a.quiz.TimeLimit > 0 {
		go m.runCountdown(a)
	}
	return nil
}

// runCountdown delivers one tick per interval while the attempt is Active
// and completes the auto-submit when the counter reaches zero. The
// goroutine exits the instant the attempt leaves Active for any other
// reason; late ticks are discarded inside Tick.
func (m *Manager) runCountdown(a *Attempt) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for range ticker.C {
		if a.State() != StateActive {
			return
		}
		if a.Tick() {
			if _, err := a.FinishAutoSubmit(context.Background()); err != nil {
				m.log.Error().Err(err).Msg("Auto-submit grading failed")
			}
			return
		}
	}
}

// ImportAnswers is the parallel entry for a previously exported answer
// file: decode, structurally validate, and grade directly, skipping the
// live Active phase. A malformed payload leaves everything untouched.
func (m *Manager) ImportAnswers(ctx context.Context, quiz *model.Quiz, student model.StudentIdentity, encoded string) (*model.GradedResult, error) {
	decoded := codec.Decode(encoded)

	set, err := model.ParseFinalAnswerSet([]byte(decoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	if set.QuizID != quiz.ID.String() || set.RollNo != student.RollNo {
		return nil, ErrImportMismatch
	}
	if quiz.QuestionCount > 0 && len(set.Answers) != quiz.QuestionCount {
		return nil, fmt.Errorf("%w: expected %d answers, got %d",
			ErrMalformedImport, quiz.QuestionCount, len(set.Answers))
	}

	result, err := m.grader.Grade(ctx, model.SourceOfflineImport, set)
	if err != nil {
		if errors.Is(err, ErrGradeRejected) {
			// Authoritative refusal: force the local marker into agreement.
			if markErr := m.store.MarkCompleted(ctx, quiz.ID.String(), student.ID); markErr != nil {
				m.log.Error().Err(markErr).Msg("Marker reconcile failed after rejection")
			}
		}
		return nil, err
	}

	if err := m.store.MarkCompleted(ctx, quiz.ID.String(), student.ID); err != nil {
		m.log.Error().Err(err).Msg("Completion marker write failed after import")
	}
	return result, nil
}
