// Package attempt implements the lifecycle of one timed quiz attempt:
// access-key verification, the countdown window, per-question answer
// locking, and finalization through live submission, timeout, offline
// export, or cancellation.
package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gradebox/quizdesk-backend/internal/codec"
	"github.com/gradebox/quizdesk-backend/internal/model"
)

// State is the lifecycle state of an attempt.
type State string

const (
	StateIdle       State = "IDLE"
	StateKeyPending State = "KEY_PENDING"
	StateActive     State = "ACTIVE"
	StateFinalizing State = "FINALIZING"
	StateFinalized  State = "FINALIZED"
)

// Reason records which event triggered finalization.
type Reason string

const (
	ReasonLiveSubmit    Reason = "LIVE_SUBMIT"
	ReasonAutoSubmit    Reason = "AUTO_SUBMIT"
	ReasonOfflineExport Reason = "OFFLINE_EXPORT"
)

// Guard violations share a common sentinel so callers can treat them
// uniformly: the attempt is untouched and the violation degrades to a
// user-visible notice, never a state change.
var (
	ErrGuardViolation    = errors.New("guard violation")
	ErrSlotLocked        = fmt.Errorf("%w: answer is locked", ErrGuardViolation)
	ErrAttemptFinalized  = fmt.Errorf("%w: attempt is finalized", ErrGuardViolation)
	ErrEmptyLock         = fmt.Errorf("%w: empty answer cannot be locked", ErrGuardViolation)
	ErrNotActive         = fmt.Errorf("%w: attempt is not active", ErrGuardViolation)
	ErrGradingInProgress = fmt.Errorf("%w: grading request already in flight", ErrGuardViolation)

	ErrAlreadyAttempted = errors.New("quiz already attempted")
	ErrKeyMismatch      = errors.New("quiz key mismatch")
	ErrInvalidOption    = errors.New("option outside the answer alphabet")
	ErrSlotOutOfRange   = errors.New("answer index out of range")
	ErrWrongMode        = errors.New("quiz is not an online quiz")

	// ErrGradeRejected must be wrapped by a Grader when the collaborator
	// permanently refuses the attempt (already graded, deadline passed).
	// Any other grading error is treated as transient and the same
	// finalizing attempt may be retried.
	ErrGradeRejected = errors.New("grading rejected")
)

// Store is the durable, student-scoped record behind single-attempt
// enforcement, plus the transient working answer set. It is advisory; the
// grader is the source of truth for whether a grade exists.
type Store interface {
	IsCompleted(ctx context.Context, quizID string, studentID int) (bool, error)
	// MarkCompleted is idempotent.
	MarkCompleted(ctx context.Context, quizID string, studentID int) error
	SaveWorkingAnswer(ctx context.Context, quizID string, studentID, question int, option string) error
	ClearWorkingAnswers(ctx context.Context, quizID string, studentID int) error
}

// Grader delivers one FinalAnswerSet to the grading collaborator and
// returns one GradedResult, or fails. Permanent refusals wrap
// ErrGradeRejected; everything else is a transport failure.
type Grader interface {
	Grade(ctx context.Context, source model.SubmissionSource, set *model.FinalAnswerSet) (*model.GradedResult, error)
}

// Slot is one answer slot. Once Locked, Option is immutable for the rest
// of the session.
type Slot struct {
	Option string `json:"option"`
	Locked bool   `json:"locked"`
}

// Snapshot is a read-only view of an attempt, safe to expose while a
// grading call is in flight.
type Snapshot struct {
	State    State               `json:"state"`
	Reason   Reason              `json:"reason,omitempty"`
	TimeLeft int                 `json:"time_left"`
	Slots    []Slot              `json:"slots,omitempty"`
	Result   *model.GradedResult `json:"result,omitempty"`
}

// Attempt is the state machine for one (student, quiz) pair. Every
// externally-triggered event runs to completion under the mutex, so no two
// transitions interleave; the mutex is released only across the grading
// call, which is covered by the in-flight guard.
type Attempt struct {
	mu      sync.Mutex
	quiz    *model.Quiz
	student model.StudentIdentity

	state    State
	reason   Reason
	slots    []Slot
	timeLeft int
	timed    bool
	grading  bool
	result   *model.GradedResult

	store  Store
	grader Grader
	log    zerolog.Logger
}

// New creates an attempt in the Idle state.
func New(quiz *model.Quiz, student model.StudentIdentity, store Store, grader Grader, log zerolog.Logger) *Attempt {
	return &Attempt{
		quiz:    quiz,
		student: student,
		state:   StateIdle,
		store:   store,
		grader:  grader,
		log: log.With().
			Str("quiz_id", quiz.ID.String()).
			Int("student_id", student.ID).
			Logger(),
	}
}

// Begin moves Idle to KeyPending, refusing if the completion marker is
// already set for this pair. A refused attempt stays Idle; only the
// offline import path remains available.
func (a *Attempt) Begin(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.quiz.Mode != model.QuizModeOnline {
		return ErrWrongMode
	}
	if a.state != StateIdle {
		return fmt.Errorf("%w: attempt already begun", ErrGuardViolation)
	}

	done, err := a.store.IsCompleted(ctx, a.quiz.ID.String(), a.student.ID)
	if err != nil {
		return fmt.Errorf("check completion marker: %w", err)
	}
	if done {
		return ErrAlreadyAttempted
	}

	a.state = StateKeyPending
	return nil
}

// VerifyKey compares the candidate against the quiz access key (exact
// match after trimming surrounding whitespace). On match the answer slots
// are allocated and the countdown is initialized; on mismatch the attempt
// stays KeyPending and nothing is recorded.
func (a *Attempt) VerifyKey(candidate string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateKeyPending {
		return fmt.Errorf("%w: no key challenge pending", ErrGuardViolation)
	}

	if strings.TrimSpace(candidate) != strings.TrimSpace(a.quiz.AccessKey) {
		return ErrKeyMismatch
	}

	a.slots = make([]Slot, a.quiz.QuestionCount)
	if a.quiz.TimeLimit > 0 {
		a.timed = true
		a.timeLeft = a.quiz.TimeLimit * 60
	}
	a.state = StateActive

	a.log.Info().Int("time_left", a.timeLeft).Msg("Attempt activated")
	return nil
}

// SetAnswer overwrites slot i with option. Unlocked answers may be changed
// any number of times; a locked slot or an inactive attempt reports a
// guard violation and changes nothing.
func (a *Attempt) SetAnswer(ctx context.Context, i int, option string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateFinalizing || a.state == StateFinalized {
		return ErrAttemptFinalized
	}
	if a.state != StateActive {
		return ErrNotActive
	}
	if i < 0 || i >= len(a.slots) {
		return ErrSlotOutOfRange
	}
	if option == "" || !model.ValidOption(option) {
		return fmt.Errorf("%w: %q", ErrInvalidOption, option)
	}
	if a.slots[i].Locked {
		return ErrSlotLocked
	}

	a.slots[i].Option = option

	// Mirror the working answer for crash recovery; the in-memory slot is
	// still the source for exports, so a store failure is not fatal.
	if err := a.store.SaveWorkingAnswer(ctx, a.quiz.ID.String(), a.student.ID, i+1, option); err != nil {
		a.log.Warn().Err(err).Int("question", i+1).Msg("Working answer mirror failed")
	}
	return nil
}

// LockAnswer irreversibly locks slot i. Locking an unset slot, an already
// locked slot, or a finalized attempt is a guard violation no-op.
func (a *Attempt) LockAnswer(i int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateFinalizing || a.state == StateFinalized {
		return ErrAttemptFinalized
	}
	if a.state != StateActive {
		return ErrNotActive
	}
	if i < 0 || i >= len(a.slots) {
		return ErrSlotOutOfRange
	}
	if a.slots[i].Option == "" {
		return ErrEmptyLock
	}
	if a.slots[i].Locked {
		return ErrSlotLocked
	}

	a.slots[i].Locked = true
	return nil
}

// Tick decrements the countdown by one second. Ticks outside the Active
// state are silently discarded. Returns true exactly once: at the tick
// where the counter reaches zero, which reserves the Finalizing transition
// with the auto-submit reason (the caller must then complete grading via
// FinishAutoSubmit).
func (a *Attempt) Tick() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateActive || !a.timed {
		return false
	}

	if a.timeLeft > 0 {
		a.timeLeft--
	}
	if a.timeLeft > 0 {
		return false
	}

	a.lockAnsweredLocked()
	a.state = StateFinalizing
	a.reason = ReasonAutoSubmit
	a.log.Info().Msg("Countdown expired, auto-submitting")
	return true
}

// Submit finalizes with the live-submit reason and requests grading. Every
// answered slot locks first; unset slots are submitted empty. On transport
// failure the attempt stays Finalizing and Submit may be called again; on
// rejection the attempt finalizes and the local completion marker is
// forced to match the collaborator's verdict.
func (a *Attempt) Submit(ctx context.Context) (*model.GradedResult, error) {
	a.mu.Lock()
	switch a.state {
	case StateActive:
		a.lockAnsweredLocked()
		a.state = StateFinalizing
		a.reason = ReasonLiveSubmit
	case StateFinalizing:
		// Retry of the same finalizing attempt after a transport failure.
		if a.grading {
			a.mu.Unlock()
			return nil, ErrGradingInProgress
		}
	case StateFinalized:
		a.mu.Unlock()
		return nil, ErrAttemptFinalized
	default:
		a.mu.Unlock()
		return nil, ErrNotActive
	}
	a.mu.Unlock()

	return a.grade(ctx, model.SourceLive)
}

// FinishAutoSubmit completes the grading half of a timeout finalization
// reserved by Tick.
func (a *Attempt) FinishAutoSubmit(ctx context.Context) (*model.GradedResult, error) {
	a.mu.Lock()
	if a.state != StateFinalizing || a.reason != ReasonAutoSubmit {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: no auto-submit pending", ErrGuardViolation)
	}
	if a.grading {
		a.mu.Unlock()
		return nil, ErrGradingInProgress
	}
	a.mu.Unlock()

	return a.grade(ctx, model.SourceAutoSubmit)
}

// SaveOffline locks every answered slot, then returns a fresh encoded
// snapshot of the answer set for delivery as a downloadable file. It does
// not finalize; it may be called repeatedly while Active.
func (a *Attempt) SaveOffline() (fileName string, encoded []byte, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateFinalizing || a.state == StateFinalized {
		return "", nil, ErrAttemptFinalized
	}
	if a.state != StateActive {
		return "", nil, ErrNotActive
	}

	a.lockAnsweredLocked()
	encoded, err = a.encodeAnswerSetLocked()
	if err != nil {
		return "", nil, err
	}
	return ExportFileName(a.quiz.Title, OfflineAnswersSuffix), encoded, nil
}

// Cancel exports the partial answer set, marks the attempt as completed,
// and finalizes with the offline-export reason. The export payload is
// returned so the caller can still deliver it; an encoding failure aborts
// the cancel and is reported, never silently dropped.
func (a *Attempt) Cancel(ctx context.Context) (fileName string, encoded []byte, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateFinalizing || a.state == StateFinalized {
		return "", nil, ErrAttemptFinalized
	}
	if a.state != StateActive {
		return "", nil, ErrNotActive
	}

	a.lockAnsweredLocked()
	encoded, err = a.encodeAnswerSetLocked()
	if err != nil {
		return "", nil, err
	}

	a.state = StateFinalizing
	a.reason = ReasonOfflineExport
	a.finalizeLocked(ctx)

	return ExportFileName(a.quiz.Title, OfflineAnswersSuffix), encoded, nil
}

// Snapshot returns a read-only copy of the attempt's observable state.
func (a *Attempt) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	slots := make([]Slot, len(a.slots))
	copy(slots, a.slots)

	return Snapshot{
		State:    a.state,
		Reason:   a.reason,
		TimeLeft: a.timeLeft,
		Slots:    slots,
		Result:   a.result,
	}
}

// State returns the current lifecycle state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// grade runs the grading call outside the mutex, guarded by the in-flight
// flag so no second grading request can attach to the same finalization.
func (a *Attempt) grade(ctx context.Context, source model.SubmissionSource) (*model.GradedResult, error) {
	a.mu.Lock()
	if a.grading {
		a.mu.Unlock()
		return nil, ErrGradingInProgress
	}
	a.grading = true
	set := a.answerSetLocked()
	a.mu.Unlock()

	result, err := a.grader.Grade(ctx, source, set)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.grading = false

	if err != nil {
		if errors.Is(err, ErrGradeRejected) {
			// The collaborator is authoritative: reconcile the local marker
			// even though it disagreed, then refuse further submissions.
			a.finalizeLocked(ctx)
			return nil, err
		}
		// Transport failure: no grade was recorded, the same finalizing
		// attempt stays retryable.
		a.log.Warn().Err(err).Msg("Grading call failed, attempt stays retryable")
		return nil, err
	}

	a.result = result
	a.finalizeLocked(ctx)
	a.log.Info().Float64("obtained_marks", result.ObtainedMarks).Msg("Attempt graded")
	return result, nil
}

// finalizeLocked performs the Finalizing to Finalized transition: records
// completion and drops the working answer mirror. Callers hold the mutex.
func (a *Attempt) finalizeLocked(ctx context.Context) {
	a.state = StateFinalized
	if err := a.store.MarkCompleted(ctx, a.quiz.ID.String(), a.student.ID); err != nil {
		a.log.Error().Err(err).Msg("Completion marker write failed")
	}
	if err := a.store.ClearWorkingAnswers(ctx, a.quiz.ID.String(), a.student.ID); err != nil {
		a.log.Warn().Err(err).Msg("Working answer cleanup failed")
	}
}

// lockAnsweredLocked locks every slot whose option is set; unanswered
// slots stay unset and unlocked.
func (a *Attempt) lockAnsweredLocked() {
	for i := range a.slots {
		if a.slots[i].Option != "" {
			a.slots[i].Locked = true
		}
	}
}

// answerSetLocked builds the FinalAnswerSet covering every question, unset
// answers as empty strings.
func (a *Attempt) answerSetLocked() *model.FinalAnswerSet {
	answers := make([]model.AnswerEntry, len(a.slots))
	for i := range a.slots {
		answers[i] = model.AnswerEntry{Question: i + 1, Answer: a.slots[i].Option}
	}
	return &model.FinalAnswerSet{
		QuizID:      a.quiz.ID.String(),
		RollNo:      a.student.RollNo,
		StudentName: a.student.Name,
		Answers:     answers,
	}
}

func (a *Attempt) encodeAnswerSetLocked() ([]byte, error) {
	raw, err := json.Marshal(a.answerSetLocked())
	if err != nil {
		return nil, fmt.Errorf("marshal answer set: %w", err)
	}
	return []byte(codec.Encode(string(raw))), nil
}
