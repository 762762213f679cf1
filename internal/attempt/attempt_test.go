package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gradebox/quizdesk-backend/internal/codec"
	"github.com/gradebox/quizdesk-backend/internal/model"
)

// ─── Fakes ──────────────────────────────────────────────────────────

type fakeStore struct {
	mu        sync.Mutex
	completed map[string]bool
	working   map[string]string
	markErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		completed: make(map[string]bool),
		working:   make(map[string]string),
	}
}

func (s *fakeStore) key(quizID string, studentID int) string {
	return fmt.Sprintf("%s:%d", quizID, studentID)
}

func (s *fakeStore) IsCompleted(_ context.Context, quizID string, studentID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[s.key(quizID, studentID)], nil
}

func (s *fakeStore) MarkCompleted(_ context.Context, quizID string, studentID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.completed[s.key(quizID, studentID)] = true
	return nil
}

func (s *fakeStore) SaveWorkingAnswer(_ context.Context, quizID string, studentID, question int, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.working[fmt.Sprintf("%s:%d:%d", quizID, studentID, question)] = option
	return nil
}

func (s *fakeStore) ClearWorkingAnswers(_ context.Context, quizID string, studentID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := s.key(quizID, studentID) + ":"
	for k := range s.working {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.working, k)
		}
	}
	return nil
}

func (s *fakeStore) isCompleted(quizID string, studentID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[s.key(quizID, studentID)]
}

type fakeGrader struct {
	mu      sync.Mutex
	calls   int
	sets    []*model.FinalAnswerSet
	sources []model.SubmissionSource
	errs    []error // consumed one per call; nil entry means success
	result  *model.GradedResult

	entered chan struct{} // closed-like signal, one send per call, if non-nil
	release chan struct{} // call blocks until a receive fires, if non-nil
}

func (g *fakeGrader) Grade(_ context.Context, source model.SubmissionSource, set *model.FinalAnswerSet) (*model.GradedResult, error) {
	g.mu.Lock()
	g.calls++
	g.sets = append(g.sets, set)
	g.sources = append(g.sources, source)
	var err error
	if len(g.errs) > 0 {
		err = g.errs[0]
		g.errs = g.errs[1:]
	}
	entered, release := g.entered, g.release
	g.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}

	if err != nil {
		return nil, err
	}
	if g.result != nil {
		return g.result, nil
	}
	return &model.GradedResult{ObtainedMarks: 5, TotalMarks: 10}, nil
}

func (g *fakeGrader) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// ─── Helpers ────────────────────────────────────────────────────────

func testQuiz(questions, timeLimit int) *model.Quiz {
	return &model.Quiz{
		ID:            uuid.New(),
		Title:         "Weekly Science Quiz",
		TotalMarks:    10,
		Deadline:      time.Now().Add(24 * time.Hour),
		AccessKey:     "open-sesame",
		Mode:          model.QuizModeOnline,
		QuestionCount: questions,
		TimeLimit:     timeLimit,
	}
}

func testStudent() model.StudentIdentity {
	return model.StudentIdentity{ID: 7, RollNo: "R-42", Name: "Asha"}
}

func activeAttempt(t *testing.T, quiz *model.Quiz, store Store, grader Grader) *Attempt {
	t.Helper()
	a := New(quiz, testStudent(), store, grader, zerolog.Nop())
	if err := a.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := a.VerifyKey("open-sesame"); err != nil {
		t.Fatalf("VerifyKey: %v", err)
	}
	return a
}

func decodeExport(t *testing.T, encoded []byte) *model.FinalAnswerSet {
	t.Helper()
	set, err := model.ParseFinalAnswerSet([]byte(codec.Decode(string(encoded))))
	if err != nil {
		t.Fatalf("exported payload does not parse: %v", err)
	}
	return set
}

// ─── Lifecycle ──────────────────────────────────────────────────────

func TestBeginRefusesOfflineQuiz(t *testing.T) {
	quiz := testQuiz(3, 0)
	quiz.Mode = model.QuizModeOffline
	a := New(quiz, testStudent(), newFakeStore(), &fakeGrader{}, zerolog.Nop())

	if err := a.Begin(context.Background()); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode, got %v", err)
	}
	if a.State() != StateIdle {
		t.Fatalf("state = %s, want IDLE", a.State())
	}
}

func TestBeginRefusesCompletedPair(t *testing.T) {
	quiz := testQuiz(3, 0)
	store := newFakeStore()
	store.completed[store.key(quiz.ID.String(), 7)] = true

	a := New(quiz, testStudent(), store, &fakeGrader{}, zerolog.Nop())
	if err := a.Begin(context.Background()); !errors.Is(err, ErrAlreadyAttempted) {
		t.Fatalf("expected ErrAlreadyAttempted, got %v", err)
	}
	if a.State() != StateIdle {
		t.Fatalf("state = %s, want IDLE", a.State())
	}
}

func TestVerifyKeyMismatchKeepsChallenge(t *testing.T) {
	quiz := testQuiz(3, 10)
	a := New(quiz, testStudent(), newFakeStore(), &fakeGrader{}, zerolog.Nop())
	if err := a.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := a.VerifyKey("wrong"); !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("expected ErrKeyMismatch, got %v", err)
	}
	if a.State() != StateKeyPending {
		t.Fatalf("state = %s, want KEY_PENDING", a.State())
	}

	// The same challenge can be answered again.
	if err := a.VerifyKey("  open-sesame  "); err != nil {
		t.Fatalf("trimmed key should match: %v", err)
	}
	snap := a.Snapshot()
	if snap.State != StateActive {
		t.Fatalf("state = %s, want ACTIVE", snap.State)
	}
	if len(snap.Slots) != 3 {
		t.Fatalf("slots = %d, want 3", len(snap.Slots))
	}
	if snap.TimeLeft != 600 {
		t.Fatalf("time_left = %d, want 600", snap.TimeLeft)
	}
}

func TestSetAnswerAndLock(t *testing.T) {
	a := activeAttempt(t, testQuiz(3, 0), newFakeStore(), &fakeGrader{})
	ctx := context.Background()

	if err := a.SetAnswer(ctx, 0, "A"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	// Unlocked answers may be changed freely.
	if err := a.SetAnswer(ctx, 0, "C"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	if err := a.LockAnswer(0); err != nil {
		t.Fatalf("LockAnswer: %v", err)
	}
	if err := a.SetAnswer(ctx, 0, "B"); !errors.Is(err, ErrSlotLocked) {
		t.Fatalf("expected ErrSlotLocked, got %v", err)
	}
	if err := a.LockAnswer(0); !errors.Is(err, ErrSlotLocked) {
		t.Fatalf("relock should report ErrSlotLocked, got %v", err)
	}
	if got := a.Snapshot().Slots[0].Option; got != "C" {
		t.Fatalf("locked option changed to %q", got)
	}

	// Guard violations share the common sentinel.
	if err := a.LockAnswer(1); !errors.Is(err, ErrEmptyLock) || !errors.Is(err, ErrGuardViolation) {
		t.Fatalf("expected ErrEmptyLock guard violation, got %v", err)
	}
	if err := a.SetAnswer(ctx, 5, "A"); !errors.Is(err, ErrSlotOutOfRange) {
		t.Fatalf("expected ErrSlotOutOfRange, got %v", err)
	}
	if err := a.SetAnswer(ctx, 1, "F"); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}

// ─── Countdown ──────────────────────────────────────────────────────

func TestTickCountsDownOnce(t *testing.T) {
	quiz := testQuiz(2, 1) // one minute = 60 ticks
	a := activeAttempt(t, quiz, newFakeStore(), &fakeGrader{})
	_ = a.SetAnswer(context.Background(), 0, "B")

	for i := 0; i < 59; i++ {
		if a.Tick() {
			t.Fatalf("tick %d fired early", i+1)
		}
	}
	if snap := a.Snapshot(); snap.TimeLeft != 1 {
		t.Fatalf("time_left = %d, want 1", snap.TimeLeft)
	}

	if !a.Tick() {
		t.Fatal("final tick should reserve the auto-submit")
	}
	snap := a.Snapshot()
	if snap.State != StateFinalizing || snap.Reason != ReasonAutoSubmit {
		t.Fatalf("state = %s/%s, want FINALIZING/AUTO_SUBMIT", snap.State, snap.Reason)
	}
	if !snap.Slots[0].Locked {
		t.Fatal("answered slot should lock on timeout")
	}
	if snap.Slots[1].Locked {
		t.Fatal("unanswered slot must not lock")
	}

	// Late ticks are discarded.
	for i := 0; i < 5; i++ {
		if a.Tick() {
			t.Fatal("tick fired twice")
		}
	}
}

func TestUntimedAttemptIgnoresTicks(t *testing.T) {
	a := activeAttempt(t, testQuiz(2, 0), newFakeStore(), &fakeGrader{})
	for i := 0; i < 10; i++ {
		if a.Tick() {
			t.Fatal("untimed attempt must never auto-submit")
		}
	}
	if a.State() != StateActive {
		t.Fatalf("state = %s, want ACTIVE", a.State())
	}
}

// ─── Submission ─────────────────────────────────────────────────────

func TestSubmitGradesAndFinalizes(t *testing.T) {
	quiz := testQuiz(3, 0)
	store := newFakeStore()
	grader := &fakeGrader{}
	a := activeAttempt(t, quiz, store, grader)
	ctx := context.Background()

	_ = a.SetAnswer(ctx, 0, "A")
	_ = a.SetAnswer(ctx, 2, "D")

	result, err := a.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result == nil || result.ObtainedMarks != 5 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if a.State() != StateFinalized {
		t.Fatalf("state = %s, want FINALIZED", a.State())
	}
	if !store.isCompleted(quiz.ID.String(), 7) {
		t.Fatal("completion marker not set")
	}

	// The delivered answer set is dense and 1-based, empties included.
	set := grader.sets[0]
	if set.QuizID != quiz.ID.String() || set.RollNo != "R-42" || set.StudentName != "Asha" {
		t.Fatalf("identity mismatch: %+v", set)
	}
	want := []model.AnswerEntry{{Question: 1, Answer: "A"}, {Question: 2, Answer: ""}, {Question: 3, Answer: "D"}}
	if len(set.Answers) != len(want) {
		t.Fatalf("answers = %d, want %d", len(set.Answers), len(want))
	}
	for i, e := range want {
		if set.Answers[i] != e {
			t.Fatalf("answers[%d] = %+v, want %+v", i, set.Answers[i], e)
		}
	}
	if grader.sources[0] != model.SourceLive {
		t.Fatalf("source = %s, want LIVE", grader.sources[0])
	}

	if _, err := a.Submit(ctx); !errors.Is(err, ErrAttemptFinalized) {
		t.Fatalf("resubmit should report ErrAttemptFinalized, got %v", err)
	}
	if err := a.SetAnswer(ctx, 1, "B"); !errors.Is(err, ErrAttemptFinalized) {
		t.Fatalf("post-finalize SetAnswer should fail, got %v", err)
	}
}

func TestSubmitTransportFailureIsRetryable(t *testing.T) {
	quiz := testQuiz(2, 0)
	store := newFakeStore()
	grader := &fakeGrader{errs: []error{errors.New("connection refused"), nil}}
	a := activeAttempt(t, quiz, store, grader)
	ctx := context.Background()
	_ = a.SetAnswer(ctx, 0, "E")

	if _, err := a.Submit(ctx); err == nil {
		t.Fatal("first submit should fail")
	}
	if a.State() != StateFinalizing {
		t.Fatalf("state = %s, want FINALIZING after transport failure", a.State())
	}
	if store.isCompleted(quiz.ID.String(), 7) {
		t.Fatal("marker must not be set on transport failure")
	}

	result, err := a.Submit(ctx)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result == nil || a.State() != StateFinalized {
		t.Fatal("retry should grade and finalize")
	}
	if grader.callCount() != 2 {
		t.Fatalf("grader calls = %d, want 2", grader.callCount())
	}
}

func TestSubmitRejectionReconcilesMarker(t *testing.T) {
	quiz := testQuiz(2, 0)
	store := newFakeStore()
	rejection := fmt.Errorf("%w: already graded", ErrGradeRejected)
	grader := &fakeGrader{errs: []error{rejection}}
	a := activeAttempt(t, quiz, store, grader)
	ctx := context.Background()

	if _, err := a.Submit(ctx); !errors.Is(err, ErrGradeRejected) {
		t.Fatalf("expected ErrGradeRejected, got %v", err)
	}
	if a.State() != StateFinalized {
		t.Fatalf("state = %s, want FINALIZED after rejection", a.State())
	}
	if !store.isCompleted(quiz.ID.String(), 7) {
		t.Fatal("rejection must force the local marker")
	}
}

func TestConcurrentSubmitGradesOnce(t *testing.T) {
	quiz := testQuiz(1, 0)
	grader := &fakeGrader{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	a := activeAttempt(t, quiz, newFakeStore(), grader)
	ctx := context.Background()
	_ = a.SetAnswer(ctx, 0, "A")

	firstDone := make(chan error, 1)
	go func() {
		_, err := a.Submit(ctx)
		firstDone <- err
	}()
	<-grader.entered // first submit is inside the grading call

	if _, err := a.Submit(ctx); !errors.Is(err, ErrGradingInProgress) {
		t.Fatalf("second submit should report ErrGradingInProgress, got %v", err)
	}

	close(grader.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if grader.callCount() != 1 {
		t.Fatalf("grader calls = %d, want 1", grader.callCount())
	}
}

func TestTimeoutThenSubmitRace(t *testing.T) {
	quiz := testQuiz(1, 1)
	a := activeAttempt(t, quiz, newFakeStore(), &fakeGrader{})
	ctx := context.Background()
	_ = a.SetAnswer(ctx, 0, "B")

	// Drain the countdown: the timeout wins the finalization.
	for !a.Tick() {
	}

	// A live submit arriving after the reservation attaches to the same
	// finalizing attempt instead of double-grading.
	if _, err := a.Submit(ctx); err != nil {
		t.Fatalf("submit after timeout reservation: %v", err)
	}
	if a.State() != StateFinalized {
		t.Fatalf("state = %s, want FINALIZED", a.State())
	}

	// The reserved auto-submit now finds nothing to do.
	if _, err := a.FinishAutoSubmit(ctx); !errors.Is(err, ErrGuardViolation) {
		t.Fatalf("expected guard violation, got %v", err)
	}
}

// ─── Offline export ─────────────────────────────────────────────────

func TestSaveOfflineRepeatable(t *testing.T) {
	quiz := testQuiz(2, 0)
	a := activeAttempt(t, quiz, newFakeStore(), &fakeGrader{})
	ctx := context.Background()
	_ = a.SetAnswer(ctx, 0, "A")

	name, encoded, err := a.SaveOffline()
	if err != nil {
		t.Fatalf("SaveOffline: %v", err)
	}
	if name != "Weekly_Science_Quiz_answers_offline.txt" {
		t.Fatalf("file name = %q", name)
	}
	set := decodeExport(t, encoded)
	if set.Answers[0].Answer != "A" || set.Answers[1].Answer != "" {
		t.Fatalf("unexpected answers: %+v", set.Answers)
	}

	if a.State() != StateActive {
		t.Fatalf("state = %s, SaveOffline must not finalize", a.State())
	}
	if !a.Snapshot().Slots[0].Locked {
		t.Fatal("answered slot should lock on export")
	}

	// Unanswered slots stay editable and a second export sees the change.
	_ = a.SetAnswer(ctx, 1, "C")
	_, encoded, err = a.SaveOffline()
	if err != nil {
		t.Fatalf("second SaveOffline: %v", err)
	}
	if set := decodeExport(t, encoded); set.Answers[1].Answer != "C" {
		t.Fatalf("second export missed the new answer: %+v", set.Answers)
	}
}

func TestCancelExportsAndFinalizes(t *testing.T) {
	quiz := testQuiz(2, 0)
	store := newFakeStore()
	grader := &fakeGrader{}
	a := activeAttempt(t, quiz, store, grader)
	ctx := context.Background()
	_ = a.SetAnswer(ctx, 0, "D")

	name, encoded, err := a.Cancel(ctx)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if name != "Weekly_Science_Quiz_answers_offline.txt" {
		t.Fatalf("file name = %q", name)
	}
	if set := decodeExport(t, encoded); set.Answers[0].Answer != "D" {
		t.Fatalf("export lost the answer: %+v", set.Answers)
	}

	snap := a.Snapshot()
	if snap.State != StateFinalized || snap.Reason != ReasonOfflineExport {
		t.Fatalf("state = %s/%s, want FINALIZED/OFFLINE_EXPORT", snap.State, snap.Reason)
	}
	if !store.isCompleted(quiz.ID.String(), 7) {
		t.Fatal("cancel must mark the pair completed")
	}
	if grader.callCount() != 0 {
		t.Fatal("cancel must not grade")
	}

	if _, _, err := a.Cancel(ctx); !errors.Is(err, ErrAttemptFinalized) {
		t.Fatalf("second cancel should fail, got %v", err)
	}
}

// ─── Manager ────────────────────────────────────────────────────────

func TestManagerResumesLiveAttempt(t *testing.T) {
	quiz := testQuiz(2, 0)
	m := NewManager(newFakeStore(), &fakeGrader{}, zerolog.Nop())
	ctx := context.Background()

	a1, err := m.Begin(ctx, quiz, testStudent())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	a2, err := m.Begin(ctx, quiz, testStudent())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if a1 != a2 {
		t.Fatal("resume should return the same attempt")
	}

	if err := m.VerifyKey(quiz.ID.String(), 7, "open-sesame"); err != nil {
		t.Fatalf("VerifyKey: %v", err)
	}
	if _, err := a1.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := m.Begin(ctx, quiz, testStudent()); !errors.Is(err, ErrAlreadyAttempted) {
		t.Fatalf("finalized attempt must refuse, got %v", err)
	}
}

func TestManagerRetainsFinalizedAttempt(t *testing.T) {
	quiz := testQuiz(2, 0)
	m := NewManager(newFakeStore(), &fakeGrader{}, zerolog.Nop())
	ctx := context.Background()

	a, err := m.Begin(ctx, quiz, testStudent())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := m.VerifyKey(quiz.ID.String(), 7, "open-sesame"); err != nil {
		t.Fatalf("VerifyKey: %v", err)
	}
	if _, err := a.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// The finalized attempt stays readable: its snapshot serves the grade
	// display, and a repeated submit maps to the attempted conflict
	// rather than a missing attempt.
	got, ok := m.Get(quiz.ID.String(), 7)
	if !ok || got != a {
		t.Fatal("finalized attempt should remain retrievable")
	}
	if got.Snapshot().State != StateFinalized {
		t.Errorf("snapshot state = %v, want finalized", got.Snapshot().State)
	}
	if _, err := got.Submit(ctx); !errors.Is(err, ErrAttemptFinalized) {
		t.Errorf("re-submit on finalized attempt = %v, want ErrAttemptFinalized", err)
	}
}

func TestManagerCountdownAutoSubmits(t *testing.T) {
	quiz := testQuiz(1, 1)
	grader := &fakeGrader{}
	m := NewManager(newFakeStore(), grader, zerolog.Nop())
	m.tickInterval = time.Millisecond
	ctx := context.Background()

	a, err := m.Begin(ctx, quiz, testStudent())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := m.VerifyKey(quiz.ID.String(), 7, "open-sesame"); err != nil {
		t.Fatalf("VerifyKey: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for a.State() != StateFinalized {
		select {
		case <-deadline:
			t.Fatalf("countdown never finalized, state = %s", a.State())
		case <-time.After(5 * time.Millisecond):
		}
	}
	if grader.callCount() != 1 {
		t.Fatalf("grader calls = %d, want 1", grader.callCount())
	}
	if grader.sources[0] != model.SourceAutoSubmit {
		t.Fatalf("source = %s, want AUTO_SUBMIT", grader.sources[0])
	}
}

func TestManagerImportAnswers(t *testing.T) {
	quiz := testQuiz(2, 0)
	store := newFakeStore()
	grader := &fakeGrader{}
	m := NewManager(store, grader, zerolog.Nop())
	ctx := context.Background()

	set := &model.FinalAnswerSet{
		QuizID:      quiz.ID.String(),
		RollNo:      "R-42",
		StudentName: "Asha",
		Answers: []model.AnswerEntry{
			{Question: 1, Answer: "A"},
			{Question: 2, Answer: ""},
		},
	}
	raw, _ := json.Marshal(set)
	encoded := codec.Encode(string(raw))

	result, err := m.ImportAnswers(ctx, quiz, testStudent(), encoded)
	if err != nil {
		t.Fatalf("ImportAnswers: %v", err)
	}
	if result == nil {
		t.Fatal("expected a graded result")
	}
	if grader.sources[0] != model.SourceOfflineImport {
		t.Fatalf("source = %s, want OFFLINE_IMPORT", grader.sources[0])
	}
	if !store.isCompleted(quiz.ID.String(), 7) {
		t.Fatal("import must set the completion marker")
	}
}

func TestManagerImportRejectsBadPayloads(t *testing.T) {
	quiz := testQuiz(2, 0)
	m := NewManager(newFakeStore(), &fakeGrader{}, zerolog.Nop())
	ctx := context.Background()

	// Not an answer payload at all.
	if _, err := m.ImportAnswers(ctx, quiz, testStudent(), codec.Encode("just some notes")); !errors.Is(err, ErrMalformedImport) {
		t.Fatalf("expected ErrMalformedImport, got %v", err)
	}

	// Belongs to a different student.
	other := &model.FinalAnswerSet{
		QuizID:      quiz.ID.String(),
		RollNo:      "R-99",
		StudentName: "Someone Else",
		Answers:     []model.AnswerEntry{{Question: 1, Answer: "A"}, {Question: 2, Answer: "B"}},
	}
	raw, _ := json.Marshal(other)
	if _, err := m.ImportAnswers(ctx, quiz, testStudent(), codec.Encode(string(raw))); !errors.Is(err, ErrImportMismatch) {
		t.Fatalf("expected ErrImportMismatch, got %v", err)
	}

	// Wrong answer count for this quiz.
	short := &model.FinalAnswerSet{
		QuizID:      quiz.ID.String(),
		RollNo:      "R-42",
		StudentName: "Asha",
		Answers:     []model.AnswerEntry{{Question: 1, Answer: "A"}},
	}
	raw, _ = json.Marshal(short)
	if _, err := m.ImportAnswers(ctx, quiz, testStudent(), codec.Encode(string(raw))); !errors.Is(err, ErrMalformedImport) {
		t.Fatalf("expected ErrMalformedImport for short payload, got %v", err)
	}
}

func TestManagerImportRejectionReconcilesMarker(t *testing.T) {
	quiz := testQuiz(1, 0)
	store := newFakeStore()
	grader := &fakeGrader{errs: []error{fmt.Errorf("%w: deadline passed", ErrGradeRejected)}}
	m := NewManager(store, grader, zerolog.Nop())
	ctx := context.Background()

	set := &model.FinalAnswerSet{
		QuizID:      quiz.ID.String(),
		RollNo:      "R-42",
		StudentName: "Asha",
		Answers:     []model.AnswerEntry{{Question: 1, Answer: "A"}},
	}
	raw, _ := json.Marshal(set)

	if _, err := m.ImportAnswers(ctx, quiz, testStudent(), codec.Encode(string(raw))); !errors.Is(err, ErrGradeRejected) {
		t.Fatalf("expected ErrGradeRejected, got %v", err)
	}
	if !store.isCompleted(quiz.ID.String(), 7) {
		t.Fatal("rejected import must force the marker")
	}
}
