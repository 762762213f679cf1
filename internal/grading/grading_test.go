package grading

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gradebox/quizdesk-backend/internal/attempt"
	"github.com/gradebox/quizdesk-backend/internal/model"
)

type fakeQuizStore struct {
	quiz    *model.Quiz
	key     []model.QuizQuestion
	keyErrs []error // consumed one per GetAnswerKey call
}

func (f *fakeQuizStore) GetByID(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	if f.quiz == nil || f.quiz.ID != id {
		return nil, pgx.ErrNoRows
	}
	return f.quiz, nil
}

func (f *fakeQuizStore) GetAnswerKey(context.Context, uuid.UUID) ([]model.QuizQuestion, error) {
	if len(f.keyErrs) > 0 {
		err := f.keyErrs[0]
		f.keyErrs = f.keyErrs[1:]
		return nil, err
	}
	return f.key, nil
}

type fakeStudentStore struct {
	student *model.Student
}

func (f *fakeStudentStore) GetByRollNo(_ context.Context, rollNo string) (*model.Student, error) {
	if f.student == nil || f.student.RollNo != rollNo {
		return nil, pgx.ErrNoRows
	}
	return f.student, nil
}

type fakeSubmissionStore struct {
	exists  bool
	created int
}

func (f *fakeSubmissionStore) Exists(context.Context, uuid.UUID, int) (bool, error) {
	return f.exists, nil
}

func (f *fakeSubmissionStore) GetResult(context.Context, uuid.UUID, int) (*model.GradedResult, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeSubmissionStore) Create(context.Context, *model.Submission, []model.QuestionResult) error {
	f.created++
	return nil
}

// fakeRedis stubs only the commands the grader issues. Anything else
// panics through the embedded nil interface, which is what we want.
type fakeRedis struct {
	redis.Cmdable
	markers map[string]bool
	queued  int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{markers: make(map[string]bool)}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) *redis.BoolCmd {
	if f.markers[key] {
		return redis.NewBoolResult(false, nil)
	}
	f.markers[key] = true
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if f.markers[k] {
			delete(f.markers, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) RPush(_ context.Context, _ string, values ...interface{}) *redis.IntCmd {
	f.queued += len(values)
	return redis.NewIntResult(int64(f.queued), nil)
}

func gradingFixture() (*Service, *fakeQuizStore, *fakeRedis, *model.FinalAnswerSet) {
	quizID := uuid.New()
	quizStore := &fakeQuizStore{
		quiz: &model.Quiz{
			ID:         quizID,
			Title:      "Networks Midterm",
			TotalMarks: 10,
			Deadline:   time.Now().Add(time.Hour),
			Mode:       model.QuizModeOnline,
		},
		key: []model.QuizQuestion{
			{QuizID: quizID, Question: 1, CorrectOption: "A"},
			{QuizID: quizID, Question: 2, CorrectOption: "B"},
		},
	}
	rdb := newFakeRedis()
	svc := NewService(
		quizStore,
		&fakeStudentStore{student: &model.Student{ID: 7, RollNo: "R-42", Name: "Asha"}},
		&fakeSubmissionStore{},
		rdb,
		zerolog.Nop(),
	)
	set := &model.FinalAnswerSet{
		QuizID:      quizID.String(),
		RollNo:      "R-42",
		StudentName: "Asha",
		Answers: []model.AnswerEntry{
			{Question: 1, Answer: "A"},
			{Question: 2, Answer: "C"},
		},
	}
	return svc, quizStore, rdb, set
}

func TestGradeReleasesMarkerOnAnswerKeyFailure(t *testing.T) {
	svc, quizStore, rdb, set := gradingFixture()
	quizStore.keyErrs = []error{errors.New("connection reset")}

	_, err := svc.Grade(context.Background(), model.SourceLive, set)
	if err == nil {
		t.Fatal("expected transient failure from first Grade")
	}
	if errors.Is(err, attempt.ErrGradeRejected) {
		t.Fatalf("transient failure must stay retryable, got rejection: %v", err)
	}
	if len(rdb.markers) != 0 {
		t.Fatalf("graded marker still held after transient failure: %v", rdb.markers)
	}

	// The same finalizing attempt is re-sent and must now grade.
	result, err := svc.Grade(context.Background(), model.SourceLive, set)
	if err != nil {
		t.Fatalf("retry after transient failure: %v", err)
	}
	if result.ObtainedMarks != 5 {
		t.Errorf("ObtainedMarks = %v, want 5", result.ObtainedMarks)
	}
	if len(rdb.markers) != 1 {
		t.Errorf("expected one graded marker after success, got %d", len(rdb.markers))
	}
	if rdb.queued != 1 {
		t.Errorf("expected one queued result, got %d", rdb.queued)
	}
}

func TestGradeClaimRefusesSecondSubmission(t *testing.T) {
	svc, _, _, set := gradingFixture()

	if _, err := svc.Grade(context.Background(), model.SourceLive, set); err != nil {
		t.Fatalf("first Grade: %v", err)
	}

	_, err := svc.Grade(context.Background(), model.SourceOfflineImport, set)
	if !errors.Is(err, ErrAlreadyGraded) {
		t.Fatalf("second Grade = %v, want ErrAlreadyGraded", err)
	}
	if !errors.Is(err, attempt.ErrGradeRejected) {
		t.Errorf("ErrAlreadyGraded must wrap the rejection sentinel")
	}
}

func TestGradeUnknownQuizRejected(t *testing.T) {
	svc, quizStore, rdb, set := gradingFixture()
	quizStore.quiz = nil

	_, err := svc.Grade(context.Background(), model.SourceLive, set)
	if !errors.Is(err, ErrUnknownQuiz) {
		t.Fatalf("Grade for missing quiz = %v, want ErrUnknownQuiz", err)
	}
	if len(rdb.markers) != 0 {
		t.Errorf("no marker should be claimed for an unknown quiz")
	}
}

func TestGradeDeadlinePassedRejected(t *testing.T) {
	svc, quizStore, rdb, set := gradingFixture()
	quizStore.quiz.Deadline = time.Now().Add(-time.Minute)

	_, err := svc.Grade(context.Background(), model.SourceLive, set)
	if !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("Grade past deadline = %v, want ErrDeadlinePassed", err)
	}
	if len(rdb.markers) != 0 {
		t.Errorf("no marker should be claimed past the deadline")
	}
}
