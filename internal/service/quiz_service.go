package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/gradebox/quizdesk-backend/internal/attempt"
	"github.com/gradebox/quizdesk-backend/internal/codec"
	"github.com/gradebox/quizdesk-backend/internal/grading"
	"github.com/gradebox/quizdesk-backend/internal/model"
	"github.com/gradebox/quizdesk-backend/internal/repository"
)

// Domain errors.
var (
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrNoPaperBody      = errors.New("quiz has no body text to export")
	ErrWrongQuizMode    = errors.New("operation not available for this quiz mode")
	ErrDeadlinePassed   = errors.New("quiz deadline has passed")
	ErrAnswersFile      = errors.New("file contains an answer payload, not a quiz paper")
	ErrAlreadySubmitted = errors.New("offline submission already exists")
)

// QuizStatus is the fetch-on-mount payload: the descriptor plus the
// submitted flag and the stored result when a grade already exists.
type QuizStatus struct {
	Quiz      *model.Quiz         `json:"quiz"`
	Submitted bool                `json:"submitted"`
	Result    *model.GradedResult `json:"result,omitempty"`
}

// QuizService handles quiz retrieval and the paper export/open flows.
type QuizService struct {
	quizRepo *repository.QuizRepository
	subRepo  *repository.SubmissionRepository
	grader   *grading.Service
	log      zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(
	quizRepo *repository.QuizRepository,
	subRepo *repository.SubmissionRepository,
	grader *grading.Service,
	log zerolog.Logger,
) *QuizService {
	return &QuizService{
		quizRepo: quizRepo,
		subRepo:  subRepo,
		grader:   grader,
		log:      log.With().Str("component", "quiz_service").Logger(),
	}
}

// GetByID retrieves a quiz descriptor.
func (s *QuizService) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

// GetStatus retrieves the quiz descriptor together with the student's
// existing grade, if one is recorded.
func (s *QuizService) GetStatus(ctx context.Context, quizID uuid.UUID, studentID int) (*QuizStatus, error) {
	quiz, err := s.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}

	result, err := s.grader.ExistingResult(ctx, quizID, studentID)
	if err != nil {
		return nil, fmt.Errorf("load existing result: %w", err)
	}

	return &QuizStatus{
		Quiz:      quiz,
		Submitted: result != nil,
		Result:    result,
	}, nil
}

// ExportPaper returns the quiz body as codec-encoded bytes for delivery as
// a plain-text attachment (the quiz-open offline flow).
func (s *QuizService) ExportPaper(quiz *model.Quiz) (fileName string, encoded []byte, err error) {
	if quiz.Mode != model.QuizModeOnline || quiz.Body == "" {
		return "", nil, ErrNoPaperBody
	}
	name := attempt.ExportFileName(quiz.Title, attempt.EncodedPaperSuffix)
	return name, []byte(codec.Encode(quiz.Body)), nil
}

// OpenPaper decodes an uploaded encoded paper file and returns the quiz
// body text. An answer payload is refused here: structural parse, not
// file extension, is what tells the two apart.
func (s *QuizService) OpenPaper(encoded string) (string, error) {
	decoded := codec.Decode(encoded)
	if _, err := model.ParseFinalAnswerSet([]byte(decoded)); err == nil {
		return "", ErrAnswersFile
	}
	return decoded, nil
}

// SubmitOffline records a free-text/file submission for an offline-mode
// quiz. One submission per (student, quiz).
func (s *QuizService) SubmitOffline(ctx context.Context, quiz *model.Quiz, studentID int, text, fileURL string) (*model.OfflineSubmission, error) {
	if quiz.Mode != model.QuizModeOffline {
		return nil, ErrWrongQuizMode
	}
	if time.Now().After(quiz.Deadline) {
		return nil, ErrDeadlinePassed
	}

	sub := &model.OfflineSubmission{
		QuizID:    quiz.ID,
		StudentID: studentID,
		Text:      text,
		FileURL:   fileURL,
	}
	if err := s.subRepo.CreateOffline(ctx, sub); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("create offline submission: %w", err)
	}
	return sub, nil
}
