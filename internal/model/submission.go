package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedAnswerSet is returned when an imported payload does not parse
// as a well-formed FinalAnswerSet.
var ErrMalformedAnswerSet = errors.New("malformed answer set")

// AnswerEntry is one (question, selected option) pair of a FinalAnswerSet.
// Question numbers are 1-based; an unanswered question submits "".
type AnswerEntry struct {
	Question int    `json:"question"`
	Answer   string `json:"answer"`
}

// FinalAnswerSet is the complete ordered answer payload handed to the
// grader, or exported through the codec for later re-import. This is also
// the JSON shape inside offline answer files.
type FinalAnswerSet struct {
	QuizID      string        `json:"quiz_id"`
	RollNo      string        `json:"roll_no"`
	StudentName string        `json:"student_name"`
	Answers     []AnswerEntry `json:"answers"`
}

// ParseFinalAnswerSet decodes raw (already codec-decoded) text into a
// FinalAnswerSet, validating structure: a non-empty quiz id and roll
// number, at least one answer entry, question numbers forming the dense
// 1..n sequence, and options within the A-E alphabet or empty.
func ParseFinalAnswerSet(raw []byte) (*FinalAnswerSet, error) {
	var set FinalAnswerSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnswerSet, err)
	}
	if set.QuizID == "" || set.RollNo == "" {
		return nil, fmt.Errorf("%w: missing quiz_id or roll_no", ErrMalformedAnswerSet)
	}
	if len(set.Answers) == 0 {
		return nil, fmt.Errorf("%w: empty answers", ErrMalformedAnswerSet)
	}
	for i, a := range set.Answers {
		if a.Question != i+1 {
			return nil, fmt.Errorf("%w: answer %d out of order", ErrMalformedAnswerSet, a.Question)
		}
		if !ValidOption(a.Answer) {
			return nil, fmt.Errorf("%w: invalid option %q for question %d", ErrMalformedAnswerSet, a.Answer, a.Question)
		}
	}
	return &set, nil
}

// ValidOption reports whether ans is within the bounded option alphabet.
// The empty string (unanswered) is valid.
func ValidOption(ans string) bool {
	return ans == "" || (len(ans) == 1 && strings.Contains("ABCDE", ans))
}

// QuestionResult is the per-question verdict inside a GradedResult.
type QuestionResult struct {
	Question      int    `json:"question"`
	CorrectAnswer string `json:"correct_answer"`
	StudentAnswer string `json:"student_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

// GradedResult is the scored outcome returned by the grader. Immutable once
// produced; display-only from the caller's point of view.
type GradedResult struct {
	Details       []QuestionResult `json:"details"`
	ObtainedMarks float64          `json:"obtained_marks"`
	TotalMarks    int              `json:"total_marks"`
}

// SubmissionSource records which path produced a graded submission.
type SubmissionSource string

const (
	SourceLive          SubmissionSource = "LIVE"
	SourceAutoSubmit    SubmissionSource = "AUTO_SUBMIT"
	SourceOfflineImport SubmissionSource = "OFFLINE_IMPORT"
)

// Submission is the persisted record of one graded attempt. The UNIQUE
// (quiz_id, student_id) constraint on its table is what makes grading
// happen at most once per student per quiz.
type Submission struct {
	ID            uuid.UUID        `json:"id"`
	QuizID        uuid.UUID        `json:"quiz_id"`
	StudentID     int              `json:"student_id"`
	Source        SubmissionSource `json:"source"`
	ObtainedMarks float64          `json:"obtained_marks"`
	SubmittedAt   time.Time        `json:"submitted_at"`
}

// OfflineSubmission is a free-text/file submission for an offline-mode quiz.
type OfflineSubmission struct {
	ID          uuid.UUID `json:"id"`
	QuizID      uuid.UUID `json:"quiz_id"`
	StudentID   int       `json:"student_id"`
	Text        string    `json:"text,omitempty"`
	FileURL     string    `json:"file_url,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}
