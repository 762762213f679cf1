package model

import (
	"time"

	"github.com/google/uuid"
)

// QuizMode selects the submission protocol for a quiz.
// Offline quizzes are answered with a free-text/file upload; online quizzes
// run the timed, key-protected attempt flow.
type QuizMode string

const (
	QuizModeOffline QuizMode = "offline"
	QuizModeOnline  QuizMode = "online"
)

// Quiz is the immutable quiz descriptor fetched once per student session.
// Mode is fixed for the lifetime of a quiz and determines which protocol
// applies.
type Quiz struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	TotalMarks    int       `json:"total_marks"`
	Deadline      time.Time `json:"deadline"`
	AccessKey     string    `json:"-"` // Opaque secret; never serialized to students.
	Mode          QuizMode  `json:"mode"`
	QuestionCount int       `json:"question_count,omitempty"`
	TimeLimit     int       `json:"time_limit,omitempty"` // Minutes; 0 means untimed.
	ShortNote     string    `json:"short_note,omitempty"`
	Attachment    string    `json:"attachment,omitempty"` // Stored document reference (offline mode).
	Body          string    `json:"body,omitempty"`       // Question content (online mode).
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// QuizQuestion carries the answer key for one question of an online quiz.
// Question numbers are 1-based on the wire and in storage.
type QuizQuestion struct {
	QuizID        uuid.UUID `json:"quiz_id"`
	Question      int       `json:"question"`
	CorrectOption string    `json:"correct_option"`
}

// VerifyKeyRequest carries the student's access key candidate.
type VerifyKeyRequest struct {
	Key string `json:"key" binding:"required,min=1,max=64"`
}

// SetAnswerRequest carries a selected option for one answer slot.
// The option alphabet is bounded to A-E; empty strings are expressed by
// clearing, not by this request.
type SetAnswerRequest struct {
	Option string `json:"option" binding:"required,oneof=A B C D E"`
}

// ExportPaperRequest asks for the quiz body as an encoded attachment.
// Mirrors the download contract: all fields are required and a missing one
// is a structured client error.
type ExportPaperRequest struct {
	FileName string `json:"file_name" binding:"required,min=1,max=128"`
}
