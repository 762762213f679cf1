package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gradebox/quizdesk-backend/internal/config"
	"github.com/gradebox/quizdesk-backend/internal/database"
	"github.com/gradebox/quizdesk-backend/internal/logger"
	"github.com/gradebox/quizdesk-backend/internal/model"
	"github.com/gradebox/quizdesk-backend/internal/repository"
)

// quizFile is the JSON document the command ingests. Question numbers in
// the answer key are 1-based and must be dense.
type quizFile struct {
	Title      string    `json:"title"`
	TotalMarks int       `json:"total_marks"`
	Deadline   time.Time `json:"deadline"`
	AccessKey  string    `json:"access_key"`
	Mode       string    `json:"mode"`
	TimeLimit  int       `json:"time_limit"`
	ShortNote  string    `json:"short_note"`
	Attachment string    `json:"attachment"`
	Body       string    `json:"body"`
	AnswerKey  []struct {
		Question      int    `json:"question"`
		CorrectOption string `json:"correct_option"`
	} `json:"answer_key"`
}

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to the quiz JSON file")
	flag.Parse()

	if filePath == "" {
		fmt.Println("Usage: import-quiz -file <quiz.json>")
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	raw, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", filePath).Msg("Failed to read quiz file")
	}

	var qf quizFile
	if err := json.Unmarshal(raw, &qf); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse quiz file")
	}
	if err := validateQuizFile(&qf); err != nil {
		log.Fatal().Err(err).Msg("Invalid quiz file")
	}

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	quiz := &model.Quiz{
		Title:         qf.Title,
		TotalMarks:    qf.TotalMarks,
		Deadline:      qf.Deadline,
		AccessKey:     qf.AccessKey,
		Mode:          model.QuizMode(qf.Mode),
		QuestionCount: len(qf.AnswerKey),
		TimeLimit:     qf.TimeLimit,
		ShortNote:     qf.ShortNote,
		Attachment:    qf.Attachment,
		Body:          qf.Body,
	}

	answerKey := make([]model.QuizQuestion, len(qf.AnswerKey))
	for i, entry := range qf.AnswerKey {
		answerKey[i] = model.QuizQuestion{
			Question:      entry.Question,
			CorrectOption: entry.CorrectOption,
		}
	}

	quizRepo := repository.NewQuizRepository(pool)
	if err := quizRepo.Create(ctx, quiz, answerKey); err != nil {
		log.Fatal().Err(err).Msg("Failed to create quiz")
	}

	fmt.Printf("Quiz created: id=%s title=%q mode=%s questions=%d\n",
		quiz.ID, quiz.Title, quiz.Mode, quiz.QuestionCount)
}

func validateQuizFile(qf *quizFile) error {
	if qf.Title == "" {
		return fmt.Errorf("title is required")
	}
	if qf.TotalMarks <= 0 {
		return fmt.Errorf("total_marks must be positive")
	}
	if qf.Deadline.IsZero() {
		return fmt.Errorf("deadline is required")
	}

	switch model.QuizMode(qf.Mode) {
	case model.QuizModeOnline:
		if qf.AccessKey == "" {
			return fmt.Errorf("access_key is required for online quizzes")
		}
		if len(qf.AnswerKey) == 0 {
			return fmt.Errorf("answer_key is required for online quizzes")
		}
		for i, entry := range qf.AnswerKey {
			if entry.Question != i+1 {
				return fmt.Errorf("answer_key question numbers must be dense and 1-based (got %d at position %d)", entry.Question, i+1)
			}
			if !model.ValidOption(entry.CorrectOption) || entry.CorrectOption == "" {
				return fmt.Errorf("answer_key[%d]: invalid option %q", i, entry.CorrectOption)
			}
		}
	case model.QuizModeOffline:
		if len(qf.AnswerKey) > 0 {
			return fmt.Errorf("offline quizzes carry no answer_key")
		}
	default:
		return fmt.Errorf("mode must be %q or %q", model.QuizModeOnline, model.QuizModeOffline)
	}

	return nil
}
