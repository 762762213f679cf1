package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradebox/quizdesk-backend/internal/model"
)

// QuizRepository handles quiz and answer-key data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// GetByID retrieves a quiz descriptor, including its access key.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, total_marks, deadline, access_key, mode,
		        question_count, time_limit_minutes, short_note, attachment, body,
		        created_at, updated_at
		 FROM quizzes
		 WHERE id = $1`, id,
	).Scan(&q.ID, &q.Title, &q.TotalMarks, &q.Deadline, &q.AccessKey, &q.Mode,
		&q.QuestionCount, &q.TimeLimit, &q.ShortNote, &q.Attachment, &q.Body,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetAnswerKey retrieves the correct options for an online quiz, ordered by
// question number.
func (r *QuizRepository) GetAnswerKey(ctx context.Context, quizID uuid.UUID) ([]model.QuizQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT quiz_id, question_num, correct_option
		 FROM quiz_questions
		 WHERE quiz_id = $1
		 ORDER BY question_num`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var key []model.QuizQuestion
	for rows.Next() {
		var qq model.QuizQuestion
		if err := rows.Scan(&qq.QuizID, &qq.Question, &qq.CorrectOption); err != nil {
			return nil, err
		}
		key = append(key, qq)
	}
	return key, rows.Err()
}

// Create inserts a quiz and its answer key in one transaction. Used by the
// quiz import command.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz, answerKey []model.QuizQuestion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO quizzes
		   (title, total_marks, deadline, access_key, mode,
		    question_count, time_limit_minutes, short_note, attachment, body)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		q.Title, q.TotalMarks, q.Deadline, q.AccessKey, q.Mode,
		q.QuestionCount, q.TimeLimit, q.ShortNote, q.Attachment, q.Body,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return err
	}

	for _, qq := range answerKey {
		if _, err := tx.Exec(ctx,
			`INSERT INTO quiz_questions (quiz_id, question_num, correct_option)
			 VALUES ($1, $2, $3)`,
			q.ID, qq.Question, qq.CorrectOption,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
