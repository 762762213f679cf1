package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradebox/quizdesk-backend/internal/model"
)

// SubmissionRepository handles graded submission data access. The UNIQUE
// (quiz_id, student_id) constraint on submissions is the authoritative
// single-attempt guarantee.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Exists reports whether a graded submission already exists for the pair.
func (r *SubmissionRepository) Exists(ctx context.Context, quizID uuid.UUID, studentID int) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM submissions WHERE quiz_id = $1 AND student_id = $2
		 )`, quizID, studentID,
	).Scan(&found)
	return found, err
}

// GetResult reconstructs the GradedResult for an already graded pair.
// Returns pgx.ErrNoRows when no submission exists.
func (r *SubmissionRepository) GetResult(ctx context.Context, quizID uuid.UUID, studentID int) (*model.GradedResult, error) {
	var sub model.Submission
	err := r.pool.QueryRow(ctx,
		`SELECT id, obtained_marks FROM submissions
		 WHERE quiz_id = $1 AND student_id = $2`, quizID, studentID,
	).Scan(&sub.ID, &sub.ObtainedMarks)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT question_num, correct_answer, student_answer, is_correct
		 FROM submission_answers
		 WHERE submission_id = $1
		 ORDER BY question_num`, sub.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &model.GradedResult{ObtainedMarks: sub.ObtainedMarks}
	for rows.Next() {
		var d model.QuestionResult
		if err := rows.Scan(&d.Question, &d.CorrectAnswer, &d.StudentAnswer, &d.IsCorrect); err != nil {
			return nil, err
		}
		result.Details = append(result.Details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx,
		`SELECT total_marks FROM quizzes WHERE id = $1`, quizID,
	).Scan(&result.TotalMarks)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Create persists one graded submission with its per-question details.
// Returns pgx.ErrNoRows when a submission already exists for the pair.
func (r *SubmissionRepository) Create(ctx context.Context, sub *model.Submission, details []model.QuestionResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO submissions (quiz_id, student_id, source, obtained_marks)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (quiz_id, student_id) DO NOTHING
		 RETURNING id, submitted_at`,
		sub.QuizID, sub.StudentID, sub.Source, sub.ObtainedMarks,
	).Scan(&sub.ID, &sub.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows // Conflict: already graded.
		}
		return err
	}

	for _, d := range details {
		if _, err := tx.Exec(ctx,
			`INSERT INTO submission_answers
			   (submission_id, question_num, correct_answer, student_answer, is_correct)
			 VALUES ($1, $2, $3, $4, $5)`,
			sub.ID, d.Question, d.CorrectAnswer, d.StudentAnswer, d.IsCorrect,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// CreateOffline persists a free-text/file submission for an offline-mode quiz.
func (r *SubmissionRepository) CreateOffline(ctx context.Context, sub *model.OfflineSubmission) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO offline_submissions (quiz_id, student_id, submission_text, file_url)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (quiz_id, student_id) DO NOTHING
		 RETURNING id, submitted_at`,
		sub.QuizID, sub.StudentID, sub.Text, sub.FileURL,
	).Scan(&sub.ID, &sub.SubmittedAt)
}
