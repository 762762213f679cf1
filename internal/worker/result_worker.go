package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gradebox/quizdesk-backend/internal/config"
	"github.com/gradebox/quizdesk-backend/internal/grading"
	"github.com/gradebox/quizdesk-backend/internal/model"
	"github.com/gradebox/quizdesk-backend/internal/repository"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker consumes persist_results_queue and writes graded
// submissions to PostgreSQL in batches. Grading correctness does not
// depend on it being fast: the graded marker is claimed synchronously at
// grading time, the worker only makes results durable.
type ResultWorker struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	subRepo *repository.SubmissionRepository
	log     zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, subRepo *repository.SubmissionRepository, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool:    pool,
		rdb:     rdb,
		subRepo: subRepo,
		log:     log.With().Str("component", "result_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine; cancel the context to
// stop, remaining batch items are flushed before exit.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*grading.PersistPayload, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p grading.PersistPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// flushSafe attempts the bulk write, falling back to per-item writes with
// requeue on failure so a poison payload cannot wedge the whole batch.
func (w *ResultWorker) flushSafe(ctx context.Context, batch []*grading.PersistPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk submission insert failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	w.bulkClearWorkingAnswers(ctx, batch)
}

// bulkInsert writes the whole batch in one transaction: submissions via
// UNNEST, then the per-question details for every row that was actually
// inserted (conflicts are skipped, the pair is already graded durably).
func (w *ResultWorker) bulkInsert(ctx context.Context, batch []*grading.PersistPayload) error {
	n := len(batch)

	quizIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	sources := make([]string, 0, n)
	marks := make([]float64, 0, n)

	byPair := make(map[string]*grading.PersistPayload, n)
	for _, p := range batch {
		qID, err := uuid.Parse(p.QuizID)
		if err != nil {
			return err
		}
		quizIDs = append(quizIDs, qID)
		students = append(students, p.StudentID)
		sources = append(sources, string(p.Source))
		marks = append(marks, p.Marks)
		byPair[pairKey(p.QuizID, p.StudentID)] = p
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		INSERT INTO submissions (quiz_id, student_id, source, obtained_marks)
		SELECT u.quiz_id, u.student_id, u.source, u.marks
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::text[],
			$4::float8[]
		) AS u (quiz_id, student_id, source, marks)
		ON CONFLICT (quiz_id, student_id) DO NOTHING
		RETURNING id, quiz_id, student_id
	`, quizIDs, students, sources, marks)
	if err != nil {
		return err
	}

	type inserted struct {
		id        uuid.UUID
		quizID    uuid.UUID
		studentID int
	}
	var created []inserted
	for rows.Next() {
		var ins inserted
		if err := rows.Scan(&ins.id, &ins.quizID, &ins.studentID); err != nil {
			rows.Close()
			return err
		}
		created = append(created, ins)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// Flatten the details of every inserted submission into UNNEST arrays.
	var (
		subIDs    []uuid.UUID
		questions []int
		corrects  []string
		givens    []string
		verdicts  []bool
	)
	for _, ins := range created {
		p := byPair[pairKey(ins.quizID.String(), ins.studentID)]
		if p == nil {
			continue
		}
		for _, d := range p.Details {
			subIDs = append(subIDs, ins.id)
			questions = append(questions, d.Question)
			corrects = append(corrects, d.CorrectAnswer)
			givens = append(givens, d.StudentAnswer)
			verdicts = append(verdicts, d.IsCorrect)
		}
	}

	if len(subIDs) > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO submission_answers
				(submission_id, question_num, correct_answer, student_answer, is_correct)
			SELECT u.submission_id, u.question_num, u.correct_answer, u.student_answer, u.is_correct
			FROM UNNEST(
				$1::uuid[],
				$2::int[],
				$3::text[],
				$4::text[],
				$5::bool[]
			) AS u (submission_id, question_num, correct_answer, student_answer, is_correct)
		`, subIDs, questions, corrects, givens, verdicts)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// bulkClearWorkingAnswers drops the Redis working-answer hashes for every
// persisted pair.
func (w *ResultWorker) bulkClearWorkingAnswers(ctx context.Context, batch []*grading.PersistPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(p.QuizID, p.StudentID))
	}
	_, _ = pipe.Exec(ctx)
}

// persistSingle is the per-item fallback through the repository.
func (w *ResultWorker) persistSingle(ctx context.Context, p *grading.PersistPayload) error {
	qID, err := uuid.Parse(p.QuizID)
	if err != nil {
		return err
	}

	sub := &model.Submission{
		QuizID:        qID,
		StudentID:     p.StudentID,
		Source:        p.Source,
		ObtainedMarks: p.Marks,
	}
	if err := w.subRepo.Create(ctx, sub, p.Details); err != nil {
		// Conflict means the pair is already durably graded; dropping the
		// payload is correct.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	return nil
}

func pairKey(quizID string, studentID int) string {
	return fmt.Sprintf("%s:%d", quizID, studentID)
}
