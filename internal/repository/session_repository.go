package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vigilo/proctor-backend/internal/model"
)

// Sentinel errors for session state transitions.
var (
	ErrSessionNotFound  = errors.New("exam session not found")
	ErrSessionSubmitted = errors.New("exam session already submitted")
)

const pgUniqueViolation = "23505"

// SessionRepository handles exam session and answer data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// GetByUserAndExam retrieves the session for a (user, exam) pair.
func (r *SessionRepository) GetByUserAndExam(ctx context.Context, userID int, examID uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, status, started_at, submitted_at
		 FROM exam_sessions
		 WHERE user_id = $1 AND exam_id = $2`, userID, examID,
	).Scan(&s.ID, &s.ExamID, &s.UserID, &s.Status, &s.StartedAt, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new ACTIVE session. The unique (user_id, exam_id)
// constraint makes this safe under concurrent starts: the loser of the race
// gets pgx.ErrNoRows from the empty RETURNING set and should refetch.
func (r *SessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, user_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (exam_id, user_id) DO NOTHING
		 RETURNING id, started_at`,
		s.ExamID, s.UserID, model.SessionStatusActive,
	).Scan(&s.ID, &s.StartedAt)
}

// SubmitAnswers atomically persists a set of resolved answers and flips the
// session ACTIVE → SUBMITTED. The session row is locked for the duration of
// the transaction, so of two concurrent submissions exactly one commits; the
// other observes SUBMITTED and fails with ErrSessionSubmitted. Any insert
// failure rolls the whole submission back.
func (r *SessionRepository) SubmitAnswers(ctx context.Context, userID int, examID uuid.UUID, answers []model.AnswerRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var status model.SessionStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM exam_sessions
		 WHERE user_id = $1 AND exam_id = $2
		 FOR UPDATE`, userID, examID,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	if status == model.SessionStatusSubmitted {
		return ErrSessionSubmitted
	}

	now := time.Now()
	for i := range answers {
		answers[i].SubmittedAt = now
		_, err := tx.Exec(ctx,
			`INSERT INTO student_answers (user_id, exam_id, question_id, selected_option, submitted_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			userID, examID, answers[i].QuestionID, answers[i].SelectedOption, now,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return ErrSessionSubmitted
			}
			return fmt.Errorf("insert answer: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE exam_sessions SET status = $1, submitted_at = $2
		 WHERE user_id = $3 AND exam_id = $4`,
		model.SessionStatusSubmitted, now, userID, examID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	return tx.Commit(ctx)
}

// CountAnswers returns how many answers exist for a (user, exam) pair.
func (r *SessionRepository) CountAnswers(ctx context.Context, userID int, examID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM student_answers WHERE user_id = $1 AND exam_id = $2`,
		userID, examID,
	).Scan(&count)
	return count, err
}

// ListAnswers retrieves the stored answers for a (user, exam) pair.
func (r *SessionRepository) ListAnswers(ctx context.Context, userID int, examID uuid.UUID) ([]model.AnswerRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, exam_id, question_id, selected_option, submitted_at
		 FROM student_answers
		 WHERE user_id = $1 AND exam_id = $2
		 ORDER BY id`, userID, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.AnswerRecord
	for rows.Next() {
		var a model.AnswerRecord
		if err := rows.Scan(&a.ID, &a.UserID, &a.ExamID, &a.QuestionID, &a.SelectedOption, &a.SubmittedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
