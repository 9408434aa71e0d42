package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vigilo/proctor-backend/internal/model"
)

// ScreenLogRepository handles the append-only screen activity log.
type ScreenLogRepository struct {
	pool *pgxpool.Pool
}

// NewScreenLogRepository creates a new ScreenLogRepository.
func NewScreenLogRepository(pool *pgxpool.Pool) *ScreenLogRepository {
	return &ScreenLogRepository{pool: pool}
}

// Insert appends one screen sample.
func (r *ScreenLogRepository) Insert(ctx context.Context, entry model.ScreenLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO screen_logs (user_id, exam_id, app_name, tab_title, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.UserID, entry.ExamID, entry.AppName, entry.TabTitle, entry.CreatedAt,
	)
	return err
}

// ListByUserExam retrieves the screen samples of one (user, exam) pair,
// newest first.
func (r *ScreenLogRepository) ListByUserExam(ctx context.Context, userID int, examID uuid.UUID) ([]model.ScreenLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, exam_id, app_name, tab_title, created_at
		 FROM screen_logs WHERE user_id = $1 AND exam_id = $2
		 ORDER BY created_at DESC`, userID, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.ScreenLog{}
	for rows.Next() {
		var l model.ScreenLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.ExamID, &l.AppName, &l.TabTitle, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
