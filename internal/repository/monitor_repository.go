package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vigilo/proctor-backend/internal/model"
)

// MonitorRepository provides the read views used by invigilators.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// ListActiveSessions returns sessions of exams whose scheduled window
// contains now.
func (r *MonitorRepository) ListActiveSessions(ctx context.Context, now time.Time) ([]model.ActiveSessionView, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.user_id, u.username, s.exam_id, e.title, s.status, s.started_at
		 FROM exam_sessions s
		 JOIN users u ON s.user_id = u.id
		 JOIN exams e ON s.exam_id = e.id
		 WHERE $1 BETWEEN e.start_time AND e.end_time
		 ORDER BY s.started_at DESC`, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ActiveSessionView
	for rows.Next() {
		var v model.ActiveSessionView
		if err := rows.Scan(&v.UserID, &v.Username, &v.ExamID, &v.ExamTitle, &v.Status, &v.StartedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, v)
	}
	return sessions, rows.Err()
}
