package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vigilo/proctor-backend/internal/model"
)

// MovementRepository handles the append-only movement event log.
type MovementRepository struct {
	pool *pgxpool.Pool
}

// NewMovementRepository creates a new MovementRepository.
func NewMovementRepository(pool *pgxpool.Pool) *MovementRepository {
	return &MovementRepository{pool: pool}
}

// InsertBatch appends one frame's worth of events. CopyFrom is atomic here:
// either every event lands or the whole frame is rejected.
func (r *MovementRepository) InsertBatch(ctx context.Context, events []model.MovementEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, []interface{}{
			e.UserID, e.ExamID, e.MovementType, e.Timestamp, e.FramePath,
		})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"movements"},
		[]string{"user_id", "exam_id", "movement_type", "timestamp", "frame_path"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// ListByExam retrieves every event for an exam, oldest first.
func (r *MovementRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.MovementEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, exam_id, movement_type, timestamp, frame_path
		 FROM movements WHERE exam_id = $1
		 ORDER BY timestamp`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

// CountNonBaselineByUser returns, per user, how many of the exam's events are
// not the person_detected baseline. Users with only baseline events still
// appear with a zero count so they get a report row.
func (r *MovementRepository) CountNonBaselineByUser(ctx context.Context, examID uuid.UUID) (map[int]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, COUNT(*) FILTER (WHERE movement_type != $2)
		 FROM movements
		 WHERE exam_id = $1
		 GROUP BY user_id`, examID, model.MovementPersonDetected,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var userID, count int
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, err
		}
		counts[userID] = count
	}
	return counts, rows.Err()
}

// DistinctTypesByUser returns the distinct movement types observed per user
// in an exam, each user's set ordered alphabetically.
func (r *MovementRepository) DistinctTypesByUser(ctx context.Context, examID uuid.UUID) (map[int][]model.MovementType, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT user_id, movement_type
		 FROM movements
		 WHERE exam_id = $1
		 ORDER BY user_id, movement_type`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make(map[int][]model.MovementType)
	for rows.Next() {
		var userID int
		var mt model.MovementType
		if err := rows.Scan(&userID, &mt); err != nil {
			return nil, err
		}
		types[userID] = append(types[userID], mt)
	}
	return types, rows.Err()
}

// ListUnusual returns all non-baseline events across all exams, newest first.
func (r *MovementRepository) ListUnusual(ctx context.Context, limit int) ([]model.UnusualDetectionView, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.user_id, u.username, m.exam_id, m.movement_type, m.timestamp
		 FROM movements m
		 JOIN users u ON m.user_id = u.id
		 WHERE m.movement_type != $1
		 ORDER BY m.timestamp DESC
		 LIMIT $2`, model.MovementPersonDetected, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []model.UnusualDetectionView
	for rows.Next() {
		var v model.UnusualDetectionView
		if err := rows.Scan(&v.UserID, &v.Username, &v.ExamID, &v.MovementType, &v.Timestamp); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ListUnusualFrames returns evidence frames of non-baseline events for one
// (user, exam) pair, newest first.
func (r *MovementRepository) ListUnusualFrames(ctx context.Context, userID int, examID uuid.UUID) ([]model.FrameView, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT frame_path, movement_type, timestamp
		 FROM movements
		 WHERE user_id = $1 AND exam_id = $2
		   AND movement_type != $3
		   AND frame_path IS NOT NULL
		 ORDER BY timestamp DESC`, userID, examID, model.MovementPersonDetected,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []model.FrameView
	for rows.Next() {
		var f model.FrameView
		if err := rows.Scan(&f.FramePath, &f.MovementType, &f.Timestamp); err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// LatestFrame returns the most recent evidence frame for a (user, exam) pair,
// suspicious or not. Returns pgx.ErrNoRows when no frame was ever recorded.
func (r *MovementRepository) LatestFrame(ctx context.Context, userID int, examID uuid.UUID) (*model.FrameView, error) {
	f := &model.FrameView{}
	err := r.pool.QueryRow(ctx,
		`SELECT frame_path, movement_type, timestamp
		 FROM movements
		 WHERE user_id = $1 AND exam_id = $2 AND frame_path IS NOT NULL
		 ORDER BY timestamp DESC
		 LIMIT 1`, userID, examID,
	).Scan(&f.FramePath, &f.MovementType, &f.Timestamp)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func scanMovements(rows pgx.Rows) ([]model.MovementEvent, error) {
	var events []model.MovementEvent
	for rows.Next() {
		var e model.MovementEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.ExamID, &e.MovementType, &e.Timestamp, &e.FramePath); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
