package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vigilo/proctor-backend/internal/config"
	"github.com/vigilo/proctor-backend/internal/logger"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// MovementWorker drains the movement persist queue into PostgreSQL in
// batches. The WebSocket feed enqueues classified events here so per-frame
// latency stays off the hot path.
type MovementWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewMovementWorker creates a new MovementWorker.
func NewMovementWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *MovementWorker {
	return &MovementWorker{
		pool: pool,
		rdb:  rdb,
		log:  logger.Component(log, "movement_worker"),
	}
}

type movementPayload struct {
	UserID       int    `json:"user_id"`
	ExamID       string `json:"exam_id"`
	MovementType string `json:"movement_type"`
	Timestamp    int64  `json:"timestamp"`
	FramePath    *string `json:"frame_path,omitempty"`
}

// Start runs the drain loop until ctx is cancelled, then flushes whatever is
// still buffered.
func (w *MovementWorker) Start(ctx context.Context) {
	w.log.Info().Msg("MovementWorker started")

	buffer := make([]*movementPayload, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check flush conditions (time or size)
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0] // Clear buffer, keep capacity
				lastFlushTime = time.Now()
			}
		}

		// 2. Check context (graceful shutdown)
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
			// Continue
		}

		// 3. Fetch from Redis. BLPop blocks for up to PollTimeout and
		// returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistMovementsQueue).Result()

		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check flush timer
			}
			if ctx.Err() != nil {
				return // Context cancelled
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		// 4. Process data
		if len(result) < 2 {
			continue
		}

		var payload movementPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *MovementWorker) flushSafe(ctx context.Context, batch []*movementPayload) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *MovementWorker) bulkInsert(ctx context.Context, batch []*movementPayload) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		examID, err := uuid.Parse(p.ExamID)
		if err != nil {
			// Trigger fallback, which handles the bad UUID individually
			return err
		}
		rows = append(rows, []interface{}{
			p.UserID, examID, p.MovementType, time.Unix(p.Timestamp, 0), p.FramePath,
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"movements"},
		[]string{"user_id", "exam_id", "movement_type", "timestamp", "frame_path"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *MovementWorker) fallbackInsert(ctx context.Context, batch []*movementPayload) {
	requeueList := make([]*movementPayload, 0)

	for _, p := range batch {
		examID, err := uuid.Parse(p.ExamID)
		if err != nil {
			w.log.Error().Str("exam_id", p.ExamID).Msg("Dropping movement event with invalid UUID")
			continue
		}

		_, err = w.pool.Exec(ctx,
			`INSERT INTO movements (user_id, exam_id, movement_type, timestamp, frame_path)
			 VALUES ($1, $2, $3, $4, $5)`,
			p.UserID, examID, p.MovementType, time.Unix(p.Timestamp, 0), p.FramePath,
		)

		if err != nil {
			w.log.Error().Err(err).Int("user_id", p.UserID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, p)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *MovementWorker) requeue(ctx context.Context, items []*movementPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.PersistMovementsQueue, data)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
	} else {
		w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
		// Avoid thrashing while the DB is down hard
		time.Sleep(2 * time.Second)
	}
}

func (w *MovementWorker) shutdown(buffer []*movementPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
