package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vigilo/proctor-backend/internal/config"
	"github.com/vigilo/proctor-backend/internal/logger"
	"github.com/vigilo/proctor-backend/internal/model"
	"github.com/vigilo/proctor-backend/internal/tracker"
)

// MovementStore is the event log persistence contract.
// *repository.MovementRepository satisfies it.
type MovementStore interface {
	InsertBatch(ctx context.Context, events []model.MovementEvent) error
}

// ProctorService runs frame classification and fans the resulting events out
// to the durable log and the live monitor channel.
type ProctorService struct {
	classifier *tracker.Classifier
	movements  MovementStore
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewProctorService creates a new ProctorService.
func NewProctorService(classifier *tracker.Classifier, movements MovementStore, rdb *redis.Client, log zerolog.Logger) *ProctorService {
	return &ProctorService{
		classifier: classifier,
		movements:  movements,
		rdb:        rdb,
		log:        logger.Component(log, "proctor_service"),
	}
}

// ClassifyFrame classifies one frame's detections and persists the resulting
// events synchronously. The batch is atomic: a storage failure persists
// nothing and surfaces to the caller. framePath, when set, is attached as the
// evidence reference to every event that had a detection behind it.
func (s *ProctorService) ClassifyFrame(ctx context.Context, userID int, examID uuid.UUID, detections []model.Detection, framePath *string) ([]model.MovementEvent, error) {
	events := s.classifier.Classify(userID, examID, detections, time.Now())

	if framePath != nil {
		for i := range events {
			if events[i].MovementType != model.MovementNoPersonDetected {
				events[i].FramePath = framePath
			}
		}
	}

	if err := s.movements.InsertBatch(ctx, events); err != nil {
		return nil, fmt.Errorf("persist movement events: %w", err)
	}

	s.publishUnusual(ctx, examID, events)

	return events, nil
}

// ClassifyFrameQueued classifies a frame and pushes the events onto the Redis
// persist queue instead of writing to the database inline. The movement
// worker drains the queue in batches; this is the path for the high-rate
// WebSocket feed where per-frame DB latency is unacceptable.
func (s *ProctorService) ClassifyFrameQueued(ctx context.Context, userID int, examID uuid.UUID, detections []model.Detection) ([]model.MovementEvent, error) {
	events := s.classifier.Classify(userID, examID, detections, time.Now())

	pipe := s.rdb.Pipeline()
	for _, e := range events {
		payload, err := json.Marshal(queuedMovement{
			UserID:       e.UserID,
			ExamID:       e.ExamID.String(),
			MovementType: string(e.MovementType),
			Timestamp:    e.Timestamp.Unix(),
		})
		if err != nil {
			return nil, fmt.Errorf("marshal event: %w", err)
		}
		pipe.RPush(ctx, config.WorkerKey.PersistMovementsQueue, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue movement events: %w", err)
	}

	s.publishUnusual(ctx, examID, events)

	return events, nil
}

// publishUnusual pushes non-baseline events to the exam's monitor channel.
// Best-effort: a Redis hiccup must never fail classification.
func (s *ProctorService) publishUnusual(ctx context.Context, examID uuid.UUID, events []model.MovementEvent) {
	channel := config.CacheKey.ExamMonitorChannel(examID.String())
	for _, e := range events {
		if e.MovementType.IsBaseline() {
			continue
		}
		payload, _ := json.Marshal(e)
		if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Monitor publish failed")
			return
		}
	}
}

// queuedMovement is the wire format of the persist queue, shared with
// worker.MovementWorker.
type queuedMovement struct {
	UserID       int    `json:"user_id"`
	ExamID       string `json:"exam_id"`
	MovementType string `json:"movement_type"`
	Timestamp    int64  `json:"timestamp"`
}
