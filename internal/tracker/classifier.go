package tracker

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vigilo/proctor-backend/internal/logger"
	"github.com/vigilo/proctor-backend/internal/model"
)

// DefaultMovementThreshold is the centroid displacement above which a tracked
// person's movement between consecutive frames is considered suspicious.
const DefaultMovementThreshold = 50.0

// Classifier turns per-frame detections into movement events. It owns the
// PositionStore it reads baselines from; callers share one Classifier across
// all sessions.
type Classifier struct {
	store     *PositionStore
	threshold float64
	log       zerolog.Logger
}

// NewClassifier creates a Classifier. A threshold <= 0 falls back to
// DefaultMovementThreshold.
func NewClassifier(store *PositionStore, threshold float64, log zerolog.Logger) *Classifier {
	if threshold <= 0 {
		threshold = DefaultMovementThreshold
	}
	return &Classifier{
		store:     store,
		threshold: threshold,
		log:       logger.Component(log, "classifier"),
	}
}

// Store exposes the classifier's position store for the eviction loop.
func (c *Classifier) Store() *PositionStore {
	return c.store
}

// Classify maps one frame's detections to movement events.
//
// A malformed detection (bad bbox) is skipped individually and never fails
// the frame; the frame baseline is computed over the remaining valid boxes.
// Zero valid detections produce a single no_person_detected event. One valid
// detection is person_detected, several are multiple_people_detected. A
// detection whose track moved more than the threshold since its last stored
// centroid is overridden to suspicious_movement regardless of the baseline.
// The stored centroid is then overwritten unconditionally (last write wins).
func (c *Classifier) Classify(userID int, examID uuid.UUID, detections []model.Detection, now time.Time) []model.MovementEvent {
	type validDetection struct {
		x, y    float64
		trackID *int64
	}

	valid := make([]validDetection, 0, len(detections))
	for _, d := range detections {
		x, y, ok := d.Centroid()
		if !ok {
			c.log.Debug().
				Int("user_id", userID).
				Str("exam_id", examID.String()).
				Floats64("bbox", d.BBox).
				Msg("Skipping malformed detection")
			continue
		}
		valid = append(valid, validDetection{x: x, y: y, trackID: d.TrackID})
	}

	if len(valid) == 0 {
		return []model.MovementEvent{{
			UserID:       userID,
			ExamID:       examID,
			MovementType: model.MovementNoPersonDetected,
			Timestamp:    now,
		}}
	}

	baseline := model.MovementPersonDetected
	if len(valid) > 1 {
		baseline = model.MovementMultiplePeople
	}

	events := make([]model.MovementEvent, 0, len(valid))
	for _, d := range valid {
		movementType := baseline

		if d.trackID != nil {
			key := TrackKey{UserID: userID, ExamID: examID, TrackID: *d.trackID}
			if prev, ok := c.store.Get(key); ok {
				if dist(prev.X, prev.Y, d.x, d.y) > c.threshold {
					movementType = model.MovementSuspicious
				}
			}
			c.store.Put(key, d.x, d.y, now)
		}

		events = append(events, model.MovementEvent{
			UserID:       userID,
			ExamID:       examID,
			MovementType: movementType,
			Timestamp:    now,
		})
	}

	return events
}

func dist(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}
