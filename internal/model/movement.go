package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// MovementType classifies what the proctoring camera observed in a frame.
type MovementType string

const (
	MovementPersonDetected   MovementType = "person_detected"
	MovementNoPersonDetected MovementType = "no_person_detected"
	MovementMultiplePeople   MovementType = "multiple_people_detected"
	MovementSuspicious       MovementType = "suspicious_movement"
)

// IsBaseline reports whether the type is the unremarkable single-person case.
// Everything else feeds the suspicion score.
func (m MovementType) IsBaseline() bool {
	return m == MovementPersonDetected
}

// MovementEvent is one append-only row in the proctoring audit trail.
type MovementEvent struct {
	ID           int64        `json:"id"`
	UserID       int          `json:"user_id"`
	ExamID       uuid.UUID    `json:"exam_id"`
	MovementType MovementType `json:"movement_type"`
	Timestamp    time.Time    `json:"timestamp"`
	FramePath    *string      `json:"frame_path,omitempty"`
}

// Detection is a single person bounding box reported by the detector.
// TrackID is nil when the detector could not associate the box with a track.
type Detection struct {
	BBox    []float64 `json:"bbox" binding:"required"`
	TrackID *int64    `json:"track_id"`
}

// Centroid returns the geometric center of the bounding box. ok is false for
// a malformed box: wrong arity, non-finite values, or a non-positive area.
func (d Detection) Centroid() (x, y float64, ok bool) {
	if len(d.BBox) != 4 {
		return 0, 0, false
	}
	for _, v := range d.BBox {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, false
		}
	}
	x1, y1, x2, y2 := d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3]
	if x2 <= x1 || y2 <= y1 {
		return 0, 0, false
	}
	return (x1 + x2) / 2, (y1 + y2) / 2, true
}

// ClassifyFrameRequest is the payload for frame classification. Detections may
// be empty: that is a meaningful observation (nobody in front of the camera).
type ClassifyFrameRequest struct {
	Detections []Detection `json:"detections"`
}

// UnusualDetectionView is a row in the invigilator's non-baseline event feed.
type UnusualDetectionView struct {
	UserID       int          `json:"user_id"`
	Username     string       `json:"username"`
	ExamID       uuid.UUID    `json:"exam_id"`
	MovementType MovementType `json:"movement_type"`
	Timestamp    time.Time    `json:"timestamp"`
}

// FrameView is a single evidence frame reference.
type FrameView struct {
	FramePath    string       `json:"frame_path"`
	MovementType MovementType `json:"movement_type"`
	Timestamp    time.Time    `json:"timestamp"`
}
