package model

import (
	"time"

	"github.com/google/uuid"
)

// Report is a per-(user, exam) suspicion report, recomputed on demand.
type Report struct {
	ID          int64     `json:"id"`
	UserID      int       `json:"user_id"`
	ExamID      uuid.UUID `json:"exam_id"`
	Summary     string    `json:"summary"`
	Score       int       `json:"score"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ExamReport aggregates the per-user reports of one exam.
type ExamReport struct {
	ExamID      uuid.UUID `json:"exam_id"`
	Score       int       `json:"score"`
	Summary     string    `json:"summary"`
	UserReports []Report  `json:"user_reports"`
	GeneratedAt time.Time `json:"generated_at"`
}
