package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vigilo/proctor-backend/internal/logger"
	"github.com/vigilo/proctor-backend/internal/model"
)

// ScreenLogStore is the screen activity persistence contract.
// *repository.ScreenLogRepository satisfies it.
type ScreenLogStore interface {
	Insert(ctx context.Context, entry model.ScreenLog) error
	ListByUserExam(ctx context.Context, userID int, examID uuid.UUID) ([]model.ScreenLog, error)
}

// ScreenLogService records what the student's screen showed alongside the
// camera-based movement log, giving invigilators a second evidence stream.
type ScreenLogService struct {
	store ScreenLogStore
	log   zerolog.Logger
}

// NewScreenLogService creates a new ScreenLogService.
func NewScreenLogService(store ScreenLogStore, log zerolog.Logger) *ScreenLogService {
	return &ScreenLogService{
		store: store,
		log:   logger.Component(log, "screen_log_service"),
	}
}

// Record persists one screen sample for an exam.
func (s *ScreenLogService) Record(ctx context.Context, userID int, examID uuid.UUID, req model.ScreenLogRequest) error {
	entry := model.ScreenLog{
		UserID:    userID,
		ExamID:    examID,
		AppName:   req.AppName,
		TabTitle:  req.TabTitle,
		CreatedAt: time.Now(),
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("record screen log: %w", err)
	}
	return nil
}

// ListByUserExam returns the screen samples of one (user, exam) pair,
// newest first.
func (s *ScreenLogService) ListByUserExam(ctx context.Context, userID int, examID uuid.UUID) ([]model.ScreenLog, error) {
	return s.store.ListByUserExam(ctx, userID, examID)
}
