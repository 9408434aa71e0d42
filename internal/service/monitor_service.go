package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vigilo/proctor-backend/internal/model"
	"github.com/vigilo/proctor-backend/internal/repository"
)

// unusualFeedLimit bounds the invigilator feed; the log is append-only and
// grows without bound, so the feed is always the newest slice of it.
const unusualFeedLimit = 500

// MonitorService serves the invigilator read views over sessions and the
// movement log. It never mutates state.
type MonitorService struct {
	monitorRepo   *repository.MonitorRepository
	movementRepo  *repository.MovementRepository
	screenLogRepo *repository.ScreenLogRepository
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitorRepo *repository.MonitorRepository, movementRepo *repository.MovementRepository, screenLogRepo *repository.ScreenLogRepository) *MonitorService {
	return &MonitorService{monitorRepo: monitorRepo, movementRepo: movementRepo, screenLogRepo: screenLogRepo}
}

// ListActiveSessions returns sessions whose exam window contains now.
func (s *MonitorService) ListActiveSessions(ctx context.Context) ([]model.ActiveSessionView, error) {
	return s.monitorRepo.ListActiveSessions(ctx, time.Now())
}

// ListUnusualDetections returns the newest non-baseline events across all
// exams.
func (s *MonitorService) ListUnusualDetections(ctx context.Context) ([]model.UnusualDetectionView, error) {
	return s.movementRepo.ListUnusual(ctx, unusualFeedLimit)
}

// ListUnusualFrames returns evidence frames of non-baseline events for one
// (user, exam) pair.
func (s *MonitorService) ListUnusualFrames(ctx context.Context, userID int, examID uuid.UUID) ([]model.FrameView, error) {
	return s.movementRepo.ListUnusualFrames(ctx, userID, examID)
}

// ListScreenLogs returns the screen activity samples of one (user, exam)
// pair, newest first.
func (s *MonitorService) ListScreenLogs(ctx context.Context, userID int, examID uuid.UUID) ([]model.ScreenLog, error) {
	return s.screenLogRepo.ListByUserExam(ctx, userID, examID)
}

// GetLatestFrame returns the most recent frame recorded for a (user, exam)
// pair, or nil when none exists.
func (s *MonitorService) GetLatestFrame(ctx context.Context, userID int, examID uuid.UUID) (*model.FrameView, error) {
	frame, err := s.movementRepo.LatestFrame(ctx, userID, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest frame: %w", err)
	}
	return frame, nil
}
