package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vigilo/proctor-backend/internal/logger"
	"github.com/vigilo/proctor-backend/internal/model"
)

// suspicionWeight is the flat per-event score added for every non-baseline
// movement event.
const suspicionWeight = 10

// MovementAggregates is the read contract the aggregator needs from the
// movement log. *repository.MovementRepository satisfies it.
type MovementAggregates interface {
	CountNonBaselineByUser(ctx context.Context, examID uuid.UUID) (map[int]int, error)
	DistinctTypesByUser(ctx context.Context, examID uuid.UUID) (map[int][]model.MovementType, error)
}

// ReportSink persists computed reports. *repository.ReportRepository
// satisfies it.
type ReportSink interface {
	Upsert(ctx context.Context, rep *model.Report) error
}

// ReportService aggregates an exam's movement log into suspicion reports.
// Reports are scoped per (user, exam): every monitored student gets their own
// score rather than the exam's events being pinned on one arbitrary user.
type ReportService struct {
	movements MovementAggregates
	reports   ReportSink
	log       zerolog.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(movements MovementAggregates, reports ReportSink, log zerolog.Logger) *ReportService {
	return &ReportService{
		movements: movements,
		reports:   reports,
		log:       logger.Component(log, "report_service"),
	}
}

// GenerateReport recomputes and persists the suspicion reports for an exam.
// Per user: score = suspicionWeight × count of non-baseline events; summary
// is the distinct set of observed movement types. The returned ExamReport
// aggregates all users: total score and the union of observed types.
// Aggregation honors ctx cancellation between queries (best-effort).
func (s *ReportService) GenerateReport(ctx context.Context, examID uuid.UUID) (*model.ExamReport, error) {
	counts, err := s.movements.CountNonBaselineByUser(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	types, err := s.movements.DistinctTypesByUser(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}

	now := time.Now()
	examReport := &model.ExamReport{
		ExamID:      examID,
		GeneratedAt: now,
	}

	examTypes := make(map[model.MovementType]struct{})

	userIDs := make([]int, 0, len(counts))
	for userID := range counts {
		userIDs = append(userIDs, userID)
	}
	sort.Ints(userIDs)

	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		report := model.Report{
			UserID:      userID,
			ExamID:      examID,
			Score:       counts[userID] * suspicionWeight,
			Summary:     summarize(types[userID]),
			GeneratedAt: now,
		}
		if err := s.reports.Upsert(ctx, &report); err != nil {
			return nil, fmt.Errorf("persist report for user %d: %w", userID, err)
		}

		for _, mt := range types[userID] {
			examTypes[mt] = struct{}{}
		}

		examReport.Score += report.Score
		examReport.UserReports = append(examReport.UserReports, report)
	}

	all := make([]model.MovementType, 0, len(examTypes))
	for mt := range examTypes {
		all = append(all, mt)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	examReport.Summary = summarize(all)

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("users", len(userIDs)).
		Int("total_score", examReport.Score).
		Msg("Report generated")

	return examReport, nil
}

func summarize(types []model.MovementType) string {
	if len(types) == 0 {
		return "no activity recorded"
	}
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, "; ")
}
