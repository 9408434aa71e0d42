package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vigilo/proctor-backend/internal/model"
)

// MockMovementAggregates implements MovementAggregates.
type MockMovementAggregates struct {
	mock.Mock
}

func (m *MockMovementAggregates) CountNonBaselineByUser(ctx context.Context, examID uuid.UUID) (map[int]int, error) {
	args := m.Called(ctx, examID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int), args.Error(1)
}

func (m *MockMovementAggregates) DistinctTypesByUser(ctx context.Context, examID uuid.UUID) (map[int][]model.MovementType, error) {
	args := m.Called(ctx, examID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int][]model.MovementType), args.Error(1)
}

// MockReportSink implements ReportSink.
type MockReportSink struct {
	mock.Mock
}

func (m *MockReportSink) Upsert(ctx context.Context, rep *model.Report) error {
	args := m.Called(ctx, rep)
	return args.Error(0)
}

func TestGenerateReportScoresPerUser(t *testing.T) {
	movements := new(MockMovementAggregates)
	sink := new(MockReportSink)
	svc := NewReportService(movements, sink, zerolog.Nop())

	examID := uuid.New()
	movements.On("CountNonBaselineByUser", mock.Anything, examID).Return(map[int]int{
		1: 3, // 3 flagged events
		2: 1,
	}, nil)
	movements.On("DistinctTypesByUser", mock.Anything, examID).Return(map[int][]model.MovementType{
		1: {model.MovementSuspicious, model.MovementMultiplePeople},
		2: {model.MovementNoPersonDetected},
	}, nil)
	sink.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	report, err := svc.GenerateReport(context.Background(), examID)

	require.NoError(t, err)
	require.Len(t, report.UserReports, 2)

	// User reports come back in ascending user order.
	assert.Equal(t, 1, report.UserReports[0].UserID)
	assert.Equal(t, 30, report.UserReports[0].Score)
	assert.Contains(t, report.UserReports[0].Summary, string(model.MovementSuspicious))

	assert.Equal(t, 2, report.UserReports[1].UserID)
	assert.Equal(t, 10, report.UserReports[1].Score)

	// Exam aggregate sums the per-user scores and unions the types.
	assert.Equal(t, 40, report.Score)
	assert.Contains(t, report.Summary, string(model.MovementMultiplePeople))
	assert.Contains(t, report.Summary, string(model.MovementNoPersonDetected))

	sink.AssertNumberOfCalls(t, "Upsert", 2)
}

func TestGenerateReportEmptyExam(t *testing.T) {
	movements := new(MockMovementAggregates)
	sink := new(MockReportSink)
	svc := NewReportService(movements, sink, zerolog.Nop())

	examID := uuid.New()
	movements.On("CountNonBaselineByUser", mock.Anything, examID).Return(map[int]int{}, nil)
	movements.On("DistinctTypesByUser", mock.Anything, examID).Return(map[int][]model.MovementType{}, nil)

	report, err := svc.GenerateReport(context.Background(), examID)

	require.NoError(t, err)
	assert.Empty(t, report.UserReports)
	assert.Zero(t, report.Score)
	assert.Equal(t, "no activity recorded", report.Summary)
	sink.AssertNotCalled(t, "Upsert")
}

func TestGenerateReportHonorsCancellation(t *testing.T) {
	movements := new(MockMovementAggregates)
	sink := new(MockReportSink)
	svc := NewReportService(movements, sink, zerolog.Nop())

	examID := uuid.New()
	movements.On("CountNonBaselineByUser", mock.Anything, examID).Return(map[int]int{1: 1}, nil)
	movements.On("DistinctTypesByUser", mock.Anything, examID).Return(map[int][]model.MovementType{
		1: {model.MovementSuspicious},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GenerateReport(ctx, examID)

	assert.ErrorIs(t, err, context.Canceled)
	sink.AssertNotCalled(t, "Upsert")
}
