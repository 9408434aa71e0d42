package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vigilo/proctor-backend/internal/model"
)

type MockScreenLogStore struct {
	mock.Mock
}

func (m *MockScreenLogStore) Insert(ctx context.Context, entry model.ScreenLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockScreenLogStore) ListByUserExam(ctx context.Context, userID int, examID uuid.UUID) ([]model.ScreenLog, error) {
	args := m.Called(ctx, userID, examID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ScreenLog), args.Error(1)
}

func TestRecordPersistsScreenSample(t *testing.T) {
	store := new(MockScreenLogStore)
	svc := NewScreenLogService(store, zerolog.Nop())
	examID := uuid.New()

	store.On("Insert", mock.Anything, mock.MatchedBy(func(e model.ScreenLog) bool {
		return e.UserID == 4 &&
			e.ExamID == examID &&
			e.AppName == "Firefox" &&
			e.TabTitle == "Exam Portal" &&
			!e.CreatedAt.IsZero()
	})).Return(nil)

	err := svc.Record(context.Background(), 4, examID, model.ScreenLogRequest{
		AppName:  "Firefox",
		TabTitle: "Exam Portal",
	})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestRecordWrapsStorageError(t *testing.T) {
	store := new(MockScreenLogStore)
	svc := NewScreenLogService(store, zerolog.Nop())

	boom := errors.New("connection reset")
	store.On("Insert", mock.Anything, mock.Anything).Return(boom)

	err := svc.Record(context.Background(), 4, uuid.New(), model.ScreenLogRequest{
		AppName:  "Firefox",
		TabTitle: "Exam Portal",
	})
	assert.ErrorIs(t, err, boom)
}

func TestListScreenSamplesByUserExam(t *testing.T) {
	store := new(MockScreenLogStore)
	svc := NewScreenLogService(store, zerolog.Nop())
	examID := uuid.New()

	want := []model.ScreenLog{
		{ID: 2, UserID: 4, ExamID: examID, AppName: "Discord", TabTitle: "general"},
		{ID: 1, UserID: 4, ExamID: examID, AppName: "Firefox", TabTitle: "Exam Portal"},
	}
	store.On("ListByUserExam", mock.Anything, 4, examID).Return(want, nil)

	got, err := svc.ListByUserExam(context.Background(), 4, examID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
