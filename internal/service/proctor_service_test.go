package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vigilo/proctor-backend/internal/model"
	"github.com/vigilo/proctor-backend/internal/tracker"
)

// MockMovementStore implements MovementStore.
type MockMovementStore struct {
	mock.Mock
}

func (m *MockMovementStore) InsertBatch(ctx context.Context, events []model.MovementEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func newProctorService(movements MovementStore) *ProctorService {
	store := tracker.NewPositionStore(10*time.Minute, time.Minute, zerolog.Nop())
	classifier := tracker.NewClassifier(store, tracker.DefaultMovementThreshold, zerolog.Nop())
	// Unreachable Redis: monitor publishes are best-effort and must not
	// affect classification results.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 10 * time.Millisecond})
	return NewProctorService(classifier, movements, rdb, zerolog.Nop())
}

func TestClassifyFrameAttachesEvidence(t *testing.T) {
	movements := new(MockMovementStore)
	svc := newProctorService(movements)

	framePath := "/frames/1_abc_123.jpg"
	movements.On("InsertBatch", mock.Anything, mock.MatchedBy(func(events []model.MovementEvent) bool {
		return len(events) == 1 &&
			events[0].MovementType == model.MovementPersonDetected &&
			events[0].FramePath != nil && *events[0].FramePath == framePath
	})).Return(nil)

	events, err := svc.ClassifyFrame(context.Background(), 1, uuid.New(), []model.Detection{
		{BBox: []float64{0, 0, 100, 100}},
	}, &framePath)

	require.NoError(t, err)
	require.Len(t, events, 1)
	movements.AssertExpectations(t)
}

func TestClassifyFrameNoEvidenceForEmptyFrame(t *testing.T) {
	// A no_person_detected event has no detection behind it, so the frame
	// image is not attached as evidence.
	movements := new(MockMovementStore)
	svc := newProctorService(movements)

	framePath := "/frames/1_abc_123.jpg"
	movements.On("InsertBatch", mock.Anything, mock.Anything).Return(nil)

	events, err := svc.ClassifyFrame(context.Background(), 1, uuid.New(), nil, &framePath)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.MovementNoPersonDetected, events[0].MovementType)
	assert.Nil(t, events[0].FramePath)
}

func TestClassifyFrameStorageFailure(t *testing.T) {
	movements := new(MockMovementStore)
	svc := newProctorService(movements)

	movements.On("InsertBatch", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := svc.ClassifyFrame(context.Background(), 1, uuid.New(), []model.Detection{
		{BBox: []float64{0, 0, 100, 100}},
	}, nil)

	assert.Error(t, err)
}
