package tracker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigilo/proctor-backend/internal/model"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	store := NewPositionStore(10*time.Minute, time.Minute, zerolog.Nop())
	return NewClassifier(store, DefaultMovementThreshold, zerolog.Nop())
}

func ptr(v int64) *int64 { return &v }

func box(x1, y1, x2, y2 float64, trackID *int64) model.Detection {
	return model.Detection{BBox: []float64{x1, y1, x2, y2}, TrackID: trackID}
}

func TestClassifyEmptyFrame(t *testing.T) {
	c := newTestClassifier(t)
	now := time.Now()

	events := c.Classify(1, uuid.New(), nil, now)

	require.Len(t, events, 1)
	assert.Equal(t, model.MovementNoPersonDetected, events[0].MovementType)
	assert.Equal(t, now, events[0].Timestamp)
}

func TestClassifySinglePerson(t *testing.T) {
	c := newTestClassifier(t)

	events := c.Classify(1, uuid.New(), []model.Detection{box(0, 0, 100, 100, ptr(7))}, time.Now())

	require.Len(t, events, 1)
	assert.Equal(t, model.MovementPersonDetected, events[0].MovementType)
}

func TestClassifyMultiplePeople(t *testing.T) {
	c := newTestClassifier(t)

	events := c.Classify(1, uuid.New(), []model.Detection{
		box(0, 0, 100, 100, ptr(1)),
		box(300, 300, 400, 400, ptr(2)),
	}, time.Now())

	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, model.MovementMultiplePeople, ev.MovementType)
	}
}

func TestClassifyFirstSightingIsNotSuspicious(t *testing.T) {
	// A track with no stored baseline can never be suspicious, whatever its
	// position.
	c := newTestClassifier(t)

	events := c.Classify(1, uuid.New(), []model.Detection{box(5000, 5000, 5100, 5100, ptr(1))}, time.Now())

	require.Len(t, events, 1)
	assert.Equal(t, model.MovementPersonDetected, events[0].MovementType)
}

func TestClassifyMovementBeyondThreshold(t *testing.T) {
	c := newTestClassifier(t)
	examID := uuid.New()
	now := time.Now()

	// Frame 1 establishes the baseline: centroid (50, 50).
	c.Classify(1, examID, []model.Detection{box(0, 0, 100, 100, ptr(1))}, now)

	// Frame 2 moves the centroid to (150, 50): displacement 100 > 50.
	events := c.Classify(1, examID, []model.Detection{box(100, 0, 200, 100, ptr(1))}, now.Add(time.Second))

	require.Len(t, events, 1)
	assert.Equal(t, model.MovementSuspicious, events[0].MovementType)
}

func TestClassifyMovementAtThresholdIsNotSuspicious(t *testing.T) {
	c := newTestClassifier(t)
	examID := uuid.New()
	now := time.Now()

	c.Classify(1, examID, []model.Detection{box(0, 0, 100, 100, ptr(1))}, now)

	// Displacement of exactly 50 does not exceed the threshold.
	events := c.Classify(1, examID, []model.Detection{box(50, 0, 150, 100, ptr(1))}, now.Add(time.Second))

	require.Len(t, events, 1)
	assert.Equal(t, model.MovementPersonDetected, events[0].MovementType)
}

func TestClassifySuspiciousOverridesMultiplePeople(t *testing.T) {
	c := newTestClassifier(t)
	examID := uuid.New()
	now := time.Now()

	c.Classify(1, examID, []model.Detection{box(0, 0, 100, 100, ptr(1))}, now)

	// Track 1 jumps far, while a second person appears. The jumping track is
	// reported suspicious; the new one gets the frame baseline.
	events := c.Classify(1, examID, []model.Detection{
		box(500, 500, 600, 600, ptr(1)),
		box(0, 0, 100, 100, ptr(2)),
	}, now.Add(time.Second))

	require.Len(t, events, 2)
	assert.Equal(t, model.MovementSuspicious, events[0].MovementType)
	assert.Equal(t, model.MovementMultiplePeople, events[1].MovementType)
}

func TestClassifyBaselineUpdatedAfterSuspicious(t *testing.T) {
	// The stored centroid is overwritten on every sighting, so a track that
	// jumped once and then stays put goes back to baseline.
	c := newTestClassifier(t)
	examID := uuid.New()
	now := time.Now()

	c.Classify(1, examID, []model.Detection{box(0, 0, 100, 100, ptr(1))}, now)
	c.Classify(1, examID, []model.Detection{box(500, 500, 600, 600, ptr(1))}, now.Add(time.Second))

	events := c.Classify(1, examID, []model.Detection{box(500, 500, 600, 600, ptr(1))}, now.Add(2*time.Second))

	require.Len(t, events, 1)
	assert.Equal(t, model.MovementPersonDetected, events[0].MovementType)
}

func TestClassifySessionIsolation(t *testing.T) {
	// The same track ID in different exams or for different users must not
	// share a baseline.
	c := newTestClassifier(t)
	examA := uuid.New()
	examB := uuid.New()
	now := time.Now()

	c.Classify(1, examA, []model.Detection{box(0, 0, 100, 100, ptr(1))}, now)

	// Same user, different exam: far away but a first sighting there.
	events := c.Classify(1, examB, []model.Detection{box(900, 900, 1000, 1000, ptr(1))}, now.Add(time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, model.MovementPersonDetected, events[0].MovementType)

	// Different user, same exam: also a first sighting.
	events = c.Classify(2, examA, []model.Detection{box(900, 900, 1000, 1000, ptr(1))}, now.Add(time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, model.MovementPersonDetected, events[0].MovementType)
}

func TestClassifyUntrackedDetection(t *testing.T) {
	// Without a track ID there is no baseline to compare against; the
	// detection still counts toward the frame baseline.
	c := newTestClassifier(t)
	examID := uuid.New()
	now := time.Now()

	c.Classify(1, examID, []model.Detection{box(0, 0, 100, 100, nil)}, now)
	events := c.Classify(1, examID, []model.Detection{box(500, 500, 600, 600, nil)}, now.Add(time.Second))

	require.Len(t, events, 1)
	assert.Equal(t, model.MovementPersonDetected, events[0].MovementType)
	assert.Zero(t, c.Store().Len())
}

func TestClassifyMalformedDetectionSkipped(t *testing.T) {
	c := newTestClassifier(t)

	events := c.Classify(1, uuid.New(), []model.Detection{
		{BBox: []float64{1, 2, 3}, TrackID: ptr(1)}, // wrong arity
		box(0, 0, 100, 100, ptr(2)),
	}, time.Now())

	// Only the valid box counts, so the frame reads as one person.
	require.Len(t, events, 1)
	assert.Equal(t, model.MovementPersonDetected, events[0].MovementType)
}

func TestClassifyAllMalformedDegradesToNoPerson(t *testing.T) {
	c := newTestClassifier(t)

	events := c.Classify(1, uuid.New(), []model.Detection{
		{BBox: []float64{1, 2, 3}},
		{BBox: []float64{100, 100, 50, 50}}, // inverted box, non-positive area
	}, time.Now())

	require.Len(t, events, 1)
	assert.Equal(t, model.MovementNoPersonDetected, events[0].MovementType)
}

func TestClassifyZeroThresholdFallsBackToDefault(t *testing.T) {
	store := NewPositionStore(10*time.Minute, time.Minute, zerolog.Nop())
	c := NewClassifier(store, 0, zerolog.Nop())
	examID := uuid.New()
	now := time.Now()

	c.Classify(1, examID, []model.Detection{box(0, 0, 100, 100, ptr(1))}, now)

	// 10px displacement stays under the default threshold of 50.
	events := c.Classify(1, examID, []model.Detection{box(10, 0, 110, 100, ptr(1))}, now.Add(time.Second))

	require.Len(t, events, 1)
	assert.Equal(t, model.MovementPersonDetected, events[0].MovementType)
}
