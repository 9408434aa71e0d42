package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutGet(t *testing.T) {
	s := NewPositionStore(time.Minute, time.Second, zerolog.Nop())
	key := TrackKey{UserID: 1, ExamID: uuid.New(), TrackID: 1}

	_, ok := s.Get(key)
	assert.False(t, ok)

	now := time.Now()
	s.Put(key, 10, 20, now)

	pos, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, 10.0, pos.X)
	assert.Equal(t, 20.0, pos.Y)
	assert.Equal(t, now, pos.LastSeen)

	// Last write wins.
	s.Put(key, 30, 40, now.Add(time.Second))
	pos, _ = s.Get(key)
	assert.Equal(t, 30.0, pos.X)
	assert.Equal(t, 1, s.Len())
}

func TestStoreEvict(t *testing.T) {
	s := NewPositionStore(time.Minute, time.Second, zerolog.Nop())
	examID := uuid.New()
	now := time.Now()

	stale := TrackKey{UserID: 1, ExamID: examID, TrackID: 1}
	fresh := TrackKey{UserID: 1, ExamID: examID, TrackID: 2}

	s.Put(stale, 1, 1, now.Add(-2*time.Minute))
	s.Put(fresh, 2, 2, now)

	removed := s.Evict(now.Add(-time.Minute))

	assert.Equal(t, 1, removed)
	_, ok := s.Get(stale)
	assert.False(t, ok)
	_, ok = s.Get(fresh)
	assert.True(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestStoreEvictEmpty(t *testing.T) {
	s := NewPositionStore(time.Minute, time.Second, zerolog.Nop())
	assert.Zero(t, s.Evict(time.Now()))
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewPositionStore(time.Minute, time.Second, zerolog.Nop())
	examID := uuid.New()
	now := time.Now()

	var wg sync.WaitGroup
	for u := 0; u < 8; u++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			for i := int64(0); i < 100; i++ {
				key := TrackKey{UserID: userID, ExamID: examID, TrackID: i}
				s.Put(key, float64(i), float64(i), now)
				s.Get(key)
			}
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 800, s.Len())
	assert.Equal(t, 800, s.Evict(now.Add(time.Second)))
	assert.Zero(t, s.Len())
}

func TestStoreRunStopsOnCancel(t *testing.T) {
	s := NewPositionStore(time.Millisecond, time.Millisecond, zerolog.Nop())
	key := TrackKey{UserID: 1, ExamID: uuid.New(), TrackID: 1}
	s.Put(key, 1, 1, time.Now().Add(-time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// The sweep should remove the stale entry shortly.
	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
