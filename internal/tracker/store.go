package tracker

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vigilo/proctor-backend/internal/logger"
)

const shardCount = 32

// TrackKey identifies one tracked person inside one proctoring session.
// Positions are keyed per (user, exam, track) so concurrent sessions can
// never corrupt each other's movement baselines.
type TrackKey struct {
	UserID  int
	ExamID  uuid.UUID
	TrackID int64
}

// Position is the last known centroid of a track.
type Position struct {
	X        float64
	Y        float64
	LastSeen time.Time
}

type storeShard struct {
	mu        sync.Mutex
	positions map[TrackKey]Position
}

// PositionStore holds the last known centroid per track across all live
// sessions. It is sharded to keep classification calls from many concurrent
// sessions off a single lock. Entries for tracks that stop appearing are
// removed by the eviction loop once they exceed the configured TTL.
type PositionStore struct {
	shards [shardCount]*storeShard
	ttl    time.Duration
	sweep  time.Duration
	log    zerolog.Logger
}

// NewPositionStore creates a PositionStore. ttl bounds how long an unseen
// track keeps its centroid; sweep is the eviction interval.
func NewPositionStore(ttl, sweep time.Duration, log zerolog.Logger) *PositionStore {
	s := &PositionStore{
		ttl:   ttl,
		sweep: sweep,
		log:   logger.Component(log, "position_store"),
	}
	for i := range s.shards {
		s.shards[i] = &storeShard{positions: make(map[TrackKey]Position)}
	}
	return s
}

func (s *PositionStore) shardFor(key TrackKey) *storeShard {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d:%s:%d", key.UserID, key.ExamID, key.TrackID)
	return s.shards[h.Sum32()%shardCount]
}

// Get returns the stored centroid for a track, if any.
func (s *PositionStore) Get(key TrackKey) (Position, bool) {
	shard := s.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	pos, ok := shard.positions[key]
	return pos, ok
}

// Put overwrites the stored centroid for a track. Last write wins.
func (s *PositionStore) Put(key TrackKey, x, y float64, seen time.Time) {
	shard := s.shardFor(key)
	shard.mu.Lock()
	shard.positions[key] = Position{X: x, Y: y, LastSeen: seen}
	shard.mu.Unlock()
}

// Len returns the total number of tracked positions across all shards.
func (s *PositionStore) Len() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		total += len(shard.positions)
		shard.mu.Unlock()
	}
	return total
}

// Evict removes every entry whose LastSeen is older than cutoff and returns
// the number of entries removed.
func (s *PositionStore) Evict(cutoff time.Time) int {
	removed := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		for key, pos := range shard.positions {
			if pos.LastSeen.Before(cutoff) {
				delete(shard.positions, key)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// Run sweeps stale tracks until ctx is cancelled. Intended to run as a
// background goroutine from cmd/server.
func (s *PositionStore) Run(ctx context.Context) {
	s.log.Info().
		Dur("ttl", s.ttl).
		Dur("sweep_interval", s.sweep).
		Msg("Position eviction loop started")

	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Position eviction loop stopped")
			return
		case <-ticker.C:
			if removed := s.Evict(time.Now().Add(-s.ttl)); removed > 0 {
				s.log.Debug().Int("removed", removed).Int("remaining", s.Len()).Msg("Evicted stale tracks")
			}
		}
	}
}
