// Package journal persists simulation keyframes and per-tick event batches to
// redis so operators can inspect recent history and rejoining clients can
// rehydrate from a keyframe plus the events recorded after it.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"guildmaster/server/internal/events"
	"guildmaster/server/internal/sim"
	"guildmaster/server/internal/telemetry"
)

const (
	// DefaultNamespace prefixes every key the store writes.
	DefaultNamespace = "guildmaster"
	// DefaultCapacity bounds the rolling keyframe window.
	DefaultCapacity = 32
	// DefaultRetention expires journal keys that eviction never reached.
	DefaultRetention = 5 * time.Minute

	metricKeyframesWritten = "journal_keyframes_written_total"
	metricEventBatches     = "journal_event_batches_total"
	metricWriteFailures    = "journal_write_failures_total"
)

// ErrNotFound reports that no keyframe exists for the requested tick.
var ErrNotFound = errors.New("journal: keyframe not found")

// Config holds the dependencies and tuning knobs for the redis store.
type Config struct {
	Client    redis.UniversalClient
	Metrics   telemetry.Metrics
	Namespace string
	Capacity  int
	Retention time.Duration
}

// Validate ensures the required dependencies are provided.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("journal: config is required")
	}
	if c.Client == nil {
		return errors.New("journal: redis client is required")
	}
	return nil
}

// Store keeps a rolling window of snapshot keyframes and the event batches
// recorded between them. Keyframes are indexed in a sorted set scored by tick
// so eviction and range reads stay cheap.
type Store struct {
	client    redis.UniversalClient
	metrics   telemetry.Metrics
	namespace string
	capacity  int
	retention time.Duration
}

// NewStore constructs a redis-backed journal store.
func NewStore(cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Store{
		client:    cfg.Client,
		metrics:   metrics,
		namespace: namespace,
		capacity:  capacity,
		retention: retention,
	}, nil
}

// RecordKeyframe writes a full snapshot under its tick and trims the window
// back to the configured capacity.
func (s *Store) RecordKeyframe(ctx context.Context, snap sim.Snapshot) error {
	if s == nil {
		return errors.New("journal: store is nil")
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		s.metrics.Add(metricWriteFailures, 1)
		return fmt.Errorf("journal: marshal keyframe: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyframeKey(snap.Tick), payload, s.retention)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(snap.Tick),
		Member: strconv.FormatUint(snap.Tick, 10),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		s.metrics.Add(metricWriteFailures, 1)
		return fmt.Errorf("journal: write keyframe: %w", err)
	}
	s.metrics.Add(metricKeyframesWritten, 1)
	return s.evict(ctx)
}

// RecordEvents stores the event batch drained at a tick. Empty batches are
// skipped so the index only holds ticks that produced events.
func (s *Store) RecordEvents(ctx context.Context, tick uint64, batch []events.Event) error {
	if s == nil {
		return errors.New("journal: store is nil")
	}
	if len(batch) == 0 {
		return nil
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		s.metrics.Add(metricWriteFailures, 1)
		return fmt.Errorf("journal: marshal events: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.eventsKey(tick), payload, s.retention)
	pipe.ZAdd(ctx, s.eventsIndexKey(), redis.Z{
		Score:  float64(tick),
		Member: strconv.FormatUint(tick, 10),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		s.metrics.Add(metricWriteFailures, 1)
		return fmt.Errorf("journal: write events: %w", err)
	}
	s.metrics.Add(metricEventBatches, 1)
	return nil
}

// Keyframe fetches the snapshot stored for a tick.
func (s *Store) Keyframe(ctx context.Context, tick uint64) (sim.Snapshot, error) {
	if s == nil {
		return sim.Snapshot{}, errors.New("journal: store is nil")
	}
	payload, err := s.client.Get(ctx, s.keyframeKey(tick)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sim.Snapshot{}, ErrNotFound
		}
		return sim.Snapshot{}, fmt.Errorf("journal: read keyframe: %w", err)
	}
	var snap sim.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return sim.Snapshot{}, fmt.Errorf("journal: decode keyframe: %w", err)
	}
	return snap, nil
}

// Latest returns the most recent keyframe in the window.
func (s *Store) Latest(ctx context.Context) (sim.Snapshot, error) {
	if s == nil {
		return sim.Snapshot{}, errors.New("journal: store is nil")
	}
	members, err := s.client.ZRange(ctx, s.indexKey(), -1, -1).Result()
	if err != nil {
		return sim.Snapshot{}, fmt.Errorf("journal: read index: %w", err)
	}
	if len(members) == 0 {
		return sim.Snapshot{}, ErrNotFound
	}
	tick, err := strconv.ParseUint(members[0], 10, 64)
	if err != nil {
		return sim.Snapshot{}, fmt.Errorf("journal: corrupt index member %q: %w", members[0], err)
	}
	return s.Keyframe(ctx, tick)
}

// EventsSince returns every recorded event after the given tick, oldest
// first. Batches whose payload already expired are skipped.
func (s *Store) EventsSince(ctx context.Context, tick uint64) ([]events.Event, error) {
	if s == nil {
		return nil, errors.New("journal: store is nil")
	}
	members, err := s.client.ZRangeByScore(ctx, s.eventsIndexKey(), &redis.ZRangeBy{
		Min: "(" + strconv.FormatUint(tick, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("journal: read event index: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(members))
	for _, member := range members {
		t, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("journal: corrupt event index member %q: %w", member, err)
		}
		keys = append(keys, s.eventsKey(t))
	}
	payloads, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("journal: read event batches: %w", err)
	}
	var out []events.Event
	for _, payload := range payloads {
		text, ok := payload.(string)
		if !ok {
			continue
		}
		var batch []events.Event
		if err := json.Unmarshal([]byte(text), &batch); err != nil {
			return nil, fmt.Errorf("journal: decode event batch: %w", err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

// evict drops keyframes beyond the capacity window along with the event
// batches that can no longer anchor a replay.
func (s *Store) evict(ctx context.Context) error {
	stale, err := s.client.ZRange(ctx, s.indexKey(), 0, int64(-s.capacity-1)).Result()
	if err != nil {
		return fmt.Errorf("journal: read eviction range: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}
	newestStale, err := strconv.ParseUint(stale[len(stale)-1], 10, 64)
	if err != nil {
		return fmt.Errorf("journal: corrupt index member %q: %w", stale[len(stale)-1], err)
	}
	staleEvents, err := s.client.ZRangeByScore(ctx, s.eventsIndexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatUint(newestStale, 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("journal: read stale events: %w", err)
	}

	keys := make([]string, 0, len(stale)+len(staleEvents))
	staleMembers := make([]interface{}, 0, len(stale))
	for _, member := range stale {
		t, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			return fmt.Errorf("journal: corrupt index member %q: %w", member, err)
		}
		keys = append(keys, s.keyframeKey(t))
		staleMembers = append(staleMembers, member)
	}
	staleEventMembers := make([]interface{}, 0, len(staleEvents))
	for _, member := range staleEvents {
		t, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			return fmt.Errorf("journal: corrupt event index member %q: %w", member, err)
		}
		keys = append(keys, s.eventsKey(t))
		staleEventMembers = append(staleEventMembers, member)
	}

	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, s.indexKey(), staleMembers...)
	if len(staleEventMembers) > 0 {
		pipe.ZRem(ctx, s.eventsIndexKey(), staleEventMembers...)
	}
	pipe.Del(ctx, keys...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("journal: evict: %w", err)
	}
	return nil
}

func (s *Store) keyframeKey(tick uint64) string {
	return fmt.Sprintf("%s:keyframe:%d", s.namespace, tick)
}

func (s *Store) eventsKey(tick uint64) string {
	return fmt.Sprintf("%s:events:%d", s.namespace, tick)
}

func (s *Store) indexKey() string {
	return s.namespace + ":keyframes"
}

func (s *Store) eventsIndexKey() string {
	return s.namespace + ":events"
}
