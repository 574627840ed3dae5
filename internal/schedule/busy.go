package schedule

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/clinicops/internal/availability"
)

// BusySource reports externally managed busy time for a professional, such
// as events from a synced calendar.
type BusySource interface {
	Busy(ctx context.Context, clinicID, professionalID string, window availability.Interval) ([]availability.Interval, error)
}

// NoBusySource reports no external busy time.
type NoBusySource struct{}

func (NoBusySource) Busy(context.Context, string, string, availability.Interval) ([]availability.Interval, error) {
	return nil, nil
}

// BusyStore keeps the busy blocks pushed by calendar sync in a Redis sorted
// set per professional, scored by block end in milliseconds. Each member is
// the ISO-8601 interval "start/end" in UTC.
type BusyStore struct {
	redis *redis.Client
}

// NewBusyStore creates a busy block store.
func NewBusyStore(redisClient *redis.Client) *BusyStore {
	return &BusyStore{redis: redisClient}
}

func (s *BusyStore) key(clinicID, professionalID string) string {
	return fmt.Sprintf("schedule:busy:%s:%s", clinicID, professionalID)
}

// Busy returns the stored blocks overlapping window, ordered by start.
func (s *BusyStore) Busy(ctx context.Context, clinicID, professionalID string, window availability.Interval) ([]availability.Interval, error) {
	members, err := s.redis.ZRangeByScore(ctx, s.key(clinicID, professionalID), &redis.ZRangeBy{
		Min: strconv.FormatInt(window.Start.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("schedule: read busy blocks: %w", err)
	}
	blocks, err := decodeBlocks(members)
	if err != nil {
		return nil, err
	}
	out := blocks[:0]
	for _, b := range blocks {
		if b.Overlaps(window) {
			out = append(out, b)
		}
	}
	return out, nil
}

// List returns every stored block for a professional, ordered by start.
func (s *BusyStore) List(ctx context.Context, clinicID, professionalID string) ([]availability.Interval, error) {
	members, err := s.redis.ZRange(ctx, s.key(clinicID, professionalID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("schedule: list busy blocks: %w", err)
	}
	return decodeBlocks(members)
}

// Replace swaps the stored blocks for a professional with blocks in one
// transaction. Every block must end after it starts.
func (s *BusyStore) Replace(ctx context.Context, clinicID, professionalID string, blocks []availability.Interval) error {
	var problems []string
	for i, b := range blocks {
		if b.Start.IsZero() || b.End.IsZero() || !b.End.After(b.Start) {
			problems = append(problems, fmt.Sprintf("block %d: end must be after start", i))
		}
	}
	if len(problems) > 0 {
		return &availability.ValidationError{Problems: problems}
	}

	key := s.key(clinicID, professionalID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(blocks) == 0 {
			return nil
		}
		members := make([]redis.Z, 0, len(blocks))
		for _, b := range blocks {
			members = append(members, redis.Z{Score: float64(b.End.UnixMilli()), Member: encodeBlock(b)})
		}
		pipe.ZAdd(ctx, key, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("schedule: replace busy blocks: %w", err)
	}
	return nil
}

// Clear removes every stored block for a professional.
func (s *BusyStore) Clear(ctx context.Context, clinicID, professionalID string) error {
	if err := s.redis.Del(ctx, s.key(clinicID, professionalID)).Err(); err != nil {
		return fmt.Errorf("schedule: clear busy blocks: %w", err)
	}
	return nil
}

func encodeBlock(b availability.Interval) string {
	return b.Start.UTC().Format(time.RFC3339Nano) + "/" + b.End.UTC().Format(time.RFC3339Nano)
}

func decodeBlocks(members []string) ([]availability.Interval, error) {
	blocks := make([]availability.Interval, 0, len(members))
	for _, m := range members {
		start, end, ok := strings.Cut(m, "/")
		if !ok {
			return nil, fmt.Errorf("schedule: malformed busy block %q", m)
		}
		b, err := availability.ParseInterval(start, end)
		if err != nil {
			return nil, fmt.Errorf("schedule: malformed busy block %q: %w", m, err)
		}
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Start.Before(blocks[j].Start) })
	return blocks, nil
}
