package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
)

const (
	totalField   = "total"
	versionField = "version"
)

// StatsCache keeps a poll's answer tally in a hash keyed by option id, with
// the response total and the counter version under separate fields.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatsCache(ctx context.Context, url string, ttl time.Duration) (*StatsCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %w", err)
	}

	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	return &StatsCache{client: c, ttl: ttl}, nil
}

func countsKey(pollID uuid.UUID) string {
	return fmt.Sprintf("poll:%s:counts", pollID)
}

func (c *StatsCache) Get(ctx context.Context, pollID uuid.UUID, version int) (*domain.AnswerCounts, bool, error) {
	fields, err := c.client.HGetAll(ctx, countsKey(pollID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("error getting counts from redis: %w", err)
	}
	if fields[versionField] != strconv.Itoa(version) {
		return nil, false, nil
	}

	counts := &domain.AnswerCounts{PerOption: make(map[uuid.UUID]int, len(fields))}
	for field, value := range fields {
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, false, fmt.Errorf("error converting count to int: %w", err)
		}
		switch field {
		case versionField:
			continue
		case totalField:
			counts.Total = n
			continue
		}
		optionID, err := uuid.Parse(field)
		if err != nil {
			return nil, false, fmt.Errorf("error parsing option id %q: %w", field, err)
		}
		counts.PerOption[optionID] = n
	}
	return counts, true, nil
}

func (c *StatsCache) Set(ctx context.Context, pollID uuid.UUID, version int, counts *domain.AnswerCounts) error {
	values := make(map[string]any, len(counts.PerOption)+2)
	values[versionField] = version
	values[totalField] = counts.Total
	for optionID, n := range counts.PerOption {
		values[optionID.String()] = n
	}

	key := countsKey(pollID)
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, values)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("error executing redis pipeline: %w", err)
	}
	return nil
}

func (c *StatsCache) Invalidate(ctx context.Context, pollID uuid.UUID) error {
	if err := c.client.Del(ctx, countsKey(pollID)).Err(); err != nil {
		return fmt.Errorf("error deleting counts from redis: %w", err)
	}
	return nil
}

func (c *StatsCache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("error closing redis client: %w", err)
	}
	return nil
}
