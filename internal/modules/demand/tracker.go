// README: Sliding-window order counter per H3 cell, backed by Redis sorted sets.
package demand

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"routematch/internal/config"
	"routematch/internal/modules/location"
	"routematch/internal/types"
)

const keyPrefix = "demand:h3:%s"

// Key is the sorted set of recent orders in a cell, member = order ID,
// score = intake time in unix milliseconds.
func Key(cell string) string {
	return fmt.Sprintf(keyPrefix, cell)
}

type Tracker struct {
	redis  *redis.Client
	grid   location.Grid
	window time.Duration
	ttl    time.Duration
}

func NewTracker(redis *redis.Client, grid location.Grid, cfg config.DemandConfig) *Tracker {
	return &Tracker{redis: redis, grid: grid, window: cfg.Window, ttl: cfg.TTL}
}

// Record appends the order to its pickup cell at its intake time and
// refreshes the key TTL.
func (t *Tracker) Record(ctx context.Context, pickup types.Point, orderID types.ID, at time.Time) error {
	key := Key(t.grid.Cell(pickup).String())
	ts := at.UnixMilli()
	_, err := t.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(ts), Member: string(orderID)})
		pipe.Expire(ctx, key, t.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record demand: %w", err)
	}
	return nil
}

// Count returns how many orders were recorded in the pickup cell during
// [at-window, at). Passing an order's own intake time leaves that order out,
// however long ago it was recorded. Entries older than the window are pruned
// in the same round trip.
func (t *Tracker) Count(ctx context.Context, pickup types.Point, at time.Time) (float64, error) {
	key := Key(t.grid.Cell(pickup).String())
	now := at.UnixMilli()
	start := now - t.window.Milliseconds()

	var count *redis.IntCmd
	_, err := t.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(start, 10))
		count = pipe.ZCount(ctx, key, strconv.FormatInt(start, 10), "("+strconv.FormatInt(now, 10))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count demand: %w", err)
	}
	return float64(count.Val()), nil
}
