// README: Assignment engine: rank by acceptance probability, then take the first driver whose lock we win.
package matching

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"routematch/internal/config"
	"routematch/internal/types"
)

type Locker interface {
	AcquireLock(ctx context.Context, driverID, orderID types.ID, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, driverID, orderID types.ID) (bool, error)
}

type Engine struct {
	locks Locker
	cfg   config.MatchingConfig
	log   *zap.Logger
}

func NewEngine(locks Locker, cfg config.MatchingConfig, log *zap.Logger) *Engine {
	return &Engine{locks: locks, cfg: cfg, log: log}
}

// Rank returns a copy sorted by probability, highest first. Equal
// probabilities keep their input order.
func Rank(in []Ranked) []Ranked {
	out := make([]Ranked, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	return out
}

// Assign walks the ranking and commits the first driver whose lock this order
// acquires. It never revisits a higher-ranked driver. ok is false when every
// lock was already held. A store error stops the walk.
func (e *Engine) Assign(ctx context.Context, orderID types.ID, candidates []Ranked) (Match, bool, error) {
	ranked := Rank(candidates)
	skipped := 0
	for i, c := range ranked {
		won, err := e.locks.AcquireLock(ctx, c.DriverID, orderID, e.cfg.LockTTL)
		if err != nil {
			return Match{}, false, fmt.Errorf("acquire lock for driver %s: %w", c.DriverID, err)
		}
		if !won {
			skipped++
			e.log.Debug("driver lock held by another order",
				zap.String("order_id", string(orderID)),
				zap.String("driver_id", string(c.DriverID)),
				zap.Int("rank", i))
			continue
		}
		return Match{DriverID: c.DriverID, Probability: c.Probability, Rank: i, Skipped: skipped}, true, nil
	}
	return Match{}, false, nil
}

// Release frees the driver early after a rejection. It is a no-op unless
// release_on_reject is enabled; otherwise the lock runs out its TTL and the
// driver stays unofferable until then.
func (e *Engine) Release(ctx context.Context, driverID, orderID types.ID) error {
	if !e.cfg.ReleaseOnReject {
		return nil
	}
	released, err := e.locks.ReleaseLock(ctx, driverID, orderID)
	if err != nil {
		return err
	}
	if !released {
		e.log.Debug("lock already expired or taken over",
			zap.String("order_id", string(orderID)),
			zap.String("driver_id", string(driverID)))
	}
	return nil
}
