// README: Outcome store: optimistic WATCH/MULTI update of driver counters plus a per-order marker.
package outcome

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"routematch/internal/modules/driver"
	"routematch/internal/types"
)

const (
	markerKeyPrefix = "outcome:%s"
	intakeKeyPrefix = "order:%s:intake"
	maxTxAttempts   = 8
)

func MarkerKey(orderID types.ID) string {
	return fmt.Sprintf(markerKeyPrefix, string(orderID))
}

// IntakeKey is held by the request dispatching an order, and kept once the
// order has an outcome.
func IntakeKey(orderID types.ID) string {
	return fmt.Sprintf(intakeKeyPrefix, string(orderID))
}

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

// RateFunc maps updated counters to the stored acceptance rate.
type RateFunc func(accepts, offers int64) float64

// Commit applies one offer outcome to the driver's state. The counters, rate,
// status and the order marker are written in one MULTI; a concurrent write to
// either watched key retries the whole read-modify-write.
func (s *Store) Commit(ctx context.Context, driverID, orderID types.ID, accepted bool, rate RateFunc, markerTTL time.Duration) (Stats, error) {
	stateKey := driver.StateKey(driverID)
	markerKey := MarkerKey(orderID)

	var out Stats
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, markerKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyResolved
		}
		fields, err := tx.HGetAll(ctx, stateKey).Result()
		if err != nil {
			return err
		}
		st, err := driver.Parse(driverID, fields)
		if err != nil {
			return err
		}

		out = Stats{
			DriverID:     driverID,
			OrderID:      orderID,
			Accepted:     accepted,
			TotalOffers:  st.TotalOffers + 1,
			TotalAccepts: st.TotalAccepts,
			Status:       driver.StatusIdle,
		}
		if accepted {
			out.TotalAccepts++
			out.Status = driver.StatusBusy
		}
		out.AcceptRate = rate(out.TotalAccepts, out.TotalOffers)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, stateKey, map[string]any{
				driver.FieldTotalOffers:  out.TotalOffers,
				driver.FieldTotalAccepts: out.TotalAccepts,
				driver.FieldAcceptRate:   out.AcceptRate,
				driver.FieldStatus:       string(out.Status),
				driver.FieldUpdatedAt:    time.Now().UnixMilli(),
			})
			pipe.Set(ctx, markerKey, string(driverID), markerTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.redis.Watch(ctx, txf, stateKey, markerKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Stats{}, err
		}
		return out, nil
	}
	return Stats{}, fmt.Errorf("resolve %s for driver %s: %w", orderID, driverID, redis.TxFailedErr)
}

// Resolved returns the driver recorded for the order, or "" if none.
func (s *Store) Resolved(ctx context.Context, orderID types.ID) (types.ID, error) {
	v, err := s.redis.Get(ctx, MarkerKey(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return types.ID(v), nil
}

// Claim takes the order's intake key. It returns false when another request
// already holds it.
func (s *Store) Claim(ctx context.Context, orderID types.ID, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetNX(ctx, IntakeKey(orderID), time.Now().UnixMilli(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim order %s: %w", orderID, err)
	}
	return ok, nil
}

func (s *Store) Unclaim(ctx context.Context, orderID types.ID) error {
	if err := s.redis.Del(ctx, IntakeKey(orderID)).Err(); err != nil {
		return fmt.Errorf("unclaim order %s: %w", orderID, err)
	}
	return nil
}
