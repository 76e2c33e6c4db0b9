// README: Outcome service: records accept/reject and refreshes the driver's smoothed acceptance rate.
package outcome

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"routematch/internal/config"
	"routematch/internal/types"
)

type Service struct {
	store *Store
	cfg   config.OutcomeConfig
	log   *zap.Logger
}

func NewService(store *Store, cfg config.OutcomeConfig, log *zap.Logger) *Service {
	return &Service{store: store, cfg: cfg, log: log}
}

// Resolve applies the driver's answer for the order. It runs regardless of
// the driver's lock, which may already have expired. A second call for the
// same order returns ErrAlreadyResolved and leaves the counters untouched.
func (s *Service) Resolve(ctx context.Context, driverID, orderID types.ID, accepted bool) (Stats, error) {
	rate := func(accepts, offers int64) float64 {
		return SmoothedRate(accepts, offers, s.cfg.PriorMean, s.cfg.SmoothingWeight)
	}
	st, err := s.store.Commit(ctx, driverID, orderID, accepted, rate, s.cfg.MarkerTTL)
	if err != nil {
		if errors.Is(err, ErrAlreadyResolved) {
			return Stats{}, err
		}
		return Stats{}, fmt.Errorf("resolve order %s: %w", orderID, err)
	}
	s.log.Debug("outcome recorded",
		zap.String("order_id", string(orderID)),
		zap.String("driver_id", string(driverID)),
		zap.Bool("accepted", accepted),
		zap.Int64("total_offers", st.TotalOffers),
		zap.Float64("accept_rate", st.AcceptRate))
	return st, nil
}

// Claim reserves the order ID for one dispatch. A false result means the
// order is being or has been dispatched.
func (s *Service) Claim(ctx context.Context, orderID types.ID) (bool, error) {
	return s.store.Claim(ctx, orderID, s.cfg.MarkerTTL)
}

// Unclaim frees an order ID whose dispatch ended without an outcome.
func (s *Service) Unclaim(ctx context.Context, orderID types.ID) error {
	return s.store.Unclaim(ctx, orderID)
}
