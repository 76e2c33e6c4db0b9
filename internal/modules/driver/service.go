// README: Driver service exposes state lookup and operational availability changes.
package driver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"routematch/internal/types"
)

var ErrInvalidStatus = errors.New("invalid driver status")

type Service struct {
	store *Store
	log   *zap.Logger
}

func NewService(store *Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) Get(ctx context.Context, id types.ID) (State, error) {
	return s.store.Get(ctx, id)
}

// SetAvailability moves a known driver to IDLE or BUSY, e.g. when a trip ends.
// OFFERED is reserved for the dispatch pipeline.
func (s *Service) SetAvailability(ctx context.Context, id types.ID, status Status) error {
	if status != StatusIdle && status != StatusBusy {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.log.Info("driver availability changed", zap.String("driver_id", string(id)), zap.String("status", string(status)))
	return nil
}
