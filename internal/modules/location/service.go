// README: Location service keeps the spatial index in step with driver position updates.
package location

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrBadUpdate = errors.New("bad location update")

type Service struct {
	grid  Grid
	store *Store
	log   *zap.Logger
}

func NewService(grid Grid, store *Store, log *zap.Logger) *Service {
	return &Service{grid: grid, store: store, log: log}
}

// UpdateDriver registers or moves a driver in the cell index.
func (s *Service) UpdateDriver(ctx context.Context, u DriverUpdate) (UpdateResult, error) {
	if u.DriverID == "" {
		return UpdateResult{}, fmt.Errorf("%w: missing driver id", ErrBadUpdate)
	}
	if !u.VehicleClass.Valid() {
		return UpdateResult{}, fmt.Errorf("%w: unknown vehicle class %q", ErrBadUpdate, u.VehicleClass)
	}
	if !u.Position.Valid() {
		return UpdateResult{}, fmt.Errorf("%w: position out of range", ErrBadUpdate)
	}
	if u.FatigueIndex != nil && (*u.FatigueIndex < 0 || *u.FatigueIndex > 1) {
		return UpdateResult{}, fmt.Errorf("%w: fatigue_index outside [0,1]", ErrBadUpdate)
	}

	prevCell, prevClass, err := s.store.Placement(ctx, u.DriverID)
	if err != nil {
		return UpdateResult{}, err
	}
	cell := s.grid.Cell(u.Position)
	if err := s.store.MoveDriver(ctx, u, cell, prevCell, prevClass); err != nil {
		return UpdateResult{}, err
	}

	res := UpdateResult{Cell: cell.String(), PrevCell: prevCell, Moved: prevCell != "" && prevCell != cell.String()}
	if res.Moved {
		s.log.Debug("driver changed cell",
			zap.String("driver_id", string(u.DriverID)),
			zap.String("from", prevCell),
			zap.String("to", res.Cell))
	}
	return res, nil
}
