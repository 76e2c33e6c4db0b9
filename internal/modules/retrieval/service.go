// README: Candidate retrieval by adaptive H3 ring expansion over the spatial index.
package retrieval

import (
	"context"

	"github.com/uber/h3-go/v4"
	"go.uber.org/zap"

	"routematch/internal/config"
	"routematch/internal/modules/driver"
	"routematch/internal/modules/location"
	"routematch/internal/types"
)

type RingReader interface {
	RingMembers(ctx context.Context, cells []h3.Cell, class driver.VehicleClass, limit int) ([]types.ID, error)
}

type StateReader interface {
	BatchGet(ctx context.Context, ids []types.ID) ([]driver.Record, error)
}

type Service struct {
	grid   location.Grid
	rings  RingReader
	states StateReader
	cfg    config.RetrievalConfig
	log    *zap.Logger
}

func NewService(grid location.Grid, rings RingReader, states StateReader, cfg config.RetrievalConfig, log *zap.Logger) *Service {
	return &Service{grid: grid, rings: rings, states: states, cfg: cfg, log: log}
}

// Retrieve expands rings around the pickup cell until TargetCount drivers of
// the requested class are found or MaxRing has been read, then merges each
// driver's state. Missing or malformed state records and BUSY drivers are
// skipped. The result is unordered and may be empty.
func (s *Service) Retrieve(ctx context.Context, pickup types.Point, class driver.VehicleClass) ([]Candidate, error) {
	ids, rings, err := s.expand(ctx, pickup, class)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	records, err := s.states.BatchGet(ctx, ids)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(records))
	for _, rec := range records {
		st, err := driver.Parse(rec.ID, rec.Fields)
		if err != nil {
			s.log.Debug("skipping driver record", zap.String("driver_id", string(rec.ID)), zap.Error(err))
			continue
		}
		if st.Status == driver.StatusBusy {
			s.log.Debug("skipping busy driver", zap.String("driver_id", string(rec.ID)))
			continue
		}
		candidates = append(candidates, Candidate{
			DriverID:   rec.ID,
			DistanceKm: location.DistanceKm(pickup, st.Location),
			Driver:     st,
		})
	}

	s.log.Debug("retrieved candidates",
		zap.String("vehicle_class", string(class)),
		zap.Int("rings", rings),
		zap.Int("ids", len(ids)),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}

// expand returns the de-duplicated driver IDs in first-seen order and the
// number of rings read.
func (s *Service) expand(ctx context.Context, pickup types.Point, class driver.VehicleClass) ([]types.ID, int, error) {
	center := s.grid.Cell(pickup)
	rings := s.grid.Rings(center, s.cfg.MaxRing)

	seen := make(map[types.ID]struct{})
	var ids []types.ID
	read := 0
	for _, ring := range rings {
		members, err := s.rings.RingMembers(ctx, ring, class, s.cfg.MaxPerCell)
		if err != nil {
			return nil, read, err
		}
		read++
		for _, id := range members {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		if len(ids) >= s.cfg.TargetCount {
			break
		}
	}
	return ids, read, nil
}
