// README: Spatial index store: per-(cell, vehicle class) driver sets in Redis sorted sets.
package location

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uber/h3-go/v4"

	"routematch/internal/modules/driver"
	"routematch/internal/types"
)

const cellKeyPrefix = "drivers:h3:%s:%s"

// CellKey is the sorted set of drivers of one vehicle class in one cell,
// scored by registration time in unix milliseconds.
func CellKey(cell string, class driver.VehicleClass) string {
	return fmt.Sprintf(cellKeyPrefix, cell, string(class))
}

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) RegisterDriver(ctx context.Context, cell h3.Cell, class driver.VehicleClass, id types.ID) error {
	return s.redis.ZAdd(ctx, CellKey(cell.String(), class), redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: string(id),
	}).Err()
}

// RingMembers reads up to limit members of every cell in one pipelined round
// trip and returns them in cell order.
func (s *Store) RingMembers(ctx context.Context, cells []h3.Cell, class driver.VehicleClass, limit int) ([]types.ID, error) {
	if len(cells) == 0 || limit <= 0 {
		return nil, nil
	}
	cmds := make([]*redis.StringSliceCmd, len(cells))
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, c := range cells {
			cmds[i] = pipe.ZRange(ctx, CellKey(c.String(), class), 0, int64(limit-1))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ring members: %w", err)
	}
	var ids []types.ID
	for _, cmd := range cmds {
		for _, m := range cmd.Val() {
			ids = append(ids, types.ID(m))
		}
	}
	return ids, nil
}

// MoveDriver atomically removes the driver from its previous cell set (if it
// changed), adds it to the new one and upserts its position in the state hash.
// New drivers get IDLE status and the default acceptance rate.
func (s *Store) MoveDriver(ctx context.Context, u DriverUpdate, cell h3.Cell, prevCell string, prevClass driver.VehicleClass) error {
	now := time.Now().UnixMilli()
	key := driver.StateKey(u.DriverID)
	newCell := cell.String()
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if prevCell != "" && (prevCell != newCell || prevClass != u.VehicleClass) {
			pipe.ZRem(ctx, CellKey(prevCell, prevClass), string(u.DriverID))
		}
		pipe.ZAdd(ctx, CellKey(newCell, u.VehicleClass), redis.Z{Score: float64(now), Member: string(u.DriverID)})
		fields := map[string]any{
			driver.FieldVehicleClass: string(u.VehicleClass),
			driver.FieldLat:          u.Position.Lat,
			driver.FieldLng:          u.Position.Lng,
			driver.FieldCell:         newCell,
			driver.FieldUpdatedAt:    now,
		}
		if u.FatigueIndex != nil {
			fields[driver.FieldFatigue] = *u.FatigueIndex
		}
		pipe.HSet(ctx, key, fields)
		pipe.HSetNX(ctx, key, driver.FieldStatus, string(driver.StatusIdle))
		pipe.HSetNX(ctx, key, driver.FieldAcceptRate, driver.DefaultAcceptRate)
		pipe.HSetNX(ctx, key, driver.FieldTotalOffers, 0)
		pipe.HSetNX(ctx, key, driver.FieldTotalAccepts, 0)
		return nil
	})
	return err
}

// Placement returns the cell and vehicle class the driver is currently indexed under.
func (s *Store) Placement(ctx context.Context, id types.ID) (string, driver.VehicleClass, error) {
	vals, err := s.redis.HMGet(ctx, driver.StateKey(id), driver.FieldCell, driver.FieldVehicleClass).Result()
	if err != nil {
		return "", "", err
	}
	cell, _ := vals[0].(string)
	class, _ := vals[1].(string)
	return cell, driver.VehicleClass(class), nil
}
