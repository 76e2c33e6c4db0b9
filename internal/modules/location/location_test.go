package location

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/h3-go/v4"
	"go.uber.org/zap"

	"routematch/internal/modules/driver"
	"routematch/internal/types"
)

var hcmc = types.Point{Lat: 10.762622, Lng: 106.660172}

func newTestService(t *testing.T) (*Service, *Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewStore(client)
	return NewService(NewGrid(8), store, zap.NewNop()), store, mr
}

func TestGrid_RingsShape(t *testing.T) {
	g := NewGrid(8)
	center := g.Cell(hcmc)
	assert.Equal(t, 8, center.Resolution())
	assert.Equal(t, center, g.Cell(hcmc), "cell mapping must be stable")

	rings := g.Rings(center, 3)
	require.Len(t, rings, 4)
	assert.Equal(t, []h3.Cell{center}, rings[0])
	for k := 1; k <= 3; k++ {
		assert.Len(t, rings[k], 6*k, "ring %d", k)
	}
}

func TestGrid_NegativeRingClamped(t *testing.T) {
	g := NewGrid(8)
	rings := g.Rings(g.Cell(hcmc), -2)
	require.Len(t, rings, 1)
}

func TestStore_RingMembersLimitAndOrder(t *testing.T) {
	_, store, _ := newTestService(t)
	ctx := context.Background()
	g := NewGrid(8)
	center := g.Cell(hcmc)
	neighbour := g.Rings(center, 1)[1][0]

	for _, id := range []types.ID{"a", "b", "c"} {
		require.NoError(t, store.RegisterDriver(ctx, center, driver.VehicleBike, id))
	}
	require.NoError(t, store.RegisterDriver(ctx, neighbour, driver.VehicleBike, "n"))
	require.NoError(t, store.RegisterDriver(ctx, center, driver.VehicleLargeTruck, "truck"))

	ids, err := store.RingMembers(ctx, []h3.Cell{center, neighbour}, driver.VehicleBike, 2)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Equal(t, types.ID("n"), ids[2])
	assert.NotContains(t, ids, types.ID("truck"))

	ids, err = store.RingMembers(ctx, nil, driver.VehicleBike, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestService_UpdateDriverRegistersAndMoves(t *testing.T) {
	svc, _, mr := newTestService(t)
	ctx := context.Background()
	fatigue := 0.2

	res, err := svc.UpdateDriver(ctx, DriverUpdate{
		DriverID: "d1", VehicleClass: driver.VehicleBike, Position: hcmc, FatigueIndex: &fatigue,
	})
	require.NoError(t, err)
	assert.False(t, res.Moved)
	first := res.Cell

	key := driver.StateKey("d1")
	assert.Equal(t, "IDLE", mr.HGet(key, driver.FieldStatus))
	assert.Equal(t, "0.6", mr.HGet(key, driver.FieldAcceptRate))
	assert.Equal(t, "0.2", mr.HGet(key, driver.FieldFatigue))
	members, err := mr.ZMembers(CellKey(first, driver.VehicleBike))
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, members)

	// Drivers already known keep their status and rate.
	mr.HSet(key, driver.FieldStatus, "BUSY", driver.FieldAcceptRate, "0.9")
	far := Offset(hcmc, 5, 90)
	res, err = svc.UpdateDriver(ctx, DriverUpdate{DriverID: "d1", VehicleClass: driver.VehicleBike, Position: far})
	require.NoError(t, err)
	assert.True(t, res.Moved)
	assert.Equal(t, first, res.PrevCell)
	assert.Equal(t, "BUSY", mr.HGet(key, driver.FieldStatus))
	assert.Equal(t, "0.9", mr.HGet(key, driver.FieldAcceptRate))
	old, _ := mr.ZMembers(CellKey(first, driver.VehicleBike))
	assert.Empty(t, old, "old cell set should be empty")
	members, err = mr.ZMembers(CellKey(res.Cell, driver.VehicleBike))
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, members)
}

func TestService_UpdateDriverValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	bad := 1.2
	cases := []DriverUpdate{
		{VehicleClass: driver.VehicleBike, Position: hcmc},
		{DriverID: "d1", VehicleClass: "scooter", Position: hcmc},
		{DriverID: "d1", VehicleClass: driver.VehicleBike, Position: types.Point{Lat: 91}},
		{DriverID: "d1", VehicleClass: driver.VehicleBike, Position: hcmc, FatigueIndex: &bad},
	}
	for _, u := range cases {
		_, err := svc.UpdateDriver(ctx, u)
		assert.ErrorIs(t, err, ErrBadUpdate)
	}
}
