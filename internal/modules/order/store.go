// README: Dispatch log backed by PostgreSQL.
package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"routematch/internal/modules/driver"
	"routematch/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS dispatch_log (
    order_id      TEXT PRIMARY KEY,
    user_id       TEXT,
    pickup_lat    DOUBLE PRECISION NOT NULL,
    pickup_lng    DOUBLE PRECISION NOT NULL,
    cell          TEXT NOT NULL,
    vehicle_class TEXT NOT NULL,
    service_class TEXT NOT NULL,
    shipping_fee  DOUBLE PRECISION NOT NULL,
    status        TEXT NOT NULL,
    reason        TEXT,
    driver_id     TEXT,
    prob_accept   DOUBLE PRECISION,
    rank          INTEGER NOT NULL DEFAULT 0,
    candidates    INTEGER NOT NULL DEFAULT 0,
    demand_60m    DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS dispatch_log_driver_idx ON dispatch_log (driver_id, created_at DESC);
`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

// Insert records a dispatch. A repeated order ID keeps the first record.
func (s *Store) Insert(ctx context.Context, d Dispatch) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO dispatch_log (
			order_id, user_id, pickup_lat, pickup_lng, cell,
			vehicle_class, service_class, shipping_fee,
			status, reason, driver_id, prob_accept,
			rank, candidates, demand_60m, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16
		)
		ON CONFLICT (order_id) DO NOTHING`,
		string(d.OrderID),
		nullString(string(d.UserID)),
		d.Pickup.Lat, d.Pickup.Lng,
		d.Cell,
		string(d.VehicleClass),
		string(d.ServiceClass),
		d.ShippingFee,
		string(d.Status),
		nullString(string(d.Reason)),
		toStringPtr(d.DriverID),
		d.Probability,
		d.Rank,
		d.Candidates,
		d.Demand60m,
		d.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, orderID types.ID) (Dispatch, error) {
	row := s.db.QueryRow(ctx, `
		SELECT order_id, user_id, pickup_lat, pickup_lng, cell,
		       vehicle_class, service_class, shipping_fee,
		       status, reason, driver_id, prob_accept,
		       rank, candidates, demand_60m, created_at
		FROM dispatch_log
		WHERE order_id = $1`, string(orderID),
	)

	var (
		d                                  Dispatch
		id, cell, vehicle, service, status string
		userID, reason, driverID           *string
	)
	err := row.Scan(
		&id, &userID, &d.Pickup.Lat, &d.Pickup.Lng, &cell,
		&vehicle, &service, &d.ShippingFee,
		&status, &reason, &driverID, &d.Probability,
		&d.Rank, &d.Candidates, &d.Demand60m, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Dispatch{}, ErrNotFound
	}
	if err != nil {
		return Dispatch{}, err
	}

	d.OrderID = types.ID(id)
	d.Cell = cell
	d.VehicleClass = driver.VehicleClass(vehicle)
	d.ServiceClass = ServiceClass(service)
	d.Status = Status(status)
	if userID != nil {
		d.UserID = types.ID(*userID)
	}
	if reason != nil {
		d.Reason = Reason(*reason)
	}
	if driverID != nil {
		v := types.ID(*driverID)
		d.DriverID = &v
	}
	return d, nil
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
