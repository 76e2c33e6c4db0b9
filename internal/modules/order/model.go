// README: Order intake model, dispatch results and the persisted dispatch record.
package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"routematch/internal/modules/driver"
	"routematch/internal/modules/features"
	"routematch/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("order not found")
	ErrDuplicate  = errors.New("order already dispatched")
)

type ServiceClass string

const (
	ServiceStandard   ServiceClass = "standard"
	ServiceFast       ServiceClass = "fast"
	ServicePrioritize ServiceClass = "prioritize"
)

func (s ServiceClass) Valid() bool {
	switch s {
	case ServiceStandard, ServiceFast, ServicePrioritize:
		return true
	}
	return false
}

type Order struct {
	ID           types.ID
	UserID       types.ID
	Pickup       types.Point
	VehicleClass driver.VehicleClass
	ServiceClass ServiceClass
	DistanceKm   float64
	ShippingFee  float64
	Raining      bool
	CODAmount    float64
	HourSin      float64
	HourCos      float64
}

// Validate checks the order before any store is touched.
func (o Order) Validate() error {
	switch {
	case o.ID == "":
		return fmt.Errorf("%w: order_id is required", ErrBadRequest)
	case !o.Pickup.Valid():
		return fmt.Errorf("%w: pickup %v out of range", ErrBadRequest, o.Pickup)
	case !o.VehicleClass.Valid():
		return fmt.Errorf("%w: unknown vehicle_type %q", ErrBadRequest, o.VehicleClass)
	case !o.ServiceClass.Valid():
		return fmt.Errorf("%w: unknown service_type %q", ErrBadRequest, o.ServiceClass)
	case !finite(o.DistanceKm) || o.DistanceKm <= 0:
		return fmt.Errorf("%w: distance_km must be > 0", ErrBadRequest)
	case !finite(o.ShippingFee) || o.ShippingFee <= 0:
		return fmt.Errorf("%w: shipping_fee must be > 0", ErrBadRequest)
	case !finite(o.CODAmount) || o.CODAmount < 0:
		return fmt.Errorf("%w: cod_amount must be >= 0", ErrBadRequest)
	case !finite(o.HourSin) || math.Abs(o.HourSin) > 1 || !finite(o.HourCos) || math.Abs(o.HourCos) > 1:
		return fmt.Errorf("%w: hour_sin/hour_cos must be in [-1,1]", ErrBadRequest)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Context is the order-side input to feature enrichment.
func (o Order) Context() features.OrderContext {
	return features.OrderContext{
		OrderID:      o.ID,
		VehicleClass: string(o.VehicleClass),
		ServiceClass: string(o.ServiceClass),
		DistanceKm:   o.DistanceKm,
		ShippingFee:  o.ShippingFee,
		Raining:      o.Raining,
		CODAmount:    o.CODAmount,
		HourSin:      o.HourSin,
		HourCos:      o.HourCos,
	}
}

type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

type Reason string

const (
	ReasonNoDrivers      Reason = "no_drivers_nearby"
	ReasonAllDriversBusy Reason = "all_drivers_busy"
)

// Result is the outcome of one dispatch attempt.
type Result struct {
	Status      Status   `json:"status"`
	Reason      Reason   `json:"reason,omitempty"`
	DriverID    types.ID `json:"driver_id,omitempty"`
	Probability float64  `json:"score"`
	// Elapsed is reported in seconds.
	Elapsed float64 `json:"processing_time"`
}

// MarshalJSON writes score whenever a driver was matched, including a
// probability of 0, and leaves it out of failed results.
func (r Result) MarshalJSON() ([]byte, error) {
	type wire struct {
		Status   Status   `json:"status"`
		Reason   Reason   `json:"reason,omitempty"`
		DriverID types.ID `json:"driver_id,omitempty"`
		Score    *float64 `json:"score,omitempty"`
		Elapsed  float64  `json:"processing_time"`
	}
	w := wire{Status: r.Status, Reason: r.Reason, DriverID: r.DriverID, Elapsed: r.Elapsed}
	if r.DriverID != "" {
		p := r.Probability
		w.Score = &p
	}
	return json.Marshal(w)
}

// Dispatch is the persisted record of a dispatch attempt.
type Dispatch struct {
	OrderID      types.ID
	UserID       types.ID
	Pickup       types.Point
	Cell         string
	VehicleClass driver.VehicleClass
	ServiceClass ServiceClass
	ShippingFee  float64
	Status       Status
	Reason       Reason
	DriverID     *types.ID
	Probability  *float64
	Rank         int
	Candidates   int
	Demand60m    float64
	CreatedAt    time.Time
}
