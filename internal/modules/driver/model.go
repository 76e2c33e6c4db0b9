// README: Driver dynamic state as stored in the driver:{id}:state hash.
package driver

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"routematch/internal/types"
)

type VehicleClass string

const (
	VehicleBike        VehicleClass = "bike"
	VehicleMediumTruck VehicleClass = "truck_500"
	VehicleLargeTruck  VehicleClass = "truck_1000"
)

func (v VehicleClass) Valid() bool {
	switch v {
	case VehicleBike, VehicleMediumTruck, VehicleLargeTruck:
		return true
	}
	return false
}

type Status string

const (
	StatusIdle    Status = "IDLE"
	StatusOffered Status = "OFFERED"
	StatusBusy    Status = "BUSY"
)

func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusOffered, StatusBusy:
		return true
	}
	return false
}

// DefaultAcceptRate is the population acceptance rate used for drivers with no
// recorded rate; it is also the default smoothing prior.
const DefaultAcceptRate = 0.60

var (
	ErrNotFound  = errors.New("driver not found")
	ErrMalformed = errors.New("malformed driver record")
)

// Hash field names.
const (
	FieldVehicleClass = "vehicle_class"
	FieldLat          = "lat"
	FieldLng          = "lon"
	FieldCell         = "cell"
	FieldStatus       = "status"
	FieldFatigue      = "fatigue_index"
	FieldAcceptRate   = "accept_rate"
	FieldTotalOffers  = "total_offers"
	FieldTotalAccepts = "total_accepts"
	FieldUpdatedAt    = "updated_at"
)

type State struct {
	ID           types.ID     `json:"driver_id"`
	VehicleClass VehicleClass `json:"vehicle_class,omitempty"`
	Location     types.Point  `json:"location"`
	Cell         string       `json:"cell,omitempty"`
	Status       Status       `json:"status"`
	FatigueIndex float64      `json:"fatigue_index"`
	AcceptRate   float64      `json:"accept_rate"`
	TotalOffers  int64        `json:"total_offers"`
	TotalAccepts int64        `json:"total_accepts"`
	UpdatedAt    time.Time    `json:"updated_at,omitempty"`
}

// Parse converts a raw state hash into a State. An empty hash yields
// ErrNotFound; a hash without a usable position or with out-of-range values
// yields ErrMalformed.
func Parse(id types.ID, fields map[string]string) (State, error) {
	if len(fields) == 0 {
		return State{}, ErrNotFound
	}
	st := State{
		ID:           id,
		VehicleClass: VehicleClass(fields[FieldVehicleClass]),
		Cell:         fields[FieldCell],
		Status:       StatusIdle,
		AcceptRate:   DefaultAcceptRate,
	}

	var err error
	if st.Location.Lat, err = requiredFloat(fields, FieldLat); err != nil {
		return State{}, err
	}
	if st.Location.Lng, err = requiredFloat(fields, FieldLng); err != nil {
		return State{}, err
	}
	if !st.Location.Valid() {
		return State{}, fmt.Errorf("%w: position %v out of range", ErrMalformed, st.Location)
	}
	if v := fields[FieldStatus]; v != "" {
		st.Status = Status(v)
		if !st.Status.Valid() {
			return State{}, fmt.Errorf("%w: unknown status %q", ErrMalformed, v)
		}
	}
	if st.FatigueIndex, err = optionalFloat(fields, FieldFatigue, 0); err != nil {
		return State{}, err
	}
	if st.AcceptRate, err = optionalFloat(fields, FieldAcceptRate, DefaultAcceptRate); err != nil {
		return State{}, err
	}
	if st.FatigueIndex < 0 || st.FatigueIndex > 1 || st.AcceptRate < 0 || st.AcceptRate > 1 {
		return State{}, fmt.Errorf("%w: fatigue/accept rate outside [0,1]", ErrMalformed)
	}
	if st.TotalOffers, err = optionalCounter(fields, FieldTotalOffers); err != nil {
		return State{}, err
	}
	if st.TotalAccepts, err = optionalCounter(fields, FieldTotalAccepts); err != nil {
		return State{}, err
	}
	if st.TotalAccepts > st.TotalOffers {
		return State{}, fmt.Errorf("%w: total_accepts > total_offers", ErrMalformed)
	}
	if v := fields[FieldUpdatedAt]; v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			st.UpdatedAt = time.UnixMilli(ms)
		}
	}
	return st, nil
}

func requiredFloat(fields map[string]string, key string) (float64, error) {
	v, ok := fields[key]
	if !ok || v == "" {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformed, key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrMalformed, key, v)
	}
	return f, nil
}

func optionalFloat(fields map[string]string, key string, def float64) (float64, error) {
	v := fields[key]
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrMalformed, key, v)
	}
	return f, nil
}

// optionalCounter accepts "3" as well as "3.0"; older writers stored counters as floats.
func optionalCounter(fields map[string]string, key string) (int64, error) {
	v := fields[key]
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f != float64(int64(f)) {
		return 0, fmt.Errorf("%w: %s=%q", ErrMalformed, key, v)
	}
	return int64(f), nil
}
