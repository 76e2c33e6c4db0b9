// README: Scoring oracle contract: one enriched feature record per candidate, one probability back.
package scoring

import (
	"context"
	"errors"
)

// ErrUnavailable covers every oracle failure: transport error, timeout,
// non-2xx status, undecodable or mismatched response.
var ErrUnavailable = errors.New("scoring unavailable")

// Request is one (driver, order) feature record. Field names follow the
// oracle's training schema.
type Request struct {
	DriverID string `json:"driver_id"`
	OrderID  string `json:"order_id"`

	DistanceKm    float64 `json:"distance_km"`
	ShippingFee   float64 `json:"shipping_fee"`
	VehicleClass  string  `json:"requested_vehicle_type"`
	ServiceClass  string  `json:"service_type"`
	Raining       int     `json:"is_raining"`
	CODAmount     float64 `json:"cod_amount"`
	HourSin       float64 `json:"hour_sin"`
	HourCos       float64 `json:"hour_cos"`
	CellDemand60m float64 `json:"h3_demand_60m"`

	PickupDistanceKm float64 `json:"driver_distance_to_pickup"`
	FatigueIndex     float64 `json:"driver_fatigue_index"`
	AcceptRate       float64 `json:"driver_global_accept_rate"`

	// PricePerKm is only sent when the oracle schema expects it.
	PricePerKm *float64 `json:"price_per_km,omitempty"`
}

type Prediction struct {
	DriverID    string  `json:"driver_id"`
	Probability float64 `json:"prob_accept"`
}

// Scorer returns one prediction per request, in request order.
type Scorer interface {
	Score(ctx context.Context, reqs []Request) ([]Prediction, error)
}
