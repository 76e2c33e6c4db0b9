// README: Shipping fee rates per vehicle class and the surcharges applied on top.
package pricing

import "routematch/internal/modules/driver"

const Currency = "VND"

type Rate struct {
	VehicleClass driver.VehicleClass
	BaseFare     int64
	PerKm        int64
}

// DefaultRates is the fee table orders are priced with.
var DefaultRates = map[driver.VehicleClass]Rate{
	driver.VehicleBike:        {VehicleClass: driver.VehicleBike, BaseFare: 15000, PerKm: 5000},
	driver.VehicleMediumTruck: {VehicleClass: driver.VehicleMediumTruck, BaseFare: 130000, PerKm: 15000},
	driver.VehicleLargeTruck:  {VehicleClass: driver.VehicleLargeTruck, BaseFare: 200000, PerKm: 15000},
}

// Service class multipliers. Classes not listed here cannot be quoted.
var serviceMultipliers = map[string]float64{
	"standard":   1.0,
	"fast":       2.0,
	"prioritize": 3.0,
}

const rainMultiplier = 1.3

type QuoteRequest struct {
	VehicleClass driver.VehicleClass `json:"vehicle_type"`
	ServiceClass string              `json:"service_type"`
	DistanceKm   float64             `json:"distance_km"`
	Raining      bool                `json:"is_raining"`
}

type Quote struct {
	Amount    int64            `json:"shipping_fee"`
	Currency  string           `json:"currency"`
	Breakdown map[string]int64 `json:"breakdown"`
}
