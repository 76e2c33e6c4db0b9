// README: Feature-weighted logistic acceptance formula shared by the local scorer and the response simulator.
package scoring

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights parameterise Logit. The local ranking scorer and the driver response
// simulator each carry their own set; they are not expected to agree.
type Weights struct {
	Bias float64 `yaml:"bias"`

	PickupCostPerKm float64 `yaml:"pickup_cost_per_km"`
	EarningsWeight  float64 `yaml:"earnings_weight"`
	FeeScale        float64 `yaml:"fee_scale"`

	CODScale         float64 `yaml:"cod_scale"`
	CODFrictionBike  float64 `yaml:"cod_friction_bike"`
	CODFrictionTruck float64 `yaml:"cod_friction_truck"`

	RainBikePenalty   float64 `yaml:"rain_bike_penalty"`
	PrioritizePenalty float64 `yaml:"prioritize_penalty"`
	StandardBonus     float64 `yaml:"standard_bonus"`

	FatigueThreshold       float64 `yaml:"fatigue_threshold"`
	LongTripKm             float64 `yaml:"long_trip_km"`
	FatigueLongTripPenalty float64 `yaml:"fatigue_long_trip_penalty"`

	// AcceptRateWeight scales (accept_rate - 0.5); DemandWeight scales log1p(demand).
	AcceptRateWeight float64 `yaml:"accept_rate_weight"`
	DemandWeight     float64 `yaml:"demand_weight"`
}

// DefaultResponseWeights reproduce the market simulation drivers were
// historically generated with.
func DefaultResponseWeights() Weights {
	return Weights{
		Bias:                   0.1,
		PickupCostPerKm:        0.4,
		EarningsWeight:         0.8,
		FeeScale:               20000,
		CODScale:               1_000_000,
		CODFrictionBike:        1.5,
		CODFrictionTruck:       0.5,
		RainBikePenalty:        2.0,
		PrioritizePenalty:      0.5,
		StandardBonus:          0.2,
		FatigueThreshold:       0.75,
		LongTripKm:             15,
		FatigueLongTripPenalty: 2.0,
	}
}

// DefaultRankingWeights are used by the in-process scorer when no oracle is
// deployed. They add the driver's history and local demand to the response model.
func DefaultRankingWeights() Weights {
	w := DefaultResponseWeights()
	w.Bias = 0
	w.AcceptRateWeight = 2.0
	w.DemandWeight = -0.1
	return w
}

// Logit is the unsquashed acceptance score of one record.
func Logit(r Request, w Weights) float64 {
	score := w.Bias
	score -= r.PickupDistanceKm * w.PickupCostPerKm
	if w.FeeScale > 0 {
		score += r.ShippingFee / w.FeeScale * w.EarningsWeight
	}
	if w.CODScale > 0 {
		friction := w.CODFrictionTruck
		if r.VehicleClass == "bike" {
			friction = w.CODFrictionBike
		}
		score -= r.CODAmount / w.CODScale * friction
	}
	if r.Raining == 1 && r.VehicleClass == "bike" {
		score -= w.RainBikePenalty
	}
	switch r.ServiceClass {
	case "prioritize":
		score -= w.PrioritizePenalty
	case "standard":
		score += w.StandardBonus
	}
	if r.FatigueIndex > w.FatigueThreshold && r.DistanceKm > w.LongTripKm {
		score -= w.FatigueLongTripPenalty
	}
	score += (r.AcceptRate - 0.5) * w.AcceptRateWeight
	score += math.Log1p(r.CellDemand60m) * w.DemandWeight
	return score
}

// Probability squashes Logit into (0,1).
func Probability(r Request, w Weights) float64 {
	return 1 / (1 + math.Exp(-Logit(r, w)))
}

// LoadWeights overlays the YAML file at path onto base; keys absent from the
// file keep their base value. An empty path returns base unchanged.
func LoadWeights(path string, base Weights) (Weights, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read weights %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &base); err != nil {
		return Weights{}, fmt.Errorf("parse weights %s: %w", path, err)
	}
	return base, nil
}
