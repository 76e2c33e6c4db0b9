// README: Pricing service computes shipping fee quotes.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"routematch/internal/modules/driver"
)

var ErrBadRequest = errors.New("bad pricing request")

type Service struct {
	rates map[driver.VehicleClass]Rate
}

func NewService(rates map[driver.VehicleClass]Rate) *Service {
	if rates == nil {
		rates = DefaultRates
	}
	return &Service{rates: rates}
}

// Quote prices one order: base fare plus distance, times the service class
// multiplier, times the rain surcharge. Fractions of a dong are dropped.
func (s *Service) Quote(req QuoteRequest) (Quote, error) {
	rate, ok := s.rates[req.VehicleClass]
	if !ok {
		return Quote{}, fmt.Errorf("%w: unknown vehicle class %q", ErrBadRequest, req.VehicleClass)
	}
	if req.DistanceKm <= 0 || math.IsNaN(req.DistanceKm) || math.IsInf(req.DistanceKm, 0) {
		return Quote{}, fmt.Errorf("%w: distance must be > 0", ErrBadRequest)
	}
	multiplier, ok := serviceMultipliers[req.ServiceClass]
	if !ok {
		return Quote{}, fmt.Errorf("%w: unknown service class %q", ErrBadRequest, req.ServiceClass)
	}

	distanceCharge := req.DistanceKm * float64(rate.PerKm)
	price := float64(rate.BaseFare) + distanceCharge
	breakdown := map[string]int64{
		"base_fare": rate.BaseFare,
		"distance":  int64(distanceCharge),
	}

	if multiplier != 1 {
		surcharge := price * (multiplier - 1)
		breakdown["service_surcharge"] = int64(surcharge)
		price += surcharge
	}
	if req.Raining {
		surcharge := price * (rainMultiplier - 1)
		breakdown["rain_surcharge"] = int64(surcharge)
		price += surcharge
	}

	return Quote{Amount: int64(price), Currency: Currency, Breakdown: breakdown}, nil
}
