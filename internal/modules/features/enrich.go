// README: Feature enrichment joins order context, one candidate and the cell demand into a scoring record.
package features

import (
	"routematch/internal/modules/retrieval"
	"routematch/internal/modules/scoring"
	"routematch/internal/types"
)

// OrderContext is the order-side half of a scoring record.
type OrderContext struct {
	OrderID      types.ID
	VehicleClass string
	ServiceClass string
	DistanceKm   float64
	ShippingFee  float64
	Raining      bool
	CODAmount    float64
	HourSin      float64
	HourCos      float64
}

type Options struct {
	// IncludePricePerKm adds fee/(distance+1e-8) for oracles trained with it.
	IncludePricePerKm bool
}

const pricePerKmEpsilon = 1e-8

// Enrich is pure: the same inputs always yield the same record. demand is
// read once per order and shared by all of its candidates.
func Enrich(o OrderContext, c retrieval.Candidate, demand float64, opts Options) scoring.Request {
	req := scoring.Request{
		DriverID:         string(c.DriverID),
		OrderID:          string(o.OrderID),
		DistanceKm:       o.DistanceKm,
		ShippingFee:      o.ShippingFee,
		VehicleClass:     o.VehicleClass,
		ServiceClass:     o.ServiceClass,
		CODAmount:        o.CODAmount,
		HourSin:          o.HourSin,
		HourCos:          o.HourCos,
		CellDemand60m:    demand,
		PickupDistanceKm: c.DistanceKm,
		FatigueIndex:     c.Driver.FatigueIndex,
		AcceptRate:       c.Driver.AcceptRate,
	}
	if o.Raining {
		req.Raining = 1
	}
	if opts.IncludePricePerKm {
		v := o.ShippingFee / (o.DistanceKm + pricePerKmEpsilon)
		req.PricePerKm = &v
	}
	return req
}

// EnrichAll builds the batch for one order in candidate order.
func EnrichAll(o OrderContext, cands []retrieval.Candidate, demand float64, opts Options) []scoring.Request {
	out := make([]scoring.Request, len(cands))
	for i, c := range cands {
		out[i] = Enrich(o, c, demand, opts)
	}
	return out
}
