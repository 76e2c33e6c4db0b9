// README: Candidate is the per-request join of one driver with one order's pickup.
package retrieval

import (
	"routematch/internal/modules/driver"
	"routematch/internal/types"
)

type Candidate struct {
	DriverID   types.ID
	DistanceKm float64
	Driver     driver.State
	// Probability is filled in after scoring.
	Probability float64
}
