// README: Ranked candidates and the committed match.
package matching

import (
	"routematch/internal/types"
)

type Ranked struct {
	DriverID    types.ID
	Probability float64
}

type Match struct {
	DriverID    types.ID
	Probability float64
	// Rank is the 0-based position of the driver in the sorted list.
	Rank int
	// Skipped counts higher-ranked drivers whose lock was already held.
	Skipped int
}
