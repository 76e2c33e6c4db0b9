// README: Outcome model: per-driver acceptance statistics after an offer resolves.
package outcome

import (
	"errors"

	"routematch/internal/modules/driver"
	"routematch/internal/types"
)

var ErrAlreadyResolved = errors.New("order outcome already recorded")

// Stats is the driver state written by one resolution.
type Stats struct {
	DriverID     types.ID      `json:"driver_id"`
	OrderID      types.ID      `json:"order_id"`
	Accepted     bool          `json:"accepted"`
	TotalOffers  int64         `json:"total_offers"`
	TotalAccepts int64         `json:"total_accepts"`
	AcceptRate   float64       `json:"accept_rate"`
	Status       driver.Status `json:"status"`
}

// SmoothedRate shrinks the raw acceptance ratio toward prior with weight c,
// so a driver with few offers stays near the population mean.
func SmoothedRate(accepts, offers int64, prior, c float64) float64 {
	return (float64(accepts) + prior*c) / (float64(offers) + c)
}
