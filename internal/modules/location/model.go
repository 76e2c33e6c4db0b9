// README: Driver location update command.
package location

import (
	"routematch/internal/modules/driver"
	"routematch/internal/types"
)

type DriverUpdate struct {
	DriverID     types.ID
	VehicleClass driver.VehicleClass
	Position     types.Point
	// FatigueIndex is optional; nil leaves the stored value untouched.
	FatigueIndex *float64
}

type UpdateResult struct {
	Cell     string `json:"cell"`
	PrevCell string `json:"prev_cell,omitempty"`
	Moved    bool   `json:"moved"`
}
