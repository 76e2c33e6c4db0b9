// README: Driver handlers for location updates, availability and state lookup.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"routematch/internal/modules/driver"
	"routematch/internal/modules/location"
	"routematch/internal/types"
)

type DriverService interface {
	Get(ctx context.Context, id types.ID) (driver.State, error)
	SetAvailability(ctx context.Context, id types.ID, status driver.Status) error
}

type LocationUpdater interface {
	UpdateDriver(ctx context.Context, u location.DriverUpdate) (location.UpdateResult, error)
}

type DriverHandler struct {
	drivers   DriverService
	locations LocationUpdater
}

func NewDriverHandler(drivers DriverService, locations LocationUpdater) *DriverHandler {
	return &DriverHandler{drivers: drivers, locations: locations}
}

type updateLocationReq struct {
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lon"`
	VehicleType  string   `json:"vehicle_type"`
	FatigueIndex *float64 `json:"fatigue_index"`
}

func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	if !authorizeDriver(c, id) {
		return
	}
	var req updateLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.locations.UpdateDriver(c.Request.Context(), location.DriverUpdate{
		DriverID:     types.ID(id),
		VehicleClass: driver.VehicleClass(req.VehicleType),
		Position:     types.Point{Lat: req.Lat, Lng: req.Lng},
		FatigueIndex: req.FatigueIndex,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

type availabilityReq struct {
	Status string `json:"status"`
}

func (h *DriverHandler) SetAvailability(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	if !authorizeDriver(c, id) {
		return
	}
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.drivers.SetAvailability(c.Request.Context(), types.ID(id), driver.Status(req.Status)); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"driver_id": id, "status": req.Status})
}

func (h *DriverHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	st, err := h.drivers.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}
