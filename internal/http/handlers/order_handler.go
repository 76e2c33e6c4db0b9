// README: Order handlers for dispatch submission and dispatch lookup.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"routematch/internal/http/middleware"
	"routematch/internal/modules/driver"
	"routematch/internal/modules/order"
	"routematch/internal/types"
)

type Dispatcher interface {
	Submit(ctx context.Context, o order.Order) (order.Result, error)
	Get(ctx context.Context, id types.ID) (order.Dispatch, error)
}

type OrderHandler struct {
	order Dispatcher
}

func NewOrderHandler(svc Dispatcher) *OrderHandler {
	return &OrderHandler{order: svc}
}

type submitOrderReq struct {
	OrderID     string  `json:"order_id"`
	UserID      string  `json:"user_id"`
	PickupLat   float64 `json:"pickup_lat"`
	PickupLng   float64 `json:"pickup_lon"`
	DistanceKm  float64 `json:"distance_km"`
	ShippingFee float64 `json:"shipping_fee"`
	VehicleType string  `json:"vehicle_type"`
	ServiceType string  `json:"service_type"`
	IsRaining   int     `json:"is_raining"`
	CODAmount   float64 `json:"cod_amount"`
	HourSin     float64 `json:"hour_sin"`
	HourCos     float64 `json:"hour_cos"`
}

func (r submitOrderReq) toOrder() order.Order {
	o := order.Order{
		ID:           types.ID(r.OrderID),
		UserID:       types.ID(r.UserID),
		Pickup:       types.Point{Lat: r.PickupLat, Lng: r.PickupLng},
		VehicleClass: driver.VehicleClass(r.VehicleType),
		ServiceClass: order.ServiceClass(r.ServiceType),
		DistanceKm:   r.DistanceKm,
		ShippingFee:  r.ShippingFee,
		Raining:      r.IsRaining != 0,
		CODAmount:    r.CODAmount,
		HourSin:      r.HourSin,
		HourCos:      r.HourCos,
	}
	if o.VehicleClass == "" {
		o.VehicleClass = driver.VehicleBike
	}
	if o.ServiceClass == "" {
		o.ServiceClass = order.ServiceStandard
	}
	return o
}

// Submit runs one dispatch and returns its result. Failed dispatches
// (no_drivers_nearby, all_drivers_busy) are still 200 responses.
func (h *OrderHandler) Submit(c *gin.Context) {
	var req submitOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.OrderID) {
		writeError(c, http.StatusBadRequest, "invalid order_id")
		return
	}
	if uid := middleware.CallerUID(c); uid != "" && req.UserID != "" && req.UserID != uid {
		writeError(c, http.StatusForbidden, "forbidden: user_id does not match authenticated user")
		return
	}
	res, err := h.order.Submit(c.Request.Context(), req.toOrder())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

type dispatchResp struct {
	OrderID      string   `json:"order_id"`
	Status       string   `json:"status"`
	Reason       string   `json:"reason,omitempty"`
	DriverID     string   `json:"driver_id,omitempty"`
	Probability  *float64 `json:"score,omitempty"`
	Cell         string   `json:"cell"`
	VehicleClass string   `json:"vehicle_type"`
	ServiceClass string   `json:"service_type"`
	Candidates   int      `json:"candidates"`
	Rank         int      `json:"rank"`
	Demand60m    float64  `json:"h3_demand_60m"`
	CreatedAt    string   `json:"created_at"`
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	d, err := h.order.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp := dispatchResp{
		OrderID:      string(d.OrderID),
		Status:       string(d.Status),
		Reason:       string(d.Reason),
		Probability:  d.Probability,
		Cell:         d.Cell,
		VehicleClass: string(d.VehicleClass),
		ServiceClass: string(d.ServiceClass),
		Candidates:   d.Candidates,
		Rank:         d.Rank,
		Demand60m:    d.Demand60m,
		CreatedAt:    d.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if d.DriverID != nil {
		resp.DriverID = string(*d.DriverID)
	}
	writeJSON(c, http.StatusOK, resp)
}
