// README: Base handler utilities (JSON helpers, error mapping, caller checks).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"routematch/internal/http/middleware"
	"routematch/internal/modules/driver"
	"routematch/internal/modules/location"
	"routematch/internal/modules/order"
	"routematch/internal/modules/pricing"
	"routematch/internal/modules/scoring"
)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// isValidID accepts the ids our clients generate: uuids and short slugs.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Status: "error", Message: msg})
}

// writeServiceError maps module errors to HTTP statuses in one place.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scoring.ErrUnavailable):
		writeError(c, http.StatusServiceUnavailable, "scoring_unavailable")
	case errors.Is(err, order.ErrBadRequest),
		errors.Is(err, location.ErrBadUpdate),
		errors.Is(err, driver.ErrInvalidStatus),
		errors.Is(err, pricing.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound), errors.Is(err, driver.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrDuplicate), errors.Is(err, driver.ErrMalformed):
		writeError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// authorizeDriver allows the request when auth is disabled, or when the
// caller is the driver named in the path.
func authorizeDriver(c *gin.Context, driverID string) bool {
	uid := middleware.CallerUID(c)
	if uid == "" {
		return true
	}
	if middleware.CallerRole(c) != "driver" {
		writeError(c, http.StatusForbidden, "forbidden: driver role required")
		return false
	}
	if uid != driverID {
		writeError(c, http.StatusForbidden, "forbidden: id does not match authenticated user")
		return false
	}
	return true
}
