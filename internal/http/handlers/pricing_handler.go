// README: Pricing handler returns shipping fee quotes.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"routematch/internal/modules/pricing"
)

type Quoter interface {
	Quote(req pricing.QuoteRequest) (pricing.Quote, error)
}

type PricingHandler struct {
	pricing Quoter
}

func NewPricingHandler(svc Quoter) *PricingHandler {
	return &PricingHandler{pricing: svc}
}

func (h *PricingHandler) Quote(c *gin.Context) {
	var req pricing.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ServiceClass == "" {
		req.ServiceClass = "standard"
	}
	q, err := h.pricing.Quote(req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}
