// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routematch/internal/http/handlers"
	"routematch/internal/http/middleware"
	"routematch/internal/infra"
)

type RouterDeps struct {
	Orders    handlers.Dispatcher
	Drivers   handlers.DriverService
	Locations handlers.LocationUpdater
	Pricing   handlers.Quoter
	// Verifier is optional; nil leaves the API unauthenticated.
	Verifier infra.TokenVerifier
	Log      *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/")
	api.Use(middleware.Auth(deps.Verifier))

	orderHandler := handlers.NewOrderHandler(deps.Orders)
	api.POST("/order/submit", orderHandler.Submit)
	api.GET("/api/orders/:id", orderHandler.Get)

	driverHandler := handlers.NewDriverHandler(deps.Drivers, deps.Locations)
	api.PUT("/api/drivers/:id/location", driverHandler.UpdateLocation)
	api.POST("/api/drivers/:id/availability", driverHandler.SetAvailability)
	api.GET("/api/drivers/:id", driverHandler.Get)

	pricingHandler := handlers.NewPricingHandler(deps.Pricing)
	api.POST("/api/pricing/quote", pricingHandler.Quote)

	return r
}
