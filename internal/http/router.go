// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hammamiayoub/vtc-new-sub000/internal/http/handlers"
	"github.com/hammamiayoub/vtc-new-sub000/internal/http/middleware"
	"github.com/hammamiayoub/vtc-new-sub000/internal/infra"
	"github.com/hammamiayoub/vtc-new-sub000/internal/metrics"
)

type RouterDeps struct {
	Quotes   *handlers.QuoteHandler
	Bookings *handlers.BookingHandler
	Drivers  *handlers.DriverHandler
	Devices  *handlers.DeviceHandler
	Verifier infra.TokenVerifier
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log), middleware.Metrics(deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	api.POST("/quotes", deps.Quotes.Quote)
	api.POST("/drivers/search", deps.Quotes.SearchDrivers)

	client := middleware.RequireRole(middleware.RoleClient, middleware.RoleAdmin)
	driver := middleware.RequireRole(middleware.RoleDriver)

	api.POST("/bookings", client, deps.Bookings.Create)
	api.GET("/bookings", deps.Bookings.List)
	api.GET("/bookings/:id", deps.Bookings.Get)
	api.GET("/bookings/:id/events", deps.Bookings.History)
	api.POST("/bookings/:id/accept", driver, deps.Bookings.Accept())
	api.POST("/bookings/:id/reject", driver, deps.Bookings.Reject())
	api.POST("/bookings/:id/complete", deps.Bookings.Complete())
	api.POST("/bookings/:id/cancel", deps.Bookings.Cancel())

	me := api.Group("/drivers/me", driver)
	me.POST("/availability", deps.Drivers.CreateSlot)
	me.GET("/availability", deps.Drivers.ListSlots)
	me.PATCH("/availability/:id", deps.Drivers.ToggleSlot)
	me.DELETE("/availability/:id", deps.Drivers.DeleteSlot)
	me.GET("/subscription", deps.Drivers.Subscription)

	api.POST("/devices", deps.Devices.Register)
	api.DELETE("/devices/:token", deps.Devices.Remove)

	return r
}
