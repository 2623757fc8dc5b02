package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"busticket/internal/handler"
	"busticket/internal/middleware"
	internalRedis "busticket/internal/redis"
	"busticket/pkg/logger"
	"busticket/pkg/metrics"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	UserHandler    *handler.UserHandler
	BusHandler     *handler.BusHandler
	RouteHandler   *handler.RouteHandler
	BookingHandler *handler.BookingHandler

	IdempotencyStore internalRedis.IdempotencyStoreInterface // optional
	NewRelicApp      *newrelic.Application                   // optional
	Metrics          *metrics.Metrics                        // optional
	Gatherer         prometheus.Gatherer                     // serves /metrics when set
	AllowedOrigins   []string
	Logger           logger.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(deps.Logger))
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))
	router.Use(middleware.Metrics(deps.Metrics))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.Use(middleware.IdempotencyMiddleware(deps.IdempotencyStore, deps.Logger))
	{
		// User routes.
		users := v1.Group("/users")
		{
			users.POST("/register", deps.UserHandler.Register)
			users.GET("", deps.UserHandler.GetAll)
			users.GET("/:id", deps.UserHandler.GetUser)
		}

		// Bus routes.
		buses := v1.Group("/buses")
		{
			buses.POST("", deps.BusHandler.Register)
			buses.GET("", deps.BusHandler.GetAll)
			buses.GET("/pending", deps.BusHandler.GetPending)
			buses.GET("/status/:status", deps.BusHandler.GetByStatus)
			buses.GET("/owner/:ownerId", deps.BusHandler.GetByOwner)
			buses.GET("/check-registration/:reg", deps.BusHandler.CheckRegistration)
			buses.GET("/:id", deps.BusHandler.GetBus)
			buses.PUT("/:id/approve", deps.BusHandler.Approve)
			buses.PUT("/:id/reject", deps.BusHandler.Reject)
			buses.PUT("/:id/status", deps.BusHandler.UpdateStatus)
			buses.DELETE("/:id", deps.BusHandler.Delete)
		}

		// Route and assignment routes.
		routes := v1.Group("/routes")
		{
			routes.POST("", deps.RouteHandler.CreateRoute)
			routes.GET("", deps.RouteHandler.GetAll)
			routes.GET("/statistics", deps.RouteHandler.Statistics)
			routes.GET("/search", deps.RouteHandler.Search)
			routes.GET("/search/passenger", deps.RouteHandler.SearchForPassenger)
			routes.GET("/status/:status", deps.RouteHandler.GetByStatus)
			routes.DELETE("/assignments/:id", deps.RouteHandler.RemoveAssignment)
			routes.GET("/:id", deps.RouteHandler.GetRoute)
			routes.PUT("/:id", deps.RouteHandler.UpdateRoute)
			routes.DELETE("/:id", deps.RouteHandler.DeleteRoute)
			routes.POST("/:id/assign", deps.RouteHandler.AssignBus)
		}

		// Booking routes.
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", deps.BookingHandler.CreateBooking)
			bookings.GET("/available-seats", deps.BookingHandler.AvailableSeats)
			bookings.GET("/occupied-seats", deps.BookingHandler.OccupiedSeats)
			bookings.GET("/seat-status", deps.BookingHandler.SeatStatus)
			bookings.GET("/recent", deps.BookingHandler.GetRecent)
			bookings.POST("/seat-blocks", deps.BookingHandler.BlockSeats)
			bookings.DELETE("/seat-blocks", deps.BookingHandler.ReleaseSeats)
			bookings.GET("/user/:userId", deps.BookingHandler.GetByUser)
			bookings.GET("/route/:routeId", deps.BookingHandler.GetByRoute)
			bookings.GET("/bus/:busId", deps.BookingHandler.GetByBus)
			bookings.GET("/:id", deps.BookingHandler.GetBooking)
			bookings.PUT("/:id/cancel", deps.BookingHandler.CancelBooking)
			bookings.GET("/:id/ticket", deps.BookingHandler.DownloadTicket)
			bookings.DELETE("/:id", deps.BookingHandler.DeleteBooking)
		}
	}

	return router
}
