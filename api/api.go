package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/citywheel/scooterfleet/booking"
	"github.com/citywheel/scooterfleet/coordinator"
	"github.com/citywheel/scooterfleet/customer"
	"github.com/citywheel/scooterfleet/internal/middleware"
	"github.com/citywheel/scooterfleet/internal/o11y"
	"github.com/citywheel/scooterfleet/scooter"
)

type API struct {
	r     *gin.Engine
	sc    *scooter.Repository
	bk    *booking.Repository
	cr    *customer.Repository
	coord *coordinator.Coordinator
}

type Config struct {
	Auth0Domain     string
	Audience        string
	MetricsUsername string
	MetricsPassword string
}

func New(sc *scooter.Repository, bk *booking.Repository, cr *customer.Repository,
	coord *coordinator.Coordinator, obs *o11y.Observability, cfg Config) (*API, error) {

	a := &API{
		r:     gin.New(),
		sc:    sc,
		bk:    bk,
		cr:    cr,
		coord: coord,
	}

	a.r.Use(gin.Recovery())
	a.r.Use(middleware.Tracing())
	a.r.Use(middleware.Logging(obs.Logger))
	a.r.Use(middleware.Metrics(obs.Registry))

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	metrics := a.r.Group("/metrics", gin.BasicAuth(gin.Accounts{
		cfg.MetricsUsername: cfg.MetricsPassword,
	}))
	metrics.GET("", gin.WrapH(promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{})))

	a.r.GET("/scooters", a.getScootersHandler)
	a.r.GET("/scooters/:id", a.getScooterHandler)

	checkJWT, err := middleware.EnsureValidToken(cfg.Auth0Domain, cfg.Audience)
	if err != nil {
		return nil, err
	}

	protected := a.r.Group("/", checkJWT)
	{
		protected.GET("/bookings", a.getBookingsHandler)
		protected.POST("/bookings", a.createBookingHandler)
		protected.POST("/bookings/:bookingId/activate", a.activateBookingHandler)
		protected.POST("/bookings/:bookingId/close", a.closeBookingHandler)

		protected.POST("/customers/session", a.createCustomerSessionHandler)

		protected.GET("/admin/maintenance", a.maintenanceListHandler)
		protected.POST("/admin/scooters/:id/fix", a.fixScooterHandler)
	}

	return a, nil
}

func (a *API) Router() *gin.Engine {
	return a.r
}
