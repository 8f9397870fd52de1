package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"hotelier/internal/infra/config"
	"hotelier/internal/infra/obs"
)

type ReservationHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
	Transition(c *gin.Context)
	Cancel(c *gin.Context)
	AddPayment(c *gin.Context)
}

type ResourceHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	SetStatus(c *gin.Context)
	MarkReady(c *gin.Context)
	Summary(c *gin.Context)
}

type Handlers struct {
	Reservation ReservationHTTP
	Resource    ResourceHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "X-Guest-ID", "X-Staff-ID", "X-Role"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
			"Idempotency-Replayed",
		},
		MaxAge: 12 * time.Hour,
	}))
	router.Use(IdentityMiddleware())

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	if h.Reservation != nil {
		router.POST("/reservations", h.Reservation.Create)
		router.GET("/reservations", h.Reservation.List)
		router.GET("/reservations/:id", h.Reservation.Get)
		router.PATCH("/reservations/:id/status", h.Reservation.Transition)
		router.PATCH("/reservations/:id/cancel", h.Reservation.Cancel)
		router.POST("/reservations/:id/payments", h.Reservation.AddPayment)
	}
	if h.Resource != nil {
		router.GET("/resources/summary", h.Resource.Summary)
		router.POST("/resources", h.Resource.Create)
		router.GET("/resources", h.Resource.List)
		router.GET("/resources/:id", h.Resource.Get)
		router.PATCH("/resources/:id/status", h.Resource.SetStatus)
		router.PATCH("/resources/:id/ready", h.Resource.MarkReady)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

var (
	_ ReservationHTTP = ReservationHandler{}
	_ ResourceHTTP    = ResourceHandler{}
)
