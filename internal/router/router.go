package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/intake-api/internal/handler"
	"github.com/jwalitptl/intake-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	RequestTimeout time.Duration
	RateLimit      middleware.RateLimiterConfig
}

type Router struct {
	engine     *gin.Engine
	auth       *middleware.AuthMiddleware
	authH      Handler
	interviewH Handler
	reportH    Handler
	reviewH    Handler
	h          *handler.Handler
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH Handler,
	interviewH Handler,
	reportH Handler,
	reviewH Handler,
	h *handler.Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
	)

	rateLimiter := middleware.NewRateLimiter(config.RateLimit)
	engine.Use(rateLimiter.RateLimit())

	return &Router{
		engine:     engine,
		auth:       auth,
		authH:      authH,
		interviewH: interviewH,
		reportH:    reportH,
		reviewH:    reviewH,
		h:          h,
	}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)

	// Public routes: patient-facing interview endpoints and reviewer login.
	r.authH.RegisterRoutes(api)
	r.interviewH.RegisterRoutes(api)
	r.reportH.RegisterRoutes(api)

	// Review endpoints require an authenticated reviewer.
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.reviewH.RegisterRoutes(protected)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
