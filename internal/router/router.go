package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aproko/clinic-api/internal/handler/admin"
	"github.com/aproko/clinic-api/internal/handler/appointment"
	"github.com/aproko/clinic-api/internal/handler/auth"
	"github.com/aproko/clinic-api/internal/handler/doctor"
	"github.com/aproko/clinic-api/internal/handler/health"
	"github.com/aproko/clinic-api/internal/handler/patient"
	"github.com/aproko/clinic-api/internal/middleware"
	"github.com/aproko/clinic-api/internal/model"
)

type Handlers struct {
	Health      *health.Handler
	Auth        *auth.Handler
	Patient     *patient.Handler
	Doctor      *doctor.Handler
	Appointment *appointment.Handler
	Admin       *admin.Handler
}

type Config struct {
	CORS              middleware.CORSConfig
	RequestTimeout    time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int
	DirectoryCacheTTL time.Duration
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	config   Config
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(authMw *middleware.AuthMiddleware, handlers Handlers, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     authMw,
		handlers: handlers,
		config:   config,
		metrics:  newRouterMetrics(),
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		r.metricsMiddleware(),
		middleware.Timeout(config.RequestTimeout),
		middleware.CORS(config.CORS),
	)

	rateLimiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	r.handlers.Health.RegisterRoutes(api)

	r.setupPublicRoutes(api)
	r.setupPatientRoutes(api)
	r.setupDoctorRoutes(api)
	r.setupAdminRoutes(api)
}

// setupPublicRoutes mounts signup, login, and the doctor directory. The
// directory listing sits behind a short-lived response cache since it is a
// hot read path that tolerates slightly stale data; availability is served
// off the uncached group so freed and taken slots show up immediately.
func (r *Router) setupPublicRoutes(rg *gin.RouterGroup) {
	r.handlers.Auth.RegisterRoutes(rg)

	cached := rg.Group("")
	cached.Use(middleware.NewResponseCache(r.config.DirectoryCacheTTL).Cache())
	r.handlers.Doctor.RegisterPublicRoutes(rg, cached)
}

func (r *Router) setupPatientRoutes(rg *gin.RouterGroup) {
	protected := rg.Group("")
	protected.Use(r.auth.Authenticate(), r.auth.RequireRole(model.RolePatient))

	r.handlers.Patient.RegisterRoutes(protected)
	r.handlers.Appointment.RegisterRoutes(protected)
}

func (r *Router) setupDoctorRoutes(rg *gin.RouterGroup) {
	portal := rg.Group("")
	portal.Use(r.auth.Authenticate(), r.auth.RequireRole(model.RoleDoctor))

	r.handlers.Doctor.RegisterPortalRoutes(portal)
}

func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	adminGroup := rg.Group("")
	adminGroup.Use(r.auth.Authenticate(), r.auth.RequireRole(model.RoleAdmin))

	r.handlers.Admin.RegisterRoutes(adminGroup)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func newRouterMetrics() *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "clinic_api_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_api_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
