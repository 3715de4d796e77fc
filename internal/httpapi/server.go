package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qrbadge/api/internal/auth"
	"qrbadge/api/internal/config"
	"qrbadge/api/internal/realtime"
	"qrbadge/api/internal/service"
	"qrbadge/api/internal/store"
)

// Deps are the collaborators the HTTP layer is built on. Publisher is an
// optional extra sink (Redis); the Hub always receives events.
type Deps struct {
	Store     store.Store
	Badges    *service.Badges
	Accesses  *service.Accesses
	Users     *service.Users
	Tokens    *auth.Tokens
	Hub       *realtime.Hub
	Publisher realtime.Publisher
	Logger    *slog.Logger
	Registry  *prometheus.Registry
}

type Server struct {
	cfg      config.Config
	store    store.Store
	badges   *service.Badges
	accesses *service.Accesses
	users    *service.Users
	tokens   *auth.Tokens
	hub      *realtime.Hub
	events   realtime.Publisher
	metrics  *metrics
	registry *prometheus.Registry
	log      *slog.Logger
	engine   *gin.Engine
}

func NewServer(cfg config.Config, d Deps) (*Server, error) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Hub == nil {
		d.Hub = realtime.NewHub()
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	m, err := newMetrics(d.Registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	events := realtime.Fanout{d.Hub}
	if d.Publisher != nil {
		events = append(events, d.Publisher)
	}

	s := &Server{
		cfg:      cfg,
		store:    d.Store,
		badges:   d.Badges,
		accesses: d.Accesses,
		users:    d.Users,
		tokens:   d.Tokens,
		hub:      d.Hub,
		events:   events,
		metrics:  m,
		registry: d.Registry,
		log:      d.Logger,
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = gin.New()

	corsCfg := corsConfig(cfg)
	if err := corsCfg.Validate(); err != nil {
		return nil, fmt.Errorf("cors config: %w", err)
	}

	s.engine.Use(
		s.recovery(),
		requestID(),
		s.requestLogger(),
		s.metrics.middleware(),
		cors.New(corsCfg),
	)
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route non trouvée"})
	})
	s.registerRoutes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func corsConfig(cfg config.Config) cors.Config {
	c := cors.DefaultConfig()
	if cfg.AllowAllOrigins() {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSOrigins
	}
	c.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	c.ExposeHeaders = []string{requestIDHeader}
	return c
}

func (s *Server) registerRoutes() {
	r := s.engine
	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	authed := s.requireAuth(false)

	badges := api.Group("/badges")
	{
		badges.POST("/validate", s.handleValidateBadge)
		badges.GET("/check/:qrCode", s.handleCheckBadge)

		badges.GET("", authed, s.handleListBadges)
		badges.POST("", authed, s.handleCreateBadge)
		badges.POST("/close-event", authed, s.handleCloseEvent)
		badges.GET("/:id", authed, s.handleGetBadge)
		badges.PUT("/:id", authed, s.handleUpdateBadge)
		badges.DELETE("/:id", authed, s.handleDeleteBadge)
	}

	users := api.Group("/users")
	{
		users.POST("/login", s.handleLogin)

		users.GET("", authed, s.handleListUsers)
		users.POST("", authed, s.handleCreateUser)
		users.GET("/:id", authed, s.handleGetUser)
		users.PUT("/:id", authed, s.handleUpdateUser)
		users.DELETE("/:id", authed, s.handleDeleteUser)
	}

	accesses := api.Group("/accesses", authed)
	{
		accesses.GET("", s.handleListAccesses)
		accesses.GET("/stats", s.handleAccessStats)
		accesses.GET("/badge/:badgeId", s.handleListBadgeAccesses)
		accesses.DELETE("/:id", s.handleDeleteAccess)
	}

	api.GET("/stream", s.requireAuth(true), s.handleStream)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "QR Badge API"})
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339Nano)}
	if s.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.log.Warn("health: store unreachable", "err", err)
			body["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}

const publishTimeout = 2 * time.Second

// publish hands an event to every sink. Failures are logged, never returned:
// the request that produced the event has already succeeded.
func (s *Server) publish(c *gin.Context, typ string, data any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, realtime.NewEvent(typ, data)); err != nil {
		s.log.Warn("publish event", "type", typ, "err", err, "request_id", c.GetString(ctxRequestID))
	}
}
