package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"daybook/internal/auth"
	apperrors "daybook/internal/errors"
	"daybook/internal/events"
	"daybook/internal/holidays"
	"daybook/internal/metrics"
	"daybook/internal/storage"
)

// Options carries the collaborators and settings of the HTTP server.
type Options struct {
	Auth          *auth.Service
	Holidays      holidays.Provider
	Publisher     events.Publisher
	Metrics       *metrics.PromMetrics
	StaticDir     string
	SecureCookies bool
	CORSOrigin    string
}

// Server provides HTTP handlers for the daybook backend.
type Server struct {
	engine        *gin.Engine
	store         storage.Store
	auth          *auth.Service
	holidays      holidays.Provider
	publisher     events.Publisher
	metrics       *metrics.PromMetrics
	logger        *slog.Logger
	staticDir     string
	secureCookies bool
	corsOrigin    string
	now           func() time.Time
}

// New constructs the HTTP server with routes and middleware configured.
func New(store storage.Store, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Noop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewPromMetrics()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		engine:        router,
		store:         store,
		auth:          opts.Auth,
		holidays:      opts.Holidays,
		publisher:     opts.Publisher,
		metrics:       opts.Metrics,
		logger:        logger,
		staticDir:     opts.StaticDir,
		secureCookies: opts.SecureCookies,
		corsOrigin:    opts.CORSOrigin,
		now:           time.Now,
	}

	router.Use(srv.requestLogger(), srv.observe(), srv.cors())
	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	authGroup := s.engine.Group("/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/logout", s.handleLogout)
		authGroup.GET("/verify-token", s.requireAuth(), s.handleVerifyToken)
	}

	tasks := s.engine.Group("/tasks", s.requireAuth())
	{
		tasks.POST("", s.handleCreateTask)
		tasks.GET("", s.handleListTasks)
		tasks.GET("/search", s.handleListTasks)
		tasks.GET("/filter", s.handleFilterTasks)
		tasks.GET("/holidays", s.handleHolidays)
		tasks.POST("/reorder", s.handleReorder)
		tasks.GET("/:id", s.handleGetTask)
		tasks.PATCH("/:id", s.handleUpdateTask)
		tasks.DELETE("/:id", s.handleDeleteTask)
	}

	cal := s.engine.Group("/calendar", s.requireAuth())
	{
		cal.GET("/month", s.handleMonth)
		cal.GET("/week", s.handleWeek)
	}

	s.mountStatic()
}

// handleHealth reports readiness including the store connection.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.respondError(c, apperrors.NewDatabaseError("ping", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError logs the error and returns a JSON payload with its status.
func (s *Server) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if apperrors.ShouldLogError(err) {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	} else {
		s.logger.Debug("request rejected", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperrors.GetUserMessage(err), "code": apperrors.GetErrorCode(err)})
}

// respondSuccess writes payload, or only the status when payload is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// today returns the server's current day key.
func (s *Server) today() string {
	return s.now().Format("2006-01-02")
}
