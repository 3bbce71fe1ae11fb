package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpHandlers "github.com/preptrack/core/internal/adapters/http"
	"github.com/preptrack/core/internal/adapters/repository"
	"github.com/preptrack/core/internal/application/services"
	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/config"
	"github.com/preptrack/core/internal/infrastructure/docstore"
	"github.com/preptrack/core/internal/infrastructure/logger"
)

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	store  *docstore.Store
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, store *docstore.Store, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize repositories
	topicRepo := repository.NewTopicRepository(store)
	problemRepo := repository.NewProblemRepository(store)
	sessionRepo := repository.NewSessionRepository(store)

	// Initialize services
	topicService := services.NewTopicService(topicRepo, problemRepo, appLogger)
	problemService := services.NewProblemService(problemRepo, topicRepo, appLogger)
	sessionService := services.NewSessionService(sessionRepo, appLogger)
	progressService := services.NewProgressService(topicRepo, problemRepo, sessionRepo, appLogger)

	// Initialize handlers
	topicHandler := httpHandlers.NewTopicHandler(topicService, problemService, appLogger)
	problemHandler := httpHandlers.NewProblemHandler(problemService, appLogger)
	sessionHandler := httpHandlers.NewSessionHandler(sessionService, appLogger)
	progressHandler := httpHandlers.NewProgressHandler(progressService, appLogger)
	databaseHandler := httpHandlers.NewDatabaseHandler(store, appLogger)

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		store:  store,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(topicHandler, problemHandler, sessionHandler, progressHandler, databaseHandler)

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			id := ctx.RealIP()
			return id, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	}))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: "default-src 'self'",
	}))

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Timeout middleware
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(topicHandler *httpHandlers.TopicHandler, problemHandler *httpHandlers.ProblemHandler, sessionHandler *httpHandlers.SessionHandler, progressHandler *httpHandlers.ProgressHandler, databaseHandler *httpHandlers.DatabaseHandler) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Topic routes
	topicGroup := v1.Group("/topics")
	topicGroup.GET("", topicHandler.ListTopics)
	topicGroup.POST("", topicHandler.CreateTopic)
	topicGroup.GET("/:id", topicHandler.GetTopic)
	topicGroup.PUT("/:id", topicHandler.UpdateTopic)
	topicGroup.DELETE("/:id", topicHandler.DeleteTopic)
	topicGroup.GET("/:id/problems", topicHandler.GetTopicProblems)

	// Problem routes
	problemGroup := v1.Group("/problems")
	problemGroup.GET("", problemHandler.ListProblems)
	problemGroup.POST("", problemHandler.CreateProblem)
	problemGroup.POST("/recalculate-time", problemHandler.RecalculateTime)
	problemGroup.GET("/:id", problemHandler.GetProblem)
	problemGroup.PUT("/:id", problemHandler.UpdateProblem)
	problemGroup.DELETE("/:id", problemHandler.DeleteProblem)
	problemGroup.PUT("/:id/status", problemHandler.SetStatus)
	problemGroup.POST("/:id/notes", problemHandler.AddNote)
	problemGroup.POST("/:id/time", problemHandler.AddTime)
	problemGroup.POST("/:id/attempts", problemHandler.IncrementAttempts)

	// Session routes
	sessionGroup := v1.Group("/sessions")
	sessionGroup.GET("", sessionHandler.ListSessions)
	sessionGroup.POST("", sessionHandler.LogSession)
	sessionGroup.GET("/active", sessionHandler.GetActiveSession)
	sessionGroup.POST("/start", sessionHandler.StartSession)
	sessionGroup.POST("/stop", sessionHandler.StopSession)
	sessionGroup.GET("/:id", sessionHandler.GetSession)
	sessionGroup.DELETE("/:id", sessionHandler.DeleteSession)

	// Progress and analytics routes
	v1.GET("/progress", progressHandler.GetProgress)
	v1.GET("/progress/topics", progressHandler.GetTopicStats)
	v1.GET("/progress/difficulty", progressHandler.GetDifficultyStats)
	v1.GET("/analytics/weekly", progressHandler.GetWeeklyProgress)
	v1.GET("/analytics/time-distribution", progressHandler.GetTimeDistribution)
	v1.GET("/analytics/attempts", progressHandler.GetAttemptsDistribution)
	v1.GET("/analytics/productivity", progressHandler.GetProductivityInsights)
	v1.GET("/analytics/recommendations", progressHandler.GetRecommendations)

	// Rotation routes
	v1.GET("/rotation/next", problemHandler.NextRotationProblem)
	v1.POST("/rotation/:id/complete", problemHandler.MarkRotationReviewed)
	v1.GET("/rotation/stats", progressHandler.GetRotationStats)

	// Database routes
	v1.GET("/database/path", databaseHandler.GetPath)
	v1.POST("/database/switch", databaseHandler.Switch)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	documentSaves := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "document_saves_total",
			Help: "Total number of document writes",
		},
	)

	registry.MustRegister(requestsTotal, requestDuration, documentSaves)

	// Custom metrics middleware
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			// Mutating requests write the document on success.
			switch c.Request().Method {
			case echo.POST, echo.PUT, echo.PATCH, echo.DELETE:
				if err == nil && status < 400 {
					documentSaves.Inc()
				}
			}

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	// Document store health check
	if err := s.store.HealthCheck(); err != nil {
		status = "error"
		checks["storage"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["storage"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.store.Info(),
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  "1.21",
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	// Check if server is ready to accept requests
	if err := s.store.HealthCheck(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "storage_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Info("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		var he *echo.HTTPError
		var ve validator.ValidationErrors
		switch {
		case errors.As(err, &he):
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		case errors.As(err, &ve):
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": ve.Error()}
		default:
			code = statusForDomainError(err)
			msg = map[string]string{"message": err.Error()}
		}

		if code == http.StatusInternalServerError {
			logger.Error("Internal server error", "error", err, "path", c.Request().URL.Path)
			msg = map[string]string{"message": http.StatusText(code)}
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Error("Error sending response", "error", err)
			}
		}
	}
}

// statusForDomainError maps domain errors onto HTTP status codes.
func statusForDomainError(err error) int {
	switch {
	case errors.Is(err, entities.ErrTopicNotFound),
		errors.Is(err, entities.ErrProblemNotFound),
		errors.Is(err, entities.ErrSessionNotFound),
		errors.Is(err, entities.ErrNoActiveSession):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrTopicNameTaken),
		errors.Is(err, entities.ErrProblemTitleTaken),
		errors.Is(err, entities.ErrSessionActive):
		return http.StatusConflict
	case errors.Is(err, entities.ErrInvalidDifficulty),
		errors.Is(err, entities.ErrInvalidStatus),
		errors.Is(err, entities.ErrNegativeDuration):
		return http.StatusBadRequest
	case errors.Is(err, docstore.ErrCorrupt):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
