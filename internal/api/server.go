package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mediguard-triage-server/internal/domain"
	"github.com/mediguard-triage-server/internal/middleware"
	"github.com/mediguard-triage-server/internal/service"
)

// maxBodyBytes bounds the raw panel payload
const maxBodyBytes = 64 * 1024

// Server exposes the triage engine over HTTP
type Server struct {
	config  *domain.Config
	engine  *service.Engine
	logger  *logrus.Logger
	router  *gin.Engine
	server  *http.Server
	limiter *middleware.RateLimiter
}

// NewServer creates the HTTP server and wires routes and middleware
func NewServer(cfg *domain.Config, engine *service.Engine, logger *logrus.Logger) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())

	limiter := middleware.NewRateLimiter(cfg.Server.RequestsPerSecond, cfg.Server.Burst)
	router.Use(limiter.Middleware())

	s := &Server{
		config:  cfg,
		engine:  engine,
		logger:  logger,
		router:  router,
		limiter: limiter,
	}
	s.setupRoutes()
	return s
}

// Start runs the server until the context is canceled, then shuts
// down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer s.limiter.Stop()
	return s.server.Shutdown(shutdownCtx)
}

// Close releases background resources without starting the server,
// for callers that only used the router
func (s *Server) Close() {
	s.limiter.Stop()
}

// Router exposes the gin engine for tests
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/triage", s.handleTriage)
		v1.GET("/catalog", s.handleCatalog)
		v1.GET("/template/:format", s.handleTemplate)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"cache":     s.engine.CacheStats(),
	})
}

// handleTriage accepts the raw lab panel text as the request body in
// any of the supported encodings
func (s *Server) handleTriage(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return
	}

	result, err := s.engine.Triage(c.Request.Context(), string(body))
	if err != nil {
		var parseErr *domain.ParseError
		if errors.As(err, &parseErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    parseErr.Error(),
				"encoding": parseErr.Encoding,
			})
			return
		}

		s.logger.WithError(err).WithField("request_id", c.GetString("request_id")).
			Error("Triage failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"biomarkers": s.engine.Catalog(),
	})
}

func (s *Server) handleTemplate(c *gin.Context) {
	format := c.Param("format")
	template, err := s.engine.Template(format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"format":   format,
		"template": template,
	})
}
