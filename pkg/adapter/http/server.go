// Package http exposes the drive service over a JSON HTTP API.
//
// The adapter is a thin shell: handlers parse the request, call exactly
// one service operation, and translate the sentinel error onto a status
// code. No authorization or quota decision lives here. Actor identity
// comes from the X-User-ID header; session mechanics are out of scope,
// the header is trusted as-is behind the deployment's auth proxy.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drivevault/drivevault/internal/logger"
	"github.com/drivevault/drivevault/internal/ratelimiter"
	"github.com/drivevault/drivevault/pkg/access"
	"github.com/drivevault/drivevault/pkg/catalog"
	"github.com/drivevault/drivevault/pkg/drive"
	"github.com/drivevault/drivevault/pkg/metrics"
)

// Config contains the HTTP adapter configuration.
type Config struct {
	// Host is the listen address (default: 0.0.0.0).
	Host string `mapstructure:"host"`

	// Port is the listen port (default: 8080).
	Port int `mapstructure:"port"`

	// ShutdownTimeout bounds graceful shutdown (default: 10s).
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RateLimit is the sustained request rate per second across all
	// clients. 0 disables rate limiting.
	RateLimit uint `mapstructure:"rate_limit"`

	// RateBurst is the burst allowance on top of RateLimit. Defaults to
	// RateLimit when unset.
	RateBurst uint `mapstructure:"rate_burst"`
}

// Server serves the drive API.
type Server struct {
	service *drive.Service
	catalog catalog.Catalog
	config  Config
	http    *http.Server
}

// NewServer creates the HTTP server with all routes registered. Call
// Serve to start listening.
func NewServer(service *drive.Service, cat catalog.Catalog, config Config) *Server {
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		service: service,
		catalog: cat,
		config:  config,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst == 0 {
			burst = config.RateLimit
		}
		engine.Use(rateLimitMiddleware(ratelimiter.New(config.RateLimit, burst)))
	}
	s.registerRoutes(engine)

	s.http = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: engine,
	}

	return s
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	api := engine.Group("/api")
	{
		api.POST("/files", s.uploadFile)
		api.GET("/files", s.listFiles)
		api.GET("/files/:id", s.getFile)
		api.GET("/files/:id/download", s.downloadFile)
		api.DELETE("/files/:id", s.deleteFile)
		api.GET("/files/:id/versions", s.listVersions)
		api.POST("/files/:id/restore", s.restoreVersion)
		api.POST("/files/:id/shares", s.shareFile)
		api.POST("/files/:id/links", s.createPublicLink)
		api.DELETE("/shares/:id", s.revokeShare)
		api.GET("/files/:id/shares", s.listShares)

		api.POST("/folders", s.createFolder)
		api.GET("/folders", s.listFolders)
		api.GET("/folders/:id", s.getFolder)
		api.PATCH("/folders/:id", s.updateFolder)
		api.DELETE("/folders/:id", s.deleteFolder)

		api.GET("/usage", s.usage)
	}

	// Persisted retrieval URLs use the unprefixed form, so it stays
	// routable alongside the /api surface.
	engine.GET("/files/:id/download", s.downloadFile)

	engine.GET("/public/:token", s.publicDownload)
	engine.GET("/healthz", s.healthz)

	if metrics.IsEnabled() {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
			metrics.GetRegistry(),
			promhttp.HandlerOpts{},
		)))
	}
}

// Serve starts the listener and blocks until the context is cancelled or
// the listener fails. Cancellation triggers graceful shutdown bounded by
// ShutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("HTTP server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

// actorFrom derives the acting identity from the X-User-ID header. An
// empty header is an anonymous caller.
func actorFrom(c *gin.Context) access.Actor {
	return access.Actor{UserID: c.GetHeader("X-User-ID")}
}

// rateLimitMiddleware rejects requests above the configured rate with a
// 429 instead of queueing them.
func rateLimitMiddleware(limiter *ratelimiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{Error: errorDetail{
				Kind:    "rate_limited",
				Message: "too many requests",
			}})
			return
		}
		c.Next()
	}
}
