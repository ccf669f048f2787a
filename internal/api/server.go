// Package api serves the task tree over HTTP as JSON.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dshills/tasktree/internal/provider"
)

// Server is the tasktree HTTP API.
type Server struct {
	provider *provider.Provider
	events   Subscriber
	router   *gin.Engine
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithEvents streams bus events to websocket clients of /api/events.
func WithEvents(sub Subscriber) Option {
	return func(s *Server) {
		s.events = sub
	}
}

// NewServer creates a server over p.
func NewServer(p *provider.Provider, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	// Task ids contain slashes, so clients path-escape them and routing
	// runs on the raw path.
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		provider: p,
		router:   router,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleListTasks)
		api.GET("/tasks/:id", s.handleGetTask)
		api.GET("/tree", s.handleTree)
		api.GET("/tags", s.handleListTags)
		api.GET("/quick", s.handleQuick)
		api.POST("/refresh", s.handleRefresh)
		api.PUT("/filter", s.handleSetFilter)
		api.DELETE("/filter", s.handleClearFilter)
		api.POST("/tags/:tag/tasks", s.handleAddToTag)
		api.DELETE("/tags/:tag/tasks/:id", s.handleRemoveFromTag)
		api.PUT("/tags/:tag/order", s.handleReorder)
		api.GET("/events", s.handleEvents)
	}

	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
