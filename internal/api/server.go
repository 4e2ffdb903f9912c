// Package api exposes the daemon's HTTP surface: health, status, and
// prometheus metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/milesbot/milesbot/internal/history"
	"github.com/milesbot/milesbot/internal/logger"
	"github.com/milesbot/milesbot/internal/scheduler"
	"github.com/milesbot/milesbot/internal/seen"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	recentLimit       = 20
)

// Deps are the collaborators the endpoints report on.
type Deps struct {
	Seen      seen.Store
	History   history.Store
	Scheduler *scheduler.Scheduler
	Gatherer  prometheus.Gatherer
	Logger    logger.Interface
}

// Server is the status HTTP server.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     logger.Interface
	startedAt  time.Time
}

// New builds the server and its routes.
func New(address string, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		deps:      deps,
		logger:    deps.Logger.WithComponent("api"),
		startedAt: time.Now().UTC(),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", s.handleHealth)
	router.GET("/status", s.handleStatus)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		deps.Gatherer,
		promhttp.HandlerOpts{},
	)))

	s.httpServer = &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until the context is cancelled, then shuts down
// gracefully. It blocks.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"seen_store": s.deps.Seen.Name(),
		"plugins":    s.deps.Scheduler.PluginCount(),
		"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	recent, err := s.deps.History.Recent(c.Request.Context(), recentLimit)
	if err != nil {
		s.logger.Error("Failed to load recent promotions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	if recent == nil {
		recent = []history.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"watermarks": s.deps.Scheduler.Watermarks(),
		"recent":     recent,
	})
}
