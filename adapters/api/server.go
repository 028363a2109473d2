// Package api exposes check suites over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"dqengine/adapters/excel"
	"dqengine/app"
	"dqengine/internal"
	"dqengine/internal/suite"
	"dqengine/ports"
)

// Server serves suite checks. Suites are compiled per request so engines are
// never shared between concurrent checks.
type Server struct {
	router  *gin.Engine
	config  ServerConfig
	service *app.QualityService
	reader  *excel.DataReader
	compile suite.CompileOptions
	logger  ports.Logger

	mu     sync.RWMutex
	suites map[string]*suite.Suite

	httpServer *http.Server
}

// NewServer creates a server over the given suites
func NewServer(cfg ServerConfig, service *app.QualityService, suites map[string]*suite.Suite, compile suite.CompileOptions, logger ports.Logger) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	if suites == nil {
		suites = map[string]*suite.Suite{}
	}

	s := &Server{
		router:  gin.New(),
		config:  cfg,
		service: service,
		reader:  excel.NewDataReader(excel.DefaultReaderConfig(), logger),
		compile: compile,
		logger:  internal.Component(logger, "api"),
		suites:  suites,
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler { return s.router }

// SetSuites replaces the served suites
func (s *Server) SetSuites(suites map[string]*suite.Suite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suites = suites
}

func (s *Server) suite(name string) (*suite.Suite, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.suites[name]
	return st, ok
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api/v1")
	api.GET("/suites", s.handleListSuites)
	api.GET("/suites/:name", s.handleGetSuite)
	api.POST("/suites/:name/check", s.handleCheck)
	api.GET("/tables/:table/history", s.handleHistory)
}

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting data quality API on %s", s.config.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down data quality API")
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
