// Package server exposes the answer engine over HTTP (gin) and reports
// readiness through the standard gRPC health service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/metrics"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/pipeline"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/uiconfig"
)

// #region server
// Server owns the HTTP router and the gRPC health server.
type Server struct {
	config  Config
	engine  *pipeline.Engine
	ui      *uiconfig.Store
	metrics *metrics.Metrics
	router  *gin.Engine
	health  *healthServer
	log     *zap.Logger
}

// New builds the router. ui and m may be nil, which disables /config and
// /metrics respectively.
func New(config Config, engine *pipeline.Engine, ui *uiconfig.Store, m *metrics.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		config:  config,
		engine:  engine,
		ui:      ui,
		metrics: m,
		log:     log.Named("server"),
	}
	s.router = s.routes()
	if config.GRPCAddr != "" {
		s.health = newHealthServer(config.GRPCAddr, s.log)
	}
	return s
}

// Handler returns the HTTP handler, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.POST("/chat", s.chat)
	r.GET("/health", s.healthz)
	r.GET("/cache/clear", s.clearCache)
	if s.ui != nil {
		r.GET("/config", s.getConfig)
		r.GET("/config/reload", s.reloadConfig)
	}
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	return r
}

// accessLog writes one debug line per request; /chat already logs its
// verdict at info.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// #endregion server

// #region run
// Run serves until ctx ends or a listener fails, then shuts both servers
// down within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.config.HTTPAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	if s.health != nil {
		if err := s.health.start(errCh); err != nil {
			_ = httpSrv.Close()
			return err
		}
		s.health.setServing(true)
	}
	s.log.Info("serving",
		zap.String("http", s.config.HTTPAddr),
		zap.String("grpc", s.config.GRPCAddr),
		zap.String("mode", string(s.engine.Mode())),
	)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if s.health != nil {
		s.health.setServing(false)
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("http shutdown: %w", err))
	}
	if s.health != nil {
		if err := s.health.stop(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("grpc shutdown: %w", err))
		}
	}
	return runErr
}

// #endregion run
