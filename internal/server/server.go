// Package server exposes calendar layouts and dashboard stats over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agis/bookcal/internal/calendar"
	"github.com/agis/bookcal/internal/source"
)

type Config struct {
	Source    source.Source
	Settings  calendar.Settings
	Location  *time.Location
	WeekStart time.Weekday
	Logger    *zap.Logger
	Version   string
	// Timeout bounds each source call made while serving a request.
	Timeout time.Duration
	Now     func() time.Time
}

type Server struct {
	cfg    Config
	engine *gin.Engine
}

func New(cfg Config) *Server {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Settings == (calendar.Settings{}) {
		cfg.Settings = calendar.DefaultSettings()
	}

	engine := gin.New()
	engine.Use(requestLogger(cfg.Logger), gin.Recovery())
	s := &Server{cfg: cfg, engine: engine}

	engine.GET("/healthz", s.health)
	api := engine.Group("/api/v1")
	api.GET("/hours", s.hours)
	api.GET("/layout/day", s.dayLayout)
	api.GET("/layout/week", s.weekLayout)
	api.GET("/layout/month", s.monthLayout)
	api.GET("/stats", s.summary)
	api.GET("/stats/revenue", s.revenue)
	api.GET("/stats/weekdays", s.weekdays)
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.cfg.Logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}

func (s *Server) sourceContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), s.cfg.Timeout)
}
