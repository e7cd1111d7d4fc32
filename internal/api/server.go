// Package api exposes platform configuration and task operations over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"taskbridge/internal/platform"
	"taskbridge/internal/settings"
)

// maxBodySize bounds request bodies read by handlers.
const maxBodySize = 64 << 10

// Server serves the HTTP API over a settings store and a platform factory.
type Server struct {
	store   settings.Store
	factory *platform.Factory
	logger  *log.Logger
}

// NewServer creates a server. A nil logger uses the logrus standard logger.
func NewServer(store settings.Store, factory *platform.Factory, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Server{store: store, factory: factory, logger: logger}
}

// Echo returns an Echo instance with middleware and all routes registered.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(s.logger))
	s.Register(e)
	return e
}

// Register wires up all API routes on the provided Echo instance.
func (s *Server) Register(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/platforms", s.listPlatforms)
	g.GET("/users/:user/platforms", s.userPlatforms)
	g.PUT("/users/:user/platforms/:platform", s.putSettings)
	g.DELETE("/users/:user/platforms/:platform", s.deleteSettings)
	g.PUT("/users/:user/active", s.putActive)
	g.POST("/users/:user/validate", s.validate)
	g.GET("/users/:user/tasks", s.listTasks)
	g.POST("/users/:user/tasks", s.createTask)
	g.PATCH("/users/:user/tasks/:id", s.updateTask)
	g.DELETE("/users/:user/tasks/:id", s.deleteTask)
	e.GET("/healthz", healthz)
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	e := s.Echo()
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(addr)
	}()
	s.logger.WithField("listen", addr).Info("api.start")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// requestLogger logs one line per request with its id and outcome.
func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			entry := logger.WithFields(log.Fields{
				"request_id":  c.Response().Header().Get(echo.HeaderXRequestID),
				"method":      c.Request().Method,
				"path":        c.Path(),
				"status":      c.Response().Status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			if c.Response().Status >= http.StatusInternalServerError {
				entry.Warn("api.request")
			} else {
				entry.Debug("api.request")
			}
			return nil
		}
	}
}
