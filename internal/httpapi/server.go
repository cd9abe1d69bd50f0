// Package httpapi is the bridge's HTTP front door: POST /chat streams a
// relay run to the caller as Server-Sent Events.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dusk-indust/a2abridge/internal/relay"
	"github.com/dusk-indust/a2abridge/internal/sse"
)

// Runner executes one relay run. *relay.Relay implements it.
type Runner interface {
	Run(ctx context.Context, q relay.Query, sink relay.Sink) error
}

// Config configures a Server.
type Config struct {
	Version     string
	Environment string

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server serves the chat API.
type Server struct {
	echo    *echo.Echo
	runner  Runner
	log     *zap.Logger
	version string
	env     string
}

// New creates a Server that runs chat requests through runner.
func New(runner Runner, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		echo:    echo.New(),
		runner:  runner,
		log:     logger.With(zap.String("component", "httpapi")),
		version: cfg.Version,
		env:     cfg.Environment,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				s.log.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.log.Info("request", fields...)
			return nil
		},
	}))

	e.POST("/chat", s.handleChat)
	e.GET("/health", s.handleHealth)
	if cfg.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr and serves until Shutdown. It returns nil after a
// graceful shutdown. Request contexts derive from ctx, so ending ctx stops
// every open chat stream and lets Shutdown drain promptly.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.echo.Server.BaseContext = func(net.Listener) context.Context { return ctx }
	s.log.Info("http server listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type chatRequest struct {
	UserInput string `json:"user_input"`
	ThreadID  string `json:"thread_id,omitempty"`
}

// handleChat validates the request, then streams the relay run.
// POST /chat
//
// Once the stream has started the status is committed to 200 and failures
// only appear as the terminal error event.
func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
	}
	if strings.TrimSpace(req.UserInput) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_input is required"})
	}

	// echo.Response always has a Flush method; check what it wraps.
	if _, ok := c.Response().Writer.(http.Flusher); !ok {
		s.log.Error("response writer cannot stream")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": sse.ErrNoFlusher.Error()})
	}
	sw, err := sse.NewWriter(c.Response())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	q := relay.EnsureThreadID(relay.Query{Text: req.UserInput, ThreadID: req.ThreadID})
	c.Response().Header().Set("X-Thread-ID", q.ThreadID)
	sw.Init()

	err = s.runner.Run(c.Request().Context(), q, relay.SinkFunc(func(ev relay.Event) error {
		return sw.WriteEvent(string(ev.Kind), ev.Data)
	}))
	if err != nil {
		s.log.Debug("chat stream ended early", zap.String("thread_id", q.ThreadID), zap.Error(err))
	}
	return nil
}

// handleHealth reports liveness.
// GET /health
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":      "healthy",
		"version":     s.version,
		"environment": s.env,
	})
}
