package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"

	"walk-router/internal/database"
	"walk-router/internal/handlers"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "walkrouter_http_request_duration_seconds",
	Help:    "HTTP request latency by route and status",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	db         database.DataStore
	listener   net.Listener
	addr       string
}

// Config holds server configuration
type Config struct {
	Addr    string // e.g., "127.0.0.1:8080" or "127.0.0.1:0" for random port
	Handler *handlers.Handler
	// AllowedOrigins for CORS; empty allows localhost only
	AllowedOrigins []string
}

// New creates and initializes a new server (does not start it)
func New(cfg Config) (*Server, error) {
	if cfg.Handler == nil || cfg.Handler.DB == nil {
		return nil, fmt.Errorf("server needs a handler with a data store")
	}

	engine := newEngine(cfg)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		db:         cfg.Handler.DB,
		addr:       cfg.Addr,
	}, nil
}

func newEngine(cfg Config) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), loggingMiddleware(), cors.New(corsConfig(cfg.AllowedOrigins)))

	cfg.Handler.RegisterRoutes(engine.Group("/api/v1"))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return engine
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	if len(origins) > 0 {
		config.AllowOrigins = origins
		return config
	}
	config.AllowOriginFunc = func(origin string) bool {
		return strings.HasPrefix(origin, "http://localhost:") ||
			strings.HasPrefix(origin, "http://127.0.0.1:")
	}
	return config
}

// Handler exposes the HTTP handler, e.g. for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	slog.Info("[HTTP] starting server", "addr", actualAddr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("[HTTP] server error", "err", err)
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return s.db.Close()
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)
		requestDuration.WithLabelValues(c.Request.Method, route, fmt.Sprint(status)).Observe(duration.Seconds())
		slog.Info("[HTTP] request", "method", c.Request.Method, "path", c.Request.URL.Path,
			"status", status, "took", duration)
	}
}
