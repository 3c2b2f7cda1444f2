package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options configures the HTTP API.
type Options struct {
	Addr           string
	AllowedOrigins []string
	Metrics        http.Handler
	Breaker        func() string
}

// NewRouter builds the gin engine with every API route.
func NewRouter(source SnapshotSource, opts Options, log *zap.SugaredLogger) *gin.Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	h := NewHandler(source, opts.Breaker)
	stream := NewStreamer(source, opts.AllowedOrigins, log)

	api := r.Group("/api")
	api.GET("/snapshot", h.GetSnapshot)
	api.GET("/prices", h.GetPrices)
	api.GET("/series", h.GetSeries)
	api.GET("/news", h.GetNews)
	api.GET("/stream", stream.Stream)

	r.GET("/health", h.GetHealth)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Server runs the API until its context is cancelled.
type Server struct {
	srv *http.Server
	log *zap.SugaredLogger
}

// New creates a Server listening on opts.Addr.
func New(source SnapshotSource, opts Options, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewRouter(source, opts, log),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Run listens and serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	s.log.Infow("http api listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("http api stopped")
	return nil
}
