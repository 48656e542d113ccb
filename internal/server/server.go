// Package server exposes the card renderer over HTTP.
//
// Routes:
//
//	GET /             plain-text usage hint
//	GET /favicon.ico  204, no body
//	GET /healthz      {"status":"ok","version":...}
//	GET /banner.png   probe the target, render, return PNG
//
// Per-request overrides (address, accent, icon, scale, size) are copied into
// an immutable [card.Request]; the configured defaults are never mutated.
package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tools.zach/dev/servercard/internal/card"
	"tools.zach/dev/servercard/internal/status"
)

// shutdownTimeout bounds how long in-flight requests may finish on stop.
const shutdownTimeout = 5 * time.Second

// Renderer draws a card. [*card.Renderer] satisfies it.
type Renderer interface {
	Render(snap status.Snapshot, req card.Request) (*image.RGBA, error)
}

// Defaults are the values used when a request does not override them.
type Defaults struct {
	Address    string
	Name       string
	Port       int // appended when Address has no port; 0 = none
	Width      int
	Height     int
	Multiplier float64
	Flags      card.Flags
	Location   *time.Location
}

// Options configure a [Server].
type Options struct {
	Renderer Renderer
	Prober   status.Prober
	Defaults Defaults
	// RequestTimeout bounds each request; zero disables the limit.
	RequestTimeout time.Duration
	// Version is reported by /healthz.
	Version string
	// Now stamps each card; nil means time.Now.
	Now func() time.Time
}

// Server is the banner HTTP surface.
type Server struct {
	opts   Options
	router chi.Router
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/", s.index)
	r.Get("/favicon.ico", s.favicon)
	r.Get("/healthz", s.health)
	r.Get("/banner.png", s.banner)

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. A clean shutdown returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("banner server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down banner server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
