// Package server serves the built site for local development with live reload
// and a Prometheus endpoint.
package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/server/middleware"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// DestDir is the directory served at /.
	DestDir string
	Port    int
	// LiveReload enables /livereload, /livereload.js and script injection.
	LiveReload *LiveReloadHub
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server is the development HTTP server.
type Server struct {
	opts    Options
	handler http.Handler
}

// New builds the server routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{opts: opts}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	var site http.Handler = http.FileServer(http.Dir(s.opts.DestDir))
	if s.opts.LiveReload != nil {
		site = injectLiveReload(site)
		mux.Handle("/livereload", s.opts.LiveReload)
		mux.HandleFunc("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			_, _ = w.Write([]byte(LiveReloadScript))
		})
	}
	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics)
	}
	mux.Handle("/", site)

	chain := middleware.Chain(s.opts.Logger, errors.NewHTTPErrorAdapter(s.opts.Logger))
	return chain(middleware.NoCache(mux))
}

// ListenAndServe binds the port and serves until ctx is done, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + strconv.Itoa(s.opts.Port)
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.ServerError("listen").WithContext("addr", addr).WithCause(err).Build()
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.opts.Logger.Info("Serving site",
		slog.String("url", "http://localhost:"+strconv.Itoa(portOf(ln))+"/"),
		logfields.Path(s.opts.DestDir))

	select {
	case err := <-errCh:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.ServerError("serve").WithCause(err).Build()
		}
		return nil
	case <-ctx.Done():
	}

	// SSE streams would otherwise hold Shutdown open until the timeout.
	if s.opts.LiveReload != nil {
		s.opts.LiveReload.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.ServerError("shutdown").WithCause(err).Build()
	}
	s.opts.Logger.Info("Server stopped")
	return nil
}

func portOf(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
