// Package server exposes build exports over HTTP. Downloads are streamed as
// attachments with the same filenames the CLI writes to disk.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"easlog/src/logger"
	"easlog/src/pipeline"
)

// Server serves the download endpoints.
type Server struct {
	pipeline *pipeline.Pipeline
	logger   logger.Logger
	router   chi.Router
}

// New creates a server over p.
func New(p *pipeline.Pipeline) *Server {
	s := &Server{
		pipeline: p,
		logger:   p.Logger,
	}
	s.router = s.routes()
	return s
}

// routes configures the router.
//
//	/healthz                        - liveness
//	/metrics                        - Prometheus metrics
//	/builds/{id}/actions            - available downloads
//	/builds/{id}/logs               - aggregated log document
//	/builds/{id}/artifacts/{kind}   - logs, xcode or app
//	/builds/{id}/exports            - export history
//	/exports                        - queue an export for the agent (POST)
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.pipeline.Metrics.Handler())

	r.Route("/builds/{id}", func(r chi.Router) {
		r.Get("/actions", s.handleActions)
		r.Get("/logs", s.handleLogs)
		r.Get("/artifacts/{kind}", s.handleArtifact)
		r.Get("/exports", s.handleExports)
	})
	r.Post("/exports", s.handleSubmit)

	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[Server] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs each request once it completes.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Debug("[Server] %s %s %d %dB %s request_id=%s",
					r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(),
					time.Since(start).Round(time.Millisecond), middleware.GetReqID(r.Context()))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
