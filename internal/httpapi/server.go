// Package httpapi exposes the compile pipeline over HTTP.
//
//	POST /compilar          multipart "archivo" -> JSON bundle
//	POST /ver               multipart "archivo" -> HTML result page
//	GET  /                  upload form
//	GET  /descargar-manual  user manual download
//	GET  /compilaciones     recent compilations (?limite=N)
//	GET  /metrics           Prometheus exposition
//	GET  /healthz           liveness
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"stcgate/internal/compile"
	"stcgate/internal/config"
	"stcgate/internal/journal"
	"stcgate/internal/logging"
	"stcgate/internal/metrics"
	"stcgate/internal/render"
)

const (
	uploadField     = "archivo"
	shutdownTimeout = 10 * time.Second
)

// Server routes requests to the compile Service.
type Server struct {
	cfg     config.Config
	svc     *compile.Service
	journal journal.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns a Server. journal and metrics may be nil; their routes then
// answer 404.
func New(cfg config.Config, svc *compile.Service, j journal.Store, m *metrics.Metrics) *Server {
	return &Server{cfg: cfg, svc: svc, journal: j, metrics: m, logger: logging.New("http")}
}

// Handler returns the routed handler with CORS and access logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /compilar", s.handleCompile)
	mux.HandleFunc("POST /ver", s.handleView)
	mux.HandleFunc("GET /{$}", s.handleForm)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(render.Static())))
	mux.HandleFunc("GET /descargar-manual", s.handleManual)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.journal != nil {
		mux.HandleFunc("GET /compilaciones", s.handleHistory)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return withCORS(s.withAccessLog(mux))
}

// ListenAndServe serves on cfg.Listen until ctx is done, then shuts down
// gracefully and waits for pending cleanups.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "address", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown failed", "error", err)
		return err
	}
	if err := s.svc.Wait(shutdownCtx); err != nil {
		s.logger.Warn("pending cleanups abandoned", "error", err)
	}
	s.logger.Debug("server shut down gracefully")
	return nil
}
