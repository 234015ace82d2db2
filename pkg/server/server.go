package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// Server is the HTTP transport running a module pipeline.
type Server struct {
	settings     Settings
	pipeline     module.Handler
	logger       *slog.Logger
	metrics      *Metrics
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server that dispatches every request through pipeline.
// metrics may be nil when the transport should not record observations.
func New(settings Settings, pipeline module.Handler, logger *slog.Logger, metrics *Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		settings:     settings,
		pipeline:     pipeline,
		logger:       logger,
		metrics:      metrics,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.settings.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.settings.ReadTimeout,
		WriteTimeout:   s.settings.WriteTimeout,
		IdleTimeout:    s.settings.IdleTimeout,
		MaxHeaderBytes: s.settings.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", s.settings.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.mu.Unlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.settings.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.settings.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// Stop requests shutdown from another goroutine.
func (s *Server) Stop() {
	select {
	case s.shutdownChan <- struct{}{}:
	default:
	}
}

// IsRunning returns true while the server is accepting requests.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the http.Handler wrapping the pipeline: panic recovery,
// outcome mapping, access logging, and metrics.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)
		outcome := "handled"

		defer func() {
			if rec := recover(); rec != nil {
				outcome = "panic"
				s.logger.ErrorContext(r.Context(), "panic in pipeline",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				s.writeError(rw, http.StatusInternalServerError, "internal server error")
			}
			if s.metrics != nil {
				s.metrics.observe(outcome, time.Since(start))
			}
			s.logger.InfoContext(r.Context(), "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"outcome", outcome,
				"latency_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			)
		}()

		decision, err := s.pipeline.Filter(rw, r)
		switch {
		case err != nil:
			outcome = "error"
			status := http.StatusInternalServerError
			message := "internal server error"

			var reqErr *module.RequestError
			if errors.As(err, &reqErr) {
				status = reqErr.Status
				message = reqErr.Message
				if message == "" {
					message = http.StatusText(status)
				}
			}

			s.logger.ErrorContext(r.Context(), "request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"error", err,
			)
			s.writeError(rw, status, message)

		case decision == module.Continue:
			// No module had an opinion.
			outcome = "unhandled"
			s.writeError(rw, http.StatusNotFound, "404 page not found")
		}
	})
}

// writeError answers with a plain-text error unless a module already
// started the response, in which case the wire is left alone.
func (s *Server) writeError(rw *responseWriter, status int, message string) {
	if rw.written {
		return
	}
	http.Error(rw, message, status)
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// whether anything was written.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader captures the status code before writing.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called if not already done.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
