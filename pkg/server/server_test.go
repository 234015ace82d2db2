package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/pflag"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// pipelineFunc adapts a function to the handler contract for transport
// tests; only Filter is ever called by the server.
type pipelineFunc func(w http.ResponseWriter, r *http.Request) (module.Decision, error)

func (f pipelineFunc) Name() string               { return "test" }
func (f pipelineFunc) NewConfig() module.Fragment { return nil }
func (f pipelineFunc) Flags() []module.Flag       { return nil }
func (f pipelineFunc) ApplyFlags(module.Fragment, *pflag.FlagSet) error {
	return nil
}
func (f pipelineFunc) Startup(context.Context, module.Fragment, *module.Env) error { return nil }
func (f pipelineFunc) Filter(w http.ResponseWriter, r *http.Request) (module.Decision, error) {
	return f(w, r)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServer(pipeline module.Handler, metrics *Metrics) *Server {
	return New(Settings{ShutdownTimeout: DefaultShutdownTimeout}, pipeline, quietLogger(), metrics)
}

func TestHandler_UnhandledRequestIs404(t *testing.T) {
	srv := testServer(pipelineFunc(func(w http.ResponseWriter, r *http.Request) (module.Decision, error) {
		return module.Continue, nil
	}), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandler_HandledResponsePassesThrough(t *testing.T) {
	srv := testServer(pipelineFunc(func(w http.ResponseWriter, r *http.Request) (module.Decision, error) {
		w.WriteHeader(http.StatusNoContent)
		return module.Handled, nil
	}), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestHandler_RequestErrorCarriesStatus(t *testing.T) {
	srv := testServer(pipelineFunc(func(w http.ResponseWriter, r *http.Request) (module.Decision, error) {
		return module.Continue, module.NewRequestError(http.StatusForbidden, "not allowed")
	}), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if !strings.Contains(rec.Body.String(), "not allowed") {
		t.Errorf("body = %q, want the module's message", rec.Body.String())
	}
}

func TestHandler_PlainErrorIs500(t *testing.T) {
	srv := testServer(pipelineFunc(func(w http.ResponseWriter, r *http.Request) (module.Decision, error) {
		return module.Continue, errors.New("database exploded")
	}), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rec.Body.String(), "database exploded") {
		t.Error("internal error detail leaked to the client")
	}
}

func TestHandler_RecoversFromPanic(t *testing.T) {
	srv := testServer(pipelineFunc(func(w http.ResponseWriter, r *http.Request) (module.Decision, error) {
		panic("boom")
	}), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestHandler_RecordsMetricsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	srv := testServer(pipelineFunc(func(w http.ResponseWriter, r *http.Request) (module.Decision, error) {
		if r.URL.Path == "/ok" {
			w.WriteHeader(http.StatusOK)
			return module.Handled, nil
		}
		return module.Continue, nil
	}), metrics)

	handler := srv.Handler()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if got := testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("handled")); got != 1 {
		t.Errorf("handled count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("unhandled")); got != 2 {
		t.Errorf("unhandled count = %v, want 2", got)
	}
}
