package module

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

// Decision is a handler's verdict on a single request.
type Decision int

const (
	// Continue means the handler had no opinion; the request is passed to
	// the next handler in the pipeline.
	Continue Decision = iota

	// Handled means a complete response was produced; the pipeline stops
	// and no subsequent handler is invoked.
	Handled
)

// String returns the decision name for logs and metrics labels.
func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case Handled:
		return "handled"
	default:
		return "unknown"
	}
}

// Handler is the contract every module and every pipeline satisfies.
//
// Implementations own their configuration fragment type and their runtime
// state. Filter must be safe to call concurrently across independent
// requests; any mutable state shared across requests needs the handler's
// own synchronization. The composition layer provides no shared mutable
// state.
type Handler interface {
	// Name returns the module's stable name, used in error messages,
	// logs, and collision diagnostics.
	Name() string

	// NewConfig returns a fresh configuration fragment for this module
	// with every field unset. Defaults are resolved by the module itself
	// when it consumes the fragment, never baked into the fragment, so
	// that "explicitly set" stays distinguishable from "default".
	NewConfig() Fragment

	// Flags declares the module's command-line options. The declaration
	// has no side effects; registration and parsing happen elsewhere.
	Flags() []Flag

	// ApplyFlags overlays values parsed from the command line onto cfg.
	// Only flags the user actually supplied are applied; an omitted flag
	// leaves the corresponding field untouched.
	ApplyFlags(cfg Fragment, fs *pflag.FlagSet) error

	// Startup performs one-time initialization with the final merged
	// configuration fragment. It is called exactly once per process,
	// before the server accepts requests, and may perform I/O.
	Startup(ctx context.Context, cfg Fragment, env *Env) error

	// Filter is the per-request hook. It returns Handled after writing a
	// complete response to w, Continue to pass the request on, or an
	// error to fail the request. The decision is meaningful only when
	// the error is nil.
	Filter(w http.ResponseWriter, r *http.Request) (Decision, error)
}

// Env is the shared read-only startup context handed to every handler's
// Startup exactly once.
type Env struct {
	// Logger is the process logger. Handlers should derive a named
	// sub-logger, e.g. env.Logger.With("module", "rewrite").
	Logger *slog.Logger

	// ConfigDir is the directory of the primary configuration file.
	// Handlers resolve relative paths in their configuration against it.
	ConfigDir string

	// Metrics is the registry handlers register Prometheus collectors on.
	Metrics *prometheus.Registry
}

// NewEnv returns an Env with a usable logger and metrics registry, suitable
// for tests and for callers that have nothing better to supply.
func NewEnv() *Env {
	return &Env{
		Logger:  slog.Default(),
		Metrics: prometheus.NewRegistry(),
	}
}
