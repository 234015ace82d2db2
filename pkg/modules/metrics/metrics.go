// Package metrics is a pipeline module that exposes the Prometheus
// registry over HTTP. It stays inactive until metrics_path (or the
// --metrics-path flag) names the endpoint, typically /metrics.
package metrics

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// Conf is the metrics module's configuration fragment.
type Conf struct {
	// Path is the URL path the metrics are served on. Without it the
	// module ignores all requests.
	Path module.Opt[string] `yaml:"metrics_path"`
}

// Keys implements module.Fragment.
func (c *Conf) Keys() []string {
	return []string{"metrics_path"}
}

// Merge implements module.Fragment.
func (c *Conf) Merge(override module.Fragment) error {
	o, err := module.SameShape[*Conf](override)
	if err != nil {
		return err
	}
	c.Path.Merge(o.Path)
	return nil
}

// Module serves the metrics endpoint.
type Module struct {
	path    string
	handler http.Handler
}

// New returns the metrics module, inactive until a path is configured.
func New() *Module {
	return &Module{}
}

// Name implements module.Handler.
func (m *Module) Name() string {
	return "metrics"
}

// NewConfig implements module.Handler.
func (m *Module) NewConfig() module.Fragment {
	return &Conf{}
}

// Flags implements module.Handler.
func (m *Module) Flags() []module.Flag {
	return []module.Flag{
		{Long: "metrics-path", Usage: "URL path to serve Prometheus metrics on", Default: ""},
	}
}

// ApplyFlags implements module.Handler.
func (m *Module) ApplyFlags(cfg module.Fragment, fs *pflag.FlagSet) error {
	c, err := module.SameShape[*Conf](cfg)
	if err != nil {
		return err
	}
	if fs.Changed("metrics-path") {
		path, err := fs.GetString("metrics-path")
		if err != nil {
			return err
		}
		c.Path.Set(path)
	}
	return nil
}

// Startup implements module.Handler. The process collectors are registered
// here so that an unconfigured metrics endpoint costs nothing.
func (m *Module) Startup(_ context.Context, cfg module.Fragment, env *module.Env) error {
	c, err := module.SameShape[*Conf](cfg)
	if err != nil {
		return err
	}

	path := c.Path.Or("")
	if path == "" {
		m.path = ""
		return nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	env.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.path = path
	m.handler = promhttp.HandlerFor(env.Metrics, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	return nil
}

// Filter implements module.Handler.
func (m *Module) Filter(w http.ResponseWriter, r *http.Request) (module.Decision, error) {
	if m.path == "" || r.URL.Path != m.path {
		return module.Continue, nil
	}
	m.handler.ServeHTTP(w, r)
	return module.Handled, nil
}
