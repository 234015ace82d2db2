package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/pflag"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// Default values for the server configuration.
const (
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
)

// Conf is the server module's configuration fragment.
type Conf struct {
	// ListenAddress is the address and port to listen on, "host:port".
	// Default: "127.0.0.1:8080"
	ListenAddress module.Opt[string] `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout module.Opt[time.Duration] `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response.
	// Default: 30s
	WriteTimeout module.Opt[time.Duration] `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request on a
	// kept-alive connection.
	// Default: 120s
	IdleTimeout module.Opt[time.Duration] `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown; in-flight requests still
	// running afterwards are aborted.
	// Default: 30s
	ShutdownTimeout module.Opt[time.Duration] `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes module.Opt[int] `yaml:"max_header_bytes"`
}

// Keys implements module.Fragment.
func (c *Conf) Keys() []string {
	return []string{
		"listen_address",
		"read_timeout",
		"write_timeout",
		"idle_timeout",
		"shutdown_timeout",
		"max_header_bytes",
	}
}

// Merge implements module.Fragment.
func (c *Conf) Merge(override module.Fragment) error {
	o, err := module.SameShape[*Conf](override)
	if err != nil {
		return err
	}
	c.ListenAddress.Merge(o.ListenAddress)
	c.ReadTimeout.Merge(o.ReadTimeout)
	c.WriteTimeout.Merge(o.WriteTimeout)
	c.IdleTimeout.Merge(o.IdleTimeout)
	c.ShutdownTimeout.Merge(o.ShutdownTimeout)
	c.MaxHeaderBytes.Merge(o.MaxHeaderBytes)
	return nil
}

// Settings is the resolved server configuration, defaults applied.
type Settings struct {
	ListenAddress   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
}

// Module contributes the server's configuration and flags to a pipeline.
// It never handles requests itself; its filter always passes the request
// on.
type Module struct {
	settings Settings
}

// NewModule returns the server configuration module.
func NewModule() *Module {
	return &Module{}
}

// Name implements module.Handler.
func (m *Module) Name() string {
	return "server"
}

// NewConfig implements module.Handler.
func (m *Module) NewConfig() module.Fragment {
	return &Conf{}
}

// Flags implements module.Handler.
func (m *Module) Flags() []module.Flag {
	return []module.Flag{
		{Long: "listen", Short: "l", Usage: "listen address (host:port)", Default: ""},
	}
}

// ApplyFlags implements module.Handler.
func (m *Module) ApplyFlags(cfg module.Fragment, fs *pflag.FlagSet) error {
	c, err := module.SameShape[*Conf](cfg)
	if err != nil {
		return err
	}
	if fs.Changed("listen") {
		addr, err := fs.GetString("listen")
		if err != nil {
			return err
		}
		c.ListenAddress.Set(addr)
	}
	return nil
}

// Startup implements module.Handler. It resolves defaults and validates
// the listen address.
func (m *Module) Startup(_ context.Context, cfg module.Fragment, _ *module.Env) error {
	c, err := module.SameShape[*Conf](cfg)
	if err != nil {
		return err
	}

	m.settings = Settings{
		ListenAddress:   c.ListenAddress.Or(DefaultListenAddress),
		ReadTimeout:     c.ReadTimeout.Or(DefaultReadTimeout),
		WriteTimeout:    c.WriteTimeout.Or(DefaultWriteTimeout),
		IdleTimeout:     c.IdleTimeout.Or(DefaultIdleTimeout),
		ShutdownTimeout: c.ShutdownTimeout.Or(DefaultShutdownTimeout),
		MaxHeaderBytes:  c.MaxHeaderBytes.Or(DefaultMaxHeaderBytes),
	}

	if _, _, err := net.SplitHostPort(m.settings.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen_address %q: %w", m.settings.ListenAddress, err)
	}
	return nil
}

// Filter implements module.Handler.
func (m *Module) Filter(http.ResponseWriter, *http.Request) (module.Decision, error) {
	return module.Continue, nil
}

// Settings returns the resolved configuration. Valid after Startup.
func (m *Module) Settings() Settings {
	return m.settings
}
