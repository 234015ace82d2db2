// Package requestid is a pipeline module that tags every request with a
// unique identifier. The identifier is taken from the incoming request
// header when the client supplied one, generated otherwise, and echoed in
// the response so that clients and logs can be correlated.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// DefaultHeader carries the identifier unless request_id_header overrides
// it.
const DefaultHeader = "X-Request-ID"

// Conf is the request ID module's configuration fragment.
type Conf struct {
	// Header is the name of the request and response header carrying the
	// identifier.
	Header module.Opt[string] `yaml:"request_id_header"`
}

// Keys implements module.Fragment.
func (c *Conf) Keys() []string {
	return []string{"request_id_header"}
}

// Merge implements module.Fragment.
func (c *Conf) Merge(override module.Fragment) error {
	o, err := module.SameShape[*Conf](override)
	if err != nil {
		return err
	}
	c.Header.Merge(o.Header)
	return nil
}

// Module assigns request identifiers.
type Module struct {
	header string
}

// New returns the request ID module.
func New() *Module {
	return &Module{}
}

// Name implements module.Handler.
func (m *Module) Name() string {
	return "requestid"
}

// NewConfig implements module.Handler.
func (m *Module) NewConfig() module.Fragment {
	return &Conf{}
}

// Flags implements module.Handler.
func (m *Module) Flags() []module.Flag {
	return nil
}

// ApplyFlags implements module.Handler.
func (m *Module) ApplyFlags(cfg module.Fragment, _ *pflag.FlagSet) error {
	_, err := module.SameShape[*Conf](cfg)
	return err
}

// Startup implements module.Handler.
func (m *Module) Startup(_ context.Context, cfg module.Fragment, _ *module.Env) error {
	c, err := module.SameShape[*Conf](cfg)
	if err != nil {
		return err
	}
	m.header = c.Header.Or(DefaultHeader)
	return nil
}

// Filter implements module.Handler. The identifier is written back onto
// the request so that later pipeline modules see it too.
func (m *Module) Filter(w http.ResponseWriter, r *http.Request) (module.Decision, error) {
	id := r.Header.Get(m.header)
	if id == "" {
		id = uuid.NewString()
		r.Header.Set(m.header, id)
	}
	w.Header().Set(m.header, id)
	return module.Continue, nil
}
