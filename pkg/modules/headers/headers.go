package headers

import (
	"context"
	"net/http"
	"sort"

	"github.com/spf13/pflag"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// Module sets custom response headers on matching requests.
type Module struct {
	rules []Rule
}

// New returns the headers module with no rules configured.
func New() *Module {
	return &Module{}
}

// Name implements module.Handler.
func (m *Module) Name() string {
	return "headers"
}

// NewConfig implements module.Handler.
func (m *Module) NewConfig() module.Fragment {
	return &Conf{}
}

// Flags implements module.Handler. Header rules are file-only.
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
	m.rules = append([]Rule(nil), c.CustomHeaders.Or(nil)...)
	return nil
}

// Filter implements module.Handler. Headers from all applicable rules are
// set on the response, closer matches overwriting looser ones, and the
// request is passed on.
func (m *Module) Filter(w http.ResponseWriter, r *http.Request) (module.Decision, error) {
	type applied struct {
		closeness int
		rule      *Rule
	}
	var matched []applied
	for i := range m.rules {
		if closeness, ok := m.rules[i].match(r.Host, r.URL.Path); ok {
			matched = append(matched, applied{closeness: closeness, rule: &m.rules[i]})
		}
	}

	// Loose matches first so that closer ones overwrite their headers.
	// Ties keep configuration order, later rules winning.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].closeness < matched[j].closeness
	})
	for _, entry := range matched {
		for name, value := range entry.rule.Headers {
			w.Header().Set(name, value)
		}
	}
	return module.Continue, nil
}
