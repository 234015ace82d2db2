package rewrite

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// Module applies rewrite rules to incoming requests.
type Module struct {
	rules []Rule
}

// New returns the rewrite module with no rules configured.
func New() *Module {
	return &Module{}
}

// Name implements module.Handler.
func (m *Module) Name() string {
	return "rewrite"
}

// NewConfig implements module.Handler.
func (m *Module) NewConfig() module.Fragment {
	return &Conf{}
}

// Flags implements module.Handler. Rewrite rules are file-only.
func (m *Module) Flags() []module.Flag {
	return nil
}

// ApplyFlags implements module.Handler.
func (m *Module) ApplyFlags(cfg module.Fragment, _ *pflag.FlagSet) error {
	_, err := module.SameShape[*Conf](cfg)
	return err
}

// Startup implements module.Handler. Rules are normalized and ordered by
// closeness so that Filter only has to take the first match.
func (m *Module) Startup(_ context.Context, cfg module.Fragment, _ *module.Env) error {
	c, err := module.SameShape[*Conf](cfg)
	if err != nil {
		return err
	}

	m.rules = append([]Rule(nil), c.Rules.Or(nil)...)
	for i := range m.rules {
		m.rules[i].normalize()
	}
	sort.SliceStable(m.rules, func(i, j int) bool {
		return m.rules[i].From.specificity() > m.rules[j].From.specificity()
	})
	return nil
}

// Filter implements module.Handler.
func (m *Module) Filter(w http.ResponseWriter, r *http.Request) (module.Decision, error) {
	for _, rule := range m.rules {
		tail, ok := rule.From.Match(r.URL.Path)
		if !ok {
			continue
		}
		if rule.FromRegex != nil && !rule.FromRegex.Matches(r.URL.Path) {
			continue
		}
		if rule.QueryRegex != nil && !rule.QueryRegex.Matches(r.URL.RawQuery) {
			continue
		}

		target := rule.To.Interpolate(func(name string) (string, bool) {
			switch {
			case name == "tail":
				// Only valid when matching a path prefix.
				return tail, rule.From.Prefix()
			case name == "query":
				return r.URL.RawQuery, true
			case name == "http_host":
				// net/http strips the Host header into r.Host.
				return r.Host, r.Host != ""
			case strings.HasPrefix(name, "http_"):
				value := r.Header.Get(strings.ReplaceAll(name[len("http_"):], "_", "-"))
				return value, value != ""
			default:
				return "", false
			}
		})

		switch rule.Type {
		case TypeRedirect:
			w.Header().Set("Location", target)
			w.WriteHeader(http.StatusTemporaryRedirect)
			return module.Handled, nil
		case TypePermanent:
			w.Header().Set("Location", target)
			w.WriteHeader(http.StatusPermanentRedirect)
			return module.Handled, nil
		default:
			path, query, _ := strings.Cut(target, "?")
			r.URL.Path = path
			r.URL.RawQuery = query
			return module.Continue, nil
		}
	}
	return module.Continue, nil
}
