package staticfiles

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// Module serves static files from a configured root directory.
type Module struct {
	root    string
	index   string
	page404 string
}

// New returns the static files module, inactive until a root directory is
// configured.
func New() *Module {
	return &Module{}
}

// Name implements module.Handler.
func (m *Module) Name() string {
	return "staticfiles"
}

// NewConfig implements module.Handler.
func (m *Module) NewConfig() module.Fragment {
	return &Conf{}
}

// Flags implements module.Handler.
func (m *Module) Flags() []module.Flag {
	return []module.Flag{
		{Long: "root", Usage: "directory to serve static files from", Default: ""},
	}
}

// ApplyFlags implements module.Handler.
func (m *Module) ApplyFlags(cfg module.Fragment, fs *pflag.FlagSet) error {
	c, err := module.SameShape[*Conf](cfg)
	if err != nil {
		return err
	}
	if fs.Changed("root") {
		root, err := fs.GetString("root")
		if err != nil {
			return err
		}
		c.Root.Set(root)
	}
	return nil
}

// Startup implements module.Handler. A relative root is resolved against
// the configuration directory.
func (m *Module) Startup(_ context.Context, cfg module.Fragment, env *module.Env) error {
	c, err := module.SameShape[*Conf](cfg)
	if err != nil {
		return err
	}

	root := c.Root.Or("")
	if root == "" {
		m.root = ""
		return nil
	}
	if !filepath.IsAbs(root) && env.ConfigDir != "" {
		root = filepath.Join(env.ConfigDir, root)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root directory %q: %w", c.Root.Or(""), err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("checking root directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %q is not a directory", root)
	}

	m.root = root
	m.index = c.IndexFile.Or(DefaultIndexFile)
	m.page404 = c.Page404.Or("")
	return nil
}

// Filter implements module.Handler.
func (m *Module) Filter(w http.ResponseWriter, r *http.Request) (module.Decision, error) {
	if m.root == "" {
		return module.Continue, nil
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		return module.Handled, module.NewRequestError(http.StatusMethodNotAllowed,
			"405 Method Not Allowed")
	}

	upath := r.URL.Path
	if !strings.HasPrefix(upath, "/") {
		upath = "/" + upath
	}
	canonical := path.Clean(upath)
	if canonical != "/" && strings.HasSuffix(upath, "/") {
		canonical += "/"
	}
	if canonical != upath {
		m.redirect(w, r, canonical)
		return module.Handled, nil
	}

	full := filepath.Join(m.root, filepath.FromSlash(canonical))
	info, err := os.Stat(full)
	if err != nil {
		m.notFound(w, r)
		return module.Handled, nil
	}

	if info.IsDir() {
		if !strings.HasSuffix(canonical, "/") {
			m.redirect(w, r, canonical+"/")
			return module.Handled, nil
		}
		full = filepath.Join(full, m.index)
		if info, err = os.Stat(full); err != nil || info.IsDir() {
			m.notFound(w, r)
			return module.Handled, nil
		}
	}

	f, err := os.Open(full)
	if err != nil {
		return module.Handled, &module.RequestError{
			Status:  http.StatusInternalServerError,
			Message: "500 Internal Server Error",
			Err:     err,
		}
	}
	defer f.Close()
	http.ServeContent(w, r, filepath.Base(full), info.ModTime(), f)
	return module.Handled, nil
}

// redirect answers with the canonical location, preserving the query.
func (m *Module) redirect(w http.ResponseWriter, r *http.Request, location string) {
	target := (&url.URL{Path: location}).EscapedPath()
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusPermanentRedirect)
}

// notFound writes a 404, using the configured error page when there is one.
func (m *Module) notFound(w http.ResponseWriter, r *http.Request) {
	if m.page404 != "" {
		full := filepath.Join(m.root, filepath.FromSlash(path.Clean("/"+m.page404)))
		if f, err := os.Open(full); err == nil {
			defer f.Close()
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				io.Copy(w, f)
			}
			return
		}
	}
	http.NotFound(w, r)
}
