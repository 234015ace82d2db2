package staticfiles

import (
	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// DefaultIndexFile is served for directory requests unless index_file
// overrides it.
const DefaultIndexFile = "index.html"

// Conf is the static files module's configuration fragment.
type Conf struct {
	// Root is the directory to serve files from. Without it the module
	// ignores all requests.
	Root module.Opt[string] `yaml:"root"`

	// IndexFile is the file served for directory requests.
	IndexFile module.Opt[string] `yaml:"index_file"`

	// Page404 is a file below the root served as the body of 404
	// responses.
	Page404 module.Opt[string] `yaml:"page_404"`
}

// Keys implements module.Fragment.
func (c *Conf) Keys() []string {
	return []string{"root", "index_file", "page_404"}
}

// Merge implements module.Fragment.
func (c *Conf) Merge(override module.Fragment) error {
	o, err := module.SameShape[*Conf](override)
	if err != nil {
		return err
	}
	c.Root.Merge(o.Root)
	c.IndexFile.Merge(o.IndexFile)
	c.Page404.Merge(o.Page404)
	return nil
}
