package module

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Flag describes one command-line option contributed by a handler. The
// declaration is static data; the process entry point owns registration and
// parsing, and the merged flag set is exposed to it as a single flat
// namespace.
type Flag struct {
	// Long is the flag name without leading dashes. Required.
	Long string

	// Short is an optional one-letter shorthand.
	Short string

	// Usage is the help text shown by the entry point.
	Usage string

	// Default carries the flag's type and initial value. Supported types
	// are bool, int, string, time.Duration, and []string.
	Default any
}

// register adds the flag to fs with its typed default.
func (f Flag) register(fs *pflag.FlagSet) error {
	switch v := f.Default.(type) {
	case bool:
		fs.BoolP(f.Long, f.Short, v, f.Usage)
	case int:
		fs.IntP(f.Long, f.Short, v, f.Usage)
	case string:
		fs.StringP(f.Long, f.Short, v, f.Usage)
	case time.Duration:
		fs.DurationP(f.Long, f.Short, v, f.Usage)
	case []string:
		fs.StringSliceP(f.Long, f.Short, v, f.Usage)
	default:
		return fmt.Errorf("flag --%s: unsupported default type %T", f.Long, f.Default)
	}
	return nil
}
