package module

import (
	"gopkg.in/yaml.v3"
)

// Fragment is one handler's slice of the merged configuration.
//
// A fragment is mutable only while configuration files and command-line
// flags are being merged; after Startup it must be treated as immutable and
// is safe to read concurrently.
type Fragment interface {
	// Keys lists the top-level configuration keys the fragment owns, in
	// declaration order. Key ownership is what pipeline assembly checks
	// for collisions.
	Keys() []string

	// Merge overlays override onto the receiver in place. Fields the
	// override marks as explicitly set win; everything else keeps the
	// receiver's value. The override must have the same dynamic type as
	// the receiver; a mismatch is a programming error reported as
	// *ShapeError.
	Merge(override Fragment) error
}

// Opt is an optional configuration value. The zero value is unset.
//
// Unset is a distinct state rather than a comparison against T's zero
// value, so a merge never mistakes a meaningfully-zero value (port 0, empty
// list, false) for "not provided".
type Opt[T any] struct {
	value T
	set   bool
}

// Some returns an Opt holding v, marked as explicitly set.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, set: true}
}

// IsSet reports whether the value was explicitly provided.
func (o Opt[T]) IsSet() bool {
	return o.set
}

// Get returns the value and whether it was explicitly provided.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.set
}

// Or returns the value if set, otherwise fallback. This is how modules
// resolve defaults at the point of use.
func (o Opt[T]) Or(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

// Set stores v and marks the option as explicitly set.
func (o *Opt[T]) Set(v T) {
	o.value = v
	o.set = true
}

// Merge overlays override onto the receiver: if override is set it wins,
// otherwise the receiver is left untouched.
func (o *Opt[T]) Merge(override Opt[T]) {
	if override.set {
		*o = override
	}
}

// UnmarshalYAML decodes the node into the value and marks the option as
// set, so mere presence of a key in a configuration file counts as an
// explicit choice.
func (o *Opt[T]) UnmarshalYAML(node *yaml.Node) error {
	var v T
	if err := node.Decode(&v); err != nil {
		return err
	}
	o.Set(v)
	return nil
}
