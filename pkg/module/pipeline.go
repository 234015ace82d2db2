package module

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Pipeline is an ordered, fixed list of handlers exposing the same contract
// as a single handler. The handler list is closed once New returns; there
// is no way to add or remove handlers afterwards.
type Pipeline struct {
	handlers []Handler
}

// New builds a pipeline from handlers in the given order. The order is part
// of the observable contract: requests are always filtered and handlers
// always started in exactly this order.
//
// New validates the composition: no two handlers may claim the same
// configuration key, long flag name, flag shorthand, or module name. A
// duplicate is a *BuildError, never a silent override.
func New(handlers ...Handler) (*Pipeline, error) {
	seenModule := make(map[string]bool)
	seenKey := make(map[string]string)
	seenLong := make(map[string]string)
	seenShort := make(map[string]string)

	for _, h := range handlers {
		name := h.Name()
		if seenModule[name] {
			return nil, &BuildError{Kind: DuplicateModule, Name: name, First: name, Second: name}
		}
		seenModule[name] = true

		for _, key := range h.NewConfig().Keys() {
			if owner, dup := seenKey[key]; dup {
				return nil, &BuildError{Kind: ConfigKeyCollision, Name: key, First: owner, Second: name}
			}
			seenKey[key] = name
		}

		for _, f := range h.Flags() {
			if f.Long == "" {
				return nil, fmt.Errorf("module %q declares a flag without a long name", name)
			}
			if owner, dup := seenLong[f.Long]; dup {
				return nil, &BuildError{Kind: FlagCollision, Name: f.Long, First: owner, Second: name}
			}
			seenLong[f.Long] = name

			if f.Short != "" {
				if owner, dup := seenShort[f.Short]; dup {
					return nil, &BuildError{Kind: ShorthandCollision, Name: f.Short, First: owner, Second: name}
				}
				seenShort[f.Short] = name
			}
		}
	}

	return &Pipeline{handlers: handlers}, nil
}

// Handlers returns the pipeline's handlers in dispatch order.
func (p *Pipeline) Handlers() []Handler {
	return p.handlers
}

// RegisterFlags registers every handler's flags on fs with their typed
// defaults. New already rejected name collisions, so registration cannot
// clash.
func (p *Pipeline) RegisterFlags(fs *pflag.FlagSet) error {
	for _, h := range p.handlers {
		for _, f := range h.Flags() {
			if err := f.register(fs); err != nil {
				return fmt.Errorf("module %s: %w", h.Name(), err)
			}
		}
	}
	return nil
}

// Name implements Handler.
func (p *Pipeline) Name() string {
	return "pipeline"
}

// NewConfig implements Handler. The pipeline's fragment is the disjoint
// union of its constituents' fragments; each constituent keeps ownership of
// its own slice.
func (p *Pipeline) NewConfig() Fragment {
	u := &unionConf{
		parts:  make([]Fragment, 0, len(p.handlers)),
		owners: p.handlers,
		keys:   make(map[string]int),
	}
	for i, h := range p.handlers {
		frag := h.NewConfig()
		u.parts = append(u.parts, frag)
		for _, k := range frag.Keys() {
			u.keys[k] = i
		}
	}
	return u
}

// Flags implements Handler by concatenating constituent declarations in
// pipeline order.
func (p *Pipeline) Flags() []Flag {
	var flags []Flag
	for _, h := range p.handlers {
		flags = append(flags, h.Flags()...)
	}
	return flags
}

// ApplyFlags implements Handler by delegating each constituent's slice of
// the union fragment to that constituent.
func (p *Pipeline) ApplyFlags(cfg Fragment, fs *pflag.FlagSet) error {
	u, err := p.union(cfg)
	if err != nil {
		return err
	}
	for i, h := range p.handlers {
		if err := h.ApplyFlags(u.parts[i], fs); err != nil {
			return fmt.Errorf("module %s: %w", h.Name(), err)
		}
	}
	return nil
}

// Startup implements Handler. Each constituent is initialized in pipeline
// order with its own slice of the merged configuration; the first failure
// aborts the sequence. Constituents that already started are not rolled
// back, so resources they acquired stay open until the process exits.
func (p *Pipeline) Startup(ctx context.Context, cfg Fragment, env *Env) error {
	u, err := p.union(cfg)
	if err != nil {
		return err
	}
	for i, h := range p.handlers {
		if err := h.Startup(ctx, u.parts[i], env); err != nil {
			return fmt.Errorf("module %s: startup: %w", h.Name(), err)
		}
	}
	return nil
}

// Filter implements Handler. Handlers run strictly one after another for a
// given request; Handled and errors short-circuit, and a cancelled request
// context stops the walk before the next handler is invoked. Exhausting the
// list returns Continue, meaning no module handled the request.
func (p *Pipeline) Filter(w http.ResponseWriter, r *http.Request) (Decision, error) {
	for _, h := range p.handlers {
		if err := r.Context().Err(); err != nil {
			return Continue, err
		}
		decision, err := h.Filter(w, r)
		if err != nil {
			return Continue, err
		}
		if decision == Handled {
			return Handled, nil
		}
	}
	return Continue, nil
}

// union asserts that cfg is this pipeline's own union fragment.
func (p *Pipeline) union(cfg Fragment) (*unionConf, error) {
	u, err := SameShape[*unionConf](cfg)
	if err != nil {
		return nil, err
	}
	if len(u.parts) != len(p.handlers) {
		return nil, &ShapeError{
			Want: fmt.Sprintf("union of %d fragments", len(p.handlers)),
			Got:  fmt.Sprintf("union of %d fragments", len(u.parts)),
		}
	}
	return u, nil
}

// unionConf is the structural union of the constituent fragments of one
// pipeline, in pipeline order.
type unionConf struct {
	parts  []Fragment
	owners []Handler
	keys   map[string]int
}

// Keys implements Fragment by concatenating constituent keys in pipeline
// order.
func (u *unionConf) Keys() []string {
	var keys []string
	for _, part := range u.parts {
		keys = append(keys, part.Keys()...)
	}
	return keys
}

// Merge implements Fragment. It recurses per constituent rather than per
// field, so a module's own merge semantics apply to its slice of the
// configuration instead of being flattened away.
func (u *unionConf) Merge(override Fragment) error {
	o, err := SameShape[*unionConf](override)
	if err != nil {
		return err
	}
	if len(o.parts) != len(u.parts) {
		return &ShapeError{
			Want: fmt.Sprintf("union of %d fragments", len(u.parts)),
			Got:  fmt.Sprintf("union of %d fragments", len(o.parts)),
		}
	}
	for i, part := range u.parts {
		if err := part.Merge(o.parts[i]); err != nil {
			return fmt.Errorf("module %s: %w", u.owners[i].Name(), err)
		}
	}
	return nil
}

// UnmarshalYAML decodes a flat configuration document, routing each
// top-level key to the constituent that owns it. A key no constituent
// claims is an error rather than silently dropped.
func (u *unionConf) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("configuration must be a mapping (line %d)", node.Line)
	}

	// Split the document into one sub-mapping per owning module so each
	// fragment only ever sees its own keys.
	sub := make([]*yaml.Node, len(u.parts))
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		idx, ok := u.keys[key.Value]
		if !ok {
			return fmt.Errorf("unknown configuration key %q (line %d)", key.Value, key.Line)
		}
		if sub[idx] == nil {
			sub[idx] = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		}
		sub[idx].Content = append(sub[idx].Content, key, node.Content[i+1])
	}

	for i, part := range u.parts {
		if sub[i] == nil {
			continue
		}
		if err := sub[i].Decode(part); err != nil {
			return fmt.Errorf("module %s: %w", u.owners[i].Name(), err)
		}
	}
	return nil
}
