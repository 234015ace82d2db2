// Package module provides the composition layer of the pingora-utils server.
//
// A handler module owns three things: a slice of the configuration (its
// Fragment), a set of command-line flags, and a piece of per-request logic
// (its Filter). Modules are authored independently and know nothing about
// their siblings; this package combines an ordered list of them into one
// Pipeline without hand-written glue for every combination.
//
// # Pipeline assembly
//
// New builds a Pipeline from handlers in a fixed order. Assembly is the
// validation point for the whole composition: every configuration key, flag
// name, and flag shorthand contributed by a handler is checked against all
// names contributed by earlier handlers, and a duplicate is a hard
// *BuildError. Silent shadowing would let two modules invisibly fight over
// one configuration key, so a collision is never a warning.
//
// A Pipeline implements Handler itself, so pipelines nest: composition is
// closed under the contract.
//
// # Configuration merging
//
// Fragments distinguish "explicitly set" from "default value" through the
// Opt type. Merging is right-biased on explicitly-set fields only, applied
// per constituent for a pipeline's union fragment so that each module's own
// merge semantics are preserved rather than flattened. The typical flow is:
//
//	pipe, err := module.New(server.NewModule(), rewrite.New(), ...)
//	cfg := pipe.NewConfig()
//	// decode one or more YAML files into fresh fragments, Merge each
//	// onto cfg, then overlay command-line values:
//	err = pipe.ApplyFlags(cfg, cmd.Flags())
//	err = pipe.Startup(ctx, cfg, env)
//
// # Request dispatch
//
// Pipeline.Filter invokes each handler in pipeline order. A handler returns
// Continue when it has no opinion, Handled when it produced a complete
// response, or an error; Handled and errors stop the walk immediately and
// later handlers never see the request. Exhausting the list yields Continue,
// which the transport collaborator turns into its default response
// (typically 404). The order handlers were given to New is part of the
// observable contract.
//
// Startup runs each handler's one-time initialization in the same order and
// fails fast. Handlers that already started are not rolled back; resources
// they acquired stay open until the process exits.
package module
