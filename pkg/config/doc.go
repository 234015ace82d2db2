// Package config loads pipeline configuration from YAML files.
//
// A configuration file is a single flat mapping; each top-level key belongs
// to exactly one module of the pipeline the file is loaded for. Keys no
// module claims are an error. Multiple files may be loaded; later files are
// merged over earlier ones with the pipeline's own merge semantics, so a
// later file only overrides the keys it actually sets.
//
//	pipe, _ := module.New(server.NewModule(), rewrite.New())
//	cfg, err := config.LoadAll([]string{"base.yaml", "site.yaml"}, pipe)
//
// Watch reports on-disk modifications of a configuration file; the running
// server never reconfigures itself (configuration is immutable after
// startup), but commands like `pingora-server validate --watch` use it to
// re-check a file while it is being edited.
package config
