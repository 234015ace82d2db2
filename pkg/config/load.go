package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yonasBSD/pingora-utils/pkg/module"
)

// Load reads the YAML file at path and decodes it into cfg. Fields absent
// from the file are left untouched, so decoding into a fresh fragment marks
// exactly the fields the file sets.
func Load(path string, cfg module.Fragment) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	return nil
}

// LoadAll loads every file in paths in order and merges them into one
// configuration value for h, later files winning for the keys they set.
// An empty paths slice yields an all-unset fragment, leaving every module
// on its defaults.
func LoadAll(paths []string, h module.Handler) (module.Fragment, error) {
	cfg := h.NewConfig()
	for _, path := range paths {
		overlay := h.NewConfig()
		if err := Load(path, overlay); err != nil {
			return nil, err
		}
		if err := cfg.Merge(overlay); err != nil {
			return nil, fmt.Errorf("failed to merge configuration file %q: %w", path, err)
		}
	}
	return cfg, nil
}
