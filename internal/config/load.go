package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/getbuf/internal/foundation/errors"
)

// Load reads the configuration at path. When path is DefaultPath or empty and
// the file does not exist, defaults are returned. An explicitly named file
// that is missing is an InvalidConfig error.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultPath
	if path == "" {
		path = DefaultPath
	}

	loadEnvFiles(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInvalidConfig, "read configuration").
			WithContext("path", path).
			Build()
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInvalidConfig, fmt.Sprintf("configuration %s", path)).
			WithContext("path", path).
			Build()
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes, defaults and validates raw YAML after expanding ${VAR}
// references from the environment.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &cfg, nil
}
