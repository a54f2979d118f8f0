// Package userconfig reads the optional egua.yaml file that overrides
// environment configuration per project (useful when switching between
// a local backend and production).
package userconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const fileName = "egua.yaml"

// UserConfig mirrors the overridable subset of the environment
// configuration.
type UserConfig struct {
	APIURL      string `yaml:"api_url,omitempty"`
	AuthURL     string `yaml:"auth_url,omitempty"`
	AuthAnonKey string `yaml:"auth_anon_key,omitempty"`
	Bucket      string `yaml:"bucket,omitempty"`
}

// Load reads egua.yaml from the current directory. A missing file is
// an empty config, not an error.
func Load() (*UserConfig, error) {
	return LoadFrom(".")
}

// LoadFrom reads egua.yaml from dir.
func LoadFrom(dir string) (*UserConfig, error) {
	path := filepath.Join(dir, fileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &UserConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", fileName, err)
	}

	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fileName, err)
	}
	return &cfg, nil
}

// Save writes the config to dir/egua.yaml.
func Save(dir string, cfg *UserConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, fileName), data, 0644)
}
