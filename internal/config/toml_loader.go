package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/sourcegrid/codeindex/internal/xerrors"
)

// LoadTOML reads an IndexConfig from a TOML file, e.g. `.indexconfig.toml`:
//
//	workspace_path = "/repo"
//	include_extensions = [".ts", ".go"]
//	exclude_patterns = ["node_modules/**"]
//	max_file_size = 2097152
//	max_concurrency = 8
func LoadTOML(path string) (*IndexConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.ConfigInvalid("failed to read config file").WithFile(path).WithCause(err)
	}

	cfg := &IndexConfig{EnablePersistence: true}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, xerrors.ConfigInvalid("failed to parse TOML config").WithFile(path).WithCause(err)
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
