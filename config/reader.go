package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/ikchain/logging"
)

// Read reads a config from the given file. Environment variables written as ${VAR} are expanded first.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	unprocessedConfig := Config{
		ConfigFilePath: originalPath,
	}
	if err := json.NewDecoder(r).Decode(&unprocessedConfig); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	cfg, err := processConfig(&unprocessedConfig, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	return cfg, nil
}

// processConfig returns a copy of the config with defaults filled in, or every validation error found.
func processConfig(unprocessedConfig *Config, logger logging.Logger) (*Config, error) {
	cfg := *unprocessedConfig
	cfg.Chain.Joints = append([]JointConfig(nil), unprocessedConfig.Chain.Joints...)
	cfg.applyDefaults()
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	logger.Debugw("read config", "path", cfg.ConfigFilePath, "joints", len(cfg.Chain.Joints), "mode", cfg.Solver.Mode)
	return &cfg, nil
}
