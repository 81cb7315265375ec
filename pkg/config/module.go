package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DEFAULT []byte

func readFile(config *Config, path string) error {
	// Check if this is a valid file
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("does not exist")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	extension := filepath.Ext(path)
	switch extension {
	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		return decoder.Decode(config)
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		err := decoder.Decode(config)
		// An empty file is fine.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	return fmt.Errorf(
		"not in a valid format",
	)
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	config := Config{}
	err := yaml.Unmarshal(DEFAULT, &config)
	if err != nil {
		return nil, fmt.Errorf("invalid default config file: %w", err)
	}
	return &config, nil
}

// Process starts from the default configuration and overlays the provided
// configuration files in order. Only the fields a file sets are changed.
func Process(configPaths []string) (*Config, error) {
	config, err := Default()
	if err != nil {
		return nil, err
	}

	for _, path := range configPaths {
		err := readFile(config, path)
		if err != nil {
			return nil, fmt.Errorf(
				"could not process config file %s: %w",
				path,
				err,
			)
		}
	}

	err = config.Validate()
	if err != nil {
		return nil, fmt.Errorf("config is not valid: %w", err)
	}

	return config, nil
}
