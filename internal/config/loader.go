package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Loader struct {
	configPath string
}

const DefaultConfigPath = "config.yaml"

func NewLoader(configPath string) *Loader {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return &Loader{configPath: configPath}
}

// Load reads the file, applies it over the defaults and validates the result.
func (l *Loader) Load() (*Config, error) {
	c, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, NewReadError(l.configPath, err)
	}
	cfg := NewConfig()
	err = yaml.Unmarshal(c, cfg)
	if err != nil {
		return nil, NewParseError(l.configPath, err)
	}
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when the file does not exist.
func (l *Loader) LoadOrDefault() (*Config, error) {
	if _, err := os.Stat(l.configPath); os.IsNotExist(err) {
		cfg := NewConfig()
		return cfg, cfg.Validate()
	}
	return l.Load()
}

func (l *Loader) getConfigPath() string {
	return l.configPath
}

// LoadEnvFile loads environment variables from a .env file if it exists.
// Variables already set in the environment win.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
