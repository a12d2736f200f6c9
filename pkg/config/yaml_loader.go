package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/toolview/toolview/pkg/proxy"
)

// envVarPattern matches ${VAR} references in raw config text.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// YAMLLoader loads configuration from a YAML file, expanding ${VAR}
// environment references before parsing.
type YAMLLoader struct {
	path   string
	getenv func(string) string
}

// NewYAMLLoader creates a loader for the given file path. getenv supplies
// environment values; pass os.Getenv in production, a map lookup in tests.
func NewYAMLLoader(path string, getenv func(string) string) *YAMLLoader {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &YAMLLoader{path: path, getenv: getenv}
}

// Load reads, expands, parses, defaults and validates the configuration.
func (l *YAMLLoader) Load() (*Config, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", proxy.ErrInvalidConfig, l.path, err)
	}

	expanded := l.expandEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", proxy.ErrInvalidConfig, l.path, err)
	}

	cfg.EnsureDefaults()

	if err := NewValidator().Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandEnv replaces ${VAR} references with their environment values.
// Unset variables expand to the empty string.
func (l *YAMLLoader) expandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return l.getenv(name)
	})
}
