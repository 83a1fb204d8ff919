package log

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes log levels for named loggers.
// Filters use the zapfilter rule syntax, e.g. "debug:ingest*".
type Config struct {
	DefaultLevel string   `yaml:"defaultLevel"`
	Filters      []string `yaml:"filters"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read log config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse log config: %w", err)
	}
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = "info"
	}
	return &cfg, nil
}

// Rules composes the filter entries into a single zapfilter rule string.
// The default level applies to all loggers not matched by a filter.
func (c *Config) Rules() string {
	rules := make([]string, 0, len(c.Filters)+1)
	rules = append(rules, c.Filters...)
	rules = append(rules, fmt.Sprintf("%s:*", c.DefaultLevel))
	return strings.Join(rules, " ")
}
