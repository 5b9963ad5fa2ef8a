package categorizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "config.yaml"

// LoadConfig loads configuration from the given path or the default config.yaml.
// A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.Talents.ExpandEscapes = true
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	// expand_escapes defaults to true; an explicit false in the file wins.
	cfg.Talents.ExpandEscapes = true
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig persists configuration to disk. The file is readable by its
// owner only since it may carry a database DSN.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigFile
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// Validate checks settings that would otherwise fail late.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be 'mysql' or 'sqlite3', got %q", c.Database.Driver)
	}
	if _, err := time.Parse(time.DateOnly, c.Schedule.Search.ModifiedSince); err != nil {
		return fmt.Errorf("schedule.search.modified_since: %w", err)
	}
	if c.Schedule.Search.Limit > 10000 {
		return fmt.Errorf("schedule.search.limit must be <= 10000")
	}
	for _, t := range c.Schedule.Search.Types {
		if t != 0 && t != 1 {
			return fmt.Errorf("schedule.search.types: unknown type %d", t)
		}
	}
	for _, g := range c.Schedule.Search.Genders {
		if g < 1 || g > 3 {
			return fmt.Errorf("schedule.search.genders: unknown gender %d", g)
		}
	}
	for _, name := range c.Schedule.Categories {
		if !IsCanonical(name) {
			return fmt.Errorf("schedule.categories: unknown category %q", name)
		}
	}
	return nil
}
