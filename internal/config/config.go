package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tally-dev/tally/internal/categorize"
)

// FileName is the project config file at the project root.
const FileName = "tally.yaml"

// EnvPrefix prefixes environment overrides, e.g. TALLY_STORE_BACKEND.
const EnvPrefix = "TALLY"

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Format  string        `yaml:"format" mapstructure:"format"` // statement parser name
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Rules   RulesConfig   `yaml:"rules" mapstructure:"rules"`
	Display DisplayConfig `yaml:"display" mapstructure:"display"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // sqlite or memory
	Path    string `yaml:"path" mapstructure:"path"`       // relative to the project root
}

// RulesConfig controls categorization.
type RulesConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	SignFirst bool   `yaml:"sign_first" mapstructure:"sign_first"`
}

// DisplayConfig controls report rendering.
type DisplayConfig struct {
	Labels   string `yaml:"labels" mapstructure:"labels"` // en or ja
	Currency string `yaml:"currency" mapstructure:"currency"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Format: "cimb",
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    filepath.Join("data", "tally.db"),
		},
		Rules: RulesConfig{
			Path: categorize.RulesFile,
		},
		Display: DisplayConfig{
			Labels:   "en",
			Currency: "RM",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a tally.yaml file, applying defaults for absent keys and
// TALLY_* environment overrides (e.g. TALLY_DISPLAY_LABELS=ja).
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return load(path)
}

// load resolves defaults, the file at path (skipped when empty) and
// environment overrides, in increasing precedence.
func load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("format", d.Format)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("rules.path", d.Rules.Path)
	v.SetDefault("rules.sign_first", d.Rules.SignFirst)
	v.SetDefault("display.labels", d.Display.Labels)
	v.SetDefault("display.currency", d.Display.Currency)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// LoadDir loads <dir>/tally.yaml. A project without the file gets the
// defaults, still subject to environment overrides.
func LoadDir(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return load("")
	}
	return Load(path)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	var errs []error
	if c.Format == "" {
		errs = append(errs, errors.New("format must not be empty"))
	}
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite backend"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("store.backend must be sqlite or memory, got %q", c.Store.Backend))
	}
	if c.Display.Labels != "en" && c.Display.Labels != "ja" {
		errs = append(errs, fmt.Errorf("display.labels must be en or ja, got %q", c.Display.Labels))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Resolve returns p relative to the project root dir, or p itself when absolute.
func Resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
