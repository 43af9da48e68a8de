// Package config loads snapvault settings from a YAML file, SNAPVAULT_*
// environment variables and built-in defaults, in that order of
// precedence after command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultDatabase  = "snapvault.db"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultLogLimit  = 50
)

type Config struct {
	Database  string                `yaml:"database" mapstructure:"database"`
	LogLevel  string                `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string                `yaml:"log_format" mapstructure:"log_format"`
	LogLimit  int                   `yaml:"log_limit" mapstructure:"log_limit"`
	Kinds     map[string]KindConfig `yaml:"kinds" mapstructure:"kinds"`
}

// KindConfig holds per-kind settings. Kind names are matched
// case-insensitively because viper lowercases map keys.
type KindConfig struct {
	Schema string `yaml:"schema" mapstructure:"schema"`
}

func DefaultConfig() *Config {
	return &Config{
		Database:  DefaultDatabase,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		LogLimit:  DefaultLogLimit,
		Kinds:     map[string]KindConfig{},
	}
}

// Load reads configuration. With an explicit path the file must exist;
// otherwise snapvault.yaml is searched for in the working directory and
// $XDG_CONFIG_HOME/snapvault (or ~/.config/snapvault) and may be absent.
//
// Relative schema paths are resolved against the directory of the config
// file that was read.
func Load(path string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("database", def.Database)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("log_limit", def.LogLimit)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("snapvault")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "snapvault"))
		} else if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "snapvault"))
		}
	}

	v.SetEnvPrefix("SNAPVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", describe(path), err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.Kinds == nil {
		cfg.Kinds = map[string]KindConfig{}
	}

	if used := v.ConfigFileUsed(); used != "" {
		base := filepath.Dir(used)
		for name, k := range cfg.Kinds {
			if k.Schema != "" && !filepath.IsAbs(k.Schema) {
				k.Schema = filepath.Join(base, k.Schema)
				cfg.Kinds[name] = k
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func describe(path string) string {
	if path == "" {
		return "snapvault.yaml"
	}
	return path
}

// Validate checks the configuration for errors and fills zero limits.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("config: database is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format %q is invalid (must be text or json)", c.LogFormat)
	}
	if c.LogLimit < 1 {
		c.LogLimit = DefaultLogLimit
	}
	return nil
}

// SchemaFor returns the schema path configured for kind, if any.
func (c *Config) SchemaFor(kind string) (string, bool) {
	k, ok := c.Kinds[strings.ToLower(kind)]
	if !ok || k.Schema == "" {
		return "", false
	}
	return k.Schema, true
}

// ParseLevel maps a log_level string to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: log_level %q is invalid (must be debug, info, warn or error)", s)
}
