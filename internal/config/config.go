// File: internal/config/config.go
package config

import (
	"encoding/hex"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/farbler/internal/farbling"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Farbling() FarblingConfig
	Divergence() DivergenceConfig

	SetFarblingDefaultLevel(level string)
	SetFarblingSessionKey(hexKey string)
	SetDivergenceSamples(n int)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	FarblingCfg   FarblingConfig   `mapstructure:"farbling" yaml:"farbling"`
	DivergenceCfg DivergenceConfig `mapstructure:"divergence" yaml:"divergence"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Farbling() FarblingConfig     { return c.FarblingCfg }
func (c *Config) Divergence() DivergenceConfig { return c.DivergenceCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetFarblingDefaultLevel(level string) { c.FarblingCfg.DefaultLevel = level }
func (c *Config) SetFarblingSessionKey(hexKey string)  { c.FarblingCfg.SessionKey = hexKey }
func (c *Config) SetDivergenceSamples(n int)           { c.DivergenceCfg.Samples = n }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	Development bool        `mapstructure:"development" yaml:"development"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// FarblingConfig configures the content-settings provider and the browsing session.
type FarblingConfig struct {
	// DefaultLevel applies to every host no rule matches.
	DefaultLevel string `mapstructure:"default_level" yaml:"default_level"`
	// SessionKey is a hex encoded secret. Empty means a random key per session.
	SessionKey string        `mapstructure:"session_key" yaml:"-"`
	Rules      []RuleConfig  `mapstructure:"rules" yaml:"rules"`
	Plugins    PluginsConfig `mapstructure:"plugins" yaml:"plugins"`
}

// RuleConfig maps a host pattern to a farbling level.
type RuleConfig struct {
	Pattern string `mapstructure:"pattern" yaml:"pattern"`
	Level   string `mapstructure:"level" yaml:"level"`
}

// PluginsConfig holds the fake plugins appended to plugin lists.
type PluginsConfig struct {
	Synthetic []farbling.SyntheticSpec `mapstructure:"synthetic" yaml:"synthetic"`
}

// DivergenceConfig tunes the statistical cross-context check.
type DivergenceConfig struct {
	Samples      int `mapstructure:"samples" yaml:"samples"`
	Concurrency  int `mapstructure:"concurrency" yaml:"concurrency"`
	StringLength int `mapstructure:"string_length" yaml:"string_length"`
}

// Level parses DefaultLevel.
func (f FarblingConfig) Level() (farbling.Level, error) {
	return farbling.ParseLevel(f.DefaultLevel)
}

// DecodedSessionKey returns the configured session key, or nil when unset.
func (f FarblingConfig) DecodedSessionKey() ([]byte, error) {
	if f.SessionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(f.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("farbling.session_key must be hex encoded: %w", err)
	}
	return key, nil
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.development", false)
	v.SetDefault("logger.service_name", "farbler")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Farbling --
	v.SetDefault("farbling.default_level", farbling.Balanced.String())
	v.SetDefault("farbling.session_key", "")
	v.SetDefault("farbling.rules", []RuleConfig{})
	v.SetDefault("farbling.plugins.synthetic", farbling.DefaultPluginSpecs())

	// -- Divergence --
	v.SetDefault("divergence.samples", 1000)
	v.SetDefault("divergence.concurrency", 8)
	v.SetDefault("divergence.string_length", 8)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The session key is a secret and is expected to come from the environment.
	if err := v.BindEnv("farbling.session_key", "FARBLER_SESSION_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind session key env: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.FarblingCfg.Validate(); err != nil {
		return fmt.Errorf("farbling configuration invalid: %w", err)
	}
	if err := c.DivergenceCfg.Validate(); err != nil {
		return fmt.Errorf("divergence configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the farbling configuration.
func (f *FarblingConfig) Validate() error {
	if _, err := f.Level(); err != nil {
		return fmt.Errorf("farbling.default_level: %w", err)
	}
	key, err := f.DecodedSessionKey()
	if err != nil {
		return err
	}
	if f.SessionKey != "" && (len(key) == 0 || len(key) > 64) {
		return fmt.Errorf("farbling.session_key must decode to between 1 and 64 bytes")
	}
	for i, rule := range f.Rules {
		if rule.Pattern == "" || !doublestar.ValidatePattern(rule.Pattern) {
			return fmt.Errorf("farbling.rules[%d].pattern %q is not a valid pattern", i, rule.Pattern)
		}
		if _, err := farbling.ParseLevel(rule.Level); err != nil {
			return fmt.Errorf("farbling.rules[%d].level: %w", i, err)
		}
	}
	return f.Plugins.Validate()
}

// SyntheticPluginCount is the number of fake plugins every farbled list gets.
const SyntheticPluginCount = 2

// Validate checks that exactly SyntheticPluginCount fake plugins are configured
// and that no two fields share a label.
func (p *PluginsConfig) Validate() error {
	if len(p.Synthetic) != SyntheticPluginCount {
		return fmt.Errorf("farbling.plugins.synthetic must list exactly %d plugins, got %d", SyntheticPluginCount, len(p.Synthetic))
	}
	seen := make(map[string]string)
	for i, spec := range p.Synthetic {
		fields := map[string]farbling.FieldSpec{"name": spec.Name, "filename": spec.Filename, "description": spec.Description}
		for _, key := range []string{"name", "filename", "description"} {
			field := fields[key]
			path := fmt.Sprintf("farbling.plugins.synthetic[%d].%s", i, key)
			if field.Label == "" || field.Length <= 0 {
				return fmt.Errorf("%s needs a label and a positive length", path)
			}
			if prev, ok := seen[field.Label]; ok {
				return fmt.Errorf("%s reuses label %q of %s", path, field.Label, prev)
			}
			seen[field.Label] = path
		}
	}
	return nil
}

// Validate checks the DivergenceConfig settings.
func (d *DivergenceConfig) Validate() error {
	if d.Samples <= 0 {
		return fmt.Errorf("divergence.samples must be a positive integer")
	}
	if d.Concurrency <= 0 {
		return fmt.Errorf("divergence.concurrency must be a positive integer")
	}
	if d.StringLength <= 0 {
		return fmt.Errorf("divergence.string_length must be a positive integer")
	}
	return nil
}
