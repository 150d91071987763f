package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"cxlint/internal/slogutil"
)

// FileName is the configuration file looked up in the project root.
const FileName = ".cxlint.yml"

// EnvPrefix prefixes environment overrides, e.g. CXLINT_LOGGING_LEVEL.
const EnvPrefix = "CXLINT"

// Config represents the complete cxlint configuration
type Config struct {
	// InheritFrom lists files merged underneath this one, relative to it
	InheritFrom []string `yaml:"inheritFrom,omitempty" mapstructure:"inheritFrom"`

	// Rules is keyed by lowercased rule name; use Rule to look one up
	Rules map[string]RuleConfig `yaml:"rules,omitempty" mapstructure:"rules"`

	// WeightFiles are TOML files defining extra scoring variants
	WeightFiles []string `yaml:"weightFiles,omitempty" mapstructure:"weightFiles"`

	// Exclude holds path globs skipped during file discovery
	Exclude []string `yaml:"exclude,omitempty" mapstructure:"exclude"`

	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Path is the file this configuration was loaded from, "" for defaults
	Path string `yaml:"-" mapstructure:"-"`
}

// RuleConfig configures one rule. Unset fields fall back to the rule's
// own defaults.
type RuleConfig struct {
	Enabled *bool    `yaml:"enabled,omitempty" mapstructure:"enabled"`
	Max     *float64 `yaml:"max,omitempty" mapstructure:"max"`

	// Variant names the scoring variant for rules defined in configuration
	Variant string `yaml:"variant,omitempty" mapstructure:"variant"`
	// Name keeps the display casing of a configured rule
	Name    string `yaml:"name,omitempty" mapstructure:"name"`
	Message string `yaml:"message,omitempty" mapstructure:"message"`

	AllowedMethods  []string `yaml:"allowedMethods,omitempty" mapstructure:"allowedMethods"`
	AllowedPatterns []string `yaml:"allowedPatterns,omitempty" mapstructure:"allowedPatterns"`
}

// IsEnabled reports whether the rule runs, defaulting to true.
func (r RuleConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// MaxOr returns the configured max or def.
func (r RuleConfig) MaxOr(def float64) float64 {
	if r.Max == nil {
		return def
	}
	return *r.Max
}

// Patterns compiles AllowedPatterns.
func (r RuleConfig) Patterns() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(r.AllowedPatterns))
	for _, p := range r.AllowedPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// CacheConfig contains result cache configuration
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `yaml:"format" mapstructure:"format"`
	Level      string `yaml:"level" mapstructure:"level"`
	File       string `yaml:"file,omitempty" mapstructure:"file"`
	MaxSize    string `yaml:"maxSize,omitempty" mapstructure:"maxSize"`
	MaxBackups int    `yaml:"maxBackups,omitempty" mapstructure:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Rules: map[string]RuleConfig{},
		Cache: CacheConfig{
			Enabled: true,
			Path:    ".cxlint_cache.db",
		},
		Logging: LoggingConfig{
			Format:     "text",
			Level:      "warn",
			MaxBackups: 3,
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	def := DefaultConfig()

	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.path", def.Cache.Path)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.maxSize", def.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", def.Logging.MaxBackups)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads .cxlint.yml (or .cxlint.yaml) from root. A missing file
// yields the defaults with environment overrides applied.
func LoadConfig(root string) (*Config, error) {
	return LoadConfigSkipping(root)
}

// LoadConfigSkipping is LoadConfig ignoring inherited files whose base name
// is in skip. Regenerating the todo file skips the previous one.
func LoadConfigSkipping(root string, skip ...string) (*Config, error) {
	finder := viper.New()
	finder.SetConfigName(".cxlint")
	finder.SetConfigType("yaml")
	finder.AddConfigPath(root)

	if err := finder.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return decode(newViper(), "")
		}
		return nil, err
	}
	return LoadFileSkipping(finder.ConfigFileUsed(), skip...)
}

// LoadFile loads the configuration at path, merging inheritFrom parents
// first so the file's own settings win.
func LoadFile(path string) (*Config, error) {
	return LoadFileSkipping(path)
}

// LoadFileSkipping is LoadFile ignoring inherited files whose base name is
// in skip.
func LoadFileSkipping(path string, skip ...string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	l := loader{v: newViper(), active: map[string]bool{}, skip: map[string]bool{}}
	for _, s := range skip {
		l.skip[s] = true
	}
	if err := l.merge(path); err != nil {
		return nil, err
	}
	return decode(l.v, path)
}

type loader struct {
	v      *viper.Viper
	active map[string]bool
	skip   map[string]bool
}

func (l *loader) merge(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if l.active[abs] {
		return &ConfigError{Field: "inheritFrom", Message: "inheritance cycle through " + path}
	}
	l.active[abs] = true
	defer delete(l.active, abs)

	layer := viper.New()
	layer.SetConfigFile(path)
	layer.SetConfigType("yaml")
	if err := layer.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	for _, parent := range layer.GetStringSlice("inheritFrom") {
		if l.skip[filepath.Base(parent)] {
			continue
		}
		if !filepath.IsAbs(parent) {
			parent = filepath.Join(filepath.Dir(path), parent)
		}
		if err := l.merge(parent); err != nil {
			return err
		}
	}
	return l.v.MergeConfigMap(layer.AllSettings())
}

func decode(v *viper.Viper, path string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Rules == nil {
		cfg.Rules = map[string]RuleConfig{}
	}
	cfg.Path = path
	return &cfg, nil
}

// Rule returns the configuration for a rule by name, ignoring case.
func (c *Config) Rule(name string) (RuleConfig, bool) {
	r, ok := c.Rules[strings.ToLower(name)]
	return r, ok
}

// CustomRules returns the configured rules that name a variant, sorted by key.
func (c *Config) CustomRules() []string {
	var names []string
	for key, r := range c.Rules {
		if r.Variant != "" {
			names = append(names, key)
		}
	}
	sort.Strings(names)
	return names
}

// Resolve makes a path from the configuration absolute against the
// configuration file's directory, or against root for defaults.
func (c *Config) Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if c.Path != "" {
		return filepath.Join(filepath.Dir(c.Path), p)
	}
	return filepath.Join(root, p)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := slogutil.ParseLevel(c.Logging.Level); err != nil {
		return &ConfigError{Field: "logging.level", Message: err.Error()}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be text or json"}
	}
	if _, err := slogutil.ParseSize(c.Logging.MaxSize); err != nil {
		return &ConfigError{Field: "logging.maxSize", Message: err.Error()}
	}
	if c.Logging.MaxBackups < 0 {
		return &ConfigError{Field: "logging.maxBackups", Message: "must not be negative"}
	}

	keys := make([]string, 0, len(c.Rules))
	for k := range c.Rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, name := range keys {
		r := c.Rules[name]
		if r.Max != nil && *r.Max < 0 {
			return &ConfigError{Field: "rules." + name + ".max", Message: "must not be negative"}
		}
		if _, err := r.Patterns(); err != nil {
			return &ConfigError{Field: "rules." + name + ".allowedPatterns", Message: err.Error()}
		}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
