package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/needs-tools/needschema/internal/compiler/errors"
)

// FileName is the configuration file looked up in the working directory
const FileName = "needschema.yaml"

// EnvPrefix prefixes environment overrides, e.g. NEEDSCHEMA_POLICY=strict
const EnvPrefix = "NEEDSCHEMA"

// Config represents the needschema configuration
type Config struct {
	Inputs  []string    `mapstructure:"input"`
	Output  string      `mapstructure:"output"`
	Policy  string      `mapstructure:"policy"`
	Compact bool        `mapstructure:"compact"`
	Gzip    bool        `mapstructure:"gzip"`
	Workers int         `mapstructure:"workers"`
	Serve   ServeConfig `mapstructure:"serve"`
	Watch   WatchConfig `mapstructure:"watch"`

	// File is the configuration file that was read, empty when none was found
	File string `mapstructure:"-"`
}

// ServeConfig represents the schema server configuration
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchConfig represents watch mode configuration
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Defaults returns the configuration used when no file or override is present
func Defaults() *Config {
	return &Config{
		Inputs:  []string{},
		Output:  "",
		Policy:  string(errors.PolicyLenient),
		Workers: 0,
		Serve:   ServeConfig{Addr: "localhost:8765"},
		Watch:   WatchConfig{Debounce: 300 * time.Millisecond},
	}
}

// Load loads the configuration from needschema.yaml in the working directory
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads the configuration from needschema.yaml in dir. A missing file
// is not an error; defaults and environment overrides still apply.
func LoadFrom(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	d := Defaults()
	v.SetDefault("input", d.Inputs)
	v.SetDefault("output", d.Output)
	v.SetDefault("policy", d.Policy)
	v.SetDefault("compact", d.Compact)
	v.SetDefault("gzip", d.Gzip)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("serve.addr", d.Serve.Addr)
	v.SetDefault("watch.debounce", d.Watch.Debounce)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Write stores cfg as needschema.yaml in dir and returns the written path
func Write(dir string, cfg *Config) (string, error) {
	if err := validateConfig(cfg); err != nil {
		return "", err
	}

	v := viper.New()
	v.Set("input", cfg.Inputs)
	v.Set("output", cfg.Output)
	v.Set("policy", cfg.Policy)
	v.Set("compact", cfg.Compact)
	v.Set("gzip", cfg.Gzip)
	v.Set("workers", cfg.Workers)
	v.Set("serve.addr", cfg.Serve.Addr)
	v.Set("watch.debounce", cfg.Watch.Debounce.String())

	path := filepath.Join(dir, FileName)
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Exists reports whether dir holds a configuration file
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}

// FindRoot walks up from the working directory to the first directory
// holding needschema.yaml
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found in this directory or any parent", FileName)
		}
		dir = parent
	}
}

// CompilePolicy returns the parsed policy
func (c *Config) CompilePolicy() errors.Policy {
	p, _ := errors.ParsePolicy(c.Policy)
	return p
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := errors.ParsePolicy(cfg.Policy); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got: %d", cfg.Workers)
	}
	if cfg.Serve.Addr == "" {
		return fmt.Errorf("serve.addr must not be empty")
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got: %s", cfg.Watch.Debounce)
	}
	return nil
}
