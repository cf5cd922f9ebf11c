package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Pipeline
	HeatmapPath     string  `mapstructure:"heatmap_path" yaml:"heatmap_path"`
	TestSize        float64 `mapstructure:"test_size" yaml:"test_size"`
	Seed            int64   `mapstructure:"seed" yaml:"seed"`
	ConstantColumns string  `mapstructure:"constant_columns" yaml:"constant_columns"`
	Delimiter       string  `mapstructure:"delimiter" yaml:"delimiter"`
	MaxRows         int     `mapstructure:"max_rows" yaml:"max_rows"`

	// Fetcher
	FetchTimeoutSec int    `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec"`
	APIBaseURL      string `mapstructure:"api_base_url" yaml:"api_base_url"`
	APIKey          string `mapstructure:"api_key" yaml:"api_key"`
	APIToken        string `mapstructure:"api_token" yaml:"api_token"`
	UserAgent       string `mapstructure:"user_agent" yaml:"user_agent"`

	// Service
	ServerHost string `mapstructure:"server_host" yaml:"server_host"`
	ServerPort int    `mapstructure:"server_port" yaml:"server_port"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// FetchTimeout returns the fetch timeout as a duration.
func (c *Global) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// Addr returns the service listen address.
func (c *Global) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// DelimiterRune returns the configured delimiter, or 0 to pick by suffix.
// "tab" and "\t" both mean a tab character.
func (c *Global) DelimiterRune() (rune, error) {
	switch c.Delimiter {
	case "":
		return 0, nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	r := []rune(c.Delimiter)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	return r[0], nil
}

// Validate checks values that the pipeline cannot recover from.
func (c *Global) Validate() error {
	if !(c.TestSize > 0 && c.TestSize < 1) {
		return fmt.Errorf("test_size must be within (0, 1), got %v", c.TestSize)
	}
	switch c.ConstantColumns {
	case "", "skip", "mark", "fail":
	default:
		return fmt.Errorf("constant_columns must be skip, mark or fail, got %q", c.ConstantColumns)
	}
	if c.FetchTimeoutSec < 0 {
		return fmt.Errorf("fetch_timeout_sec must not be negative")
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("max_rows must not be negative")
	}
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	return nil
}

// Dir returns ~/.tabloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// may hold credentials
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults; CLI flags are applied by callers.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TABLOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("heatmap_path", "correlation_matrix.png")
	v.SetDefault("test_size", 0.2)
	v.SetDefault("seed", 42)
	v.SetDefault("constant_columns", "skip")
	v.SetDefault("delimiter", "")
	v.SetDefault("max_rows", 0)
	v.SetDefault("fetch_timeout_sec", 30)
	v.SetDefault("api_base_url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("api_token", "")
	v.SetDefault("user_agent", "tabloom/1.0")
	v.SetDefault("server_host", "127.0.0.1")
	v.SetDefault("server_port", 8000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
