package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	OutputJSON = "json"
	OutputYAML = "yaml"

	configName = ".para-client"
	envPrefix  = "PARA"
)

type Config struct {
	Endpoint   string        `mapstructure:"endpoint"`
	AccessKey  string        `mapstructure:"access_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	APIPath    string        `mapstructure:"api_path"`
	TokenDir   string        `mapstructure:"token_dir"`
	Output     string        `mapstructure:"output"`
	RetryCount uint64        `mapstructure:"retry_count"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	Verbose    bool          `mapstructure:"verbose"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Endpoint:   "https://paraio.com",
		APIPath:    "/v1/",
		TokenDir:   defaultTokenDir(),
		Output:     OutputJSON,
		RetryCount: 2,
		RetryDelay: 500 * time.Millisecond,
		Timeout:    30 * time.Second,
	}
}

func defaultTokenDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".para-client"
	}
	return filepath.Join(dir, "para-client")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := ValidateEndpoint(c.Endpoint); err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if strings.Contains(c.APIPath, "..") {
		return fmt.Errorf("api_path contains invalid path traversal")
	}
	if c.TokenDir == "" {
		return fmt.Errorf("token_dir cannot be empty")
	}
	if strings.Contains(c.TokenDir, "..") {
		return fmt.Errorf("token_dir contains invalid path traversal")
	}
	switch c.Output {
	case OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("unsupported output format %q: expected %s or %s", c.Output, OutputJSON, OutputYAML)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay cannot be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}
	return nil
}

// ValidateForAPI validates that credentials are present for commands that call the server
func (c *Config) ValidateForAPI() error {
	if strings.TrimSpace(c.AccessKey) == "" {
		return fmt.Errorf("access_key is required for API operations")
	}
	if strings.ContainsAny(c.AccessKey, " \t\n") {
		return fmt.Errorf("access_key cannot contain whitespace")
	}
	return c.Validate()
}

// ValidateEndpoint checks that endpoint is an absolute http(s) URL (exported for reuse)
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"endpoint":    "endpoint",
	"access-key":  "access_key",
	"secret-key":  "secret_key",
	"api-path":    "api_path",
	"token-dir":   "token_dir",
	"output":      "output",
	"retries":     "retry_count",
	"retry-delay": "retry_delay",
	"timeout":     "timeout",
	"rate-limit":  "rate_limit",
	"verbose":     "verbose",
}

// LoadConfig reads the configuration from defaults, an optional .para-client.yaml
// file, PARA_* environment variables and flags, in increasing order of precedence.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
	}
	// Configure environment variables
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	// BindEnv checks the variables in order
	if err := v.BindEnv("access_key", "PARA_ACCESS_KEY", "PARA_APP_ID"); err != nil {
		return nil, fmt.Errorf("failed to bind access_key env: %w", err)
	}
	if err := v.BindEnv("secret_key", "PARA_SECRET_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind secret_key env: %w", err)
	}
	if err := v.BindEnv("endpoint", "PARA_ENDPOINT"); err != nil {
		return nil, fmt.Errorf("failed to bind endpoint env: %w", err)
	}
	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("endpoint", defaults.Endpoint)
	v.SetDefault("api_path", defaults.APIPath)
	v.SetDefault("token_dir", defaults.TokenDir)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("retry_count", defaults.RetryCount)
	v.SetDefault("retry_delay", defaults.RetryDelay)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("rate_limit", defaults.RateLimit)
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind %s flag: %w", name, err)
				}
			}
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.Output = strings.ToLower(strings.TrimSpace(config.Output))
	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}
