package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no config file is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
	t.Setenv("HOME", tmp)
	return tmp
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PARA_ACCESS_KEY", "PARA_APP_ID", "PARA_SECRET_KEY", "PARA_ENDPOINT",
		"PARA_OUTPUT", "PARA_API_PATH", "PARA_RETRY_COUNT", "PARA_TOKEN_DIR",
	} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("endpoint", "", "")
	flags.String("access-key", "", "")
	flags.String("secret-key", "", "")
	flags.String("output", "json", "")
	flags.Uint64("retries", 2, "")
	flags.Duration("timeout", 30*time.Second, "")
	return flags
}

func TestLoadConfig(t *testing.T) {
	t.Run("Should use defaults", func(t *testing.T) {
		chdirTemp(t)
		clearEnv(t)
		cfg, err := LoadConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, "https://paraio.com", cfg.Endpoint)
		assert.Equal(t, "/v1/", cfg.APIPath)
		assert.Equal(t, OutputJSON, cfg.Output)
		assert.Equal(t, uint64(2), cfg.RetryCount)
		assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
		assert.NotEmpty(t, cfg.TokenDir)
	})

	t.Run("Should read the app id alias", func(t *testing.T) {
		chdirTemp(t)
		clearEnv(t)
		t.Setenv("PARA_APP_ID", "app:scoold")
		t.Setenv("PARA_SECRET_KEY", "s3cr3t")
		cfg, err := LoadConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, "app:scoold", cfg.AccessKey)
		assert.Equal(t, "s3cr3t", cfg.SecretKey)
	})

	t.Run("Should prefer the access key variable", func(t *testing.T) {
		chdirTemp(t)
		clearEnv(t)
		t.Setenv("PARA_ACCESS_KEY", "app:primary")
		t.Setenv("PARA_APP_ID", "app:alias")
		cfg, err := LoadConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, "app:primary", cfg.AccessKey)
	})

	t.Run("Should read the config file", func(t *testing.T) {
		dir := chdirTemp(t)
		clearEnv(t)
		content := "endpoint: http://localhost:8080\naccess_key: app:file\noutput: YAML\nretry_delay: 2s\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".para-client.yaml"), []byte(content), 0o600))
		cfg, err := LoadConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", cfg.Endpoint)
		assert.Equal(t, "app:file", cfg.AccessKey)
		assert.Equal(t, OutputYAML, cfg.Output)
		assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	})

	t.Run("Should let flags override the environment", func(t *testing.T) {
		chdirTemp(t)
		clearEnv(t)
		t.Setenv("PARA_ENDPOINT", "http://env:8080")
		flags := testFlags()
		require.NoError(t, flags.Parse([]string{"--endpoint", "http://flag:8080", "--retries", "5", "--access-key", "app:flag"}))
		cfg, err := LoadConfig(flags)
		require.NoError(t, err)
		assert.Equal(t, "http://flag:8080", cfg.Endpoint)
		assert.Equal(t, uint64(5), cfg.RetryCount)
		assert.Equal(t, "app:flag", cfg.AccessKey)
	})

	t.Run("Should load an explicit config file", func(t *testing.T) {
		dir := chdirTemp(t)
		clearEnv(t)
		path := filepath.Join(dir, "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("access_key: app:custom\n"), 0o600))
		flags := testFlags()
		require.NoError(t, flags.Parse([]string{"--config", path}))
		cfg, err := LoadConfig(flags)
		require.NoError(t, err)
		assert.Equal(t, "app:custom", cfg.AccessKey)
	})

	t.Run("Should reject an invalid output", func(t *testing.T) {
		chdirTemp(t)
		clearEnv(t)
		t.Setenv("PARA_OUTPUT", "xml")
		_, err := LoadConfig(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format")
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "Should accept defaults", mutate: func(_ *Config) {}},
		{name: "Should reject a relative endpoint", mutate: func(c *Config) { c.Endpoint = "localhost" }, wantErr: "invalid endpoint"},
		{name: "Should reject other schemes", mutate: func(c *Config) { c.Endpoint = "ftp://host" }, wantErr: "unsupported scheme"},
		{name: "Should reject token dir traversal", mutate: func(c *Config) { c.TokenDir = "../x" }, wantErr: "path traversal"},
		{name: "Should reject an empty token dir", mutate: func(c *Config) { c.TokenDir = "" }, wantErr: "token_dir cannot be empty"},
		{name: "Should reject a zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "timeout"},
		{name: "Should reject a negative rate", mutate: func(c *Config) { c.RateLimit = -1 }, wantErr: "rate_limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestConfig_ValidateForAPI(t *testing.T) {
	t.Run("Should require an access key", func(t *testing.T) {
		err := DefaultConfig().ValidateForAPI()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access_key is required")
	})

	t.Run("Should accept an access key", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.AccessKey = "app:myapp"
		assert.NoError(t, cfg.ValidateForAPI())
	})
}
