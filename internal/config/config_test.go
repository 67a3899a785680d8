package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(Options{
		EnvFile: noEnvFile(t),
		Getenv:  envMap(map[string]string{"CLUBDESK_STATE_DIR": dir}),
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, dir, cfg.StateDir)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, filepath.Join(dir, "clubdesk.log"), cfg.LogPath())
	require.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	yml := "api_url: http://localhost:4000\nstore: redis\nredis_prefix: test:\ntimeout: 45s\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o600))

	cfg, err := Load(Options{
		EnvFile: noEnvFile(t),
		Getenv: envMap(map[string]string{
			"CLUBDESK_STATE_DIR": dir,
			"CLUBDESK_LOG_LEVEL": "warn",
			"CLUBDESK_TIMEOUT":   "5s",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4000", cfg.APIURL)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "test:", cfg.RedisPrefix)
	assert.Equal(t, DefaultRedisAddr, cfg.RedisAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: memory\n"), 0o600))

	cfg, err := Load(Options{File: path, EnvFile: noEnvFile(t), Getenv: envMap(nil)})
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed\n"), 0o600))

	_, err := Load(Options{EnvFile: noEnvFile(t), Getenv: envMap(map[string]string{"CLUBDESK_STATE_DIR": dir})})
	assert.Error(t, err)
}

func TestLoadBadTimeout(t *testing.T) {
	_, err := Load(Options{
		EnvFile: noEnvFile(t),
		Getenv:  envMap(map[string]string{"CLUBDESK_STATE_DIR": t.TempDir(), "CLUBDESK_TIMEOUT": "soon"}),
	})
	assert.ErrorContains(t, err, "CLUBDESK_TIMEOUT")
}

func TestLoadDotEnv(t *testing.T) {
	// Register restore of the real value, then make sure it is unset so the
	// dotenv file is allowed to provide it.
	t.Setenv("CLUBDESK_API_URL", "")
	require.NoError(t, os.Unsetenv("CLUBDESK_API_URL"))
	t.Setenv("CLUBDESK_STATE_DIR", t.TempDir())

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CLUBDESK_API_URL=http://dotenv.test\n"), 0o600))

	cfg, err := Load(Options{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.test", cfg.APIURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"unknown store", func(c *Config) { c.Store = "sqlite" }, "unknown store"},
		{"relative url", func(c *Config) { c.APIURL = "api.clubdesk.app" }, "http(s)"},
		{"ftp url", func(c *Config) { c.APIURL = "ftp://api.clubdesk.app" }, "http(s)"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"redis without addr", func(c *Config) { c.Store, c.RedisAddr = StoreRedis, "" }, "redis addr"},
		{"file without dir", func(c *Config) { c.StateDir = "" }, "state dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.StateDir = "/tmp/clubdesk"
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLogPathOverride(t *testing.T) {
	c := Default()
	c.LogFile = "-"
	assert.Equal(t, "-", c.LogPath())
}
