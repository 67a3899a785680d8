// Package config resolves clubdesk settings from defaults, the config file,
// a .env file, and CLUBDESK_* environment variables, in that order.
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

const (
	DefaultAPIURL      = "https://api.clubdesk.app"
	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPrefix = "clubdesk:session:"
	DefaultTimeout     = 30 * time.Second
	logFileName        = "clubdesk.log"
)

// Config holds all configuration for the console.
type Config struct {
	APIURL      string        `yaml:"api_url"`
	Store       string        `yaml:"store"`
	StateDir    string        `yaml:"state_dir"`
	RedisAddr   string        `yaml:"redis_addr"`
	RedisPrefix string        `yaml:"redis_prefix"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	LogFile     string        `yaml:"log_file"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Default returns the built-in settings. StateDir is ~/.clubdesk when the
// home directory is known.
func Default() Config {
	dir := ".clubdesk"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".clubdesk")
	}
	return Config{
		APIURL:      DefaultAPIURL,
		Store:       StoreFile,
		StateDir:    dir,
		RedisAddr:   DefaultRedisAddr,
		RedisPrefix: DefaultRedisPrefix,
		LogLevel:    "info",
		LogFormat:   "text",
		Timeout:     DefaultTimeout,
	}
}

// Options controls where Load looks.
type Options struct {
	// File is the YAML config path. Empty means <StateDir>/config.yaml.
	File string
	// EnvFile is a dotenv file to load. Empty means ".env" in the working
	// directory. A missing file is not an error.
	EnvFile string
	// Getenv reads the environment. Nil means os.LookupEnv.
	Getenv func(string) (string, bool)
}

// Load resolves the configuration. It does not call Validate.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already set in the process.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	lookup := opts.Getenv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	// The state dir decides where the default config file lives, so it is
	// resolved from the environment first.
	if v, ok := lookup("CLUBDESK_STATE_DIR"); ok && v != "" {
		cfg.StateDir = v
	}

	file := opts.File
	if file == "" {
		file = filepath.Join(cfg.StateDir, "config.yaml")
	}
	if err := cfg.mergeFile(file); err != nil {
		return nil, err
	}
	if err := cfg.mergeEnv(lookup); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc Config
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	c.overlay(fc)
	return nil
}

// overlay copies every non-zero field of o onto c.
func (c *Config) overlay(o Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.APIURL, o.APIURL)
	set(&c.Store, o.Store)
	set(&c.StateDir, o.StateDir)
	set(&c.RedisAddr, o.RedisAddr)
	set(&c.RedisPrefix, o.RedisPrefix)
	set(&c.LogLevel, o.LogLevel)
	set(&c.LogFormat, o.LogFormat)
	set(&c.LogFile, o.LogFile)
	if o.Timeout != 0 {
		c.Timeout = o.Timeout
	}
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	o := Config{
		APIURL:      get("CLUBDESK_API_URL"),
		Store:       get("CLUBDESK_STORE"),
		StateDir:    get("CLUBDESK_STATE_DIR"),
		RedisAddr:   get("CLUBDESK_REDIS_ADDR"),
		RedisPrefix: get("CLUBDESK_REDIS_PREFIX"),
		LogLevel:    get("CLUBDESK_LOG_LEVEL"),
		LogFormat:   get("CLUBDESK_LOG_FORMAT"),
		LogFile:     get("CLUBDESK_LOG_FILE"),
	}
	if v := get("CLUBDESK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CLUBDESK_TIMEOUT: %w", err)
		}
		o.Timeout = d
	}
	c.overlay(o)
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown store %q (want %s, %s or %s)", c.Store, StoreFile, StoreMemory, StoreRedis)
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api url %q must be an absolute http(s) URL", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Store == StoreFile && c.StateDir == "" {
		return errors.New("state dir is required for the file store")
	}
	if c.Store == StoreRedis && c.RedisAddr == "" {
		return errors.New("redis addr is required for the redis store")
	}
	return nil
}

// LogPath is where logs go: LogFile when set, else clubdesk.log in the state
// dir. "-" means stderr.
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.StateDir, logFileName)
}

