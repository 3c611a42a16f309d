// Package config loads client settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ensigniasec/cleaner-client/internal/storage"
	"github.com/ensigniasec/cleaner-client/internal/validate"
)

const (
	DefaultPath   = "~/.config/cleaner-client/config.yaml"
	maxConfigSize = 1 << 20
)

// Environment variables, applied on top of the file.
const (
	EnvConfig       = "CLEANER_CONFIG"
	EnvAPIURL       = "CLEANER_API_URL"
	EnvWSURL        = "CLEANER_WS_URL"
	EnvToken        = "CLEANER_API_TOKEN"
	EnvUserID       = "CLEANER_USER_ID"
	EnvPollInterval = "CLEANER_POLL_INTERVAL"
	EnvTimeout      = "CLEANER_TIMEOUT"
	EnvPreferences  = "CLEANER_PREFERENCES"
)

// Config holds all client configuration.
type Config struct {
	APIURL          string        `yaml:"api_url" validate:"required,http_url"`
	WSURL           string        `yaml:"ws_url" validate:"omitempty,ws_url"`
	Token           string        `yaml:"token"`
	UserID          string        `yaml:"user_id" validate:"required"`
	PollInterval    time.Duration `yaml:"poll_interval" validate:"gt=0"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
	PreferencesPath string        `yaml:"preferences_path" validate:"required"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		APIURL:          "http://localhost:8000/api",
		UserID:          "default",
		PollInterval:    time.Second,
		Timeout:         10 * time.Second,
		PreferencesPath: storage.DefaultPath,
	}
}

// Load builds the configuration: defaults, then the YAML file at path, then
// the environment. An empty path means $CLEANER_CONFIG or DefaultPath, and a
// missing default file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = getEnv(EnvConfig, DefaultPath)
		explicit = os.Getenv(EnvConfig) != ""
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return cfg, err
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	expanded, err := expandTilde(path)
	if err != nil {
		return err
	}
	data, err := readLimited(expanded)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", expanded, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.APIURL = getEnv(EnvAPIURL, c.APIURL)
	c.WSURL = getEnv(EnvWSURL, c.WSURL)
	c.Token = getEnv(EnvToken, c.Token)
	c.UserID = getEnv(EnvUserID, c.UserID)
	c.PreferencesPath = getEnv(EnvPreferences, c.PreferencesPath)

	var err error
	if c.PollInterval, err = getEnvDuration(EnvPollInterval, c.PollInterval); err != nil {
		return err
	}
	if c.Timeout, err = getEnvDuration(EnvTimeout, c.Timeout); err != nil {
		return err
	}
	return nil
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}
	return io.ReadAll(io.LimitReader(f, maxConfigSize))
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func expandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

// Redacted returns a copy of c that is safe to print: the token keeps its
// first characters and the rest is masked.
func (c Config) Redacted() Config {
	c.Token = maskSecret(c.Token)
	return c
}

func maskSecret(secret string) string {
	const (
		maxMaskLen = 16
		prefixPeek = 4
	)
	n := len(secret)
	switch {
	case n == 0:
		return ""
	case n <= prefixPeek+4:
		return strings.Repeat("*", n)
	case n > maxMaskLen:
		return secret[:prefixPeek] + strings.Repeat("*", maxMaskLen-prefixPeek) + "..."
	default:
		return secret[:prefixPeek] + strings.Repeat("*", n-prefixPeek)
	}
}
