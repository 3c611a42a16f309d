package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfig, EnvAPIURL, EnvWSURL, EnvToken, EnvUserID, EnvPollInterval, EnvTimeout, EnvPreferences} {
		t.Setenv(k, "")
	}
	// Keep the default file lookup away from the real home directory.
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api_url: http://cleaner.local:9000/api/
ws_url: ws://cleaner.local:9000/ws
token: from-file
user_id: alice
poll_interval: 250ms
`)
	t.Setenv(EnvToken, "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://cleaner.local:9000/api", cfg.APIURL)
	assert.Equal(t, "ws://cleaner.local:9000/ws", cfg.WSURL)
	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, "alice", cfg.UserID)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "user_id: bob\n")
	t.Setenv(EnvConfig, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.UserID)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvWSURL, "http://not-a-ws-url")
	_, err := Load("")
	require.Error(t, err)

	clearEnv(t)
	t.Setenv(EnvPollInterval, "soon")
	_, err = Load("")
	require.Error(t, err)

	clearEnv(t)
	_, err = Load(writeConfig(t, "poll_interval: 0s\n"))
	require.Error(t, err)

	clearEnv(t)
	_, err = Load(writeConfig(t, "api_url: [1, 2\n"))
	require.Error(t, err)
}

func TestRedacted(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"", ""},
		{"short", "*****"},
		{"abcdefghijk", "abcd*******"},
		{"abcdefghijklmnopqrstuvwxyz", "abcd************..."},
	}
	for _, tt := range tests {
		cfg := Defaults()
		cfg.Token = tt.token
		got := cfg.Redacted()
		assert.Equal(t, tt.want, got.Token)
		assert.Equal(t, tt.token, cfg.Token, "original is unchanged")
		assert.Equal(t, cfg.APIURL, got.APIURL)
	}
}
