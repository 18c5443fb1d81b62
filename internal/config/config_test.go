package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every SLACKCONNECT_ env var that Load() reads.
var allConfigKeys = []string{
	"SLACKCONNECT_SLACK_CLIENT_ID",
	"SLACKCONNECT_SLACK_CLIENT_SECRET",
	"SLACKCONNECT_REDIRECT_URL",
	"SLACKCONNECT_FRONTEND_URL",
	"SLACKCONNECT_POLL_INTERVAL",
	"SLACKCONNECT_LISTEN_ADDR",
	"SLACKCONNECT_DB_PATH",
	"SLACKCONNECT_SECRET_KEY",
}

// isolateConfigEnv saves and unsets all SLACKCONNECT_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

// setRequired sets the three variables Load() refuses to start without.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SLACKCONNECT_SLACK_CLIENT_ID", "1234.5678")
	t.Setenv("SLACKCONNECT_SLACK_CLIENT_SECRET", "shhh")
	t.Setenv("SLACKCONNECT_REDIRECT_URL", "https://example.com/api/v1/auth/slack/callback")
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("SLACKCONNECT_FRONTEND_URL", "https://app.example.com")
	t.Setenv("SLACKCONNECT_POLL_INTERVAL", "30s")
	t.Setenv("SLACKCONNECT_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("SLACKCONNECT_DB_PATH", "/tmp/test.db")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "1234.5678", cfg.SlackClientID)
	assert.Equal(t, "shhh", cfg.SlackClientSecret)
	assert.Equal(t, "https://example.com/api/v1/auth/slack/callback", cfg.RedirectURL)
	assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "slackconnect.db", cfg.DBPath)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
}

func TestLoad_MissingClientID(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SLACKCONNECT_SLACK_CLIENT_SECRET", "shhh")
	t.Setenv("SLACKCONNECT_REDIRECT_URL", "https://example.com/cb")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLACKCONNECT_SLACK_CLIENT_ID")
}

func TestLoad_MissingClientSecret(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SLACKCONNECT_SLACK_CLIENT_ID", "1234.5678")
	t.Setenv("SLACKCONNECT_REDIRECT_URL", "https://example.com/cb")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLACKCONNECT_SLACK_CLIENT_SECRET")
}

func TestLoad_MissingRedirectURL(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SLACKCONNECT_SLACK_CLIENT_ID", "1234.5678")
	t.Setenv("SLACKCONNECT_SLACK_CLIENT_SECRET", "shhh")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLACKCONNECT_REDIRECT_URL")
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("SLACKCONNECT_POLL_INTERVAL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLACKCONNECT_POLL_INTERVAL")
}

func TestLoad_NegativePollInterval(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("SLACKCONNECT_POLL_INTERVAL", "-10s")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLACKCONNECT_POLL_INTERVAL")
}

func TestLoad_SecretKey_Absent(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Nil(t, cfg.SecretKey)
}

func TestLoad_SecretKey_Valid(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	// 64 hex chars = 32 bytes
	t.Setenv("SLACKCONNECT_SECRET_KEY", "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.SecretKey, 32)
}

func TestLoad_SecretKey_TooShort(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("SLACKCONNECT_SECRET_KEY", "deadbeef")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLACKCONNECT_SECRET_KEY")
}

func TestLoad_SecretKey_NotHex(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	// 64 chars but not valid hex
	t.Setenv("SLACKCONNECT_SECRET_KEY", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLACKCONNECT_SECRET_KEY")
}
