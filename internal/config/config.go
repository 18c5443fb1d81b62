// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	SlackClientID     string
	SlackClientSecret string
	RedirectURL       string
	FrontendURL       string
	PollInterval      time.Duration
	ListenAddr        string
	DBPath            string
	SecretKey         []byte // nil disables at-rest token encryption
}

// Load reads configuration from the environment and returns a validated
// Config. A .env file in the working directory is loaded first when present.
// Required variables: SLACKCONNECT_SLACK_CLIENT_ID, SLACKCONNECT_SLACK_CLIENT_SECRET,
// SLACKCONNECT_REDIRECT_URL. Optional variables with defaults:
// SLACKCONNECT_POLL_INTERVAL (60s), SLACKCONNECT_LISTEN_ADDR (127.0.0.1:8080),
// SLACKCONNECT_DB_PATH (slackconnect.db), SLACKCONNECT_FRONTEND_URL
// (http://localhost:3000). SLACKCONNECT_SECRET_KEY, when set, must be 64 hex
// characters and enables AES-256-GCM encryption of stored tokens.
func Load() (*Config, error) {
	// Missing .env is not an error; real deployments set variables directly.
	_ = godotenv.Load()

	clientID := os.Getenv("SLACKCONNECT_SLACK_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("SLACKCONNECT_SLACK_CLIENT_ID is required")
	}

	clientSecret := os.Getenv("SLACKCONNECT_SLACK_CLIENT_SECRET")
	if clientSecret == "" {
		return nil, fmt.Errorf("SLACKCONNECT_SLACK_CLIENT_SECRET is required")
	}

	redirectURL := os.Getenv("SLACKCONNECT_REDIRECT_URL")
	if redirectURL == "" {
		return nil, fmt.Errorf("SLACKCONNECT_REDIRECT_URL is required")
	}

	frontendURL := "http://localhost:3000"
	if v, ok := os.LookupEnv("SLACKCONNECT_FRONTEND_URL"); ok {
		frontendURL = v
	}

	pollInterval := 60 * time.Second
	if v, ok := os.LookupEnv("SLACKCONNECT_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SLACKCONNECT_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("SLACKCONNECT_POLL_INTERVAL must be positive, got %q", v)
		}
		pollInterval = parsed
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("SLACKCONNECT_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "slackconnect.db"
	if v, ok := os.LookupEnv("SLACKCONNECT_DB_PATH"); ok {
		dbPath = v
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("SLACKCONNECT_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("SLACKCONNECT_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("SLACKCONNECT_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		secretKey = key
	}

	return &Config{
		SlackClientID:     clientID,
		SlackClientSecret: clientSecret,
		RedirectURL:       redirectURL,
		FrontendURL:       frontendURL,
		PollInterval:      pollInterval,
		ListenAddr:        listenAddr,
		DBPath:            dbPath,
		SecretKey:         secretKey,
	}, nil
}
