package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	BaseURL string
	WSURL   string

	CredentialStore   string // file, redis or memory
	CredentialFile    string
	CredentialProfile string
	RedisURL          string

	DefaultMode        string
	DefaultTimeControl string

	MessagesDir     string
	ExportDir       string
	StrictSnapshots bool

	HTTPTimeout    time.Duration
	HTTPRetryMax   int
	WSPingInterval time.Duration
}

// Load reads the environment, preloading ENV_FILE (default .env) when it
// exists. Variables already set in the environment win over the file.
func Load() (*AppConfig, error) {
	envFile := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &AppConfig{
		CredentialStore:    "file",
		CredentialProfile:  "default",
		DefaultMode:        "solo",
		DefaultTimeControl: "5+0",
		HTTPTimeout:        10 * time.Second,
		HTTPRetryMax:       3,
		WSPingInterval:     30 * time.Second,
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("TSC_BASE_URL")), "/")
	cfg.WSURL = strings.TrimSpace(os.Getenv("TSC_WS_URL"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("CREDENTIAL_STORE"))); v != "" {
		cfg.CredentialStore = v
	}
	cfg.CredentialFile = strings.TrimSpace(os.Getenv("CREDENTIAL_FILE"))
	if v := strings.TrimSpace(os.Getenv("CREDENTIAL_PROFILE")); v != "" {
		cfg.CredentialProfile = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("DEFAULT_MODE"))); v != "" {
		cfg.DefaultMode = v
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_TIME_CONTROL")); v != "" {
		cfg.DefaultTimeControl = v
	}

	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	cfg.ExportDir = strings.TrimSpace(os.Getenv("EXPORT_DIR"))
	if v := strings.TrimSpace(os.Getenv("STRICT_SNAPSHOTS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.StrictSnapshots = b
		}
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_RETRY_MAX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPRetryMax = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_PING_INTERVAL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WSPingInterval = time.Duration(n) * time.Second
		}
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("TSC_BASE_URL is required")
	}
	if cfg.WSURL == "" {
		ws, err := DeriveWSURL(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		cfg.WSURL = ws
	}

	switch cfg.CredentialStore {
	case "file":
		if cfg.CredentialFile == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve home for CREDENTIAL_FILE: %w", err)
			}
			cfg.CredentialFile = filepath.Join(home, ".tsc", "credential")
		}
	case "redis":
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required when CREDENTIAL_STORE=redis")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("CREDENTIAL_STORE must be file, redis or memory, got %q", cfg.CredentialStore)
	}

	if cfg.DefaultMode != "solo" && cfg.DefaultMode != "team" {
		return nil, fmt.Errorf("DEFAULT_MODE must be solo or team, got %q", cfg.DefaultMode)
	}

	return cfg, nil
}

// DeriveWSURL maps http(s)://host/prefix to ws(s)://host/ws.
func DeriveWSURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse TSC_BASE_URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("TSC_BASE_URL must be http or https, got %q", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
