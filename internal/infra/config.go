package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	DataDir       string
	PendingDir    string
	UnapprovedDir string
	OriginalDir   string
	RawDir        string
	CacheDir      string

	// APIKeyHashes holds argon2id PHC strings; a presented bearer key is
	// accepted when it matches any of them.
	APIKeyHashes []string

	CORSAllowedOrigins []string

	MaxUploadBytes   int64
	PendingRetention time.Duration
	SweepInterval    time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "3000"),
		DataDir:            dataDir,
		PendingDir:         filepath.Join(dataDir, "pending"),
		UnapprovedDir:      filepath.Join(dataDir, "unapproved"),
		OriginalDir:        filepath.Join(dataDir, "originals"),
		RawDir:             filepath.Join(dataDir, "raw"),
		CacheDir:           filepath.Join(dataDir, "cache"),
		APIKeyHashes:       splitList(os.Getenv("API_KEY_HASHES")),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", 12*1024*1024),
		PendingRetention:   time.Second * time.Duration(getEnvInt("PENDING_RETENTION_SECONDS", 3600)),
		SweepInterval:      time.Second * time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 900)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if len(cfg.APIKeyHashes) == 0 {
		return nil, fmt.Errorf("API_KEY_HASHES is required")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}
