// Package config centralizes how PhotoDrop reads environment variables and
// exposes them as strongly typed Go values. Both the server and the sync
// client load the same struct; each side only validates the fields it uses.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"photodrop/internal/hmacauth"
)

// Config represents runtime configuration for the server, client, and ingest
// worker. The shared secret is loaded once here and treated as immutable for
// the lifetime of the process.
type Config struct {
	// Server side.
	Address      string
	SharedSecret string

	// Catalog + blob store (catalog mode and ingest pipeline).
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Region      string
	S3UseSSL      bool
	MediaBucket   string

	// Dev-mode server: directory scanned into the in-memory library.
	MediaDir string

	// Client side.
	ServerURL      string
	DownloadDir    string
	StateFile      string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	MaxAttempts    int

	// Ingest worker concurrency.
	IngestWorkers int
}

const (
	defaultAddress      = ":8080"
	defaultServerURL    = "http://localhost:8080"
	defaultDownloadDir  = "./downloads"
	defaultStateFile    = "./.sync_state"
	defaultPollHours    = 1
	defaultTimeoutSecs  = 300 // large downloads need headroom
	defaultMaxAttempts  = 3
	defaultMediaBucket  = "photodrop-media"
	defaultIngestWorker = 2
)

// ErrInsecureSecret is returned when the deployed secret is empty or still the
// development placeholder. The server fails closed on it.
var ErrInsecureSecret = errors.New("shared secret is empty or the development placeholder; set PHOTODROP_SECRET")

// Load reads configuration from environment variables falling back to
// defaults. It follows Go's convention of returning (value, error) so callers
// can handle failures rather than panicking.
func Load() (*Config, error) {
	cfg := &Config{
		Address:      readEnv("PHOTODROP_ADDRESS", defaultAddress),
		SharedSecret: readEnv("PHOTODROP_SECRET", hmacauth.PlaceholderSecret),

		DatabaseURL:   readEnv("PHOTODROP_DATABASE_URL", ""),
		RedisAddr:     readEnv("PHOTODROP_REDIS_ADDR", "localhost:6379"),
		RedisPassword: readEnv("PHOTODROP_REDIS_PASSWORD", ""),
		RedisDB:       parseInt("PHOTODROP_REDIS_DB", 0),
		S3Endpoint:    readEnv("PHOTODROP_S3_ENDPOINT", "localhost:9000"),
		S3AccessKey:   readEnv("PHOTODROP_S3_ACCESS_KEY", ""),
		S3SecretKey:   readEnv("PHOTODROP_S3_SECRET_KEY", ""),
		S3Region:      readEnv("PHOTODROP_S3_REGION", "us-east-1"),
		S3UseSSL:      parseBool("PHOTODROP_S3_USE_SSL", false),
		MediaBucket:   readEnv("PHOTODROP_MEDIA_BUCKET", defaultMediaBucket),

		MediaDir: readEnv("PHOTODROP_MEDIA_DIR", ""),

		ServerURL:      readEnv("PHOTODROP_SERVER_URL", defaultServerURL),
		DownloadDir:    readEnv("PHOTODROP_DOWNLOAD_DIR", defaultDownloadDir),
		StateFile:      readEnv("PHOTODROP_STATE_FILE", defaultStateFile),
		PollInterval:   time.Duration(parseInt("PHOTODROP_POLL_INTERVAL", defaultPollHours)) * time.Hour,
		RequestTimeout: time.Duration(parseInt("PHOTODROP_TIMEOUT", defaultTimeoutSecs)) * time.Second,
		MaxAttempts:    parseInt("PHOTODROP_MAX_RETRIES", defaultMaxAttempts),

		IngestWorkers: parseInt("PHOTODROP_WORKERS", defaultIngestWorker),
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollHours * time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeoutSecs * time.Second
	}
	if cfg.IngestWorkers <= 0 {
		cfg.IngestWorkers = defaultIngestWorker
	}
	return cfg, nil
}

// ValidateServerSecret enforces the fail-closed rule: serving authenticated
// routes with the placeholder (or no) secret is a configuration error, never a
// silent fallback.
func (c *Config) ValidateServerSecret() error {
	if c.SharedSecret == "" || c.SharedSecret == hmacauth.PlaceholderSecret {
		return ErrInsecureSecret
	}
	return nil
}

// UsingPlaceholderSecret reports whether the client is still on the
// development default. The client may proceed against a local dev server but
// should warn loudly.
func (c *Config) UsingPlaceholderSecret() bool {
	return c.SharedSecret == hmacauth.PlaceholderSecret
}

func readEnv(key, def string) string {
	// LookupEnv returns (value, true) when the variable is present, mirroring
	// Go's pattern of providing extra information via multiple return values.
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) int {
	// strconv.Atoi converts strings to integers; Go treats errors as values so
	// we simply ignore invalid input and return the default.
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
