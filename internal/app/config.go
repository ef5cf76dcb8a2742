package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	QBTURL      string `yaml:"qbt_url"`
	QBTUsername string `yaml:"qbt_username"`
	QBTPassword string `yaml:"qbt_password"`
	RemoteURL   string `yaml:"remote_url"`

	PollInterval   time.Duration `yaml:"poll_interval"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	ShutdownDelay  time.Duration `yaml:"shutdown_delay"`
	ShutdownDryRun bool          `yaml:"shutdown_dry_run"`

	StatusHTTPAddr string `yaml:"status_http_addr"` // empty = disabled

	MongoURI         string        `yaml:"mongo_uri"` // empty = no journal
	MongoDatabase    string        `yaml:"mongo_db"`
	MongoCollection  string        `yaml:"mongo_collection"`
	JournalRetention time.Duration `yaml:"journal_retention"` // 0 = keep forever

	RedisURL       string        `yaml:"redis_url"` // empty = no mirror
	RedisKeyPrefix string        `yaml:"redis_key_prefix"`
	RedisTTL       time.Duration `yaml:"redis_ttl"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	OTelEndpoint   string  `yaml:"otel_endpoint"`
	OTelSampleRate float64 `yaml:"otel_sample_rate"`
}

func Defaults() Config {
	return Config{
		QBTURL:          "http://127.0.0.1:8080",
		QBTUsername:     "admin",
		PollInterval:    5 * time.Minute,
		HTTPTimeout:     30 * time.Second,
		ShutdownDelay:   60 * time.Second,
		MongoDatabase:   "torrentstream",
		MongoCollection: "bridge_cycles",
		RedisKeyPrefix:  "bridge:",
		RedisTTL:        24 * time.Hour,
		LogLevel:        "info",
		LogFormat:       "text",
		OTelSampleRate:  1,
	}
}

// LoadConfig returns the defaults overridden by the environment.
func LoadConfig() Config {
	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

// Load builds the configuration from, in increasing precedence: defaults,
// the YAML file named by --config or BRIDGE_CONFIG, the environment, and
// command-line flags. The result is validated.
func Load(args []string) (Config, error) {
	flagSet := pflag.NewFlagSet("bridge", pflag.ContinueOnError)
	overrides := registerFlags(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Defaults()
	path := overrides.configPath
	if path == "" {
		path = strings.TrimSpace(os.Getenv("BRIDGE_CONFIG"))
	}
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	overrides.apply(flagSet, &cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile merges the YAML document at path into cfg. Keys absent from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if err := validateURL("qbt_url", c.QBTURL); err != nil {
		errs = append(errs, err)
	}
	if err := validateURL("remote_url", c.RemoteURL); err != nil {
		errs = append(errs, err)
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout))
	}
	if c.ShutdownDelay <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_delay must be positive, got %s", c.ShutdownDelay))
	}
	if c.JournalRetention < 0 || (c.JournalRetention > 0 && c.JournalRetention < time.Second) {
		errs = append(errs, fmt.Errorf("journal_retention must be 0 or at least 1s, got %s", c.JournalRetention))
	}
	return errors.Join(errs...)
}

func validateURL(name, raw string) error {
	value := strings.TrimSpace(raw)
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, value)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.QBTURL = getEnv("QBT_URL", cfg.QBTURL)
	cfg.QBTUsername = getEnv("QBT_USERNAME", cfg.QBTUsername)
	cfg.QBTPassword = getEnv("QBT_PASSWORD", cfg.QBTPassword)
	cfg.RemoteURL = getEnv("REMOTE_URL", cfg.RemoteURL)
	cfg.PollInterval = getEnvDuration("POLL_INTERVAL", cfg.PollInterval)
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.ShutdownDelay = getEnvDuration("SHUTDOWN_DELAY", cfg.ShutdownDelay)
	cfg.ShutdownDryRun = getEnvBool("SHUTDOWN_DRY_RUN", cfg.ShutdownDryRun)
	cfg.StatusHTTPAddr = getEnv("STATUS_HTTP_ADDR", cfg.StatusHTTPAddr)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGO_DB", cfg.MongoDatabase)
	cfg.MongoCollection = getEnv("MONGO_COLLECTION", cfg.MongoCollection)
	cfg.JournalRetention = getEnvDuration("JOURNAL_RETENTION", cfg.JournalRetention)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RedisKeyPrefix = getEnv("REDIS_KEY_PREFIX", cfg.RedisKeyPrefix)
	cfg.RedisTTL = getEnvDuration("REDIS_TTL", cfg.RedisTTL)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))
	cfg.OTelEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTelEndpoint)
	cfg.OTelSampleRate = getEnvFloat("OTEL_TRACE_SAMPLE_RATE", cfg.OTelSampleRate)
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed < 0 || parsed > 1 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
