package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Admin     AdminConfig     `yaml:"admin"`
	Sentry    SentryConfig    `yaml:"sentry"`
	Reset     ResetConfig     `yaml:"password_reset"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           string   `yaml:"port"`
	Mode           string   `yaml:"mode"` // debug, release, test
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// JWTConfig configures token signing and lifetimes.
// A negative TTL issues tokens that never expire and is only accepted when
// AllowNonExpiring is set.
type JWTConfig struct {
	Secret           string `yaml:"secret"`
	AccessTTLMs      int64  `yaml:"access_ttl_ms"`
	RefreshTTLMs     int64  `yaml:"refresh_ttl_ms"`
	AllowNonExpiring bool   `yaml:"allow_non_expiring"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// RateLimitConfig applies to the public auth routes (register, login, refresh).
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type SchedulerConfig struct {
	TokenSweep       string `yaml:"token_sweep"`        // cron spec
	LogCleanup       string `yaml:"log_cleanup"`        // cron spec
	LogRetentionDays int    `yaml:"log_retention_days"` // <= 0 disables cleanup
}

// AdminConfig seeds a default administrator when both fields are set.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// ResetConfig controls forgot-password links. The token is appended to URL
// as the "token" query parameter.
type ResetConfig struct {
	URL   string `yaml:"url"`
	TTLMs int64  `yaml:"ttl_ms"`
}

// TTL returns the lifetime of a reset token.
func (c *ResetConfig) TTL() time.Duration {
	return time.Duration(c.TTLMs) * time.Millisecond
}

func (c *ResetConfig) Validate() error {
	if c.TTLMs < 1000 || c.TTLMs > maxTTLMs {
		return fmt.Errorf("password_reset.ttl_ms must be between 1000 and %d", maxTTLMs)
	}
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("password_reset.url is required")
	}
	return nil
}

type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// maxTTLMs is the largest lifetime in milliseconds a time.Duration can hold.
const maxTTLMs = math.MaxInt64 / int64(time.Millisecond)

// AccessTTL returns the access token lifetime. Negative means never expires.
func (c *JWTConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMs) * time.Millisecond
}

// RefreshTTL returns the refresh token lifetime. Negative means never expires.
func (c *JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLMs) * time.Millisecond
}

func (c *JWTConfig) Validate() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("jwt.secret is required")
	}
	for name, ttl := range map[string]int64{"access_ttl_ms": c.AccessTTLMs, "refresh_ttl_ms": c.RefreshTTLMs} {
		if ttl > maxTTLMs || ttl < -maxTTLMs {
			return fmt.Errorf("jwt.%s is out of range (max %d)", name, maxTTLMs)
		}
		if ttl < 0 && !c.AllowNonExpiring {
			return fmt.Errorf("jwt.%s is negative (non-expiring tokens) but jwt.allow_non_expiring is not set", name)
		}
		if ttl >= 0 && ttl < 1000 {
			return fmt.Errorf("jwt.%s must be at least 1000", name)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.JWT.Validate(); err != nil {
		return err
	}
	if err := c.Reset.Validate(); err != nil {
		return err
	}
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	return nil
}

// Load reads configPath (default config.yaml) if present, then applies .env and
// environment overrides, then validates the result.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg.overrideFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           "8000",
			Mode:           "debug",
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "webcrawler.db",
		},
		JWT: JWTConfig{
			AccessTTLMs:  int64(time.Hour / time.Millisecond),
			RefreshTTLMs: int64(7 * 24 * time.Hour / time.Millisecond),
		},
		Log: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
		Scheduler: SchedulerConfig{
			TokenSweep:       "@every 10m",
			LogCleanup:       "@daily",
			LogRetentionDays: 30,
		},
		Sentry: SentryConfig{
			Environment: "development",
		},
		Reset: ResetConfig{
			URL:   "http://localhost:8000/reset-password",
			TTLMs: 300000,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if origins := os.Getenv("SERVER_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitAndTrim(origins, ",")
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if v, ok := envInt64("JWT_ACCESS_TTL_MS"); ok {
		c.JWT.AccessTTLMs = v
	}
	if v, ok := envInt64("JWT_REFRESH_TTL_MS"); ok {
		c.JWT.RefreshTTLMs = v
	}
	if v := os.Getenv("JWT_ALLOW_NON_EXPIRING"); v != "" {
		c.JWT.AllowNonExpiring, _ = strconv.ParseBool(v)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		c.Admin.Email = email
	}
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		c.Admin.Password = password
	}
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		c.Sentry.DSN = dsn
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		c.Sentry.Environment = env
	}
	if u := os.Getenv("PASSWORD_RESET_URL"); u != "" {
		c.Reset.URL = u
	}
	if v, ok := envInt64("PASSWORD_RESET_TTL_MS"); ok {
		c.Reset.TTLMs = v
	}
}

func envInt64(key string) (int64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
