// Package config loads runtime configuration for the API.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	toml "github.com/pelletier/go-toml/v2"

	"supplierhub/internal/utils"
)

const EnvProduction = "production"

type Config struct {
	Environment string        `toml:"environment"`
	Port        int           `toml:"port"`
	Mongo       MongoConfig   `toml:"mongo"`
	Auth        AuthConfig    `toml:"auth"`
	Limits      LimitsConfig  `toml:"limits"`
	Cleanup     CleanupConfig `toml:"cleanup"`
	Notify      NotifyConfig  `toml:"notify"`
	Logging     LoggingConfig `toml:"logging"`
	CORS        CORSConfig    `toml:"cors"`
	// TrustedProxies lists proxy addresses or CIDR ranges whose
	// X-Forwarded-For header is believed. Empty means rate limits key on
	// the direct peer address.
	TrustedProxies []string `toml:"trusted_proxies"`
}

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// AuthConfig holds token and OTP settings. Durations are Go duration strings.
type AuthConfig struct {
	JWTSecret        string `toml:"jwt_secret"`
	OTPTTL           string `toml:"otp_ttl"`
	TokenTTL         string `toml:"token_ttl"`
	PasswordTokenTTL string `toml:"password_token_ttl"`
	RevocationGrace  string `toml:"revocation_grace"`
}

type LimitsConfig struct {
	OTPRequestMax    int     `toml:"otp_request_max"`
	OTPRequestWindow string  `toml:"otp_request_window"`
	OTPVerifyMax     int     `toml:"otp_verify_max"`
	OTPVerifyWindow  string  `toml:"otp_verify_window"`
	GlobalRPS        float64 `toml:"global_rps"`
	GlobalBurst      int     `toml:"global_burst"`
}

type CleanupConfig struct {
	Interval         string `toml:"interval"`
	BlacklistMax     int    `toml:"blacklist_max"`
	BlacklistBackend string `toml:"blacklist_backend"` // "memory" or "mongo"
}

type NotifyConfig struct {
	WhatsAppURL       string  `toml:"whatsapp_url"`
	WhatsAppAPIKey    string  `toml:"whatsapp_api_key"`
	WhatsAppRateLimit float64 `toml:"whatsapp_rate_limit"`
	SMTPHost          string  `toml:"smtp_host"`
	SMTPPort          int     `toml:"smtp_port"`
	SMTPUsername      string  `toml:"smtp_username"`
	SMTPPassword      string  `toml:"smtp_password"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

func NewDefault() *Config {
	return &Config{
		Environment: "development",
		Port:        8080,
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "supplierhub",
		},
		Auth: AuthConfig{
			JWTSecret:        "dev-jwt-secret-change-in-production",
			OTPTTL:           "10m",
			TokenTTL:         "168h",
			PasswordTokenTTL: "1h",
			RevocationGrace:  "60s",
		},
		Limits: LimitsConfig{
			OTPRequestMax:    5,
			OTPRequestWindow: "15m",
			OTPVerifyMax:     10,
			OTPVerifyWindow:  "15m",
			GlobalRPS:        10,
			GlobalBurst:      20,
		},
		Cleanup: CleanupConfig{
			Interval:         "1h",
			BlacklistMax:     10000,
			BlacklistBackend: "memory",
		},
		Notify: NotifyConfig{
			WhatsAppRateLimit: 5,
			SMTPPort:          587,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration from defaults, then each TOML file in order
// (missing files are skipped), then environment variables.
func Load(paths ...string) (*Config, error) {
	cfg := NewDefault()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Environment, "APP_ENV")
	setInt(&cfg.Port, "PORT")

	setString(&cfg.Mongo.URI, "MONGO_URI")
	setString(&cfg.Mongo.Database, "MONGO_DATABASE")

	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.OTPTTL, "OTP_TTL")
	setString(&cfg.Auth.TokenTTL, "TOKEN_TTL")
	setString(&cfg.Auth.PasswordTokenTTL, "PASSWORD_TOKEN_TTL")
	setString(&cfg.Auth.RevocationGrace, "REVOCATION_GRACE")

	setInt(&cfg.Limits.OTPRequestMax, "OTP_REQUEST_LIMIT")
	setString(&cfg.Limits.OTPRequestWindow, "OTP_REQUEST_WINDOW")
	setInt(&cfg.Limits.OTPVerifyMax, "OTP_VERIFY_LIMIT")
	setString(&cfg.Limits.OTPVerifyWindow, "OTP_VERIFY_WINDOW")
	setFloat(&cfg.Limits.GlobalRPS, "GLOBAL_RATE_LIMIT")
	setInt(&cfg.Limits.GlobalBurst, "GLOBAL_RATE_BURST")

	setString(&cfg.Cleanup.Interval, "CLEANUP_INTERVAL")
	setInt(&cfg.Cleanup.BlacklistMax, "BLACKLIST_MAX")
	setString(&cfg.Cleanup.BlacklistBackend, "BLACKLIST_BACKEND")

	setString(&cfg.Notify.WhatsAppURL, "WHATSAPP_API_URL")
	setString(&cfg.Notify.WhatsAppAPIKey, "WHATSAPP_API_KEY")
	setFloat(&cfg.Notify.WhatsAppRateLimit, "WHATSAPP_RATE_LIMIT")
	setString(&cfg.Notify.SMTPHost, "SMTP_HOST")
	setInt(&cfg.Notify.SMTPPort, "SMTP_PORT")
	setString(&cfg.Notify.SMTPUsername, "SMTP_USERNAME")
	setString(&cfg.Notify.SMTPPassword, "SMTP_PASSWORD")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	setList(&cfg.CORS.AllowedOrigins, "ALLOWED_ORIGINS")
	setList(&cfg.TrustedProxies, "TRUSTED_PROXIES")
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	*dst = nil
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*dst = append(*dst, item)
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// Validate rejects configurations that would run insecurely or not at all.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT secret is required")
	}
	if c.IsProduction() && c.Auth.JWTSecret == NewDefault().Auth.JWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.Mongo.URI == "" {
		return errors.New("MONGO_URI is required")
	}
	switch c.Cleanup.BlacklistBackend {
	case "memory", "mongo":
	default:
		return fmt.Errorf("unknown blacklist backend %q", c.Cleanup.BlacklistBackend)
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"OTP_TTL", c.Auth.GetOTPTTL()},
		{"TOKEN_TTL", c.Auth.GetTokenTTL()},
		{"PASSWORD_TOKEN_TTL", c.Auth.GetPasswordTokenTTL()},
		{"OTP_REQUEST_WINDOW", c.Limits.GetOTPRequestWindow()},
		{"OTP_VERIFY_WINDOW", c.Limits.GetOTPVerifyWindow()},
		{"CLEANUP_INTERVAL", c.Cleanup.GetInterval()},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be a positive duration", d.name)
		}
	}

	if _, err := utils.NewIPResolver(c.TrustedProxies); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *AuthConfig) GetOTPTTL() time.Duration {
	return parseDuration(c.OTPTTL, 10*time.Minute)
}

func (c *AuthConfig) GetTokenTTL() time.Duration {
	return parseDuration(c.TokenTTL, 7*24*time.Hour)
}

func (c *AuthConfig) GetPasswordTokenTTL() time.Duration {
	return parseDuration(c.PasswordTokenTTL, time.Hour)
}

func (c *AuthConfig) GetRevocationGrace() time.Duration {
	return parseDuration(c.RevocationGrace, 60*time.Second)
}

func (c *LimitsConfig) GetOTPRequestWindow() time.Duration {
	return parseDuration(c.OTPRequestWindow, 15*time.Minute)
}

func (c *LimitsConfig) GetOTPVerifyWindow() time.Duration {
	return parseDuration(c.OTPVerifyWindow, 15*time.Minute)
}

func (c *CleanupConfig) GetInterval() time.Duration {
	return parseDuration(c.Interval, time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
