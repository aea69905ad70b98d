// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	RateLimit       int           `yaml:"rate_limit"`        // requests per window per client IP
	RateLimitWindow time.Duration `yaml:"rate_limit_window"` // e.g. 15m
	TrustProxy      bool          `yaml:"trust_proxy"`       // honour CF-Connecting-IP / X-Forwarded-For
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"` // empty disables the payment ledger
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	CookieName   string        `yaml:"cookie_name"`
	CookieDomain string        `yaml:"cookie_domain"`
	SecureCookie bool          `yaml:"secure_cookie"`
	BcryptCost   int           `yaml:"bcrypt_cost"`
}

type ProviderConfig struct {
	MerchantID    string `yaml:"merchant_id"`
	APIURL        string `yaml:"api_url"` // empty returns the built request without calling out
	APIKey        string `yaml:"api_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type PaymentConfig struct {
	SessionTTL       time.Duration  `yaml:"session_ttl"`
	WebhookTolerance time.Duration  `yaml:"webhook_tolerance"`
	AllowAnonymous   bool           `yaml:"allow_anonymous"`
	FrontendURL      string         `yaml:"frontend_url"`
	APIBaseURL       string         `yaml:"api_base_url"`
	MerchantName     string         `yaml:"merchant_name"`
	ProviderTimeout  time.Duration  `yaml:"provider_timeout"`
	Mada             ProviderConfig `yaml:"mada"`
	STCPay           ProviderConfig `yaml:"stc_pay"`
	Stripe           ProviderConfig `yaml:"stripe"` // Apple Pay / Google Pay webhooks
	ApplePay         ProviderConfig `yaml:"apple_pay"`
	GooglePay        ProviderConfig `yaml:"google_pay"`
}

type SubscriptionConfig struct {
	Period time.Duration `yaml:"period"`
}

type AnalyticsConfig struct {
	Workers   int `yaml:"workers"`
	MaxEvents int `yaml:"max_events"` // cap of the global stream
}

type SchedulerConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Log          LogConfig          `yaml:"log"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Auth         AuthConfig         `yaml:"auth"`
	Payment      PaymentConfig      `yaml:"payment"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Analytics    AnalyticsConfig    `yaml:"analytics"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Security     SecurityConfig     `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, then a .env file next to the process
// (if present), then overrides secrets from the environment.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !(errors.Is(err, os.ErrNotExist) && dev) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str(&cfg.Auth.JWTSecret, "JWT_SECRET")
	str(&cfg.Redis.URL, "REDIS_URL")
	str(&cfg.Redis.Password, "REDIS_PASSWORD")
	str(&cfg.Database.URL, "DATABASE_URL")
	str(&cfg.Payment.Mada.WebhookSecret, "MADA_WEBHOOK_SECRET")
	str(&cfg.Payment.Mada.APIKey, "MADA_API_KEY")
	str(&cfg.Payment.Mada.MerchantID, "MADA_MERCHANT_ID")
	str(&cfg.Payment.STCPay.WebhookSecret, "STC_PAY_WEBHOOK_SECRET")
	str(&cfg.Payment.STCPay.APIKey, "STC_PAY_API_KEY")
	str(&cfg.Payment.STCPay.MerchantID, "STC_PAY_MERCHANT_ID")
	str(&cfg.Payment.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	str(&cfg.Payment.ApplePay.MerchantID, "APPLE_PAY_MERCHANT_ID")
	str(&cfg.Payment.FrontendURL, "FRONTEND_URL")
	str(&cfg.Payment.APIBaseURL, "API_BASE_URL")
	str(&cfg.Security.EncryptionKey, "ENCRYPTION_KEY")
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Port = p
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	cfg.HTTP.ReadTimeout = orDuration(cfg.HTTP.ReadTimeout, 10*time.Second)
	cfg.HTTP.WriteTimeout = orDuration(cfg.HTTP.WriteTimeout, 15*time.Second)
	cfg.HTTP.RequestTimeout = orDuration(cfg.HTTP.RequestTimeout, 10*time.Second)
	cfg.HTTP.ShutdownTimeout = orDuration(cfg.HTTP.ShutdownTimeout, 10*time.Second)
	if cfg.HTTP.RateLimit <= 0 {
		cfg.HTTP.RateLimit = 100
	}
	cfg.HTTP.RateLimitWindow = orDuration(cfg.HTTP.RateLimitWindow, 15*time.Minute)

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	cfg.Auth.TokenTTL = orDuration(cfg.Auth.TokenTTL, 24*time.Hour)
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "auth-token"
	}

	cfg.Payment.SessionTTL = orDuration(cfg.Payment.SessionTTL, 30*time.Minute)
	cfg.Payment.WebhookTolerance = orDuration(cfg.Payment.WebhookTolerance, 5*time.Minute)
	cfg.Payment.ProviderTimeout = orDuration(cfg.Payment.ProviderTimeout, 15*time.Second)
	if cfg.Payment.MerchantName == "" {
		cfg.Payment.MerchantName = "Idea to Market"
	}
	cfg.Payment.FrontendURL = strings.TrimRight(cfg.Payment.FrontendURL, "/")
	cfg.Payment.APIBaseURL = strings.TrimRight(cfg.Payment.APIBaseURL, "/")

	cfg.Subscription.Period = orDuration(cfg.Subscription.Period, 30*24*time.Hour)

	if cfg.Analytics.Workers <= 0 {
		cfg.Analytics.Workers = 2
	}
	if cfg.Analytics.MaxEvents <= 0 {
		cfg.Analytics.MaxEvents = 10000
	}
	cfg.Scheduler.SweepInterval = orDuration(cfg.Scheduler.SweepInterval, 5*time.Minute)
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if k := len(c.Security.EncryptionKey); k != 0 && k != 16 && k != 24 && k != 32 {
		return fmt.Errorf("security.encryption_key must be 16, 24 or 32 bytes; got %d", k)
	}
	return nil
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
