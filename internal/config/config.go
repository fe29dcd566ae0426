// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	Production       = "production"
	defaultJWTSecret = "your-secret-key-change-in-production"
)

type Config struct {
	Environment  string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Redis        RedisConfig
	AWS          AWSConfig
	Payment      PaymentConfig
	Email        EmailConfig
	SMS          SMSConfig
	Notification NotificationConfig
	I18n         I18nConfig
	Frontend     FrontendConfig
}

type FrontendConfig struct {
	BaseURL string `env:"FRONTEND_BASE_URL" envDefault:"http://localhost:3000"`
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	Host            string        `env:"SERVER_HOST" envDefault:"localhost"`
	ReadTimeout     int           `env:"SERVER_READ_TIMEOUT" envDefault:"15"`
	WriteTimeout    int           `env:"SERVER_WRITE_TIMEOUT" envDefault:"15"`
	IdleTimeout     int           `env:"SERVER_IDLE_TIMEOUT" envDefault:"60"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
}

type DatabaseConfig struct {
	Host         string `env:"DB_HOST" envDefault:"localhost"`
	Port         string `env:"DB_PORT" envDefault:"5432"`
	User         string `env:"DB_USER" envDefault:"postgres"`
	Password     string `env:"DB_PASSWORD"`
	Database     string `env:"DB_NAME" envDefault:"trademark"`
	SSLMode      string `env:"DB_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	MaxLifetime  int    `env:"DB_MAX_LIFETIME" envDefault:"300"`
	LogLevel     string `env:"DB_LOG_LEVEL" envDefault:"warn"`
}

type JWTConfig struct {
	SecretKey string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	Issuer    string `env:"JWT_ISSUER"`
}

type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Host     string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string        `env:"REDIS_PORT" envDefault:"6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	LockTTL  time.Duration `env:"REDIS_LOCK_TTL" envDefault:"15s"`
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type AWSConfig struct {
	Region          string `env:"AWS_REGION" envDefault:"ap-northeast-2"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

type PaymentConfig struct {
	StripeSecretKey      string `env:"STRIPE_SECRET_KEY"`
	StripePublishableKey string `env:"STRIPE_PUBLISHABLE_KEY"`
	StripeWebhookSecret  string `env:"STRIPE_WEBHOOK_SECRET"`
	DefaultCurrency      string `env:"PAYMENT_DEFAULT_CURRENCY" envDefault:"KRW"`
	FilingFee            string `env:"PAYMENT_FILING_FEE"`
	DueInDays            int    `env:"PAYMENT_DUE_IN_DAYS" envDefault:"7"`
}

type EmailConfig struct {
	Provider     string `env:"EMAIL_PROVIDER" envDefault:"smtp"` // smtp or ses
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	FromEmail    string `env:"FROM_EMAIL" envDefault:"noreply@trademark.local"`
	FromName     string `env:"FROM_NAME" envDefault:"Trademark Desk"`
}

type SMSConfig struct {
	Enabled  bool   `env:"SMS_ENABLED" envDefault:"false"`
	SenderID string `env:"SMS_SENDER_ID"`
}

type NotificationConfig struct {
	OpsEmail       string        `env:"OPS_EMAIL"`
	MaxAttempts    uint64        `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`
	BaseDelay      time.Duration `env:"NOTIFY_BASE_DELAY" envDefault:"400ms"`
	AttemptTimeout time.Duration `env:"NOTIFY_ATTEMPT_TIMEOUT" envDefault:"10s"`
	DispatchBudget time.Duration `env:"NOTIFY_DISPATCH_BUDGET" envDefault:"2m"`
}

type I18nConfig struct {
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"en"`
}

// Load reads .env files when present and parses the environment.
func Load() (*Config, error) {
	for _, file := range []string{".env", ".env.local"} {
		if _, err := os.Stat(file); err == nil {
			if err := godotenv.Load(file); err != nil {
				return nil, fmt.Errorf("load %s: %w", file, err)
			}
		}
	}

	return Parse(nil)
}

// Parse builds a Config from environ, or from the process environment when
// environ is nil.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == defaultJWTSecret && c.IsProduction() {
		return errors.New("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.IsProduction() {
		return errors.New("database password is required in production")
	}

	if c.Email.Provider != "smtp" && c.Email.Provider != "ses" {
		return fmt.Errorf("EMAIL_PROVIDER must be 'smtp' or 'ses', got %q", c.Email.Provider)
	}

	if c.Notification.MaxAttempts == 0 {
		return errors.New("NOTIFY_MAX_ATTEMPTS must be at least 1")
	}

	if c.Payment.StripeSecretKey != "" && c.Payment.StripeWebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is required when Stripe is enabled")
	}

	return nil
}
