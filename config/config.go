// Package config loads service configuration from the environment.
package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	HTTP        HTTPConfig
	DB          DBConfig
	EmailChange EmailChangeConfig
	Memberstack MemberstackConfig
	SendGrid    SendGridConfig
	Stripe      StripeConfig
}

type AppConfig struct {
	Debug    bool   `env:"APP_DEBUG" env-default:"false"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

type HTTPConfig struct {
	Addr       string `env:"HTTP_ADDR" env-default:":3000"`
	CORSOrigin string `env:"CORS_ORIGIN" env-default:"https://vsfund.webflow.io"`
}

type DBConfig struct {
	DSN string `env:"DATABASE_URL" env-required:"true"`
}

type EmailChangeConfig struct {
	TTL           time.Duration `env:"EMAIL_CHANGE_TTL" env-default:"1h"`
	SweepInterval time.Duration `env:"EMAIL_CHANGE_SWEEP_INTERVAL" env-default:"1h"`
	SuccessURL    string        `env:"EMAIL_CHANGE_SUCCESS_URL" env-default:"https://vsfund.webflow.io/email-change-done"`
	FailureURL    string        `env:"EMAIL_CHANGE_FAILURE_URL" env-default:"https://vsfund.webflow.io/email-change-failed"`
}

type MemberstackConfig struct {
	APIKey  string        `env:"MEMBERSTACK_API_KEY" env-required:"true"`
	BaseURL string        `env:"MEMBERSTACK_BASE_URL" env-default:"https://admin.memberstack.com"`
	Timeout time.Duration `env:"MEMBERSTACK_TIMEOUT" env-default:"10s"`
}

// SendGridConfig is optional: without an API key the server logs confirmation
// links instead of mailing them.
type SendGridConfig struct {
	APIKey     string `env:"SENDGRID_API_KEY"`
	FromName   string `env:"SENDGRID_FROM_NAME" env-default:"VS Fund"`
	FromEmail  string `env:"SENDGRID_FROM_EMAIL"`
	ConfirmURL string `env:"EMAIL_CHANGE_CONFIRM_URL" env-default:"https://vsfund.webflow.io/email-change-confirm"`
}

// StripeConfig is optional: without a secret key the change-plan endpoint is
// not mounted.
type StripeConfig struct {
	SecretKey string `env:"STRIPE_SECRET_KEY"`
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
