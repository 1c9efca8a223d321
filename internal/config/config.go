package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	PaymentWebhookSecret string `env:"PAYMENT_WEBHOOK_SECRET,required" validate:"required"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required" validate:"required"`
	TopicsFile       string `env:"TOPICS_FILE" envDefault:"topics.yaml" validate:"required"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	SentryDSN string `env:"SENTRY_DSN"`

	RenewalDueDays   int    `env:"RENEWAL_DUE_DAYS" envDefault:"4" validate:"min=1,max=60"`
	DueScanInterval  string `env:"DUE_SCAN_INTERVAL" envDefault:"24h"`
	AdminBearerToken string `env:"ADMIN_BEARER_TOKEN"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	if !strings.Contains(c.TelegramBotToken, ":") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN must look like <bot_id>:<secret>")
	}

	return nil
}
