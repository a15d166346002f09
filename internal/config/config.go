package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Catalog    CatalogConfig    `validate:"required"`
	Stripe     StripeConfig
	Cache      CacheConfig
	Webhook    WebhookConfig
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string `validate:"required"`
	Port                   int    `validate:"required"`
	User                   string `validate:"required"`
	Password               string
	DBName                 string `validate:"required"`
	SSLMode                string `validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" default:"10"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" default:"60"`
}

// CatalogConfig points at the plan catalog definition file loaded at startup
type CatalogConfig struct {
	Path string `validate:"required"`
}

type StripeConfig struct {
	SecretKey       string `mapstructure:"secret_key"`
	WebhookSecret   string `mapstructure:"webhook_secret"`
	SuccessURL      string `mapstructure:"success_url"`
	CancelURL       string `mapstructure:"cancel_url"`
	PortalReturnURL string `mapstructure:"portal_return_url"`
}

type CacheConfig struct {
	Enabled           bool          `default:"true"`
	DefaultExpiration time.Duration `mapstructure:"default_expiration" default:"5m"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval" default:"10m"`
}

type WebhookConfig struct {
	Enabled         bool          `default:"true"`
	Topic           string        `default:"webhooks"`
	PubSub          string        `default:"memory"`
	MaxRetries      int           `mapstructure:"max_retries" default:"3"`
	InitialInterval time.Duration `mapstructure:"initial_interval" default:"1s"`
	MaxInterval     time.Duration `mapstructure:"max_interval" default:"10s"`
	Multiplier      float64       `default:"2.0"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time" default:"2m"`
	Timeout         time.Duration `default:"10s"`
	// Endpoints maps tenant id to outbound webhook delivery settings
	Endpoints map[string]TenantWebhookConfig `mapstructure:"endpoints"`
}

type TenantWebhookConfig struct {
	URL            string            `mapstructure:"url"`
	Headers        map[string]string `mapstructure:"headers"`
	Enabled        bool              `mapstructure:"enabled"`
	ExcludedEvents []string          `mapstructure:"excluded_events"`
}

type SentryConfig struct {
	Enabled     bool    `default:"false"`
	DSN         string
	Environment string
	SampleRate  float64 `mapstructure:"sample_rate" default:"1.0"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/vendorgraph")

	v.SetEnvPrefix("VENDORGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests that do not need a config file
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Catalog:    CatalogConfig{Path: "./config/catalog.yaml"},
		Cache: CacheConfig{
			Enabled:           true,
			DefaultExpiration: 5 * time.Minute,
			CleanupInterval:   10 * time.Minute,
		},
		Webhook: WebhookConfig{
			Enabled:         true,
			Topic:           "webhooks",
			PubSub:          "memory",
			MaxRetries:      3,
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
			Multiplier:      2.0,
			MaxElapsedTime:  2 * time.Minute,
			Timeout:         10 * time.Second,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
