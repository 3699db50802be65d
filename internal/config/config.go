package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Business  BusinessConfig  `mapstructure:"business"`
	Health    HealthConfig    `mapstructure:"health"`
}

type ServerConfig struct {
	Port         string `mapstructure:"SERVER_PORT"`
	Host         string `mapstructure:"SERVER_HOST"`
	Env          string `mapstructure:"ENV"`
	ReadTimeout  string `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout string `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"DATABASE_URL"`
	MaxOpenConns int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	MigrationDir string `mapstructure:"DATABASE_MIGRATION_DIR"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type GatewayConfig struct {
	BaseURL       string `mapstructure:"GATEWAY_BASE_URL"`
	KeyID         string `mapstructure:"GATEWAY_KEY_ID"`
	KeySecret     string `mapstructure:"GATEWAY_KEY_SECRET"`
	WebhookSecret string `mapstructure:"GATEWAY_WEBHOOK_SECRET"`
	Timeout       string `mapstructure:"GATEWAY_TIMEOUT"`
}

type SchedulerConfig struct {
	OverdueSpec  string `mapstructure:"SCHEDULER_OVERDUE_SPEC"`
	ReminderSpec string `mapstructure:"SCHEDULER_REMINDER_SPEC"`
	Timezone     string `mapstructure:"SCHEDULER_TIMEZONE"`
	LeaseTTL     string `mapstructure:"SCHEDULER_LEASE_TTL"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	Currency           string `mapstructure:"CURRENCY"`
	MonthlyAmount      int64  `mapstructure:"EMI_MONTHLY_AMOUNT"`
	GracePeriodDays    int    `mapstructure:"EMI_GRACE_PERIOD_DAYS"`
	ReminderWindowDays int    `mapstructure:"EMI_REMINDER_WINDOW_DAYS"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_MIGRATION_DIR", "migrations")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("GATEWAY_BASE_URL", "https://api.razorpay.com/v1")
	viper.SetDefault("GATEWAY_TIMEOUT", "10s")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("CURRENCY", "INR")
	viper.SetDefault("EMI_MONTHLY_AMOUNT", 200000)
	viper.SetDefault("EMI_GRACE_PERIOD_DAYS", 3)
	viper.SetDefault("EMI_REMINDER_WINDOW_DAYS", 5)
	// Both sweeps run daily at midnight local time, reminders after overdue.
	viper.SetDefault("SCHEDULER_OVERDUE_SPEC", "0 0 0 * * *")
	viper.SetDefault("SCHEDULER_REMINDER_SPEC", "0 15 0 * * *")
	viper.SetDefault("SCHEDULER_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("SCHEDULER_LEASE_TTL", "10m")
	viper.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Gateway.KeySecret == "" {
		return fmt.Errorf("GATEWAY_KEY_SECRET is required")
	}

	if c.Gateway.WebhookSecret == "" {
		return fmt.Errorf("GATEWAY_WEBHOOK_SECRET is required")
	}

	if c.Business.MonthlyAmount <= 0 {
		return fmt.Errorf("EMI_MONTHLY_AMOUNT must be greater than 0")
	}

	if c.Business.GracePeriodDays < 0 {
		return fmt.Errorf("EMI_GRACE_PERIOD_DAYS must not be negative")
	}

	if c.Business.ReminderWindowDays <= 0 {
		return fmt.Errorf("EMI_REMINDER_WINDOW_DAYS must be greater than 0")
	}

	if _, err := time.ParseDuration(c.Gateway.Timeout); err != nil {
		return fmt.Errorf("GATEWAY_TIMEOUT must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Scheduler.LeaseTTL); err != nil {
		return fmt.Errorf("SCHEDULER_LEASE_TTL must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Health.Timeout); err != nil {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Server.ReadTimeout); err != nil {
		return fmt.Errorf("SERVER_READ_TIMEOUT must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Server.WriteTimeout); err != nil {
		return fmt.Errorf("SERVER_WRITE_TIMEOUT must be a valid duration: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetGatewayTimeout returns the gateway call timeout as duration
func (c *Config) GetGatewayTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Gateway.Timeout)
	return timeout
}

// GetLeaseTTL returns the sweep lease TTL as duration
func (c *Config) GetLeaseTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Scheduler.LeaseTTL)
	return ttl
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}

// GetReadTimeout returns the HTTP read timeout as duration
func (c *Config) GetReadTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Server.ReadTimeout)
	return timeout
}

// GetWriteTimeout returns the HTTP write timeout as duration
func (c *Config) GetWriteTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Server.WriteTimeout)
	return timeout
}
