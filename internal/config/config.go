// Package config provides configuration loading for the billing engine.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Document DocumentConfig `mapstructure:"document"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment" validate:"oneof=dev staging prod"`
	// AllowedOrigins lists CORS origins; empty allows localhost only.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	User            string        `mapstructure:"user" validate:"required"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database" validate:"required"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the postgres:// form used by the migration runner.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration. Redis only backs the cycle lock,
// so it can be switched off for single-runner deployments.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SMTPConfig holds outbound mail configuration for invoice notifications.
type SMTPConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host" validate:"required_if=Enabled true"`
	Port        int           `mapstructure:"port"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	From        string        `mapstructure:"from" validate:"omitempty,email"`
	FromName    string        `mapstructure:"from_name"`
	ImplicitTLS bool          `mapstructure:"implicit_tls"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// BillingConfig holds billing cycle configuration.
type BillingConfig struct {
	// Timezone decides which calendar month a reference date falls in.
	Timezone        string        `mapstructure:"timezone" validate:"required"`
	Workers         int           `mapstructure:"workers" validate:"min=1,max=64"`
	IncompleteGrace time.Duration `mapstructure:"incomplete_grace"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
}

// Location resolves the configured timezone.
func (c BillingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// DocumentConfig holds the branding printed on invoice documents and emails.
type DocumentConfig struct {
	CompanyName  string `mapstructure:"company_name" validate:"required"`
	Tagline      string `mapstructure:"tagline"`
	Address      string `mapstructure:"address"`
	Locality     string `mapstructure:"locality"`
	ContactLine  string `mapstructure:"contact_line"`
	PaymentTerms string `mapstructure:"payment_terms"`
	BillingEmail string `mapstructure:"billing_email" validate:"omitempty,email"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Billing.Location(); err != nil {
		return fmt.Errorf("invalid config: billing.timezone: %w", err)
	}
	return nil
}

// Load reads configuration from files and environment variables.
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith reads configuration into the given viper instance. A file set
// with SetConfigFile is used as is and must exist.
func LoadWith(v *viper.Viper) (*Config, error) {
	// SetConfigName clears an explicit file, so search paths only apply
	// when none was given.
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/billing")
	}

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Secrets are usually only present in the environment, so bind them
	// explicitly (AutomaticEnv does not see keys viper has no default for).
	v.BindEnv("smtp.username", "BILLING_SMTP_USERNAME")
	v.BindEnv("smtp.password", "BILLING_SMTP_PASSWORD")
	v.BindEnv("database.password", "BILLING_DATABASE_PASSWORD")
	v.BindEnv("redis.password", "BILLING_REDIS_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.environment", "dev")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "billing")
	v.SetDefault("database.password", "billing")
	v.SetDefault("database.database", "billing")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// SMTP defaults
	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.host", "smtp.titan.email")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.from", "billing@911dc.us")
	v.SetDefault("smtp.from_name", "911-DC Billing")
	v.SetDefault("smtp.implicit_tls", true)
	v.SetDefault("smtp.timeout", "30s")

	// Billing defaults
	v.SetDefault("billing.timezone", "UTC")
	v.SetDefault("billing.workers", 1)
	v.SetDefault("billing.incomplete_grace", "10m")
	v.SetDefault("billing.lock_ttl", "15m")

	// Document defaults
	v.SetDefault("document.company_name", "911-DC")
	v.SetDefault("document.tagline", "Datacenter Operations & SmartHands Services")
	v.SetDefault("document.address", "100 NE 2nd St, Miami, FL 33138")
	v.SetDefault("document.locality", "Miami, FL")
	v.SetDefault("document.contact_line", "info@911dc.us  |  www.911dc.us")
	v.SetDefault("document.payment_terms", "Payment is due within 30 days of the invoice date. Please reference the invoice number when making payment.")
	v.SetDefault("document.billing_email", "billing@911dc.us")

	v.SetDefault("log.level", "info")
}
