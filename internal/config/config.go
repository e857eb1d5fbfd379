package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the POS backend
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Storage  StorageConfig  `yaml:"storage"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Kitchen  KitchenConfig  `yaml:"kitchen"`
	Log      LogConfig      `yaml:"log"`
	Tenant   TenantConfig   `yaml:"tenant"`
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	Migrations string `yaml:"migrations"`
	// Pool sizing. The order service holds one connection per open unit of
	// work, so MaxConns bounds concurrent attachments and payments.
	MaxConns        int `yaml:"max_conns"`
	MinConns        int `yaml:"min_conns"`
	ConnectAttempts int `yaml:"connect_attempts"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// StorageConfig selects the order repository implementation
type StorageConfig struct {
	Driver   string `yaml:"driver"`
	MenuSeed string `yaml:"menu_seed"`
}

type PricingConfig struct {
	ServiceChargeRate string `yaml:"service_charge_rate"`
}

type KitchenConfig struct {
	MaxAgeHours  int           `yaml:"max_age_hours"`
	PollInterval time.Duration `yaml:"poll_interval"`
	FeedURL      string        `yaml:"feed_url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TenantConfig struct {
	ID string `yaml:"id"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// RatePlaces matches orders.service_charge_rate NUMERIC(6,4).
const RatePlaces = 4

// Default returns the configuration used when a key is absent from the file
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Migrations:      "migrations",
			MaxConns:        25,
			MinConns:        5,
			ConnectAttempts: 5,
		},
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
		},
		Storage: StorageConfig{Driver: DriverPostgres},
		Pricing: PricingConfig{ServiceChargeRate: "0"},
		Kitchen: KitchenConfig{
			MaxAgeHours:  4,
			PollInterval: 5 * time.Second,
			FeedURL:      "http://localhost:3000/kitchen/orders",
		},
		Log:    LogConfig{Level: "info"},
		Tenant: TenantConfig{ID: "default"},
	}
}

// Load reads configuration from a YAML file on top of Default()
func Load(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	return Parse(content)
}

// Parse decodes YAML bytes on top of Default() and validates the result
func Parse(content []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	rate, err := c.ServiceChargeRate()
	if err != nil {
		return err
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("pricing.service_charge_rate must be between 0 and 1, got %s", rate)
	}
	if !rate.Equal(rate.Round(RatePlaces)) {
		return fmt.Errorf("pricing.service_charge_rate must have at most %d decimal places, got %s", RatePlaces, rate)
	}

	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver: %s", c.Storage.Driver)
	}

	if c.Database.MaxConns <= 0 || c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database pool needs 0 <= min_conns <= max_conns and max_conns > 0")
	}
	if c.Database.ConnectAttempts <= 0 {
		return fmt.Errorf("database.connect_attempts must be positive")
	}
	if c.Server.RequestTimeout <= 0 || c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Kitchen.MaxAgeHours <= 0 {
		return fmt.Errorf("kitchen.max_age_hours must be positive")
	}
	if c.Kitchen.PollInterval <= 0 {
		return fmt.Errorf("kitchen.poll_interval must be positive")
	}
	if c.Tenant.ID == "" {
		return fmt.Errorf("tenant.id is required")
	}
	return nil
}

// ServiceChargeRate returns the configured rate; an empty value means zero
func (c *Config) ServiceChargeRate() (decimal.Decimal, error) {
	if c.Pricing.ServiceChargeRate == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(c.Pricing.ServiceChargeRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid pricing.service_charge_rate: %w", err)
	}
	return rate, nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
