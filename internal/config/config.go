package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"ncaa_soccer"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"rpi_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scheduler
	EnableScheduler      bool          `envconfig:"ENABLE_SCHEDULER" default:"true"`
	DailyCalculationCron string        `envconfig:"DAILY_CALCULATION_CRON" default:"0 6 * * *"`
	RunPollInterval      time.Duration `envconfig:"RUN_POLL_INTERVAL" default:"15s"`

	// Calculation
	MaxRunAge        time.Duration `envconfig:"MAX_RUN_AGE" default:"2h"`
	StatusRetention  time.Duration `envconfig:"STATUS_RETENTION" default:"24h"`
	RetryAttempts    int           `envconfig:"RETRY_ATTEMPTS" default:"4"`
	RetryBase        time.Duration `envconfig:"RETRY_BASE" default:"200ms"`
	SeasonStartMonth int           `envconfig:"SEASON_START_MONTH" default:"8"`
	SeasonStartDay   int           `envconfig:"SEASON_START_DAY" default:"1"`

	// Caching TTL
	CacheTTLMemory  time.Duration `envconfig:"CACHE_TTL_MEMORY" default:"5m"`
	CacheTTLDurable time.Duration `envconfig:"CACHE_TTL_DURABLE" default:"1h"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.MaxRunAge <= 0 {
		return fmt.Errorf("MAX_RUN_AGE must be positive")
	}

	if c.StatusRetention < c.MaxRunAge {
		return fmt.Errorf("STATUS_RETENTION must be at least MAX_RUN_AGE")
	}

	if c.SeasonStartMonth < 1 || c.SeasonStartMonth > 12 {
		return fmt.Errorf("SEASON_START_MONTH must be between 1 and 12")
	}

	if c.SeasonStartDay < 1 || c.SeasonStartDay > 31 {
		return fmt.Errorf("SEASON_START_DAY must be between 1 and 31")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
