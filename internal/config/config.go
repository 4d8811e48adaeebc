package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config stores all service configuration. Values are read by viper from an
// app.env file or from environment variables.
type Config struct {
	Environment        string        `mapstructure:"ENVIRONMENT"`
	HTTPServerAddress  string        `mapstructure:"HTTP_SERVER_ADDRESS"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMigrate          bool          `mapstructure:"DB_MIGRATE"`
	MigrationDir       string        `mapstructure:"MIGRATION_DIR"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	Depot              string        `mapstructure:"DEPOT"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	WebhookMaxAttempts int           `mapstructure:"WEBHOOK_MAX_ATTEMPTS"`
	WebhookInterval    time.Duration `mapstructure:"WEBHOOK_INTERVAL"`
	DemandFeedDir      string        `mapstructure:"DEMAND_FEED_DIR"`
}

// LoadConfig reads configuration from file or environment variables. A
// missing app.env is fine; environment variables alone are enough.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("HTTP_SERVER_ADDRESS", ":8080")
	viper.SetDefault("DB_MIGRATE", true)
	viper.SetDefault("MIGRATION_DIR", "db/migrations")
	viper.SetDefault("DEPOT", "DEPOT")
	viper.SetDefault("RATE_LIMIT_RPS", 50.0)
	viper.SetDefault("RATE_LIMIT_BURST", 100)
	viper.SetDefault("WEBHOOK_MAX_ATTEMPTS", 10)
	viper.SetDefault("WEBHOOK_INTERVAL", time.Second)

	viper.AutomaticEnv()

	if err = viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("config: read: %w", err)
		}
	}

	if err = viper.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("config: unmarshal: %w", err)
	}
	return config, nil
}
