/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables, with an
 * optional .env file for local development.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the account service.
// These values are loaded from environment variables.
type Config struct {
	AppEnv                    string `mapstructure:"APP_ENV"`
	ServerPort                string `mapstructure:"SERVER_PORT"`
	DatabaseURL               string `mapstructure:"DATABASE_URL"`
	RedisURL                  string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix      string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL               string `mapstructure:"RABBITMQ_URL"`
	PaymentEventsExchange     string `mapstructure:"PAYMENT_EVENTS_EXCHANGE"`
	AdminJWTSecret            string `mapstructure:"ADMIN_JWT_SECRET"`
	DepositRateLimitPerMinute int    `mapstructure:"DEPOSIT_RATE_LIMIT_PER_MINUTE"`
	CustomerCreateMaxAttempts int    `mapstructure:"CUSTOMER_CREATE_MAX_ATTEMPTS"`
	CustomerCreateBackoffMs   int    `mapstructure:"CUSTOMER_CREATE_BACKOFF_MS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "mobipay:rate_limit")
	viper.SetDefault("PAYMENT_EVENTS_EXCHANGE", "account_service.payment_events")
	viper.SetDefault("DEPOSIT_RATE_LIMIT_PER_MINUTE", 120)
	viper.SetDefault("CUSTOMER_CREATE_MAX_ATTEMPTS", 5)
	viper.SetDefault("CUSTOMER_CREATE_BACKOFF_MS", 100)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("APP_ENV")
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PAYMENT_EVENTS_EXCHANGE")
	_ = viper.BindEnv("ADMIN_JWT_SECRET")
	_ = viper.BindEnv("DEPOSIT_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("CUSTOMER_CREATE_MAX_ATTEMPTS")
	_ = viper.BindEnv("CUSTOMER_CREATE_BACKOFF_MS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// PORT (as injected by most container platforms) overrides SERVER_PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "mobipay:rate_limit"
	}

	if config.DepositRateLimitPerMinute <= 0 {
		config.DepositRateLimitPerMinute = 120
	}
	if config.CustomerCreateMaxAttempts <= 0 {
		config.CustomerCreateMaxAttempts = 5
	}
	if config.CustomerCreateBackoffMs <= 0 {
		config.CustomerCreateBackoffMs = 100
	}

	return
}
