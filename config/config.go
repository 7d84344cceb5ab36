package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// Upstream marketplace API.
	MarketplaceAPIURL string `mapstructure:"MARKETPLACE_API_URL"`
	MarketplaceAPIKey string `mapstructure:"MARKETPLACE_API_KEY"`

	// Mobile-money payment gateway.
	PaymentGatewayURL string `mapstructure:"PAYMENT_GATEWAY_URL"`
	PaymentGatewayKey string `mapstructure:"PAYMENT_GATEWAY_KEY"`

	// Payment verification polling bounds.
	PaymentPollIntervalSeconds int `mapstructure:"PAYMENT_POLL_INTERVAL_SECONDS"`
	PaymentPollMaxAttempts     int `mapstructure:"PAYMENT_POLL_MAX_ATTEMPTS"`
	PaymentPollWindowSeconds   int `mapstructure:"PAYMENT_POLL_WINDOW_SECONDS"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("MARKETPLACE_API_URL", "http://localhost:9000/api/v1")
	viper.SetDefault("MARKETPLACE_API_KEY", "")
	viper.SetDefault("PAYMENT_GATEWAY_URL", "http://localhost:9100")
	viper.SetDefault("PAYMENT_GATEWAY_KEY", "")
	viper.SetDefault("PAYMENT_POLL_INTERVAL_SECONDS", 3)
	viper.SetDefault("PAYMENT_POLL_MAX_ATTEMPTS", 10)
	viper.SetDefault("PAYMENT_POLL_WINDOW_SECONDS", 30)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
