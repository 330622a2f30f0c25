package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Gateway   GatewayConfig
	Checkout  CheckoutConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type GatewayConfig struct {
	APIKey   string
	Mnemonic string
	// SettleDelay is how long the mock backend waits before auto-settling
	// an invoice. A real backend ignores it.
	SettleDelay time.Duration
}

type CheckoutConfig struct {
	PollInterval time.Duration
}

type AuthConfig struct {
	OperatorSecret string
}

type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
}

func Load() *Config {
	// Load .env into the process environment first so AutomaticEnv sees it
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("GATEWAY_SETTLE_DELAY", 10)
	viper.SetDefault("CHECKOUT_POLL_INTERVAL", 3)
	viper.SetDefault("RATELIMIT_REQUESTS", 30)
	viper.SetDefault("RATELIMIT_WINDOW", 60)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Gateway: GatewayConfig{
			APIKey:      viper.GetString("GATEWAY_API_KEY"),
			Mnemonic:    viper.GetString("GATEWAY_MNEMONIC"),
			SettleDelay: time.Duration(viper.GetInt("GATEWAY_SETTLE_DELAY")) * time.Second,
		},
		Checkout: CheckoutConfig{
			PollInterval: time.Duration(viper.GetInt("CHECKOUT_POLL_INTERVAL")) * time.Second,
		},
		Auth: AuthConfig{
			OperatorSecret: viper.GetString("OPERATOR_JWT_SECRET"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: viper.GetInt("RATELIMIT_REQUESTS"),
			Window:            time.Duration(viper.GetInt("RATELIMIT_WINDOW")) * time.Second,
		},
	}
}
