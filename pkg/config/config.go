package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Payment  PaymentConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Host string
	Port string
}

type JWTConfig struct {
	Secret string
}

type PaymentConfig struct {
	GatewayURL    string
	GatewayAPIKey string
	RenewalFee    int64
	PollInterval  time.Duration
	PollAttempts  int
}

func Load() *Config {
	godotenv.Load() // load the .env file if present

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", "localhost"),
			Port: getEnv("REDIS_PORT", "6379"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		Payment: PaymentConfig{
			GatewayURL:    getEnv("PAYMENT_GATEWAY_URL", "https://api.nowpayments.io"),
			GatewayAPIKey: getEnv("PAYMENT_GATEWAY_API_KEY", ""),
			RenewalFee:    getEnvInt64("RENEWAL_FEE", 100),
			PollInterval:  time.Duration(getEnvInt64("PAYMENT_POLL_INTERVAL_SECONDS", 15)) * time.Second,
			PollAttempts:  int(getEnvInt64("PAYMENT_POLL_ATTEMPTS", 40)),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
