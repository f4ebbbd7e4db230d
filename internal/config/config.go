package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/orderin/api/internal/enum"
)

type Config struct {
	Port        string
	LogLevel    string
	DatabaseURL string
	RedisURL    string
	AMQPURL     string
	JWTSecret   string

	SessionTTL     time.Duration
	FeedInterval   time.Duration
	FeedMode       string
	FeedEnabled    bool
	SimulatedDelay time.Duration
	AllowedOrigins []string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8081"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		AMQPURL:     getEnv("AMQP_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-in-production"),

		SessionTTL:     getDuration("SESSION_TTL", 12*time.Hour),
		FeedInterval:   getDuration("FEED_INTERVAL", 30*time.Second),
		FeedMode:       getFeedMode("FEED_MODE"),
		FeedEnabled:    getBool("FEED_ENABLED", true),
		SimulatedDelay: getDuration("SIMULATED_DELAY", 0),
		AllowedOrigins: []string{getEnv("CORS_ORIGIN", "http://localhost:5173")},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getFeedMode(key string) string {
	switch v := os.Getenv(key); v {
	case enum.FeedModeRegenerate, enum.FeedModeIncremental:
		return v
	}
	return enum.FeedModeIncremental
}
