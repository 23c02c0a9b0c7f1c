package config

import (
	"os"
)

type Config struct {
	DBDriver       string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	RedisHost      string
	RedisPort      string
	SessionSecret  string
	GinMode        string
	AllowedOrigins string
	OpenAIAPIKey   string
}

func Load() *Config {
	return &Config{
		DBDriver:       getEnv("DB_DRIVER", "postgres"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "taskflow"),
		DBPassword:     getEnv("DB_PASSWORD", "taskflow"),
		DBName:         getEnv("DB_NAME", "taskflow"),
		RedisHost:      getEnv("REDIS_HOST", "localhost"),
		RedisPort:      getEnv("REDIS_PORT", "6379"),
		SessionSecret:  getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
