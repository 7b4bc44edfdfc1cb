package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Simulation
	TickHz      int
	BroadcastHz int
	TableWidth  float64
	TableHeight float64
	BallRadius  float64 // 0 = derived from table width
	MaxTables   int

	// Idle tables
	TableIdleSeconds  int
	ReaperPollSeconds int

	// Security
	JWTSecret      string
	SeatTokenHours int
	AdminTokenHash string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/pooltable?sslmode=disable"),
		MigrateOnStart: getEnv("MIGRATE_ON_START", "false") == "true",

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Simulation
		TickHz:      getEnvInt("TICK_HZ", 60),
		BroadcastHz: getEnvInt("BROADCAST_HZ", 20),
		TableWidth:  getEnvFloat("TABLE_WIDTH", 1000),
		TableHeight: getEnvFloat("TABLE_HEIGHT", 700),
		BallRadius:  getEnvFloat("BALL_RADIUS", 0),
		MaxTables:   getEnvInt("MAX_TABLES", 100),

		// Idle tables
		TableIdleSeconds:  getEnvInt("TABLE_IDLE_SECONDS", 1800),
		ReaperPollSeconds: getEnvInt("REAPER_POLL_SECONDS", 30),

		// Security
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		SeatTokenHours: getEnvInt("SEAT_TOKEN_HOURS", 24),
		AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
