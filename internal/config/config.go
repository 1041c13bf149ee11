package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	MongoURI        string
	MongoDatabase   string
	RedisAddr       string
	QueueBackend    string
	RateLimitPerMin int
	AllowedOrigin   string

	// Re-check timelock behaviour.
	RecheckWindow time.Duration
	SweepInterval time.Duration
	StoreTimeout  time.Duration
	TermWeeks     int

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Load returns application config populated from environment variables with sensible defaults.
// A .env file in the working directory is read first when present.
func Load() App {
	_ = godotenv.Load()

	return App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8081"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DB", "attendance_db"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		QueueBackend:    getEnv("QUEUE_BACKEND", "redis"),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
		AllowedOrigin:   getEnv("ALLOWED_ORIGIN", "*"),
		RecheckWindow:   durationEnv("RECHECK_WINDOW", 15*time.Minute),
		SweepInterval:   durationEnv("SWEEP_INTERVAL", time.Minute),
		StoreTimeout:    durationEnv("STORE_TIMEOUT", 5*time.Second),
		TermWeeks:       intEnv("TERM_WEEKS", 7),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPath:         getEnv("LOG_PATH", ""),
		LogMaxSizeMB:    intEnv("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups:   intEnv("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:   intEnv("LOG_MAX_AGE_DAYS", 7),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
