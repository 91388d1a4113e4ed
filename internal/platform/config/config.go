package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	JudgeAPIBaseURL     string
	JudgeAPIPagePath    string // must contain {from}
	JudgeAPIUserAgent   string
	JudgeAPITimeout     time.Duration
	JudgeAPIMinInterval time.Duration
	JudgeAPIMaxAttempts int
	JudgeAPIBaseBackoff time.Duration
	JudgeAPIMaxBackoff  time.Duration

	ScrapeMaxPages      int
	ScrapeLockKey       string
	ScrapeLockTTLSecond int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MetricsAddr string
	LogLevel    string
	LogFormat   string
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	AppConfig = FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	c := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "judge_mirror"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		JudgeAPIBaseURL:     getEnv("JUDGE_API_BASE_URL", "http://localhost:8090/api"),
		JudgeAPIPagePath:    getEnv("JUDGE_API_PAGE_PATH", "/v3/from/{from}"),
		JudgeAPIUserAgent:   getEnv("JUDGE_API_USER_AGENT", "judge-mirror/1.0"),
		JudgeAPITimeout:     getEnvAsDuration("JUDGE_API_TIMEOUT_SECONDS", 30, time.Second),
		JudgeAPIMinInterval: getEnvAsDuration("JUDGE_API_MIN_INTERVAL_MS", 1000, time.Millisecond),
		JudgeAPIMaxAttempts: getEnvAsInt("JUDGE_API_MAX_ATTEMPTS", 5),
		JudgeAPIBaseBackoff: getEnvAsDuration("JUDGE_API_BASE_BACKOFF_MS", 2000, time.Millisecond),
		JudgeAPIMaxBackoff:  getEnvAsDuration("JUDGE_API_MAX_BACKOFF_MS", 60000, time.Millisecond),

		ScrapeMaxPages:      getEnvAsInt("SCRAPE_MAX_PAGES", 0),
		ScrapeLockKey:       getEnv("SCRAPE_LOCK_KEY", "judge_mirror_scrape_lock"),
		ScrapeLockTTLSecond: getEnvAsInt("SCRAPE_LOCK_TTL_SECONDS", 300),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		MetricsAddr: getEnv("METRICS_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}

	c.DBConnStr = "host=" + c.DBHost +
		" port=" + c.DBPort +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=" + c.DBSslMode
	return c
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback int, unit time.Duration) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * unit
}
