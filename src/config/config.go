package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	JWTSecret    string
	JobTokenHash string
	CORSOrigins  []string
	ReadOnly     bool

	GeminiAPIKey string
	GeminiModel  string

	ResendAPIKey string
	EmailFrom    string

	KafkaBrokers []string
	KafkaGroupID string

	RecurringCron     string
	MonthlyReportCron string
	BudgetAlertCron   string
	CronTimezone      string

	RecurringRateLimit     int
	RecurringRateWindow    time.Duration
	RecurringMaxRetries    int
	RecurringRetryInterval time.Duration
	RecurringWorkers       int

	JobTimeout time.Duration
	PageSize   int
}

func Load() Config {
	// Load .env file if present
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JobTokenHash: getEnv("JOB_TOKEN_HASH", ""),
		CORSOrigins:  getEnvList("CORS_ORIGINS"),
		ReadOnly:     getEnvBool("READ_ONLY", false),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		EmailFrom:    getEnv("EMAIL_FROM", "Finance App <onboarding@resend.dev>"),

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "finlense-recurring"),

		RecurringCron:     getEnv("RECURRING_CRON", "0 0 * * *"),
		MonthlyReportCron: getEnv("MONTHLY_REPORT_CRON", "0 0 1 * *"),
		BudgetAlertCron:   getEnv("BUDGET_ALERT_CRON", "0 */6 * * *"),
		CronTimezone:      getEnv("CRON_TIMEZONE", "UTC"),

		RecurringRateLimit:     getEnvInt("RECURRING_RATE_LIMIT", 10),
		RecurringRateWindow:    getEnvDuration("RECURRING_RATE_WINDOW", time.Minute),
		RecurringMaxRetries:    getEnvIntMin("RECURRING_MAX_RETRIES", 2, 0),
		RecurringRetryInterval: getEnvDuration("RECURRING_RETRY_INTERVAL", time.Second),
		RecurringWorkers:       getEnvInt("RECURRING_WORKERS", 4),

		JobTimeout: getEnvDuration("JOB_TIMEOUT", 15*time.Minute),
		PageSize:   getEnvInt("PAGE_SIZE", 100),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	return getEnvIntMin(key, fallback, 1)
}

// getEnvIntMin falls back when the value is not an integer or is below minimum.
func getEnvIntMin(key string, fallback, minimum int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < minimum {
		log.Printf("ERROR: invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		log.Printf("ERROR: invalid %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return d
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		log.Printf("ERROR: invalid %s=%q, using %t", key, value, fallback)
		return fallback
	}
	return b
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
