package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	SalonName     string
	DatabaseURL   string

	// Default schedule, written to the database on first migration and
	// used as a fallback when the settings row is missing.
	OpenTime            string
	CloseTime           string
	SlotIntervalMinutes int
	DaysOff             []int
	Breaks              []string
	Timezone            string

	AdminJWTSecret string

	CORSAllowedOrigins []string
	PublicRateLimit    float64
	PublicRateBurst    int

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SlotCacheTTL  time.Duration

	// Google Calendar integration
	CalendarEnabled         bool
	CheckCalendar           bool
	CalendarID              string
	CalendarCredentialsJSON string
	CalendarFetchTimeout    time.Duration

	// Email (SendGrid preferred, SES fallback)
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
	SalonNotifyEmail  string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SalonName:     getEnv("SALON_NAME", "Salon Aurelie"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		OpenTime:            getEnv("OPEN_TIME", "09:00"),
		CloseTime:           getEnv("CLOSE_TIME", "17:00"),
		SlotIntervalMinutes: getEnvAsInt("SLOT_INTERVAL_MINUTES", 30),
		DaysOff:             getEnvAsIntList("DAYS_OFF", []int{0}),
		Breaks:              getEnvAsList("BREAKS", nil),
		Timezone:            getEnv("TIMEZONE", "UTC"),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		PublicRateLimit:    getEnvAsFloat("PUBLIC_RATE_LIMIT", 10),
		PublicRateBurst:    getEnvAsInt("PUBLIC_RATE_BURST", 30),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SlotCacheTTL:  getEnvAsDuration("SLOT_CACHE_TTL", 60*time.Second),

		CalendarEnabled:         getEnvAsBool("CALENDAR_ENABLED", false),
		CheckCalendar:           getEnvAsBool("CHECK_CALENDAR", true),
		CalendarID:              getEnv("CALENDAR_ID", ""),
		CalendarCredentialsJSON: getEnv("CALENDAR_CREDENTIALS_JSON", ""),
		CalendarFetchTimeout:    getEnvAsDuration("CALENDAR_FETCH_TIMEOUT", 5*time.Second),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Salon Aurelie"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Salon Aurelie"),
		SalonNotifyEmail:  getEnv("SALON_NOTIFY_EMAIL", ""),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, trimming
// whitespace and dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsIntList(key string, defaultValue []int) []int {
	parts := getEnvAsList(key, nil)
	if parts == nil {
		return defaultValue
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}
