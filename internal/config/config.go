package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	// Inbound webhook shared secret. Both names are accepted because
	// deployments have historically used either one.
	WebhookToken string

	// Optional single-phone allowlist used while testing against a live
	// ChatGuru instance.
	TestAllowedPhone string

	DefaultInstanceID string

	APIEnabled      bool
	AutoSendEnabled bool

	AutoReplyDailyLimit int

	GatewayBaseURL   string
	GatewayAPIKey    string
	GatewayAccountID string
	GatewayPhoneID   string
	GatewayTimeout   time.Duration

	OpenAIAPIKey string
	OpenAIModel  string
	BrainPath    string

	AfterHoursEnabled      bool
	AfterHoursWebhookURL   string
	AfterHoursWebhookToken string
	AfterHoursTimeout      time.Duration

	AdminJWTSecret string

	RedisAddr         string
	RedisPassword     string
	UseRedisRateLimit bool
}

// Load reads configuration from environment variables
func Load() *Config {
	apiKey := getEnv("CHATGURU_API_TOKEN", "")
	if apiKey == "" {
		// Some deployments set CHATGURU_API_KEY instead.
		apiKey = getEnv("CHATGURU_API_KEY", "")
	}
	webhookToken := getEnv("CHATGURU_WEBHOOK_TOKEN", "")
	if webhookToken == "" {
		webhookToken = getEnv("CHATGURU_WEBHOOK_SECRET", "")
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		WebhookToken:     webhookToken,
		TestAllowedPhone: getEnv("TEST_ALLOWED_PHONE", ""),

		DefaultInstanceID: getEnv("CHATGURU_INSTANCE_ID_DEFAULT", ""),

		APIEnabled:      getEnvAsBool("CHATGURU_API_ENABLED", true),
		AutoSendEnabled: getEnvAsBool("CHATGURU_AUTO_SEND_ENABLED", true),

		AutoReplyDailyLimit: getEnvAsInt("AUTO_REPLY_LIMIT_PER_CONTACT_PER_DAY", 8),

		GatewayBaseURL:   getEnv("CHATGURU_API_BASE_URL", ""),
		GatewayAPIKey:    apiKey,
		GatewayAccountID: getEnv("CHATGURU_ACCOUNT_ID", ""),
		GatewayPhoneID:   getEnv("CHATGURU_PHONE_ID", ""),
		GatewayTimeout:   getEnvAsDuration("CHATGURU_API_TIMEOUT", 10*time.Second),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		BrainPath:    getEnv("BRAIN_FILE_PATH", "rtbrain/rtbrain.txt"),

		AfterHoursEnabled:      getEnvAsBool("AFTER_HOURS_ENABLED", true),
		AfterHoursWebhookURL:   getEnv("AFTER_HOURS_WEBHOOK_URL", ""),
		AfterHoursWebhookToken: getEnv("AFTER_HOURS_WEBHOOK_TOKEN", ""),
		AfterHoursTimeout:      getEnvAsDuration("AFTER_HOURS_TIMEOUT", 5*time.Second),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		UseRedisRateLimit: getEnvAsBool("USE_REDIS_RATE_LIMIT", false),
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
	if value, err := strconv.Atoi(valueStr); err == nil && value > 0 {
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
