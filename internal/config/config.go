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

	// Session store
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	// Static test catalog
	TestCatalogPath string

	// Text sent after an explained report; "off" disables it, empty keeps the default
	ReportDisclaimer string

	// Lab REST API (backend gateway)
	LabAPIBaseURL string
	LabAPIToken   string
	LabAPITimeout time.Duration

	// Language model candidates, tried in order: Gemini, Bedrock, OpenAI
	GeminiAPIKey    string
	GeminiModels    []string
	BedrockModelIDs []string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModels    []string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Redis transcript archive (optional)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	TranscriptTTL time.Duration
	// Redact emails and phone numbers from archived transcripts
	TranscriptScrubPII bool

	CORSAllowedOrigins []string
	ChatRateLimit      float64
	ChatRateBurst      int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		SessionTTL:           getEnvAsDuration("SESSION_TTL", time.Hour),
		SessionSweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),

		TestCatalogPath: getEnv("TEST_CATALOG_PATH", "data/test_catalog.json"),

		ReportDisclaimer: getEnv("REPORT_DISCLAIMER", ""),

		LabAPIBaseURL: getEnv("LAB_API_BASE_URL", "http://localhost:5000/api"),
		LabAPIToken:   getEnv("LAB_API_TOKEN", ""),
		LabAPITimeout: getEnvAsDuration("LAB_API_TIMEOUT", 15*time.Second),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModels:    getEnvAsList("GEMINI_MODELS", []string{"gemini-2.5-flash", "gemini-2.0-flash"}),
		BedrockModelIDs: getEnvAsList("BEDROCK_MODEL_IDS", nil),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		OpenAIModels:    getEnvAsList("OPENAI_MODELS", []string{"gpt-4o-mini"}),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		TranscriptTTL: getEnvAsDuration("TRANSCRIPT_TTL", 24*time.Hour),

		TranscriptScrubPII: getEnvAsBool("TRANSCRIPT_SCRUB_PII", true),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		ChatRateLimit:      getEnvAsFloat("CHAT_RATE_LIMIT", 2),
		ChatRateBurst:      getEnvAsInt("CHAT_RATE_BURST", 10),
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

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
