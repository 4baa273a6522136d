package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"bioneuro/backend/internal/crypto"
)

type Config struct {
	App     AppConfig
	LLM     LLMConfig
	Decoder DecoderConfig
	Contact ContactConfig
	Storage StorageConfig
}

type AppConfig struct {
	Port                   string
	Environment            string
	FrontendOrigin         string
	LogFilePath            string
	RateLimitPerMinute     int
	ChatRateLimitPerMinute int
	SessionTTL             time.Duration
}

type LLMConfig struct {
	Provider       string // "gemini", "openai", "claude", "cohere"
	APIKey         string
	SealedAPIKey   string
	MasterKey      string
	Model          string
	BaseURL        string
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	MaxRPM         int
	PersonaFile    string
	HealthInterval time.Duration
}

type DecoderConfig struct {
	Delay time.Duration
}

type ContactConfig struct {
	WhatsAppNumber   string
	MessagingBaseURL string
	Email            string
	MessageTemplate  string
}

type StorageConfig struct {
	DatabaseURL string
	RedisURL    string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:                   getEnv("PORT", "8080"),
			Environment:            getEnv("GO_ENV", "development"),
			FrontendOrigin:         getEnv("FRONTEND_ORIGIN", "http://localhost:5173"),
			LogFilePath:            getEnv("LOG_FILE_PATH", "logs/app.log"),
			RateLimitPerMinute:     getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
			ChatRateLimitPerMinute: getEnvAsInt("CHAT_RATE_LIMIT_PER_MINUTE", 12),
			SessionTTL:             getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		},
		LLM: LLMConfig{
			Provider:       getEnv("LLM_PROVIDER", "gemini"),
			APIKey:         getEnv("LLM_API_KEY", os.Getenv("API_KEY")),
			SealedAPIKey:   getEnv("LLM_API_KEY_SEALED", ""),
			MasterKey:      getEnv("MASTER_KEY", ""),
			Model:          getEnv("LLM_MODEL", ""),
			BaseURL:        getEnv("LLM_BASE_URL", ""),
			Temperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 600),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
			RetryAttempts:  getEnvAsInt("LLM_RETRY_ATTEMPTS", 2),
			RetryDelay:     getEnvAsDuration("LLM_RETRY_DELAY", 500*time.Millisecond),
			MaxRPM:         getEnvAsInt("LLM_MAX_RPM", 0),
			PersonaFile:    getEnv("PERSONA_FILE", ""),
			HealthInterval: getEnvAsDuration("LLM_HEALTH_INTERVAL", 5*time.Minute),
		},
		Decoder: DecoderConfig{
			Delay: getEnvAsDuration("DECODER_DELAY", 1800*time.Millisecond),
		},
		Contact: ContactConfig{
			WhatsAppNumber:   getEnv("WHATSAPP_NUMBER", "523331155895"),
			MessagingBaseURL: getEnv("MESSAGING_BASE_URL", "https://wa.me"),
			Email:            getEnv("CONTACT_EMAIL", "asesoria@pepeperez.mx"),
			MessageTemplate:  getEnv("DEEPLINK_TEMPLATE", ""),
		},
		Storage: StorageConfig{
			DatabaseURL: getEnv("DATABASE_URL", ""),
			RedisURL:    getEnv("REDIS_URL", ""),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ResolveAPIKey returns the chat credential. An empty result is valid and
// puts the assistant in demo mode.
func (c LLMConfig) ResolveAPIKey() (string, error) {
	if c.SealedAPIKey == "" {
		return c.APIKey, nil
	}
	if c.MasterKey == "" {
		return "", errors.New("LLM_API_KEY_SEALED requires MASTER_KEY")
	}
	return crypto.Decrypt(c.MasterKey, c.SealedAPIKey)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
