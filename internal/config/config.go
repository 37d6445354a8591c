package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Chat     ChatConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	HubLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

// ChatConfig holds the conversation timing knobs.
type ChatConfig struct {
	RevealDelay         time.Duration
	FollowUpDelay       time.Duration
	HandoffPollInterval time.Duration
	HandoffTimeout      time.Duration
	ChipRulesTTL        time.Duration
	SessionIdleTTL      time.Duration
	RevealWriteRetries  int
	OperatorInbox       string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			HubLogFilePath:     getEnv("HUB_LOG_FILE_PATH", "hub.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Support Chat"),
		},
		Chat: ChatConfig{
			RevealDelay:         getEnvAsDuration("REVEAL_DELAY", 700*time.Millisecond),
			FollowUpDelay:       getEnvAsDuration("FOLLOWUP_DELAY", 600*time.Millisecond),
			HandoffPollInterval: getEnvAsDuration("HANDOFF_POLL_INTERVAL", 5*time.Second),
			HandoffTimeout:      getEnvAsDuration("HANDOFF_TIMEOUT", 5*time.Minute),
			ChipRulesTTL:        getEnvAsDuration("CHIP_RULES_TTL", 5*time.Minute),
			SessionIdleTTL:      getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
			RevealWriteRetries:  getEnvAsInt("REVEAL_WRITE_RETRIES", 2),
			OperatorInbox:       getEnv("OPERATOR_INBOX", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts time.ParseDuration strings ("700ms", "5m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
