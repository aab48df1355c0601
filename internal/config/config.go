package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port             int
	LogLevel         string
	AnthropicAPIKey  string
	AnthropicModel   string
	NatsURL          string
	NatsToken        string
	DatabaseURL      string
	ParticipantsFile string
}

func Load() Config {
	return Config{
		Port:             envInt("PORT", 3001),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey:  envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   envStr("CIRCLE_MODEL", "claude-3-haiku-20240307"),
		NatsURL:          envStr("NATS_URL", ""),
		NatsToken:        envStr("NATS_TOKEN", ""),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		ParticipantsFile: envStr("CIRCLE_PARTICIPANTS_FILE", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
