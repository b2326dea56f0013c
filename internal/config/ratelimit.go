package config

import (
	"time"

	"github.com/forkful/gateway/internal/logger"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
}

func GetRateLimitConfig(key string) RateLimitConfig {
	enabled := GetEnvOrDefault("RATELIMIT_ENABLED", "false") == "true"

	configs := map[string]RateLimitConfig{
		"proxy": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_PROXY", 600), // 600 requests per minute per IP
			Window:  time.Minute,
		},
		"auth_validate": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_AUTH_VALIDATE", 60), // clients poll this as a keep-alive
			Window:  time.Minute,
		},
	}

	if config, exists := configs[key]; exists {
		return config
	}

	logger.Warn(logger.CONFIG, "No rate limit config found for key: %s", key)
	return RateLimitConfig{Enabled: false}
}
