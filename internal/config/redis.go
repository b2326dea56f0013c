package config

import (
	"github.com/forkful/gateway/internal/logger"
)

func GetRedisURL() string {
	value := GetEnvOrDefault("REDIS_URL", "")
	if value == "" {
		logger.Debug(logger.CONFIG, "Redis URL not set - refresh locking stays process-local")
	}
	return value
}

func GetRedisPassword() string {
	return GetEnvOrDefault("REDIS_PASSWORD", "")
}
