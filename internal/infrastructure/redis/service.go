package redis

import (
	"context"
	"time"

	"github.com/forkful/gateway/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Service wraps the Redis client used for cross-instance refresh locking.
// A nil *Service is valid and means Redis is not configured; callers fall
// back to process-local coordination.
type Service struct {
	client *redis.Client
}

func NewService() *Service {
	url := config.GetRedisURL()

	if url == "" {
		log.Warn().Msg("Redis URL not configured - refresh locking stays process-local")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     url,
		Password: config.GetRedisPassword(),
		DB:       0,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Error().
			Err(err).
			Str("addr", url).
			Msg("Failed to establish Redis connection")
		return nil
	}

	return &Service{
		client: client,
	}
}

// AcquireLock attempts to take a short-lived exclusive lock. Returns false
// without error when another instance holds it.
func (s *Service) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		log.Error().
			Err(err).
			Str("key", key).
			Msg("Redis SETNX operation failed")
		return false, err
	}
	return ok, nil
}

// ReleaseLock drops a lock taken via AcquireLock. Releasing a lock that has
// already expired is not an error.
func (s *Service) ReleaseLock(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Ping checks if Redis is accessible
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Service) Close() error {
	return s.client.Close()
}
