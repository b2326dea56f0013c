package config

import (
	"strings"
	"sync"
	"time"

	"github.com/forkful/gateway/internal/logger"
)

var (
	upstreamMu sync.RWMutex
	// UpstreamBaseURL is the base URL of the Forkful resource API that
	// proxied requests are forwarded to
	upstreamBaseURL = strings.TrimRight(GetEnvOrDefault("UPSTREAM_API_URL", "http://localhost:9000"), "/")
)

// GetUpstreamBaseURL returns the upstream API base URL without a trailing slash
func GetUpstreamBaseURL() string {
	upstreamMu.RLock()
	defer upstreamMu.RUnlock()
	return upstreamBaseURL
}

// SetUpstreamBaseURL temporarily changes the upstream base URL and returns a function to restore it
// This is primarily used for testing
func SetUpstreamBaseURL(url string) func() {
	upstreamMu.Lock()
	previous := upstreamBaseURL
	upstreamBaseURL = strings.TrimRight(url, "/")
	upstreamMu.Unlock()

	return func() {
		upstreamMu.Lock()
		upstreamBaseURL = previous
		upstreamMu.Unlock()
	}
}

// GetUpstreamTimeout returns the per-call deadline for upstream requests.
// Applies to both forwarded resource calls and refresh calls; a timeout is
// reported as a network failure, never as an auth failure.
func GetUpstreamTimeout() time.Duration {
	seconds := parseEnvInt("UPSTREAM_TIMEOUT_SECONDS", 5)
	if seconds <= 0 {
		logger.Warn(logger.CONFIG, "Non-positive upstream timeout, using default: 5s")
		return 5 * time.Second
	}
	return time.Duration(seconds) * time.Second
}
