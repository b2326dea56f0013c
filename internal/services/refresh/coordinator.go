package refresh

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/forkful/gateway/internal/credentials"
	"github.com/forkful/gateway/internal/infrastructure/redis"
	"github.com/forkful/gateway/internal/token"
	"github.com/rs/zerolog/log"
)

const (
	// distributedLockTTL bounds how long a crashed instance can hold the
	// cross-instance refresh lock
	distributedLockTTL  = 10 * time.Second
	lockRetryInterval   = 100 * time.Millisecond
	lockAcquireDeadline = 3 * time.Second
)

// Coordinator exchanges the current refresh token for a new token pair at
// the upstream issuer. Concurrent refreshes for the same session collapse
// into one upstream call (single-flight); every caller observes that call's
// outcome and installs its pair into its own cookie sink.
//
// The coordinator never clears credentials on failure. The prior pair stays
// in place until a caller that has confirmed the session is unrecoverable
// clears it.
type Coordinator struct {
	baseURL string
	client  *http.Client
	redis   *redis.Service

	mu       sync.Mutex
	inflight map[string]*flight
}

type flight struct {
	done chan struct{}
	pair credentials.TokenPair
	ok   bool
}

func NewCoordinator(baseURL string, timeout time.Duration, redisService *redis.Service) *Coordinator {
	return &Coordinator{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		redis:    redisService,
		inflight: make(map[string]*flight),
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	DeviceID     string `json:"deviceId,omitempty"`
	DeviceName   string `json:"deviceName,omitempty"`
}

// refreshResponse tolerates the two shapes the issuer is known to emit:
// flat fields or a nested tokens object. It is resolved into a single
// canonical TokenPair at this boundary and nowhere else.
type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Tokens       *struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"tokens"`
}

func (r *refreshResponse) pair() (credentials.TokenPair, bool) {
	access, refresh := r.AccessToken, r.RefreshToken
	if r.Tokens != nil {
		access, refresh = r.Tokens.AccessToken, r.Tokens.RefreshToken
	}
	if access == "" || refresh == "" {
		return credentials.TokenPair{}, false
	}
	return credentials.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExpiry: token.DecodeExpiry(access),
	}, true
}

// Refresh exchanges the store's refresh token for a new pair and installs
// it. Returns false without a network call when no refresh token exists,
// and false with no partial write on any upstream failure.
func (c *Coordinator) Refresh(ctx context.Context, store *credentials.Store) bool {
	current := store.Get()
	if current.RefreshToken == "" {
		log.Debug().Msg("Refresh declined: no refresh token present")
		return false
	}

	key := refreshKey(current.RefreshToken)

	c.mu.Lock()
	if f, exists := c.inflight[key]; exists {
		c.mu.Unlock()

		select {
		case <-f.done:
		case <-ctx.Done():
			return false
		}

		if f.ok {
			store.Set(f.pair)
		}
		return f.ok
	}

	f := &flight{done: make(chan struct{})}
	c.inflight[key] = f
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
		close(f.done)
	}()

	device, hasDevice := store.Device()

	unlock := c.acquireDistributedLock(ctx, key)
	f.pair, f.ok = c.callUpstream(ctx, current.RefreshToken, device, hasDevice)
	unlock()

	if f.ok {
		store.Set(f.pair)
	}
	return f.ok
}

func (c *Coordinator) callUpstream(ctx context.Context, refreshToken string, device credentials.DeviceIdentity, hasDevice bool) (credentials.TokenPair, bool) {
	payload := refreshRequest{RefreshToken: refreshToken}
	if hasDevice {
		payload.DeviceID = device.DeviceID
		payload.DeviceName = device.DeviceName
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode refresh request")
		return credentials.TokenPair{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("Failed to build refresh request")
		return credentials.TokenPair{}, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Refresh call failed")
		return credentials.TokenPair{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Int("status", resp.StatusCode).Msg("Upstream rejected refresh")
		return credentials.TokenPair{}, false
	}

	var decoded refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		log.Error().Err(err).Msg("Failed to decode refresh response")
		return credentials.TokenPair{}, false
	}

	pair, ok := decoded.pair()
	if !ok {
		log.Warn().Msg("Refresh response missing token fields")
		return credentials.TokenPair{}, false
	}

	log.Debug().Msg("Refresh succeeded, new pair issued")
	return pair, true
}

// acquireDistributedLock takes the cross-instance refresh lock when Redis is
// configured. The lock is best-effort: if it cannot be acquired before the
// deadline the refresh proceeds anyway, since holding up a user request is
// worse than a redundant upstream call. The returned func releases the lock
// and is always safe to call.
func (c *Coordinator) acquireDistributedLock(ctx context.Context, key string) func() {
	if c.redis == nil {
		return func() {}
	}

	lockKey := "refresh_lock:" + key
	deadline := time.Now().Add(lockAcquireDeadline)

	for {
		ok, err := c.redis.AcquireLock(ctx, lockKey, distributedLockTTL)
		if err != nil {
			// Redis trouble must not block refreshes
			return func() {}
		}
		if ok {
			return func() {
				if err := c.redis.ReleaseLock(context.Background(), lockKey); err != nil {
					log.Warn().Err(err).Msg("Failed to release refresh lock")
				}
			}
		}
		if time.Now().After(deadline) {
			log.Warn().Msg("Timed out waiting for cross-instance refresh lock")
			return func() {}
		}

		select {
		case <-time.After(lockRetryInterval):
		case <-ctx.Done():
			return func() {}
		}
	}
}

// Logout notifies the upstream issuer that the session is ending, then
// clears local credentials unconditionally. The upstream call is best
// effort; its failure never blocks the local sign-out.
func (c *Coordinator) Logout(ctx context.Context, store *credentials.Store) {
	pair := store.Get()
	if pair.AccessToken != "" || pair.RefreshToken != "" {
		c.notifyLogout(ctx, pair)
	}
	store.Clear()
}

func (c *Coordinator) notifyLogout(ctx context.Context, pair credentials.TokenPair) {
	body, err := json.Marshal(map[string]string{"refreshToken": pair.RefreshToken})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if pair.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("Upstream logout notification failed")
		return
	}
	resp.Body.Close()
}

func refreshKey(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}
