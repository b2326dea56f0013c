package credentials

import (
	"net/http"
	"time"

	"github.com/forkful/gateway/internal/config"
	"github.com/forkful/gateway/internal/logger"
	"github.com/google/uuid"
)

const (
	refreshTokenLifetime = 30 * 24 * time.Hour
	// accessTokenFallback applies when the access token carries no
	// decodable expiry claim
	accessTokenFallback = 1 * time.Hour
	deviceLifetime      = 365 * 24 * time.Hour

	maxDeviceNameLength = 128
)

// TokenPair is the access/refresh credential pair owned by this store.
// It is always replaced wholesale, never mutated field by field.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExpiry *int64
}

// DeviceIdentity correlates refresh calls with a stable per-installation
// identity so the issuer can bind tokens to a device for revocation.
type DeviceIdentity struct {
	DeviceID   string
	DeviceName string
}

// Store reads and writes the durable token pair for a single request.
// It is bound to the inbound cookie jar and the outbound Set-Cookie sink
// explicitly; nothing in this package touches ambient request state.
//
// Writes within a request are visible to later Gets on the same Store,
// even though the inbound request's cookies never change.
type Store struct {
	w http.ResponseWriter
	r *http.Request

	pending       *TokenPair
	pendingDevice *DeviceIdentity
	cleared       bool
}

func NewStore(w http.ResponseWriter, r *http.Request) *Store {
	return &Store{w: w, r: r}
}

// Get returns the current token pair. Either member may be empty.
func (s *Store) Get() TokenPair {
	if s.cleared {
		return TokenPair{}
	}
	if s.pending != nil {
		return *s.pending
	}

	var pair TokenPair
	if cookie, err := s.r.Cookie(config.GetAccessCookieName()); err == nil {
		pair.AccessToken = cookie.Value
	}
	if cookie, err := s.r.Cookie(config.GetRefreshCookieName()); err == nil {
		pair.RefreshToken = cookie.Value
	}
	return pair
}

// Set installs a new token pair, replacing both cookies. The access cookie
// expiry follows the pair's decoded expiry claim when available; the refresh
// cookie always gets the fixed long lifetime regardless of claim content.
func (s *Store) Set(pair TokenPair) {
	accessExpires := time.Now().Add(accessTokenFallback)
	if pair.AccessExpiry != nil {
		accessExpires = time.Unix(*pair.AccessExpiry, 0)
	}

	http.SetCookie(s.w, &http.Cookie{
		Name:     config.GetAccessCookieName(),
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   config.GetSecureCookies(),
		SameSite: http.SameSiteLaxMode,
		Expires:  accessExpires,
	})

	http.SetCookie(s.w, &http.Cookie{
		Name:     config.GetRefreshCookieName(),
		Value:    pair.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   config.GetSecureCookies(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(refreshTokenLifetime),
	})

	s.pending = &pair
	s.cleared = false

	logger.Debug(logger.CREDENTIALS, "Installed new token pair")
}

// Clear deletes both token cookies. Safe to call when no session exists
// and safe to call repeatedly.
func (s *Store) Clear() {
	for _, name := range []string{config.GetAccessCookieName(), config.GetRefreshCookieName()} {
		http.SetCookie(s.w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   config.GetSecureCookies(),
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(-1 * time.Hour),
		})
	}

	s.pending = nil
	s.cleared = true
}

// Device returns the device identity if one exists, without creating it.
func (s *Store) Device() (DeviceIdentity, bool) {
	if s.pendingDevice != nil {
		return *s.pendingDevice, true
	}

	cookie, err := s.r.Cookie(config.GetDeviceCookieName())
	if err != nil || cookie.Value == "" {
		return DeviceIdentity{}, false
	}

	return DeviceIdentity{
		DeviceID:   cookie.Value,
		DeviceName: deviceName(s.r),
	}, true
}

// EnsureDevice returns the device identity, provisioning one on first
// contact. The cookie is intentionally script-readable so the browser
// client can display "this device" in session listings.
func (s *Store) EnsureDevice() DeviceIdentity {
	if device, ok := s.Device(); ok {
		return device
	}

	device := DeviceIdentity{
		DeviceID:   uuid.New().String(),
		DeviceName: deviceName(s.r),
	}

	http.SetCookie(s.w, &http.Cookie{
		Name:     config.GetDeviceCookieName(),
		Value:    device.DeviceID,
		Path:     "/",
		Secure:   config.GetSecureCookies(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(deviceLifetime),
	})

	s.pendingDevice = &device

	logger.Info(logger.CREDENTIALS, "Provisioned device identity %s", device.DeviceID)
	return device
}

func deviceName(r *http.Request) string {
	name := r.UserAgent()
	if len(name) > maxDeviceNameLength {
		name = name[:maxDeviceNameLength]
	}
	return name
}
