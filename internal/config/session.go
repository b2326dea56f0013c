package config

import "sync"

var (
	cookieMu sync.RWMutex

	// Cookie names are contracts with the browser client; override only
	// when running multiple gateway instances against one domain.
	accessCookieName  = GetEnvOrDefault("ACCESS_COOKIE_NAME", "forkful_access")
	refreshCookieName = GetEnvOrDefault("REFRESH_COOKIE_NAME", "forkful_refresh")
	deviceCookieName  = GetEnvOrDefault("DEVICE_COOKIE_NAME", "forkful_device")

	secureCookies = GetEnvOrDefault("ENV", "development") == "production"
)

// GetAccessCookieName returns the configured access token cookie name
func GetAccessCookieName() string {
	cookieMu.RLock()
	defer cookieMu.RUnlock()
	return accessCookieName
}

// GetRefreshCookieName returns the configured refresh token cookie name
func GetRefreshCookieName() string {
	cookieMu.RLock()
	defer cookieMu.RUnlock()
	return refreshCookieName
}

// GetDeviceCookieName returns the configured device identity cookie name
func GetDeviceCookieName() string {
	cookieMu.RLock()
	defer cookieMu.RUnlock()
	return deviceCookieName
}

// GetSecureCookies reports whether cookies should carry the Secure flag
func GetSecureCookies() bool {
	cookieMu.RLock()
	defer cookieMu.RUnlock()
	return secureCookies
}

// SetSecureCookies temporarily changes the Secure flag behaviour and returns a function to restore it
// This is primarily used for testing
func SetSecureCookies(secure bool) func() {
	cookieMu.Lock()
	previous := secureCookies
	secureCookies = secure
	cookieMu.Unlock()

	return func() {
		cookieMu.Lock()
		secureCookies = previous
		cookieMu.Unlock()
	}
}
