package token

import "time"

const (
	// ForwardLeeway is subtracted from a token's expiry when deciding
	// whether it is safe to attach to a request about to be sent. A token
	// expiring within this window is effectively already expired once
	// network latency and clock skew are accounted for.
	ForwardLeeway = 30 * time.Second

	// ProactiveWindow is the wider horizon used by validation/keep-alive
	// calls to trigger an early refresh before the token hard-expires.
	ProactiveWindow = 2 * time.Minute
)

// IsExpired reports whether the token expires within the given leeway.
// A token with no decodable expiry is treated as not provably expired,
// deliberately failing open: the upstream issuer remains the authority.
func IsExpired(token string, leeway time.Duration) bool {
	exp := DecodeExpiry(token)
	if exp == nil {
		return false
	}
	return time.Now().Unix() >= *exp-int64(leeway.Seconds())
}

// NeedsRefresh reports whether the token is close enough to expiry that a
// background or validation call should refresh it proactively.
func NeedsRefresh(token string) bool {
	return IsExpired(token, ProactiveWindow)
}
