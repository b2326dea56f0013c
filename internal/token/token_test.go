package token

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

// rawToken builds an unsigned three-segment token with an arbitrary payload,
// for claims the jwt library refuses to emit (e.g. string-typed exp).
func rawToken(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return header + "." + body + ".signature"
}

func TestDecodeExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
		want  *int64
	}{
		{
			name:  "Numeric exp claim",
			token: signedToken(t, jwt.MapClaims{"exp": exp}),
			want:  &exp,
		},
		{
			name:  "String exp claim coerced",
			token: rawToken(fmt.Sprintf(`{"exp":"%d"}`, exp)),
			want:  &exp,
		},
		{
			name:  "Missing exp claim",
			token: signedToken(t, jwt.MapClaims{"sub": "user-1"}),
			want:  nil,
		},
		{
			name:  "Non-numeric string exp",
			token: rawToken(`{"exp":"soon"}`),
			want:  nil,
		},
		{
			name:  "Malformed token",
			token: "not-a-jwt",
			want:  nil,
		},
		{
			name:  "Two segments only",
			token: "header.payload",
			want:  nil,
		},
		{
			name:  "Payload is not JSON",
			token: rawToken("plain text"),
			want:  nil,
		},
		{
			name:  "Empty token",
			token: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeExpiry(tt.token)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("DecodeExpiry() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("DecodeExpiry() = %d, want %d", *got, *tt.want)
			}
		})
	}
}

func TestIsExpired(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		leeway time.Duration
		want   bool
	}{
		{
			name:   "Expired an hour ago",
			token:  signedToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}),
			leeway: 0,
			want:   true,
		},
		{
			name:   "Expired with any leeway",
			token:  signedToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}),
			leeway: ForwardLeeway,
			want:   true,
		},
		{
			name:   "Fresh token",
			token:  signedToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
			leeway: ForwardLeeway,
			want:   false,
		},
		{
			name:   "Inside the leeway window",
			token:  signedToken(t, jwt.MapClaims{"exp": time.Now().Add(10 * time.Second).Unix()}),
			leeway: ForwardLeeway,
			want:   true,
		},
		{
			name:   "Undecodable token fails open",
			token:  "garbage",
			leeway: ForwardLeeway,
			want:   false,
		},
		{
			name:   "No exp claim fails open",
			token:  signedToken(t, jwt.MapClaims{"sub": "user-1"}),
			leeway: ForwardLeeway,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExpired(tt.token, tt.leeway); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeedsRefresh(t *testing.T) {
	fresh := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	if NeedsRefresh(fresh) {
		t.Error("Expected fresh token to not need refresh")
	}

	closing := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()})
	if !NeedsRefresh(closing) {
		t.Error("Expected token expiring within the proactive window to need refresh")
	}
}
