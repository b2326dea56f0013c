package credentials

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forkful/gateway/internal/config"
)

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestStoreGet(t *testing.T) {
	tests := []struct {
		name        string
		cookies     map[string]string
		wantAccess  string
		wantRefresh string
	}{
		{
			name: "Both tokens present",
			cookies: map[string]string{
				config.GetAccessCookieName():  "access-1",
				config.GetRefreshCookieName(): "refresh-1",
			},
			wantAccess:  "access-1",
			wantRefresh: "refresh-1",
		},
		{
			name: "Refresh only",
			cookies: map[string]string{
				config.GetRefreshCookieName(): "refresh-1",
			},
			wantRefresh: "refresh-1",
		},
		{
			name:    "No session",
			cookies: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for name, value := range tt.cookies {
				r.AddCookie(&http.Cookie{Name: name, Value: value})
			}

			store := NewStore(httptest.NewRecorder(), r)
			pair := store.Get()

			if pair.AccessToken != tt.wantAccess {
				t.Errorf("Expected access token %q, got %q", tt.wantAccess, pair.AccessToken)
			}
			if pair.RefreshToken != tt.wantRefresh {
				t.Errorf("Expected refresh token %q, got %q", tt.wantRefresh, pair.RefreshToken)
			}
		})
	}
}

func TestStoreSet(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	store := NewStore(w, r)

	exp := time.Now().Add(30 * time.Minute).Unix()
	store.Set(TokenPair{AccessToken: "a", RefreshToken: "b", AccessExpiry: &exp})

	cookies := w.Result().Cookies()

	access := cookieByName(cookies, config.GetAccessCookieName())
	if access == nil {
		t.Fatal("Expected access cookie to be set")
	}
	if access.Value != "a" {
		t.Errorf("Expected access cookie value 'a', got %q", access.Value)
	}
	if !access.HttpOnly {
		t.Error("Expected access cookie to be HttpOnly")
	}
	if access.SameSite != http.SameSiteLaxMode {
		t.Error("Expected access cookie SameSite=Lax")
	}
	if got := access.Expires.Unix(); got != exp {
		t.Errorf("Expected access cookie to expire at %d, got %d", exp, got)
	}

	refresh := cookieByName(cookies, config.GetRefreshCookieName())
	if refresh == nil {
		t.Fatal("Expected refresh cookie to be set")
	}
	if refresh.Value != "b" {
		t.Errorf("Expected refresh cookie value 'b', got %q", refresh.Value)
	}
	if !refresh.HttpOnly {
		t.Error("Expected refresh cookie to be HttpOnly")
	}
	// Refresh lifetime is fixed and long, independent of the access expiry
	if refresh.Expires.Before(time.Now().Add(29 * 24 * time.Hour)) {
		t.Errorf("Expected refresh cookie to live ~30 days, expires %v", refresh.Expires)
	}

	// Writes are visible to later reads on the same store
	pair := store.Get()
	if pair.AccessToken != "a" || pair.RefreshToken != "b" {
		t.Errorf("Expected Get to observe the installed pair, got %+v", pair)
	}
}

func TestStoreSetWithoutExpiryClaim(t *testing.T) {
	w := httptest.NewRecorder()
	store := NewStore(w, httptest.NewRequest(http.MethodGet, "/", nil))

	store.Set(TokenPair{AccessToken: "a", RefreshToken: "b"})

	access := cookieByName(w.Result().Cookies(), config.GetAccessCookieName())
	if access == nil {
		t.Fatal("Expected access cookie to be set")
	}

	// Falls back to the conservative fixed lifetime
	fallback := time.Now().Add(accessTokenFallback)
	if access.Expires.After(fallback.Add(time.Minute)) || access.Expires.Before(fallback.Add(-time.Minute)) {
		t.Errorf("Expected access cookie to expire near %v, got %v", fallback, access.Expires)
	}
}

func TestStoreClear(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: config.GetAccessCookieName(), Value: "a"})
	r.AddCookie(&http.Cookie{Name: config.GetRefreshCookieName(), Value: "b"})

	store := NewStore(w, r)
	store.Clear()

	pair := store.Get()
	if pair.AccessToken != "" || pair.RefreshToken != "" {
		t.Errorf("Expected empty pair after Clear, got %+v", pair)
	}

	for _, name := range []string{config.GetAccessCookieName(), config.GetRefreshCookieName()} {
		cookie := cookieByName(w.Result().Cookies(), name)
		if cookie == nil {
			t.Fatalf("Expected deletion cookie for %s", name)
		}
		if cookie.Value != "" {
			t.Errorf("Expected empty value for %s, got %q", name, cookie.Value)
		}
		if !cookie.Expires.Before(time.Now()) {
			t.Errorf("Expected %s to be expired, got %v", name, cookie.Expires)
		}
	}

	// Idempotent
	store.Clear()
	pair = store.Get()
	if pair.AccessToken != "" || pair.RefreshToken != "" {
		t.Errorf("Expected empty pair after repeated Clear, got %+v", pair)
	}
}

func TestStoreClearWithoutSession(t *testing.T) {
	w := httptest.NewRecorder()
	store := NewStore(w, httptest.NewRequest(http.MethodGet, "/", nil))

	// Must not panic or misbehave with no cookies at all
	store.Clear()
	store.Clear()

	if pair := store.Get(); pair.AccessToken != "" || pair.RefreshToken != "" {
		t.Errorf("Expected empty pair, got %+v", pair)
	}
}

func TestEnsureDevice(t *testing.T) {
	t.Run("Provisions on first contact", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("User-Agent", "ForkfulWeb/1.0")
		store := NewStore(w, r)

		device := store.EnsureDevice()
		if device.DeviceID == "" {
			t.Fatal("Expected a device ID to be generated")
		}
		if device.DeviceName != "ForkfulWeb/1.0" {
			t.Errorf("Expected device name from User-Agent, got %q", device.DeviceName)
		}

		cookie := cookieByName(w.Result().Cookies(), config.GetDeviceCookieName())
		if cookie == nil {
			t.Fatal("Expected device cookie to be set")
		}
		if cookie.HttpOnly {
			t.Error("Expected device cookie to be script-readable")
		}
		if cookie.Value != device.DeviceID {
			t.Errorf("Expected device cookie %q, got %q", device.DeviceID, cookie.Value)
		}

		// Stable within the request
		again := store.EnsureDevice()
		if again.DeviceID != device.DeviceID {
			t.Errorf("Expected stable device ID, got %q then %q", device.DeviceID, again.DeviceID)
		}
	})

	t.Run("Reuses existing cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: config.GetDeviceCookieName(), Value: "device-42"})
		store := NewStore(w, r)

		device := store.EnsureDevice()
		if device.DeviceID != "device-42" {
			t.Errorf("Expected existing device ID, got %q", device.DeviceID)
		}
		if cookieByName(w.Result().Cookies(), config.GetDeviceCookieName()) != nil {
			t.Error("Expected no new device cookie to be written")
		}
	})
}
