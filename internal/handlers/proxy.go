package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/forkful/gateway/internal/credentials"
	"github.com/forkful/gateway/internal/services/proxy"
	"github.com/forkful/gateway/internal/services/refresh"
	"github.com/forkful/gateway/internal/token"
	"github.com/forkful/gateway/pkg/httpext"
	"github.com/rs/zerolog/log"
)

const (
	authStatusHeader    = "X-Auth-Status"
	authStatusInvalid   = "invalid"
	authStatusForbidden = "forbidden"

	// authErrorBodyLimit caps how much of a 400/422 body is inspected for
	// token-related error text. The substring match is a compatibility
	// heuristic: the upstream API sometimes reports token errors as
	// validation errors, and the client relies on the gateway normalizing
	// them to 401.
	authErrorBodyLimit = 8 << 10
)

// HandleProxy forwards an inbound request to the upstream resource API,
// ensuring a usable access token first and recovering from a mid-flight 401
// with exactly one refresh-and-retry. Bounded at two resource calls and two
// refresh attempts per inbound request.
func HandleProxy(coordinator *refresh.Coordinator, forwarder *proxy.Forwarder, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := credentials.NewStore(w, r)
	store.EnsureDevice()

	// Buffer the inbound body so a post-401 retry can replay it
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	r.Body.Close()

	// Proactive path: refresh before forwarding when the token is missing
	// or too close to expiry to survive the trip
	pair := store.Get()
	accessToken := pair.AccessToken
	if (accessToken == "" || token.IsExpired(accessToken, token.ForwardLeeway)) && pair.RefreshToken != "" {
		coordinator.Refresh(ctx, store)
		accessToken = store.Get().AccessToken
	}

	// A token still expired at this point cannot succeed upstream.
	// Forward unauthenticated instead of attaching a known-stale
	// credential; upstream enforces authorization either way.
	if token.IsExpired(accessToken, token.ForwardLeeway) {
		accessToken = ""
	}

	r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	r.ContentLength = int64(len(bodyBytes))
	resp, err := forwarder.Forward(ctx, r, accessToken)
	if err != nil {
		// Network failure to the resource API is orthogonal to token
		// state: no refresh, no retry, tokens untouched
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Upstream forward failed")
		httpext.JsonError(w, "Upstream unreachable", http.StatusBadGateway)
		return
	}

	// Reactive path: one refresh, one retry, then give up
	if resp.StatusCode == http.StatusUnauthorized && store.Get().RefreshToken != "" {
		if coordinator.Refresh(ctx, store) {
			resp.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			r.ContentLength = int64(len(bodyBytes))
			retry, err := forwarder.Forward(ctx, r, store.Get().AccessToken)
			if err != nil {
				log.Error().Err(err).Str("path", r.URL.Path).Msg("Upstream retry failed")
				httpext.JsonError(w, "Upstream unreachable", http.StatusBadGateway)
				return
			}
			resp = retry
		}
	}
	defer resp.Body.Close()

	status := resp.StatusCode

	switch {
	case status == http.StatusUnauthorized:
		// The session is beyond recovery; tell the client to force a
		// sign-in rather than retry
		store.Clear()
		w.Header().Set(authStatusHeader, authStatusInvalid)
	case status == http.StatusForbidden:
		// The session is fine, the action is not permitted
		w.Header().Set(authStatusHeader, authStatusForbidden)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		peek, _ := io.ReadAll(io.LimitReader(resp.Body, authErrorBodyLimit))
		resp.Body = readerWithCloser{io.MultiReader(bytes.NewReader(peek), resp.Body), resp.Body}

		if sniffed := strings.ToLower(string(peek)); strings.Contains(sniffed, "token") || strings.Contains(sniffed, "jwt") {
			log.Warn().Int("upstream_status", status).Msg("Token error surfaced as validation error, remapping to 401")
			store.Clear()
			w.Header().Set(authStatusHeader, authStatusInvalid)
			status = http.StatusUnauthorized
		}
	}

	for name, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.WriteHeader(status)

	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Debug().Err(err).Msg("Streaming upstream body to caller aborted")
	}
}

// readerWithCloser pairs a replacement body reader with the original
// closer so the upstream connection is still released properly.
type readerWithCloser struct {
	io.Reader
	io.Closer
}
