package handlers

import (
	"net/http"

	"github.com/forkful/gateway/internal/credentials"
	"github.com/forkful/gateway/internal/services/refresh"
	"github.com/forkful/gateway/internal/token"
	"github.com/forkful/gateway/pkg/httpext"
)

// SessionView is computed fresh on every validation call and never stored.
type SessionView struct {
	Valid        bool `json:"valid"`
	NeedsRefresh bool `json:"needsRefresh"`
	HasToken     bool `json:"hasToken"`
}

// HandleValidate reports whether the caller's session is still good,
// refreshing proactively when the access token is inside the refresh
// window. It never touches the resource API, so clients can poll it as a
// cheap keep-alive.
func HandleValidate(coordinator *refresh.Coordinator, w http.ResponseWriter, r *http.Request) {
	store := credentials.NewStore(w, r)
	store.EnsureDevice()

	pair := store.Get()
	if pair.AccessToken == "" && pair.RefreshToken == "" {
		httpext.JsonBody(w, http.StatusUnauthorized, SessionView{})
		return
	}

	view := SessionView{
		HasToken:     pair.AccessToken != "",
		NeedsRefresh: pair.AccessToken == "" || token.NeedsRefresh(pair.AccessToken),
	}

	if view.NeedsRefresh && pair.RefreshToken != "" {
		view.Valid = coordinator.Refresh(r.Context(), store)
		view.HasToken = store.Get().AccessToken != ""
	} else {
		view.Valid = true
	}

	httpext.JsonBody(w, http.StatusOK, view)
}

// HandleLogout notifies the upstream issuer best-effort, then clears local
// credentials unconditionally.
func HandleLogout(coordinator *refresh.Coordinator, w http.ResponseWriter, r *http.Request) {
	store := credentials.NewStore(w, r)
	coordinator.Logout(r.Context(), store)

	httpext.JsonBody(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleHealth is a liveness probe
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpext.JsonBody(w, http.StatusOK, map[string]string{"status": "ok"})
}
