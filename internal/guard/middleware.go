package guard

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/authbridge/session-gateway/internal/auth/types"
	"github.com/authbridge/session-gateway/internal/config"
	"github.com/authbridge/session-gateway/internal/session"
)

// Guard wires the decision function into an HTTP middleware. It only
// reads session state; errors never cross this boundary — anything short
// of an authenticated session is a deny.
type Guard struct {
	store  session.Reader
	routes *Routes
	policy Policy
}

// New builds a guard from loaded configuration, registering the
// configured per-page overrides.
func New(store session.Reader, routes *Routes, cfg *config.Config) *Guard {
	for pattern, auth := range cfg.Pages {
		routes.SetAuth(pattern, auth)
	}

	return &Guard{
		store:  store,
		routes: routes,
		policy: PolicyFromConfig(cfg),
	}
}

// Wrap applies the guard to next. Denied navigations receive a 302 to
// the sign-in target; everything else passes through untouched.
func (g *Guard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()

		exists, override := g.routes.Resolve(r.URL.Path)
		decision := Decide(Input{
			Route:         r.URL.Path,
			RouteExists:   exists,
			Authenticated: g.store.Snapshot().Authenticated(),
			Override:      override,
			Policy:        g.policy,
		})

		log.Debug().
			Str("request_id", reqID).
			Str("route", r.URL.Path).
			Bool("allow", decision.Allow).
			Str("reason", decision.Reason).
			Msg("guard: navigation evaluated")

		if !decision.Allow {
			http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAuth is a standalone middleware for API-style routes: instead of
// redirecting it answers 401 with a JSON body. A caller that forwards its
// own Authorization header must present the active credential; a stale or
// foreign token is rejected even while a session exists.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := g.store.Snapshot()
		if snap.Authenticated() && forwardedCredentialOK(snap, r) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"authentication required","redirect":"` + g.policy.LoginPath + `"}}`))
	})
}

// forwardedCredentialOK checks a forwarded Authorization header against
// the active token record. Absent headers pass: the session itself is the
// authentication signal, the header is only validated when offered.
func forwardedCredentialOK(snap session.Snapshot, r *http.Request) bool {
	hdr := r.Header.Get(types.HeaderAuthorization)
	if hdr == "" {
		return true
	}
	return snap.Record != nil && types.BearerToken(hdr) == snap.Record.Raw
}
