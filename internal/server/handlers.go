package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/authbridge/session-gateway/internal/auth/types"
	"github.com/authbridge/session-gateway/internal/client"
)

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"message": msg, "type": "gateway_error"},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleLogin signs in with the JSON credentials from the request body
// and returns the backend's raw sign-in response.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	creds, err := io.ReadAll(r.Body)
	if err != nil || len(creds) == 0 {
		s.writeError(w, "missing credentials body", http.StatusBadRequest)
		return
	}

	body, err := s.auth.SignIn(r.Context(), json.RawMessage(creds), nil)
	if err != nil {
		var extractErr *types.TokenExtractionError
		if errors.As(err, &extractErr) {
			s.writeError(w, extractErr.Error(), http.StatusBadGateway)
			return
		}
		s.writeError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	s.scheduler.Kick()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// handleLogout ends the session. Always succeeds locally.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.auth.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// handleRegister creates an account; ?signin=true establishes a session
// with the same credentials afterwards.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	creds, err := io.ReadAll(r.Body)
	if err != nil || len(creds) == 0 {
		s.writeError(w, "missing credentials body", http.StatusBadRequest)
		return
	}

	opts := &client.SignUpOptions{SignInAfter: r.URL.Query().Get("signin") == "true"}
	if err := s.auth.SignUp(r.Context(), json.RawMessage(creds), opts); err != nil {
		s.writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	if opts.SignInAfter {
		s.scheduler.Kick()
	}
	w.WriteHeader(http.StatusCreated)
}

// handleSession revalidates and returns the session payload, or null
// when unauthenticated. Transient backend failures return 502 and leave
// local state untouched.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := s.auth.GetSession(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("server: session revalidation failed")
		s.writeError(w, "session backend unavailable", http.StatusBadGateway)
		return
	}

	if payload == nil {
		s.writeJSON(w, http.StatusOK, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// handleHealth returns gateway health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"time":          time.Now().Format(time.RFC3339),
		"authenticated": snap.Authenticated(),
		"refresh":       s.scheduler.StateNow().String(),
	})
}
