// ABOUTME: Cookie-session HTTP JSON API over the account store and session cache
// ABOUTME: Login/logout/renew/elevate plus user administration and preferences

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/The-Filefly-Project/user/internal/account"
	"github.com/The-Filefly-Project/user/internal/prefs"
	"github.com/The-Filefly-Project/user/internal/session"
)

// SessionCookieName is the name of the session cookie.
const SessionCookieName = "user_session"

// API serves the HTTP surface of the user service.
type API struct {
	accounts *account.Store
	sessions *session.Cache
	prefs    *prefs.Store
	logger   *slog.Logger
}

// New wires the API over the account store, session cache, and preference
// store.
func New(accounts *account.Store, sessions *session.Cache, prefStore *prefs.Store, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		accounts: accounts,
		sessions: sessions,
		prefs:    prefStore,
		logger:   logger.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", a.handleLogin)

	mux.HandleFunc("POST /api/logout", a.requireSession(a.handleLogout))
	mux.HandleFunc("POST /api/renew", a.requireSession(a.handleRenew))
	mux.HandleFunc("POST /api/elevate", a.requireSession(a.handleElevate))
	mux.HandleFunc("GET /api/whoami", a.requireSession(a.handleWhoami))

	mux.HandleFunc("GET /api/users", a.requireRoot(a.handleUsersList))
	mux.HandleFunc("POST /api/users", a.requireElevated(a.handleUserCreate))
	mux.HandleFunc("DELETE /api/users/{name}", a.requireElevated(a.handleUserDelete))

	mux.HandleFunc("GET /api/prefs", a.requireSession(a.handlePrefsList))
	mux.HandleFunc("GET /api/prefs/{key}", a.requireSession(a.handlePrefGet))
	mux.HandleFunc("PUT /api/prefs/{key}", a.requireSession(a.handlePrefSet))
	mux.HandleFunc("DELETE /api/prefs/{key}", a.requireSession(a.handlePrefDelete))
}

// sessionHandler is a handler that runs with a resolved session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sid string, s *session.Session)

// requireSession wraps a handler to require a live session cookie.
func (a *API) requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		s := a.sessions.Get(cookie.Value)
		if s == nil {
			writeError(w, http.StatusUnauthorized, "unknown session")
			return
		}
		next(w, r, cookie.Value, s)
	}
}

// requireRoot additionally requires the session's root snapshot.
func (a *API) requireRoot(next sessionHandler) http.HandlerFunc {
	return a.requireSession(func(w http.ResponseWriter, r *http.Request, sid string, s *session.Session) {
		if !s.Root {
			writeError(w, http.StatusForbidden, "root session required")
			return
		}
		next(w, r, sid, s)
	})
}

// requireElevated requires an actively elevated session for the
// state-changing administration endpoints.
func (a *API) requireElevated(next sessionHandler) http.HandlerFunc {
	return a.requireSession(func(w http.ResponseWriter, r *http.Request, sid string, s *session.Session) {
		if !s.Elevated {
			writeError(w, http.StatusForbidden, "elevated session required")
			return
		}
		next(w, r, sid, s)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode unmarshals a request body into dst, rejecting unknown fields.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// errorCode maps account domain errors to stable API code strings.
func errorCode(err error) (string, bool) {
	switch {
	case errors.Is(err, account.ErrNameTaken):
		return "name_taken", true
	case errors.Is(err, account.ErrBadEntry):
		return "bad_entry", true
	case errors.Is(err, account.ErrNameTooShort):
		return "name_too_short", true
	case errors.Is(err, account.ErrNameTooLong):
		return "name_too_long", true
	case errors.Is(err, account.ErrPassTooShort):
		return "pass_too_short", true
	case errors.Is(err, account.ErrPassNoNums):
		return "pass_no_numbers", true
	case errors.Is(err, account.ErrPassNoBigChars):
		return "pass_no_uppercase", true
	case errors.Is(err, account.ErrPassNoSmallChars):
		return "pass_no_lowercase", true
	case errors.Is(err, account.ErrPassNoSpecialChars):
		return "pass_no_special", true
	case errors.Is(err, account.ErrNotFound):
		return "user_not_found", true
	case errors.Is(err, account.ErrCantDeleteLastRoot):
		return "cant_delete_last_root", true
	}
	return "", false
}
