// ABOUTME: HTTP handlers for sessions, user administration, and preferences
// ABOUTME: Domain errors map to 4xx JSON responses with stable code strings

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/The-Filefly-Project/user/internal/account"
	"github.com/The-Filefly-Project/user/internal/prefs"
	"github.com/The-Filefly-Project/user/internal/session"
)

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Long     bool   `json:"long"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sid, err := a.sessions.Create(r.Context(), req.Name, req.Password, req.Long)
	if errors.Is(err, session.ErrWrongPassOrName) {
		writeError(w, http.StatusUnauthorized, "wrong password or name")
		return
	}
	if err != nil {
		a.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "an error occurred")
		return
	}

	// Best effort; a failed stamp must not undo a successful login
	if err := a.accounts.TouchLogin(r.Context(), req.Name); err != nil {
		a.logger.Error("stamping last login", "name", req.Name, "error", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"sid": sid})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request, sid string, _ *session.Session) {
	a.sessions.Destroy(sid)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRenew(w http.ResponseWriter, r *http.Request, sid string, _ *session.Session) {
	s := a.sessions.Renew(sid)
	if s == nil {
		// Swept between middleware and here
		writeError(w, http.StatusUnauthorized, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, sessionView(s))
}

type elevateRequest struct {
	Password string `json:"password"`
}

func (a *API) handleElevate(w http.ResponseWriter, r *http.Request, sid string, _ *session.Session) {
	var req elevateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := a.sessions.Elevate(r.Context(), sid, req.Password)
	switch {
	case err == nil:
		if s := a.sessions.Get(sid); s != nil {
			writeJSON(w, http.StatusOK, sessionView(s))
		} else {
			writeError(w, http.StatusUnauthorized, "unknown session")
		}
	case errors.Is(err, session.ErrUnknownSession):
		writeError(w, http.StatusUnauthorized, "unknown session")
	case errors.Is(err, session.ErrRootRequired):
		writeError(w, http.StatusForbidden, "root session required")
	case errors.Is(err, session.ErrUnknownAccount):
		writeError(w, http.StatusForbidden, "account no longer exists")
	case errors.Is(err, session.ErrBadPass):
		writeError(w, http.StatusForbidden, "bad password")
	default:
		a.logger.Error("elevation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "an error occurred")
	}
}

func (a *API) handleWhoami(w http.ResponseWriter, r *http.Request, _ string, s *session.Session) {
	writeJSON(w, http.StatusOK, sessionView(s))
}

// userView is the account shape returned by the API. The hash never leaves
// the store.
type userView struct {
	Name      string     `json:"name"`
	UUID      string     `json:"uuid"`
	Root      bool       `json:"root"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

func (a *API) handleUsersList(w http.ResponseWriter, r *http.Request, _ string, _ *session.Session) {
	entries, err := a.accounts.ListEntries(r.Context())
	if err != nil {
		a.logger.Error("listing accounts", "error", err)
		writeError(w, http.StatusInternalServerError, "an error occurred")
		return
	}

	views := make([]userView, 0, len(entries))
	for _, acc := range entries {
		views = append(views, userView{
			Name:      acc.Name,
			UUID:      acc.UUID,
			Root:      acc.Root,
			CreatedAt: acc.CreatedAt,
			LastLogin: acc.LastLogin,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type createUserRequest struct {
	Name       string `json:"name"`
	Password   string `json:"password"`
	Root       bool   `json:"root"`
	SkipChecks bool   `json:"skip_checks"`
}

func (a *API) handleUserCreate(w http.ResponseWriter, r *http.Request, _ string, _ *session.Session) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry := account.Entry{Name: req.Name, Password: req.Password, Root: req.Root}
	if err := a.accounts.Create(r.Context(), entry, req.SkipChecks); err != nil {
		if code, ok := errorCode(err); ok {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": code})
			return
		}
		a.logger.Error("creating account", "error", err)
		writeError(w, http.StatusInternalServerError, "an error occurred")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *API) handleUserDelete(w http.ResponseWriter, r *http.Request, _ string, _ *session.Session) {
	name := r.PathValue("name")

	err := a.accounts.Delete(r.Context(), name)
	switch {
	case errors.Is(err, account.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
		return
	case errors.Is(err, account.ErrCantDeleteLastRoot):
		writeError(w, http.StatusConflict, "cannot delete the last root account")
		return
	case err != nil:
		a.logger.Error("deleting account", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "an error occurred")
		return
	}

	if err := a.prefs.Purge(r.Context(), name); err != nil {
		a.logger.Error("purging preferences", "name", name, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePrefsList(w http.ResponseWriter, r *http.Request, _ string, s *session.Session) {
	all, err := a.prefs.List(r.Context(), s.Name)
	if err != nil {
		a.logger.Error("listing preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "an error occurred")
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (a *API) handlePrefGet(w http.ResponseWriter, r *http.Request, _ string, s *session.Session) {
	raw, err := a.prefs.Get(r.Context(), s.Name, r.PathValue("key"))
	if errors.Is(err, prefs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "preference not found")
		return
	}
	if err != nil {
		a.logger.Error("reading preference", "error", err)
		writeError(w, http.StatusInternalServerError, "an error occurred")
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (a *API) handlePrefSet(w http.ResponseWriter, r *http.Request, _ string, s *session.Session) {
	var value json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON value")
		return
	}

	if err := a.prefs.Set(r.Context(), s.Name, r.PathValue("key"), value); err != nil {
		a.logger.Error("storing preference", "error", err)
		writeError(w, http.StatusInternalServerError, "an error occurred")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePrefDelete(w http.ResponseWriter, r *http.Request, _ string, s *session.Session) {
	if err := a.prefs.Delete(r.Context(), s.Name, r.PathValue("key")); err != nil {
		a.logger.Error("deleting preference", "error", err)
		writeError(w, http.StatusInternalServerError, "an error occurred")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	Name      string    `json:"name"`
	UUID      string    `json:"uuid"`
	Root      bool      `json:"root"`
	Elevated  bool      `json:"elevated"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func sessionView(s *session.Session) sessionResponse {
	return sessionResponse{
		Name:      s.Name,
		UUID:      s.UUID,
		Root:      s.Root,
		Elevated:  s.Elevated,
		Kind:      string(s.Kind),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
