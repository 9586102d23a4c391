// Package httpapi exposes the account store and session cache over a
// cookie-session HTTP JSON API.
//
// # Endpoints
//
//	POST   /api/login              create a session (name, password, long)
//	POST   /api/logout             destroy the current session
//	POST   /api/renew              activity heartbeat
//	POST   /api/elevate            privilege elevation (password)
//	GET    /api/whoami             current session snapshot
//	GET    /api/users              list accounts (root sessions)
//	POST   /api/users              create an account (elevated sessions)
//	DELETE /api/users/{name}       delete an account (elevated sessions)
//	GET    /api/prefs              list own preferences
//	GET    /api/prefs/{key}        read a preference
//	PUT    /api/prefs/{key}        store a preference (any JSON value)
//	DELETE /api/prefs/{key}        remove a preference
//
// The session is carried in an HttpOnly cookie. Login failures are 401 with
// one undifferentiated message regardless of whether the name or the
// password was wrong.
package httpapi
