// ABOUTME: Session model, kinds, and sentinel errors for the session cache
// ABOUTME: Sessions snapshot account state at creation and are never refreshed

package session

import (
	"errors"
	"time"
)

// Kind classifies a session's time-to-live tier.
type Kind string

const (
	KindShort    Kind = "short"
	KindLong     Kind = "long"
	KindElevated Kind = "elevated"
)

// Domain errors returned by Cache operations.
var (
	// ErrWrongPassOrName is returned by Create for both an unknown name and
	// a wrong password, deliberately indistinguishable so login attempts
	// can't enumerate account names.
	ErrWrongPassOrName = errors.New("wrong password or name")

	// ErrSIDGeneration is returned when the session ID generator fails.
	ErrSIDGeneration = errors.New("session id generation failed")

	// ErrUnknownSession is returned when a SID is not cached.
	ErrUnknownSession = errors.New("unknown session")

	// ErrRootRequired is returned by Elevate on a non-root session.
	ErrRootRequired = errors.New("root session required")

	// ErrUnknownAccount is returned by Elevate when the owning account has
	// vanished since the session was created.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrBadPass is returned by Elevate when re-verification fails.
	ErrBadPass = errors.New("bad password")
)

// Session is a live login held only in memory. Name, UUID, and Root are a
// snapshot of the account taken at creation time; revoking an account's root
// flag does not touch sessions already issued for it - they keep their
// snapshot until they expire or are destroyed.
type Session struct {
	Name      string
	UUID      string
	Root      bool
	Elevated  bool
	Kind      Kind
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TTLs holds the per-kind session lifetimes. Elevated is expected to be the
// shortest, bounding the privileged-access window.
type TTLs struct {
	Short    time.Duration
	Long     time.Duration
	Elevated time.Duration
}

// For returns the lifetime for a session kind.
func (t TTLs) For(kind Kind) time.Duration {
	switch kind {
	case KindLong:
		return t.Long
	case KindElevated:
		return t.Elevated
	default:
		return t.Short
	}
}
