// ABOUTME: Account model and sentinel errors for the credential store
// ABOUTME: Accounts are JSON documents in the accounts partition, keyed by name

package account

import (
	"errors"
	"time"
)

// Domain errors returned by Store operations. Callers branch on these with
// errors.Is; they are expected outcomes, not failures.
var (
	// ErrNameTaken is returned when creating an account whose name exists.
	ErrNameTaken = errors.New("account name already taken")

	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrCantDeleteLastRoot is returned when deleting the sole root account.
	ErrCantDeleteLastRoot = errors.New("cannot delete the last root account")

	// ErrBadPassword is returned by Verify when the password does not match.
	ErrBadPassword = errors.New("password mismatch")
)

// Account is a persisted user record. Name is the storage key and is
// attached on read rather than serialized into the value.
type Account struct {
	Name      string     `json:"-"`
	Hash      string     `json:"hash"`
	UUID      string     `json:"uuid"`
	Root      bool       `json:"root"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"` // nil means never logged in
}

// Entry is a request to create an account.
type Entry struct {
	Name     string
	Password string
	Root     bool
}
