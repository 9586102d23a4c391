// ABOUTME: Collision-free identifier generation for account UUIDs and session IDs
// ABOUTME: Retries against a caller-supplied existence check until the candidate is free

package ident

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// sidBytes is the entropy drawn per session ID candidate. 64 bytes of
// crypto/rand rendered as URL-safe base64 makes an accidental collision
// astronomically unlikely, which is why the retry loop below is unbounded.
const sidBytes = 64

// ExistsFunc reports whether a candidate identifier is already in use.
type ExistsFunc func(candidate string) bool

// AccountUUID mints a unique account identifier of the form
// "<name>.<random-uuid>", retrying until exists rejects the candidate.
// It returns an error only if the random source fails.
//
// The candidate is not reserved: a concurrent caller could mint the same
// identifier between the check and the eventual persist. Within a single
// process the account store serializes writes, so this is acceptable.
func AccountUUID(name string, exists ExistsFunc) (string, error) {
	for {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("generating uuid: %w", err)
		}
		candidate := fmt.Sprintf("%s.%s", name, id.String())
		if !exists(candidate) {
			return candidate, nil
		}
	}
}

// SessionID mints a high-entropy session identifier, retrying until exists
// rejects the candidate. It returns an error only if the random source fails.
func SessionID(exists ExistsFunc) (string, error) {
	for {
		b := make([]byte, sidBytes)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		candidate := base64.URLEncoding.EncodeToString(b)
		if !exists(candidate) {
			return candidate, nil
		}
	}
}
