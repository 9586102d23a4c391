// ABOUTME: Per-user preference storage in the preferences partition
// ABOUTME: Values are opaque JSON documents keyed by "<user>/<key>"

package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/The-Filefly-Project/user/internal/kv"
)

// ErrNotFound is returned when a requested preference does not exist.
var ErrNotFound = errors.New("preference not found")

// Store keeps per-user preferences in the preferences partition of the
// key-value layer. Values are stored verbatim as JSON.
type Store struct {
	prefs  *kv.Partition
	logger *slog.Logger
}

// NewStore wires a preference store over an open key-value database.
func NewStore(db *kv.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		prefs:  db.Partition(kv.PartitionPreferences),
		logger: logger.With("component", "prefs"),
	}
}

// storageKey namespaces a preference key under its owner. The user component
// is escaped so a "/" in an account name cannot land a key inside another
// user's namespace. Keys sort by user first, which is what makes List a
// prefix scan.
func storageKey(user, key string) string {
	return userPrefix(user) + key
}

func userPrefix(user string) string {
	return url.PathEscape(user) + "/"
}

// Set stores a preference value for a user.
func (s *Store) Set(ctx context.Context, user, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("preference %q: invalid JSON value", key)
	}
	return s.prefs.Put(ctx, storageKey(user, key), value)
}

// Get returns a user's preference value, or ErrNotFound.
func (s *Store) Get(ctx context.Context, user, key string) (json.RawMessage, error) {
	raw, err := s.prefs.Get(ctx, storageKey(user, key))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Delete removes a user's preference. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, user, key string) error {
	return s.prefs.Delete(ctx, storageKey(user, key))
}

// List returns all of a user's preferences keyed by preference name.
func (s *Store) List(ctx context.Context, user string) (map[string]json.RawMessage, error) {
	prefix := userPrefix(user)
	out := make(map[string]json.RawMessage)
	err := s.prefs.Entries(ctx, func(key string, value []byte) error {
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		out[strings.TrimPrefix(key, prefix)] = json.RawMessage(value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Purge removes every preference belonging to a user. Called when the
// owning account is deleted.
func (s *Store) Purge(ctx context.Context, user string) error {
	all, err := s.List(ctx, user)
	if err != nil {
		return err
	}
	for key := range all {
		if err := s.prefs.Delete(ctx, storageKey(user, key)); err != nil {
			return err
		}
	}
	if len(all) > 0 {
		s.logger.Info("preferences purged", "user", user, "count", len(all))
	}
	return nil
}
