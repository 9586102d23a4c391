// ABOUTME: Durable name-keyed account store over the key-value layer
// ABOUTME: Enforces name uniqueness, the last-root invariant, and first-run bootstrap

package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/The-Filefly-Project/user/internal/ident"
	"github.com/The-Filefly-Project/user/internal/kv"
)

// Default credentials synthesized when the store opens with zero accounts.
const (
	DefaultAdminName     = "admin"
	DefaultAdminPassword = "admin"
)

// Store is the credential store. It owns account persistence and password
// verification; nothing else writes the accounts partition.
//
// Creation is check-then-write without account-level locking: of two
// concurrent creates for the same name, the last writer wins. The underlying
// engine guarantees atomic single-key writes, nothing more.
type Store struct {
	accounts *kv.Partition
	hasher   Hasher
	policy   Policy
	logger   *slog.Logger
}

// NewStore wires a Store over an open key-value database.
func NewStore(db *kv.DB, hasher Hasher, policy Policy, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		accounts: db.Partition(kv.PartitionAccounts),
		hasher:   hasher,
		policy:   policy,
		logger:   logger.With("component", "account"),
	}
}

// Open prepares the store for use. If no accounts exist it bootstraps a
// root account with well-known default credentials and logs a critical
// warning. Reopening a populated store is a no-op, so the bootstrap is
// idempotent.
func (s *Store) Open(ctx context.Context) error {
	count, err := s.accounts.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting accounts: %w", err)
	}
	if count > 0 {
		s.logger.Info("account store opened", "accounts", count)
		return nil
	}

	if err := s.Create(ctx, Entry{
		Name:     DefaultAdminName,
		Password: DefaultAdminPassword,
		Root:     true,
	}, true); err != nil {
		return fmt.Errorf("bootstrapping default admin: %w", err)
	}

	s.logger.Error("no accounts found, created default admin account with a well-known password - change it immediately",
		"name", DefaultAdminName,
	)
	return nil
}

// Create validates, hashes, and persists a new account. With skipChecks the
// policy rules are bypassed, but the entry must still be well-formed and the
// name unique.
func (s *Store) Create(ctx context.Context, e Entry, skipChecks bool) error {
	taken, err := s.Exists(ctx, e.Name)
	if err != nil {
		return err
	}
	if taken {
		return ErrNameTaken
	}

	if skipChecks {
		if e.Name == "" || e.Password == "" {
			return ErrBadEntry
		}
	} else if err := s.policy.Check(e); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(e.Password)
	if err != nil {
		return err
	}

	uid, err := s.mintUUID(ctx, e.Name)
	if err != nil {
		return err
	}

	acc := &Account{
		Name:      e.Name,
		Hash:      hash,
		UUID:      uid,
		Root:      e.Root,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.put(ctx, acc); err != nil {
		return err
	}

	s.logger.Info("account created", "name", e.Name, "root", e.Root)
	return nil
}

// Delete removes an account. It refuses to remove the sole remaining root
// account, keeping the root set non-empty.
func (s *Store) Delete(ctx context.Context, name string) error {
	acc, err := s.Get(ctx, name)
	if err != nil {
		return err
	}

	if acc.Root {
		roots, err := s.countRoots(ctx)
		if err != nil {
			return err
		}
		if roots <= 1 {
			return ErrCantDeleteLastRoot
		}
	}

	if err := s.accounts.Delete(ctx, name); err != nil {
		return fmt.Errorf("deleting account %q: %w", name, err)
	}

	s.logger.Info("account deleted", "name", name)
	return nil
}

// Get returns the account stored under name, or ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) (*Account, error) {
	raw, err := s.accounts.Get(ctx, name)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var acc Account
	if err := json.Unmarshal(raw, &acc); err != nil {
		return nil, fmt.Errorf("decoding account %q: %w", name, err)
	}
	acc.Name = name
	return &acc, nil
}

// Exists reports whether an account with the given name is stored.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	return s.accounts.Has(ctx, name)
}

// ListUsers returns all account names in ascending order.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	return s.accounts.Keys(ctx)
}

// ListEntries returns all full account records, each with its name attached.
func (s *Store) ListEntries(ctx context.Context) ([]*Account, error) {
	var out []*Account
	err := s.accounts.Entries(ctx, func(name string, raw []byte) error {
		var acc Account
		if err := json.Unmarshal(raw, &acc); err != nil {
			return fmt.Errorf("decoding account %q: %w", name, err)
		}
		acc.Name = name
		out = append(out, &acc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Verify checks a name/password pair against the stored hash and returns the
// account on success. A missing account costs one dummy hash comparison so
// lookups for real and fake names take the same time.
func (s *Store) Verify(ctx context.Context, name, password string) (*Account, error) {
	acc, err := s.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		s.hasher.Verify(password, dummyHash)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(password, acc.Hash) {
		return nil, ErrBadPassword
	}
	return acc, nil
}

// TouchLogin stamps the account's last-login time with the current time.
func (s *Store) TouchLogin(ctx context.Context, name string) error {
	acc, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	acc.LastLogin = &now
	return s.put(ctx, acc)
}

// mintUUID generates an account UUID unique across every stored account,
// scanning the full record set for the existence check.
func (s *Store) mintUUID(ctx context.Context, name string) (string, error) {
	all, err := s.ListEntries(ctx)
	if err != nil {
		return "", err
	}
	inUse := make(map[string]bool, len(all))
	for _, acc := range all {
		inUse[acc.UUID] = true
	}
	return ident.AccountUUID(name, func(candidate string) bool {
		return inUse[candidate]
	})
}

func (s *Store) put(ctx context.Context, acc *Account) error {
	raw, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("encoding account %q: %w", acc.Name, err)
	}
	if err := s.accounts.Put(ctx, acc.Name, raw); err != nil {
		return fmt.Errorf("persisting account %q: %w", acc.Name, err)
	}
	return nil
}

func (s *Store) countRoots(ctx context.Context) (int, error) {
	all, err := s.ListEntries(ctx)
	if err != nil {
		return 0, err
	}
	roots := 0
	for _, acc := range all {
		if acc.Root {
			roots++
		}
	}
	return roots, nil
}
