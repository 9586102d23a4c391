// ABOUTME: In-memory session cache owning creation, elevation, renewal, and destruction
// ABOUTME: The session map is mutated only here and by the sweeper in sweeper.go

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/The-Filefly-Project/user/internal/account"
	"github.com/The-Filefly-Project/user/internal/ident"
)

// Credentials is the read surface of the credential store the cache consumes.
// The cache never writes accounts.
type Credentials interface {
	Get(ctx context.Context, name string) (*account.Account, error)
	Verify(ctx context.Context, name, password string) (*account.Account, error)
}

// Cache holds all live sessions, keyed by SID. The map is guarded by a
// RWMutex; the four public operations and the sweeper are its only mutators,
// and no caller ever receives a pointer into the map.
//
// SID generation and insertion are not a single atomic step: two concurrent
// Create calls could in principle mint the same SID between check and insert.
// With 64 bytes of entropy per SID this is an accepted risk, not a handled
// case.
type Cache struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	creds      Credentials
	ttls       TTLs
	sweepEvery time.Duration
	logger     *slog.Logger
}

// NewCache wires a session cache over a credential store read surface.
func NewCache(creds Credentials, ttls TTLs, sweepEvery time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		sessions:   make(map[string]*Session),
		creds:      creds,
		ttls:       ttls,
		sweepEvery: sweepEvery,
		logger:     logger.With("component", "session"),
	}
}

// Create verifies a name/password pair and, on success, mints a SID and
// caches a new session snapshot. wantsLong selects the long-lived TTL tier.
// A wrong name and a wrong password fail identically with ErrWrongPassOrName.
func (c *Cache) Create(ctx context.Context, name, password string, wantsLong bool) (string, error) {
	acc, err := c.creds.Verify(ctx, name, password)
	if errors.Is(err, account.ErrNotFound) || errors.Is(err, account.ErrBadPassword) {
		return "", ErrWrongPassOrName
	}
	if err != nil {
		return "", err
	}

	sid, err := ident.SessionID(c.sidInUse)
	if err != nil {
		c.logger.Error("minting session id", "error", err)
		return "", ErrSIDGeneration
	}

	kind := KindShort
	if wantsLong {
		kind = KindLong
	}
	now := time.Now()
	s := &Session{
		Name:      acc.Name,
		UUID:      acc.UUID,
		Root:      acc.Root,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}

	c.mu.Lock()
	c.sessions[sid] = s
	c.mu.Unlock()

	c.logger.Info("session created", "name", acc.Name, "kind", kind)
	return sid, nil
}

// Elevate upgrades a root session to actively-privileged status after
// re-verifying the password against the account's current hash, not the
// snapshot. The kind change to elevated is one-way and does not count as
// activity: UpdatedAt is left untouched, so the (short) elevated TTL runs
// from the last renewal.
func (c *Cache) Elevate(ctx context.Context, sid, password string) error {
	c.mu.RLock()
	s, ok := c.sessions[sid]
	c.mu.RUnlock()
	if !ok {
		return ErrUnknownSession
	}
	if !s.Root {
		return ErrRootRequired
	}

	_, err := c.creds.Verify(ctx, s.Name, password)
	if errors.Is(err, account.ErrNotFound) {
		return ErrUnknownAccount
	}
	if errors.Is(err, account.ErrBadPassword) {
		return ErrBadPass
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	// Re-check under the write lock; the session may have been swept or
	// destroyed while we were verifying.
	s, ok = c.sessions[sid]
	if ok {
		s.Elevated = true
		s.Kind = KindElevated
	}
	c.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}

	c.logger.Info("session elevated", "name", s.Name)
	return nil
}

// Renew bumps a session's UpdatedAt to now and returns a copy of the renewed
// session. It performs no credential check: holding a valid SID is the whole
// claim. An unknown SID returns nil.
func (c *Cache) Renew(sid string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sid]
	if !ok {
		return nil
	}
	s.UpdatedAt = time.Now()
	out := *s
	return &out
}

// Destroy removes a session unconditionally and reports whether one existed.
func (c *Cache) Destroy(sid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sid]
	if ok {
		delete(c.sessions, sid)
		c.logger.Info("session destroyed", "name", s.Name)
	}
	return ok
}

// Get returns a copy of the cached session, or nil.
func (c *Cache) Get(sid string) *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[sid]
	if !ok {
		return nil
	}
	out := *s
	return &out
}

// Len returns the number of live sessions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

func (c *Cache) sidInUse(candidate string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sessions[candidate]
	return ok
}
