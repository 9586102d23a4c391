// ABOUTME: Tests for the session cache operations
// ABOUTME: Covers create, elevate, renew, destroy against a real account store

package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Filefly-Project/user/internal/account"
	"github.com/The-Filefly-Project/user/internal/kv"
)

const (
	testPassword = "CreativePassword1$"
	testSweep    = time.Minute
)

func testTTLs() TTLs {
	return TTLs{
		Short:    time.Hour,
		Long:     30 * 24 * time.Hour,
		Elevated: 5 * time.Minute,
	}
}

// setupCache returns a cache backed by a real account store holding a root
// account "admin" and a plain account "alice", both with testPassword.
func setupCache(t *testing.T, ttls TTLs) (*Cache, *account.Store) {
	t.Helper()
	db, err := kv.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := account.NewStore(db, account.BcryptHasher{Cost: bcrypt.MinCost}, account.Policy{}, slog.Default())
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, account.Entry{Name: "admin", Password: testPassword, Root: true}, true))
	require.NoError(t, store.Create(ctx, account.Entry{Name: "alice", Password: testPassword}, true))

	return NewCache(store, ttls, testSweep, slog.Default()), store
}

func TestCache_Create(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())
	ctx := context.Background()

	sid, err := cache.Create(ctx, "alice", testPassword, false)
	require.NoError(t, err)
	require.NotEmpty(t, sid)

	s := cache.Get(sid)
	require.NotNil(t, s)
	assert.Equal(t, "alice", s.Name)
	assert.Equal(t, KindShort, s.Kind)
	assert.False(t, s.Root)
	assert.False(t, s.Elevated)
	assert.Equal(t, s.CreatedAt, s.UpdatedAt)
}

func TestCache_CreateLongLived(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())

	sid, err := cache.Create(context.Background(), "alice", testPassword, true)
	require.NoError(t, err)
	assert.Equal(t, KindLong, cache.Get(sid).Kind)
}

func TestCache_CreateWrongCredentials(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())
	ctx := context.Background()

	// Wrong password for an existing account and an unknown name fail with
	// the same undifferentiated error.
	_, err := cache.Create(ctx, "alice", "wrong", false)
	assert.ErrorIs(t, err, ErrWrongPassOrName)

	_, err = cache.Create(ctx, "nobody", testPassword, false)
	assert.ErrorIs(t, err, ErrWrongPassOrName)

	assert.Equal(t, 0, cache.Len())
}

func TestCache_CreateSnapshotsRoot(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())

	sid, err := cache.Create(context.Background(), "admin", testPassword, false)
	require.NoError(t, err)
	assert.True(t, cache.Get(sid).Root)
}

func TestCache_MultipleSessionsPerAccount(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())
	ctx := context.Background()

	a, err := cache.Create(ctx, "alice", testPassword, false)
	require.NoError(t, err)
	b, err := cache.Create(ctx, "alice", testPassword, false)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, cache.Len())
}

func TestCache_Elevate(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())
	ctx := context.Background()

	sid, err := cache.Create(ctx, "admin", testPassword, false)
	require.NoError(t, err)
	before := cache.Get(sid).UpdatedAt

	require.NoError(t, cache.Elevate(ctx, sid, testPassword))

	s := cache.Get(sid)
	assert.True(t, s.Elevated)
	assert.Equal(t, KindElevated, s.Kind)
	// Elevation is a privilege change, not activity
	assert.Equal(t, before, s.UpdatedAt)
}

func TestCache_ElevateNonRoot(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())
	ctx := context.Background()

	sid, err := cache.Create(ctx, "alice", testPassword, false)
	require.NoError(t, err)

	err = cache.Elevate(ctx, sid, testPassword)
	assert.ErrorIs(t, err, ErrRootRequired)
	assert.Equal(t, KindShort, cache.Get(sid).Kind)
}

func TestCache_ElevateBadPassword(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())
	ctx := context.Background()

	sid, err := cache.Create(ctx, "admin", testPassword, false)
	require.NoError(t, err)

	err = cache.Elevate(ctx, sid, "wrong")
	assert.ErrorIs(t, err, ErrBadPass)

	s := cache.Get(sid)
	assert.False(t, s.Elevated)
	assert.Equal(t, KindShort, s.Kind)
}

func TestCache_ElevateUnknownSession(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())

	err := cache.Elevate(context.Background(), "no-such-sid", testPassword)
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestCache_ElevateVanishedAccount(t *testing.T) {
	cache, store := setupCache(t, testTTLs())
	ctx := context.Background()

	// Second root so the first can be deleted out from under its session
	require.NoError(t, store.Create(ctx, account.Entry{Name: "admin2", Password: testPassword, Root: true}, true))

	sid, err := cache.Create(ctx, "admin", testPassword, false)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "admin"))

	err = cache.Elevate(ctx, sid, testPassword)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestCache_Renew(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())

	sid, err := cache.Create(context.Background(), "alice", testPassword, false)
	require.NoError(t, err)
	before := cache.Get(sid).UpdatedAt

	time.Sleep(2 * time.Millisecond)
	renewed := cache.Renew(sid)
	require.NotNil(t, renewed)
	assert.True(t, renewed.UpdatedAt.After(before))

	// The cached entry was mutated, not just the returned copy
	assert.Equal(t, renewed.UpdatedAt, cache.Get(sid).UpdatedAt)
}

func TestCache_RenewUnknown(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())

	assert.Nil(t, cache.Renew("no-such-sid"))
	assert.Equal(t, 0, cache.Len())
}

func TestCache_Destroy(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())

	sid, err := cache.Create(context.Background(), "alice", testPassword, false)
	require.NoError(t, err)

	assert.True(t, cache.Destroy(sid))
	assert.Nil(t, cache.Get(sid))
	assert.False(t, cache.Destroy(sid))
}

func TestCache_GetReturnsCopy(t *testing.T) {
	cache, _ := setupCache(t, testTTLs())

	sid, err := cache.Create(context.Background(), "alice", testPassword, false)
	require.NoError(t, err)

	s := cache.Get(sid)
	s.Root = true

	assert.False(t, cache.Get(sid).Root)
}
