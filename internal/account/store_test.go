// ABOUTME: Tests for the credential store
// ABOUTME: Covers policy ordering, uniqueness, last-root protection, and bootstrap

package account

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Filefly-Project/user/internal/kv"
)

func testPolicy() Policy {
	return Policy{
		NameMinLength:  3,
		NameMaxLength:  32,
		PassMinLength:  10,
		RequireNums:    true,
		RequireCase:    true,
		RequireSpecial: true,
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := kv.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, BcryptHasher{Cost: bcrypt.MinCost}, testPolicy(), slog.Default())
}

func TestStore_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Create(ctx, Entry{Name: "alice", Password: "CreativePassword1$"}, false)
	require.NoError(t, err)

	acc, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Name)
	assert.True(t, strings.HasPrefix(acc.UUID, "alice."))
	assert.False(t, acc.Root)
	assert.Nil(t, acc.LastLogin)
	assert.False(t, acc.CreatedAt.IsZero())
	assert.NotEqual(t, "CreativePassword1$", acc.Hash)
}

func TestStore_CreateDuplicateName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Entry{Name: "alice", Password: "CreativePassword1$"}, false))

	// Different password and root flag don't matter
	err := store.Create(ctx, Entry{Name: "alice", Password: "OtherPassword22#", Root: true}, false)
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestStore_PolicyOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		entry   Entry
		wantErr error
	}{
		{"empty password", Entry{Name: "alice", Password: ""}, ErrBadEntry},
		{"empty name", Entry{Name: "", Password: "CreativePassword1$"}, ErrBadEntry},
		{"name too short", Entry{Name: "al", Password: "CreativePassword1$"}, ErrNameTooShort},
		{"name too long", Entry{Name: strings.Repeat("a", 33), Password: "CreativePassword1$"}, ErrNameTooLong},
		{"pass too short", Entry{Name: "alice", Password: "123"}, ErrPassTooShort},
		{"no digits", Entry{Name: "alice", Password: "creativePassword"}, ErrPassNoNums},
		{"no uppercase", Entry{Name: "alice", Password: "creativepassword1"}, ErrPassNoBigChars},
		{"no lowercase", Entry{Name: "alice", Password: "CREATIVEPASSWORD1"}, ErrPassNoSmallChars},
		{"no special", Entry{Name: "alice", Password: "CreativePassword1"}, ErrPassNoSpecialChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Create(ctx, tt.entry, false)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// The reference password passes every rule
	require.NoError(t, store.Create(ctx, Entry{Name: "alice", Password: "CreativePassword1$"}, false))
}

func TestStore_CreateSkipChecks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// Any non-empty pair is accepted when checks are skipped
	require.NoError(t, store.Create(ctx, Entry{Name: "bob", Password: "user"}, true))

	// Shape still matters
	err := store.Create(ctx, Entry{Name: "carol", Password: ""}, true)
	assert.ErrorIs(t, err, ErrBadEntry)
}

func TestStore_DeleteLastRoot(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Entry{Name: "root1", Password: "pw", Root: true}, true))

	err := store.Delete(ctx, "root1")
	assert.ErrorIs(t, err, ErrCantDeleteLastRoot)

	// With a second root in place the first becomes deletable
	require.NoError(t, store.Create(ctx, Entry{Name: "root2", Password: "pw", Root: true}, true))
	require.NoError(t, store.Delete(ctx, "root1"))

	names, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.NotContains(t, names, "root1")

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	for _, acc := range entries {
		assert.NotEqual(t, "root1", acc.Name)
	}
}

func TestStore_DeleteNonRoot(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Entry{Name: "root1", Password: "pw", Root: true}, true))
	require.NoError(t, store.Create(ctx, Entry{Name: "bob", Password: "pw"}, true))

	require.NoError(t, store.Delete(ctx, "bob"))

	_, err := store.Get(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteMissing(t *testing.T) {
	store := setupTestStore(t)

	err := store.Delete(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_OpenBootstrapsDefaultAdmin(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Open(ctx))

	acc, err := store.Get(ctx, DefaultAdminName)
	require.NoError(t, err)
	assert.True(t, acc.Root)

	// Default credentials verify
	_, err = store.Verify(ctx, DefaultAdminName, DefaultAdminPassword)
	require.NoError(t, err)
}

func TestStore_OpenIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Open(ctx))
	require.NoError(t, store.Open(ctx))

	names, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestStore_OpenSkipsBootstrapWhenPopulated(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Entry{Name: "alice", Password: "pw", Root: true}, true))
	require.NoError(t, store.Open(ctx))

	_, err := store.Get(ctx, DefaultAdminName)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Verify(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Entry{Name: "alice", Password: "CreativePassword1$"}, false))

	acc, err := store.Verify(ctx, "alice", "CreativePassword1$")
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Name)

	_, err = store.Verify(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrBadPassword)

	_, err = store.Verify(ctx, "nobody", "CreativePassword1$")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_TouchLogin(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Entry{Name: "alice", Password: "pw"}, true))
	require.NoError(t, store.TouchLogin(ctx, "alice"))

	acc, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, acc.LastLogin)
	assert.False(t, acc.LastLogin.IsZero())
}

func TestStore_UUIDsUnique(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Entry{Name: "alice", Password: "pw"}, true))
	require.NoError(t, store.Create(ctx, Entry{Name: "bob", Password: "pw"}, true))

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].UUID, entries[1].UUID)
}
