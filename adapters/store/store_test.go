package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/layer-3/questhub/core"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.Set(ctx, "user", `{"id":"1"}`, 0))
	v, err := s.Get(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, v)

	require.NoError(t, s.Delete(ctx, "user"))
	_, err = s.Get(ctx, "user")
	assert.ErrorIs(t, err, core.ErrNotFound)

	// deleting again is fine
	assert.NoError(t, s.Delete(ctx, "user"))
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &MemoryStore{values: make(map[string]memoryValue), now: func() time.Time { return now }}

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryIdentities(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryIdentities(core.Identity{
		ID:            "u1",
		Username:      "alice",
		Email:         "alice@example.com",
		WalletAddress: "0xAbC0000000000000000000000000000000000001",
	})

	tests := []struct {
		name    string
		find    func() (*core.Identity, error)
		wantErr error
	}{
		{"by email", func() (*core.Identity, error) { return repo.FindByEmail(ctx, "alice@example.com") }, nil},
		{"by email is exact", func() (*core.Identity, error) { return repo.FindByEmail(ctx, "ALICE@example.com") }, core.ErrNotFound},
		{"by wallet ignores case", func() (*core.Identity, error) {
			return repo.FindByWallet(ctx, "0xabc0000000000000000000000000000000000001")
		}, nil},
		{"by username", func() (*core.Identity, error) { return repo.FindByUsername(ctx, "alice") }, nil},
		{"empty email never matches", func() (*core.Identity, error) { return repo.FindByEmail(ctx, "") }, core.ErrNotFound},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := test.find()
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u1", got.ID)
		})
	}

	err := repo.Insert(ctx, &core.Identity{ID: "u2", Username: "bob", Email: "alice@example.com"})
	assert.ErrorIs(t, err, core.ErrEmailTaken)

	err = repo.Insert(ctx, &core.Identity{ID: "u2", Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, core.ErrUsernameTaken)

	err = repo.Update(ctx, &core.Identity{ID: "nope"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryIdentities_UpdateKeepsUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryIdentities(
		core.Identity{ID: "u1", Username: "alice", Email: "alice@example.com", Password: "pw"},
		core.Identity{ID: "u2", Username: "bob", Email: "bob@example.com"},
	)

	tests := []struct {
		name    string
		update  core.Identity
		wantErr error
	}{
		{"email of another identity", core.Identity{ID: "u1", Username: "alice", Email: "bob@example.com"}, core.ErrEmailTaken},
		{"username of another identity", core.Identity{ID: "u1", Username: "bob", Email: "alice@example.com"}, core.ErrUsernameTaken},
		{"blank username", core.Identity{ID: "u1", Username: " ", Email: "alice@example.com"}, core.ErrInvalidIdentity},
		{"neither email nor wallet", core.Identity{ID: "u1", Username: "alice"}, core.ErrInvalidIdentity},
		{"own values", core.Identity{ID: "u1", Username: "alice", Email: "alice@example.com", ProfileImageRef: "img"}, nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := repo.Update(ctx, &test.update)
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	stored, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.ID)
	assert.Equal(t, "img", stored.ProfileImageRef)
	assert.Equal(t, "pw", stored.Password)

	stored, err = repo.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u2", stored.ID)
}

// TestRedisStore runs against a live Redis when REDIS_URL is set.
func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("set REDIS_URL to run this integration test")
	}

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	s := NewRedisStore(client)
	key := "test:" + time.Now().Format(time.RFC3339Nano)

	require.NoError(t, s.Set(ctx, key, "value", time.Minute))
	v, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
