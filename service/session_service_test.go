package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/layer-3/questhub/adapters/store"
	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "0x52908400098527886E0F7030069857D2E4169EE7"

type sessionFixture struct {
	session    *SessionService
	identities ports.IdentityRepository
	store      ports.Store
	wallet     *FakeWallet
	navigator  *FakeNavigator
	events     *FakeEvents
}

func newSessionFixture(seed ...core.Identity) *sessionFixture {
	f := &sessionFixture{
		identities: store.NewMemoryIdentities(seed...),
		store:      store.NewMemoryStore(),
		wallet:     &FakeWallet{address: testWallet},
		navigator:  &FakeNavigator{},
		events:     &FakeEvents{},
	}
	f.session = NewSessionService(SessionDeps{
		Identities: f.identities,
		Store:      f.store,
		Wallet:     f.wallet,
		Navigator:  f.navigator,
		Events:     f.events,
	})
	return f
}

var alice = core.Identity{
	ID:       "user-alice",
	Username: "alice",
	Email:    "alice@example.com",
	Password: "SecurePass123!",
}

// Sign-in needs an exact email and password match and persists the identity.
func TestSessionService_SignInWithEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid credentials", "alice@example.com", "SecurePass123!", nil},
		{"wrong password", "alice@example.com", "nope", core.ErrInvalidCredentials},
		{"unknown email", "bob@example.com", "SecurePass123!", core.ErrInvalidCredentials},
		{"email is case sensitive", "Alice@example.com", "SecurePass123!", core.ErrInvalidCredentials},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newSessionFixture(alice)
			ctx := context.Background()

			got, err := f.session.SignInWithEmail(ctx, test.email, test.password)
			state := f.session.Snapshot()
			assert.False(t, state.Loading)

			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
				assert.Nil(t, state.User)
				assert.Equal(t, core.UserMessage(test.wantErr), state.LastError)
				_, err := f.store.Get(ctx, SessionKey)
				assert.ErrorIs(t, err, core.ErrNotFound)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "user-alice", got.ID)
			require.NotNil(t, state.User)
			assert.Empty(t, state.LastError)

			raw, err := f.store.Get(ctx, SessionKey)
			require.NoError(t, err)
			var persisted core.Identity
			require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
			assert.Equal(t, "user-alice", persisted.ID)
			assert.NotContains(t, raw, "SecurePass123!")
		})
	}
}

func TestSessionService_FailedSignInKeepsPreviousIdentity(t *testing.T) {
	f := newSessionFixture(alice)
	ctx := context.Background()

	_, err := f.session.SignInWithEmail(ctx, alice.Email, alice.Password)
	require.NoError(t, err)

	_, err = f.session.SignInWithEmail(ctx, alice.Email, "wrong")
	require.ErrorIs(t, err, core.ErrInvalidCredentials)

	current := f.session.Current()
	require.NotNil(t, current)
	assert.Equal(t, alice.ID, current.ID)
}

func TestSessionService_LoadingTransitions(t *testing.T) {
	f := newSessionFixture(alice)

	var loading []bool
	unsubscribe := f.session.Subscribe(func(st core.SessionState) {
		loading = append(loading, st.Loading)
	})
	defer unsubscribe()

	_, err := f.session.SignInWithEmail(context.Background(), alice.Email, alice.Password)
	require.NoError(t, err)

	require.NotEmpty(t, loading)
	assert.True(t, loading[0])
	assert.False(t, loading[len(loading)-1])
}

// A taken email or username fails sign-up without touching the identity set.
func TestSessionService_SignUpWithEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		username string
		wantErr  error
	}{
		{"creates identity", "bob@example.com", "bob", nil},
		{"email taken", "alice@example.com", "someone", core.ErrEmailTaken},
		{"username taken", "carol@example.com", "alice", core.ErrUsernameTaken},
		{"email required", "  ", "dave", core.ErrInvalidIdentity},
		{"username required", "erin@example.com", "   ", core.ErrUsernameRequired},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newSessionFixture(alice)
			ctx := context.Background()

			got, err := f.session.SignUpWithEmail(ctx, test.email, "pw", test.username)
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
				_, err := f.identities.FindByUsername(ctx, test.username)
				if test.username != "alice" {
					assert.ErrorIs(t, err, core.ErrNotFound)
				}
				existing, err := f.identities.FindByEmail(ctx, alice.Email)
				require.NoError(t, err)
				assert.Equal(t, alice.ID, existing.ID)
				assert.Nil(t, f.session.Current())
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, got.ID)
			assert.False(t, got.EmailVerified)
			assert.Equal(t, got.ID, f.session.Current().ID)

			stored, err := f.identities.FindByEmail(ctx, test.email)
			require.NoError(t, err)
			assert.Equal(t, got.ID, stored.ID)
		})
	}
}

func TestSessionService_SignInWithWallet(t *testing.T) {
	t.Run("existing wallet identity becomes current", func(t *testing.T) {
		f := newSessionFixture(core.Identity{ID: "w1", Username: "whale", WalletAddress: testWallet})
		require.NoError(t, f.session.SignInWithWallet(context.Background()))
		assert.Equal(t, "w1", f.session.Current().ID)
	})

	t.Run("unknown wallet synthesizes placeholder identity", func(t *testing.T) {
		f := newSessionFixture()
		require.NoError(t, f.session.SignInWithWallet(context.Background()))

		current := f.session.Current()
		require.NotNil(t, current)
		assert.Equal(t, "user_529084", current.Username)
		assert.Equal(t, testWallet, current.WalletAddress)
		assert.Empty(t, current.Email)
	})

	t.Run("placeholder collision gets a suffix", func(t *testing.T) {
		f := newSessionFixture(core.Identity{ID: "x", Username: "user_529084", Email: "x@example.com"})
		require.NoError(t, f.session.SignInWithWallet(context.Background()))
		assert.Equal(t, "user_529084_2", f.session.Current().Username)
	})

	t.Run("connect failure", func(t *testing.T) {
		f := newSessionFixture()
		f.wallet.connectErr = errors.New("user rejected")
		err := f.session.SignInWithWallet(context.Background())
		require.ErrorIs(t, err, core.ErrWalletConnectionFailed)
		assert.Nil(t, f.session.Current())
		assert.NotEmpty(t, f.session.Snapshot().LastError)
	})

	t.Run("invalid address", func(t *testing.T) {
		f := newSessionFixture()
		f.wallet.address = "not-an-address"
		err := f.session.SignInWithWallet(context.Background())
		assert.ErrorIs(t, err, core.ErrInvalidAddress)
	})

	t.Run("lowercase address matches checksummed identity", func(t *testing.T) {
		f := newSessionFixture(core.Identity{ID: "w1", Username: "whale", WalletAddress: testWallet})
		got, err := f.session.ReconcileWallet(context.Background(), "0x52908400098527886e0f7030069857d2e4169ee7")
		require.NoError(t, err)
		assert.Equal(t, "w1", got.ID)
	})
}

func TestSessionService_LinkWallet(t *testing.T) {
	ctx := context.Background()

	f := newSessionFixture(alice)
	_, err := f.session.LinkWallet(ctx)
	require.ErrorIs(t, err, core.ErrNotAuthenticated)

	_, err = f.session.SignInWithEmail(ctx, alice.Email, alice.Password)
	require.NoError(t, err)

	linked, err := f.session.LinkWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, testWallet, linked.WalletAddress)
	assert.Equal(t, alice.Email, linked.Email)

	byWallet, err := f.identities.FindByWallet(ctx, testWallet)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byWallet.ID)

	other := newSessionFixture(alice, core.Identity{ID: "w1", Username: "whale", WalletAddress: testWallet})
	_, err = other.session.SignInWithEmail(ctx, alice.Email, alice.Password)
	require.NoError(t, err)
	_, err = other.session.LinkWallet(ctx)
	assert.ErrorIs(t, err, core.ErrWalletInUse)
}

func TestSessionService_SignOut(t *testing.T) {
	f := newSessionFixture(core.Identity{ID: "w1", Username: "whale", WalletAddress: testWallet})
	ctx := context.Background()

	require.NoError(t, f.session.SignInWithWallet(ctx))
	require.NoError(t, f.session.SignOut(ctx))

	assert.Nil(t, f.session.Current())
	_, err := f.store.Get(ctx, SessionKey)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 1, f.wallet.disconnects)
	assert.Equal(t, []string{HomeRoute}, f.navigator.Routes())
	assert.Equal(t, []string{"w1"}, f.events.signOuts)
}

func TestSessionService_SignOutIgnoresPublishFailure(t *testing.T) {
	f := newSessionFixture(alice)
	f.events.err = errors.New("broker down")
	ctx := context.Background()

	_, err := f.session.SignInWithEmail(ctx, alice.Email, alice.Password)
	require.NoError(t, err)
	assert.NoError(t, f.session.SignOut(ctx))
	assert.Nil(t, f.session.Current())
}

func TestSessionService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(alice, core.Identity{ID: "u2", Username: "bob", Email: "bob@example.com"})

	name := "alicia"
	_, err := f.session.UpdateProfile(ctx, core.ProfileUpdate{Username: &name})
	require.ErrorIs(t, err, core.ErrNotAuthenticated)

	_, err = f.session.SignInWithEmail(ctx, alice.Email, alice.Password)
	require.NoError(t, err)

	image := "ipfs://avatar"
	updated, err := f.session.UpdateProfile(ctx, core.ProfileUpdate{Username: &name, ProfileImageRef: &image})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, updated.ID)
	assert.Equal(t, "alicia", updated.Username)
	assert.Equal(t, "ipfs://avatar", updated.ProfileImageRef)
	assert.Equal(t, alice.Email, updated.Email)

	taken := "bob"
	_, err = f.session.UpdateProfile(ctx, core.ProfileUpdate{Username: &taken})
	assert.ErrorIs(t, err, core.ErrUsernameTaken)

	raw, err := f.store.Get(ctx, SessionKey)
	require.NoError(t, err)
	assert.Contains(t, raw, "alicia")
}

func TestSessionService_UpdateProfileKeepsIdentitiesDistinct(t *testing.T) {
	ctx := context.Background()
	bob := core.Identity{ID: "u2", Username: "bob", Email: "bob@example.com", Password: "bobpw"}
	f := newSessionFixture(alice, bob)

	_, err := f.session.SignInWithEmail(ctx, alice.Email, alice.Password)
	require.NoError(t, err)

	taken := bob.Email
	_, err = f.session.UpdateProfile(ctx, core.ProfileUpdate{Email: &taken})
	require.ErrorIs(t, err, core.ErrEmailTaken)

	blank := "  "
	_, err = f.session.UpdateProfile(ctx, core.ProfileUpdate{Username: &blank})
	require.ErrorIs(t, err, core.ErrUsernameRequired)

	empty := ""
	_, err = f.session.UpdateProfile(ctx, core.ProfileUpdate{Email: &empty})
	require.ErrorIs(t, err, core.ErrInvalidIdentity)

	assert.Equal(t, alice.Email, f.session.Current().Email)
	assert.Equal(t, alice.Username, f.session.Current().Username)

	// both accounts still sign in with their own credentials
	got, err := f.session.SignInWithEmail(ctx, bob.Email, bob.Password)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)
	got, err = f.session.SignInWithEmail(ctx, alice.Email, alice.Password)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	// a wallet identity may drop its email
	require.NoError(t, f.identities.Insert(ctx, &core.Identity{ID: "w1", Username: "whale", WalletAddress: testWallet, Email: "whale@example.com"}))
	require.NoError(t, f.session.SignInWithWallet(ctx))
	updated, err := f.session.UpdateProfile(ctx, core.ProfileUpdate{Email: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.Email)
	assert.Equal(t, testWallet, updated.WalletAddress)
}

func TestSessionService_Hydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("absent key stays unauthenticated", func(t *testing.T) {
		f := newSessionFixture()
		require.NoError(t, f.session.Hydrate(ctx))
		assert.False(t, f.session.Snapshot().Authenticated())
	})

	t.Run("persisted identity restored", func(t *testing.T) {
		f := newSessionFixture(alice)
		_, err := f.session.SignInWithEmail(ctx, alice.Email, alice.Password)
		require.NoError(t, err)

		restarted := NewSessionService(SessionDeps{Identities: f.identities, Store: f.store})
		require.NoError(t, restarted.Hydrate(ctx))
		require.NotNil(t, restarted.Current())
		assert.Equal(t, alice.ID, restarted.Current().ID)

		// profile updates after a restart keep the stored password
		img := "ipfs://x"
		_, err = restarted.UpdateProfile(ctx, core.ProfileUpdate{ProfileImageRef: &img})
		require.NoError(t, err)
		_, err = restarted.SignInWithEmail(ctx, alice.Email, alice.Password)
		assert.NoError(t, err)
	})

	t.Run("corrupt record is discarded", func(t *testing.T) {
		f := newSessionFixture()
		require.NoError(t, f.store.Set(ctx, SessionKey, "{not json", 0))
		require.NoError(t, f.session.Hydrate(ctx))
		assert.Nil(t, f.session.Current())
		_, err := f.store.Get(ctx, SessionKey)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestPlaceholderUsername(t *testing.T) {
	assert.Equal(t, "user_abcdef", PlaceholderUsername("0xABCDEF0123"))
	assert.Equal(t, "user_ab", PlaceholderUsername("0xab"))
}
