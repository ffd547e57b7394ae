package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/internal/clock"
	"github.com/layer-3/questhub/ports"
)

const (
	// SessionKey is the persisted storage key holding the current identity.
	SessionKey = "session:user"

	// HomeRoute is where sign-out navigates to.
	HomeRoute = "/"
)

// SessionDeps are the collaborators of the session service.
// Wallet, Navigator and Events are optional.
type SessionDeps struct {
	Identities ports.IdentityRepository
	Store      ports.Store
	Wallet     ports.WalletConnector
	Navigator  ports.Navigator
	Events     ports.EventPublisher
	Logger     watermill.LoggerAdapter
	Clock      clock.Clock

	// Latency simulates the round trip of every sign-in/sign-up call.
	Latency time.Duration
}

// SessionService holds the current user identity of the running client.
// There is one per process.
type SessionService struct {
	identities ports.IdentityRepository
	store      ports.Store
	wallet     ports.WalletConnector
	navigator  ports.Navigator
	events     ports.EventPublisher
	logger     watermill.LoggerAdapter
	clock      clock.Clock
	latency    time.Duration

	mu        sync.Mutex
	state     core.SessionState
	listeners map[int]func(core.SessionState)
	nextID    int
}

// NewSessionService creates an empty, unauthenticated session
func NewSessionService(deps SessionDeps) *SessionService {
	logger := deps.Logger
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	return &SessionService{
		identities: deps.Identities,
		store:      deps.Store,
		wallet:     deps.Wallet,
		navigator:  deps.Navigator,
		events:     deps.Events,
		logger:     logger,
		clock:      clk,
		latency:    deps.Latency,
		listeners:  make(map[int]func(core.SessionState)),
	}
}

// Hydrate restores the persisted identity, if any. A missing or corrupt
// record leaves the session unauthenticated.
func (s *SessionService) Hydrate(ctx context.Context) error {
	raw, err := s.store.Get(ctx, SessionKey)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read persisted session: %w", err)
	}

	var identity core.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil || identity.ID == "" {
		s.logger.Error("Discarding corrupt persisted session", err, nil)
		return s.store.Delete(ctx, SessionKey)
	}

	s.update(func(st *core.SessionState) { st.User = &identity })
	s.logger.Info("Session hydrated", watermill.LogFields{"user_id": identity.ID})
	return nil
}

// SignInWithEmail authenticates with an exact email and password match
func (s *SessionService) SignInWithEmail(ctx context.Context, email, password string) (*core.Identity, error) {
	s.begin()

	identity, err := s.signInWithEmail(ctx, email, password)
	s.finish(err)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *SessionService) signInWithEmail(ctx context.Context, email, password string) (*core.Identity, error) {
	if err := s.roundTrip(ctx); err != nil {
		return nil, err
	}

	identity, err := s.identities.FindByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}
	if identity.Password != password {
		return nil, core.ErrInvalidCredentials
	}

	if err := s.become(ctx, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

// SignUpWithEmail creates a new identity and makes it current
func (s *SessionService) SignUpWithEmail(ctx context.Context, email, password, username string) (*core.Identity, error) {
	s.begin()

	identity, err := s.signUpWithEmail(ctx, email, password, username)
	s.finish(err)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *SessionService) signUpWithEmail(ctx context.Context, email, password, username string) (*core.Identity, error) {
	if err := s.roundTrip(ctx); err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if email == "" {
		return nil, core.ErrInvalidIdentity
	}
	if username == "" {
		return nil, core.ErrUsernameRequired
	}

	if err := s.ensureFree(ctx, s.identities.FindByEmail, email, core.ErrEmailTaken); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, s.identities.FindByUsername, username, core.ErrUsernameTaken); err != nil {
		return nil, err
	}

	identity := &core.Identity{
		ID:            uuid.New().String(),
		Username:      username,
		Email:         email,
		Password:      password,
		EmailVerified: false,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.identities.Insert(ctx, identity); err != nil {
		return nil, err
	}

	if err := s.become(ctx, identity); err != nil {
		return nil, err
	}
	s.logger.Info("Identity created", watermill.LogFields{"user_id": identity.ID, "username": username})
	return identity, nil
}

// SignInWithWallet connects the external wallet and reconciles the
// connected address against the known identities.
func (s *SessionService) SignInWithWallet(ctx context.Context) error {
	s.begin()

	err := s.signInWithWallet(ctx)
	s.finish(err)
	return err
}

func (s *SessionService) signInWithWallet(ctx context.Context) error {
	if s.wallet == nil {
		return core.ErrWalletConnectionFailed
	}

	address, err := s.wallet.Connect(ctx)
	if err != nil {
		s.logger.Error("Wallet connect failed", err, nil)
		return fmt.Errorf("%w: %v", core.ErrWalletConnectionFailed, err)
	}

	_, err = s.reconcileWallet(ctx, address)
	return err
}

// ReconcileWallet is the observation step run once a wallet reports a
// connected address. A matching identity becomes current, otherwise a new
// identity with a placeholder username is created.
func (s *SessionService) ReconcileWallet(ctx context.Context, address string) (*core.Identity, error) {
	identity, err := s.reconcileWallet(ctx, address)
	if err != nil {
		s.update(func(st *core.SessionState) { st.LastError = core.UserMessage(err) })
		return nil, err
	}
	return identity, nil
}

func (s *SessionService) reconcileWallet(ctx context.Context, address string) (*core.Identity, error) {
	checksummed, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}

	if current := s.Current(); current != nil && strings.EqualFold(current.WalletAddress, checksummed) {
		return current, nil
	}

	identity, err := s.identities.FindByWallet(ctx, checksummed)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrNotFound):
		identity, err = s.createWalletIdentity(ctx, checksummed)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to look up wallet identity: %w", err)
	}

	if err := s.become(ctx, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *SessionService) createWalletIdentity(ctx context.Context, address string) (*core.Identity, error) {
	base := PlaceholderUsername(address)
	username := base
	for n := 2; ; n++ {
		_, err := s.identities.FindByUsername(ctx, username)
		if errors.Is(err, core.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		username = base + "_" + strconv.Itoa(n)
	}

	identity := &core.Identity{
		ID:            uuid.New().String(),
		Username:      username,
		WalletAddress: address,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.identities.Insert(ctx, identity); err != nil {
		return nil, err
	}

	s.logger.Info("Wallet identity created", watermill.LogFields{"user_id": identity.ID, "address": address})
	return identity, nil
}

// LinkWallet attaches the connected wallet to the current identity.
func (s *SessionService) LinkWallet(ctx context.Context) (*core.Identity, error) {
	s.begin()

	identity, err := s.linkWallet(ctx)
	s.finish(err)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *SessionService) linkWallet(ctx context.Context) (*core.Identity, error) {
	current := s.Current()
	if current == nil {
		return nil, core.ErrNotAuthenticated
	}
	if s.wallet == nil {
		return nil, core.ErrWalletConnectionFailed
	}

	address, err := s.wallet.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrWalletConnectionFailed, err)
	}
	address, err = normalizeAddress(address)
	if err != nil {
		return nil, err
	}

	owner, err := s.identities.FindByWallet(ctx, address)
	switch {
	case err == nil && owner.ID != current.ID:
		return nil, core.ErrWalletInUse
	case err != nil && !errors.Is(err, core.ErrNotFound):
		return nil, fmt.Errorf("failed to look up wallet identity: %w", err)
	}

	current.WalletAddress = address
	if err := s.identities.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to link wallet: %w", err)
	}
	if err := s.become(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// SignOut clears the current identity and its persisted copy, disconnects
// the wallet and navigates home.
func (s *SessionService) SignOut(ctx context.Context) error {
	previous := s.Current()
	s.update(func(st *core.SessionState) {
		st.User = nil
		st.LastError = ""
	})

	var errs []error
	if err := s.store.Delete(ctx, SessionKey); err != nil {
		errs = append(errs, fmt.Errorf("failed to clear persisted session: %w", err))
	}

	if s.wallet != nil {
		if _, connected := s.wallet.Address(); connected {
			if err := s.wallet.Disconnect(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to disconnect wallet: %w", err))
			}
		}
	}

	if s.navigator != nil {
		s.navigator.Navigate(HomeRoute)
	}

	if previous != nil && s.events != nil {
		if err := s.events.PublishSignOut(ctx, previous.ID, previous.WalletAddress); err != nil {
			// the session is already cleared locally
			s.logger.Error("Failed to publish sign-out event", err, watermill.LogFields{"user_id": previous.ID})
		}
	}

	return errors.Join(errs...)
}

// UpdateProfile merges the update into the current identity and persists it.
// Username and email stay unique, and the merged identity must still carry
// a username and an email or wallet.
func (s *SessionService) UpdateProfile(ctx context.Context, update core.ProfileUpdate) (*core.Identity, error) {
	current := s.Current()
	if current == nil {
		return nil, core.ErrNotAuthenticated
	}

	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" {
			return nil, core.ErrUsernameRequired
		}
		if username != current.Username {
			if err := s.ensureOwned(ctx, s.identities.FindByUsername, username, current.ID, core.ErrUsernameTaken); err != nil {
				return nil, err
			}
		}
		update.Username = &username
	}
	if update.Email != nil {
		email := strings.TrimSpace(*update.Email)
		if email != "" && email != current.Email {
			if err := s.ensureOwned(ctx, s.identities.FindByEmail, email, current.ID, core.ErrEmailTaken); err != nil {
				return nil, err
			}
		}
		update.Email = &email
	}

	merged := update.Apply(*current)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if err := s.identities.Update(ctx, &merged); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if err := s.become(ctx, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Current returns a copy of the current identity, or nil.
func (s *SessionService) Current() *core.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

// Snapshot returns a copy of the session state.
func (s *SessionService) Snapshot() core.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySessionState(s.state)
}

// Subscribe registers fn for every state transition. The returned func unsubscribes.
func (s *SessionService) Subscribe(fn func(core.SessionState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// PlaceholderUsername derives the username given to wallet-only identities.
func PlaceholderUsername(address string) string {
	hex := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X"))
	if len(hex) > 6 {
		hex = hex[:6]
	}
	return "user_" + hex
}

func normalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", core.ErrInvalidAddress
	}
	return common.HexToAddress(address).Hex(), nil
}

func (s *SessionService) ensureFree(
	ctx context.Context,
	find func(context.Context, string) (*core.Identity, error),
	value string,
	taken error,
) error {
	_, err := find(ctx, value)
	switch {
	case err == nil:
		return taken
	case errors.Is(err, core.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check uniqueness: %w", err)
	}
}

// ensureOwned fails with taken when value belongs to an identity other than id.
func (s *SessionService) ensureOwned(
	ctx context.Context,
	find func(context.Context, string) (*core.Identity, error),
	value, id string,
	taken error,
) error {
	owner, err := find(ctx, value)
	switch {
	case err == nil && owner.ID != id:
		return taken
	case err == nil, errors.Is(err, core.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check uniqueness: %w", err)
	}
}

// become persists identity and makes it current.
func (s *SessionService) become(ctx context.Context, identity *core.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.store.Set(ctx, SessionKey, string(raw), 0); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	u := *identity
	s.update(func(st *core.SessionState) { st.User = &u })
	return nil
}

func (s *SessionService) roundTrip(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}
	done := make(chan struct{})
	timer := s.clock.AfterFunc(s.latency, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}

func (s *SessionService) begin() {
	s.update(func(st *core.SessionState) {
		st.Loading = true
		st.LastError = ""
	})
}

func (s *SessionService) finish(err error) {
	s.update(func(st *core.SessionState) {
		st.Loading = false
		if err != nil {
			st.LastError = core.UserMessage(err)
		}
	})
	if err != nil {
		s.logger.Debug("Session operation failed", watermill.LogFields{"error": err.Error()})
	}
}

// update applies fn under the lock, then notifies listeners outside it.
func (s *SessionService) update(fn func(*core.SessionState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := copySessionState(s.state)
	listeners := make([]func(core.SessionState), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func copySessionState(st core.SessionState) core.SessionState {
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}
