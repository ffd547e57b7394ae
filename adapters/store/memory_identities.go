package store

import (
	"context"
	"strings"
	"sync"

	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/ports"
)

// MemoryIdentities keeps the identity set in memory. Emails, usernames and
// wallet addresses are matched exactly, wallets case-insensitively.
type MemoryIdentities struct {
	identities map[string]core.Identity
	order      []string
	mu         sync.RWMutex
}

// NewMemoryIdentities creates a repository seeded with the given identities
func NewMemoryIdentities(seed ...core.Identity) ports.IdentityRepository {
	r := &MemoryIdentities{
		identities: make(map[string]core.Identity),
	}
	for _, id := range seed {
		r.identities[id.ID] = id
		r.order = append(r.order, id.ID)
	}
	return r
}

func (r *MemoryIdentities) FindByEmail(ctx context.Context, email string) (*core.Identity, error) {
	return r.find(func(i core.Identity) bool { return email != "" && i.Email == email })
}

func (r *MemoryIdentities) FindByWallet(ctx context.Context, address string) (*core.Identity, error) {
	return r.find(func(i core.Identity) bool {
		return address != "" && strings.EqualFold(i.WalletAddress, address)
	})
}

func (r *MemoryIdentities) FindByUsername(ctx context.Context, username string) (*core.Identity, error) {
	return r.find(func(i core.Identity) bool { return username != "" && i.Username == username })
}

// Insert adds a new identity. Uniqueness of email and username is enforced
// here as well as in the session service.
func (r *MemoryIdentities) Insert(ctx context.Context, identity *core.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(identity); err != nil {
		return err
	}

	r.identities[identity.ID] = *identity
	r.order = append(r.order, identity.ID)
	return nil
}

// Update replaces a stored identity under the same rules as Insert.
// Persisted sessions never carry the password, so an empty password keeps
// the stored one.
func (r *MemoryIdentities) Update(ctx context.Context, identity *core.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.identities[identity.ID]
	if !ok {
		return core.ErrNotFound
	}
	if err := r.checkLocked(identity); err != nil {
		return err
	}

	updated := *identity
	if updated.Password == "" {
		updated.Password = existing.Password
	}
	r.identities[identity.ID] = updated
	return nil
}

func (r *MemoryIdentities) checkLocked(identity *core.Identity) error {
	if strings.TrimSpace(identity.Username) == "" {
		return core.ErrUsernameRequired
	}
	if err := identity.Validate(); err != nil {
		return err
	}

	for id, existing := range r.identities {
		if id == identity.ID {
			continue
		}
		if identity.Email != "" && existing.Email == identity.Email {
			return core.ErrEmailTaken
		}
		if existing.Username == identity.Username {
			return core.ErrUsernameTaken
		}
	}
	return nil
}

func (r *MemoryIdentities) find(match func(core.Identity) bool) (*core.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if i := r.identities[id]; match(i) {
			return &i, nil
		}
	}
	return nil, core.ErrNotFound
}
