package ports

import (
	"context"

	"github.com/layer-3/questhub/core"
)

// IdentityRepository is the set of known identities.
// Find methods return core.ErrNotFound when nothing matches.
type IdentityRepository interface {
	FindByEmail(ctx context.Context, email string) (*core.Identity, error)
	FindByWallet(ctx context.Context, address string) (*core.Identity, error)
	FindByUsername(ctx context.Context, username string) (*core.Identity, error)
	Insert(ctx context.Context, identity *core.Identity) error
	Update(ctx context.Context, identity *core.Identity) error
}
