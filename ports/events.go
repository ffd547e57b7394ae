package ports

import (
	"context"

	"github.com/layer-3/questhub/core"
)

// EventPublisher publishes events to other parts of the process or other instances
type EventPublisher interface {
	PublishSignOut(ctx context.Context, userID, walletAddress string) error
	PublishReward(ctx context.Context, reward core.Reward) error
}
