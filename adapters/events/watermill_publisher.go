package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/ports"
)

const (
	TopicSignOut = "questhub.signout"
	TopicRewards = "questhub.rewards"
)

// SignOutEvent is published when a user ends their session
type SignOutEvent struct {
	UserID        string `json:"user_id"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishSignOut publishes a sign-out event
func (p *WatermillPublisher) PublishSignOut(ctx context.Context, userID, walletAddress string) error {
	return p.publish(ctx, TopicSignOut, uuid.NewString(), SignOutEvent{
		UserID:        userID,
		WalletAddress: walletAddress,
	})
}

// PublishReward publishes a granted reward
func (p *WatermillPublisher) PublishReward(ctx context.Context, reward core.Reward) error {
	id := reward.ID
	if id == "" {
		id = uuid.NewString()
	}
	return p.publish(ctx, TopicRewards, id, reward)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
