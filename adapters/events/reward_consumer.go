package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/questhub/core"
)

// NotificationSink receives the notifications derived from events
type NotificationSink interface {
	Add(n core.Notification) (string, error)
}

// RewardConsumer turns reward events into reward_received notifications.
type RewardConsumer struct {
	subscriber message.Subscriber
	sink       NotificationSink
	logger     watermill.LoggerAdapter

	// Accept filters rewards, e.g. to the signed-in user. Nil accepts all.
	Accept func(core.Reward) bool
}

func NewRewardConsumer(subscriber message.Subscriber, sink NotificationSink, logger watermill.LoggerAdapter) *RewardConsumer {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &RewardConsumer{
		subscriber: subscriber,
		sink:       sink,
		logger:     logger.With(watermill.LogFields{"topic": TopicRewards}),
	}
}

// Start subscribes and consumes in the background until ctx is cancelled
// or the subscription closes. The returned channel is closed on exit.
func (c *RewardConsumer) Start(ctx context.Context) (<-chan struct{}, error) {
	messages, err := c.subscriber.Subscribe(ctx, TopicRewards)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				c.handle(msg)
			}
		}
	}()
	return done, nil
}

func (c *RewardConsumer) handle(msg *message.Message) {
	// malformed and duplicate messages are acked so they are not redelivered forever
	defer msg.Ack()

	var reward core.Reward
	if err := json.Unmarshal(msg.Payload, &reward); err != nil {
		c.logger.Error("Dropping malformed reward event", err, watermill.LogFields{"uuid": msg.UUID})
		return
	}
	if c.Accept != nil && !c.Accept(reward) {
		return
	}

	id := reward.ID
	if id == "" {
		id = msg.UUID
	}
	amount := reward.Amount

	_, err := c.sink.Add(core.Notification{
		ID:        id,
		Kind:      core.KindRewardReceived,
		Title:     "Reward received",
		Message:   fmt.Sprintf("You earned %s points", amount.String()),
		CreatedAt: reward.GrantedAt,
		Payload:   core.NotificationPayload{Amount: &amount},
	})
	switch {
	case errors.Is(err, core.ErrDuplicateNotification):
		c.logger.Debug("Reward already notified", watermill.LogFields{"id": id})
	case err != nil:
		c.logger.Error("Failed to add reward notification", err, watermill.LogFields{"id": id})
	}
}
