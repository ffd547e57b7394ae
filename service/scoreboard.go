package service

import (
	"context"
	"sort"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/internal/clock"
	"github.com/layer-3/questhub/ports"
	"github.com/shopspring/decimal"
)

// GuestUserID receives credits earned while nobody is signed in.
const GuestUserID = "guest"

// Scoreboard accumulates reward credits per user and ranks users by total.
type Scoreboard struct {
	clock  clock.Clock
	events ports.EventPublisher
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	totals map[string]decimal.Decimal
}

func NewScoreboard(clk clock.Clock, events ports.EventPublisher, logger watermill.LoggerAdapter) *Scoreboard {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Scoreboard{
		clock:  clk,
		events: events,
		logger: logger,
		totals: make(map[string]decimal.Decimal),
	}
}

// Credit adds amount to the user's total and publishes the reward.
func (s *Scoreboard) Credit(ctx context.Context, userID string, amount decimal.Decimal, reason string) (core.Reward, error) {
	if !amount.IsPositive() {
		return core.Reward{}, core.ErrInvalidReward
	}
	if userID == "" {
		userID = GuestUserID
	}

	reward := core.Reward{
		ID:        uuid.New().String(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		GrantedAt: s.clock.Now(),
	}

	s.mu.Lock()
	s.totals[userID] = s.totals[userID].Add(amount)
	total := s.totals[userID]
	s.mu.Unlock()

	s.logger.Info("Score credited", watermill.LogFields{
		"user_id": userID,
		"amount":  amount.String(),
		"total":   total.String(),
		"reason":  reason,
	})

	if s.events != nil {
		if err := s.events.PublishReward(ctx, reward); err != nil {
			s.logger.Error("Failed to publish reward", err, watermill.LogFields{"reward_id": reward.ID})
		}
	}

	return reward, nil
}

// Total returns the accumulated score of a user.
func (s *Scoreboard) Total(userID string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals[userID]
}

// Leaderboard returns the top n users by total. n <= 0 returns everyone.
func (s *Scoreboard) Leaderboard(n int) []core.ScoreEntry {
	s.mu.RLock()
	entries := make([]core.ScoreEntry, 0, len(s.totals))
	for userID, total := range s.totals {
		entries = append(entries, core.ScoreEntry{UserID: userID, Total: total})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Total.Cmp(entries[j].Total); c != 0 {
			return c > 0
		}
		return entries[i].UserID < entries[j].UserID
	})

	for i := range entries {
		entries[i].Rank = i + 1
		if i > 0 && entries[i].Total.Equal(entries[i-1].Total) {
			entries[i].Rank = entries[i-1].Rank
		}
	}

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Rank returns the 1-based leaderboard position of a user, or 0 if unranked.
func (s *Scoreboard) Rank(userID string) int {
	for _, e := range s.Leaderboard(0) {
		if e.UserID == userID {
			return e.Rank
		}
	}
	return 0
}
