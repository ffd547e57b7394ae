package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reward is a credit granted to a user for completing something.
type Reward struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	GrantedAt time.Time       `json:"granted_at"`
}

// ScoreEntry is one row of the leaderboard.
type ScoreEntry struct {
	Rank   int             `json:"rank"`
	UserID string          `json:"user_id"`
	Total  decimal.Decimal `json:"total"`
}
