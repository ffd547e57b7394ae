package ports

import (
	"context"

	"github.com/layer-3/questhub/core"
	"github.com/shopspring/decimal"
)

// ChallengeSource is the external Quest API seen from one challenge flavour.
type ChallengeSource interface {
	Kind() core.ChallengeKind
	Fetch(ctx context.Context) (core.Challenge, error)
	Check(ctx context.Context, answer string) (core.Verdict, error)
	Reset(ctx context.Context) error
	BreakOptions(ctx context.Context) ([]string, error)
}

// ScoreAccumulator receives reward credits for successful outcomes.
type ScoreAccumulator interface {
	Credit(ctx context.Context, userID string, amount decimal.Decimal, reason string) (core.Reward, error)
}
