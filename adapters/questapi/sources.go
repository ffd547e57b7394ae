package questapi

import (
	"context"

	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/ports"
)

// Attempt budgets used when the API sends none.
const (
	DefaultQuizAttempts   = 3
	DefaultRiddleAttempts = 3
)

// RiddleSource serves riddles from /riddle.
type RiddleSource struct {
	client *Client
}

func NewRiddleSource(client *Client) ports.ChallengeSource {
	return &RiddleSource{client: client}
}

func (s *RiddleSource) Kind() core.ChallengeKind { return core.ChallengeRiddle }

func (s *RiddleSource) Fetch(ctx context.Context) (core.Challenge, error) {
	r, err := s.client.Riddle(ctx)
	if err != nil {
		return core.Challenge{}, err
	}
	attempts := DefaultRiddleAttempts
	if r.AttemptsRemaining != nil {
		attempts = *r.AttemptsRemaining
	}
	return core.Challenge{
		Text:              r.Riddle,
		Complexity:        r.Complexity,
		Hint:              r.Hint,
		AttemptsRemaining: attempts,
	}, nil
}

func (s *RiddleSource) Check(ctx context.Context, answer string) (core.Verdict, error) {
	v, err := s.client.CheckRiddle(ctx, answer)
	if err != nil {
		return core.Verdict{}, err
	}
	return core.Verdict{
		Correct:           v.Correct,
		Message:           v.Message,
		Hint:              v.Hint,
		AttemptsRemaining: v.AttemptsRemaining,
	}, nil
}

func (s *RiddleSource) Reset(ctx context.Context) error {
	return s.client.ResetRiddle(ctx)
}

func (s *RiddleSource) BreakOptions(ctx context.Context) ([]string, error) {
	return s.client.RiddleBreakOptions(ctx)
}

// QuizSource serves quiz questions from /quiz. The quiz answer endpoint
// never reports attempts, so the session counts them locally.
type QuizSource struct {
	client *Client
}

func NewQuizSource(client *Client) ports.ChallengeSource {
	return &QuizSource{client: client}
}

func (s *QuizSource) Kind() core.ChallengeKind { return core.ChallengeQuiz }

func (s *QuizSource) Fetch(ctx context.Context) (core.Challenge, error) {
	q, err := s.client.QuizQuestion(ctx)
	if err != nil {
		return core.Challenge{}, err
	}
	attempts := q.AttemptsRemaining
	if attempts <= 0 {
		attempts = DefaultQuizAttempts
	}
	complexity := q.Difficulty
	if complexity == 0 {
		complexity = core.MinComplexity
	}
	return core.Challenge{
		Text:              q.Question,
		Complexity:        complexity,
		Options:           q.Options,
		AttemptsRemaining: attempts,
	}, nil
}

func (s *QuizSource) Check(ctx context.Context, answer string) (core.Verdict, error) {
	r, err := s.client.QuizAnswer(ctx, answer)
	if err != nil {
		return core.Verdict{}, err
	}
	return core.Verdict{Correct: r.Correct, Message: r.Message}, nil
}

func (s *QuizSource) Reset(ctx context.Context) error {
	return s.client.QuizReset(ctx)
}

func (s *QuizSource) BreakOptions(ctx context.Context) ([]string, error) {
	return s.client.QuizBreak(ctx)
}
