package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/internal/clock"
	"github.com/layer-3/questhub/ports"
	"github.com/shopspring/decimal"
)

const (
	DefaultModalDelay  = 1500 * time.Millisecond
	DefaultReloadDelay = 3 * time.Second
	tickInterval       = time.Second
)

// CurrentUser tells the challenge session whom to credit.
type CurrentUser interface {
	Current() *core.Identity
}

// ChallengeConfig configures a challenge session. Source is required.
type ChallengeConfig struct {
	Source ports.ChallengeSource
	Score  ports.ScoreAccumulator
	Users  CurrentUser
	Clock  clock.Clock
	Logger watermill.LoggerAdapter

	Reward      decimal.Decimal
	ModalDelay  time.Duration
	ReloadDelay time.Duration
}

// ChallengeSession drives one riddle or quiz interaction:
// Loading -> Ready -> Submitting -> Correct | Incorrect | Exhausted -> Ready.
//
// Every load bumps a sequence number; responses and timers belonging to an
// older sequence are dropped so the latest load always wins.
type ChallengeSession struct {
	source      ports.ChallengeSource
	score       ports.ScoreAccumulator
	users       CurrentUser
	clock       clock.Clock
	logger      watermill.LoggerAdapter
	reward      decimal.Decimal
	modalDelay  time.Duration
	reloadDelay time.Duration

	mu     sync.Mutex
	state  core.ChallengeState
	seq    uint64
	closed bool
	modal  clock.Timer
	reload clock.Timer
	tick   clock.Timer
}

func NewChallengeSession(cfg ChallengeConfig) *ChallengeSession {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Logger == nil {
		cfg.Logger = watermill.NopLogger{}
	}
	if cfg.ModalDelay <= 0 {
		cfg.ModalDelay = DefaultModalDelay
	}
	if cfg.ReloadDelay <= 0 {
		cfg.ReloadDelay = DefaultReloadDelay
	}

	return &ChallengeSession{
		source:      cfg.Source,
		score:       cfg.Score,
		users:       cfg.Users,
		clock:       cfg.Clock,
		logger:      cfg.Logger.With(watermill.LogFields{"challenge": string(cfg.Source.Kind())}),
		reward:      cfg.Reward,
		modalDelay:  cfg.ModalDelay,
		reloadDelay: cfg.ReloadDelay,
		state: core.ChallengeState{
			Kind:  cfg.Source.Kind(),
			Phase: core.PhaseIdle,
		},
	}
}

// Load fetches a fresh challenge, replacing whatever was shown. It returns
// core.ErrStaleResponse when a newer load started before this one finished.
func (s *ChallengeSession) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return core.ErrSessionClosed
	}
	s.seq++
	seq := s.seq
	s.stopTimersLocked()
	s.state = core.ChallengeState{
		Kind:  s.state.Kind,
		Phase: core.PhaseLoading,
	}
	s.mu.Unlock()

	challenge, err := s.source.Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		s.logger.Debug("Dropping stale challenge", watermill.LogFields{"seq": seq, "latest": s.seq})
		return core.ErrStaleResponse
	}

	if err != nil {
		err = asNetworkFailure(err)
		s.state.Phase = core.PhaseFailed
		s.state.LastError = core.UserMessage(err)
		s.state.CanRetry = true
		s.logger.Error("Failed to load challenge", err, watermill.LogFields{"seq": seq})
		return err
	}

	s.state = core.ChallengeState{
		Kind:              s.state.Kind,
		Phase:             core.PhaseReady,
		Text:              challenge.Text,
		Complexity:        core.ClampComplexity(challenge.Complexity),
		Hint:              challenge.Hint,
		Options:           append([]string(nil), challenge.Options...),
		AttemptsRemaining: core.ClampAttempts(challenge.AttemptsRemaining),
		LoadedAt:          s.clock.Now(),
	}
	if s.state.AttemptsRemaining == 0 {
		// nothing left to answer: move on like an exhausted challenge
		s.exhaustLocked(seq)
		return nil
	}
	s.scheduleTickLocked(seq)

	s.logger.Debug("Challenge loaded", watermill.LogFields{"seq": seq, "complexity": s.state.Complexity})
	return nil
}

// Next loads the next challenge after a solved one.
func (s *ChallengeSession) Next(ctx context.Context) error {
	return s.Load(ctx)
}

// Submit sends an answer for the current challenge. Blank answers never
// reach the network. Only one submission may be in flight.
func (s *ChallengeSession) Submit(ctx context.Context, answer string) (core.Feedback, error) {
	trimmed := strings.TrimSpace(answer)

	s.mu.Lock()
	if trimmed == "" {
		s.state.LastError = core.UserMessage(core.ErrEmptyAnswer)
		s.mu.Unlock()
		return core.Feedback{}, core.ErrEmptyAnswer
	}
	if err := s.canSubmitLocked(); err != nil {
		s.mu.Unlock()
		return core.Feedback{}, err
	}
	seq := s.seq
	previous := s.state.Phase
	s.state.SubmissionInFlight = true
	s.state.Phase = core.PhaseSubmitting
	s.state.LastError = ""
	s.mu.Unlock()

	verdict, err := s.source.Check(ctx, strings.ToLower(trimmed))

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.logger.Debug("Dropping stale verdict", watermill.LogFields{"seq": seq})
		return core.Feedback{}, core.ErrStaleResponse
	}
	s.state.SubmissionInFlight = false

	if err != nil {
		err = asNetworkFailure(err)
		s.state.Phase = previous
		s.state.LastError = core.UserMessage(err)
		s.state.CanRetry = true
		s.mu.Unlock()
		s.logger.Error("Failed to submit answer", err, watermill.LogFields{"seq": seq})
		return core.Feedback{}, err
	}
	s.state.CanRetry = false

	if verdict.Correct {
		feedback := s.onCorrectLocked(seq, verdict)
		s.mu.Unlock()
		s.credit(ctx)
		return feedback, nil
	}

	feedback := s.onIncorrectLocked(seq, verdict)
	s.mu.Unlock()
	return feedback, nil
}

func (s *ChallengeSession) canSubmitLocked() error {
	if s.closed {
		return core.ErrSessionClosed
	}
	if s.state.SubmissionInFlight {
		return core.ErrSubmissionInFlight
	}
	switch s.state.Phase {
	case core.PhaseReady, core.PhaseIncorrect:
	case core.PhaseExhausted:
		return core.ErrChallengeExhausted
	default:
		return core.ErrNoChallenge
	}
	if s.state.AttemptsRemaining <= 0 {
		return core.ErrChallengeExhausted
	}
	return nil
}

func (s *ChallengeSession) onCorrectLocked(seq uint64, verdict core.Verdict) core.Feedback {
	feedback := core.Feedback{Kind: core.FeedbackSuccess, Message: verdict.Message}
	s.state.Phase = core.PhaseCorrect
	s.state.LastFeedback = &feedback
	s.stopTickLocked()

	s.modal = s.clock.AfterFunc(s.modalDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if seq == s.seq && !s.closed {
			s.state.SuccessModal = true
		}
	})
	return feedback
}

func (s *ChallengeSession) onIncorrectLocked(seq uint64, verdict core.Verdict) core.Feedback {
	feedback := core.Feedback{Kind: core.FeedbackFailure, Message: verdict.Message, Hint: verdict.Hint}
	s.state.LastFeedback = &feedback
	if verdict.Hint != "" {
		s.state.Hint = verdict.Hint
	}

	if verdict.AttemptsRemaining != nil {
		s.state.AttemptsRemaining = core.ClampAttempts(*verdict.AttemptsRemaining)
	} else {
		s.state.AttemptsRemaining = core.ClampAttempts(s.state.AttemptsRemaining - 1)
	}

	if s.state.AttemptsRemaining > 0 {
		s.state.Phase = core.PhaseIncorrect
		return feedback
	}

	s.exhaustLocked(seq)
	return feedback
}

// exhaustLocked schedules the reload that replaces a challenge with no
// attempts left.
func (s *ChallengeSession) exhaustLocked(seq uint64) {
	s.state.Phase = core.PhaseExhausted
	s.stopTickLocked()
	s.reload = s.clock.AfterFunc(s.reloadDelay, func() { s.autoReload(seq) })
	s.logger.Info("Attempts exhausted, reloading", watermill.LogFields{"seq": seq, "delay": s.reloadDelay.String()})
}

// autoReload abandons an exhausted challenge unless something newer
// already replaced it.
func (s *ChallengeSession) autoReload(seq uint64) {
	s.mu.Lock()
	stale := seq != s.seq || s.closed
	s.mu.Unlock()
	if stale {
		return
	}

	if err := s.Load(context.Background()); err != nil && !errors.Is(err, core.ErrStaleResponse) {
		s.logger.Error("Automatic reload failed", err, nil)
	}
}

func (s *ChallengeSession) credit(ctx context.Context) {
	if s.score == nil || !s.reward.IsPositive() {
		return
	}
	userID := ""
	if s.users != nil {
		if u := s.users.Current(); u != nil {
			userID = u.ID
		}
	}
	if _, err := s.score.Credit(ctx, userID, s.reward, string(s.source.Kind())); err != nil {
		s.logger.Error("Failed to credit reward", err, watermill.LogFields{"user_id": userID})
	}
}

// Reset asks the Quest API to reset the challenge and always loads a fresh
// one. A failed reset call is surfaced as the session's error message.
func (s *ChallengeSession) Reset(ctx context.Context) error {
	resetErr := s.source.Reset(ctx)
	if resetErr != nil {
		s.logger.Error("Reset call failed", resetErr, nil)
	}

	if err := s.Load(ctx); err != nil {
		return err
	}

	if resetErr != nil {
		resetErr = asNetworkFailure(resetErr)
		s.mu.Lock()
		s.state.LastError = core.UserMessage(resetErr)
		s.state.CanRetry = true
		s.mu.Unlock()
		return fmt.Errorf("reset failed: %w", resetErr)
	}
	return nil
}

// TakeBreak fetches break suggestions. It does not touch challenge state.
func (s *ChallengeSession) TakeBreak(ctx context.Context) ([]string, error) {
	options, err := s.source.BreakOptions(ctx)
	if err != nil {
		return nil, asNetworkFailure(err)
	}
	return options, nil
}

// DismissModal hides the success modal.
func (s *ChallengeSession) DismissModal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SuccessModal = false
}

// State returns a copy of the current challenge state.
func (s *ChallengeSession) State() core.ChallengeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Options = append([]string(nil), s.state.Options...)
	if s.state.LastFeedback != nil {
		fb := *s.state.LastFeedback
		st.LastFeedback = &fb
	}
	return st
}

// Kind reports whether this is a riddle or quiz session.
func (s *ChallengeSession) Kind() core.ChallengeKind {
	return s.source.Kind()
}

// Close cancels every pending timer and drops in-flight responses.
func (s *ChallengeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.seq++
	s.stopTimersLocked()
}

func (s *ChallengeSession) scheduleTickLocked(seq uint64) {
	s.tick = s.clock.AfterFunc(tickInterval, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if seq != s.seq || s.closed {
			return
		}
		switch s.state.Phase {
		case core.PhaseReady, core.PhaseSubmitting, core.PhaseIncorrect:
			s.state.ElapsedSeconds++
			s.scheduleTickLocked(seq)
		}
	})
}

func (s *ChallengeSession) stopTickLocked() {
	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}
}

func (s *ChallengeSession) stopTimersLocked() {
	s.stopTickLocked()
	if s.modal != nil {
		s.modal.Stop()
		s.modal = nil
	}
	if s.reload != nil {
		s.reload.Stop()
		s.reload = nil
	}
}

func asNetworkFailure(err error) error {
	if errors.Is(err, core.ErrNetworkFailure) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", core.ErrNetworkFailure, err)
}
