package service

import (
	"context"
	"errors"
	"sync"

	"github.com/layer-3/questhub/core"
	"github.com/shopspring/decimal"
)

// FakeWallet is a test-only wallet connector.
type FakeWallet struct {
	address     string
	connectErr  error
	connected   bool
	disconnects int
}

func (w *FakeWallet) Connect(ctx context.Context) (string, error) {
	if w.connectErr != nil {
		return "", w.connectErr
	}
	w.connected = true
	return w.address, nil
}

func (w *FakeWallet) Disconnect(ctx context.Context) error {
	w.connected = false
	w.disconnects++
	return nil
}

func (w *FakeWallet) Address() (string, bool) {
	return w.address, w.connected
}

// FakeNavigator records every route.
type FakeNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *FakeNavigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *FakeNavigator) Routes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

// FakeEvents records published events.
type FakeEvents struct {
	mu       sync.Mutex
	signOuts []string
	rewards  []core.Reward
	err      error
}

func (e *FakeEvents) PublishSignOut(ctx context.Context, userID, walletAddress string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.signOuts = append(e.signOuts, userID)
	return e.err
}

func (e *FakeEvents) PublishReward(ctx context.Context, reward core.Reward) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rewards = append(e.rewards, reward)
	return e.err
}

// FakeSource is a scripted challenge source. Each call pops the next
// scripted result, or blocks on the matching gate channel when set.
type FakeSource struct {
	mu         sync.Mutex
	kind       core.ChallengeKind
	challenges []core.Challenge
	verdicts   []core.Verdict
	fetchErr   error
	checkErr   error
	resetErr   error
	breaks     []string

	fetchGate chan struct{}
	checkGate chan struct{}

	fetches int
	checks  []string
	resets  int
}

func (f *FakeSource) Kind() core.ChallengeKind {
	if f.kind == "" {
		return core.ChallengeRiddle
	}
	return f.kind
}

func (f *FakeSource) Fetch(ctx context.Context) (core.Challenge, error) {
	f.mu.Lock()
	f.fetches++
	gate := f.fetchGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return core.Challenge{}, f.fetchErr
	}
	if len(f.challenges) == 0 {
		return core.Challenge{}, errors.New("no scripted challenge")
	}
	c := f.challenges[0]
	if len(f.challenges) > 1 {
		f.challenges = f.challenges[1:]
	}
	return c, nil
}

func (f *FakeSource) Check(ctx context.Context, answer string) (core.Verdict, error) {
	f.mu.Lock()
	f.checks = append(f.checks, answer)
	gate := f.checkGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return core.Verdict{}, f.checkErr
	}
	if len(f.verdicts) == 0 {
		return core.Verdict{}, errors.New("no scripted verdict")
	}
	v := f.verdicts[0]
	f.verdicts = f.verdicts[1:]
	return v, nil
}

func (f *FakeSource) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return f.resetErr
}

func (f *FakeSource) BreakOptions(ctx context.Context) ([]string, error) {
	return f.breaks, nil
}

func (f *FakeSource) Checks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.checks...)
}

func (f *FakeSource) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// FakeScore records credits.
type FakeScore struct {
	mu      sync.Mutex
	credits []decimal.Decimal
}

func (s *FakeScore) Credit(ctx context.Context, userID string, amount decimal.Decimal, reason string) (core.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits = append(s.credits, amount)
	return core.Reward{UserID: userID, Amount: amount, Reason: reason}, nil
}

func (s *FakeScore) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, c := range s.credits {
		total = total.Add(c)
	}
	return total
}

func intPtr(v int) *int { return &v }
