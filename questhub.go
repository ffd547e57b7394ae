// Package questhub wires the process-wide session, notification, toast,
// dropdown and challenge components of the QuestHub client.
package questhub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/questhub/adapters/events"
	"github.com/layer-3/questhub/adapters/navigation"
	"github.com/layer-3/questhub/adapters/questapi"
	"github.com/layer-3/questhub/adapters/store"
	"github.com/layer-3/questhub/adapters/wallet"
	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/internal/clock"
	"github.com/layer-3/questhub/ports"
	"github.com/layer-3/questhub/service"
	httptransport "github.com/layer-3/questhub/transport/http"
	"github.com/shopspring/decimal"
)

// Config tunes the components built by New.
type Config struct {
	RiddleReward     decimal.Decimal
	QuizReward       decimal.Decimal
	ToastTTL         time.Duration
	SimulatedLatency time.Duration
}

// Deps are the collaborators of the app. Nil fields get in-memory defaults,
// except Tokenizer and the challenge sources which need QuestAPI or an
// explicit source.
type Deps struct {
	Identities ports.IdentityRepository
	Store      ports.Store
	Wallet     *wallet.SignatureConnector
	Tokenizer  ports.Tokenizer
	Logger     watermill.LoggerAdapter
	Clock      clock.Clock

	// Publisher and Subscriber carry sign-out and reward events. When both
	// are nil an in-process gochannel is used.
	Publisher  message.Publisher
	Subscriber message.Subscriber

	// QuestAPI also serves the pass-through routes. Capture, when set, must
	// be registered on QuestAPI with questapi.WithInterceptor.
	QuestAPI *questapi.Client
	Capture  *questapi.Capture
	Riddle   ports.ChallengeSource
	Quiz     ports.ChallengeSource
}

// App holds one instance of every component. They are shared by reference.
type App struct {
	Session       *service.SessionService
	Notifications *service.NotificationStore
	Toasts        *service.ToastProjection
	Dropdown      *service.Dropdown
	Scoreboard    *service.Scoreboard
	Riddle        *service.ChallengeSession
	Quiz          *service.ChallengeSession
	History       *navigation.History

	wallet    *wallet.SignatureConnector
	tokenizer ports.Tokenizer
	quest     *questapi.Client
	capture   *questapi.Capture
	rewards   *events.RewardConsumer
	pubsub    *gochannel.GoChannel
	stop      context.CancelFunc
	done      <-chan struct{}
}

func New(cfg Config, deps Deps) (*App, error) {
	if deps.Tokenizer == nil {
		return nil, errors.New("tokenizer is required")
	}
	if deps.Logger == nil {
		deps.Logger = watermill.NopLogger{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Identities == nil {
		deps.Identities = store.NewMemoryIdentities()
	}
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}
	if deps.Wallet == nil {
		deps.Wallet = wallet.NewSignatureConnector()
	}
	if deps.Riddle == nil && deps.QuestAPI != nil {
		deps.Riddle = questapi.NewRiddleSource(deps.QuestAPI)
	}
	if deps.Quiz == nil && deps.QuestAPI != nil {
		deps.Quiz = questapi.NewQuizSource(deps.QuestAPI)
	}
	if deps.Riddle == nil || deps.Quiz == nil {
		return nil, errors.New("riddle and quiz sources require a quest API client")
	}
	if cfg.RiddleReward.IsZero() {
		cfg.RiddleReward = decimal.NewFromInt(10)
	}
	if cfg.QuizReward.IsZero() {
		cfg.QuizReward = decimal.NewFromInt(5)
	}

	app := &App{
		History:   navigation.NewHistory(),
		wallet:    deps.Wallet,
		tokenizer: deps.Tokenizer,
		quest:     deps.QuestAPI,
		capture:   deps.Capture,
	}

	if deps.Publisher == nil && deps.Subscriber == nil {
		app.pubsub = gochannel.NewGoChannel(gochannel.Config{}, deps.Logger)
		deps.Publisher, deps.Subscriber = app.pubsub, app.pubsub
	}
	var publisher ports.EventPublisher
	if deps.Publisher != nil {
		publisher = events.NewWatermillPublisher(deps.Publisher)
	}

	app.Session = service.NewSessionService(service.SessionDeps{
		Identities: deps.Identities,
		Store:      deps.Store,
		Wallet:     deps.Wallet,
		Navigator:  app.History,
		Events:     publisher,
		Logger:     deps.Logger.With(watermill.LogFields{"component": "session"}),
		Clock:      deps.Clock,
		Latency:    cfg.SimulatedLatency,
	})

	app.Notifications = service.NewNotificationStore(deps.Clock, deps.Logger)
	app.Toasts = service.NewToastProjection(app.Notifications, deps.Clock, app.History, deps.Logger, cfg.ToastTTL)
	app.Dropdown = service.NewDropdown(app.Notifications, app.History)
	app.Scoreboard = service.NewScoreboard(deps.Clock, publisher, deps.Logger)

	app.Riddle = app.challenge(deps, deps.Riddle, cfg.RiddleReward)
	app.Quiz = app.challenge(deps, deps.Quiz, cfg.QuizReward)

	if deps.Subscriber != nil {
		app.rewards = events.NewRewardConsumer(deps.Subscriber, app.Notifications, deps.Logger)
		app.rewards.Accept = app.ownReward
	}

	return app, nil
}

func (a *App) challenge(deps Deps, source ports.ChallengeSource, reward decimal.Decimal) *service.ChallengeSession {
	return service.NewChallengeSession(service.ChallengeConfig{
		Source: source,
		Score:  a.Scoreboard,
		Users:  a.Session,
		Clock:  deps.Clock,
		Logger: deps.Logger,
		Reward: reward,
	})
}

// ownReward accepts rewards credited to whoever is signed in now.
func (a *App) ownReward(r core.Reward) bool {
	if current := a.Session.Current(); current != nil {
		return r.UserID == current.ID
	}
	return r.UserID == service.GuestUserID
}

// Start restores the persisted session and starts consuming reward events.
func (a *App) Start(ctx context.Context) error {
	if err := a.Session.Hydrate(ctx); err != nil {
		return fmt.Errorf("failed to hydrate session: %w", err)
	}
	if a.rewards == nil {
		return nil
	}

	ctx, a.stop = context.WithCancel(ctx)
	done, err := a.rewards.Start(ctx)
	if err != nil {
		a.stop()
		a.stop = nil
		return err
	}
	a.done = done
	return nil
}

// Services exposes the app to the HTTP transport.
func (a *App) Services() httptransport.Services {
	s := httptransport.Services{
		Session:       a.Session,
		Wallet:        a.wallet,
		Tokenizer:     a.tokenizer,
		Notifications: a.Notifications,
		Toasts:        a.Toasts,
		Dropdown:      a.Dropdown,
		Scoreboard:    a.Scoreboard,
		Challenges:    []*service.ChallengeSession{a.Riddle, a.Quiz},
		History:       a.History,
	}
	if a.quest != nil {
		s.Quest = a.quest
		if a.capture != nil {
			s.Captured = a.capture
		}
	}
	return s
}

// Close cancels every timer and stops event consumption.
func (a *App) Close() error {
	a.Riddle.Close()
	a.Quiz.Close()
	a.Toasts.Stop()

	if a.stop != nil {
		a.stop()
		<-a.done
	}
	if a.pubsub != nil {
		return a.pubsub.Close()
	}
	return nil
}
