package service

import (
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/internal/clock"
	"github.com/layer-3/questhub/ports"
)

const (
	DefaultToastTTL  = 5 * time.Second
	DefaultToastExit = 300 * time.Millisecond
)

// ToastProjection shows a toast for each newly arrived unread badge.
// A notification is toasted at most once.
type ToastProjection struct {
	store     *NotificationStore
	clock     clock.Clock
	navigator ports.Navigator
	logger    watermill.LoggerAdapter
	ttl       time.Duration
	exit      time.Duration

	mu          sync.Mutex
	toasts      []*toastEntry
	seen        map[string]struct{}
	unsubscribe func()
}

type toastEntry struct {
	toast  core.Toast
	expiry clock.Timer
	evict  clock.Timer
}

// NewToastProjection subscribes to store. A zero ttl uses DefaultToastTTL.
func NewToastProjection(
	store *NotificationStore,
	clk clock.Clock,
	navigator ports.Navigator,
	logger watermill.LoggerAdapter,
	ttl time.Duration,
) *ToastProjection {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}

	p := &ToastProjection{
		store:     store,
		clock:     clk,
		navigator: navigator,
		logger:    logger,
		ttl:       ttl,
		exit:      DefaultToastExit,
		seen:      make(map[string]struct{}),
	}
	p.unsubscribe = store.Subscribe(p.onSnapshot)
	return p
}

func (p *ToastProjection) onSnapshot(snapshot core.NotificationSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pruneSeenLocked(snapshot)

	newest, ok := snapshot.Newest()
	if !ok || newest.Kind != core.KindBadgeEarned || newest.Read {
		return
	}
	if _, shown := p.seen[newest.ID]; shown {
		return
	}
	p.seen[newest.ID] = struct{}{}

	id := newest.ID
	entry := &toastEntry{
		toast: core.Toast{
			ID:           id,
			Notification: newest,
			Phase:        core.ToastVisible,
			ExpiresAt:    p.clock.Now().Add(p.ttl),
		},
	}
	entry.expiry = p.clock.AfterFunc(p.ttl, func() { p.Close(id) })
	p.toasts = append([]*toastEntry{entry}, p.toasts...)

	p.logger.Debug("Toast shown", watermill.LogFields{"notification_id": id})
}

// pruneSeenLocked forgets notifications that left the store.
func (p *ToastProjection) pruneSeenLocked(snapshot core.NotificationSnapshot) {
	if len(p.seen) == 0 {
		return
	}
	present := make(map[string]struct{}, len(snapshot.Items))
	for _, n := range snapshot.Items {
		present[n.ID] = struct{}{}
	}
	for id := range p.seen {
		if _, ok := present[id]; !ok {
			delete(p.seen, id)
		}
	}
}

// Close starts the exit of a toast. Closing a toast that is already
// exiting or gone is a no-op.
func (p *ToastProjection) Close(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := p.find(id)
	if entry == nil || entry.toast.Phase == core.ToastExiting {
		return
	}

	entry.toast.Phase = core.ToastExiting
	if entry.expiry != nil {
		entry.expiry.Stop()
	}
	entry.evict = p.clock.AfterFunc(p.exit, func() { p.evict(id) })
}

// Click marks the underlying notification read, navigates to its detail
// view and closes the toast. It returns the route taken, if any.
func (p *ToastProjection) Click(id string) (string, error) {
	p.mu.Lock()
	entry := p.find(id)
	if entry == nil {
		p.mu.Unlock()
		return "", core.ErrNotFound
	}
	n := entry.toast.Notification
	p.mu.Unlock()

	if err := p.store.MarkRead(n.ID); err != nil {
		p.logger.Info("Toast clicked for a removed notification", watermill.LogFields{"notification_id": n.ID})
	}

	route := RouteFor(n)
	if route != "" && p.navigator != nil {
		p.navigator.Navigate(route)
	}

	p.Close(id)
	return route, nil
}

// Toasts returns the live toasts, newest first.
func (p *ToastProjection) Toasts() []core.Toast {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]core.Toast, 0, len(p.toasts))
	for _, e := range p.toasts {
		out = append(out, e.toast)
	}
	return out
}

// Stop detaches from the store and cancels all timers.
func (p *ToastProjection) Stop() {
	p.unsubscribe()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.toasts {
		if e.expiry != nil {
			e.expiry.Stop()
		}
		if e.evict != nil {
			e.evict.Stop()
		}
	}
	p.toasts = nil
}

func (p *ToastProjection) evict(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, e := range p.toasts {
		if e.toast.ID == id {
			p.toasts = append(p.toasts[:i:i], p.toasts[i+1:]...)
			return
		}
	}
}

func (p *ToastProjection) find(id string) *toastEntry {
	for _, e := range p.toasts {
		if e.toast.ID == id {
			return e
		}
	}
	return nil
}

// RouteFor is the detail view of a notification, or "" when the kind has none.
func RouteFor(n core.Notification) string {
	switch n.Kind {
	case core.KindBadgeEarned:
		if n.Payload.BadgeID != "" {
			return "/badges/" + n.Payload.BadgeID
		}
		return "/badges"
	case core.KindQuestCompleted:
		if n.Payload.QuestID != "" {
			return "/quests/" + n.Payload.QuestID
		}
		return "/quests"
	default:
		return ""
	}
}
