package service

import (
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/internal/clock"
)

// NotificationStore is the process-wide, newest-first log of notifications.
// Every mutation produces exactly one snapshot delivered to subscribers.
type NotificationStore struct {
	clock  clock.Clock
	logger watermill.LoggerAdapter

	// deliver serialises snapshot delivery so subscribers observe
	// mutations in order. Subscribers must not mutate the store.
	deliver sync.Mutex

	mu        sync.Mutex
	items     []core.Notification
	unread    int
	lastAdded time.Time
	listeners map[int]func(core.NotificationSnapshot)
	nextID    int
}

// NewNotificationStore creates an empty store
func NewNotificationStore(clk clock.Clock, logger watermill.LoggerAdapter) *NotificationStore {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &NotificationStore{
		clock:     clk,
		logger:    logger,
		listeners: make(map[int]func(core.NotificationSnapshot)),
	}
}

// Add prepends n and returns its id. An empty id is generated and a zero
// CreatedAt is stamped with the current time. CreatedAt never goes backwards
// in insertion order.
func (s *NotificationStore) Add(n core.Notification) (string, error) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	for _, existing := range s.items {
		if existing.ID == n.ID {
			s.mu.Unlock()
			return "", core.ErrDuplicateNotification
		}
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.clock.Now()
	}
	if n.CreatedAt.Before(s.lastAdded) {
		n.CreatedAt = s.lastAdded
	}
	s.lastAdded = n.CreatedAt

	s.items = append([]core.Notification{n}, s.items...)
	s.recount()
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("Notification added", watermill.LogFields{"id": n.ID, "kind": string(n.Kind)})
	s.notify(snapshot, listeners)
	return n.ID, nil
}

// MarkRead flags one notification as read
func (s *NotificationStore) MarkRead(id string) error {
	return s.mutate(func() error {
		for i := range s.items {
			if s.items[i].ID == id {
				s.items[i].Read = true
				return nil
			}
		}
		return core.ErrNotificationNotFound
	})
}

// MarkAllRead flags every notification as read
func (s *NotificationStore) MarkAllRead() {
	_ = s.mutate(func() error {
		for i := range s.items {
			s.items[i].Read = true
		}
		return nil
	})
}

// Remove deletes one notification, keeping the order of the rest
func (s *NotificationStore) Remove(id string) error {
	return s.mutate(func() error {
		for i := range s.items {
			if s.items[i].ID == id {
				s.items = append(s.items[:i:i], s.items[i+1:]...)
				return nil
			}
		}
		return core.ErrNotificationNotFound
	})
}

// Clear empties the store in a single transition
func (s *NotificationStore) Clear() {
	_ = s.mutate(func() error {
		s.items = nil
		return nil
	})
}

// Get returns one notification by id
func (s *NotificationStore) Get(id string) (core.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.ID == id {
			return n, true
		}
	}
	return core.Notification{}, false
}

// UnreadCount returns the number of unread notifications
func (s *NotificationStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Snapshot returns a copy of the current log
func (s *NotificationStore) Snapshot() core.NotificationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, _ := s.snapshotLocked()
	return snapshot
}

// Subscribe registers fn for every mutation. The returned func unsubscribes.
func (s *NotificationStore) Subscribe(fn func(core.NotificationSnapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *NotificationStore) mutate(fn func() error) error {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.recount()
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot, listeners)
	return nil
}

func (s *NotificationStore) recount() {
	s.unread = 0
	for _, n := range s.items {
		if !n.Read {
			s.unread++
		}
	}
}

func (s *NotificationStore) snapshotLocked() (core.NotificationSnapshot, []func(core.NotificationSnapshot)) {
	snapshot := core.NotificationSnapshot{
		Items:       append([]core.Notification(nil), s.items...),
		UnreadCount: s.unread,
	}
	listeners := make([]func(core.NotificationSnapshot), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	return snapshot, listeners
}

func (s *NotificationStore) notify(snapshot core.NotificationSnapshot, listeners []func(core.NotificationSnapshot)) {
	for _, l := range listeners {
		l(snapshot)
	}
}
