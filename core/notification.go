package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotificationKind enumerates the kinds of notification events.
type NotificationKind string

const (
	KindBadgeEarned    NotificationKind = "badge_earned"
	KindQuestCompleted NotificationKind = "quest_completed"
	KindRewardReceived NotificationKind = "reward_received"
	KindLevelUp        NotificationKind = "level_up"
	KindSystem         NotificationKind = "system"
)

// Valid reports whether k is a known kind.
func (k NotificationKind) Valid() bool {
	switch k {
	case KindBadgeEarned, KindQuestCompleted, KindRewardReceived, KindLevelUp, KindSystem:
		return true
	}
	return false
}

// NotificationPayload carries the kind-specific fields of a notification.
type NotificationPayload struct {
	BadgeID string           `json:"badge_id,omitempty"`
	QuestID string           `json:"quest_id,omitempty"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	Level   int              `json:"level,omitempty"`
}

// Notification is a single entry in the notification log.
type Notification struct {
	ID        string              `json:"id"`
	Kind      NotificationKind    `json:"kind"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	ImageRef  string              `json:"image_ref,omitempty"`
	Read      bool                `json:"read"`
	CreatedAt time.Time           `json:"created_at"`
	Payload   NotificationPayload `json:"payload"`
}

// NotificationSnapshot is a consistent view of the store after a mutation.
type NotificationSnapshot struct {
	Items       []Notification `json:"items"`
	UnreadCount int            `json:"unread_count"`
}

// Newest returns the first entry of the snapshot.
func (s NotificationSnapshot) Newest() (Notification, bool) {
	if len(s.Items) == 0 {
		return Notification{}, false
	}
	return s.Items[0], true
}

// ToastPhase is the lifecycle stage of a toast.
type ToastPhase string

const (
	ToastVisible ToastPhase = "visible"
	ToastExiting ToastPhase = "exiting"
)

// Toast is a transient projection of a single notification.
type Toast struct {
	ID           string       `json:"id"`
	Notification Notification `json:"notification"`
	Phase        ToastPhase   `json:"phase"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// DropdownView is what the notification dropdown renders.
type DropdownView struct {
	Open        bool           `json:"open"`
	Items       []Notification `json:"items"`
	UnreadCount int            `json:"unread_count"`
}
