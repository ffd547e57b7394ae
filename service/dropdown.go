package service

import (
	"sync"

	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/ports"
)

const (
	// DropdownLimit is how many notifications the dropdown shows.
	DropdownLimit = 5

	// NotificationsRoute is the full notification list.
	NotificationsRoute = "/notifications"
)

// Dropdown is a bounded view over the notification store with its own
// open/closed state.
type Dropdown struct {
	store     *NotificationStore
	navigator ports.Navigator

	mu   sync.Mutex
	open bool
}

func NewDropdown(store *NotificationStore, navigator ports.Navigator) *Dropdown {
	return &Dropdown{store: store, navigator: navigator}
}

// Toggle handles a click on the trigger.
func (d *Dropdown) Toggle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = !d.open
	return d.open
}

func (d *Dropdown) Open() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
}

// OutsideClick closes the dropdown.
func (d *Dropdown) OutsideClick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
}

// ViewAll closes the dropdown and navigates to the full list.
func (d *Dropdown) ViewAll() {
	d.mu.Lock()
	d.open = false
	d.mu.Unlock()

	if d.navigator != nil {
		d.navigator.Navigate(NotificationsRoute)
	}
}

func (d *Dropdown) MarkAllRead() {
	d.store.MarkAllRead()
}

// View returns the first DropdownLimit notifications in store order.
func (d *Dropdown) View() core.DropdownView {
	snapshot := d.store.Snapshot()
	items := snapshot.Items
	if len(items) > DropdownLimit {
		items = items[:DropdownLimit]
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return core.DropdownView{
		Open:        d.open,
		Items:       items,
		UnreadCount: snapshot.UnreadCount,
	}
}
