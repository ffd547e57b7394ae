// Package navigation records navigation side effects for the UI to follow.
package navigation

import "sync"

const defaultLimit = 50

// History is a bounded log of routes, newest last.
type History struct {
	mu     sync.Mutex
	routes []string
	limit  int
}

func NewHistory() *History {
	return &History{limit: defaultLimit}
}

func (h *History) Navigate(route string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, route)
	if len(h.routes) > h.limit {
		h.routes = h.routes[len(h.routes)-h.limit:]
	}
}

// Current returns the last route navigated to.
func (h *History) Current() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.routes) == 0 {
		return "", false
	}
	return h.routes[len(h.routes)-1], true
}

// Routes returns a copy of the history.
func (h *History) Routes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.routes...)
}
