package questapi

import (
	"encoding/json"
	"sync"
)

// Capture keeps the last successful payload seen per endpoint. Register
// Capture.Intercept with WithInterceptor.
type Capture struct {
	mu   sync.RWMutex
	last map[string]json.RawMessage
}

func NewCapture() *Capture {
	return &Capture{last: make(map[string]json.RawMessage)}
}

func (c *Capture) Intercept(endpoint string, status int, body []byte) {
	if status < 200 || status > 299 || !json.Valid(body) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[endpoint] = append(json.RawMessage(nil), body...)
}

// Last returns the last payload captured for endpoint.
func (c *Capture) Last(endpoint string) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	raw, ok := c.last[endpoint]
	return raw, ok
}
