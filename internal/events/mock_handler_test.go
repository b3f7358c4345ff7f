package events

import (
	"context"
	"sync"
)

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	mu           sync.Mutex
	HandledCount int
	LastEvent    *ProgressEvent
	HandlerError error
}

func (h *MockEventHandler) HandleEvent(_ context.Context, event *ProgressEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.HandledCount++
	h.LastEvent = event
	return h.HandlerError
}
