package memorystore

import (
	"context"
	"sync"

	"github.com/daybeamapp/golfkit/billing"
)

// EventLog is an in-memory billing.EventLog for tests and local development.
type EventLog struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewEventLog() *EventLog {
	return &EventLog{seen: make(map[string]struct{})}
}

func (l *EventLog) MarkProcessed(ctx context.Context, provider, eventID string, eventType billing.EventType) (bool, error) {
	_ = ctx
	_ = eventType
	l.mu.Lock()
	defer l.mu.Unlock()
	key := provider + ":" + eventID
	if _, ok := l.seen[key]; ok {
		return false, nil
	}
	l.seen[key] = struct{}{}
	return true, nil
}
