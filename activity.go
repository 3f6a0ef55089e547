package lodging

import (
	"context"
	"sync"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSessionEstablished ActivityEventType = "session.established"
	ActivityEventSessionCleared     ActivityEventType = "session.cleared"
	ActivityEventAppSubmitted       ActivityEventType = "application.submitted"
	ActivityEventAppStatusChanged   ActivityEventType = "application.status.changed"
	ActivityEventAppMessageAppended ActivityEventType = "application.message.appended"
	ActivityEventAccountRegistered  ActivityEventType = "account.registered"
	ActivityEventAccountRemoved     ActivityEventType = "account.removed"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	AccountID  string
	FromStatus ApplicationStatus
	ToStatus   ApplicationStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// ActivityHub fans activity events out to channel subscribers. Consumers
// call Subscribe and hold on to the returned cancel function; the hub
// stops delivering to a subscriber the moment cancel runs, so there is
// no implicit lifetime tied to anything else.
//
// Delivery is best-effort: a subscriber that is not draining its channel
// misses events instead of blocking publishers.
type ActivityHub struct {
	mu     sync.Mutex
	subs   map[int]chan ActivityEvent
	nextID int
	buffer int
	logger Logger
}

// ActivityHubOption customizes hub construction.
type ActivityHubOption func(*ActivityHub)

// WithActivityHubBuffer sets the per-subscriber channel buffer.
func WithActivityHubBuffer(n int) ActivityHubOption {
	return func(h *ActivityHub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithActivityHubLogger overrides the hub's logger.
func WithActivityHubLogger(logger Logger) ActivityHubOption {
	return func(h *ActivityHub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewActivityHub builds a hub with a default per-subscriber buffer of 16.
func NewActivityHub(opts ...ActivityHubOption) *ActivityHub {
	h := &ActivityHub{
		subs:   map[int]chan ActivityEvent{},
		buffer: 16,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Subscribe registers a new consumer. The returned cancel function is
// idempotent and closes the channel.
func (h *ActivityHub) Subscribe() (<-chan ActivityEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	ch := make(chan ActivityEvent, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

// Record implements ActivitySink. It never blocks and never fails; a
// slow subscriber drops the event.
func (h *ActivityHub) Record(_ context.Context, event ActivityEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.logger.Warn("activity hub: subscriber %d is not draining, dropping %s", id, event.EventType)
		}
	}
	return nil
}

// SubscriberCount reports how many consumers are registered.
func (h *ActivityHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// MultiActivitySink records each event to every sink in order, keeping
// the first error.
type MultiActivitySink []ActivitySink

// Record implements ActivitySink.
func (m MultiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
