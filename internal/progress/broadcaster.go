package progress

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"dubsy/internal/logging"
)

// Event types.
const (
	EventStarted   = "started"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

const defaultSendTimeout = 5 * time.Second

// Event is the message delivered to listeners.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Listener receives events for one job. Implementations must be comparable
// (typically pointers). A Send error marks the listener dead.
type Listener interface {
	Send(ctx context.Context, event Event) error
}

type jobListeners struct {
	mu        sync.Mutex
	listeners map[Listener]struct{}
}

// Broadcaster fans out job events to live listeners. It is safe for
// concurrent use. Events are never buffered or replayed.
type Broadcaster struct {
	mu          sync.RWMutex
	jobs        map[string]*jobListeners
	sendTimeout time.Duration
	logger      *slog.Logger
}

// NewBroadcaster constructs an empty Broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		jobs:        make(map[string]*jobListeners),
		sendTimeout: defaultSendTimeout,
		logger:      logging.NewComponentLogger(logger, "progress"),
	}
}

// Subscribe registers listener for jobID.
func (b *Broadcaster) Subscribe(jobID string, listener Listener) {
	if b == nil || jobID == "" || listener == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.jobs[jobID]
	if !ok {
		set = &jobListeners{listeners: make(map[Listener]struct{})}
		b.jobs[jobID] = set
	}
	set.mu.Lock()
	set.listeners[listener] = struct{}{}
	set.mu.Unlock()
}

// Unsubscribe removes listener from jobID. Unknown pairs are ignored.
func (b *Broadcaster) Unsubscribe(jobID string, listener Listener) {
	if b == nil || listener == nil {
		return
	}
	b.remove(jobID, []Listener{listener})
}

// Count returns the number of listeners for jobID.
func (b *Broadcaster) Count(jobID string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	set, ok := b.jobs[jobID]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	return len(set.listeners)
}

// Publish delivers an event to every listener of jobID. A job without
// listeners is a no-op. Listeners whose Send fails are removed; delivery to
// the others continues.
func (b *Broadcaster) Publish(ctx context.Context, jobID, eventType string, data any) {
	if b == nil || jobID == "" {
		return
	}
	b.mu.RLock()
	set, ok := b.jobs[jobID]
	b.mu.RUnlock()
	if !ok {
		return
	}

	set.mu.Lock()
	snapshot := make([]Listener, 0, len(set.listeners))
	for listener := range set.listeners {
		snapshot = append(snapshot, listener)
	}
	set.mu.Unlock()

	event := Event{Type: eventType, Data: data}
	var dead []Listener
	for _, listener := range snapshot {
		if err := b.deliver(ctx, listener, event); err != nil {
			dead = append(dead, listener)
			b.logger.Debug("removing progress listener",
				logging.String(logging.FieldJobID, jobID),
				logging.String(logging.FieldEventType, eventType),
				logging.Error(err),
			)
		}
	}
	if len(dead) > 0 {
		b.remove(jobID, dead)
	}
}

func (b *Broadcaster) deliver(ctx context.Context, listener Listener, event Event) (err error) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.sendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("listener panicked")
		}
	}()
	return listener.Send(sendCtx, event)
}

func (b *Broadcaster) remove(jobID string, listeners []Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.jobs[jobID]
	if !ok {
		return
	}
	set.mu.Lock()
	for _, listener := range listeners {
		delete(set.listeners, listener)
	}
	empty := len(set.listeners) == 0
	set.mu.Unlock()
	if empty {
		delete(b.jobs, jobID)
	}
}
