package progress

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"dubsy/internal/logging"
)

// ErrListenerClosed is returned by Send after Close.
var ErrListenerClosed = errors.New("listener closed")

// ChannelListener delivers events into a buffered channel. A full buffer is a
// delivery failure.
type ChannelListener struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewChannelListener creates a listener with the given buffer size.
func NewChannelListener(buffer int) *ChannelListener {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelListener{ch: make(chan Event, buffer)}
}

// Events exposes the receive side.
func (l *ChannelListener) Events() <-chan Event {
	return l.ch
}

// Send enqueues event without blocking.
func (l *ChannelListener) Send(_ context.Context, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrListenerClosed
	}
	select {
	case l.ch <- event:
		return nil
	default:
		return errors.New("listener buffer full")
	}
}

// Close closes the channel. Further sends fail.
func (l *ChannelListener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.ch)
	}
}

// LogListener writes events to a logger; used by the CLI.
type LogListener struct {
	logger *slog.Logger
}

// NewLogListener wraps logger.
func NewLogListener(logger *slog.Logger) *LogListener {
	return &LogListener{logger: logging.NewComponentLogger(logger, "progress")}
}

// Send logs the event type.
func (l *LogListener) Send(ctx context.Context, event Event) error {
	logging.WithContext(ctx, l.logger).Info("job "+event.Type,
		logging.String(logging.FieldEventType, "job_"+event.Type),
	)
	return nil
}
