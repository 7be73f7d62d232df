package usage

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"upscale-bot/internal/shared/metrics"
	"upscale-bot/internal/shared/telemetry"
)

// Recorder accepts usage events. Record never blocks on storage.
type Recorder interface {
	Record(e Event)
}

// Sink persists a single event.
type Sink interface {
	Store(ctx context.Context, e Event) error
}

const (
	defaultBuffer      = 256
	defaultSinkTimeout = 5 * time.Second
)

// AsyncRecorder hands events to a background goroutine that writes them to
// a Sink. A full buffer drops the event.
type AsyncRecorder struct {
	sink Sink
	ch   chan Event
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncRecorder starts the background writer.
func NewAsyncRecorder(sink Sink, buffer int) *AsyncRecorder {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	r := &AsyncRecorder{
		sink: sink,
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues e, filling ID and timestamp when unset.
func (r *AsyncRecorder) Record(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.IncUsageEvent(string(e.Kind), "dropped")
		return
	}
	select {
	case r.ch <- e:
	default:
		metrics.IncUsageEvent(string(e.Kind), "dropped")
		telemetry.Warn("usage.dropped", map[string]any{
			"kind":    e.Kind,
			"user_id": e.UserID,
		})
	}
}

// Close stops accepting events and waits until the buffer is drained or ctx ends.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRecorderClosed
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for e := range r.ch {
		r.store(e)
	}
}

func (r *AsyncRecorder) store(e Event) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncUsageEvent(string(e.Kind), "failed")
			telemetry.Error("usage.panic", map[string]any{
				"event_id": e.ID,
				"error":    rec,
				"stack":    string(debug.Stack()),
			})
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), defaultSinkTimeout)
	defer cancel()
	if err := r.sink.Store(ctx, e); err != nil {
		metrics.IncUsageEvent(string(e.Kind), "failed")
		telemetry.Error("usage.store_failed", map[string]any{
			"event_id": e.ID,
			"kind":     e.Kind,
			"user_id":  e.UserID,
			"error":    telemetry.Err(err),
		})
		return
	}
	metrics.IncUsageEvent(string(e.Kind), "recorded")
}

// Validate checks the fields every sink relies on.
func Validate(e Event) error {
	if e.UserID == "" || !e.Kind.Valid() || e.ID == "" || e.At.IsZero() {
		return ErrInvalidEvent
	}
	return nil
}
