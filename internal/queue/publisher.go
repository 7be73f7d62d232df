package queue

import (
	"context"
	"time"

	"upscale-bot/internal/usage"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Publisher is a usage.Sink that forwards events to a queue for the worker to persist.
type Publisher struct {
	Client Client
	Now    func() time.Time
}

// NewPublisher wraps client as a usage sink.
func NewPublisher(client Client) *Publisher {
	return &Publisher{Client: client, Now: time.Now}
}

// Store enqueues e.
func (p *Publisher) Store(ctx context.Context, e usage.Event) error {
	if err := usage.Validate(e); err != nil {
		return err
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return p.Client.Send(ctx, FromEvent(e, now()))
}

// FromEvent builds the queue message for e.
func FromEvent(e usage.Event, enqueuedAt time.Time) Message {
	return Message{
		EventID:    e.ID,
		UserID:     e.UserID,
		Kind:       string(e.Kind),
		Tier:       e.Tier,
		OccurredAt: e.At.UTC().Format(time.RFC3339Nano),
		EnqueuedAt: enqueuedAt.UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// ToEvent converts a decoded message back to a usage event.
func ToEvent(m Message) (usage.Event, error) {
	at, err := m.OccurredTime()
	if err != nil {
		return usage.Event{}, err
	}
	e := usage.Event{
		ID:     m.EventID,
		UserID: m.UserID,
		Kind:   usage.Kind(m.Kind),
		Tier:   m.Tier,
		At:     at,
	}
	if err := usage.Validate(e); err != nil {
		return usage.Event{}, err
	}
	return e, nil
}

var _ usage.Sink = (*Publisher)(nil)
