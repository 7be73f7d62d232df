package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"upscale-bot/internal/queue"
	"upscale-bot/internal/usage"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrInvalidEvent indicates a message that decoded but does not describe a usable event.
type ErrInvalidEvent struct {
	Meta    MessageMeta
	EventID string
	Err     error
}

func (e ErrInvalidEvent) Error() string {
	if e.Err == nil {
		return "invalid usage event"
	}
	return "invalid usage event: " + e.Err.Error()
}

func (e ErrInvalidEvent) Unwrap() error { return e.Err }

// ErrStore indicates the event was valid but could not be persisted.
type ErrStore struct {
	EventID string
	Err     error
}

func (e ErrStore) Error() string {
	if e.Err == nil {
		return "store usage event"
	}
	return "store usage event: " + e.Err.Error()
}

func (e ErrStore) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload into a usage event.
func ParseMessage(body string) (usage.Event, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return usage.Event{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return usage.Event{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	evt, err := queue.ToEvent(msg)
	if err != nil {
		return usage.Event{}, meta, ErrInvalidEvent{Meta: meta, EventID: msg.EventID, Err: err}
	}
	return evt, meta, nil
}

// Unrecoverable reports whether redelivering the message cannot help.
func Unrecoverable(err error) bool {
	var empty ErrEmptyBody
	var decode ErrDecode
	var invalid ErrInvalidEvent
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &invalid)
}

// HandleMessage parses a payload and persists the event in sink.
func HandleMessage(ctx context.Context, sink usage.Sink, body string) (usage.Event, error) {
	if sink == nil {
		return usage.Event{}, errors.New("usage sink not configured")
	}
	evt, _, err := ParseMessage(body)
	if err != nil {
		return usage.Event{}, err
	}
	if err := sink.Store(ctx, evt); err != nil {
		return evt, ErrStore{EventID: evt.ID, Err: err}
	}
	return evt, nil
}
