package queue

import (
	"encoding/json"
	"time"
)

// MessageVersion is the current usage message schema version.
const MessageVersion = 1

// Message carries one usage event to the worker.
type Message struct {
	EventID    string `json:"eventId"`
	UserID     string `json:"userId"`
	Kind       string `json:"kind"`
	Tier       string `json:"tier,omitempty"`
	OccurredAt string `json:"occurredAt"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// OccurredTime parses OccurredAt.
func (m Message) OccurredTime() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, m.OccurredAt)
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
