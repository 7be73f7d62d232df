package workflow

import (
	"context"
	"io"
)

// User identifies who triggered an event and where to answer.
type User struct {
	ID     int64
	ChatID int64
}

// MessageRef points at a message the bot sent.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Interaction is a button press that must be acknowledged.
type Interaction struct {
	ID      string
	Message MessageRef
}

// Button is an inline button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is a grid of buttons, one slice per row.
type Keyboard [][]Button

// Attachment is an inbound file the transport can download.
type Attachment struct {
	FileID   string
	FileName string
	MimeType string
	Size     int64
}

// Document is an outbound file.
type Document struct {
	FileName string
	Bytes    []byte
	Caption  string
}

// Transport is the messaging capability set the workflow relies on.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, kb Keyboard) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	AnswerInteraction(ctx context.Context, interactionID, text string, alert bool) error
	FetchAttachment(ctx context.Context, att Attachment) (io.ReadCloser, error)
	SendDocument(ctx context.Context, chatID int64, doc Document) error
}

// Gate is the membership predicate.
type Gate interface {
	IsMember(ctx context.Context, userID int64) bool
}
