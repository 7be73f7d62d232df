// Package telegram connects the workflow to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"upscale-bot/internal/workflow"
)

// maxDownloadBytes is the Bot API limit for getFile downloads.
const maxDownloadBytes = 20 << 20

// memberStatuses are the chat member statuses that count as joined.
var memberStatuses = map[string]bool{
	"member":        true,
	"administrator": true,
	"creator":       true,
}

// ErrAttachmentTooLarge is returned for files above the download limit.
var ErrAttachmentTooLarge = errors.New("attachment exceeds download limit")

// botAPI is the subset of *tgbotapi.BotAPI the adapter calls.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Adapter implements workflow.Transport, membership.Checker and
// usage.Notifier on top of a bot.
type Adapter struct {
	bot  botAPI
	http *http.Client
}

// NewAdapter wraps bot. Attachment downloads use their own client.
func NewAdapter(bot *tgbotapi.BotAPI) *Adapter {
	return newAdapter(bot, &http.Client{Timeout: 60 * time.Second})
}

func newAdapter(bot botAPI, client *http.Client) *Adapter {
	return &Adapter{bot: bot, http: client}
}

func (a *Adapter) SendText(ctx context.Context, chatID int64, text string, kb workflow.Keyboard) (workflow.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return workflow.MessageRef{}, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if markup := inlineMarkup(kb); markup != nil {
		msg.ReplyMarkup = *markup
	}
	sent, err := a.bot.Send(msg)
	if err != nil {
		return workflow.MessageRef{}, fmt.Errorf("send message: %w", err)
	}
	return workflow.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (a *Adapter) EditText(ctx context.Context, ref workflow.MessageRef, text string, kb workflow.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	edit.ReplyMarkup = inlineMarkup(kb)
	if _, err := a.bot.Request(edit); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (a *Adapter) DeleteMessage(ctx context.Context, ref workflow.MessageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := a.bot.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (a *Adapter) AnswerInteraction(ctx context.Context, interactionID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cb := tgbotapi.NewCallback(interactionID, text)
	cb.ShowAlert = alert
	if _, err := a.bot.Request(cb); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// FetchAttachment resolves the file and streams it. The caller closes the body.
func (a *Adapter) FetchAttachment(ctx context.Context, att workflow.Attachment) (io.ReadCloser, error) {
	if att.Size > maxDownloadBytes {
		return nil, ErrAttachmentTooLarge
	}
	url, err := a.bot.GetFileDirectURL(att.FileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return readCloser{Reader: io.LimitReader(resp.Body, maxDownloadBytes), Closer: resp.Body}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func (a *Adapter) SendDocument(ctx context.Context, chatID int64, doc workflow.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: doc.FileName, Bytes: doc.Bytes})
	msg.Caption = doc.Caption
	if _, err := a.bot.Send(msg); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// IsMemberOfGroup looks the user up in group, which is either a numeric chat
// id or an @username.
func (a *Adapter) IsMemberOfGroup(ctx context.Context, userID int64, group string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	cfg := tgbotapi.GetChatMemberConfig{ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID}}
	if id, err := strconv.ParseInt(group, 10, 64); err == nil {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = "@" + strings.TrimPrefix(group, "@")
	}
	member, err := a.bot.GetChatMember(cfg)
	if err != nil {
		return false, err
	}
	return memberStatuses[member.Status], nil
}

// Notify sends a plain report message.
func (a *Adapter) Notify(ctx context.Context, chatID int64, text string) error {
	_, err := a.SendText(ctx, chatID, text, nil)
	return err
}

func inlineMarkup(kb workflow.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}
