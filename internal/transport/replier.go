package transport

import (
	"context"
	"time"

	"motomaster/internal/conversation"
	"motomaster/internal/domain"
	"motomaster/internal/telegram"
)

type MessageClient interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (*telegram.Message, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// TelegramReplier sends conversation replies through the Bot API.
type TelegramReplier struct {
	client  MessageClient
	timeout time.Duration
}

func NewTelegramReplier(client MessageClient, timeout time.Duration) *TelegramReplier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TelegramReplier{client: client, timeout: timeout}
}

func (r *TelegramReplier) Reply(ctx context.Context, chatID int64, reply conversation.Reply) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.client.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      telegram.ChatIDString(chatID),
		Text:        reply.Text,
		ReplyMarkup: keyboardMarkup(reply.Keyboard),
	})
	return err
}

func (r *TelegramReplier) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.DeleteMessage(ctx, chatID, messageID)
}

func keyboardMarkup(k conversation.Keyboard) any {
	switch k {
	case conversation.KeyboardServices:
		rows := make([][]telegram.KeyboardButton, 0, len(domain.Services))
		for _, s := range domain.Services {
			rows = append(rows, []telegram.KeyboardButton{{Text: s.Label}})
		}
		return telegram.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
	case conversation.KeyboardRemove:
		return telegram.ReplyKeyboardRemove{RemoveKeyboard: true}
	case conversation.KeyboardStart:
		return telegram.ReplyKeyboardMarkup{
			Keyboard:       [][]telegram.KeyboardButton{{{Text: "/start"}}},
			ResizeKeyboard: true,
			IsPersistent:   true,
		}
	default:
		return nil
	}
}
