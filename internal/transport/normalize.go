package transport

import (
	"strings"
	"time"

	"motomaster/internal/conversation"
	"motomaster/internal/telegram"
)

// Normalize turns a Bot API update into a conversation event. Updates that
// carry no text message are reported as not ok.
func Normalize(u telegram.Update) (conversation.Event, bool) {
	msg := u.Message
	if msg == nil || msg.Text == "" {
		return conversation.Event{}, false
	}

	ev := conversation.Event{
		ChatID:     msg.Chat.ID,
		MessageID:  msg.MessageID,
		Kind:       conversation.EventText,
		Text:       msg.Text,
		ReceivedAt: time.Unix(msg.Date, 0).UTC(),
	}

	if name, ok := parseCommand(msg.Text); ok {
		ev.Kind = conversation.EventCommand
		ev.Command = name
	}
	return ev, true
}

// parseCommand accepts "/name", "/name@bot" and "/name args".
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	token := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(token, '@'); at >= 0 {
		token = token[:at]
	}
	if token == "" {
		return "", false
	}
	return strings.ToLower(token), true
}
