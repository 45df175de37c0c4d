package notification

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"motomaster/internal/dto"
	"motomaster/internal/telegram"
)

type MessageSender interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (*telegram.Message, error)
}

// Notifier posts order announcements to the operator channel. Delivery is
// best effort: one attempt, bounded by timeout, failures only logged.
type Notifier struct {
	sender  MessageSender
	chatID  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewNotifier(sender MessageSender, chatID string, timeout time.Duration, logger *zap.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		sender:  sender,
		chatID:  chatID,
		timeout: timeout,
		logger:  logger,
	}
}

func (n *Notifier) Notify(ctx context.Context, message string) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	_, err := n.sender.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:                n.chatID,
		Text:                  message,
		ParseMode:             telegram.ParseModeHTML,
		DisableWebPagePreview: true,
	})
	if err != nil {
		n.logger.Error("failed to notify operator channel", zap.Error(err))
		return
	}
	n.logger.Debug("operator channel notified")
}

func (n *Notifier) NotifyOrder(ctx context.Context, result *dto.PlaceOrderResult) {
	n.Notify(ctx, FormatOrderMessage(result))
}

// FormatOrderMessage renders the HTML announcement for a recorded order.
func FormatOrderMessage(result *dto.PlaceOrderResult) string {
	var b strings.Builder
	b.WriteString("<b>New order!</b>\n\n")
	fmt.Fprintf(&b, "<b>Order ID:</b> %d\n", result.OrderID)
	fmt.Fprintf(&b, "<b>Service:</b> %s\n", html.EscapeString(result.ServiceCode.Label()))
	fmt.Fprintf(&b, "<b>Name:</b> %s\n", html.EscapeString(result.DisplayName))
	fmt.Fprintf(&b, "<b>Phone:</b> %s\n", html.EscapeString(result.Phone))
	return b.String()
}
