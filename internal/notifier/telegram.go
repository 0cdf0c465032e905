package notifier

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"power_alert/internal/model"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts alerts to a fixed set of chats.
type Telegram struct {
	api     telegramAPI
	chatIDs []int64
}

// NewTelegram creates a Telegram notifier. The token is verified against the
// Bot API immediately.
func NewTelegram(token string, chatIDs []int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api, chatIDs: chatIDs}, nil
}

// Notify implements Notifier. Recipients are ignored; every configured chat
// receives the message.
func (t *Telegram) Notify(ctx context.Context, n model.Notification) error {
	text := n.Subject + "\n\n" + n.Body
	var errs []error
	for _, id := range t.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := t.api.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("telegram chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
