package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers scheduled reminder texts as direct messages. Telegram
// chat IDs equal user IDs for private chats, so the actor ID addresses the
// message directly.
type Notifier struct {
	api *tgbotapi.BotAPI
}

func NewNotifier(api *tgbotapi.BotAPI) *Notifier {
	return &Notifier{api: api}
}

func (n *Notifier) Notify(ctx context.Context, actorID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.api.Send(tgbotapi.NewMessage(actorID, text)); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	return nil
}
