// Package telegram drives the conversation engine from Telegram updates over
// long polling. Free text and callback-query presses both map to one engine
// turn; the returned prompts become messages with inline keyboards.
package telegram

import (
	"context"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/app"
	"github.com/mentisVeritas/tg-bot-answer-checker/internal/domain"
)

const failureText = "😔 Something went wrong. Please try again."

// Bot polls Telegram and feeds each update through the engine.
type Bot struct {
	api    *tgbotapi.BotAPI
	engine *app.Engine
}

func NewBot(api *tgbotapi.BotAPI, engine *app.Engine) *Bot {
	return &Bot{api: api, engine: engine}
}

// Run polls until ctx is cancelled. One update is one engine turn; turns for
// different actors are independent, so updates are handled sequentially for
// simplicity and ordering.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)
	defer b.api.StopReceivingUpdates()

	log.Printf("telegram: polling as @%s", b.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.Text != "":
		actor := actorFromUser(update.Message.From)
		prompts, err := b.engine.HandleText(ctx, actor, update.Message.Text)
		b.reply(update.Message.Chat.ID, actor.ID, prompts, err)

	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		// Ack stops the client spinner even when the action is stale.
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			log.Printf("telegram: callback ack failed: %v", err)
		}
		actor := actorFromUser(cb.From)
		prompts, err := b.engine.HandleAction(ctx, actor, cb.Data)
		chatID := actor.ID
		if cb.Message != nil {
			chatID = cb.Message.Chat.ID
		}
		b.reply(chatID, actor.ID, prompts, err)
	}
}

func (b *Bot) reply(chatID, actorID int64, prompts []app.Prompt, err error) {
	if err != nil {
		log.Printf("telegram: turn failed for actor %d: %v", actorID, err)
		prompts = []app.Prompt{{Text: failureText}}
	}
	for _, p := range prompts {
		msg := tgbotapi.NewMessage(chatID, p.Text)
		if kb, ok := keyboard(p); ok {
			msg.ReplyMarkup = kb
		}
		if _, err := b.api.Send(msg); err != nil {
			log.Printf("telegram: send to %d failed: %v", chatID, err)
		}
	}
}

func keyboard(p app.Prompt) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(p.Buttons) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(p.Buttons))
	for _, row := range p.Buttons {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Action))
		}
		rows = append(rows, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func actorFromUser(u *tgbotapi.User) domain.Participant {
	if u == nil {
		return domain.Participant{}
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	return domain.Participant{ID: u.ID, DisplayName: name, Username: u.UserName}
}
