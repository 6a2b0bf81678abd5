package server

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// TelegramChannel runs the assistant over Telegram long polling. Each
// chat maps to its own conversation session.
type TelegramChannel struct {
	bot     *tgbotapi.BotAPI
	handler TurnHandler
}

func NewTelegramChannel(token string, handler TurnHandler) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Telegram bot")
	}
	return &TelegramChannel{bot: bot, handler: handler}, nil
}

// Run polls for updates until the context is canceled.
func (t *TelegramChannel) Run(ctx context.Context) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = 30
	updates := t.bot.GetUpdatesChan(config)

	slog.Info("telegram channel started", "bot", t.bot.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			t.handleMessage(ctx, update.Message)
		}
	}
}

func (t *TelegramChannel) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	sessionID := fmt.Sprintf("tg:%d", message.Chat.ID)

	result, err := t.handler.HandleTurn(ctx, sessionID, message.Text)
	if err != nil {
		slog.Error("telegram: turn failed", "session", sessionID, "error", err)
		t.reply(message.Chat.ID, "⚠️ Something went wrong. Please try again.")
		return
	}
	t.reply(message.Chat.ID, result.Reply)
}

func (t *TelegramChannel) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("telegram: failed to send reply", "chat", chatID, "error", err)
	}
}
